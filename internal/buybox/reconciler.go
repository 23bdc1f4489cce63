// Package buybox merges the product and offers views of an ASIN into one
// FactRecord.
package buybox

import (
	"github.com/ppiankov/buybox/internal/model"
	"github.com/ppiankov/buybox/internal/rainforest"
)

// DiscountEpsilon absorbs float noise when comparing price against RRP.
// A price equal to RRP is not a discount.
const DiscountEpsilon = 1e-9

// Reconciler applies the field precedence rules
type Reconciler struct {
	epsilon float64
}

// NewReconciler creates a new Reconciler
func NewReconciler() *Reconciler {
	return &Reconciler{epsilon: DiscountEpsilon}
}

// Reconcile builds the record for asin.
//
// Price, seller, prime and RRP come from the buy box offer, else the top
// offer, else the product view's buybox_winner. The product view alone
// supplies the title.
func (r *Reconciler) Reconcile(asin string, product *rainforest.ProductResponse, offers *rainforest.OffersResponse) *model.FactRecord {
	var p rainforest.Product
	if product != nil {
		p = product.Product
	}
	var list []rainforest.Offer
	if offers != nil {
		list = offers.Offers
	}

	productRRP := p.ListPrice.Amount()
	productSavings := p.Savings.Amount().Value
	bbProd := &p.BuyBoxWinner

	sel := SelectOffer(list)
	chosen := sel.Chosen
	if chosen == nil {
		chosen = &rainforest.Offer{}
	}

	rec := &model.FactRecord{
		ASIN:         asin,
		ProductName:  p.Title.Ptr(),
		BuyBoxExists: sel.BuyBoxExists,
	}

	rec.Price = chosen.Price.Amount()
	if !rec.Price.HasValue() {
		rec.Price = bbProd.Price.Amount()
	}

	rec.SellerName = firstNonNil(chosen.Seller.Name.NonEmpty(), bbProd.Seller.Name.NonEmpty())
	rec.SellerID = firstNonNil(chosen.Seller.ID.NonEmpty(), bbProd.Seller.ID.NonEmpty())
	rec.Prime = firstNonNil(chosen.IsPrime.Ptr(), bbProd.IsPrime.Ptr())

	rec.RRP = chosen.RRP.Amount()
	if !rec.RRP.HasValue() {
		rec.RRP = productRRP
	}

	rec.Discounted = r.discounted(rec.Price, rec.RRP, []*float64{
		productSavings,
		chosen.Save.Amount().Value,
		chosen.Savings.Amount().Value,
		chosen.AmazonDiscount.Amount().Value,
		bbProd.Save.Amount().Value,
		bbProd.Savings.Amount().Value,
		bbProd.AmazonDiscount.Amount().Value,
	})

	return rec
}

// discounted compares price with RRP when both are known. Otherwise the
// first present savings signal decides, in the given order.
func (r *Reconciler) discounted(price, rrp model.Money, signals []*float64) *bool {
	if price.HasValue() && rrp.HasValue() {
		d := *price.Value < *rrp.Value-r.epsilon
		return &d
	}
	for _, v := range signals {
		if v != nil {
			d := *v > 0
			return &d
		}
	}
	return nil
}

func firstNonNil[T any](values ...*T) *T {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
