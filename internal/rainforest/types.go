package rainforest

import "github.com/ppiankov/buybox/internal/normalize"

// ProductResponse is the body of a type=product request
type ProductResponse struct {
	Product Product `json:"product"`
}

// Product is the product page view of an ASIN. Every field is optional.
type Product struct {
	Title        normalize.Text  `json:"title"`
	ListPrice    normalize.Money `json:"list_price"`
	Savings      normalize.Money `json:"savings"`
	BuyBoxWinner Offer           `json:"buybox_winner"`
}

func (p *Product) UnmarshalJSON(data []byte) error {
	type plain Product
	*p = Product{}
	return normalize.DecodeObject(data, (*plain)(p))
}

// OffersResponse is the body of a type=offers request
type OffersResponse struct {
	Offers normalize.List[Offer] `json:"offers"`
}

// Offer is one seller's listing. The product view's buybox_winner record
// shares this shape.
type Offer struct {
	BuyBoxWinner   normalize.Bool  `json:"buybox_winner"`
	IsBuyBoxWinner normalize.Bool  `json:"is_buybox_winner"`
	Price          normalize.Money `json:"price"`
	RRP            normalize.Money `json:"rrp"`
	Seller         Seller          `json:"seller"`
	IsPrime        normalize.Bool  `json:"is_prime"`
	Save           normalize.Money `json:"save"`
	Savings        normalize.Money `json:"savings"`
	AmazonDiscount normalize.Money `json:"amazon_discount"`
}

func (o *Offer) UnmarshalJSON(data []byte) error {
	type plain Offer
	*o = Offer{}
	return normalize.DecodeObject(data, (*plain)(o))
}

// WinsBuyBox reports whether the offer is flagged as the buy box winner.
// The live API sends buybox_winner; is_buybox_winner is accepted as well.
func (o *Offer) WinsBuyBox() bool {
	return o.BuyBoxWinner.IsTrue() || o.IsBuyBoxWinner.IsTrue()
}

// Seller identifies the merchant behind an offer
type Seller struct {
	Name normalize.Text `json:"name"`
	ID   normalize.Text `json:"id"`
}

func (s *Seller) UnmarshalJSON(data []byte) error {
	type plain Seller
	*s = Seller{}
	return normalize.DecodeObject(data, (*plain)(s))
}
