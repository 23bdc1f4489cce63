package buybox

import "github.com/ppiankov/buybox/internal/rainforest"

// Selection is the outcome of scanning an offers list
type Selection struct {
	BuyBoxExists bool
	BuyBox       *rainforest.Offer // first buy box winner, if any
	Chosen       *rainforest.Offer // BuyBox, else the top listed offer, else nil
}

// SelectOffer picks the first offer flagged as buy box winner, falling back
// to the first offer in list order.
func SelectOffer(offers []rainforest.Offer) Selection {
	var sel Selection
	for i := range offers {
		if offers[i].WinsBuyBox() {
			sel.BuyBoxExists = true
			sel.BuyBox = &offers[i]
			break
		}
	}

	switch {
	case sel.BuyBoxExists:
		sel.Chosen = sel.BuyBox
	case len(offers) > 0:
		sel.Chosen = &offers[0]
	}
	return sel
}
