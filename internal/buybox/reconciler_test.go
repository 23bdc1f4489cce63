package buybox

import (
	"encoding/json"
	"testing"

	"github.com/ppiankov/buybox/internal/rainforest"
)

func reconcile(t *testing.T, productJSON, offersJSON string) *recordView {
	t.Helper()
	var product rainforest.ProductResponse
	if err := json.Unmarshal([]byte(productJSON), &product); err != nil {
		t.Fatalf("decode product: %v", err)
	}
	var offers rainforest.OffersResponse
	if err := json.Unmarshal([]byte(offersJSON), &offers); err != nil {
		t.Fatalf("decode offers: %v", err)
	}
	rec := NewReconciler().Reconcile("B000TEST01", &product, &offers)
	return &recordView{t: t, rec: rec}
}

func TestReconcile_EndToEnd(t *testing.T) {
	v := reconcile(t,
		`{"product": {"title": "Widget", "list_price": {"value": 24.99, "currency": "GBP"}}}`,
		`{"offers": [{"is_buybox_winner": true, "price": {"value": 19.99, "currency": "GBP"},
			"seller": {"name": "Acme", "id": "A1"}, "is_prime": true}]}`,
	)

	v.str("ProductName", v.rec.ProductName, "Widget")
	v.money("Price", v.rec.Price, 19.99, "GBP")
	v.money("RRP", v.rec.RRP, 24.99, "GBP")
	v.boolean("Discounted", v.rec.Discounted, true)
	v.str("SellerName", v.rec.SellerName, "Acme")
	v.str("SellerID", v.rec.SellerID, "A1")
	v.boolean("Prime", v.rec.Prime, true)
	if !v.rec.BuyBoxExists {
		t.Error("expected buy box to exist")
	}
	if v.rec.ASIN != "B000TEST01" || v.rec.Failed() {
		t.Errorf("unexpected identity/error: %+v", v.rec)
	}
}

func TestReconcile_PriceFallsBackToProductBuyBox(t *testing.T) {
	v := reconcile(t,
		`{"product": {"buybox_winner": {"price": {"value": "12.50", "currency": "EUR"},
			"seller": {"name": "Fallback", "id": "F1"}, "is_prime": true}}}`,
		`{"offers": [{"price": {"value": "n/a", "currency": "USD"}, "seller": {"name": ""}}]}`,
	)

	// Value and currency travel together from the fallback source
	v.money("Price", v.rec.Price, 12.5, "EUR")
	v.str("SellerName", v.rec.SellerName, "Fallback")
	v.str("SellerID", v.rec.SellerID, "F1")
	v.boolean("Prime", v.rec.Prime, true)
	if v.rec.BuyBoxExists {
		t.Error("expected no buy box")
	}
}

func TestReconcile_SellerNameAndIDResolvedIndependently(t *testing.T) {
	v := reconcile(t,
		`{"product": {"buybox_winner": {"seller": {"name": "Product Seller", "id": "P1"}}}}`,
		`{"offers": [{"buybox_winner": true, "seller": {"name": "Offer Seller"}}]}`,
	)

	v.str("SellerName", v.rec.SellerName, "Offer Seller")
	v.str("SellerID", v.rec.SellerID, "P1")
}

func TestReconcile_ExplicitPrimeFalseWins(t *testing.T) {
	v := reconcile(t,
		`{"product": {"buybox_winner": {"is_prime": true}}}`,
		`{"offers": [{"is_prime": false}]}`,
	)

	v.boolean("Prime", v.rec.Prime, false)
}

func TestReconcile_RRPPairTravelsTogether(t *testing.T) {
	v := reconcile(t,
		`{"product": {"list_price": {"value": 30, "currency": "GBP"}}}`,
		`{"offers": [{"buybox_winner": true, "price": {"value": 25, "currency": "GBP"},
			"rrp": {"currency": "USD"}}]}`,
	)

	// The offer RRP has no value, so the whole product pair is used
	v.money("RRP", v.rec.RRP, 30, "GBP")
	v.boolean("Discounted", v.rec.Discounted, true)
}

func TestReconcile_OfferRRPPreferred(t *testing.T) {
	v := reconcile(t,
		`{"product": {"list_price": {"value": 30, "currency": "GBP"}}}`,
		`{"offers": [{"buybox_winner": true, "price": {"value": 25, "currency": "GBP"},
			"rrp": {"value": 25}}]}`,
	)

	if v.rec.RRP.Value == nil || *v.rec.RRP.Value != 25 || v.rec.RRP.Currency != nil {
		t.Errorf("expected offer RRP 25 without currency, got %+v", v.rec.RRP)
	}
	v.boolean("Discounted", v.rec.Discounted, false)
}

func TestReconcile_DiscountEpsilon(t *testing.T) {
	tests := []struct {
		name  string
		price float64
		rrp   float64
		want  bool
	}{
		{"equal", 19.99, 19.99, false},
		{"within epsilon", 19.99 - 1e-12, 19.99, false},
		{"cheaper", 19.98, 19.99, true},
		{"more expensive", 21, 19.99, false},
		{"float noise", 0.1 + 0.2, 0.3, false},
	}

	r := NewReconciler()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price, rrp := tt.price, tt.rrp
			offers := &rainforest.OffersResponse{Offers: []rainforest.Offer{{}}}
			offers.Offers[0].Price.Value = &price
			offers.Offers[0].RRP.Value = &rrp

			rec := r.Reconcile("B000TEST01", nil, offers)
			if rec.Discounted == nil {
				t.Fatal("expected discounted to be set")
			}
			if got := *rec.Discounted; got != tt.want || got != (price < rrp-1e-9) {
				t.Errorf("discounted(%v, %v) = %v, want %v", price, rrp, got, tt.want)
			}
		})
	}
}

func TestReconcile_DiscountSignalOrder(t *testing.T) {
	tests := []struct {
		name    string
		product string
		offers  string
		want    *bool
	}{
		{
			name:    "no signals",
			product: `{"product": {}}`,
			offers:  `{"offers": [{"price": {"value": 10}}]}`,
			want:    nil,
		},
		{
			name:    "product savings first",
			product: `{"product": {"savings": {"value": 0}, "buybox_winner": {"save": {"value": 5}}}}`,
			offers:  `{"offers": [{"save": {"value": 3}}]}`,
			want:    boolPtr(false),
		},
		{
			name:    "offer save before offer savings",
			product: `{"product": {}}`,
			offers:  `{"offers": [{"save": {"value": 2}, "savings": {"value": -1}}]}`,
			want:    boolPtr(true),
		},
		{
			name:    "offer savings before amazon discount",
			product: `{"product": {}}`,
			offers:  `{"offers": [{"savings": {"value": "0"}, "amazon_discount": {"value": 4}}]}`,
			want:    boolPtr(false),
		},
		{
			name:    "offer amazon discount",
			product: `{"product": {}}`,
			offers:  `{"offers": [{"amazon_discount": {"value": 4}}]}`,
			want:    boolPtr(true),
		},
		{
			name:    "product buybox save",
			product: `{"product": {"buybox_winner": {"save": {"value": 1}, "savings": {"value": 0}}}}`,
			offers:  `{"offers": []}`,
			want:    boolPtr(true),
		},
		{
			name:    "product buybox savings",
			product: `{"product": {"buybox_winner": {"savings": {"value": -2}, "amazon_discount": {"value": 3}}}}`,
			offers:  `{"offers": []}`,
			want:    boolPtr(false),
		},
		{
			name:    "product buybox amazon discount",
			product: `{"product": {"buybox_winner": {"amazon_discount": {"value": 3}}}}`,
			offers:  `{"offers": []}`,
			want:    boolPtr(true),
		},
		{
			name:    "unparseable signals skipped",
			product: `{"product": {"savings": {"value": "lots"}, "buybox_winner": {"save": {"value": 1}}}}`,
			offers:  `{"offers": [{"save": "5%"}]}`,
			want:    boolPtr(true),
		},
		{
			name:    "rrp without price falls back to signals",
			product: `{"product": {"list_price": {"value": 20}, "savings": {"value": 2}}}`,
			offers:  `{"offers": []}`,
			want:    boolPtr(true),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := reconcile(t, tt.product, tt.offers)
			if tt.want == nil {
				if v.rec.Discounted != nil {
					t.Errorf("expected unknown, got %v", *v.rec.Discounted)
				}
				return
			}
			v.boolean("Discounted", v.rec.Discounted, *tt.want)
		})
	}
}

func TestReconcile_EmptyViews(t *testing.T) {
	rec := NewReconciler().Reconcile("B000TEST01", nil, nil)
	if rec.ProductName != nil || rec.Price.Value != nil || rec.SellerName != nil ||
		rec.SellerID != nil || rec.Prime != nil || rec.Discounted != nil || rec.RRP.Value != nil {
		t.Errorf("expected all fields absent, got %+v", rec)
	}
	if rec.BuyBoxExists || rec.Failed() {
		t.Errorf("unexpected record: %+v", rec)
	}
}

func TestReconcile_NoTitleFallback(t *testing.T) {
	v := reconcile(t, `{"product": {"title": 42}}`, `{"offers": [{"title": "Offer Title"}]}`)
	if v.rec.ProductName != nil {
		t.Errorf("expected no title, got %q", *v.rec.ProductName)
	}
}

func boolPtr(b bool) *bool {
	return &b
}
