package model

// Money is an amount as reported by the data provider.
// Value is nil unless the source parsed as a number.
type Money struct {
	Value    *float64 `json:"value"`
	Currency *string  `json:"currency"`
}

// HasValue reports whether the amount carries a numeric value
func (m Money) HasValue() bool {
	return m.Value != nil
}

// FactRecord is the reconciled view of one ASIN
type FactRecord struct {
	ASIN         string  `json:"asin"`            // Identifier as supplied by the caller
	ProductName  *string `json:"product_name"`    // Product page title
	Price        Money   `json:"price"`           // Buy box price, or top offer price
	BuyBoxExists bool    `json:"buybox_exists"`   // Whether any offer holds the buy box
	SellerName   *string `json:"seller_name"`     // Seller of the chosen offer
	SellerID     *string `json:"seller_id"`       // Seller ID of the chosen offer
	Prime        *bool   `json:"prime"`           // Prime eligibility
	Discounted   *bool   `json:"discounted"`      // nil when no comparison basis exists
	RRP          Money   `json:"rrp"`             // Recommended retail price
	Error        string  `json:"error,omitempty"` // Set only when the lookup failed
}

// Failed reports whether the lookup for this record failed
func (r *FactRecord) Failed() bool {
	return r.Error != ""
}

// NewFailedRecord builds the record returned when a lookup cannot complete.
// Only the ASIN and the error message are populated.
func NewFailedRecord(asin string, err error) *FactRecord {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return &FactRecord{
		ASIN:  asin,
		Error: msg,
	}
}
