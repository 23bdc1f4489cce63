package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ppiankov/buybox/internal/model"
	"github.com/ppiankov/buybox/internal/util"
)

// CSVColumns is the fixed column order of batch output
var CSVColumns = []string{
	"asin",
	"product_name",
	"price",
	"currency",
	"buybox_exists",
	"seller_name",
	"seller_id",
	"prime",
	"discounted",
	"rrp",
	"rrp_currency",
	"error",
}

// Renderer renders FactRecords for the terminal, CSV and JSON
type Renderer struct {
	titleMaxTerm int
	titleMaxCSV  int
}

// NewRenderer creates a new renderer with the given title limits
func NewRenderer(titleMaxTerm, titleMaxCSV int) *Renderer {
	return &Renderer{
		titleMaxTerm: titleMaxTerm,
		titleMaxCSV:  titleMaxCSV,
	}
}

// RenderTable writes the single-ASIN report: an aligned vertical table, or
// an ERROR line when the lookup failed
func (r *Renderer) RenderTable(w io.Writer, rec *model.FactRecord) error {
	if rec.Failed() {
		_, err := fmt.Fprintf(w, "[ASIN %s] ERROR: %s\n", rec.ASIN, rec.Error)
		return err
	}

	title := "-"
	if rec.ProductName != nil {
		if short := util.Shorten(*rec.ProductName, r.titleMaxTerm); short != "" {
			title = short
		}
	}
	asin := rec.ASIN
	if asin == "" {
		asin = "-"
	}

	rows := []struct{ label, value string }{
		{"ASIN", asin},
		{"Title", title},
		{"Price", formatMoney(rec.Price)},
		{"Buy Box Exists", yesNo(&rec.BuyBoxExists)},
		{"Seller", fmt.Sprintf("%s (ID: %s)", orDash(rec.SellerName), orDash(rec.SellerID))},
		{"Prime", yesNo(rec.Prime)},
		{"Discounted", yesNo(rec.Discounted)},
		{"RRP", formatMoney(rec.RRP)},
	}

	width := 0
	for _, row := range rows {
		if len(row.label) > width {
			width = len(row.label)
		}
	}
	line := strings.Repeat("-", width+2+40)

	var b strings.Builder
	b.WriteString(line + "\n")
	for _, row := range rows {
		fmt.Fprintf(&b, "%-*s : %s\n", width, row.label, row.value)
	}
	b.WriteString(line + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderJSON writes the record as indented JSON to path
func (r *Renderer) RenderJSON(rec *model.FactRecord, path string) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write JSON: %w", err)
	}
	return nil
}

// WriteCSV writes the batch output file
func (r *Renderer) WriteCSV(path string, recs []*model.FactRecord) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create CSV: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close CSV: %w", closeErr)
		}
	}()

	return r.EncodeCSV(f, recs)
}

// EncodeCSV writes the header and one row per record, in order
func (r *Renderer) EncodeCSV(w io.Writer, recs []*model.FactRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVColumns); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}
	for _, rec := range recs {
		if err := cw.Write(r.csvRow(rec)); err != nil {
			return fmt.Errorf("write CSV row %s: %w", rec.ASIN, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush CSV: %w", err)
	}
	return nil
}

func (r *Renderer) csvRow(rec *model.FactRecord) []string {
	name := ""
	if rec.ProductName != nil {
		name = util.Shorten(*rec.ProductName, r.titleMaxCSV)
	}

	// A failed record carries only asin and error
	buyBox := strconv.FormatBool(rec.BuyBoxExists)
	if rec.Failed() {
		buyBox = ""
	}

	return []string{
		rec.ASIN,
		name,
		csvFloat(rec.Price.Value),
		csvString(rec.Price.Currency),
		buyBox,
		csvString(rec.SellerName),
		csvString(rec.SellerID),
		csvBool(rec.Prime),
		csvBool(rec.Discounted),
		csvFloat(rec.RRP.Value),
		csvString(rec.RRP.Currency),
		rec.Error,
	}
}

func formatMoney(m model.Money) string {
	if m.Value == nil {
		return "-"
	}
	currency := ""
	if m.Currency != nil {
		currency = *m.Currency
	}
	return strings.TrimSpace(util.FormatAmount(*m.Value) + " " + currency)
}

func yesNo(b *bool) string {
	switch {
	case b == nil:
		return "-"
	case *b:
		return "Yes"
	default:
		return "No"
	}
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

func csvString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func csvFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return util.FormatAmount(*f)
}

func csvBool(b *bool) string {
	if b == nil {
		return ""
	}
	return strconv.FormatBool(*b)
}
