package worker

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ppiankov/buybox/internal/model"
)

// Looker resolves one ASIN into a record. Implementations must not return
// nil; a failed lookup is reported through the record's Error field.
type Looker interface {
	Lookup(ctx context.Context, asin string) *model.FactRecord
}

// LookupJob looks up the ASIN at position Index of the input
type LookupJob struct {
	Index  int
	ASIN   string
	Looker Looker
}

// Execute executes the lookup job
func (j *LookupJob) Execute(ctx context.Context) Result {
	rec := j.Looker.Lookup(ctx, j.ASIN)
	if rec == nil {
		rec = model.NewFailedRecord(j.ASIN, errors.New("no result"))
	}
	return &LookupResult{
		Index:  j.Index,
		Record: rec,
	}
}

// LookupResult is a record tagged with its input position
type LookupResult struct {
	Index  int
	Record *model.FactRecord
}

// GetError returns the lookup error, if any
func (r *LookupResult) GetError() error {
	if r.Record == nil || !r.Record.Failed() {
		return nil
	}
	return errors.New(r.Record.Error)
}

// BatchProcessor looks up many ASINs on a bounded worker pool
type BatchProcessor struct {
	looker      Looker
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(looker Looker, concurrency int) *BatchProcessor {
	if concurrency < 1 {
		concurrency = 1
	}
	return &BatchProcessor{
		looker:      looker,
		concurrency: concurrency,
	}
}

// ProcessASINs returns one record per input ASIN, in input order, whatever
// the order of completion. A failed lookup never stops the others.
func (b *BatchProcessor) ProcessASINs(ctx context.Context, asins []string) []*model.FactRecord {
	if len(asins) == 0 {
		return []*model.FactRecord{}
	}

	pool := NewPool(b.concurrency)
	pool.Start(ctx)

	for i, asin := range asins {
		job := &LookupJob{
			Index:  i,
			ASIN:   asin,
			Looker: b.looker,
		}
		if err := pool.Submit(ctx, job); err != nil {
			break
		}
	}

	results := pool.Wait()

	// Completion order is arbitrary; each result lands at its input position
	records := make([]*model.FactRecord, len(asins))
	for _, result := range results {
		lr := result.(*LookupResult)
		records[lr.Index] = lr.Record
	}

	// Jobs never queued because ctx ended still get a row
	for i, rec := range records {
		if rec == nil {
			err := ctx.Err()
			if err == nil {
				err = errors.New("not processed")
			}
			records[i] = model.NewFailedRecord(asins[i], err)
		}
	}

	return records
}

// ProcessFile reads ASINs from a CSV file and processes them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*model.FactRecord, error) {
	asins, err := ReadASINsFromCSV(filePath)
	if err != nil {
		return nil, fmt.Errorf("read ASINs: %w", err)
	}

	return b.ProcessASINs(ctx, asins), nil
}

// ReadASINsFromCSV reads the asin (or ASIN) column of a CSV file with a
// header row. Values are trimmed, blanks skipped, duplicates kept.
func ReadASINsFromCSV(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return ParseASINs(file)
}

// ParseASINs reads ASINs from CSV data, see ReadASINsFromCSV
func ParseASINs(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	lower, upper := -1, -1
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		switch name {
		case "asin":
			lower = i
		case "ASIN":
			upper = i
		}
	}
	if lower < 0 && upper < 0 {
		return nil, fmt.Errorf("no asin column in header %q", strings.Join(header, ","))
	}

	asins := []string{}
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		// asin wins when both columns are present and it is non-empty
		asin := strings.TrimSpace(field(row, lower))
		if asin == "" {
			asin = strings.TrimSpace(field(row, upper))
		}
		if asin != "" {
			asins = append(asins, asin)
		}
	}

	return asins, nil
}

func field(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
