package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ppiankov/buybox/internal/buybox"
	"github.com/ppiankov/buybox/internal/model"
	"github.com/ppiankov/buybox/internal/observability"
	"github.com/ppiankov/buybox/internal/rainforest"
	"golang.org/x/sync/errgroup"
)

// ViewFetcher fetches the two provider views of an ASIN
type ViewFetcher interface {
	Product(ctx context.Context, domain, asin string) (*rainforest.ProductResponse, error)
	Offers(ctx context.Context, domain, asin string) (*rainforest.OffersResponse, error)
}

// Pipeline orchestrates one ASIN lookup
type Pipeline struct {
	fetcher    ViewFetcher
	reconciler *buybox.Reconciler
	renderer   *Renderer
	domain     string
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewPipeline creates a new pipeline with the given configuration
func NewPipeline(cfg *model.Config, logger *slog.Logger, metrics *observability.Metrics) (*Pipeline, error) {
	client, err := rainforest.NewClient(rainforest.Options{
		BaseURL:     cfg.API.URL,
		APIKey:      cfg.API.Key,
		UserAgent:   cfg.HTTP.UserAgent,
		Timeout:     cfg.HTTP.Timeout,
		Retries:     cfg.HTTP.Retries,
		BackoffBase: cfg.HTTP.BackoffBase,
		HTTPProxy:   cfg.HTTP.HTTPProxy,
		HTTPSProxy:  cfg.HTTP.HTTPSProxy,
		Logger:      logger,
		Metrics:     metrics,
	})
	if err != nil {
		return nil, err
	}

	p := NewPipelineWithFetcher(client, cfg.API.Domain, logger, metrics)
	p.renderer = NewRenderer(cfg.Output.TitleMaxTerm, cfg.Output.TitleMaxCSV)
	return p, nil
}

// NewPipelineWithFetcher creates a pipeline over an arbitrary ViewFetcher
func NewPipelineWithFetcher(fetcher ViewFetcher, domain string, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	defaults := model.DefaultConfig()
	return &Pipeline{
		fetcher:    fetcher,
		reconciler: buybox.NewReconciler(),
		renderer:   NewRenderer(defaults.Output.TitleMaxTerm, defaults.Output.TitleMaxCSV),
		domain:     domain,
		logger:     logger,
		metrics:    metrics,
	}
}

// Renderer returns the renderer configured for this pipeline
func (p *Pipeline) Renderer() *Renderer {
	return p.renderer
}

// Lookup fetches both views of asin and reconciles them. It never returns
// nil: a failed fetch yields a record with only ASIN and Error set.
func (p *Pipeline) Lookup(ctx context.Context, asin string) *model.FactRecord {
	start := time.Now()
	asin = strings.TrimSpace(asin)

	rec, err := p.lookup(ctx, asin)
	if err != nil {
		p.logger.Warn("lookup failed", slog.String("asin", asin), slog.String("error", err.Error()))
		p.metrics.ObserveLookup("error", time.Since(start))
		return model.NewFailedRecord(asin, err)
	}

	p.logger.Debug("lookup complete",
		slog.String("asin", asin),
		slog.Bool("buybox_exists", rec.BuyBoxExists),
		slog.Duration("elapsed", time.Since(start)),
	)
	p.metrics.ObserveLookup("ok", time.Since(start))
	return rec
}

func (p *Pipeline) lookup(ctx context.Context, asin string) (*model.FactRecord, error) {
	if asin == "" {
		return nil, fmt.Errorf("empty ASIN")
	}

	var (
		product *rainforest.ProductResponse
		offers  *rainforest.OffersResponse
	)

	// The views are independent; the first failure cancels the other request
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		product, err = p.fetcher.Product(gctx, p.domain, asin)
		return err
	})
	g.Go(func() error {
		var err error
		offers, err = p.fetcher.Offers(gctx, p.domain, asin)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return p.reconciler.Reconcile(asin, product, offers), nil
}
