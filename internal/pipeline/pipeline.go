// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline coordinates discovery, resolution, enrichment, and
// fetching against the corpus store with bounded concurrency.
// Implements: prd008-pipeline (R1-R4);
//
//	docs/ARCHITECTURE § Pipeline.
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/corpus-engine/internal/discovery"
	"github.com/pdiddy/corpus-engine/internal/fetch"
	"github.com/pdiddy/corpus-engine/pkg/types"
)

const defaultWorkers = 4

// Store is the corpus access used by the pipeline.
type Store interface {
	Get(ctx context.Context, id string) (types.Paper, bool, error)
	Upsert(ctx context.Context, paper types.Paper) error
	Iterate(ctx context.Context, fn func(types.Paper) bool) error
}

// Resolver produces download candidates from raw source metadata.
type Resolver interface {
	Resolve(meta json.RawMessage) []types.Location
}

// Enricher appends candidates from a secondary lookup service.
type Enricher interface {
	Enrich(ctx context.Context, locs []types.Location, paper types.Paper) []types.Location
}

// Fetcher downloads the best available artifact for a record.
type Fetcher interface {
	Fetch(ctx context.Context, paper types.Paper, locs []types.Location, w io.Writer) (types.Paper, fetch.Outcome, error)
}

// Pipeline wires the acquisition stages together. Workers bounds fetch
// concurrency; QueueSize bounds the discovery-to-fetch queue in harvest mode
// so a slow fetch pool applies backpressure to the crawl (R1.2, R1.3).
// Enricher may be nil when no enrichment service is configured.
type Pipeline struct {
	Source    discovery.Source
	Resolver  Resolver
	Enricher  Enricher
	Fetcher   Fetcher
	Store     Store
	Workers   int
	QueueSize int
	Log       *slog.Logger
}

// Summary aggregates per-record outcomes of a pipeline run (R4.1).
type Summary struct {
	Discovered int
	PDF        int
	HTML       int
	None       int
	Skipped    int
	Failed     int
}

// Attempted returns the number of records that reached the fetch stage.
func (s Summary) Attempted() int {
	return s.PDF + s.HTML + s.None + s.Failed
}

// Discover runs one crawl and persists every yielded record (R2.1). Records
// already in the store keep their acquisition state and scoring; only the
// bibliographic fields and metadata refresh (R2.3).
func (p *Pipeline) Discover(ctx context.Context, query types.DiscoveryQuery) ([]types.Paper, error) {
	var papers []types.Paper
	var saveErr error

	err := p.Source.Discover(ctx, query, func(paper types.Paper) bool {
		merged, err := p.mergeExisting(ctx, paper)
		if err == nil {
			err = p.Store.Upsert(ctx, merged)
		}
		if err != nil {
			saveErr = err
			return false
		}
		papers = append(papers, merged)
		return true
	})
	if err != nil {
		return papers, fmt.Errorf("discovery: %w", err)
	}
	if saveErr != nil {
		return papers, fmt.Errorf("saving discovered records: %w", saveErr)
	}

	p.logger().Info("discovery complete", "source", p.Source.Name(), "records", len(papers))
	return papers, nil
}

// FetchPending resolves and fetches stored records that have no artifact
// yet, newest first (R3.1). limit caps how many records are attempted; zero
// means no cap. Worker errors are counted per record and never abort the
// pool (R3.4).
func (p *Pipeline) FetchPending(ctx context.Context, limit int, w io.Writer) (Summary, error) {
	var candidates []types.Paper
	err := p.Store.Iterate(ctx, func(rec types.Paper) bool {
		if rec.Fetched() {
			return true
		}
		candidates = append(candidates, rec)
		return limit == 0 || len(candidates) < limit
	})
	if err != nil {
		return Summary{}, fmt.Errorf("listing fetch candidates: %w", err)
	}

	p.logger().Info("fetch pool starting", "candidates", len(candidates), "workers", p.workerCount())

	var c counters
	records := make(chan types.Paper)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(records)
		for _, rec := range candidates {
			select {
			case records <- rec:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	p.startWorkers(ctx, g, records, w, func(ctx context.Context, rec types.Paper, buf io.Writer) {
		updated, outcome, err := p.processOne(ctx, rec, buf)
		if err != nil {
			c.failed.Add(1)
			p.logger().Warn("fetch failed", "id", rec.ID, "error", err)
			return
		}
		if outcome == fetch.OutcomeNone {
			c.none.Add(1)
			return
		}
		if err := p.Store.Upsert(ctx, updated); err != nil {
			c.failed.Add(1)
			p.logger().Warn("saving record failed", "id", rec.ID, "error", err)
			return
		}
		c.count(outcome)
	})

	if err := g.Wait(); err != nil {
		return c.summary(), err
	}

	summary := c.summary()
	fmt.Fprintf(w, "\nBatch summary: %d pdf, %d html, %d none, %d failed (attempted: %d)\n",
		summary.PDF, summary.HTML, summary.None, summary.Failed, summary.Attempted())
	return summary, nil
}

// Harvest streams a crawl straight into the fetch pool (R1.1). Discovered
// records flow through a bounded queue; each one is persisted whether or not
// an artifact could be fetched. A discovery failure stops the crawl but the
// pool still drains every record already yielded (R1.4).
func (p *Pipeline) Harvest(ctx context.Context, query types.DiscoveryQuery, w io.Writer) (Summary, error) {
	p.logger().Info("harvest starting", "source", p.Source.Name(),
		"workers", p.workerCount(), "queue", p.queueSize())

	var c counters
	records := make(chan types.Paper, p.queueSize())
	g, ctx := errgroup.WithContext(ctx)

	var discoverErr error
	g.Go(func() error {
		defer close(records)
		err := p.Source.Discover(ctx, query, func(paper types.Paper) bool {
			select {
			case records <- paper:
				c.discovered.Add(1)
				return true
			case <-ctx.Done():
				return false
			}
		})
		if err != nil {
			// Reported after the pool drains the already-yielded records.
			discoverErr = err
		}
		return nil
	})

	p.startWorkers(ctx, g, records, w, func(ctx context.Context, rec types.Paper, buf io.Writer) {
		p.harvestOne(ctx, rec, buf, &c)
	})

	if err := g.Wait(); err != nil {
		return c.summary(), err
	}

	summary := c.summary()
	fmt.Fprintf(w, "\nHarvest summary: %d discovered, %d pdf, %d html, %d none, %d skipped, %d failed\n",
		summary.Discovered, summary.PDF, summary.HTML, summary.None, summary.Skipped, summary.Failed)

	if discoverErr != nil {
		return summary, fmt.Errorf("discovery: %w", discoverErr)
	}
	p.logger().Info("harvest complete", "discovered", summary.Discovered,
		"fetched", summary.PDF+summary.HTML)
	return summary, nil
}

// harvestOne persists one discovered record, fetching its artifact unless an
// earlier run already obtained one.
func (p *Pipeline) harvestOne(ctx context.Context, rec types.Paper, w io.Writer, c *counters) {
	existing, ok, err := p.Store.Get(ctx, rec.ID)
	if err != nil {
		c.failed.Add(1)
		p.logger().Warn("reading record failed", "id", rec.ID, "error", err)
		return
	}
	if ok {
		rec = mergeAcquisitionState(rec, existing)
	}

	if rec.Fetched() {
		if err := p.Store.Upsert(ctx, rec); err != nil {
			c.failed.Add(1)
			p.logger().Warn("saving record failed", "id", rec.ID, "error", err)
			return
		}
		c.skipped.Add(1)
		fmt.Fprintf(w, "skipped: %s (already fetched)\n", rec.ID)
		return
	}

	updated, outcome, err := p.processOne(ctx, rec, w)
	if err != nil {
		// Persist the discovery itself even when the fetch errored.
		c.failed.Add(1)
		p.logger().Warn("fetch failed", "id", rec.ID, "error", err)
		updated = rec
		outcome = fetch.OutcomeNone
		if err := p.Store.Upsert(ctx, updated); err != nil {
			p.logger().Warn("saving record failed", "id", rec.ID, "error", err)
		}
		return
	}

	if err := p.Store.Upsert(ctx, updated); err != nil {
		c.failed.Add(1)
		p.logger().Warn("saving record failed", "id", rec.ID, "error", err)
		return
	}
	c.count(outcome)
}

// processOne runs resolve, enrich, and fetch for a single record.
func (p *Pipeline) processOne(ctx context.Context, rec types.Paper, w io.Writer) (types.Paper, fetch.Outcome, error) {
	locs := p.Resolver.Resolve(rec.Meta)
	if p.Enricher != nil {
		locs = p.Enricher.Enrich(ctx, locs, rec)
	}
	return p.Fetcher.Fetch(ctx, rec, locs, w)
}

// startWorkers launches the fetch workers. Each record's status lines are
// buffered and flushed as one block so concurrent workers do not interleave
// output mid-record.
func (p *Pipeline) startWorkers(ctx context.Context, g *errgroup.Group, records <-chan types.Paper, w io.Writer, handle func(context.Context, types.Paper, io.Writer)) {
	var mu sync.Mutex
	for i := 0; i < p.workerCount(); i++ {
		g.Go(func() error {
			for rec := range records {
				if err := ctx.Err(); err != nil {
					return err
				}
				var buf bytes.Buffer
				handle(ctx, rec, &buf)
				if buf.Len() > 0 {
					mu.Lock()
					w.Write(buf.Bytes())
					mu.Unlock()
				}
			}
			return nil
		})
	}
}

func (p *Pipeline) mergeExisting(ctx context.Context, paper types.Paper) (types.Paper, error) {
	existing, ok, err := p.Store.Get(ctx, paper.ID)
	if err != nil || !ok {
		return paper, err
	}
	return mergeAcquisitionState(paper, existing), nil
}

// mergeAcquisitionState carries artifact paths and scoring over from the
// stored row; discovery records arrive with those fields empty and must not
// wipe earlier fetch or scoring progress.
func mergeAcquisitionState(fresh, existing types.Paper) types.Paper {
	fresh.PDFPath = existing.PDFPath
	fresh.HTMLPath = existing.HTMLPath
	fresh.TextPath = existing.TextPath
	fresh.Score = existing.Score
	fresh.Kept = existing.Kept
	return fresh
}

type counters struct {
	discovered atomic.Int64
	pdf        atomic.Int64
	html       atomic.Int64
	none       atomic.Int64
	skipped    atomic.Int64
	failed     atomic.Int64
}

func (c *counters) count(outcome fetch.Outcome) {
	switch outcome {
	case fetch.OutcomePDF:
		c.pdf.Add(1)
	case fetch.OutcomeHTML:
		c.html.Add(1)
	default:
		c.none.Add(1)
	}
}

func (c *counters) summary() Summary {
	return Summary{
		Discovered: int(c.discovered.Load()),
		PDF:        int(c.pdf.Load()),
		HTML:       int(c.html.Load()),
		None:       int(c.none.Load()),
		Skipped:    int(c.skipped.Load()),
		Failed:     int(c.failed.Load()),
	}
}

func (p *Pipeline) workerCount() int {
	if p.Workers > 0 {
		return p.Workers
	}
	return defaultWorkers
}

func (p *Pipeline) queueSize() int {
	if p.QueueSize > 0 {
		return p.QueueSize
	}
	return 2 * p.workerCount()
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Log != nil {
		return p.Log
	}
	return slog.Default()
}
