// Package dashboard ties parsing, the dataset store and the
// metrics engine together. Transports (HTTP, the inbox watcher,
// the CLI) call into a Service; nothing here knows about them.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/wesm/listenview/internal/history"
	"github.com/wesm/listenview/internal/metrics"
	"github.com/wesm/listenview/internal/parser"
	"github.com/wesm/listenview/internal/store"
	"github.com/wesm/listenview/internal/timeutil"
)

// SampleRows is the number of rows in an upload preview.
const SampleRows = 5

var (
	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "listenview_uploads_total",
		Help: "Dataset builds by outcome.",
	}, []string{"outcome"})
	rowsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "listenview_rows_ingested_total",
		Help: "Events kept in stored datasets.",
	})
	rowsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "listenview_rows_dropped_total",
		Help: "Records dropped for bad timestamps or empty tracks.",
	})
	queriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "listenview_metrics_queries_total",
		Help: "Metrics queries by outcome.",
	}, []string{"outcome"})
)

// Service builds and queries datasets.
type Service struct {
	store  store.Store
	engine *metrics.Engine
	newID  func() string
}

// New creates a Service over st. A nil engine uses the default
// analysis timezone.
func New(st store.Store, engine *metrics.Engine) *Service {
	if engine == nil {
		engine = metrics.New(metrics.Options{})
	}
	return &Service{store: st, engine: engine, newID: uuid.NewString}
}

// Engine returns the metrics engine.
func (s *Service) Engine() *metrics.Engine { return s.engine }

// BuildDataset parses payloads as one upload batch, stores the
// resulting table under a fresh ID and returns both. Any
// malformed payload aborts the batch and nothing is stored.
func (s *Service) BuildDataset(
	ctx context.Context, payloads [][]byte,
) (string, *history.Table, error) {
	records, err := parser.ParseFiles(ctx, payloads)
	if err != nil {
		uploadsTotal.WithLabelValues("malformed").Inc()
		return "", nil, err
	}
	tbl := history.Build(records)

	id := s.newID()
	if err := s.store.Put(ctx, id, tbl); err != nil {
		uploadsTotal.WithLabelValues("error").Inc()
		return "", nil, fmt.Errorf("storing dataset: %w", err)
	}
	uploadsTotal.WithLabelValues("ok").Inc()
	rowsIngested.Add(float64(tbl.Len()))
	rowsDropped.Add(float64(len(records) - tbl.Len()))
	log.Printf(
		"dashboard: stored dataset %s (%d rows, %d sessions)",
		id, tbl.Len(), tbl.SessionCount(),
	)
	return id, tbl, nil
}

// Preview is the row count and leading rows of a window.
type Preview struct {
	RowCount int             `json:"row_count"`
	Sample   []history.Event `json:"sample"`
}

// PreviewOf summarizes the events of tbl that fall in r.
func PreviewOf(tbl *history.Table, r history.Range) Preview {
	view := tbl.Slice(r)
	sample := view.Head(SampleRows)
	if sample == nil {
		sample = []history.Event{}
	}
	return Preview{RowCount: view.Len(), Sample: sample}
}

// Upload is the response to a dataset build.
type Upload struct {
	DatasetID string `json:"dataset_id"`
	Preview
}

// Upload builds a dataset and previews it over r. The window
// only shapes the preview; the full table is stored.
func (s *Service) Upload(
	ctx context.Context, payloads [][]byte, r history.Range,
) (*Upload, error) {
	id, tbl, err := s.BuildDataset(ctx, payloads)
	if err != nil {
		return nil, err
	}
	return &Upload{DatasetID: id, Preview: PreviewOf(tbl, r)}, nil
}

// QueryMetrics computes the bundle for the events of dataset
// id that fall in r. It returns store.ErrNotFound for unknown
// IDs and metrics.ErrNoData for an empty window.
func (s *Service) QueryMetrics(
	ctx context.Context, id string, r history.Range,
) (*metrics.Bundle, error) {
	tbl, err := s.store.Get(ctx, id)
	if err != nil {
		queriesTotal.WithLabelValues(outcome(err)).Inc()
		return nil, err
	}
	b, err := s.engine.Compute(tbl.Slice(r))
	queriesTotal.WithLabelValues(outcome(err)).Inc()
	return b, err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, store.ErrNotFound):
		return "not_found"
	case errors.Is(err, metrics.ErrNoData):
		return "no_data"
	default:
		return "error"
	}
}

// Info describes a stored dataset.
type Info struct {
	DatasetID string  `json:"dataset_id"`
	RowCount  int     `json:"row_count"`
	Sessions  int     `json:"sessions"`
	First     *string `json:"first_ts"` // nil for an empty dataset
	Last      *string `json:"last_ts"`
}

// Info returns a summary of dataset id.
func (s *Service) Info(ctx context.Context, id string) (*Info, error) {
	tbl, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Info{
		DatasetID: id,
		RowCount:  tbl.Len(),
		Sessions:  tbl.SessionCount(),
		First:     timeutil.Ptr(tbl.First()),
		Last:      timeutil.Ptr(tbl.Last()),
	}, nil
}

// Evict removes dataset id from the store.
func (s *Service) Evict(ctx context.Context, id string) error {
	if err := s.store.Evict(ctx, id); err != nil {
		return err
	}
	log.Printf("dashboard: evicted dataset %s", id)
	return nil
}
