package core

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/nemfeed/internal/config"
	"github.com/JonMunkholm/nemfeed/internal/logging"
	"github.com/JonMunkholm/nemfeed/internal/metrics"
	"github.com/JonMunkholm/nemfeed/internal/nemweb"
	"github.com/JonMunkholm/nemfeed/internal/table"
)

// Stage names the pipeline step a run failed in.
type Stage string

const (
	StageListing Stage = "listing"
	StageArchive Stage = "archive"
)

// Result is a successful pipeline run.
type Result struct {
	FetchID string
	Archive string // URL of the archive the table came from
	Listed  int    // archives seen in the listing
	Table   *table.Table
}

// FetchError is a failed pipeline run. Err keeps the technical cause.
type FetchError struct {
	FetchID string
	Stage   Stage
	Archive string // empty when the listing stage failed
	Err     error
}

func (e *FetchError) Error() string {
	if e.Archive != "" {
		return fmt.Sprintf("%s %s: %v", e.Stage, e.Archive, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// upstream is the hot-swappable part of the service.
type upstream struct {
	cfg       config.UpstreamConfig
	selection Selection
	client    *nemweb.Client
}

// Service runs the forecast pipeline: list archives, pick the latest,
// download it and parse its first entry. It is safe for concurrent use;
// runs share nothing but the upstream settings and the metrics registry.
type Service struct {
	up      atomic.Pointer[upstream]
	metrics *metrics.Registry
}

// NewService creates a Service. A nil registry gets a private one.
func NewService(cfg config.UpstreamConfig, reg *metrics.Registry) *Service {
	if reg == nil {
		reg = metrics.New()
	}
	s := &Service{metrics: reg}
	s.SetUpstream(cfg)
	return s
}

// SetUpstream replaces the upstream settings. Runs already in flight keep
// the settings they started with.
func (s *Service) SetUpstream(cfg config.UpstreamConfig) {
	s.up.Store(&upstream{
		cfg:       cfg,
		selection: ParseSelection(cfg.Selection),
		client: nemweb.New(nemweb.Config{
			ArchiveExtension: cfg.ArchiveExtension,
			ContentTypes:     cfg.ContentTypes,
			Timeout:          cfg.Timeout,
			MaxArchiveBytes:  cfg.MaxArchiveBytes,
			UserAgent:        cfg.UserAgent,
			Layout:           table.ParseLayout(cfg.Layout),
		}),
	})
}

// Upstream returns the settings new runs will use.
func (s *Service) Upstream() config.UpstreamConfig {
	return s.up.Load().cfg
}

// Metrics returns the registry runs are recorded in.
func (s *Service) Metrics() *metrics.Registry {
	return s.metrics
}

// Latest runs the pipeline once. On failure the error is a *FetchError.
func (s *Service) Latest(ctx context.Context) (*Result, error) {
	up := s.up.Load()
	fetchID := uuid.New().String()
	ctx = logging.WithFetchID(ctx, fetchID)
	log := logging.FromContext(ctx)
	start := time.Now()

	fail := func(stage Stage, archive string, err error) (*Result, error) {
		fe := &FetchError{FetchID: fetchID, Stage: stage, Archive: archive, Err: err}
		outcome := outcomeOf(err)
		s.metrics.ObserveRun(outcome, time.Since(start), 0)
		log.Warn("pipeline failed",
			"stage", stage,
			"outcome", outcome,
			"code", MapError(err).Code,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, fe
	}

	links, err := up.client.ListArchives(ctx, up.cfg.ListingURL)
	s.metrics.ObserveUpstream(metrics.StageListing, resultOf(err))
	if err != nil {
		return fail(StageListing, "", err)
	}

	archive, ok := up.selection.Pick(links)
	if !ok {
		return fail(StageListing, "", fmt.Errorf("%s: %w", up.cfg.ListingURL, ErrNoArchives))
	}
	log.Debug("archive selected", "archive", archive, "listed", len(links), "selection", up.selection)

	tbl, err := up.client.FetchTable(ctx, archive)
	s.metrics.ObserveUpstream(metrics.StageArchive, resultOf(err))
	if err != nil {
		return fail(StageArchive, archive, err)
	}

	elapsed := time.Since(start)
	s.metrics.ObserveRun(metrics.OutcomeSuccess, elapsed, tbl.Len())
	log.Info("pipeline complete",
		"archive", archive,
		"rows", tbl.Len(),
		"duration_ms", elapsed.Milliseconds(),
	)

	return &Result{
		FetchID: fetchID,
		Archive: archive,
		Listed:  len(links),
		Table:   tbl,
	}, nil
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, ErrNoArchives):
		return metrics.OutcomeNoData
	case errors.Is(err, context.Canceled):
		return metrics.OutcomeCancelled
	case IsTimeout(err):
		return metrics.OutcomeTimeout
	default:
		return metrics.OutcomeError
	}
}

// resultOf labels one upstream request for the metrics registry.
func resultOf(err error) string {
	var se *nemweb.StatusError
	switch {
	case err == nil:
		return "ok"
	case IsTimeout(err):
		return "timeout"
	case errors.As(err, &se):
		return fmt.Sprintf("http_%d", se.StatusCode)
	case errors.Is(err, nemweb.ErrUpstream):
		return "network_error"
	default:
		return "bad_payload"
	}
}
