package core

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mikey/inbox-data-requests/internal/metrics"
)

// ScanState is the lifecycle position of a ScanService
type ScanState int32

const (
	StateIdle ScanState = iota
	StateFetching
	StateClassifying
	StateDone
)

func (s ScanState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateClassifying:
		return "classifying"
	case StateDone:
		return "done"
	}
	return fmt.Sprintf("ScanState(%d)", int32(s))
}

// Progress checkpoints reported during a scan
const (
	ProgressFetching  = 0
	ProgressAnalyzing = 25
	ProgressFinishing = 99
)

// ScanSettings tunes a ScanService
type ScanSettings struct {
	// Concurrency is the number of messages processed at once; 1 or less is strictly serial
	Concurrency  int
	CacheEnabled bool
	CacheTTL     time.Duration
}

// ScanService sequences fetch, extraction and classification for one scan run
type ScanService struct {
	fetcher    MessageFetcher
	extractor  ContentExtractor
	classifier Classifier
	cache      ClassificationCache
	progress   ProgressReporter
	logger     *zap.Logger
	settings   ScanSettings
	state      atomic.Int32
}

// NewScanService creates a new scan orchestrator. cache and progress may be nil.
func NewScanService(
	fetcher MessageFetcher,
	extractor ContentExtractor,
	classifier Classifier,
	cache ClassificationCache,
	progress ProgressReporter,
	logger *zap.Logger,
	settings ScanSettings,
) *ScanService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if progress == nil {
		progress = nopProgress{}
	}
	if cache == nil {
		settings.CacheEnabled = false
	}
	return &ScanService{
		fetcher:    fetcher,
		extractor:  extractor,
		classifier: classifier,
		cache:      cache,
		progress:   progress,
		logger:     logger,
		settings:   settings,
	}
}

// State returns the current lifecycle state
func (s *ScanService) State() ScanState {
	return ScanState(s.state.Load())
}

func (s *ScanService) setState(st ScanState) {
	s.state.Store(int32(st))
}

// Scan runs one scan. Records are committed only once every message has been
// processed; a cancelled or failed scan returns no partial result.
func (s *ScanService) Scan(ctx context.Context, opts FetchOptions) (*ScanResult, error) {
	started := time.Now()
	logger := s.logger.With(zap.String("scan_id", uuid.NewString()))

	s.setState(StateFetching)
	s.progress.Progress(ProgressFetching, "Fetching emails...")

	refs, err := s.fetcher.Fetch(ctx, opts)
	if err != nil {
		s.setState(StateIdle)
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}
	logger.Info("Fetched message references", zap.Int("count", len(refs)))

	s.setState(StateClassifying)
	s.progress.Progress(ProgressAnalyzing, "Analyzing email content...")

	var records []*ScanRecord
	if s.settings.Concurrency > 1 {
		records, err = s.processConcurrent(ctx, logger, refs)
	} else {
		records, err = s.processSerial(ctx, logger, refs)
	}
	if err != nil {
		s.setState(StateIdle)
		return nil, err
	}

	result := NewScanResult()
	for _, rec := range records {
		if rec != nil {
			result.Put(rec)
		}
	}

	s.progress.Progress(ProgressFinishing, "Finishing...")
	s.progress.Done()
	s.setState(StateDone)

	metrics.ScanDuration.Observe(time.Since(started).Seconds())
	logger.Info("Scan complete",
		zap.Int("fetched", len(refs)),
		zap.Int("records", result.Len()),
		zap.Duration("duration", time.Since(started)))

	return result, nil
}

func (s *ScanService) processSerial(ctx context.Context, logger *zap.Logger, refs []RawMessageRef) ([]*ScanRecord, error) {
	records := make([]*ScanRecord, len(refs))
	for i, ref := range refs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := s.processMessage(ctx, logger, ref)
		if err != nil {
			return nil, err
		}
		records[i] = rec
	}
	return records, nil
}

// processConcurrent runs a bounded worker pool. Slots are indexed by fetch
// position so commit order matches the serial mode.
func (s *ScanService) processConcurrent(ctx context.Context, logger *zap.Logger, refs []RawMessageRef) ([]*ScanRecord, error) {
	records := make([]*ScanRecord, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.settings.Concurrency)

	for i, ref := range refs {
		i, ref := i, ref
		g.Go(func() error {
			rec, err := s.processMessage(gctx, logger, ref)
			if err != nil {
				return err
			}
			records[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

// processMessage returns (nil, nil) for a skipped message. The only error it
// returns is context cancellation, which aborts the scan.
func (s *ScanService) processMessage(ctx context.Context, logger *zap.Logger, ref RawMessageRef) (*ScanRecord, error) {
	logger = logger.With(zap.String("message_id", ref.ID), zap.String("category", ref.Category))

	content, err := s.extractor.Extract(ctx, ref)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logger.Info("Skipping message without content", zap.Error(err))
		metrics.MessagesSkipped.WithLabelValues("extract").Inc()
		return nil, nil
	}
	if content.Sender == "" {
		logger.Info("Skipping message without sender")
		metrics.MessagesSkipped.WithLabelValues("sender").Inc()
		return nil, nil
	}

	classification, err := s.classify(ctx, logger, ref.ID, content.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logger.Warn("Skipping message after failed classification", zap.Error(err))
		metrics.MessagesSkipped.WithLabelValues("classify").Inc()
		return nil, nil
	}

	logger.Debug("Classified message",
		zap.String("company", classification.CompanyName),
		zap.String("interaction_type", string(classification.InteractionType)))

	return &ScanRecord{
		MessageID:      ref.ID,
		Category:       ref.Category,
		Subject:        content.Subject,
		Sender:         content.Sender,
		Date:           content.Date,
		Classification: *classification,
	}, nil
}

func (s *ScanService) classify(ctx context.Context, logger *zap.Logger, messageID, body string) (*ClassificationResult, error) {
	if s.settings.CacheEnabled {
		entry, err := s.cache.Get(ctx, messageID)
		switch {
		case err == nil:
			logger.Debug("Cache hit for message")
			metrics.MessagesClassified.WithLabelValues("cache").Inc()
			result := entry.Result
			return &result, nil
		case !errors.Is(err, ErrNotFound):
			logger.Warn("Failed to read classification cache", zap.Error(err))
		}
	}

	result, err := s.classifier.Classify(ctx, body)
	if err != nil {
		return nil, err
	}
	metrics.MessagesClassified.WithLabelValues("model").Inc()

	if s.settings.CacheEnabled {
		now := time.Now()
		entry := &CacheEntry{
			MessageID: messageID,
			Result:    *result,
			CachedAt:  now,
			ExpiresAt: now.Add(s.settings.CacheTTL),
		}
		if err := s.cache.Set(ctx, entry); err != nil {
			logger.Error("Failed to update cache", zap.Error(err))
		}
	}

	return result, nil
}

type nopProgress struct{}

func (nopProgress) Progress(int, string) {}
func (nopProgress) Done()                {}
