// Package fetch lists candidate messages for a scan across mailbox categories.
package fetch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/inbox-data-requests/internal/categories"
	"github.com/mikey/inbox-data-requests/internal/core"
	"github.com/mikey/inbox-data-requests/internal/metrics"
)

const queryDateLayout = "2006/01/02"

// MessageLister is the mail provider's list-by-query call
type MessageLister interface {
	ListMessages(ctx context.Context, labelID, query string, maxResults int64) ([]string, error)
}

// Fetcher issues one bounded query per category
type Fetcher struct {
	lister MessageLister
	logger *zap.Logger
	now    func() time.Time
}

// NewFetcher creates a new Fetcher
func NewFetcher(lister MessageLister, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		lister: lister,
		logger: logger,
		now:    time.Now,
	}
}

// DateWindow returns the local-midnight bounds [ref-(days-1), ref+1) so that
// days=1 covers exactly the calendar day of ref.
func DateWindow(ref time.Time, days int) (start, end time.Time) {
	day := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, ref.Location())
	return day.AddDate(0, 0, -(days - 1)), day.AddDate(0, 0, 1)
}

// BuildQuery renders the provider search query for a window. The personal
// category is always excluded.
func BuildQuery(start, end time.Time, ignored []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "after:%s before:%s -label:%s",
		start.Format(queryDateLayout), end.Format(queryDateLayout), categories.Personal)
	for _, label := range ignored {
		if label == categories.Personal {
			continue
		}
		b.WriteString(" -label:")
		b.WriteString(label)
	}
	return b.String()
}

// Fetch lists messages for every non-ignored category. Results are
// concatenated in category order without cross-category dedup.
func (f *Fetcher) Fetch(ctx context.Context, opts core.FetchOptions) ([]core.RawMessageRef, error) {
	if opts.Days < 1 {
		return nil, fmt.Errorf("days must be at least 1, got %d", opts.Days)
	}
	if opts.LimitPerCategory < 1 {
		return nil, fmt.Errorf("limit per category must be at least 1, got %d", opts.LimitPerCategory)
	}

	requested := opts.Categories
	if len(requested) == 0 {
		requested = categories.Default
	}
	checker := categories.NewChecker(opts.Ignored, f.logger)
	ignored := checker.Labels()

	start, end := DateWindow(f.now(), opts.Days)
	query := BuildQuery(start, end, ignored)

	var refs []core.RawMessageRef
	for _, category := range checker.Filter(requested) {
		f.logger.Info("Fetching messages",
			zap.String("category", category),
			zap.Int("days", opts.Days),
			zap.String("query", query))

		ids, err := f.lister.ListMessages(ctx, category, query, int64(opts.LimitPerCategory))
		if err != nil {
			return nil, fmt.Errorf("failed to list %s messages: %w", category, err)
		}
		metrics.MessagesFetched.WithLabelValues(category).Add(float64(len(ids)))

		for _, id := range ids {
			refs = append(refs, core.RawMessageRef{ID: id, Category: category})
		}
	}

	return refs, nil
}
