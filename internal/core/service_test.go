package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeFetcher struct {
	refs []RawMessageRef
	err  error
}

func (f *fakeFetcher) Fetch(ctx context.Context, opts FetchOptions) ([]RawMessageRef, error) {
	return f.refs, f.err
}

// fakeExtractor uses the message id as the body unless told otherwise
type fakeExtractor struct {
	errs      map[string]error
	noSender  map[string]bool
	extracted sync.Map
}

func (f *fakeExtractor) Extract(ctx context.Context, ref RawMessageRef) (*MessageContent, error) {
	f.extracted.Store(ref.ID, true)
	if err := f.errs[ref.ID]; err != nil {
		return nil, err
	}
	sender := "news@" + ref.ID + ".example"
	if f.noSender[ref.ID] {
		sender = ""
	}
	return &MessageContent{Subject: "subject " + ref.ID, Sender: sender, Date: "2024-05-01", Body: ref.ID}, nil
}

type fakeClassifier struct {
	mu    sync.Mutex
	errs  map[string]error
	delay map[string]time.Duration
	calls map[string]int
	hook  func(body string)
}

func (f *fakeClassifier) Classify(ctx context.Context, body string) (*ClassificationResult, error) {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[body]++
	hook := f.hook
	f.mu.Unlock()

	if hook != nil {
		hook(body)
	}
	if d := f.delay[body]; d > 0 {
		time.Sleep(d)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := f.errs[body]; err != nil {
		return nil, err
	}
	return &ClassificationResult{CompanyName: "Company " + body, InteractionType: Interacted, Website: body + ".com"}, nil
}

func (f *fakeClassifier) callCount(body string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[body]
}

type recordingProgress struct {
	mu     sync.Mutex
	points []int
	texts  []string
	done   bool
}

func (p *recordingProgress) Progress(percent int, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.points = append(p.points, percent)
	p.texts = append(p.texts, text)
}

func (p *recordingProgress) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done = true
}

type mapCache struct {
	mu      sync.Mutex
	entries map[string]*CacheEntry
}

func newMapCache() *mapCache { return &mapCache{entries: make(map[string]*CacheEntry)} }

func (c *mapCache) Get(ctx context.Context, id string) (*CacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[id]; ok {
		return e, nil
	}
	return nil, ErrNotFound
}

func (c *mapCache) Set(ctx context.Context, e *CacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[e.MessageID] = e
	return nil
}

func (c *mapCache) Delete(ctx context.Context, id string) error { return nil }
func (c *mapCache) Cleanup(ctx context.Context) error          { return nil }

func refs(category string, ids ...string) []RawMessageRef {
	out := make([]RawMessageRef, 0, len(ids))
	for _, id := range ids {
		out = append(out, RawMessageRef{ID: id, Category: category})
	}
	return out
}

func recordIDs(r *ScanResult) []string {
	var ids []string
	for _, rec := range r.Records() {
		ids = append(ids, rec.MessageID)
	}
	return ids
}

func newService(f MessageFetcher, e ContentExtractor, c Classifier, settings ScanSettings) (*ScanService, *recordingProgress) {
	progress := &recordingProgress{}
	return NewScanService(f, e, c, nil, progress, zap.NewNop(), settings), progress
}

func TestScan_MessageListedInTwoCategoriesYieldsOneRecord(t *testing.T) {
	all := append(refs("CATEGORY_PROMOTIONS", "m1", "m2"), refs("CATEGORY_UPDATES", "m2", "m3")...)
	svc, _ := newService(&fakeFetcher{refs: all}, &fakeExtractor{}, &fakeClassifier{}, ScanSettings{Concurrency: 1})

	result, err := svc.Scan(context.Background(), FetchOptions{Days: 7})
	require.NoError(t, err)
	assert.Equal(t, []string{"m1", "m2", "m3"}, recordIDs(result))
	assert.Equal(t, 3, result.Len())
}

func TestScan_NonRateLimitFailureDropsOnlyThatMessage(t *testing.T) {
	classifier := &fakeClassifier{errs: map[string]error{"m2": errors.New("model exploded")}}
	svc, _ := newService(&fakeFetcher{refs: refs("CATEGORY_UPDATES", "m1", "m2", "m3")}, &fakeExtractor{}, classifier, ScanSettings{})

	result, err := svc.Scan(context.Background(), FetchOptions{Days: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"m1", "m3"}, recordIDs(result))
}

func TestScan_ExtractionFailureSkipsWithoutClassifying(t *testing.T) {
	extractor := &fakeExtractor{errs: map[string]error{"m1": ErrNoContent}}
	classifier := &fakeClassifier{}
	svc, _ := newService(&fakeFetcher{refs: refs("CATEGORY_UPDATES", "m1", "m2")}, extractor, classifier, ScanSettings{})

	result, err := svc.Scan(context.Background(), FetchOptions{Days: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"m2"}, recordIDs(result))
	assert.Equal(t, 0, classifier.callCount("m1"))
}

func TestScan_MissingSenderIsSkipped(t *testing.T) {
	extractor := &fakeExtractor{noSender: map[string]bool{"m2": true}}
	svc, _ := newService(&fakeFetcher{refs: refs("CATEGORY_UPDATES", "m1", "m2")}, extractor, &fakeClassifier{}, ScanSettings{})

	result, err := svc.Scan(context.Background(), FetchOptions{Days: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"m1"}, recordIDs(result))
}

func TestScan_RecordCarriesHeadersAndClassification(t *testing.T) {
	svc, _ := newService(&fakeFetcher{refs: refs("CATEGORY_PROMOTIONS", "acme")}, &fakeExtractor{}, &fakeClassifier{}, ScanSettings{})

	result, err := svc.Scan(context.Background(), FetchOptions{Days: 1})
	require.NoError(t, err)

	rec, ok := result.Get("acme")
	require.True(t, ok)
	assert.Equal(t, "subject acme", rec.Subject)
	assert.Equal(t, "news@acme.example", rec.Sender)
	assert.Equal(t, "2024-05-01", rec.Date)
	assert.Equal(t, "CATEGORY_PROMOTIONS", rec.Category)
	assert.Equal(t, "Company acme", rec.Classification.CompanyName)
}

func TestScan_ProgressCheckpointsAndState(t *testing.T) {
	svc, progress := newService(&fakeFetcher{refs: refs("CATEGORY_UPDATES", "m1")}, &fakeExtractor{}, &fakeClassifier{}, ScanSettings{})
	assert.Equal(t, StateIdle, svc.State())

	_, err := svc.Scan(context.Background(), FetchOptions{Days: 1})
	require.NoError(t, err)

	assert.Equal(t, []int{ProgressFetching, ProgressAnalyzing, ProgressFinishing}, progress.points)
	assert.Equal(t, "Fetching emails...", progress.texts[0])
	assert.True(t, progress.done)
	assert.Equal(t, StateDone, svc.State())
}

func TestScan_EmptyInboxCompletes(t *testing.T) {
	svc, progress := newService(&fakeFetcher{}, &fakeExtractor{}, &fakeClassifier{}, ScanSettings{})

	result, err := svc.Scan(context.Background(), FetchOptions{Days: 1})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Len())
	assert.True(t, progress.done)
}

func TestScan_FetchErrorPropagates(t *testing.T) {
	fetchErr := errors.New("provider unavailable")
	svc, progress := newService(&fakeFetcher{err: fetchErr}, &fakeExtractor{}, &fakeClassifier{}, ScanSettings{})

	result, err := svc.Scan(context.Background(), FetchOptions{Days: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, fetchErr)
	assert.Nil(t, result)
	assert.False(t, progress.done)
	assert.Equal(t, StateIdle, svc.State())
}

func TestScan_CancellationReturnsNoPartialResult(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	classifier := &fakeClassifier{hook: func(body string) {
		if body == "m2" {
			cancel()
		}
	}}
	extractor := &fakeExtractor{}
	svc, _ := newService(&fakeFetcher{refs: refs("CATEGORY_UPDATES", "m1", "m2", "m3")}, extractor, classifier, ScanSettings{})

	result, err := svc.Scan(ctx, FetchOptions{Days: 1})
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, result)

	_, reachedM3 := extractor.extracted.Load("m3")
	assert.False(t, reachedM3)
}

func TestScan_CacheHitSkipsModel(t *testing.T) {
	cache := newMapCache()
	cached := ClassificationResult{CompanyName: "Cached Co", InteractionType: NotInteracted, Website: "cached.example"}
	require.NoError(t, cache.Set(context.Background(), &CacheEntry{MessageID: "m1", Result: cached}))

	classifier := &fakeClassifier{}
	svc := NewScanService(&fakeFetcher{refs: refs("CATEGORY_UPDATES", "m1", "m2")}, &fakeExtractor{}, classifier, cache, nil, nil,
		ScanSettings{CacheEnabled: true, CacheTTL: time.Hour})

	result, err := svc.Scan(context.Background(), FetchOptions{Days: 1})
	require.NoError(t, err)

	rec, _ := result.Get("m1")
	assert.Equal(t, cached, rec.Classification)
	assert.Equal(t, 0, classifier.callCount("m1"))
	assert.Equal(t, 1, classifier.callCount("m2"))

	stored, err := cache.Get(context.Background(), "m2")
	require.NoError(t, err)
	assert.Equal(t, "Company m2", stored.Result.CompanyName)
	assert.True(t, stored.ExpiresAt.After(stored.CachedAt))
}

func TestScan_ConcurrentModeKeepsFetchOrder(t *testing.T) {
	classifier := &fakeClassifier{delay: map[string]time.Duration{
		"m1": 30 * time.Millisecond,
		"m2": 20 * time.Millisecond,
		"m3": 10 * time.Millisecond,
	}}
	all := append(refs("CATEGORY_PROMOTIONS", "m1", "m2"), refs("CATEGORY_UPDATES", "m2", "m3")...)
	svc, _ := newService(&fakeFetcher{refs: all}, &fakeExtractor{}, classifier, ScanSettings{Concurrency: 3})

	result, err := svc.Scan(context.Background(), FetchOptions{Days: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"m1", "m2", "m3"}, recordIDs(result))
}

func TestScan_ConcurrentModeDropsFailedMessage(t *testing.T) {
	classifier := &fakeClassifier{errs: map[string]error{"m2": errors.New("bad request")}}
	svc, _ := newService(&fakeFetcher{refs: refs("CATEGORY_UPDATES", "m1", "m2", "m3", "m4")}, &fakeExtractor{}, classifier, ScanSettings{Concurrency: 2})

	result, err := svc.Scan(context.Background(), FetchOptions{Days: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"m1", "m3", "m4"}, recordIDs(result))
}

func TestScanState_String(t *testing.T) {
	assert.Equal(t, "classifying", StateClassifying.String())
	assert.Equal(t, "ScanState(9)", ScanState(9).String())
}
