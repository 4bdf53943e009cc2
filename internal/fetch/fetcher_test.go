package fetch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikey/inbox-data-requests/internal/core"
)

type listCall struct {
	label string
	query string
	max   int64
}

type fakeLister struct {
	byLabel map[string][]string
	err     error
	calls   []listCall
}

func (f *fakeLister) ListMessages(ctx context.Context, labelID, query string, maxResults int64) ([]string, error) {
	f.calls = append(f.calls, listCall{label: labelID, query: query, max: maxResults})
	if f.err != nil {
		return nil, f.err
	}
	return f.byLabel[labelID], nil
}

func fixedNow(f *Fetcher, t time.Time) {
	f.now = func() time.Time { return t }
}

func TestDateWindow_SevenDays(t *testing.T) {
	for _, clock := range []string{"00:00:00", "13:45:10", "23:59:59"} {
		ref, err := time.Parse("2006-01-02 15:04:05", "2024-03-10 "+clock)
		require.NoError(t, err)

		start, end := DateWindow(ref, 7)
		assert.Equal(t, "2024-03-04", start.Format("2006-01-02"), clock)
		assert.Equal(t, "2024-03-11", end.Format("2006-01-02"), clock)
		assert.Equal(t, 0, start.Hour())
	}
}

func TestDateWindow_SingleDayCoversToday(t *testing.T) {
	ref := time.Date(2024, 12, 31, 18, 0, 0, 0, time.UTC)
	start, end := DateWindow(ref, 1)
	assert.Equal(t, time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), end)
}

func TestBuildQuery(t *testing.T) {
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "after:2024/03/04 before:2024/03/11 -label:CATEGORY_PERSONAL", BuildQuery(start, end, nil))
	assert.Equal(t,
		"after:2024/03/04 before:2024/03/11 -label:CATEGORY_PERSONAL -label:CATEGORY_SOCIAL",
		BuildQuery(start, end, []string{"CATEGORY_PERSONAL", "CATEGORY_SOCIAL"}))
}

func TestFetch_ConcatenatesCategoriesWithoutDedup(t *testing.T) {
	lister := &fakeLister{byLabel: map[string][]string{
		"CATEGORY_PROMOTIONS": {"m1", "m2"},
		"CATEGORY_UPDATES":    {"m2", "m3"},
	}}
	f := NewFetcher(lister, nil)
	fixedNow(f, time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC))

	refs, err := f.Fetch(context.Background(), core.FetchOptions{Days: 7, LimitPerCategory: 10})
	require.NoError(t, err)

	assert.Equal(t, []core.RawMessageRef{
		{ID: "m1", Category: "CATEGORY_PROMOTIONS"},
		{ID: "m2", Category: "CATEGORY_PROMOTIONS"},
		{ID: "m2", Category: "CATEGORY_UPDATES"},
		{ID: "m3", Category: "CATEGORY_UPDATES"},
	}, refs)

	require.Len(t, lister.calls, 2)
	for _, call := range lister.calls {
		assert.Equal(t, int64(10), call.max)
		assert.Equal(t, "after:2024/03/04 before:2024/03/11 -label:CATEGORY_PERSONAL", call.query)
	}
}

func TestFetch_IgnoredCategoriesAreExcluded(t *testing.T) {
	lister := &fakeLister{byLabel: map[string][]string{
		"CATEGORY_PROMOTIONS": {"p1"},
		"CATEGORY_UPDATES":    {"u1"},
	}}
	f := NewFetcher(lister, nil)
	fixedNow(f, time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC))

	refs, err := f.Fetch(context.Background(), core.FetchOptions{
		Days:             1,
		LimitPerCategory: 5,
		Ignored:          []string{"Promotions", "Social"},
	})
	require.NoError(t, err)

	assert.Equal(t, []core.RawMessageRef{{ID: "u1", Category: "CATEGORY_UPDATES"}}, refs)
	require.Len(t, lister.calls, 1)
	assert.Equal(t, "CATEGORY_UPDATES", lister.calls[0].label)
	assert.Contains(t, lister.calls[0].query, "-label:CATEGORY_PROMOTIONS")
	assert.Contains(t, lister.calls[0].query, "-label:CATEGORY_SOCIAL")
}

func TestFetch_ProviderErrorPropagates(t *testing.T) {
	listErr := errors.New("403 forbidden")
	f := NewFetcher(&fakeLister{err: listErr}, nil)

	refs, err := f.Fetch(context.Background(), core.FetchOptions{Days: 1, LimitPerCategory: 1})
	assert.Nil(t, refs)
	assert.ErrorIs(t, err, listErr)
}

func TestFetch_ValidatesOptions(t *testing.T) {
	f := NewFetcher(&fakeLister{}, nil)

	_, err := f.Fetch(context.Background(), core.FetchOptions{Days: 0, LimitPerCategory: 1})
	assert.Error(t, err)

	_, err = f.Fetch(context.Background(), core.FetchOptions{Days: 1, LimitPerCategory: 0})
	assert.Error(t, err)
}
