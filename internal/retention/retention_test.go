package retention

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"l10ntrack/pkg/models"
)

type fakeStore struct {
	refs       []models.ResultRef
	listErr    error
	keptIDs    []string
	deleteCall int
}

func (f *fakeStore) ListRefs(ctx context.Context, siteID string) ([]models.ResultRef, error) {
	return f.refs, f.listErr
}

func (f *fakeStore) DeleteExcept(ctx context.Context, siteID string, keepIDs []string) (int, error) {
	f.deleteCall++
	f.keptIDs = keepIDs
	keep := map[string]bool{}
	for _, id := range keepIDs {
		keep[id] = true
	}
	var remaining []models.ResultRef
	for _, ref := range f.refs {
		if keep[ref.ID] {
			remaining = append(remaining, ref)
		}
	}
	deleted := len(f.refs) - len(remaining)
	f.refs = remaining
	return deleted, nil
}

func TestSelectOrdersNewestFirst(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	refs := []models.ResultRef{
		{ID: "old", AnalyzedAt: base, Seq: 1},
		{ID: "new", AnalyzedAt: base.Add(2 * time.Hour), Seq: 2},
		{ID: "mid", AnalyzedAt: base.Add(time.Hour), Seq: 3},
	}

	keep, drop := NewPolicy(2).Select(refs)

	assert.Equal(t, []string{"new", "mid"}, ids(keep))
	assert.Equal(t, []string{"old"}, ids(drop))
}

func TestSelectBreaksTiesByInsertionOrder(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	refs := []models.ResultRef{
		{ID: "first", AnalyzedAt: at, Seq: 1},
		{ID: "second", AnalyzedAt: at, Seq: 2},
		{ID: "third", AnalyzedAt: at, Seq: 3},
	}

	keep, drop := NewPolicy(1).Select(refs)

	assert.Equal(t, []string{"third"}, ids(keep))
	assert.Equal(t, []string{"second", "first"}, ids(drop))
}

func TestSelectDisabledKeepsEverything(t *testing.T) {
	refs := []models.ResultRef{{ID: "a"}, {ID: "b"}}
	keep, drop := NewPolicy(0).Select(refs)
	assert.Len(t, keep, 2)
	assert.Empty(t, drop)
}

// Three languages, keep two, five runs: two rows remain across the whole site.
func TestPruneAcrossRuns(t *testing.T) {
	store := &fakeStore{}
	policy := NewPolicy(2)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	seq := int64(0)

	for run := 0; run < 5; run++ {
		for _, lang := range []string{"fr", "de", "ja"} {
			seq++
			store.refs = append(store.refs, models.ResultRef{
				ID:         fmt.Sprintf("%d-%s", run, lang),
				AnalyzedAt: start.Add(time.Duration(run) * time.Minute),
				Seq:        seq,
			})
		}
		_, err := policy.Prune(context.Background(), store, "site")
		require.NoError(t, err)
	}

	require.Len(t, store.refs, 2)
	assert.ElementsMatch(t, []string{"4-ja", "4-de"}, ids(store.refs))
}

func TestPruneNothingToDrop(t *testing.T) {
	store := &fakeStore{refs: []models.ResultRef{{ID: "a"}}}

	deleted, err := NewPolicy(10).Prune(context.Background(), store, "site")

	require.NoError(t, err)
	assert.Zero(t, deleted)
	assert.Zero(t, store.deleteCall)
}

func TestPruneListError(t *testing.T) {
	store := &fakeStore{listErr: fmt.Errorf("connection reset")}

	_, err := NewPolicy(1).Prune(context.Background(), store, "site")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list analysis results")
}

func ids(refs []models.ResultRef) []string {
	out := make([]string, len(refs))
	for i, ref := range refs {
		out[i] = ref.ID
	}
	return out
}
