// Package retention bounds how many analysis results are kept per site.
package retention

import (
	"context"
	"sort"

	"l10ntrack/pkg/errors"
	"l10ntrack/pkg/models"
)

// DefaultKeepCount is the number of results kept per site when nothing is configured.
const DefaultKeepCount = 10

// Store is the part of the result store the policy needs.
type Store interface {
	ListRefs(ctx context.Context, siteID string) ([]models.ResultRef, error)
	DeleteExcept(ctx context.Context, siteID string, keepIDs []string) (int, error)
}

// Policy keeps the KeepCount most recent results of a site across all of its
// languages. A KeepCount of zero or less disables pruning.
type Policy struct {
	KeepCount int
}

// NewPolicy returns a policy keeping keepCount results.
func NewPolicy(keepCount int) Policy {
	return Policy{KeepCount: keepCount}
}

// Enabled reports whether the policy ever deletes anything.
func (p Policy) Enabled() bool {
	return p.KeepCount > 0
}

// Select orders refs newest first, breaking AnalyzedAt ties by insertion order,
// and splits them into the ones to keep and the ones to drop.
func (p Policy) Select(refs []models.ResultRef) (keep, drop []models.ResultRef) {
	ordered := append([]models.ResultRef(nil), refs...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].AnalyzedAt.Equal(ordered[j].AnalyzedAt) {
			return ordered[i].AnalyzedAt.After(ordered[j].AnalyzedAt)
		}
		return ordered[i].Seq > ordered[j].Seq
	})

	if !p.Enabled() || len(ordered) <= p.KeepCount {
		return ordered, nil
	}
	return ordered[:p.KeepCount], ordered[p.KeepCount:]
}

// Prune deletes every result of siteID outside the newest KeepCount and returns
// how many rows were removed.
func (p Policy) Prune(ctx context.Context, store Store, siteID string) (int, error) {
	if !p.Enabled() {
		return 0, nil
	}

	refs, err := store.ListRefs(ctx, siteID)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeStorage, "failed to list analysis results").
			WithContext("site", siteID)
	}

	keep, drop := p.Select(refs)
	if len(drop) == 0 {
		return 0, nil
	}

	keepIDs := make([]string, len(keep))
	for i, ref := range keep {
		keepIDs[i] = ref.ID
	}

	deleted, err := store.DeleteExcept(ctx, siteID, keepIDs)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeStorage, "failed to delete old analysis results").
			WithContext("site", siteID)
	}
	return deleted, nil
}
