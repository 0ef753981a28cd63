package localstore

import (
	"context"
)

// Report counts the changes of one cleanup pass.
type Report struct {
	Updated int
	Deleted int
}

func (r Report) Changed() bool {
	return r.Updated > 0 || r.Deleted > 0
}

// Prefer reports whether a should be kept over b when both share a health id.
// Synced beats unsynced, then a parseable timestamp beats a missing one, then
// the later timestamp wins. Remaining ties go to the smaller local id so the
// order is total.
func Prefer(a, b Record) bool {
	if a.Synced != b.Synced {
		return a.Synced
	}

	ta, okA := parseTime(a.Timestamp)
	tb, okB := parseTime(b.Timestamp)
	if okA != okB {
		return okA
	}
	if okA && !ta.Equal(tb) {
		return ta.After(tb)
	}

	return a.LocalID < b.LocalID
}

// Cleanup collapses records sharing a health id and repairs bad timestamps.
// Running it again right after changes nothing.
func (s *Store) Cleanup(ctx context.Context) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cleanupLocked(ctx)
}

func (s *Store) cleanupLocked(ctx context.Context) (Report, error) {
	var report Report

	all, err := s.backend.LoadAll(ctx)
	if err != nil {
		return report, err
	}

	groups := make(map[string][]Record)
	var order []string
	for _, rec := range all {
		if rec.HealthID == "" {
			continue
		}
		if _, seen := groups[rec.HealthID]; !seen {
			order = append(order, rec.HealthID)
		}
		groups[rec.HealthID] = append(groups[rec.HealthID], rec)
	}

	for _, healthID := range order {
		group := groups[healthID]

		keep := group[0]
		for _, rec := range group[1:] {
			if Prefer(rec, keep) {
				keep = rec
			}
		}

		for _, rec := range group {
			if rec.LocalID == keep.LocalID {
				continue
			}
			if err := ctx.Err(); err != nil {
				return report, err
			}
			if err := s.backend.Remove(ctx, rec.LocalID); err != nil {
				return report, err
			}
			report.Deleted++
		}

		if repaired, ok := s.repairTimestamp(keep); ok {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			if err := s.backend.Save(ctx, repaired); err != nil {
				return report, err
			}
			report.Updated++
		}
	}

	if report.Changed() {
		s.cache.invalidate()
		s.log.Info("cleanup finished", "updated", report.Updated, "deleted", report.Deleted)
	}

	return report, nil
}

// repairTimestamp replaces a missing or unparseable timestamp with createdAt,
// else with the current time.
func (s *Store) repairTimestamp(rec Record) (Record, bool) {
	if _, ok := parseTime(rec.Timestamp); ok {
		return rec, false
	}

	if _, ok := parseTime(rec.CreatedAt); ok {
		rec.Timestamp = rec.CreatedAt
	} else {
		rec.Timestamp = formatTime(s.now())
	}
	return rec, true
}
