// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package deadline

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pdiddy/paper-radar/pkg/types"
)

// Store is the persistence surface the tracker needs.
type Store interface {
	UpsertDeadline(ctx context.Context, d types.ConferenceDeadline) error
	Deadlines(ctx context.Context) ([]types.ConferenceDeadline, error)
	CloseWindow(ctx context.Context, conferenceID string, deadline time.Time) error
}

// Tracker reconciles the deadline feed against the store and reports
// which conferences are due for collection.
type Tracker struct {
	store   Store
	lagDays int
}

func NewTracker(store Store, lagDays int) *Tracker {
	return &Tracker{store: store, lagDays: lagDays}
}

// Refresh upserts a deadline occurrence for every monitored conference
// that appears in the feed. A rescheduled deadline is a new occurrence;
// the old one keeps its window state. Feed entries for conferences
// outside the monitored set are ignored, as are entries whose deadline
// cannot be parsed.
func (t *Tracker) Refresh(ctx context.Context, confs []types.ConferenceConfig, entries []FeedEntry, w io.Writer) error {
	for _, conf := range confs {
		matched := false
		for _, entry := range entries {
			if !strings.EqualFold(entry.Conference, conf.Name) || entry.Year != conf.Year {
				continue
			}
			due, err := entry.DeadlineTime()
			if err != nil {
				fmt.Fprintf(w, "warning: %v\n", err)
				continue
			}
			d := types.ConferenceDeadline{
				ConferenceID: conf.Name,
				Year:         conf.Year,
				Deadline:     due,
				LagDays:      t.lagDays,
			}
			if err := t.store.UpsertDeadline(ctx, d); err != nil {
				return fmt.Errorf("upserting deadline for %s %d: %w", conf.Name, conf.Year, err)
			}
			matched = true
		}
		if !matched {
			fmt.Fprintf(w, "warning: no feed entry for %s %d\n", conf.Name, conf.Year)
		}
	}
	return nil
}

// Due returns the deadline occurrences whose collection window is open
// at now: the deadline plus the lag has passed and the window has not
// been closed by a successful run.
func (t *Tracker) Due(ctx context.Context, now time.Time) ([]types.ConferenceDeadline, error) {
	all, err := t.store.Deadlines(ctx)
	if err != nil {
		return nil, err
	}
	var due []types.ConferenceDeadline
	for _, d := range all {
		if d.DueAt(now) {
			due = append(due, d)
		}
	}
	return due, nil
}

// CloseWindow marks an occurrence as collected so it never triggers
// again. Safe to call more than once.
func (t *Tracker) CloseWindow(ctx context.Context, d types.ConferenceDeadline) error {
	return t.store.CloseWindow(ctx, d.ConferenceID, d.Deadline)
}

// Window returns the collection window for an occurrence: from the
// deadline to the deadline plus the lag. Sources that support date
// filtering restrict their queries to it.
func (t *Tracker) Window(d types.ConferenceDeadline) types.CollectionWindow {
	return types.CollectionWindow{
		From: d.Deadline,
		To:   d.Deadline.AddDate(0, 0, d.LagDays),
	}
}
