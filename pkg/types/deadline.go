// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ConferenceDeadline is one tracked deadline occurrence for a conference
// instance. A conference triggers collection exactly once per occurrence:
// WindowClosed flips after a successful collection pass and the row is
// keyed by (ConferenceID, Deadline), so a rescheduled deadline is a new
// occurrence.
type ConferenceDeadline struct {
	// ConferenceID is the conference acronym (e.g. "NeurIPS").
	ConferenceID string `json:"conference_id" yaml:"conference_id"`

	// Year is the conference year, derived from the deadline when the
	// feed does not state it.
	Year int `json:"year" yaml:"year"`

	// Deadline is the submission deadline timestamp (UTC).
	Deadline time.Time `json:"deadline" yaml:"deadline"`

	// LagDays is how long after the deadline collection waits before the
	// occurrence becomes due.
	LagDays int `json:"lag_days" yaml:"lag_days"`

	// WindowClosed reports whether collection has already run.
	WindowClosed bool `json:"window_closed" yaml:"window_closed"`
}

// DueAt reports whether this occurrence is due at the given time:
// the deadline plus lag has passed and the window is still open.
func (d ConferenceDeadline) DueAt(now time.Time) bool {
	return !d.WindowClosed && !now.Before(d.Deadline.AddDate(0, 0, d.LagDays))
}

// CollectionWindow is the interval during which sources are polled for a
// triggered conference.
type CollectionWindow struct {
	// From is the start of the window, normally the submission deadline.
	From time.Time `json:"from" yaml:"from"`

	// To is the end of the window, normally the deadline plus the
	// collection lag.
	To time.Time `json:"to" yaml:"to"`
}
