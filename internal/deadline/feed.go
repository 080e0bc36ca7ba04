// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package deadline tracks conference submission deadlines and decides
// when a collection window opens. Deadlines come from a community feed
// (a YAML file or URL); each (conference, deadline) occurrence triggers
// collection exactly once.
package deadline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-radar/internal/httputil"
)

// FeedEntry is one row of the deadline feed.
type FeedEntry struct {
	Conference string `yaml:"conference"`
	Year       int    `yaml:"year"`
	Deadline   string `yaml:"deadline"`
	Timezone   string `yaml:"timezone,omitempty"`
}

var deadlineLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC3339,
	"2006-01-02",
}

// DeadlineTime parses the entry's deadline in its timezone. Feeds are
// inconsistent about format, so several layouts are tried.
func (e FeedEntry) DeadlineTime() (time.Time, error) {
	loc, err := parseTimezone(e.Timezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("entry %s %d: %w", e.Conference, e.Year, err)
	}
	for _, layout := range deadlineLayouts {
		if t, err := time.ParseInLocation(layout, e.Deadline, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("entry %s %d: unparseable deadline %q", e.Conference, e.Year, e.Deadline)
}

// parseTimezone understands the conventions deadline feeds use: an
// empty value or "UTC" means UTC, "AoE" is anywhere-on-earth (UTC-12),
// and "UTC-8" / "UTC+5:30" style offsets are fixed zones.
func parseTimezone(tz string) (*time.Location, error) {
	switch {
	case tz == "" || strings.EqualFold(tz, "UTC"):
		return time.UTC, nil
	case strings.EqualFold(tz, "AoE"):
		return time.FixedZone("AoE", -12*3600), nil
	}
	rest, ok := cutPrefixFold(tz, "UTC")
	if !ok {
		return nil, fmt.Errorf("unknown timezone %q", tz)
	}
	sign := 1
	switch {
	case strings.HasPrefix(rest, "-"):
		sign = -1
		rest = rest[1:]
	case strings.HasPrefix(rest, "+"):
		rest = rest[1:]
	default:
		return nil, fmt.Errorf("unknown timezone %q", tz)
	}
	hours := rest
	minutes := "0"
	if h, m, found := strings.Cut(rest, ":"); found {
		hours, minutes = h, m
	}
	hh, err := strconv.Atoi(hours)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q", tz)
	}
	mm, err := strconv.Atoi(minutes)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q", tz)
	}
	offset := sign * (hh*3600 + mm*60)
	return time.FixedZone(tz, offset), nil
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return s[len(prefix):], true
	}
	return "", false
}

// LoadFeed reads a deadline feed from a local file.
func LoadFeed(path string) ([]FeedEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading deadline feed: %w", err)
	}
	var entries []FeedEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing deadline feed %s: %w", path, err)
	}
	return entries, nil
}

// FetchFeed downloads a deadline feed over HTTP.
func FetchFeed(ctx context.Context, client *http.Client, url string) ([]FeedEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httputil.DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("fetching deadline feed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching deadline feed: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var entries []FeedEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing deadline feed %s: %w", url, err)
	}
	return entries, nil
}
