// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package merge

import (
	"regexp"
	"strings"

	"github.com/pdiddy/paper-radar/pkg/types"
)

// Matcher decides which canonical paper a candidate record belongs to.
// Keys returns an identity key derived from the record's external id
// (empty when the record carries none) and a fuzzy key derived from the
// normalized title and first-author surname.
type Matcher interface {
	Keys(rec types.CandidateRecord) (idKey, titleKey string)
}

// KeyMatcher is the default Matcher. Records with an external id (arXiv
// id, DOI) match on it exactly; everything else falls back to the
// normalized-title + first-author-surname key.
type KeyMatcher struct{}

var titleJunkRe = regexp.MustCompile(`[^a-z0-9 ]+`)

// NormalizeTitle lowercases, strips punctuation, and collapses runs of
// whitespace so that formatting differences between sources do not
// split a paper in two.
func NormalizeTitle(title string) string {
	t := strings.ToLower(title)
	t = titleJunkRe.ReplaceAllString(t, " ")
	return strings.Join(strings.Fields(t), " ")
}

// FirstAuthorSurname returns the last space-separated token of the
// first author name, lowercased. Empty when the record has no authors.
func FirstAuthorSurname(authors []string) string {
	if len(authors) == 0 {
		return ""
	}
	fields := strings.Fields(authors[0])
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[len(fields)-1])
}

func (KeyMatcher) Keys(rec types.CandidateRecord) (string, string) {
	idKey := ""
	if rec.ExternalID != "" {
		idKey = "id:" + rec.ExternalID
	}
	titleKey := "title:" + NormalizeTitle(rec.Title) + "|" + FirstAuthorSurname(rec.Authors)
	return idKey, titleKey
}
