// Package model defines the data structures shared across the studio.
package model

import (
	"cmp"
	"slices"
	"strings"
	"time"
)

// Snippet is a saved code record owned by exactly one user.
//
// The JSON shape follows the persistence API's column names (user_id,
// created_at, updated_at) so records round-trip between the local store,
// the PostgREST store and the HTTP surface unchanged.
type Snippet struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Code        string    `json:"code"`
	Language    string    `json:"language"`
	UserID      string    `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Sort fields accepted by snippet listings.
const (
	SortUpdatedAt = "updated_at"
	SortCreatedAt = "created_at"
	SortTitle     = "title"
	SortLanguage  = "language"
)

// Sort orders.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// LanguageAll disables the language filter.
const LanguageAll = "all"

// SnippetQuery describes one listing of a user's snippets.
// The zero value of every field except UserID means "use the default".
type SnippetQuery struct {
	UserID   string
	Search   string
	Language string
	SortBy   string
	Order    string
}

// Normalize fills defaults and drops unknown sort values.
func (q SnippetQuery) Normalize() SnippetQuery {
	q.Search = strings.TrimSpace(q.Search)
	q.Language = strings.ToLower(strings.TrimSpace(q.Language))
	if q.Language == LanguageAll {
		q.Language = ""
	}
	switch q.SortBy {
	case SortUpdatedAt, SortCreatedAt, SortTitle, SortLanguage:
	default:
		q.SortBy = SortUpdatedAt
	}
	if q.Order != OrderAsc {
		q.Order = OrderDesc
	}
	return q
}

// Matches reports whether s belongs in the listing described by q.
func (q SnippetQuery) Matches(s Snippet) bool {
	if s.UserID != q.UserID {
		return false
	}
	if q.Language != "" && q.Language != LanguageAll && !strings.EqualFold(s.Language, q.Language) {
		return false
	}
	return MatchesSearch(s, q.Search)
}

// MatchesSearch is a case-insensitive substring match over title,
// description and code. An empty term matches everything.
func MatchesSearch(s Snippet, term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s.Title), term) ||
		strings.Contains(strings.ToLower(s.Description), term) ||
		strings.Contains(strings.ToLower(s.Code), term)
}

// SortSnippets orders items in place by field and order. Ties are broken
// by ID so the ordering is total.
func SortSnippets(items []Snippet, field, order string) {
	q := SnippetQuery{SortBy: field, Order: order}.Normalize()
	slices.SortStableFunc(items, func(a, b Snippet) int {
		c := compareField(a, b, q.SortBy)
		if c == 0 {
			c = cmp.Compare(a.ID, b.ID)
		}
		if q.Order == OrderDesc {
			return -c
		}
		return c
	})
}

func compareField(a, b Snippet, field string) int {
	switch field {
	case SortCreatedAt:
		return a.CreatedAt.Compare(b.CreatedAt)
	case SortTitle:
		return cmp.Compare(a.Title, b.Title)
	case SortLanguage:
		return cmp.Compare(a.Language, b.Language)
	default:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	}
}
