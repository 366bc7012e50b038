package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMatchesSearch(t *testing.T) {
	s := Snippet{Title: "Binary Search", Description: "classic", Code: "func find() {}"}

	tests := []struct {
		term string
		want bool
	}{
		{"", true},
		{"binary", true},
		{"CLASSIC", true},
		{"find()", true},
		{"  search ", true},
		{"quicksort", false},
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchesSearch(s, tt.term))
		})
	}
}

func TestSnippetQueryNormalize(t *testing.T) {
	q := SnippetQuery{SortBy: "drop table", Order: "sideways", Language: "ALL"}.Normalize()

	assert.Equal(t, SortUpdatedAt, q.SortBy)
	assert.Equal(t, OrderDesc, q.Order)
	assert.Empty(t, q.Language)
}

func TestSnippetQueryMatchesScopesByUser(t *testing.T) {
	q := SnippetQuery{UserID: "u1", Language: "python"}.Normalize()

	assert.True(t, q.Matches(Snippet{UserID: "u1", Language: "python"}))
	assert.False(t, q.Matches(Snippet{UserID: "u2", Language: "python"}))
	assert.False(t, q.Matches(Snippet{UserID: "u1", Language: "java"}))
}

func TestSortSnippets(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	items := []Snippet{
		{ID: "a", Title: "beta", UpdatedAt: base.Add(time.Hour)},
		{ID: "b", Title: "alpha", UpdatedAt: base.Add(3 * time.Hour)},
		{ID: "c", Title: "gamma", UpdatedAt: base.Add(2 * time.Hour)},
	}

	SortSnippets(items, SortUpdatedAt, OrderDesc)
	assert.Equal(t, []string{"b", "c", "a"}, ids(items))

	SortSnippets(items, SortTitle, OrderAsc)
	assert.Equal(t, []string{"b", "a", "c"}, ids(items))
}

func TestSortSnippetsTieBreaksByID(t *testing.T) {
	items := []Snippet{{ID: "z", Language: "go"}, {ID: "m", Language: "go"}}

	SortSnippets(items, SortLanguage, OrderAsc)

	assert.Equal(t, []string{"m", "z"}, ids(items))
}

func TestDisplayName(t *testing.T) {
	var nobody *User
	assert.Equal(t, "User", nobody.DisplayName())
	assert.Equal(t, "octocat", (&User{Login: "octocat"}).DisplayName())
	assert.Equal(t, "Mona", (&User{Login: "octocat", Name: "Mona"}).DisplayName())
}

func ids(items []Snippet) []string {
	out := make([]string, len(items))
	for i, s := range items {
		out[i] = s.ID
	}
	return out
}
