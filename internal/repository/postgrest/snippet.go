// Package postgrest is the hosted SnippetStore: a PostgREST table (as
// exposed by Supabase and similar backends) reached over its REST API.
//
// Rows are always filtered by user_id on top of whatever row-level
// security the backend enforces, and every mutation asks for the affected
// rows back so a missing or foreign row is reported as not found.
package postgrest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/code-studio/internal/apiclient"
	"github.com/sakif/code-studio/internal/apperror"
	"github.com/sakif/code-studio/internal/model"
	"github.com/sakif/code-studio/internal/repository"
)

var _ repository.SnippetRepository = (*Store)(nil)

// Store talks to one snippet table.
type Store struct {
	api  *apiclient.Client
	path string
}

// New returns a store for table at baseURL (the PostgREST root, e.g.
// https://x.supabase.co/rest/v1). key is sent both as the apikey header
// and as a bearer token.
func New(baseURL, key, table string, timeout time.Duration) *Store {
	opts := []apiclient.Option{}
	if key != "" {
		opts = append(opts,
			apiclient.WithHeader("apikey", key),
			apiclient.WithHeader("Authorization", "Bearer "+key),
		)
	}
	return &Store{
		api:  apiclient.New(baseURL, timeout, opts...),
		path: "/" + strings.Trim(table, "/"),
	}
}

// row is the table's wire shape. It mirrors model.Snippet field for field
// so the two convert directly.
type row struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Code        string    `json:"code"`
	Language    string    `json:"language"`
	UserID      string    `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toRow(s *model.Snippet) row {
	return row(*s)
}

func (r row) snippet() model.Snippet {
	return model.Snippet(r)
}

var returnRepresentation = http.Header{"Prefer": {"return=representation"}}

func (s *Store) Create(ctx context.Context, snippet *model.Snippet) error {
	snippet.ID = xid.New().String()
	now := time.Now().UTC()
	snippet.CreatedAt = now
	snippet.UpdatedAt = now

	var rows []row
	err := s.api.Do(ctx, apiclient.Request{
		Method: http.MethodPost,
		Path:   s.path,
		Header: returnRepresentation,
		Body:   toRow(snippet),
		Out:    &rows,
	})
	if err != nil {
		return fmt.Errorf("postgrest: creating snippet: %w", err)
	}
	if len(rows) > 0 {
		*snippet = rows[0].snippet()
	}
	return nil
}

func (s *Store) GetByID(ctx context.Context, id, userID string) (*model.Snippet, error) {
	var rows []row
	if err := s.api.Get(ctx, s.path, ownerFilter(id, userID), &rows); err != nil {
		return nil, fmt.Errorf("postgrest: getting snippet %s: %w", id, err)
	}
	if len(rows) == 0 {
		return nil, apperror.NotFound("snippet", id)
	}
	sn := rows[0].snippet()
	return &sn, nil
}

// List maps the query onto PostgREST filters: user_id and language as
// eq, the search term as an ilike over title, description and code, and
// the sort as order=<field>.<dir>,id.<dir>.
func (s *Store) List(ctx context.Context, q model.SnippetQuery) ([]model.Snippet, error) {
	var rows []row
	if err := s.api.Get(ctx, s.path, listFilter(q), &rows); err != nil {
		return nil, fmt.Errorf("postgrest: listing snippets: %w", err)
	}

	snippets := make([]model.Snippet, 0, len(rows))
	for _, r := range rows {
		// The owner filter is re-checked locally.
		if r.UserID != q.UserID {
			continue
		}
		snippets = append(snippets, r.snippet())
	}
	return snippets, nil
}

func (s *Store) Update(ctx context.Context, snippet *model.Snippet) error {
	snippet.UpdatedAt = time.Now().UTC()

	body := map[string]any{
		"title":       snippet.Title,
		"description": snippet.Description,
		"code":        snippet.Code,
		"language":    snippet.Language,
		"updated_at":  snippet.UpdatedAt,
	}
	var rows []row
	err := s.api.Do(ctx, apiclient.Request{
		Method: http.MethodPatch,
		Path:   s.path,
		Query:  ownerFilter(snippet.ID, snippet.UserID),
		Header: returnRepresentation,
		Body:   body,
		Out:    &rows,
	})
	if err != nil {
		return fmt.Errorf("postgrest: updating snippet %s: %w", snippet.ID, err)
	}
	if len(rows) == 0 {
		return apperror.NotFound("snippet", snippet.ID)
	}
	*snippet = rows[0].snippet()
	return nil
}

func (s *Store) Delete(ctx context.Context, id, userID string) error {
	var rows []row
	err := s.api.Do(ctx, apiclient.Request{
		Method: http.MethodDelete,
		Path:   s.path,
		Query:  ownerFilter(id, userID),
		Header: returnRepresentation,
		Out:    &rows,
	})
	if err != nil {
		return fmt.Errorf("postgrest: deleting snippet %s: %w", id, err)
	}
	if len(rows) == 0 {
		return apperror.NotFound("snippet", id)
	}
	return nil
}

func ownerFilter(id, userID string) url.Values {
	return url.Values{
		"select":  {"*"},
		"id":      {"eq." + id},
		"user_id": {"eq." + userID},
	}
}

func listFilter(q model.SnippetQuery) url.Values {
	q = q.Normalize()
	v := url.Values{
		"select":  {"*"},
		"user_id": {"eq." + q.UserID},
	}
	if q.Language != "" {
		v.Set("language", "eq."+q.Language)
	}
	if q.Search != "" {
		term := quote("*" + escapeLike(q.Search) + "*")
		v.Set("or", fmt.Sprintf("(title.ilike.%s,description.ilike.%s,code.ilike.%s)", term, term, term))
	}
	v.Set("order", fmt.Sprintf("%s.%s,id.%s", q.SortBy, q.Order, q.Order))
	return v
}

// escapeLike makes LIKE wildcards in a search term literal. PostgREST turns
// every "*" into "%" before Postgres sees it, so a literal "*" still acts
// as a wildcard; SnippetService drops what that over-matches.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// quote wraps a filter value in double quotes so commas and parentheses
// in the search term are not read as PostgREST syntax.
func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}
