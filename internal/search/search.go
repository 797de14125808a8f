// Package search indexes people for full-text lookup, with Meilisearch as
// the primary engine and a Postgres ILIKE scan as fallback.
package search

import (
	"context"
	"log"
)

// PersonRecord is the data indexed for one person.
type PersonRecord struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Title  string `json:"title"`
}

// Query describes a search request. Results are always scoped to UserID.
type Query struct {
	UserID string
	Text   string
	Limit  int
}

// Result is a single search hit.
type Result struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Title string `json:"title,omitempty"`
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a person search.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Result, int, error)
	Healthy() bool
}

// Service tries Meilisearch first and falls back to Postgres.
type Service struct {
	meili *Meili
	pg    *PgSearch
}

// NewService creates the search facade. meili may be nil when Meilisearch
// is not configured.
func NewService(meili *Meili, pg *PgSearch) *Service {
	return &Service{meili: meili, pg: pg}
}

func (s *Service) Search(ctx context.Context, q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(ctx, q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to postgres: %v", err)
	}

	results, total, err := s.pg.Search(ctx, q)
	if err != nil {
		log.Printf("search: postgres fallback error: %v", err)
		return Response{Results: []Result{}, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexPerson pushes a person into the index, fire-and-forget.
func (s *Service) IndexPerson(record PersonRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexPerson(record); err != nil {
			log.Printf("search: index person %s: %v", record.ID, err)
		}
	}()
}

// IndexPeople bulk-indexes a batch of people, fire-and-forget. Used after
// imports, where per-person pushes would be wasteful.
func (s *Service) IndexPeople(records []PersonRecord) {
	if s.meili == nil || !s.meili.Healthy() || len(records) == 0 {
		return
	}
	go func() {
		if err := s.meili.IndexPeople(records); err != nil {
			log.Printf("search: index %d people: %v", len(records), err)
		}
	}()
}

// DeletePerson removes a person from the index, fire-and-forget.
func (s *Service) DeletePerson(id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeletePerson(id); err != nil {
			log.Printf("search: delete person %s: %v", id, err)
		}
	}()
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
