package search

import (
	"context"
	"log"

	"github.com/mr-abdellah/online-cupboard/internal/store"
)

// ViewFilter decides whether a user may see a document that came back from
// the index. The index itself knows nothing about grants.
type ViewFilter func(ctx context.Context, userID, documentID string) (bool, error)

// Service is the facade that tries Meilisearch first and falls back to a
// Postgres match. Index updates are fire-and-forget.
type Service struct {
	meili  *Meili
	pg     *store.PostgresStore
	filter ViewFilter
}

// NewService builds the facade. meili may be nil when Meilisearch is not
// configured.
func NewService(meili *Meili, pg *store.PostgresStore, filter ViewFilter) *Service {
	return &Service{meili: meili, pg: pg, filter: filter}
}

// Search returns documents matching text that the user is allowed to view.
// mimes, when non-empty, restricts hits to those MIME types.
func (s *Service) Search(ctx context.Context, userID, text string, mimes []string, limit int) (Response, error) {
	if limit <= 0 {
		limit = 20
	}

	if s.meili != nil && s.meili.Healthy() {
		hits, err := s.meili.Search(text, mimes, limit)
		if err == nil {
			results, err := s.visible(ctx, userID, hits)
			if err != nil {
				return Response{}, err
			}
			return Response{Results: results, Query: text}, nil
		}
		log.Printf("search: meilisearch error, falling back to postgres: %v", err)
	}

	docs, err := s.pg.SearchDocuments(ctx, userID, text, mimes, limit)
	if err != nil {
		return Response{}, err
	}
	results := make([]Result, 0, len(docs))
	for _, d := range docs {
		results = append(results, Result{
			ID:          d.ID,
			Title:       d.Title,
			Description: d.Description,
			Tags:        d.Tags,
			BinderID:    d.BinderID,
			MimeType:    d.MimeType,
		})
	}
	return Response{Results: results, Query: text}, nil
}

func (s *Service) visible(ctx context.Context, userID string, hits []Result) ([]Result, error) {
	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		ok, err := s.filter(ctx, userID, hit.ID)
		if err != nil {
			return nil, err
		}
		if ok {
			results = append(results, hit)
		}
	}
	return results, nil
}

// IndexDocument pushes a document into the index (fire-and-forget).
func (s *Service) IndexDocument(doc store.Document) {
	if s.meili == nil || !s.meili.Healthy() || !doc.Searchable {
		return
	}
	rec := Record{
		ID:          doc.ID,
		Title:       doc.Title,
		Description: doc.Description,
		Tags:        doc.Tags,
		BinderID:    doc.BinderID,
		MimeType:    doc.MimeType,
	}
	go func() {
		if err := s.meili.IndexDocument(rec); err != nil {
			log.Printf("search: %v", err)
		}
	}()
}

// DeleteDocument removes a document from the index (fire-and-forget).
func (s *Service) DeleteDocument(id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteDocument(id); err != nil {
			log.Printf("search: %v", err)
		}
	}()
}
