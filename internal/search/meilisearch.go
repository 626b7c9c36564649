// Package search maintains the Meilisearch index of approved business
// listings. The index is an accelerator, not a store: every hit is
// re-fetched from the database, and when the search backend is down the
// listing endpoint falls back to SQL filtering.
package search

import (
	"strconv"

	"github.com/Talalkassab/manfaa-api/internal/model"
	"github.com/meilisearch/meilisearch-go"
)

type SearchClient struct {
	client *meilisearch.Client
	index  string
}

func NewSearchClient(host, apiKey, index string) *SearchClient {
	client := meilisearch.NewClient(meilisearch.ClientConfig{
		Host:   host,
		APIKey: apiKey,
	})

	return &SearchClient{
		client: client,
		index:  index,
	}
}

// InitIndex initializes the Meilisearch index
func (s *SearchClient) InitIndex() error {
	_, err := s.client.CreateIndex(&meilisearch.IndexConfig{
		Uid:        s.index,
		PrimaryKey: "id",
	})
	// Ignore error if index already exists
	if err != nil && err.Error() != "index already exists" {
		return err
	}

	_, err = s.client.Index(s.index).UpdateSearchableAttributes(&[]string{
		"title",
		"description",
		"category",
		"location",
	})
	if err != nil {
		return err
	}

	_, err = s.client.Index(s.index).UpdateFilterableAttributes(&[]string{
		"id",
		"category",
		"location",
		"asking_price",
		"status",
	})
	if err != nil {
		return err
	}

	_, err = s.client.Index(s.index).UpdateSortableAttributes(&[]string{
		"asking_price",
		"created_at",
	})
	return err
}

// IndexBusiness indexes a single business listing
func (s *SearchClient) IndexBusiness(biz *model.Business) error {
	_, err := s.client.Index(s.index).AddDocuments([]model.Business{*biz})
	return err
}

// RemoveBusiness drops a listing from the index
func (s *SearchClient) RemoveBusiness(id uint) error {
	_, err := s.client.Index(s.index).DeleteDocument(formatID(id))
	return err
}

// SearchIDs runs a full-text query and returns matching business ids in
// relevance order. Callers re-fetch the rows from the database.
func (s *SearchClient) SearchIDs(query string, limit, offset int64) ([]uint, int64, error) {
	if limit == 0 {
		limit = 20
	}

	res, err := s.client.Index(s.index).Search(query, &meilisearch.SearchRequest{
		Limit:                limit,
		Offset:               offset,
		AttributesToRetrieve: []string{"id"},
	})
	if err != nil {
		return nil, 0, err
	}

	ids := make([]uint, 0, len(res.Hits))
	for _, hit := range res.Hits {
		hitMap, ok := hit.(map[string]interface{})
		if !ok {
			continue
		}
		if id, ok := hitMap["id"].(float64); ok {
			ids = append(ids, uint(id))
		}
	}
	return ids, res.EstimatedTotalHits, nil
}

func formatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
