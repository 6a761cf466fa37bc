package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/qlphonglab/labauth/internal/models"
)

// UserSearch mirrors public-safe user records into an Elasticsearch index and
// serves the admin listing's substring search from it. The relational store
// stays canonical; the mirror is an accelerator.
type UserSearch struct {
	ES    *elasticsearch.Client
	Index string
}

func (s *UserSearch) IndexUser(ctx context.Context, u models.User) error {
	// models.User marshals without the password hash.
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("index user: %w", err)
	}

	res, err := s.ES.Index(
		s.Index,
		bytes.NewReader(data),
		s.ES.Index.WithDocumentID(fmt.Sprint(u.ID)),
		s.ES.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("index user: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("index user: %s: %s", res.Status(), body)
	}
	return nil
}

// maxResults caps one search response. The listing is unpaginated, so the
// request must ask for the whole result set; without an explicit size
// Elasticsearch returns only its default of 10 hits. 10000 is the index
// default for max_result_window.
const maxResults = 10000

// Search matches users whose username or full name contains the term,
// case-insensitive, either side sufficient.
func (s *UserSearch) Search(ctx context.Context, term string) ([]models.User, error) {
	pattern := "*" + term + "*"
	body := map[string]any{
		"size": maxResults,
		"query": map[string]any{
			"bool": map[string]any{
				"should": []any{
					map[string]any{
						"wildcard": map[string]any{
							"username.keyword": map[string]any{
								"value":            pattern,
								"case_insensitive": true,
							},
						},
					},
					map[string]any{
						"wildcard": map[string]any{
							"full_name.keyword": map[string]any{
								"value":            pattern,
								"case_insensitive": true,
							},
						},
					},
				},
				"minimum_should_match": 1,
			},
		},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("user search: %w", err)
	}

	res, err := s.ES.Search(
		s.ES.Search.WithContext(ctx),
		s.ES.Search.WithIndex(s.Index),
		s.ES.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("user search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		raw, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("user search: %s: %s", res.Status(), raw)
	}

	var r struct {
		Hits struct {
			Hits []struct {
				Source models.User `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("user search: %w", err)
	}

	users := make([]models.User, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		users[i] = hit.Source
	}
	return users, nil
}
