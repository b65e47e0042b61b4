// Package search keeps the products index in Elasticsearch and runs
// full-text queries against it.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/elastic/go-elasticsearch/v9/esapi"
	"github.com/google/uuid"

	"github.com/Skotchmaster/sweet_shop/pkg/config"
	"github.com/Skotchmaster/sweet_shop/services/catalog/internal/models"
)

const MaxSize = 100

var ErrDisabled = errors.New("search: elasticsearch not configured")

type Document struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Brand        string `json:"brand"`
	CategoryID   string `json:"category_id,omitempty"`
	IsNew        bool   `json:"is_new"`
	IsDiscounted bool   `json:"is_discounted"`
}

func DocumentFrom(p models.Product) Document {
	d := Document{
		ID:           p.ID.String(),
		Title:        p.Title,
		Description:  p.Description,
		Brand:        p.Brand,
		IsNew:        p.IsNew,
		IsDiscounted: p.IsDiscounted,
	}
	if p.CategoryID != nil {
		d.CategoryID = p.CategoryID.String()
	}
	return d
}

func NewClient(cfg config.Elastic) (*elasticsearch.Client, error) {
	if cfg.URL == "" {
		return nil, ErrDisabled
	}
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.User,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}
	return client, nil
}

type Index struct {
	ES   *elasticsearch.Client
	Name string
}

const mapping = `{
  "mappings": {
    "properties": {
      "id":            {"type": "keyword"},
      "title":         {"type": "text"},
      "description":   {"type": "text"},
      "brand":         {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "category_id":   {"type": "keyword"},
      "is_new":        {"type": "boolean"},
      "is_discounted": {"type": "boolean"}
    }
  }
}`

// Ensure creates the index with its mapping when it does not exist yet.
func (ix *Index) Ensure(ctx context.Context) error {
	res, err := ix.ES.Indices.Exists([]string{ix.Name}, ix.ES.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("index exists: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = ix.ES.Indices.Create(ix.Name,
		ix.ES.Indices.Create.WithContext(ctx),
		ix.ES.Indices.Create.WithBody(strings.NewReader(mapping)),
	)
	if err != nil {
		return fmt.Errorf("index create: %w", err)
	}
	return responseError("index create", res)
}

func (ix *Index) Put(ctx context.Context, p models.Product) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(DocumentFrom(p)); err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	res, err := ix.ES.Index(ix.Name, &buf,
		ix.ES.Index.WithContext(ctx),
		ix.ES.Index.WithDocumentID(p.ID.String()),
	)
	if err != nil {
		return fmt.Errorf("index product: %w", err)
	}
	return responseError("index product", res)
}

// Delete removes a product document; a missing document is not an error.
func (ix *Index) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := ix.ES.Delete(ix.Name, id.String(), ix.ES.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if res.StatusCode == http.StatusNotFound {
		res.Body.Close()
		return nil
	}
	return responseError("delete product", res)
}

// Search returns the total hit count and the ids of one page of hits in
// relevance order.
func (ix *Index) Search(ctx context.Context, query string, from, size int) (int64, []uuid.UUID, error) {
	if size <= 0 || size > MaxSize {
		size = MaxSize
	}
	if from < 0 {
		from = 0
	}

	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"title^2", "brand", "description"},
				"fuzziness": "AUTO",
			},
		},
		"_source": []string{"id"},
		"from":    from,
		"size":    size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("encode query: %w", err)
	}

	res, err := ix.ES.Search(
		ix.ES.Search.WithContext(ctx),
		ix.ES.Search.WithIndex(ix.Name),
		ix.ES.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, fmt.Errorf("search: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, fmt.Errorf("decode search: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(r.Hits.Hits))
	for _, h := range r.Hits.Hits {
		id, err := uuid.Parse(h.ID)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return r.Hits.Total.Value, ids, nil
}

func responseError(op string, res *esapi.Response) error {
	defer res.Body.Close()
	if !res.IsError() {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
	return fmt.Errorf("%s: %s: %s", op, res.Status(), bytes.TrimSpace(msg))
}
