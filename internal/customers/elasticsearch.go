// internal/customers/elasticsearch.go
package customers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v8"

	"loyalty-admin/internal/common/errors"
	"loyalty-admin/internal/common/logger"
	"loyalty-admin/internal/models"
)

const defaultPageSize = 1000

// ElasticsearchSource pages through a customer search index.
type ElasticsearchSource struct {
	client   *elasticsearch.Client
	index    string
	pageSize int
	logger   logger.Logger
}

func NewElasticsearchSource(client *elasticsearch.Client, index string, pageSize int, log logger.Logger) *ElasticsearchSource {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &ElasticsearchSource{
		client:   client,
		index:    index,
		pageSize: pageSize,
		logger:   logger.Component(log, "elasticsearch-customers"),
	}
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string `json:"_id"`
			Source Record `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// FetchCustomers reads every document of the index. A document without an
// id field in its source takes the document _id.
func (s *ElasticsearchSource) FetchCustomers(ctx context.Context) ([]models.Customer, error) {
	var out []models.Customer
	for from := 0; ; from += s.pageSize {
		page, err := s.searchPage(ctx, from)
		if err != nil {
			return nil, errors.NewCustomerFetchError("elasticsearch", err)
		}
		for _, hit := range page.Hits.Hits {
			rec := hit.Source
			if rec.MongoID == "" && rec.ID == "" {
				rec.ID = hit.ID
			}
			out = append(out, rec.Normalize())
		}
		if len(page.Hits.Hits) < s.pageSize {
			break
		}
	}

	s.logger.Debug("Loaded customers", map[string]interface{}{"count": len(out), "index": s.index})
	return out, nil
}

func (s *ElasticsearchSource) searchPage(ctx context.Context, from int) (*searchResponse, error) {
	body, _ := json.Marshal(map[string]interface{}{
		"query": map[string]interface{}{"match_all": map[string]interface{}{}},
		"sort":  []interface{}{"_doc"},
	})

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(bytes.NewReader(body)),
		s.client.Search.WithFrom(from),
		s.client.Search.WithSize(s.pageSize),
	)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", s.index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, fmt.Errorf("search %s: %s: %s", s.index, res.Status(), bytes.TrimSpace(msg))
	}

	var page searchResponse
	if err := json.NewDecoder(res.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return &page, nil
}
