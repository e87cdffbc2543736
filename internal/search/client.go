package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/zfogg/plaza/internal/telemetry"
)

// Index names
const (
	IndexUsers = "plaza-users"
	IndexPosts = "plaza-posts"
)

// Client wraps the Elasticsearch client with the two plaza indices
type Client struct {
	es *elasticsearch.Client
}

// NewClient connects to the cluster at url. A nil transport gets the
// traced default.
func NewClient(url string, transport http.RoundTripper) (*Client, error) {
	if url == "" {
		url = "http://localhost:9200"
	}
	if transport == nil {
		transport = telemetry.NewInstrumentedTransport()
	}

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{url},
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}
	return &Client{es: es}, nil
}

// Ping verifies the cluster answers
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.es.Info(c.es.Info.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to connect to Elasticsearch: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch info: [%s]", res.Status())
	}
	return nil
}

// InitializeIndices creates the users and posts indices if missing
func (c *Client) InitializeIndices(ctx context.Context) error {
	if err := c.createIndex(ctx, IndexUsers, usersMapping); err != nil {
		return fmt.Errorf("failed to create users index: %w", err)
	}
	if err := c.createIndex(ctx, IndexPosts, postsMapping); err != nil {
		return fmt.Errorf("failed to create posts index: %w", err)
	}
	return nil
}

// Fields searched with wildcards are keywords holding lower-cased text.
var usersMapping = map[string]interface{}{
	"mappings": map[string]interface{}{
		"properties": map[string]interface{}{
			"id":         map[string]interface{}{"type": "keyword"},
			"username":   map[string]interface{}{"type": "keyword"},
			"email":      map[string]interface{}{"type": "keyword"},
			"created_at": map[string]interface{}{"type": "date"},
		},
	},
}

var postsMapping = map[string]interface{}{
	"mappings": map[string]interface{}{
		"properties": map[string]interface{}{
			"id":         map[string]interface{}{"type": "keyword"},
			"author_id":  map[string]interface{}{"type": "keyword"},
			"title":      map[string]interface{}{"type": "keyword"},
			"hash_tags":  map[string]interface{}{"type": "keyword"},
			"has_image":  map[string]interface{}{"type": "boolean"},
			"created_at": map[string]interface{}{"type": "date"},
		},
	},
}

func (c *Client) createIndex(ctx context.Context, name string, mapping map[string]interface{}) error {
	res, err := c.es.Indices.Exists([]string{name}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check if index exists: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	body, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}

	res, err = c.es.Indices.Create(name,
		c.es.Indices.Create.WithBody(bytes.NewReader(body)),
		c.es.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("creating index", res.Status(), res.Body)
	}
	return nil
}

// Put stores doc under id in index
func (c *Client) Put(ctx context.Context, index, id string, doc interface{}) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	res, err := c.es.Index(index, bytes.NewReader(body),
		c.es.Index.WithDocumentID(id),
		c.es.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to index document: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("indexing "+index, res.Status(), res.Body)
	}
	return nil
}

// Remove deletes a document. A missing document is not an error.
func (c *Client) Remove(ctx context.Context, index, id string) error {
	res, err := c.es.Delete(index, id, c.es.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("deleting from "+index, res.Status(), res.Body)
	}
	return nil
}

// SearchIDs runs query against index and returns the matching document ids
// in hit order
func (c *Client) SearchIDs(ctx context.Context, index string, query map[string]interface{}, from, size int) ([]string, error) {
	body, err := json.Marshal(map[string]interface{}{
		"query": query,
		"from":  from,
		"size":  size,
		"sort": []map[string]interface{}{
			{"created_at": map[string]interface{}{"order": "desc"}},
			{"id": map[string]interface{}{"order": "desc"}},
		},
		"_source": false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search query: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(index),
		c.es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, responseError("searching "+index, res.Status(), res.Body)
	}

	var resp struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	ids := make([]string, 0, len(resp.Hits.Hits))
	for _, h := range resp.Hits.Hits {
		ids = append(ids, h.ID)
	}
	return ids, nil
}

func responseError(action, status string, body io.Reader) error {
	var errResp map[string]interface{}
	if err := json.NewDecoder(body).Decode(&errResp); err != nil {
		return fmt.Errorf("error %s: [%s]", action, status)
	}
	return fmt.Errorf("error %s: [%s] %v", action, status, errResp["error"])
}
