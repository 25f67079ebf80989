package vectorstores

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/xiehust/mem0/restclient"
)

// HNSW graph parameters are fixed at index creation and not tunable per call.
const (
	hnswEfConstruction = 128
	hnswM              = 16
	knnEfSearch        = 32
	numberOfShards     = 1
	numberOfReplicas   = 1
)

// OpenSearchStore implements Store against an AWS OpenSearch KNN index.
type OpenSearchStore struct {
	rest  restclient.Interface
	index string
}

var _ Store = &OpenSearchStore{}

func NewOpenSearchStore(rest restclient.Interface, index string) *OpenSearchStore {
	return &OpenSearchStore{
		rest:  rest,
		index: index,
	}
}

func (m DistanceMetric) spaceType() string {
	switch m {
	case DistanceL2:
		return "l2"
	case DistanceDotProduct:
		return "innerproduct"
	default:
		return "cosinesimil"
	}
}

func (s *OpenSearchStore) Provision(ctx context.Context, dimensions int, metric DistanceMetric) error {
	if dimensions <= 0 {
		return fmt.Errorf("%w: dimensionality must be positive, got %d", ErrInvalidArgument, dimensions)
	}

	status, err := s.rest.Head(ctx, "/"+s.index)
	if err != nil {
		return fmt.Errorf("check index %s: %w: %v", s.index, ErrBackendUnavailable, err)
	}
	if status == http.StatusOK {
		return nil
	}

	body := map[string]any{
		"mappings": map[string]any{
			"properties": map[string]any{
				"vector": map[string]any{
					"type":      "knn_vector",
					"dimension": dimensions,
					"method": map[string]any{
						"name":       "hnsw",
						"space_type": metric.spaceType(),
						"engine":     "nmslib",
						"parameters": map[string]any{
							"ef_construction": hnswEfConstruction,
							"m":               hnswM,
						},
					},
				},
				"payload": map[string]any{
					"type": "object",
				},
			},
		},
		"settings": map[string]any{
			"index": map[string]any{
				"number_of_shards":         numberOfShards,
				"number_of_replicas":       numberOfReplicas,
				"knn":                      "true",
				"knn.algo_param.ef_search": knnEfSearch,
			},
		},
	}

	response, status, err := s.rest.Put(ctx, "/"+s.index, body, nil)
	if err != nil {
		return fmt.Errorf("create index %s: %w: %v", s.index, ErrBackendUnavailable, err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("create index %s: %w", s.index, &BackendError{Status: status, Message: string(response)})
	}
	return nil
}

type bulkIndexMeta struct {
	Index string  `json:"_index"`
	ID    *string `json:"_id"`
}

type bulkAction struct {
	Index bulkIndexMeta `json:"index"`
}

type bulkDocument struct {
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

type bulkItemResult struct {
	ID     string `json:"_id"`
	Status int    `json:"status"`
	Error  *struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
}

type bulkResponse struct {
	Errors bool                        `json:"errors"`
	Items  []map[string]bulkItemResult `json:"items"`
}

func (s *OpenSearchStore) InsertBatch(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return fmt.Errorf("%w: empty batch", ErrInvalidArgument)
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	for _, record := range records {
		action := bulkAction{Index: bulkIndexMeta{Index: s.index}}
		if record.ID != "" {
			id := record.ID
			action.Index.ID = &id
		}
		if err := encoder.Encode(action); err != nil {
			return fmt.Errorf("encode bulk action: %w", err)
		}
		payload := record.Payload
		if payload == nil {
			payload = map[string]any{}
		}
		if err := encoder.Encode(bulkDocument{Vector: record.Vector, Payload: payload}); err != nil {
			return fmt.Errorf("encode bulk document: %w", err)
		}
	}

	response, status, err := s.rest.PostRaw(ctx, "/_bulk", buf.Bytes(), "application/x-ndjson")
	if err != nil {
		return fmt.Errorf("bulk insert: %w: %v", ErrBackendUnavailable, err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("bulk insert: %w", &BackendError{Status: status, Message: string(response)})
	}

	var result bulkResponse
	if err = json.Unmarshal(response, &result); err != nil {
		return fmt.Errorf("parse bulk response: %w", err)
	}
	if !result.Errors {
		return nil
	}

	// Fold the per-item results into one aggregated error so a partial
	// success never looks like a success to the caller.
	var failed []BulkItemError
	for _, item := range result.Items {
		outcome, ok := item["index"]
		if !ok || outcome.Error == nil {
			continue
		}
		failed = append(failed, BulkItemError{
			ID:     outcome.ID,
			Reason: fmt.Sprintf("%s: %s", outcome.Error.Type, outcome.Error.Reason),
		})
	}
	return &BulkWriteError{Items: failed}
}

type searchHit struct {
	ID     string   `json:"_id"`
	Score  *float64 `json:"_score"`
	Source struct {
		Vector  []float32      `json:"vector"`
		Payload map[string]any `json:"payload"`
	} `json:"_source"`
}

type searchResponse struct {
	Hits struct {
		Hits []searchHit `json:"hits"`
	} `json:"hits"`
}

func termConditions(filters map[string]any) []map[string]any {
	conditions := make([]map[string]any, 0, len(filters))
	for field, value := range filters {
		conditions = append(conditions, map[string]any{
			"term": map[string]any{"payload." + field: value},
		})
	}
	return conditions
}

func (s *OpenSearchStore) Search(ctx context.Context, vector []float32, limit int, filters map[string]any) ([]SearchResult, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidArgument, limit)
	}

	knn := map[string]any{
		"vector": map[string]any{
			"vector": vector,
			"k":      limit,
		},
	}
	body := map[string]any{"size": limit}
	if len(filters) > 0 {
		body["query"] = map[string]any{
			"bool": map[string]any{
				"must":   []map[string]any{{"knn": knn}},
				"filter": termConditions(filters),
			},
		}
	} else {
		body["query"] = map[string]any{"knn": knn}
	}

	return s.runSearch(ctx, body)
}

func (s *OpenSearchStore) runSearch(ctx context.Context, body map[string]any) ([]SearchResult, error) {
	response, status, err := s.rest.Post(ctx, "/"+s.index+"/_search", body, nil)
	if err != nil {
		return nil, fmt.Errorf("search index %s: %w: %v", s.index, ErrBackendUnavailable, err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("search index %s: %w", s.index, &BackendError{Status: status, Message: string(response)})
	}

	var result searchResponse
	if err = json.Unmarshal(response, &result); err != nil {
		return nil, fmt.Errorf("parse search response: %w", err)
	}

	results := make([]SearchResult, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		results = append(results, SearchResult{
			ID:      hit.ID,
			Score:   hit.Score,
			Payload: hit.Source.Payload,
		})
	}
	return results, nil
}

type getResponse struct {
	ID     string `json:"_id"`
	Source struct {
		Payload map[string]any `json:"payload"`
	} `json:"_source"`
}

func (s *OpenSearchStore) Get(ctx context.Context, id string) (*SearchResult, error) {
	response, status, err := s.rest.Get(ctx, "/"+s.index+"/_doc/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w: %v", id, ErrBackendUnavailable, err)
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("get %s: %w", id, &BackendError{Status: status, Message: string(response)})
	}

	var result getResponse
	if err = json.Unmarshal(response, &result); err != nil {
		return nil, fmt.Errorf("parse get response: %w", err)
	}
	return &SearchResult{ID: result.ID, Payload: result.Source.Payload}, nil
}

func (s *OpenSearchStore) Update(ctx context.Context, id string, vector []float32, payload map[string]any) error {
	doc := map[string]any{}
	if vector != nil {
		doc["vector"] = vector
	}
	if payload != nil {
		doc["payload"] = payload
	}
	if len(doc) == 0 {
		return fmt.Errorf("%w: nothing to update for %s", ErrInvalidArgument, id)
	}

	response, status, err := s.rest.Post(ctx, "/"+s.index+"/_update/"+id, map[string]any{"doc": doc}, nil)
	if err != nil {
		return fmt.Errorf("update %s: %w: %v", id, ErrBackendUnavailable, err)
	}
	if status == http.StatusNotFound {
		return fmt.Errorf("update %s: %w", id, ErrNotFound)
	}
	if status != http.StatusOK {
		return fmt.Errorf("update %s: %w", id, &BackendError{Status: status, Message: string(response)})
	}
	return nil
}

// Delete removes the record with the given id. A missing id is reported as
// ErrNotFound rather than silently ignored; engines disagree on this case,
// so the policy is pinned here.
func (s *OpenSearchStore) Delete(ctx context.Context, id string) error {
	response, status, err := s.rest.Delete(ctx, "/"+s.index+"/_doc/"+id, nil)
	if err != nil {
		return fmt.Errorf("delete %s: %w: %v", id, ErrBackendUnavailable, err)
	}
	if status == http.StatusNotFound {
		return fmt.Errorf("delete %s: %w", id, ErrNotFound)
	}
	if status != http.StatusOK {
		return fmt.Errorf("delete %s: %w", id, &BackendError{Status: status, Message: string(response)})
	}
	return nil
}

func (s *OpenSearchStore) List(ctx context.Context, filters map[string]any, limit int) ([]SearchResult, error) {
	body := map[string]any{}
	if len(filters) > 0 {
		body["query"] = map[string]any{
			"bool": map[string]any{"must": termConditions(filters)},
		}
	} else {
		body["query"] = map[string]any{"match_all": map[string]any{}}
	}
	if limit > 0 {
		body["size"] = limit
	}
	return s.runSearch(ctx, body)
}

func (s *OpenSearchStore) DeleteIndex(ctx context.Context) error {
	response, status, err := s.rest.Delete(ctx, "/"+s.index, nil)
	if err != nil {
		return fmt.Errorf("delete index %s: %w: %v", s.index, ErrBackendUnavailable, err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("delete index %s: %w", s.index, &BackendError{Status: status, Message: string(response)})
	}
	return nil
}

func (s *OpenSearchStore) IndexInfo(ctx context.Context) (map[string]any, error) {
	response, status, err := s.rest.Get(ctx, "/"+s.index, nil)
	if err != nil {
		return nil, fmt.Errorf("index info %s: %w: %v", s.index, ErrBackendUnavailable, err)
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("index info %s: %w", s.index, ErrNotFound)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("index info %s: %w", s.index, &BackendError{Status: status, Message: string(response)})
	}

	var info map[string]any
	if err = json.Unmarshal(response, &info); err != nil {
		return nil, fmt.Errorf("parse index info: %w", err)
	}
	return info, nil
}

func (s *OpenSearchStore) ListIndices(ctx context.Context) ([]string, error) {
	response, status, err := s.rest.Get(ctx, "/_alias", nil)
	if err != nil {
		return nil, fmt.Errorf("list indices: %w: %v", ErrBackendUnavailable, err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("list indices: %w", &BackendError{Status: status, Message: string(response)})
	}

	var aliases map[string]any
	if err = json.Unmarshal(response, &aliases); err != nil {
		return nil, fmt.Errorf("parse alias response: %w", err)
	}
	indices := make([]string, 0, len(aliases))
	for name := range aliases {
		indices = append(indices, name)
	}
	return indices, nil
}
