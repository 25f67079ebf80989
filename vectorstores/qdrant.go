package vectorstores

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// QdrantStore implements Store against a Qdrant collection. It exists so the
// memory layer can swap engines without touching callers.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
}

var _ Store = &QdrantStore{}

func NewQdrantStore(host string, port int, collection string) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("connect qdrant: %w", err)
	}
	return &QdrantStore{
		client:     client,
		collection: collection,
	}, nil
}

func (m DistanceMetric) qdrantDistance() qdrant.Distance {
	switch m {
	case DistanceL2:
		return qdrant.Distance_Euclid
	case DistanceDotProduct:
		return qdrant.Distance_Dot
	default:
		return qdrant.Distance_Cosine
	}
}

func (s *QdrantStore) Provision(ctx context.Context, dimensions int, metric DistanceMetric) error {
	if dimensions <= 0 {
		return fmt.Errorf("%w: dimensionality must be positive, got %d", ErrInvalidArgument, dimensions)
	}

	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("check collection %s: %w: %v", s.collection, ErrBackendUnavailable, err)
	}
	if exists {
		return nil
	}

	if err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     uint64(dimensions),
					Distance: metric.qdrantDistance(),
				},
			},
		},
	}); err != nil {
		return fmt.Errorf("create collection %s: %w", s.collection, err)
	}
	return nil
}

func (s *QdrantStore) InsertBatch(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return fmt.Errorf("%w: empty batch", ErrInvalidArgument)
	}

	points := make([]*qdrant.PointStruct, len(records))
	for i, record := range records {
		id := record.ID
		if id == "" {
			id = uuid.New().String()
		}
		payload := record.Payload
		if payload == nil {
			payload = map[string]any{}
		}
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(id),
			Vectors: qdrant.NewVectors(record.Vector...),
			Payload: qdrant.NewValueMap(payload),
		}
	}

	if _, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
	}); err != nil {
		return fmt.Errorf("upsert points: %w", err)
	}
	return nil
}

func qdrantFilter(filters map[string]any) *qdrant.Filter {
	if len(filters) == 0 {
		return nil
	}
	filter := &qdrant.Filter{Must: []*qdrant.Condition{}}
	for field, value := range filters {
		switch v := value.(type) {
		case string:
			filter.Must = append(filter.Must, qdrant.NewMatch(field, v))
		case bool:
			filter.Must = append(filter.Must, qdrant.NewMatchBool(field, v))
		case int:
			filter.Must = append(filter.Must, qdrant.NewMatchInt(field, int64(v)))
		case int64:
			filter.Must = append(filter.Must, qdrant.NewMatchInt(field, v))
		default:
			filter.Must = append(filter.Must, qdrant.NewMatch(field, fmt.Sprintf("%v", v)))
		}
	}
	return filter
}

func (s *QdrantStore) Search(ctx context.Context, vector []float32, limit int, filters map[string]any) ([]SearchResult, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidArgument, limit)
	}

	k := uint64(limit)
	response, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Limit:          &k,
		Filter:         qdrantFilter(filters),
		Query:          qdrant.NewQuery(vector...),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("query points: %w", err)
	}

	results := make([]SearchResult, 0, len(response))
	for _, point := range response {
		score := float64(point.Score)
		results = append(results, SearchResult{
			ID:      pointID(point.Id),
			Score:   &score,
			Payload: convertPayload(point.Payload),
		})
	}
	return results, nil
}

func (s *QdrantStore) Get(ctx context.Context, id string) (*SearchResult, error) {
	points, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: s.collection,
		Ids:            []*qdrant.PointId{qdrant.NewIDUUID(id)},
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w: %v", id, ErrBackendUnavailable, err)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	return &SearchResult{
		ID:      pointID(points[0].Id),
		Payload: convertPayload(points[0].Payload),
	}, nil
}

func (s *QdrantStore) Update(ctx context.Context, id string, vector []float32, payload map[string]any) error {
	if vector == nil && payload == nil {
		return fmt.Errorf("%w: nothing to update for %s", ErrInvalidArgument, id)
	}

	// Qdrant treats writes to unknown ids as inserts; check first so the
	// partial-update contract holds.
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	if vector != nil {
		if _, err := s.client.UpdateVectors(ctx, &qdrant.UpdatePointVectors{
			CollectionName: s.collection,
			Points: []*qdrant.PointVectors{
				{
					Id:      qdrant.NewIDUUID(id),
					Vectors: qdrant.NewVectors(vector...),
				},
			},
		}); err != nil {
			return fmt.Errorf("update vector %s: %w", id, err)
		}
	}
	if payload != nil {
		if _, err := s.client.SetPayload(ctx, &qdrant.SetPayloadPoints{
			CollectionName: s.collection,
			Payload:        qdrant.NewValueMap(payload),
			PointsSelector: qdrant.NewPointsSelector(qdrant.NewIDUUID(id)),
		}); err != nil {
			return fmt.Errorf("update payload %s: %w", id, err)
		}
	}
	return nil
}

// Delete follows the same pinned policy as the OpenSearch store: a missing
// id fails with ErrNotFound even though the engine itself would no-op.
func (s *QdrantStore) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if _, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points:         qdrant.NewPointsSelector(qdrant.NewIDUUID(id)),
	}); err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	return nil
}

func (s *QdrantStore) List(ctx context.Context, filters map[string]any, limit int) ([]SearchResult, error) {
	scroll := &qdrant.ScrollPoints{
		CollectionName: s.collection,
		Filter:         qdrantFilter(filters),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if limit > 0 {
		size := uint32(limit)
		scroll.Limit = &size
	}

	points, err := s.client.Scroll(ctx, scroll)
	if err != nil {
		return nil, fmt.Errorf("scroll points: %w", err)
	}

	results := make([]SearchResult, 0, len(points))
	for _, point := range points {
		results = append(results, SearchResult{
			ID:      pointID(point.Id),
			Payload: convertPayload(point.Payload),
		})
	}
	return results, nil
}

func (s *QdrantStore) DeleteIndex(ctx context.Context) error {
	if err := s.client.DeleteCollection(ctx, s.collection); err != nil {
		return fmt.Errorf("delete collection %s: %w", s.collection, err)
	}
	return nil
}

func (s *QdrantStore) IndexInfo(ctx context.Context) (map[string]any, error) {
	info, err := s.client.GetCollectionInfo(ctx, s.collection)
	if err != nil {
		return nil, fmt.Errorf("collection info %s: %w", s.collection, err)
	}
	return map[string]any{
		"status":         info.GetStatus().String(),
		"points_count":   info.GetPointsCount(),
		"segments_count": info.GetSegmentsCount(),
	}, nil
}

func (s *QdrantStore) ListIndices(ctx context.Context) ([]string, error) {
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	return collections, nil
}

func (s *QdrantStore) Close() error {
	return s.client.Close()
}

func pointID(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	switch x := id.PointIdOptions.(type) {
	case *qdrant.PointId_Uuid:
		return x.Uuid
	case *qdrant.PointId_Num:
		return fmt.Sprintf("%d", x.Num)
	}
	return ""
}

func convertPayload(payload map[string]*qdrant.Value) map[string]any {
	out := make(map[string]any, len(payload))
	for key, value := range payload {
		out[key] = convertQdrantValue(value)
	}
	return out
}

func convertQdrantValue(v *qdrant.Value) any {
	switch val := v.Kind.(type) {
	case *qdrant.Value_BoolValue:
		return val.BoolValue
	case *qdrant.Value_IntegerValue:
		return val.IntegerValue
	case *qdrant.Value_DoubleValue:
		return val.DoubleValue
	case *qdrant.Value_StringValue:
		return val.StringValue
	case *qdrant.Value_NullValue:
		return nil
	case *qdrant.Value_ListValue:
		out := make([]any, len(val.ListValue.Values))
		for i, lv := range val.ListValue.Values {
			out[i] = convertQdrantValue(lv)
		}
		return out
	case *qdrant.Value_StructValue:
		out := make(map[string]any)
		for k, nv := range val.StructValue.Fields {
			out[k] = convertQdrantValue(nv)
		}
		return out
	}
	return nil
}
