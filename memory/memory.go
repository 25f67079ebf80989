// Package memory is the thin facade that ties the embedding model, the
// vector store and the history log together: text in, ranked memories out.
package memory

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/xiehust/mem0/models"
	"github.com/xiehust/mem0/storage"
	"github.com/xiehust/mem0/vectorstores"
)

type Memory struct {
	model      models.Interface
	vectors    vectorstores.Store
	history    storage.Interface
	dimensions int
	metric     vectorstores.DistanceMetric
}

// Item is a stored memory as seen by callers. Score is nil when the item was
// fetched by id rather than by similarity.
type Item struct {
	ID       string
	Text     string
	Metadata map[string]any
	Score    *float64
}

func New(model models.Interface, vectors vectorstores.Store, history storage.Interface,
	dimensions int, metric vectorstores.DistanceMetric) *Memory {
	return &Memory{
		model:      model,
		vectors:    vectors,
		history:    history,
		dimensions: dimensions,
		metric:     metric,
	}
}

// Init provisions the backing index. Safe to call on every startup.
func (m *Memory) Init(ctx context.Context) error {
	return m.vectors.Provision(ctx, m.dimensions, m.metric)
}

func (m *Memory) Add(ctx context.Context, text string, metadata map[string]any) (string, error) {
	vector, err := m.model.EmbedText(ctx, text)
	if err != nil {
		return "", fmt.Errorf("embed text: %w", err)
	}

	id := uuid.New().String()
	payload := map[string]any{
		"text":       text,
		"created_at": time.Now().Format(time.RFC3339),
	}
	for key, value := range metadata {
		payload[key] = value
	}

	if err = m.vectors.InsertBatch(ctx, []vectorstores.Record{
		{ID: id, Vector: vector, Payload: payload},
	}); err != nil {
		return "", err
	}

	m.recordHistory(ctx, id, storage.EventAdd, "", text)
	return id, nil
}

func (m *Memory) Search(ctx context.Context, query string, limit int, filters map[string]any) ([]Item, error) {
	vector, err := m.model.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := m.vectors.Search(ctx, vector, limit, filters)
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(results))
	for _, result := range results {
		items = append(items, toItem(result))
	}
	return items, nil
}

func (m *Memory) Get(ctx context.Context, id string) (*Item, error) {
	result, err := m.vectors.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	item := toItem(*result)
	return &item, nil
}

func (m *Memory) Update(ctx context.Context, id, text string, metadata map[string]any) error {
	previous, err := m.Get(ctx, id)
	if err != nil {
		return err
	}

	vector, err := m.model.EmbedText(ctx, text)
	if err != nil {
		return fmt.Errorf("embed text: %w", err)
	}

	payload := map[string]any{
		"text":       text,
		"updated_at": time.Now().Format(time.RFC3339),
	}
	for key, value := range metadata {
		payload[key] = value
	}

	if err = m.vectors.Update(ctx, id, vector, payload); err != nil {
		return err
	}

	m.recordHistory(ctx, id, storage.EventUpdate, previous.Text, text)
	return nil
}

func (m *Memory) Delete(ctx context.Context, id string) error {
	previous, err := m.Get(ctx, id)
	if err != nil {
		return err
	}
	if err = m.vectors.Delete(ctx, id); err != nil {
		return err
	}

	m.recordHistory(ctx, id, storage.EventDelete, previous.Text, "")
	return nil
}

func (m *Memory) List(ctx context.Context, filters map[string]any, limit int) ([]Item, error) {
	results, err := m.vectors.List(ctx, filters, limit)
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(results))
	for _, result := range results {
		items = append(items, toItem(result))
	}
	return items, nil
}

func (m *Memory) History(ctx context.Context, id string) ([]storage.Record, error) {
	return m.history.GetHistoryByMemoryID(ctx, id)
}

// History is audit data; a failed write should not fail the mutation itself.
func (m *Memory) recordHistory(ctx context.Context, id, event, oldValue, newValue string) {
	if m.history == nil {
		return
	}
	if err := m.history.SaveHistory(ctx, storage.Record{
		MemoryID: id,
		Event:    event,
		OldValue: oldValue,
		NewValue: newValue,
	}); err != nil {
		log.Printf("⚠️ Error saving history for memory %s: %v", id, err)
	}
}

func toItem(result vectorstores.SearchResult) Item {
	item := Item{
		ID:       result.ID,
		Score:    result.Score,
		Metadata: map[string]any{},
	}
	for key, value := range result.Payload {
		if key == "text" {
			item.Text = fmt.Sprintf("%v", value)
			continue
		}
		item.Metadata[key] = value
	}
	return item
}
