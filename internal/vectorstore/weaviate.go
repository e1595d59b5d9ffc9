package vectorstore

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
	"go.uber.org/zap"

	"github.com/futig/ragchat/internal/config"
	"github.com/futig/ragchat/internal/entity"
)

// WeaviateStore stores chunk vectors in a Weaviate collection. The class uses
// no server-side vectorizer, all vectors come from the embedding connector.
type WeaviateStore struct {
	client    *weaviate.Client
	className string
}

func NewWeaviateStore(cfg config.WeaviateConfig) (*WeaviateStore, error) {
	clientConfig := weaviate.Config{
		Host:             cfg.Host,
		Scheme:           cfg.Scheme,
		ConnectionClient: newConnectionClient(cfg.Timeout),
	}
	if cfg.APIKey != "" {
		clientConfig.AuthConfig = auth.ApiKey{Value: cfg.APIKey}
	}

	client, err := weaviate.NewClient(clientConfig)
	if err != nil {
		return nil, fmt.Errorf("create weaviate client: %w", err)
	}

	return &WeaviateStore{
		client:    client,
		className: cfg.ClassName,
	}, nil
}

// newConnectionClient caps every Weaviate call at the configured timeout.
func newConnectionClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

func (s *WeaviateStore) EnsureSchema(ctx context.Context) error {
	exists, err := s.client.Schema().ClassExistenceChecker().
		WithClassName(s.className).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("check class existence: %w", err)
	}
	if exists {
		return nil
	}

	class := &models.Class{
		Class:      s.className,
		Vectorizer: "none",
		Properties: []*models.Property{
			{
				Name:     "content",
				DataType: []string{"text"},
			},
			{
				Name:     "filename",
				DataType: []string{"text"},
			},
			{
				Name:     "source",
				DataType: []string{"text"},
			},
			{
				Name:     "documentId",
				DataType: []string{"text"},
			},
			{
				Name:     "chunkIndex",
				DataType: []string{"int"},
			},
		},
	}

	err = s.client.Schema().ClassCreator().WithClass(class).Do(ctx)
	if err != nil {
		// Concurrent creators can race past the existence check.
		if strings.Contains(err.Error(), "already exists") {
			return nil
		}
		return fmt.Errorf("create class %s: %w", s.className, err)
	}

	ctxzap.Info(ctx, "created vector store class", zap.String("class", s.className))
	return nil
}

func (s *WeaviateStore) Count(ctx context.Context) (int, error) {
	result, err := s.client.GraphQL().Aggregate().
		WithClassName(s.className).
		WithFields(graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}}).
		Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("aggregate count: %w", err)
	}
	if len(result.Errors) > 0 {
		return 0, fmt.Errorf("aggregate count: %s", result.Errors[0].Message)
	}

	data, ok := result.Data["Aggregate"].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	items, ok := data[s.className].([]interface{})
	if !ok || len(items) == 0 {
		return 0, nil
	}
	item, ok := items[0].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	meta, ok := item["meta"].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	count, ok := meta["count"].(float64)
	if !ok {
		return 0, nil
	}

	return int(count), nil
}

func (s *WeaviateStore) Insert(ctx context.Context, chunks []entity.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk/vector count mismatch: %d != %d", len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return nil
	}

	objects := make([]*models.Object, 0, len(chunks))
	for i, chunk := range chunks {
		objects = append(objects, &models.Object{
			Class: s.className,
			ID:    strfmt.UUID(chunk.ID),
			Properties: map[string]interface{}{
				"content":    chunk.Content,
				"filename":   chunk.Filename,
				"source":     chunk.Source,
				"documentId": chunk.DocumentID,
				"chunkIndex": chunk.ChunkIndex,
			},
			Vector: models.C11yVector(vectors[i]),
		})
	}

	resp, err := s.client.Batch().ObjectsBatcher().
		WithObjects(objects...).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("batch insert: %w", err)
	}

	for _, obj := range resp {
		if obj.Result != nil && obj.Result.Errors != nil && len(obj.Result.Errors.Error) > 0 {
			return fmt.Errorf("batch insert object %s: %s", obj.ID, obj.Result.Errors.Error[0].Message)
		}
	}

	return nil
}

func (s *WeaviateStore) Query(ctx context.Context, query entity.SearchQuery) ([]entity.RetrievedChunk, error) {
	if query.TopK < 1 {
		return nil, fmt.Errorf("%w: top_k must be positive", entity.ErrInvalidParameter)
	}

	nearVector := s.client.GraphQL().NearVectorArgBuilder().
		WithVector(query.Vector)

	fields := []graphql.Field{
		{Name: "content"},
		{Name: "filename"},
		{Name: "source"},
		{Name: "documentId"},
		{Name: "chunkIndex"},
		{Name: "_additional", Fields: []graphql.Field{
			{Name: "id"},
			{Name: "distance"},
		}},
	}

	result, err := s.client.GraphQL().Get().
		WithClassName(s.className).
		WithNearVector(nearVector).
		WithFields(fields...).
		WithLimit(query.TopK).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("near vector query: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("near vector query: %s", result.Errors[0].Message)
	}

	var retrieved []entity.RetrievedChunk
	if result.Data == nil {
		return retrieved, nil
	}
	data, ok := result.Data["Get"].(map[string]interface{})
	if !ok {
		return retrieved, nil
	}
	items, ok := data[s.className].([]interface{})
	if !ok {
		return retrieved, nil
	}

	for _, item := range items {
		itemMap, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		retrieved = append(retrieved, parseRetrievedChunk(itemMap))
	}

	return retrieved, nil
}

func parseRetrievedChunk(item map[string]interface{}) entity.RetrievedChunk {
	var rc entity.RetrievedChunk

	if val, ok := item["content"].(string); ok {
		rc.Content = val
	}
	if val, ok := item["filename"].(string); ok {
		rc.Filename = val
	}
	if val, ok := item["source"].(string); ok {
		rc.Source = val
	}
	if val, ok := item["documentId"].(string); ok {
		rc.DocumentID = val
	}
	if val, ok := item["chunkIndex"].(float64); ok {
		rc.ChunkIndex = int(val)
	}

	if additional, ok := item["_additional"].(map[string]interface{}); ok {
		if val, ok := additional["id"].(string); ok {
			rc.ID = val
		}
		if val, ok := additional["distance"].(float64); ok {
			// Cosine distance, lower is better. Report as similarity.
			rc.Score = 1 - float32(val)
		}
	}

	return rc
}

func (s *WeaviateStore) DeleteByDocument(ctx context.Context, documentID string) error {
	where := filters.Where().
		WithPath([]string{"documentId"}).
		WithOperator(filters.Equal).
		WithValueText(documentID)

	_, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(s.className).
		WithWhere(where).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("delete chunks of document %s: %w", documentID, err)
	}

	return nil
}

func (s *WeaviateStore) Reset(ctx context.Context) error {
	err := s.client.Schema().ClassDeleter().
		WithClassName(s.className).
		Do(ctx)
	if err != nil && !strings.Contains(err.Error(), "not found") {
		return fmt.Errorf("delete class %s: %w", s.className, err)
	}

	return s.EnsureSchema(ctx)
}

func (s *WeaviateStore) Ready(ctx context.Context) error {
	ready, err := s.client.Misc().ReadyChecker().Do(ctx)
	if err != nil {
		return fmt.Errorf("readiness check: %w", err)
	}
	if !ready {
		return fmt.Errorf("vector store is not ready")
	}
	return nil
}
