package qdrantDB

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/akolanti/CompassAPI/internal/adapter/utils"
	"github.com/akolanti/CompassAPI/internal/config"
	"github.com/akolanti/CompassAPI/internal/domain/ragModel"
	"github.com/akolanti/CompassAPI/pkg/logger_i"
	"github.com/qdrant/go-client/qdrant"
)

var logger *logger_i.Logger
var quadrantInstance *qdrant.Client
var once sync.Once
var dimension = uint64(config.EmbeddingOutputDimensionality)
var collectionName = config.CollectionName

type ClientHolder struct {
	QObj *qdrant.Client
}

func GetQuadrantClient(ctx context.Context) *ClientHolder {

	once.Do(func() {
		logger = logger_i.NewLogger("Qdrant")
		res := newClient()
		if res != nil {
			quadrantInstance = res
			go closeQdrant(ctx, quadrantInstance)
		}
	})

	if quadrantInstance == nil {
		return nil
	}
	return &ClientHolder{
		QObj: quadrantInstance,
	}
}

func newClient() *qdrant.Client {

	host := os.Getenv("QDRANT_HOST")
	port, er := strconv.Atoi(os.Getenv("QDRANT_PORT"))

	if host == "" || er != nil {
		host = config.QdrantHost
		port = config.QdrantGrpcPort
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:     host,
		Port:     port,
		UseTLS:   config.QdrantUseTLS,
		PoolSize: uint(config.QdrantPoolSize),
	})
	if err != nil {
		logger.Error("could not instantiate: ", "error:", err)
		return nil
	}

	return client
}

func closeQdrant(ctx context.Context, qi *qdrant.Client) {
	<-ctx.Done()
	logger.Info("Shutting down Qdrant")
	err := qi.Close()
	if err != nil {
		logger.Error("could not close Qdrant: ", "error:", err)
	}
	logger.Info("Closed Qdrant")
}

func (db *ClientHolder) EnsureCollection(ctx context.Context) error {
	return createCollection(ctx, db.QObj, collectionName)
}

func (db *ClientHolder) Search(ctx context.Context, vectorFloat []float32, topK uint64, filters map[string]string) ([]ragModel.ScoredChunk, error) {
	loggr := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	query := &qdrant.QueryPoints{
		CollectionName: collectionName,
		Query:          qdrant.NewQuery(vectorFloat...),
		Limit:          qdrant.PtrOf(topK),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if len(filters) > 0 {
		var conditions []*qdrant.Condition
		for field, value := range filters {
			conditions = append(conditions, qdrant.NewMatch(field, value))
		}
		query.Filter = &qdrant.Filter{Must: conditions}
	}

	result, err := db.QObj.Query(ctx, query)
	if err != nil {
		loggr.Error("Error querying Qdrant: ", "error:", err)
		return nil, err
	}

	hits := make([]ragModel.ScoredChunk, 0, len(result))
	for _, hit := range result {
		payload := hit.Payload
		hits = append(hits, ragModel.ScoredChunk{
			Chunk: ragModel.Chunk{
				ChunkID: payload["chunk_id"].GetStringValue(),
				Content: payload["content"].GetStringValue(),
				Metadata: ragModel.ChunkMetadata{
					DocumentID:      payload["document_id"].GetStringValue(),
					Filename:        payload["filename"].GetStringValue(),
					ChunkIndex:      int(payload["chunk_index"].GetIntegerValue()),
					ChunkTotal:      int(payload["chunk_total"].GetIntegerValue()),
					ContentLength:   int(payload["content_length"].GetIntegerValue()),
					ChunkStrategy:   payload["chunk_strategy"].GetStringValue(),
					SourceExtension: payload["source_extension"].GetStringValue(),
					SectionTitle:    payload["section_title"].GetStringValue(),
				},
			},
			Score: hit.Score,
		})
	}

	loggr.Debug("Vector search complete", "hits", len(hits))
	return hits, nil
}

func (db *ClientHolder) UpsertBatch(ctx context.Context, chunks []ragModel.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("mismatch: got %d chunks but %d vectors", len(chunks), len(vectors))
	}

	qdrantPoints := make([]*qdrant.PointStruct, len(chunks))

	for i, chunk := range chunks {
		qdrantPoints[i] = &qdrant.PointStruct{
			// Point ids must be UUIDs, so the chunk id is mapped through a
			// name-based UUID. The same chunk always lands on the same point.
			Id: qdrant.NewID(utils.DeterministicUUID(chunk.ChunkID)),

			Vectors: qdrant.NewVectors(vectors[i]...),

			Payload: qdrant.NewValueMap(map[string]any{
				"chunk_id":         chunk.ChunkID,
				"content":          chunk.Content,
				"document_id":      chunk.Metadata.DocumentID,
				"filename":         chunk.Metadata.Filename,
				"chunk_index":      chunk.Metadata.ChunkIndex,
				"chunk_total":      chunk.Metadata.ChunkTotal,
				"content_length":   chunk.Metadata.ContentLength,
				"chunk_strategy":   chunk.Metadata.ChunkStrategy,
				"source_extension": chunk.Metadata.SourceExtension,
				"section_title":    chunk.Metadata.SectionTitle,
			}),
		}
	}

	_, err := db.QObj.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collectionName,
		Points:         qdrantPoints,
		Wait:           qdrant.PtrOf(true),
	})

	if err != nil {
		return fmt.Errorf("qdrant upsert failed: %w", err)
	}

	return nil
}

func (db *ClientHolder) DeleteByDocument(ctx context.Context, documentID string) error {
	loggr := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	_, err := db.QObj.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collectionName,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("document_id", documentID),
			},
		}),
		Wait: qdrant.PtrOf(true),
	})
	if err != nil {
		loggr.Error("Error deleting document points: ", "documentId", documentID, "error:", err)
		return fmt.Errorf("qdrant delete failed: %w", err)
	}
	return nil
}

func createCollection(ctx context.Context, client *qdrant.Client, collectionName string) error {
	if collectionName == "" {
		return errors.New("empty collection name")
	}

	exists, err := client.CollectionExists(ctx, collectionName)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	err = client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     dimension,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	return err
}
