package qdrant

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/poiesic/lakefeed/core"
	"github.com/poiesic/lakefeed/vectorstore"
	"github.com/qdrant/go-client/qdrant"
)

// Config holds connection parameters for a Qdrant vector store instance.
type Config struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// Collection is the Qdrant collection name to use.
	Collection string

	// VectorSize is the dimensionality of the embeddings stored in this
	// collection. When zero, the collection is created lazily on the first
	// upsert using the dimensionality of the incoming vectors.
	VectorSize uint64

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// Store implements vectorstore.Index backed by a Qdrant instance.
type Store struct {
	client  *qdrant.Client
	cfg     *Config
	ensured bool
	logger  *slog.Logger
}

var _ vectorstore.Index = (*Store)(nil)

// New creates a new Store. When cfg.VectorSize is set the target collection
// is created up front; otherwise it is created on first upsert.
func New(ctx context.Context, cfg *Config) (*Store, error) {
	if cfg.Collection == "" {
		return nil, fmt.Errorf("qdrant: collection name required")
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}

	store := &Store{
		client: client,
		cfg:    cfg,
		logger: slog.Default().With("component", "qdrant-index"),
	}

	if cfg.VectorSize > 0 {
		if err := store.ensureCollection(ctx, cfg.VectorSize); err != nil {
			return nil, err
		}
	}

	return store, nil
}

// ensureCollection creates the Qdrant collection if it does not already exist.
func (s *Store) ensureCollection(ctx context.Context, vectorSize uint64) error {
	if s.ensured {
		return nil
	}

	exists, err := s.client.CollectionExists(ctx, s.cfg.Collection)
	if err != nil {
		return fmt.Errorf("qdrant: failed to check collection existence: %w", err)
	}
	if exists {
		s.ensured = true
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.cfg.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: failed to create collection %q: %w", s.cfg.Collection, err)
	}

	s.logger.Debug("created collection", "collection", s.cfg.Collection, "vectorSize", vectorSize)
	s.ensured = true
	return nil
}

// Upsert stores or updates a batch of units with their embeddings in one
// call. Unit ids are mapped to deterministic UUIDs (Qdrant point ids must be
// UUIDs or integers), so re-upserting the same record overwrites the earlier
// point rather than duplicating it.
func (s *Store) Upsert(ctx context.Context, units []*core.RetrievalUnit, vectors [][]float32) error {
	if len(units) != len(vectors) {
		return fmt.Errorf("qdrant: mismatch between units (%d) and vectors (%d)", len(units), len(vectors))
	}
	if len(units) == 0 {
		return nil
	}

	if err := s.ensureCollection(ctx, uint64(len(vectors[0]))); err != nil {
		return err
	}

	points := make([]*qdrant.PointStruct, 0, len(units))
	for i, unit := range units {
		payload := map[string]any{"content": unit.Content}
		for k, v := range unit.Metadata {
			payload[k] = payloadValue(v)
		}

		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(PointId(unit.Id)),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(payload),
		})
	}

	if _, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.cfg.Collection,
		Points:         points,
	}); err != nil {
		return fmt.Errorf("qdrant: upsert failed: %w", err)
	}

	s.logger.Debug("upserted points", "collection", s.cfg.Collection, "points", len(points))
	return nil
}

// Search performs a cosine similarity search and returns the top-k results.
func (s *Store) Search(ctx context.Context, queryVector []float32, topK int) ([]vectorstore.Hit, error) {
	limit := uint64(topK)
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.cfg.Collection,
		Query:          qdrant.NewQuery(queryVector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: search failed: %w", err)
	}

	hits := make([]vectorstore.Hit, 0, len(results))
	for _, r := range results {
		hit := vectorstore.Hit{
			Id:       r.Id.GetUuid(),
			Score:    r.Score,
			Metadata: make(map[string]any),
		}
		if p := r.Payload; p != nil {
			if v, ok := p["content"]; ok {
				hit.Content = v.GetStringValue()
			}
			for k, v := range p {
				if k == "content" {
					continue
				}
				hit.Metadata[k] = valueAsInterface(v)
			}
		}
		hits = append(hits, hit)
	}

	return hits, nil
}

// Close closes the underlying Qdrant gRPC connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// PointId derives the deterministic UUID a unit id is stored under.
func PointId(unitId string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(unitId)).String()
}

// valueAsInterface converts a Qdrant payload Value back to a plain Go value,
// mirroring structpb.Value.AsInterface with Qdrant's integer kind added.
func valueAsInterface(v *qdrant.Value) any {
	switch k := v.GetKind().(type) {
	case *qdrant.Value_NullValue:
		return nil
	case *qdrant.Value_BoolValue:
		return k.BoolValue
	case *qdrant.Value_IntegerValue:
		return k.IntegerValue
	case *qdrant.Value_DoubleValue:
		return k.DoubleValue
	case *qdrant.Value_StringValue:
		return k.StringValue
	case *qdrant.Value_StructValue:
		fields := k.StructValue.GetFields()
		m := make(map[string]any, len(fields))
		for name, fv := range fields {
			m[name] = valueAsInterface(fv)
		}
		return m
	case *qdrant.Value_ListValue:
		values := k.ListValue.GetValues()
		l := make([]any, 0, len(values))
		for _, lv := range values {
			l = append(l, valueAsInterface(lv))
		}
		return l
	default:
		return nil
	}
}

// payloadValue widens scalar metadata values to the types the Qdrant value
// map conversion accepts.
func payloadValue(v any) any {
	switch n := v.(type) {
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case uint:
		return int64(n)
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint64:
		return int64(n)
	case float32:
		return float64(n)
	default:
		return v
	}
}
