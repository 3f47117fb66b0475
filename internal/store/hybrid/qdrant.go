package hybrid

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/boardroomlabs/ancestry/internal/retrieval"
)

// VectorCache stores embedding records in a Qdrant collection. Point ids
// are derived deterministically from decision ids so upserts overwrite.
type VectorCache struct {
	conn       *grpc.ClientConn
	points     pb.PointsClient
	collection string
}

// NewVectorCache creates a Qdrant-backed embedding cache.
func NewVectorCache(host string, port int, collection string) (*VectorCache, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant connect: %w", err)
	}
	return &VectorCache{
		conn:       conn,
		points:     pb.NewPointsClient(conn),
		collection: collection,
	}, nil
}

// GetEmbedding returns the cached record for a decision, or nil.
func (v *VectorCache) GetEmbedding(ctx context.Context, decisionID string) (*retrieval.EmbeddingRecord, error) {
	records, err := v.retrieve(ctx, []string{decisionID})
	if err != nil {
		return nil, err
	}
	rec, ok := records[decisionID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// ListEmbeddings returns cached records keyed by decision id.
func (v *VectorCache) ListEmbeddings(ctx context.Context, decisionIDs []string) (map[string]retrieval.EmbeddingRecord, error) {
	return v.retrieve(ctx, decisionIDs)
}

// UpsertEmbedding persists or overwrites the record for a decision.
func (v *VectorCache) UpsertEmbedding(ctx context.Context, record retrieval.EmbeddingRecord) error {
	point := &pb.PointStruct{
		Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: pointUUID(record.DecisionID)}},
		Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: record.Vector}}},
		Payload: map[string]*pb.Value{
			"decision_id": {Kind: &pb.Value_StringValue{StringValue: record.DecisionID}},
			"source_hash": {Kind: &pb.Value_StringValue{StringValue: record.SourceHash}},
			"provider":    {Kind: &pb.Value_StringValue{StringValue: record.Provider}},
			"model":       {Kind: &pb.Value_StringValue{StringValue: record.Model}},
			"updated_at":  {Kind: &pb.Value_IntegerValue{IntegerValue: record.UpdatedAt.UnixMilli()}},
		},
	}

	_, err := v.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: v.collection,
		Points:         []*pb.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert: %w", err)
	}
	return nil
}

// Close releases the grpc connection.
func (v *VectorCache) Close() error {
	return v.conn.Close()
}

func (v *VectorCache) retrieve(ctx context.Context, decisionIDs []string) (map[string]retrieval.EmbeddingRecord, error) {
	out := make(map[string]retrieval.EmbeddingRecord)
	if len(decisionIDs) == 0 {
		return out, nil
	}

	ids := make([]*pb.PointId, len(decisionIDs))
	for i, id := range decisionIDs {
		ids[i] = &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: pointUUID(id)}}
	}

	resp, err := v.points.Get(ctx, &pb.GetPoints{
		CollectionName: v.collection,
		Ids:            ids,
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
		WithVectors:    &pb.WithVectorsSelector{SelectorOptions: &pb.WithVectorsSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant get: %w", err)
	}

	for _, pt := range resp.Result {
		rec := retrieval.EmbeddingRecord{
			DecisionID: pt.Payload["decision_id"].GetStringValue(),
			SourceHash: pt.Payload["source_hash"].GetStringValue(),
			Provider:   pt.Payload["provider"].GetStringValue(),
			Model:      pt.Payload["model"].GetStringValue(),
			UpdatedAt:  time.UnixMilli(pt.Payload["updated_at"].GetIntegerValue()).UTC(),
		}
		if vec := pt.Vectors.GetVector(); vec != nil {
			rec.Vector = vec.Data
			rec.Dimensions = len(vec.Data)
		}
		if rec.DecisionID == "" {
			continue
		}
		out[rec.DecisionID] = rec
	}
	return out, nil
}

// pointUUID maps a decision id onto a stable UUID-shaped point id.
func pointUUID(decisionID string) string {
	sum := sha256.Sum256([]byte("ancestry:" + decisionID))
	b := sum[:16]
	b[6] = (b[6] & 0x0f) | 0x50
	b[8] = (b[8] & 0x3f) | 0x80

	var out [36]byte
	hex.Encode(out[0:8], b[0:4])
	out[8] = '-'
	hex.Encode(out[9:13], b[4:6])
	out[13] = '-'
	hex.Encode(out[14:18], b[6:8])
	out[18] = '-'
	hex.Encode(out[19:23], b[8:10])
	out[23] = '-'
	hex.Encode(out[24:36], b[10:16])
	return string(out[:])
}
