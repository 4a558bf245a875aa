package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/pinecone-io/go-pinecone/pinecone"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	textAttribute = "text"

	// request size limit is 2MB; chunks carry their text as metadata
	pineconeUpsertBatch = 100
)

// PineconeConfig selects a serverless or pod index. Host skips the
// DescribeIndex lookup when set.
type PineconeConfig struct {
	APIKey string
	Index  string
	Host   string
}

type pineconeBackend struct {
	conn *pinecone.IndexConnection
}

// NewPinecone connects to an existing cosine-metric Pinecone index. Tenants
// share the index and are separated by a tenant_key metadata filter.
func NewPinecone(ctx context.Context, cfg PineconeConfig, dimensions int, logger *slog.Logger) (*Index, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("pinecone api key is required")
	}
	client, err := pinecone.NewClient(pinecone.NewClientParams{ApiKey: cfg.APIKey, SourceTag: "botcraft"})
	if err != nil {
		return nil, fmt.Errorf("create pinecone client: %w", err)
	}

	host := cfg.Host
	if host == "" {
		desc, err := client.DescribeIndex(ctx, cfg.Index)
		if err != nil {
			return nil, fmt.Errorf("describe pinecone index %s: %w", cfg.Index, err)
		}
		if desc.Metric != pinecone.Cosine {
			return nil, fmt.Errorf("pinecone index %s uses %s, cosine is required", cfg.Index, desc.Metric)
		}
		if dimensions > 0 && int(desc.Dimension) != dimensions {
			return nil, fmt.Errorf("pinecone index %s has %d dimensions, embedder produces %d", cfg.Index, desc.Dimension, dimensions)
		}
		host = desc.Host
	}

	conn, err := client.Index(pinecone.NewIndexConnParams{Host: host})
	if err != nil {
		return nil, fmt.Errorf("connect pinecone index %s: %w", cfg.Index, err)
	}
	return newIndex("pinecone", &pineconeBackend{conn: conn}, dimensions, logger), nil
}

func (b *pineconeBackend) upsert(ctx context.Context, tenant string, records []Record) error {
	vectors := make([]*pinecone.Vector, len(records))
	for i, r := range records {
		md, err := structpb.NewStruct(map[string]any{
			tenantAttribute: tenant,
			sourceAttribute: r.Source,
			textAttribute:   r.Text,
		})
		if err != nil {
			return fmt.Errorf("%w: metadata: %v", ErrIndexRejected, err)
		}
		vectors[i] = &pinecone.Vector{Id: uuid.NewString(), Values: r.Vector, Metadata: md}
	}

	var written []string
	for _, batch := range upsertBatches(vectors, pineconeUpsertBatch) {
		if _, err := b.conn.UpsertVectors(ctx, batch); err != nil {
			b.rollback(ctx, written)
			return classify(err, isPineconeRejection)
		}
		for _, v := range batch {
			written = append(written, v.Id)
		}
	}
	return nil
}

// rollback removes the batches that landed before a failed one.
func (b *pineconeBackend) rollback(ctx context.Context, ids []string) {
	if len(ids) == 0 {
		return
	}
	_ = b.conn.DeleteVectorsById(context.WithoutCancel(ctx), ids)
}

func (b *pineconeBackend) query(ctx context.Context, tenant string, vector []float32, k int) ([]Match, error) {
	filter, err := tenantFilter(tenant)
	if err != nil {
		return nil, err
	}
	res, err := b.conn.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          vector,
		TopK:            uint32(k),
		MetadataFilter:  filter,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, classify(err, isPineconeRejection)
	}

	matches := make([]Match, 0, len(res.Matches))
	for _, sv := range res.Matches {
		if sv == nil || sv.Vector == nil {
			continue
		}
		matches = append(matches, pineconeMatch(sv.Vector.Metadata, sv.Score))
	}
	return matches, nil
}

func (b *pineconeBackend) deleteAll(ctx context.Context, tenant string) error {
	filter, err := tenantFilter(tenant)
	if err != nil {
		return err
	}
	return classify(b.conn.DeleteVectorsByFilter(ctx, filter), isPineconeRejection)
}

func (b *pineconeBackend) close() error {
	return b.conn.Close()
}

func tenantFilter(tenant string) (*structpb.Struct, error) {
	filter, err := structpb.NewStruct(map[string]any{
		tenantAttribute: map[string]any{"$eq": tenant},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: tenant filter: %v", ErrIndexRejected, err)
	}
	return filter, nil
}

func pineconeMatch(md *structpb.Struct, score float32) Match {
	m := Match{Score: score}
	if md == nil {
		return m
	}
	m.Text = md.GetFields()[textAttribute].GetStringValue()
	m.Source = md.GetFields()[sourceAttribute].GetStringValue()
	return m
}

func upsertBatches[T any](items []T, size int) [][]T {
	var batches [][]T
	for len(items) > size {
		batches = append(batches, items[:size])
		items = items[size:]
	}
	if len(items) > 0 {
		batches = append(batches, items)
	}
	return batches
}

// isPineconeRejection treats gRPC client errors as permanent.
func isPineconeRejection(err error) bool {
	var se interface{ GRPCStatus() *status.Status }
	if errors.As(err, &se) {
		switch se.GRPCStatus().Code() {
		case codes.InvalidArgument, codes.NotFound, codes.FailedPrecondition,
			codes.OutOfRange, codes.PermissionDenied, codes.Unauthenticated:
			return true
		}
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "dimension")
}
