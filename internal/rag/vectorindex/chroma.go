package vectorindex

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"
	"github.com/google/uuid"
)

const (
	tenantAttribute = "tenant_key"
	sourceAttribute = "source"
)

type chromaBackend struct {
	client     chromago.Client
	collection chromago.Collection
}

// NewChroma connects to a Chroma server and returns an index backed by one
// shared cosine-space collection.
func NewChroma(ctx context.Context, baseURL, collection string, dimensions int, logger *slog.Logger) (*Index, error) {
	client, err := chromago.NewHTTPClient(chromago.WithBaseURL(baseURL))
	if err != nil {
		return nil, fmt.Errorf("create chroma client: %w", err)
	}

	col, err := client.GetOrCreateCollection(ctx, collection,
		chromago.WithCollectionMetadataCreate(
			chromago.NewMetadata(
				chromago.NewStringAttribute("hnsw:space", "cosine"),
				chromago.NewStringAttribute("created_by", "botcraft"),
			),
		),
	)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("get or create collection %s: %w", collection, err)
	}

	return newIndex("chroma", &chromaBackend{client: client, collection: col}, dimensions, logger), nil
}

func (b *chromaBackend) upsert(ctx context.Context, tenant string, records []Record) error {
	ids := make([]chromago.DocumentID, len(records))
	texts := make([]string, len(records))
	vectors := make([]embeddings.Embedding, len(records))
	metadatas := make([]chromago.DocumentMetadata, len(records))

	for i, r := range records {
		ids[i] = chromago.DocumentID(uuid.NewString())
		texts[i] = r.Text
		vectors[i] = embeddings.NewEmbeddingFromFloat32(r.Vector)
		metadatas[i] = chromago.NewDocumentMetadata(
			chromago.NewStringAttribute(tenantAttribute, tenant),
			chromago.NewStringAttribute(sourceAttribute, r.Source),
		)
	}

	// a single add request is applied atomically by the server
	err := b.collection.Add(ctx,
		chromago.WithIDs(ids...),
		chromago.WithTexts(texts...),
		chromago.WithEmbeddings(vectors...),
		chromago.WithMetadatas(metadatas...),
	)
	return classify(err, isChromaRejection)
}

func (b *chromaBackend) query(ctx context.Context, tenant string, vector []float32, k int) ([]Match, error) {
	results, err := b.collection.Query(ctx,
		chromago.WithQueryEmbeddings(embeddings.NewEmbeddingFromFloat32(vector)),
		chromago.WithNResults(k),
		chromago.WithWhereQuery(chromago.EqString(tenantAttribute, tenant)),
	)
	if err != nil {
		return nil, classify(err, isChromaRejection)
	}

	documentGroups := results.GetDocumentsGroups()
	if len(documentGroups) == 0 {
		return []Match{}, nil
	}
	metadataGroups := results.GetMetadatasGroups()
	distanceGroups := results.GetDistancesGroups()

	matches := make([]Match, 0, len(documentGroups[0]))
	for i, doc := range documentGroups[0] {
		m := Match{Text: doc.ContentString()}
		if len(metadataGroups) > 0 && i < len(metadataGroups[0]) {
			if md := metadataGroups[0][i]; md != nil {
				m.Source, _ = md.GetString(sourceAttribute)
			}
		}
		if len(distanceGroups) > 0 && i < len(distanceGroups[0]) {
			// cosine distance to similarity
			m.Score = 1 - float32(distanceGroups[0][i])
		}
		matches = append(matches, m)
	}
	return matches, nil
}

func (b *chromaBackend) deleteAll(ctx context.Context, tenant string) error {
	err := b.collection.Delete(ctx, chromago.WithWhereDelete(chromago.EqString(tenantAttribute, tenant)))
	return classify(err, isChromaRejection)
}

func (b *chromaBackend) close() error {
	return b.client.Close()
}

// isChromaRejection treats client-side HTTP status errors as permanent.
func isChromaRejection(err error) bool {
	msg := err.Error()
	for _, code := range []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict, http.StatusUnprocessableEntity} {
		if strings.Contains(msg, fmt.Sprintf("%d", code)) {
			return true
		}
	}
	return strings.Contains(strings.ToLower(msg), "dimension")
}
