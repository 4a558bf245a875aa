package bots

import (
	"context"

	"botcraft/internal/rag/vectorindex"
)

// Loader extracts text from a bot's source.
type Loader interface {
	LoadPDF(ctx context.Context, data []byte) (string, error)
	LoadURL(ctx context.Context, pageURL string) (string, error)
}

// Splitter cuts source text into chunks.
type Splitter interface {
	Split(text string) []string
}

// DocumentEmbedder embeds chunks for storage.
type DocumentEmbedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorStore is the write side of the tenant-scoped index.
type VectorStore interface {
	Upsert(ctx context.Context, tenant vectorindex.TenantKey, records []vectorindex.Record) error
	DeleteAll(ctx context.Context, tenant vectorindex.TenantKey) error
}

// Retriever finds the chunks closest to a question.
type Retriever interface {
	Retrieve(ctx context.Context, tenant vectorindex.TenantKey, question string, k int) ([]vectorindex.Match, error)
}

// Answerer turns retrieved chunks into a grounded answer.
type Answerer interface {
	Answer(ctx context.Context, question string, chunks []vectorindex.Match) (string, error)
}
