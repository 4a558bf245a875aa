package services

import "context"

// QueryService answers questions from a bot's knowledge base
type QueryService interface {
	// Ask serves the public query path: key lookup, status gate, quota,
	// retrieval, generation, then accounting.
	Ask(ctx context.Context, apiKey, question string) (string, error)

	// AskDemo lets an owner try their own bot from the dashboard. The
	// status gate is skipped; quota is charged as usual.
	AskDemo(ctx context.Context, ownerID, botID, question string) (string, error)
}
