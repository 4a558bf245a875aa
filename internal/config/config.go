package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port          string
	Environment   string
	DatabaseURL   string
	TablePrefix   string
	CORSOrigins   string
	PublicBaseURL string
	LogDir        string

	// Session auth: JWKSURL wins over JWTSecret when both are set
	JWTSecret string
	JWKSURL   string

	// DemoMode swaps every external dependency for an in-process one
	DemoMode bool

	// Vector store
	VectorStore      string // pgvector | chroma | pinecone | memory
	ChromaURL        string
	ChromaCollection string
	PineconeAPIKey   string
	PineconeIndex    string
	PineconeHost     string

	// Embeddings
	EmbeddingProvider   string // cohere | openai | gemini | hash
	EmbeddingModel      string
	EmbeddingDimensions int
	CohereAPIKey        string
	OpenAIAPIKey        string
	OpenAIBaseURL       string
	GeminiAPIKey        string

	// Answer generation
	LLMProvider     string // groq | anthropic | gemini | lorem
	LLMModel        string
	GroqAPIKey      string
	AnthropicAPIKey string
	LLMTimeout      time.Duration

	// Ingest and retrieval
	ChunkSize        int
	ChunkOverlap     int
	RetrievalTopK    int
	MinSimilarity    float64
	URLRenderer      string // chromedp | static
	FetchTimeout     time.Duration
	UnidocLicenseKey string

	// QuotaLeaseTTL is how long an unsettled reservation holds a unit
	QuotaLeaseTTL time.Duration

	PaymentWebhookSecret string
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")
	demo := getEnv("DEMO_MODE", "false") == "true"

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		Environment:   env,
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		TablePrefix:   getTablePrefix(env),
		CORSOrigins:   getEnv("CORS_ORIGINS", "http://localhost:3000"),
		PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		LogDir:        getEnv("LOG_DIR", ""),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWKSURL:   getEnv("JWKS_URL", ""),

		DemoMode: demo,

		VectorStore:      getEnv("VECTOR_STORE", "pgvector"),
		ChromaURL:        getEnv("CHROMA_URL", "http://localhost:8000"),
		ChromaCollection: getEnv("CHROMA_COLLECTION", "botcraft"),
		PineconeAPIKey:   getEnv("PINECONE_API_KEY", ""),
		PineconeIndex:    getEnv("PINECONE_INDEX", "botcraft"),
		PineconeHost:     getEnv("PINECONE_HOST", ""),

		EmbeddingProvider:   getEnv("EMBEDDING_PROVIDER", "cohere"),
		EmbeddingModel:      getEnv("EMBEDDING_MODEL", ""),
		EmbeddingDimensions: getInt("EMBEDDING_DIMENSIONS", 1024),
		CohereAPIKey:        getEnv("COHERE_API_KEY", ""),
		OpenAIAPIKey:        getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:       getEnv("OPENAI_BASE_URL", ""),
		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),

		LLMProvider:     getEnv("LLM_PROVIDER", "groq"),
		LLMModel:        getEnv("LLM_MODEL", ""),
		GroqAPIKey:      getEnv("GROQ_API_KEY", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		LLMTimeout:      getDuration("LLM_TIMEOUT", 30*time.Second),

		ChunkSize:        getInt("CHUNK_SIZE", 500),
		ChunkOverlap:     getInt("CHUNK_OVERLAP", 100),
		RetrievalTopK:    getInt("RETRIEVAL_TOP_K", 3),
		MinSimilarity:    getFloat("MIN_SIMILARITY", 0),
		URLRenderer:      getEnv("URL_RENDERER", "chromedp"),
		FetchTimeout:     getDuration("FETCH_TIMEOUT", 30*time.Second),
		UnidocLicenseKey: getEnv("UNIDOC_LICENSE_KEY", ""),

		QuotaLeaseTTL: getDuration("QUOTA_LEASE_TTL", 5*time.Minute),

		PaymentWebhookSecret: getEnv("PAYMENT_WEBHOOK_SECRET", ""),
	}

	// demo mode is resolved once here, nothing downstream checks for keys
	if demo {
		cfg.VectorStore = "memory"
		cfg.EmbeddingProvider = "hash"
		cfg.EmbeddingDimensions = getInt("EMBEDDING_DIMENSIONS", 256)
		cfg.LLMProvider = "lorem"
		cfg.URLRenderer = "static"
	}
	return cfg
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return n
}

func getFloat(key string, defaultValue float64) float64 {
	f, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultValue
	}
	return f
}

// getDuration accepts Go durations ("45s") or plain seconds ("45").
func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
