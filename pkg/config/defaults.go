package config

const (
	defaultAPIListen       = ":8081"
	defaultClientAPITarget = "http://localhost:8081"

	defaultVectorProvider = "sqlitevec"

	defaultProviderChain   = "ollama"
	defaultProviderTarget  = "http://localhost:11434"
	defaultEmbeddingModel  = "embeddinggemma"
	defaultEmbeddingDims   = 768
	defaultGenerationModel = "llama3.2"

	defaultChunkSize     = 1000
	defaultMinTextLength = 10
	defaultWorkers       = 4
	defaultQueueSize     = 64

	defaultMaxInFlight    = 8
	defaultShardTimeoutMS = 5000
	defaultQueryMode      = "vector"

	defaultEventsProvider = "nop"
	defaultEventsTopic    = "stacks.document.ingested"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		API: APIConfig{
			Listen:     defaultAPIListen,
			MCPEnabled: true,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
		VectorStore: VectorStoreConfig{
			Provider: defaultVectorProvider,
		},
		Embedding: EmbeddingConfig{
			Providers:  defaultProviderChain,
			Target:     defaultProviderTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDims,
		},
		Generation: GenerationConfig{
			Providers: defaultProviderChain,
			Target:    defaultProviderTarget,
			Model:     defaultGenerationModel,
		},
		Ingest: IngestConfig{
			ChunkSize:     defaultChunkSize,
			MinTextLength: defaultMinTextLength,
			Workers:       defaultWorkers,
			QueueSize:     defaultQueueSize,
		},
		Query: QueryConfig{
			MaxInFlight:    defaultMaxInFlight,
			ShardTimeoutMS: defaultShardTimeoutMS,
			Mode:           defaultQueryMode,
		},
		Events: EventsConfig{
			Provider: defaultEventsProvider,
			Topic:    defaultEventsTopic,
		},
	}
}
