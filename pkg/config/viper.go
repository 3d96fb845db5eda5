package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/stacks/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the STACKS_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (STACKS_API_LISTEN, STACKS_EMBEDDING_MODEL, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: STACKS_API_LISTEN, STACKS_VECTOR_STORE_PROVIDER, etc.
	v.SetEnvPrefix("STACKS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// ConfigFromViper materializes a Config from the viper precedence chain
// (flags, environment, config file, defaults).
func ConfigFromViper(v *viper.Viper) *Config {
	return &Config{
		Version: v.GetInt("version"),
		API: APIConfig{
			Listen:     v.GetString("api.listen"),
			MCPEnabled: v.GetBool("api.mcp_enabled"),
		},
		Client: ClientConfig{
			APITarget: v.GetString("client.api_target"),
		},
		VectorStore: VectorStoreConfig{
			Provider: v.GetString("vector_store.provider"),
			Target:   v.GetString("vector_store.target"),
			Path:     v.GetString("vector_store.path"),
		},
		Embedding: EmbeddingConfig{
			Providers:    v.GetString("embedding.providers"),
			Target:       v.GetString("embedding.target"),
			Model:        v.GetString("embedding.model"),
			Dimensions:   v.GetUint("embedding.dimensions"),
			OpenAIAPIKey: v.GetString("embedding.openai_api_key"),
			GeminiAPIKey: v.GetString("embedding.gemini_api_key"),
		},
		Generation: GenerationConfig{
			Providers:    v.GetString("generation.providers"),
			Target:       v.GetString("generation.target"),
			Model:        v.GetString("generation.model"),
			OpenAIAPIKey: v.GetString("generation.openai_api_key"),
			GeminiAPIKey: v.GetString("generation.gemini_api_key"),
		},
		Ingest: IngestConfig{
			ChunkSize:     v.GetInt("ingest.chunk_size"),
			MinTextLength: v.GetInt("ingest.min_text_length"),
			Workers:       v.GetInt("ingest.workers"),
			QueueSize:     v.GetInt("ingest.queue_size"),
		},
		Query: QueryConfig{
			MaxInFlight:    v.GetInt("query.max_in_flight"),
			ShardTimeoutMS: v.GetInt("query.shard_timeout_ms"),
			Mode:           v.GetString("query.mode"),
		},
		Events: EventsConfig{
			Provider: v.GetString("events.provider"),
			Brokers:  v.GetString("events.brokers"),
			Topic:    v.GetString("events.topic"),
		},
	}
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// API
	v.SetDefault("api.listen", d.API.Listen)
	v.SetDefault("api.mcp_enabled", d.API.MCPEnabled)

	// Client
	v.SetDefault("client.api_target", d.Client.APITarget)

	// Vector store
	v.SetDefault("vector_store.provider", d.VectorStore.Provider)
	v.SetDefault("vector_store.target", d.VectorStore.Target)
	v.SetDefault("vector_store.path", d.VectorStore.Path)

	// Embedding
	v.SetDefault("embedding.providers", d.Embedding.Providers)
	v.SetDefault("embedding.target", d.Embedding.Target)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)
	v.SetDefault("embedding.openai_api_key", d.Embedding.OpenAIAPIKey)
	v.SetDefault("embedding.gemini_api_key", d.Embedding.GeminiAPIKey)

	// Generation
	v.SetDefault("generation.providers", d.Generation.Providers)
	v.SetDefault("generation.target", d.Generation.Target)
	v.SetDefault("generation.model", d.Generation.Model)
	v.SetDefault("generation.openai_api_key", d.Generation.OpenAIAPIKey)
	v.SetDefault("generation.gemini_api_key", d.Generation.GeminiAPIKey)

	// Ingest
	v.SetDefault("ingest.chunk_size", d.Ingest.ChunkSize)
	v.SetDefault("ingest.min_text_length", d.Ingest.MinTextLength)
	v.SetDefault("ingest.workers", d.Ingest.Workers)
	v.SetDefault("ingest.queue_size", d.Ingest.QueueSize)

	// Query
	v.SetDefault("query.max_in_flight", d.Query.MaxInFlight)
	v.SetDefault("query.shard_timeout_ms", d.Query.ShardTimeoutMS)
	v.SetDefault("query.mode", d.Query.Mode)

	// Events
	v.SetDefault("events.provider", d.Events.Provider)
	v.SetDefault("events.brokers", d.Events.Brokers)
	v.SetDefault("events.topic", d.Events.Topic)
}
