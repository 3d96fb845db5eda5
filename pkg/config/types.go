package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent stacks configuration stored as config.toml
// in the .stacks/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	API         APIConfig         `toml:"api"`
	Client      ClientConfig      `toml:"client"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	Generation  GenerationConfig  `toml:"generation"`
	Ingest      IngestConfig      `toml:"ingest"`
	Query       QueryConfig       `toml:"query"`
	Events      EventsConfig      `toml:"events"`
}

// APIConfig holds API server settings. When MCPEnabled is true the server
// also mounts the MCP endpoint at /mcp on the same listener.
type APIConfig struct {
	Listen     string `toml:"listen,omitempty"`
	MCPEnabled bool   `toml:"mcp_enabled,omitempty"`
}

// ClientConfig holds settings for CLI commands that connect to the running
// API server (e.g. stacks ingest, stacks query, stacks list).
// Values are full URLs (scheme + host + port).
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
}

// VectorStoreConfig holds vector store settings. Target is the remote store
// URL (chroma, qdrant); Path is the database file for the sqlitevec driver.
type VectorStoreConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
	Path     string `toml:"path,omitempty"`
}

// EmbeddingConfig holds embedding provider settings. Providers is a
// comma-separated fallback order, tried left to right.
type EmbeddingConfig struct {
	Providers    string `toml:"providers,omitempty"`
	Target       string `toml:"target,omitempty"`
	Model        string `toml:"model,omitempty"`
	Dimensions   uint   `toml:"dimensions,omitempty"`
	OpenAIAPIKey string `toml:"openai_api_key,omitempty"`
	GeminiAPIKey string `toml:"gemini_api_key,omitempty"`
}

// GenerationConfig holds text generation provider settings. Providers is a
// comma-separated fallback order, tried left to right.
type GenerationConfig struct {
	Providers    string `toml:"providers,omitempty"`
	Target       string `toml:"target,omitempty"`
	Model        string `toml:"model,omitempty"`
	OpenAIAPIKey string `toml:"openai_api_key,omitempty"`
	GeminiAPIKey string `toml:"gemini_api_key,omitempty"`
}

// IngestConfig holds document ingestion settings.
type IngestConfig struct {
	ChunkSize     int `toml:"chunk_size,omitempty"`
	MinTextLength int `toml:"min_text_length,omitempty"`
	Workers       int `toml:"workers,omitempty"`
	QueueSize     int `toml:"queue_size,omitempty"`
}

// QueryConfig holds federated query settings. Mode selects how shards are
// queried: "vector" embeds the query text once and fans the vector out,
// "text" sends the raw text to drivers that support native text query.
type QueryConfig struct {
	MaxInFlight    int    `toml:"max_in_flight,omitempty"`
	ShardTimeoutMS int    `toml:"shard_timeout_ms,omitempty"`
	Mode           string `toml:"mode,omitempty"`
}

// EventsConfig holds event stream settings. Brokers is a comma-separated
// list of kafka bootstrap addresses; it is ignored by the nop provider.
type EventsConfig struct {
	Provider string `toml:"provider,omitempty"`
	Brokers  string `toml:"brokers,omitempty"`
	Topic    string `toml:"topic,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func uintKey(get func(c *Config) uint, set func(c *Config, n uint), name string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if get(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(get(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			set(c, uint(n))
			return nil
		},
	}
}

func intKey(get func(c *Config) int, set func(c *Config, n int), name string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if get(c) == 0 {
				return ""
			}
			return strconv.Itoa(get(c))
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			set(c, n)
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"api.listen": {
		get: func(c *Config) string { return c.API.Listen },
		set: func(c *Config, v string) error { c.API.Listen = v; return nil },
	},
	"api.mcp_enabled": {
		get: func(c *Config) string { return strconv.FormatBool(c.API.MCPEnabled) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for api.mcp_enabled: %w", err)
			}
			c.API.MCPEnabled = b
			return nil
		},
	},
	"client.api_target": {
		get: func(c *Config) string { return c.Client.APITarget },
		set: func(c *Config, v string) error { c.Client.APITarget = v; return nil },
	},
	"vector_store.provider": {
		get: func(c *Config) string { return c.VectorStore.Provider },
		set: func(c *Config, v string) error { c.VectorStore.Provider = v; return nil },
	},
	"vector_store.target": {
		get: func(c *Config) string { return c.VectorStore.Target },
		set: func(c *Config, v string) error { c.VectorStore.Target = v; return nil },
	},
	"vector_store.path": {
		get: func(c *Config) string { return c.VectorStore.Path },
		set: func(c *Config, v string) error { c.VectorStore.Path = v; return nil },
	},
	"embedding.providers": {
		get: func(c *Config) string { return c.Embedding.Providers },
		set: func(c *Config, v string) error { c.Embedding.Providers = v; return nil },
	},
	"embedding.target": {
		get: func(c *Config) string { return c.Embedding.Target },
		set: func(c *Config, v string) error { c.Embedding.Target = v; return nil },
	},
	"embedding.model": {
		get: func(c *Config) string { return c.Embedding.Model },
		set: func(c *Config, v string) error { c.Embedding.Model = v; return nil },
	},
	"embedding.dimensions": uintKey(
		func(c *Config) uint { return c.Embedding.Dimensions },
		func(c *Config, n uint) { c.Embedding.Dimensions = n },
		"embedding.dimensions",
	),
	"embedding.openai_api_key": {
		get: func(c *Config) string { return c.Embedding.OpenAIAPIKey },
		set: func(c *Config, v string) error { c.Embedding.OpenAIAPIKey = v; return nil },
	},
	"embedding.gemini_api_key": {
		get: func(c *Config) string { return c.Embedding.GeminiAPIKey },
		set: func(c *Config, v string) error { c.Embedding.GeminiAPIKey = v; return nil },
	},
	"generation.providers": {
		get: func(c *Config) string { return c.Generation.Providers },
		set: func(c *Config, v string) error { c.Generation.Providers = v; return nil },
	},
	"generation.target": {
		get: func(c *Config) string { return c.Generation.Target },
		set: func(c *Config, v string) error { c.Generation.Target = v; return nil },
	},
	"generation.model": {
		get: func(c *Config) string { return c.Generation.Model },
		set: func(c *Config, v string) error { c.Generation.Model = v; return nil },
	},
	"generation.openai_api_key": {
		get: func(c *Config) string { return c.Generation.OpenAIAPIKey },
		set: func(c *Config, v string) error { c.Generation.OpenAIAPIKey = v; return nil },
	},
	"generation.gemini_api_key": {
		get: func(c *Config) string { return c.Generation.GeminiAPIKey },
		set: func(c *Config, v string) error { c.Generation.GeminiAPIKey = v; return nil },
	},
	"ingest.chunk_size": intKey(
		func(c *Config) int { return c.Ingest.ChunkSize },
		func(c *Config, n int) { c.Ingest.ChunkSize = n },
		"ingest.chunk_size",
	),
	"ingest.min_text_length": intKey(
		func(c *Config) int { return c.Ingest.MinTextLength },
		func(c *Config, n int) { c.Ingest.MinTextLength = n },
		"ingest.min_text_length",
	),
	"ingest.workers": intKey(
		func(c *Config) int { return c.Ingest.Workers },
		func(c *Config, n int) { c.Ingest.Workers = n },
		"ingest.workers",
	),
	"ingest.queue_size": intKey(
		func(c *Config) int { return c.Ingest.QueueSize },
		func(c *Config, n int) { c.Ingest.QueueSize = n },
		"ingest.queue_size",
	),
	"query.max_in_flight": intKey(
		func(c *Config) int { return c.Query.MaxInFlight },
		func(c *Config, n int) { c.Query.MaxInFlight = n },
		"query.max_in_flight",
	),
	"query.shard_timeout_ms": intKey(
		func(c *Config) int { return c.Query.ShardTimeoutMS },
		func(c *Config, n int) { c.Query.ShardTimeoutMS = n },
		"query.shard_timeout_ms",
	),
	"query.mode": {
		get: func(c *Config) string { return c.Query.Mode },
		set: func(c *Config, v string) error { c.Query.Mode = v; return nil },
	},
	"events.provider": {
		get: func(c *Config) string { return c.Events.Provider },
		set: func(c *Config, v string) error { c.Events.Provider = v; return nil },
	},
	"events.brokers": {
		get: func(c *Config) string { return c.Events.Brokers },
		set: func(c *Config, v string) error { c.Events.Brokers = v; return nil },
	},
	"events.topic": {
		get: func(c *Config) string { return c.Events.Topic },
		set: func(c *Config, v string) error { c.Events.Topic = v; return nil },
	},
}
