package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --api-target
// on "stacks ingest", "stacks query", and "stacks list").
type Flag struct {
	// Name is the long flag name (e.g. "chunk-size").
	Name string

	// Shorthand is the one-letter short flag (e.g. "c"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "ingest.chunk_size").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddIntFlag, AddUintFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagAPIListen       = "api-listen"
	FlagAPITarget       = "api-target"
	FlagVectorStoreProv = "vector-store-provider"
	FlagVectorStoreTgt  = "vector-store-target"
	FlagVectorStorePath = "vector-store-path"
	FlagEmbeddingProvs  = "embedding-providers"
	FlagEmbeddingTgt    = "embedding-target"
	FlagEmbeddingModel  = "embedding-model"
	FlagEmbeddingDims   = "embedding-dimensions"
	FlagGenerationProvs = "generation-providers"
	FlagGenerationTgt   = "generation-target"
	FlagGenerationModel = "generation-model"
	FlagChunkSize       = "chunk-size"
	FlagWorkers         = "workers"
	FlagMaxInFlight     = "max-in-flight"
	FlagQueryMode       = "query-mode"
	FlagEventsProvider  = "events-provider"
	FlagEventsBrokers   = "events-brokers"
)

// Flags is the canonical flag registry shared across commands.
var Flags = FlagSet{
	FlagAPIListen:       {Name: FlagAPIListen, Shorthand: "a", ViperKey: "api.listen", Description: "Address for the API server to listen on"},
	FlagAPITarget:       {Name: FlagAPITarget, ViperKey: "client.api_target", Description: "Stacks API server URL"},
	FlagVectorStoreProv: {Name: FlagVectorStoreProv, ViperKey: "vector_store.provider", Description: "Vector store provider (sqlitevec, chroma, qdrant, inmemory)"},
	FlagVectorStoreTgt:  {Name: FlagVectorStoreTgt, ViperKey: "vector_store.target", Description: "Vector store server URL or host:port"},
	FlagVectorStorePath: {Name: FlagVectorStorePath, ViperKey: "vector_store.path", Description: "Database file path for the sqlitevec provider"},
	FlagEmbeddingProvs:  {Name: FlagEmbeddingProvs, ViperKey: "embedding.providers", Description: "Comma-separated embedding provider fallback order"},
	FlagEmbeddingTgt:    {Name: FlagEmbeddingTgt, ViperKey: "embedding.target", Description: "Base URL for self-hosted embedding providers"},
	FlagEmbeddingModel:  {Name: FlagEmbeddingModel, ViperKey: "embedding.model", Description: "Embedding model name"},
	FlagEmbeddingDims:   {Name: FlagEmbeddingDims, ViperKey: "embedding.dimensions", Description: "Embedding vector width"},
	FlagGenerationProvs: {Name: FlagGenerationProvs, ViperKey: "generation.providers", Description: "Comma-separated generation provider fallback order"},
	FlagGenerationTgt:   {Name: FlagGenerationTgt, ViperKey: "generation.target", Description: "Base URL for self-hosted generation providers"},
	FlagGenerationModel: {Name: FlagGenerationModel, ViperKey: "generation.model", Description: "Generation model name"},
	FlagChunkSize:       {Name: FlagChunkSize, ViperKey: "ingest.chunk_size", Description: "Chunk size in runes"},
	FlagWorkers:         {Name: FlagWorkers, ViperKey: "ingest.workers", Description: "Number of background ingest workers"},
	FlagMaxInFlight:     {Name: FlagMaxInFlight, ViperKey: "query.max_in_flight", Description: "Maximum concurrent per-collection queries"},
	FlagQueryMode:       {Name: FlagQueryMode, ViperKey: "query.mode", Description: "Federated query mode (vector, text)"},
	FlagEventsProvider:  {Name: FlagEventsProvider, ViperKey: "events.provider", Description: "Event stream provider (nop, kafka)"},
	FlagEventsBrokers:   {Name: FlagEventsBrokers, ViperKey: "events.brokers", Description: "Comma-separated kafka broker addresses"},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddIntFlag registers an int flag on cmd from the given FlagSet.
func AddIntFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *int) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultInt(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().IntVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().IntVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultInt returns the default int value for a viper key from NewDefaultConfig.
func defaultInt(viperKey string) int {
	v := viper.New()
	setViperDefaults(v)
	return v.GetInt(viperKey)
}

// defaultUint returns the default uint value for a viper key from NewDefaultConfig.
func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}
