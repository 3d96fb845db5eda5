// Package configcmder provides the config command for managing persistent
// stacks configuration stored in the .stacks/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent stacks configuration.

Configuration is stored as config.toml in the .stacks/ directory and provides
default values for command flags. CLI flags always take precedence over
config file values, and STACKS_* environment variables sit between the two.

Keys use dotted notation matching the TOML section structure:
  api.listen, api.mcp_enabled,
  client.api_target,
  vector_store.provider, vector_store.target, vector_store.path,
  embedding.providers, embedding.target, embedding.model, embedding.dimensions,
  generation.providers, generation.target, generation.model,
  ingest.chunk_size, ingest.workers,
  query.max_in_flight, query.mode,
  events.provider, events.brokers, events.topic

Use subcommands to get, set, or list configuration values:
  stacks config set <key> <value>    Set a configuration value
  stacks config get <key>            Get a configuration value
  stacks config list                 List all configuration values

Examples:
  stacks config set vector_store.provider qdrant
  stacks config set embedding.model nomic-embed-text
  stacks config get query.mode
  stacks config list`

const configShortDesc string = "Manage persistent stacks configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
