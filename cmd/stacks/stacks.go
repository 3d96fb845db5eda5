// Package stackscmder
package stackscmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/papercomputeco/stacks/cmd/stacks/config"
	generatecmder "github.com/papercomputeco/stacks/cmd/stacks/generate"
	ingestcmder "github.com/papercomputeco/stacks/cmd/stacks/ingest"
	initcmder "github.com/papercomputeco/stacks/cmd/stacks/init"
	listcmder "github.com/papercomputeco/stacks/cmd/stacks/list"
	querycmder "github.com/papercomputeco/stacks/cmd/stacks/query"
	servecmder "github.com/papercomputeco/stacks/cmd/stacks/serve"
	versioncmder "github.com/papercomputeco/stacks/cmd/version"
)

const stacksLongDesc string = `Stacks is a federated vector document store.

Every ingested document gets its own vector collection; queries fan out
across all of them concurrently and merge the results.

Common commands:
  stacks serve            Run the API server
  stacks ingest <file>    Upload a document for chunking and embedding
  stacks query <text>     Search across all ingested documents
  stacks list             List ingested documents`

const stacksShortDesc string = "Stacks - Federated Document Search"

func NewStacksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stacks",
		Short: stacksShortDesc,
		Long:  stacksLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .stacks/ config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(ingestcmder.NewIngestCmd())
	cmd.AddCommand(querycmder.NewQueryCmd())
	cmd.AddCommand(listcmder.NewListCmd())
	cmd.AddCommand(generatecmder.NewGenerateCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
