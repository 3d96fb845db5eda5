// Package listcmder provides the list command for enumerating ingested documents.
package listcmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/stacks/pkg/config"
	"github.com/papercomputeco/stacks/pkg/federation"
)

var (
	nameStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	idStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	collectionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	dimStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type listCommander struct {
	quiet bool

	apiTarget string
}

const listLongDesc string = `List all ingested documents via the Stacks API.

Shows each document's name, ID, collection, chunk count, and upload time.
Requires a running Stacks API server.

Use --quiet to output only document IDs, one per line. This is useful
for piping into other commands:
  stacks list --quiet | head -1 | xargs -I{} curl -X DELETE $API/v1/documents/{}

Examples:
  stacks list
  stacks list --api-target http://localhost:8081
  stacks list --quiet`

const listShortDesc string = "List ingested documents"

func NewListCmd() *cobra.Command {
	cmder := &listCommander{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: listShortDesc,
		Long:  listLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			cfger, err := config.NewConfiger(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			cfg, err := cfger.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			if !cmd.Flags().Changed("api-target") {
				cmder.apiTarget = cfg.Client.APITarget
			}
			return nil
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			return cmder.run()
		},
	}

	defaults := config.NewDefaultConfig()
	cmd.Flags().BoolVarP(&cmder.quiet, "quiet", "q", false, "Output only document IDs, one per line (for piping)")
	cmd.Flags().StringVar(&cmder.apiTarget, "api-target", defaults.Client.APITarget, "Stacks API server URL")

	return cmd
}

func (c *listCommander) run() error {
	output, err := ListAPI(c.apiTarget)
	if err != nil {
		return err
	}

	if output.Count == 0 {
		if !c.quiet {
			fmt.Println("No documents ingested.")
		}
		return nil
	}

	if c.quiet {
		for _, doc := range output.Documents {
			fmt.Println(doc.DocumentID)
		}
		return nil
	}

	fmt.Printf("\n%d document(s)\n\n", output.Count)

	for _, doc := range output.Documents {
		fmt.Printf("  %s  %s\n",
			nameStyle.Render(doc.OriginalName),
			idStyle.Render(doc.DocumentID),
		)

		uploaded := ""
		if !doc.UploadedAt.IsZero() {
			uploaded = "  uploaded " + doc.UploadedAt.Format("2006-01-02 15:04")
		}
		fmt.Printf("  %s%s\n\n",
			collectionStyle.Render(fmt.Sprintf("%s, %d chunks", doc.CollectionName, doc.ChunkCount)),
			dimStyle.Render(uploaded),
		)
	}

	return nil
}

// ListOutput is the parsed body of the document list endpoint.
type ListOutput struct {
	Count     int                   `json:"count"`
	Documents []federation.Document `json:"documents"`
}

// ListAPI calls the stacks document list API and returns the parsed output.
func ListAPI(apiTarget string) (*ListOutput, error) {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet,
		apiTarget+"/v1/documents", nil)
	if err != nil {
		return nil, fmt.Errorf("creating list request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Stacks API at %s: %w", apiTarget, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list request failed (HTTP %d): %s", resp.StatusCode, string(body))
	}

	var output ListOutput
	if err := json.Unmarshal(body, &output); err != nil {
		return nil, fmt.Errorf("failed to parse list response: %w", err)
	}

	return &output, nil
}
