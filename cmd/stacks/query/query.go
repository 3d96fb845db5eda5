// Package querycmder provides the query command for federated document search.
package querycmder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/stacks/api"
	"github.com/papercomputeco/stacks/pkg/config"
	"github.com/papercomputeco/stacks/pkg/vector"
)

var (
	rankStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	distanceStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	chunkStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	docStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	previewStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	headerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type queryCommander struct {
	query      string
	topK       int
	collection string
	quiet      bool

	apiTarget string
}

const queryLongDesc string = `Search ingested documents via the Stacks API.

Queries fan out across every document collection concurrently and the
results are merged by distance (lower is closer). Requires a running
Stacks API server.

Use --collection to scope the search to a single document's collection
instead of federating across all of them.

Use --quiet to output only chunk IDs, one per line, for piping into
other commands.

Examples:
  stacks query "quarterly revenue targets"
  stacks query "error handling" --top 10
  stacks query "migration plan" --collection doc_roadmap_9f8e7d6c
  stacks query "deadline" --api-target http://localhost:8081`

const queryShortDesc string = "Search ingested documents"

func NewQueryCmd() *cobra.Command {
	cmder := &queryCommander{}

	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: queryShortDesc,
		Long:  queryLongDesc,
		Args:  cobra.ExactArgs(1),
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
		RunE: func(_ *cobra.Command, args []string) error {
			cmder.query = args[0]
			return cmder.run()
		},
	}

	defaults := config.NewDefaultConfig()
	cmd.Flags().IntVarP(&cmder.topK, "top", "k", 5, "Number of results to return")
	cmd.Flags().StringVarP(&cmder.collection, "collection", "c", "", "Scope the search to a single collection")
	cmd.Flags().BoolVarP(&cmder.quiet, "quiet", "q", false, "Output only chunk IDs, one per line (for piping)")
	cmd.Flags().StringVar(&cmder.apiTarget, "api-target", defaults.Client.APITarget, "Stacks API server URL")

	return cmd
}

func (c *queryCommander) run() error {
	output, err := QueryAPI(c.apiTarget, c.query, c.topK, c.collection)
	if err != nil {
		return err
	}

	if output.Count == 0 {
		if !c.quiet {
			fmt.Println("No results found.")
		}
		return nil
	}

	if c.quiet {
		for _, result := range output.Results {
			fmt.Println(result.ID)
		}
		return nil
	}

	fmt.Printf("\n%s %s\n\n",
		headerStyle.Render("Results for:"),
		chunkStyle.Render(fmt.Sprintf("%q", output.Query)),
	)

	for i, result := range output.Results {
		printResult(i+1, result)
	}

	return nil
}

func printResult(rank int, result vector.QueryResult) {
	fmt.Printf("  %s  %s  %s\n",
		rankStyle.Render(fmt.Sprintf("#%d", rank)),
		distanceStyle.Render(fmt.Sprintf("distance: %.4f", result.Distance)),
		chunkStyle.Render(result.ID),
	)

	if name := result.Metadata["original_name"]; name != "" {
		fmt.Printf("  %s %s\n",
			docStyle.Render(name),
			dimStyle.Render("("+result.Collection+")"),
		)
	} else {
		fmt.Printf("  %s\n", dimStyle.Render(result.Collection))
	}

	preview := result.Text
	if len(preview) > 160 {
		preview = preview[:157] + "..."
	}
	preview = strings.ReplaceAll(preview, "\n", " ")
	fmt.Printf("  %s\n\n", previewStyle.Render(preview))
}

// QueryAPI calls the stacks query API and returns the parsed output. An empty
// collection federates across all document collections; a non-empty one scopes
// the query to that collection.
// Exported so other commands can reuse it.
func QueryAPI(apiTarget, query string, topK int, collection string) (*api.QueryResponse, error) {
	payload, err := json.Marshal(api.QueryRequest{
		Query: query,
		Limit: topK,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	path := "/v1/query"
	if collection != "" {
		path = "/v1/collections/" + collection + "/query"
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost,
		apiTarget+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating query request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

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
		return nil, fmt.Errorf("query request failed (HTTP %d): %s", resp.StatusCode, string(body))
	}

	var output api.QueryResponse
	if err := json.Unmarshal(body, &output); err != nil {
		return nil, fmt.Errorf("failed to parse query response: %w", err)
	}

	return &output, nil
}
