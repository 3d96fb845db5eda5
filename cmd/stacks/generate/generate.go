// Package generatecmder provides the generate command for grounded answers.
package generatecmder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/stacks/api"
	"github.com/papercomputeco/stacks/pkg/cliui"
	"github.com/papercomputeco/stacks/pkg/config"
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	chunkStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type generateCommander struct {
	prompt string
	topK   int
	plain  bool

	apiTarget string
}

const generateLongDesc string = `Generate a grounded answer from ingested documents.

Retrieves the most relevant chunks across all document collections and
asks the configured generation provider to answer using them as context.
Requires a running Stacks API server with generation configured.

The answer is rendered as markdown; use --plain to print the raw text.

Examples:
  stacks generate "what were the action items from the March meeting?"
  stacks generate "summarize the migration plan" --top 10
  stacks generate "who owns the rollout?" --plain`

const generateShortDesc string = "Generate a grounded answer"

func NewGenerateCmd() *cobra.Command {
	cmder := &generateCommander{}

	cmd := &cobra.Command{
		Use:   "generate <prompt>",
		Short: generateShortDesc,
		Long:  generateLongDesc,
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
			cmder.prompt = args[0]
			return cmder.run()
		},
	}

	defaults := config.NewDefaultConfig()
	cmd.Flags().IntVarP(&cmder.topK, "top", "k", 5, "Number of chunks to ground the answer on")
	cmd.Flags().BoolVar(&cmder.plain, "plain", false, "Print the raw answer without markdown rendering")
	cmd.Flags().StringVar(&cmder.apiTarget, "api-target", defaults.Client.APITarget, "Stacks API server URL")

	return cmd
}

func (c *generateCommander) run() error {
	output, err := GenerateAPI(c.apiTarget, c.prompt, c.topK)
	if err != nil {
		return err
	}

	if c.plain {
		fmt.Println(output.Answer)
	} else {
		rendered, err := cliui.RenderMarkdown(output.Answer)
		if err != nil {
			// Fall back to the raw answer when the terminal renderer fails.
			rendered = output.Answer
		}
		fmt.Println(rendered)
	}

	if len(output.Sources) > 0 {
		fmt.Printf("%s\n", headerStyle.Render("Sources:"))
		for _, source := range output.Sources {
			name := source.Metadata["original_name"]
			if name == "" {
				name = source.Collection
			}
			fmt.Printf("  %s %s\n",
				chunkStyle.Render(source.ID),
				dimStyle.Render(name),
			)
		}
		fmt.Println()
	}

	return nil
}

// GenerateAPI calls the stacks generate API and returns the parsed output.
func GenerateAPI(apiTarget, prompt string, topK int) (*api.GenerateResponse, error) {
	payload, err := json.Marshal(api.GenerateRequest{
		Prompt: prompt,
		Limit:  topK,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost,
		apiTarget+"/v1/generate", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating generate request: %w", err)
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
		return nil, fmt.Errorf("generate request failed (HTTP %d): %s", resp.StatusCode, string(body))
	}

	var output api.GenerateResponse
	if err := json.Unmarshal(body, &output); err != nil {
		return nil, fmt.Errorf("failed to parse generate response: %w", err)
	}

	return &output, nil
}
