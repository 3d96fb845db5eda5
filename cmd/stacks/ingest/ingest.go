// Package ingestcmder provides the ingest command for uploading documents.
package ingestcmder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/stacks/api"
	"github.com/papercomputeco/stacks/pkg/cliui"
	"github.com/papercomputeco/stacks/pkg/config"
)

type ingestCommander struct {
	filePath string
	name     string

	apiTarget string
}

const ingestLongDesc string = `Upload a document to the Stacks API for ingestion.

The document is chunked, embedded, and written to its own vector
collection in the background. The command returns as soon as the server
accepts the upload; use 'stacks list' to confirm the document appears.

By default the document name is the file's base name; override it with
--name.

Examples:
  stacks ingest report.txt
  stacks ingest notes/meeting.md --name "March planning meeting"
  stacks ingest report.txt --api-target http://localhost:8081`

const ingestShortDesc string = "Upload a document for ingestion"

func NewIngestCmd() *cobra.Command {
	cmder := &ingestCommander{}

	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: ingestShortDesc,
		Long:  ingestLongDesc,
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
			cmder.filePath = args[0]
			return cmder.run()
		},
	}

	defaults := config.NewDefaultConfig()
	cmd.Flags().StringVarP(&cmder.name, "name", "n", "", "Document name (default: file base name)")
	cmd.Flags().StringVar(&cmder.apiTarget, "api-target", defaults.Client.APITarget, "Stacks API server URL")

	return cmd
}

func (c *ingestCommander) run() error {
	text, err := os.ReadFile(c.filePath)
	if err != nil {
		return fmt.Errorf("reading document: %w", err)
	}

	name := c.name
	if name == "" {
		name = filepath.Base(c.filePath)
	}

	resp, err := IngestAPI(c.apiTarget, name, string(text))
	if err != nil {
		return err
	}

	fmt.Printf("\n  %s Queued %s\n",
		cliui.SuccessMark,
		cliui.ValueStyle.Render(name),
	)
	fmt.Printf("  %s %s\n\n",
		cliui.KeyStyle.Render("Document ID:"),
		cliui.DimStyle.Render(resp.DocumentID),
	)
	return nil
}

// IngestAPI uploads a document to the stacks API and returns the parsed
// acknowledgement.
func IngestAPI(apiTarget, name, text string) (*api.IngestResponse, error) {
	payload, err := json.Marshal(api.IngestRequest{
		Name: name,
		Text: text,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost,
		apiTarget+"/v1/documents", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating ingest request: %w", err)
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

	if resp.StatusCode != http.StatusAccepted {
		return nil, fmt.Errorf("ingest request failed (HTTP %d): %s", resp.StatusCode, string(body))
	}

	var output api.IngestResponse
	if err := json.Unmarshal(body, &output); err != nil {
		return nil, fmt.Errorf("failed to parse ingest response: %w", err)
	}

	return &output, nil
}
