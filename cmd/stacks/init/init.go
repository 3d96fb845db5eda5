// Package initcmder provides the init command for initializing a local .stacks
// directory in the current working directory.
package initcmder

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/stacks/pkg/cliui"
	"github.com/papercomputeco/stacks/pkg/config"
)

const (
	dirName = ".stacks"
)

const initLongDesc string = `Initialize a new .stacks/ directory in the current working directory.

Creates a local .stacks/ directory that takes precedence over the default
~/.stacks/ directory for configuration and sqlitevec storage.

This is useful for maintaining a separate document store per project or
directory.

Use --preset to also write a config.toml preconfigured for a provider:
  ollama    Local ollama for embeddings and generation (default config)
  openai    OpenAI embeddings and generation
  gemini    Gemini embeddings and generation
  hosted    Gemini with OpenAI fallback

Examples:
  stacks init
  stacks init --preset gemini`

const initShortDesc string = "Initialize a local .stacks/ directory"

func NewInitCmd() *cobra.Command {
	var preset string

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runInit(preset)
		},
	}

	cmd.Flags().StringVar(&preset, "preset", "",
		fmt.Sprintf("Write a config.toml for a provider preset (%s)", strings.Join(config.ValidPresetNames(), ", ")))

	return cmd
}

func runInit(preset string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	info, statErr := os.Stat(dir)
	if statErr == nil && info.IsDir() {
		fmt.Printf("Already initialized: %s\n", dir)
	} else {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating .stacks directory: %w", err)
		}
		fmt.Printf("Initialized .stacks directory: %s\n", dir)
	}

	if preset == "" {
		return nil
	}

	cfg, err := config.PresetConfig(preset)
	if err != nil {
		return err
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfger.SaveConfig(cfg); err != nil {
		return fmt.Errorf("writing preset config: %w", err)
	}

	fmt.Printf("  %s Wrote %s preset to %s\n",
		cliui.SuccessMark,
		cliui.ValueStyle.Render(preset),
		cliui.DimStyle.Render(cfger.GetTarget()),
	)
	return nil
}
