package main

import (
	"os"

	servecmder "github.com/papercomputeco/stacks/cmd/stacks/serve"
)

func main() {
	cmd := servecmder.NewServeCmd()
	cmd.Use = "stacksapi"
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .stacks/ config directory")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
