// Package vectorutils constructs vector drivers from configuration.
package vectorutils

import (
	"fmt"
	"log/slog"

	"github.com/papercomputeco/stacks/pkg/vector"
	"github.com/papercomputeco/stacks/pkg/vector/chroma"
	"github.com/papercomputeco/stacks/pkg/vector/inmemory"
	"github.com/papercomputeco/stacks/pkg/vector/qdrantvec"
	"github.com/papercomputeco/stacks/pkg/vector/sqlitevec"
)

type NewDriverOpts struct {
	// Provider selects the driver: "chroma", "qdrant", "sqlitevec" or
	// "inmemory".
	Provider string

	// Target is the server address for networked providers.
	Target string

	// Path is the database file path for sqlitevec.
	Path string

	Logger *slog.Logger
}

// NewDriver creates the configured vector driver.
func NewDriver(o *NewDriverOpts) (vector.Driver, error) {
	switch o.Provider {
	case "chroma":
		return chroma.NewDriver(chroma.Config{
			URL: o.Target,
		}, o.Logger)
	case "qdrant":
		return qdrantvec.NewDriver(qdrantvec.Config{
			Target: o.Target,
		}, o.Logger)
	case "sqlitevec":
		return sqlitevec.NewDriver(sqlitevec.Config{
			DBPath: o.Path,
		}, o.Logger)
	case "inmemory":
		return inmemory.NewDriver(o.Logger), nil
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.Provider)
	}
}
