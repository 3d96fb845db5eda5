// Package eventstreamutils constructs event publishers from configuration.
package eventstreamutils

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/papercomputeco/stacks/pkg/eventstream"
	"github.com/papercomputeco/stacks/pkg/eventstream/kafka"
	"github.com/papercomputeco/stacks/pkg/eventstream/nop"
)

type NewPublisherOpts struct {
	// Provider selects the backend: "kafka" or "nop".
	Provider string

	// Brokers is a comma-separated list of broker addresses for kafka.
	Brokers string

	// Topic is the topic to publish to.
	Topic string

	Logger *slog.Logger
}

// NewPublisher creates the configured event publisher. An empty provider
// defaults to the no-op publisher.
func NewPublisher(o *NewPublisherOpts) (eventstream.Publisher, error) {
	switch o.Provider {
	case "", "nop":
		return nop.NewPublisher(), nil
	case "kafka":
		brokers := make([]string, 0)
		for _, b := range strings.Split(o.Brokers, ",") {
			b = strings.TrimSpace(b)
			if b != "" {
				brokers = append(brokers, b)
			}
		}
		return kafka.NewPublisher(kafka.Config{
			Brokers: brokers,
			Topic:   o.Topic,
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported eventstream provider: %s", o.Provider)
	}
}
