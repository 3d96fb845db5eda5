package eventstream

import "context"

// Publisher publishes document events to an event stream backend.
type Publisher interface {
	PublishDocumentIngested(ctx context.Context, event *DocumentIngestedEvent) error
	Close() error
}
