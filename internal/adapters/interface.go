// Package adapters defines the contract every provider adapter implements
// and the registry used to construct them by name.
package adapters

import (
	"context"

	"alarm-relay/internal/common/http"
	"alarm-relay/internal/common/logging"
	"alarm-relay/internal/config"
	"alarm-relay/internal/models"
)

// Adapter translates alarm events into deliveries to one provider.
//
// OnLoad runs once before the first event; an error disables this adapter
// only. Run handles one event and never reports failure to its caller: every
// problem is logged inside the adapter. Run must be safe for concurrent
// calls with distinct events.
type Adapter interface {
	Name() string
	OnLoad(ctx context.Context) error
	Run(ctx context.Context, kind models.Kind, frequency string, event models.AlarmEvent)
}

// Dependencies are the shared, read-only collaborators handed to each
// adapter at construction
type Dependencies struct {
	Settings  *config.Settings
	Transport *http.Transport
	Logger    logging.Logger
}
