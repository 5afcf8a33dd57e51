// Package bus carries flagged-entity events from the search pipeline
// to the alert worker, in-process for Community and over NATS for Pro.
package bus

import (
	"fmt"
	"strings"

	"github.com/opensource-finance/harrier/internal/domain"
)

// New creates an event bus from configuration. An unset type falls
// back to the in-process channel bus so a bare Community config still
// delivers alerts.
func New(cfg domain.EventBusConfig) (domain.EventBus, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case "channel", "":
		return NewChannelBus(cfg.ChannelBufferSize), nil

	case "nats":
		return NewNATSBus(cfg)

	default:
		return nil, fmt.Errorf("unsupported event bus type: %s", cfg.Type)
	}
}
