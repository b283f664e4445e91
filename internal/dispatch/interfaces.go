package dispatch

import (
	"context"

	"github.com/BarkinBalci/adclick-detector/internal/domain"
)

// Sink delivers a ClickEvent to one outbound channel.
type Sink interface {
	Name() string
	Send(ctx context.Context, event domain.ClickEvent) error
}

// OptionalSink is a sink whose integration may be absent.
type OptionalSink interface {
	Sink
	Available() bool
}

// Gate decides whether a named event may be sent now.
type Gate interface {
	ShouldSend(ctx context.Context, key string) bool
}

// IPLookup resolves the client's public IP address.
type IPLookup interface {
	LookupIP(ctx context.Context) string
}
