// Package counter persists the integer counters the detector keeps across page loads: the
// global click count and the dedup window indices.
package counter

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Key under which the global click count is stored.
const TotalClickCountKey = "adClickTotalCount"

// ErrStoreClosed is returned by every operation after Close.
var ErrStoreClosed = errors.New("counter store is closed")

// StoreOperationsTotal counts store operations by backend, operation and outcome.
var StoreOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "adclick_counter_store_operations_total",
		Help: "Total number of counter store operations",
	},
	[]string{"backend", "operation", "outcome"}, // operation: get, set; outcome: hit, miss, success, failure
)

// Store is a key-value store of integers.
type Store interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) (int64, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value int64) error

	// Close releases the store's resources.
	Close() error
}

func observe(backend, operation string, err error, found bool) {
	switch {
	case err != nil:
		StoreOperationsTotal.WithLabelValues(backend, operation, "failure").Inc()
	case operation == "get" && found:
		StoreOperationsTotal.WithLabelValues(backend, operation, "hit").Inc()
	case operation == "get":
		StoreOperationsTotal.WithLabelValues(backend, operation, "miss").Inc()
	default:
		StoreOperationsTotal.WithLabelValues(backend, operation, "success").Inc()
	}
}
