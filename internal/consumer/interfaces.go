package consumer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/BarkinBalci/adclick-detector/internal/domain"
)

// MessageParser turns a raw queue message body into an ad click row
type MessageParser interface {
	Parse(body []byte) (*domain.AdClick, error)
}

// MessagesTotal counts queue messages by pipeline stage and outcome.
var MessagesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "adclick_consumer_messages_total",
		Help: "Total number of beacon messages handled by the consumer pipeline",
	},
	[]string{"stage", "outcome"}, // stage: receive, parse, write; outcome: success, failure
)
