package queue

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/BarkinBalci/adclick-detector/internal/domain"
)

// ReportMessage is the queue message body carrying one beacon report
type ReportMessage struct {
	ReportID   string `json:"reportId"`
	ReceivedAt int64  `json:"receivedAt"`
	domain.BeaconReport
}

// ReportPublisher defines the interface for publishing beacon reports to a queue
type ReportPublisher interface {
	PublishReport(ctx context.Context, report *domain.BeaconReport, reportID string) error
}

// QueueConsumer defines the interface for consuming messages from a queue
type QueueConsumer interface {
	ReceiveMessages(ctx context.Context, input *sqs.ReceiveMessageInput) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, input *sqs.DeleteMessageInput) (*sqs.DeleteMessageOutput, error)
	ChangeMessageVisibility(ctx context.Context, input *sqs.ChangeMessageVisibilityInput) (*sqs.ChangeMessageVisibilityOutput, error)
	QueueURL() string
}
