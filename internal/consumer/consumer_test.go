package consumer

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/BarkinBalci/adclick-detector/internal/clock"
	"github.com/BarkinBalci/adclick-detector/internal/config"
	"github.com/BarkinBalci/adclick-detector/internal/domain"
)

func testConfig() *config.Config {
	return &config.Config{
		Consumer: config.Consumer{
			BatchSizeMax:    10,
			BatchTimeoutSec: 1,
		},
	}
}

func TestConsumer_StoresQueuedReports(t *testing.T) {
	mockConsumer := new(MockQueueConsumer)
	mockRepo := new(MockAdClickRepository)

	body := `{"reportId":"r-1","eventType":"ad_click_detected","totalClickCount":3,` +
		`"detectionMethod":"touchend","timestamp":"2026-10-19T07:00:00.000Z"}`

	mockConsumer.On("QueueURL").Return(testQueueURL)
	mockConsumer.On("ReceiveMessages", mock.Anything, mock.Anything).
		Return(&sqs.ReceiveMessageOutput{Messages: []types.Message{{
			MessageId:     aws.String("msg-1"),
			Body:          aws.String(body),
			ReceiptHandle: aws.String("receipt-1"),
		}}}, nil).Once()
	mockConsumer.On("ReceiveMessages", mock.Anything, mock.Anything).
		Return(&sqs.ReceiveMessageOutput{}, nil).Maybe()
	mockConsumer.On("DeleteMessage", mock.Anything, mock.Anything).
		Return(&sqs.DeleteMessageOutput{}, nil).Once()

	mockRepo.On("InsertBatch", mock.Anything, mock.MatchedBy(func(clicks []*domain.AdClick) bool {
		return len(clicks) == 1 && clicks[0].ReportID == "r-1" && clicks[0].TotalClickCount == 3
	})).Return(1, nil).Once()

	cfg := testConfig()
	cfg.Consumer.BatchSizeMax = 1
	consumer := NewConsumer(cfg, mockConsumer, mockRepo, clock.Real{}, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	assert.NoError(t, consumer.Start(ctx))

	mockRepo.AssertExpectations(t)
	mockConsumer.AssertExpectations(t)
}

func TestConsumer_GracefulShutdown(t *testing.T) {
	mockConsumer := new(MockQueueConsumer)
	mockRepo := new(MockAdClickRepository)

	mockConsumer.On("QueueURL").Return(testQueueURL).Maybe()
	mockConsumer.On("ReceiveMessages", mock.Anything, mock.Anything).
		Return(&sqs.ReceiveMessageOutput{}, nil).Maybe()

	consumer := NewConsumer(testConfig(), mockConsumer, mockRepo, clock.Real{}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- consumer.Start(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("graceful shutdown took too long")
	}

	mockRepo.AssertNotCalled(t, "InsertBatch", mock.Anything, mock.Anything)
}

func TestConsumer_NewConsumer_ComponentInitialization(t *testing.T) {
	consumer := NewConsumer(testConfig(), new(MockQueueConsumer), new(MockAdClickRepository), clock.Real{}, zap.NewNop())

	assert.NotNil(t, consumer.receiver)
	assert.NotNil(t, consumer.parser)
	assert.NotNil(t, consumer.batchWriter)
	assert.Equal(t, 10, consumer.batchWriter.config.MaxBatchSize)
	assert.Equal(t, time.Second, consumer.batchWriter.config.FlushTimeout)
}
