package consumer

import (
	"context"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"

	"github.com/BarkinBalci/adclick-detector/internal/clock"
	"github.com/BarkinBalci/adclick-detector/internal/config"
	"github.com/BarkinBalci/adclick-detector/internal/queue"
	"github.com/BarkinBalci/adclick-detector/internal/repository"
)

const stageBufferSize = 100

// Consumer runs the receive, parse and batch-write stages that move beacon reports from
// SQS into ClickHouse
type Consumer struct {
	receiver    *Receiver
	parser      *ParserStage
	batchWriter *BatchWriter
}

// NewConsumer wires the pipeline stages from config
func NewConsumer(cfg *config.Config, queueConsumer queue.QueueConsumer, repo repository.AdClickRepository, clk clock.Clock, log *zap.Logger) *Consumer {
	return &Consumer{
		receiver: NewReceiver(queueConsumer, ReceiverConfig{
			MaxMessages:     10,
			WaitTimeSeconds: 20,
		}, log),
		parser: NewParserStage(queueConsumer, NewReportParser(clk), log),
		batchWriter: NewBatchWriter(repo, BatchWriterConfig{
			MaxBatchSize: cfg.Consumer.BatchSizeMax,
			FlushTimeout: time.Duration(cfg.Consumer.BatchTimeoutSec) * time.Second,
		}, log),
	}
}

// Start runs every stage and returns once all of them have stopped
func (c *Consumer) Start(ctx context.Context) error {
	messages := make(chan types.Message, stageBufferSize)
	envelopes := make(chan *Envelope, stageBufferSize)

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		c.receiver.Start(ctx, messages)
	}()

	go func() {
		defer wg.Done()
		c.parser.Start(ctx, messages, envelopes)
	}()

	go func() {
		defer wg.Done()
		c.batchWriter.Start(ctx, envelopes)
	}()

	wg.Wait()
	return nil
}
