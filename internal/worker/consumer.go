package worker

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/kozaktomas/photo-search/internal/constants"
	"github.com/kozaktomas/photo-search/internal/storage"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// SQSAPI is the subset of the SQS client used by Consumer.
type SQSAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// ObjectHandler processes one created object.
type ObjectHandler interface {
	Handle(ctx context.Context, loc storage.Location) error
}

// Consumer long-polls a queue of S3 event notifications.
type Consumer struct {
	client      SQSAPI
	queueURL    string
	handler     ObjectHandler
	logger      zerolog.Logger
	concurrency int
	retryDelay  time.Duration
}

// NewConsumer creates a queue consumer handling up to concurrency messages at once.
func NewConsumer(client SQSAPI, queueURL string, handler ObjectHandler, logger zerolog.Logger, concurrency int) *Consumer {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Consumer{
		client:      client,
		queueURL:    queueURL,
		handler:     handler,
		logger:      logger,
		concurrency: concurrency,
		retryDelay:  2 * time.Second,
	}
}

// Run polls until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info().Str("queue", c.queueURL).Msg("worker started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := c.Poll(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error().Err(err).Msg("receive messages failed")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}
	}
}

// Poll receives one batch and handles its messages.
func (c *Consumer) Poll(ctx context.Context) error {
	out, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(c.queueURL),
		MaxNumberOfMessages: constants.QueueMaxMessages,
		WaitTimeSeconds:     constants.QueueWaitTimeSeconds,
		VisibilityTimeout:   constants.QueueVisibilityTimeout,
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for _, msg := range out.Messages {
		g.Go(func() error {
			c.handleMessage(gctx, msg)
			return nil
		})
	}
	return g.Wait()
}

// handleMessage deletes the message once every record was handled. A failed
// record leaves it for redelivery after the visibility timeout.
func (c *Consumer) handleMessage(ctx context.Context, msg types.Message) {
	logger := c.logger.With().Str("message_id", aws.ToString(msg.MessageId)).Logger()
	ctx = logger.WithContext(ctx)

	if msg.Body == nil {
		c.deleteMessage(ctx, msg)
		return
	}

	locs, err := ParseS3Event(*msg.Body)
	if err != nil {
		// Poison message, never parseable.
		logger.Warn().Err(err).Msg("dropping unparseable message")
		c.deleteMessage(ctx, msg)
		return
	}

	var failed error
	for _, loc := range locs {
		if err := c.handler.Handle(ctx, loc); err != nil {
			logger.Error().Err(err).Str("location", loc.String()).Msg("handle object failed")
			failed = errors.Join(failed, err)
		}
	}
	if failed != nil {
		return
	}
	c.deleteMessage(ctx, msg)
}

func (c *Consumer) deleteMessage(ctx context.Context, msg types.Message) {
	_, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: msg.ReceiptHandle,
	})
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("delete message failed")
	}
}
