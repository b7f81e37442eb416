package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const emptyPollInterval = 5 * time.Second

// Azure storage queues backed queuer. Delayed visibility on enqueue is what
// makes the scheduled pipeline steps durable across process restarts.
type AzureQueuer struct {
	az *azqueue.QueueClient
}

var _ Queuer = (*AzureQueuer)(nil)

// `queueName` must exist in the storage account
func NewAzureQueuer(storageAccountName string,
	storageAccountKey string,
	queueServiceURL string,
	queueName string,
) (*AzureQueuer, error) {
	cred, err := azqueue.NewSharedKeyCredential(storageAccountName, storageAccountKey)
	if err != nil {
		return nil, err
	}

	service, err := azqueue.NewServiceClientWithSharedKeyCredential(
		queueServiceURL,
		cred,
		&azqueue.ClientOptions{
			ClientOptions: policy.ClientOptions{
				Retry: policy.RetryOptions{
					MaxRetries: 5,
					RetryDelay: 500 * time.Millisecond,
				},
			},
		},
	)
	if err != nil {
		return nil, err
	}

	return &AzureQueuer{az: service.NewQueueClient(queueName)}, nil
}

func (q AzureQueuer) Enqueue(ctx context.Context, message any, delay time.Duration) error {
	ctx, span := tracer.Start(ctx, "Azure.Enqueue", trace.WithAttributes(
		attribute.Int64("delaySecs", int64(delay.Seconds())),
	))
	defer span.End()

	raw, err := json.Marshal(message)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to marshal message")
		return err
	}

	span.AddEvent("serialized_message", trace.WithAttributes(
		attribute.String("message", string(raw)),
	))

	opts := azqueue.EnqueueMessageOptions{}
	if delay > 0 {
		visibilitySeconds := int32(delay.Seconds())
		opts.VisibilityTimeout = &visibilitySeconds
	}

	if _, err := q.az.EnqueueMessage(ctx, string(raw), &opts); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to enqueue message")
		return err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "enqueued message")
	return nil
}

// nextMessage polls until a message is visible or ctx is cancelled.
func (q AzureQueuer) nextMessage(
	ctx context.Context,
	visibilitySeconds int32,
) (*azqueue.DequeuedMessage, error) {
	for {
		resp, err := q.az.DequeueMessage(ctx, &azqueue.DequeueMessageOptions{
			VisibilityTimeout: &visibilitySeconds,
		})
		if err != nil {
			return nil, err
		}

		switch len(resp.Messages) {
		case 1:
			return resp.Messages[0], nil
		case 0:
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(emptyPollInterval):
			}
		default:
			return nil, fmt.Errorf("unexpected number of messages: %d", len(resp.Messages))
		}
	}
}

func (q AzureQueuer) Dequeue(
	ctx context.Context,
	timeout time.Duration,
	handler MessageHandler,
) error {
	ctx, span := tracer.Start(ctx, "Azure.Dequeue", trace.WithAttributes(
		attribute.Int64("timeoutSecs", int64(timeout.Seconds())),
	))
	defer span.End()

	// keep the message invisible slightly longer than the handler may run, so
	// a cancelled handler can wind down before redelivery
	msg, err := q.nextMessage(ctx, int32(timeout.Seconds())+5)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to dequeue message")
		return err
	}

	span.AddEvent("got_message", trace.WithAttributes(
		attribute.String("message", *msg.MessageText),
	))

	handlerCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := handler.Handle(handlerCtx, []byte(*msg.MessageText)); err != nil {
		var pe *PoisonError
		if !errors.As(err, &pe) {
			// leave the message alone; visibility expires and it is redelivered
			span.AddEvent("failed_message_handler", trace.WithAttributes(
				attribute.String("error", err.Error()),
			))
			span.RecordError(nil)
			span.SetStatus(codes.Ok, "dequeued message but failed to handle")
			return nil
		}
		// poison falls through to deletion
	}

	if _, err := q.az.DeleteMessage(ctx, *msg.MessageID, *msg.PopReceipt, nil); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to remove message")
		return err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "dequeued message")
	return nil
}
