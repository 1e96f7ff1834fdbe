package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"clonehub/internal/apperr"
	"clonehub/internal/model"
)

type StatusUpdater interface {
	UpdateDocumentStatus(ctx context.Context, id string, status model.DocumentStatus, reason string) (*model.CloneDocument, error)
}

// DocumentStatusWorker applies queued document status events.
type DocumentStatusWorker struct {
	conn      *amqp.Connection
	updater   StatusUpdater
	queueName string
	logger    *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewDocumentStatusWorker(conn *amqp.Connection, updater StatusUpdater, queueName string, logger *zap.Logger) *DocumentStatusWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentStatusWorker{
		conn:      conn,
		updater:   updater,
		queueName: queueName,
		logger:    logger.Named("document_status_worker"),
	}
}

func (w *DocumentStatusWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	_, err = ch.QueueDeclare(
		w.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}

	if err := ch.Qos(1, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					w.logger.Warn("status delivery channel closed")
					return
				}
				w.handle(workerCtx, d)
			}
		}
	}()

	w.logger.Info("document status worker started", zap.String("queue", w.queueName))
	return nil
}

// handle acks applied and rejected events. Persistence failures are requeued
// once; a redelivered event that fails again is dropped.
func (w *DocumentStatusWorker) handle(ctx context.Context, d amqp.Delivery) {
	var event model.DocumentStatusEvent
	if err := json.Unmarshal(d.Body, &event); err != nil {
		w.logger.Warn("decode status event failed", zap.Error(err))
		_ = d.Nack(false, false)
		return
	}

	doc, err := w.updater.UpdateDocumentStatus(ctx, event.DocumentID, event.Status, event.ErrorMessage)
	if err == nil {
		fields := []zap.Field{zap.String("document_id", doc.ID), zap.String("status", string(doc.Status))}
		if doc.Status.Terminal() {
			w.logger.Info("document indexing finished", fields...)
		} else {
			w.logger.Debug("status event applied", fields...)
		}
		_ = d.Ack(false)
		return
	}

	switch apperr.KindOf(err) {
	case apperr.KindValidation, apperr.KindNotFound:
		w.logger.Warn("status event rejected",
			zap.String("document_id", event.DocumentID),
			zap.String("status", string(event.Status)),
			zap.Error(err))
		_ = d.Nack(false, false)
	default:
		w.logger.Error("apply status event failed",
			zap.String("document_id", event.DocumentID),
			zap.Bool("redelivered", d.Redelivered),
			zap.Error(err))
		_ = d.Nack(false, !d.Redelivered)
	}
}

func (w *DocumentStatusWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
