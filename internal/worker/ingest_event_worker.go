package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"learnpilot-rag/internal/model"
	"learnpilot-rag/internal/repository"
)

// IngestEventWorker consumes ingestion status events and persists them
// as the document audit trail.
type IngestEventWorker struct {
	conn      *amqp.Connection
	repo      *repository.IngestionEventRepository
	queueName string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewIngestEventWorker(conn *amqp.Connection, repo *repository.IngestionEventRepository, queueName string) *IngestEventWorker {
	return &IngestEventWorker{
		conn:      conn,
		repo:      repo,
		queueName: queueName,
	}
}

func (w *IngestEventWorker) Start(ctx context.Context) error {
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
					return
				}

				var event model.IngestionEvent
				if err := json.Unmarshal(d.Body, &event); err != nil {
					log.Error().Err(err).Msg("worker decode ingestion event failed")
					_ = d.Nack(false, false)
					continue
				}

				if err := w.repo.Create(&event); err != nil {
					log.Error().Err(err).Str("document_id", event.DocumentID).Msg("worker persist ingestion event failed")
					_ = d.Nack(false, false)
					continue
				}

				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

func (w *IngestEventWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
