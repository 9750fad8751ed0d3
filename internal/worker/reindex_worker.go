package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"kbagent/internal/app"
)

// ReindexJob asks for one manual's vector records to be re-embedded.
type ReindexJob struct {
	ManualID uint `json:"manual_id"`
}

// ReindexWorker consumes reindex jobs and re-embeds one manual per
// delivery. A failing manual is nacked and logged; it never aborts the
// rest of the batch.
type ReindexWorker struct {
	conn      *amqp.Connection
	ingest    *app.IngestService
	queueName string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewReindexWorker(conn *amqp.Connection, ingest *app.IngestService, queueName string) *ReindexWorker {
	return &ReindexWorker{
		conn:      conn,
		ingest:    ingest,
		queueName: queueName,
	}
}

func (w *ReindexWorker) Start(ctx context.Context) error {
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

				var job ReindexJob
				if err := json.Unmarshal(d.Body, &job); err != nil {
					log.Printf("worker decode reindex job failed: %v", err)
					_ = d.Nack(false, false)
					continue
				}

				if err := w.ingest.ReindexManual(workerCtx, job.ManualID); err != nil {
					log.Printf("worker reindex manual %d failed: %v", job.ManualID, err)
					_ = d.Nack(false, false)
					continue
				}

				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

func (w *ReindexWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
