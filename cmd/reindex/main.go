package main

import (
	"context"
	"log"

	"kbagent/internal/config"
	mysqlClient "kbagent/internal/platform/mysql"
	rabbitmqClient "kbagent/internal/platform/rabbitmq"
	"kbagent/internal/repository"
)

// Enqueues a re-embed job for every registered manual. Run it after an
// embedding model change; the queue worker in the server process does the
// actual embedding, one manual per job, so a single failure never stops
// the batch.
func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	db, err := mysqlClient.New(ctx, cfg.MySQLDSN())
	if err != nil {
		log.Fatalf("connect mysql failed: %v", err)
	}

	conn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		log.Fatalf("connect rabbitmq failed: %v", err)
	}
	defer conn.Close()

	manualRepo := repository.NewManualRepository(db)
	publisher := rabbitmqClient.NewReindexPublisher(conn, cfg.RabbitMQ.ReindexQueue)

	ids, err := manualRepo.ListIDs(ctx)
	if err != nil {
		log.Fatalf("list manuals failed: %v", err)
	}

	queued := 0
	for _, id := range ids {
		if err := publisher.PublishManual(ctx, id); err != nil {
			log.Printf("enqueue manual %d failed: %v", id, err)
			continue
		}
		queued++
	}
	log.Printf("queued %d of %d manuals for re-embedding", queued, len(ids))
}
