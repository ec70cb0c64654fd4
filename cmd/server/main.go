package main

import (
	"context"
	"log"
	"os"

	"github.com/atelierhq/commission-platform/internal/blob"
	"github.com/atelierhq/commission-platform/internal/config"
	"github.com/atelierhq/commission-platform/internal/db"
	"github.com/atelierhq/commission-platform/internal/httpapi"
	"github.com/atelierhq/commission-platform/internal/notify"
	"github.com/atelierhq/commission-platform/internal/store/rabbitmq"
	"github.com/atelierhq/commission-platform/internal/store/redisstore"
	"github.com/atelierhq/commission-platform/internal/wizard"
)

func main() {
	cfg := config.Load()

	gdb := db.Connect(cfg.DBDSN)
	if err := db.Migrate(gdb); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	rds := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := rds.Ping(context.Background()); err != nil {
		log.Fatalf("redis ping: %v", err)
	}
	sessions := wizard.NewRedisSessions(rds, cfg.WizardTTL)

	blobs, err := blob.NewFSStore(cfg.BlobRoot)
	if err != nil {
		log.Fatalf("blob store: %v", err)
	}

	pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
	if err != nil {
		log.Fatalf("rabbit connect: %v", err)
	}
	defer pub.Close()
	transport := &notify.QueueTransport{Publisher: pub}

	r := httpapi.NewRouter(gdb, cfg, sessions, blobs, transport)

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	log.Printf("server listening on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
