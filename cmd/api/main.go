package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/lonestarmarket/backend/internal/config"
	"github.com/lonestarmarket/backend/internal/db"
	"github.com/lonestarmarket/backend/internal/model"
	"github.com/lonestarmarket/backend/internal/server"
)

// Overridden at build time via -ldflags "-X main.gitSHA=... -X main.buildTime=...".
var (
	gitSHA    = "dev"
	buildTime = "unknown"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	srv := server.New(nil, cfg, gitSHA, buildTime)

	addr := ":" + cfg.Port

	errCh := make(chan error, 1)

	go func() {
		log.Printf("starting server on %s", addr)
		errCh <- srv.Start(addr)
	}()

	go func() {
		conn, err := db.Connect(cfg)
		if err != nil {
			log.Printf("db connect error: %v", err)
			return
		}
		srv.SetDB(conn)
		if err := conn.AutoMigrate(
			&model.Conversation{},
			&model.ConversationParticipant{},
			&model.Message{},
			&model.Product{},
			&model.Report{},
			&model.Notification{},
		); err != nil {
			log.Printf("auto migrate error: %v", err)
		}
	}()

	if err := <-errCh; err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
