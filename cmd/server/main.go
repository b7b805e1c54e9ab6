package main

import (
	"context"
	"log"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/ono-cafeteria/api/internal/assistant"
	"github.com/ono-cafeteria/api/internal/config"
	"github.com/ono-cafeteria/api/internal/database"
	"github.com/ono-cafeteria/api/internal/router"
	"github.com/ono-cafeteria/api/internal/ws"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	log.Println("Connected to database")

	queries := database.New(pool)

	hub := ws.NewHub()
	go hub.Run()

	chat := assistant.NewClient(cfg.GeminiAPIKey)
	if !chat.Configured() {
		log.Println("GEMINI_API_KEY not set, assistant endpoints will report unavailable")
	}

	r := router.New(cfg, queries, pool, hub, chat)

	log.Printf("Starting server on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal(err)
	}
}
