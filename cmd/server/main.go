package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/cxworkforce/presencia/config"
	"github.com/cxworkforce/presencia/db"
	"github.com/cxworkforce/presencia/internal/presence"
	"github.com/cxworkforce/presencia/internal/repositories"
	"github.com/cxworkforce/presencia/internal/routes"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment")
	}

	cfg := config.NewConfig()
	database := db.InitDB(cfg.DatabaseDSN)
	defer database.Close()

	redisClient := config.NewRedisClient()
	defer redisClient.Close()

	store := presence.NewRedisSnapshotStore(redisClient, cfg.StaleTimeout)
	hub := presence.NewHub(store, cfg.StaleTimeout, cfg.SweepInterval)
	go hub.Run()
	defer hub.Stop()

	router := routes.Setup(cfg, database, hub)

	go autoCierreLoop(repositories.NewJornadaRepository(database))

	serverAddress := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("🚀 Presence server starting on %s", serverAddress)
	log.Fatal(http.ListenAndServe(serverAddress, router))
}

// autoCierreLoop closes working days forgotten open past the marking window.
func autoCierreLoop(repo *repositories.JornadaRepository) {
	log.Println("✅ Auto-close jornadas job started")
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		count, err := repo.CerrarJornadasVencidas(ctx, time.Now())
		cancel()
		if err != nil {
			log.Printf("❌ Auto-close jornadas failed: %v", err)
		} else if count > 0 {
			log.Printf("✅ Auto-close: cerradas %d jornadas vencidas", count)
		}
	}
}
