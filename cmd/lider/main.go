package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/cxworkforce/presencia/config"
	"github.com/cxworkforce/presencia/internal/client"
	"github.com/cxworkforce/presencia/internal/presence"
	"github.com/joho/godotenv"
)

// Terminal leader console: a live roster of the team fed by the hub
// broadcasts. Leaders reconnect aggressively (1s base) because the roster is
// useless while stale.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment")
	}
	cfg := config.NewConfig()

	userID := flag.Int("user", 0, "leader id")
	nombre := flag.String("nombre", "", "display name")
	token := flag.String("token", os.Getenv("API_TOKEN"), "bearer token")
	flag.Parse()

	if *userID == 0 {
		log.Fatal("-user is required")
	}

	view := client.NewLeaderView()

	cm := client.NewConnManager(client.Config{
		URL:      cfg.HubURL + "?token=" + *token,
		Role:     client.RoleLeader,
		Identity: client.Identity{UserID: *userID, Nombre: *nombre},
		Backoff: client.BackoffConfig{
			Base:    time.Second,
			Ceiling: cfg.ReconnectCeiling,
		},
		PingInterval: cfg.PingInterval,
		OnMessage: func(env presence.Envelope) {
			if view.Apply(env) {
				printRoster(view)
			}
		},
		OnStateChange: func(s client.ConnState) {
			log.Printf("[WS] %s", s)
		},
	})
	cm.Start()
	defer cm.Close()

	fmt.Println("Comandos: lista | buscar <texto> | resumen | salir")
	fmt.Print("> ")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		fields := strings.Fields(line)
		if len(fields) == 0 {
			fmt.Print("> ")
			continue
		}
		switch fields[0] {
		case "lista":
			printRoster(view)
		case "buscar":
			query := strings.Join(fields[1:], " ")
			for _, w := range view.Filter(query) {
				fmt.Printf("  %-24s %-12s %s\n", w.Nombre, w.Estado, w.Area)
			}
		case "resumen":
			for estado, n := range view.CountsByEstado() {
				fmt.Printf("  %-16s %d\n", estado, n)
			}
		case "salir":
			return
		default:
			fmt.Println("Comando desconocido:", fields[0])
		}
		fmt.Print("> ")
	}
}

func printRoster(view *client.LeaderView) {
	workers := view.All()
	fmt.Printf("\n== %d conectados ==\n", len(workers))
	for _, w := range workers {
		fmt.Printf("  %-24s %-12s %s\n", w.Nombre, w.Estado, w.LastUpdate.Format("15:04:05"))
	}
	fmt.Print("> ")
}
