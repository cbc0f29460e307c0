package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/cxworkforce/presencia/config"
	"github.com/cxworkforce/presencia/internal/client"
	"github.com/cxworkforce/presencia/internal/models"
	"github.com/cxworkforce/presencia/internal/pkg/response"
	"github.com/cxworkforce/presencia/internal/presence"
	"github.com/joho/godotenv"
)

// Terminal marker agent: one advisor's attendance session against the hub
// and the workforce API. Commands are read from stdin; every keystroke also
// counts as activity for the inactivity monitor.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment")
	}
	cfg := config.NewConfig()

	userID := flag.Int("user", 0, "advisor id")
	nombre := flag.String("nombre", "", "display name")
	cargo := flag.String("cargo", "", "position")
	area := flag.String("area", "", "area")
	apiURL := flag.String("api", getEnv("API_URL", "http://localhost:3001"), "workforce API base URL")
	token := flag.String("token", os.Getenv("API_TOKEN"), "bearer token")
	flag.Parse()

	if *userID == 0 {
		log.Fatal("-user is required")
	}

	api := client.NewAPIClient(*apiURL, *token)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	estados, err := api.EstadosAsesor(ctx, *userID)
	cancel()
	if err != nil {
		log.Printf("⚠️ No se pudo cargar el catálogo de estados: %v", err)
	}
	porSlug := make(map[string]models.EstadoAsesor, len(estados))
	for _, e := range estados {
		porSlug[e.Slug] = e
	}
	limites := func(estado string) (time.Duration, bool) {
		if e, ok := porSlug[estado]; ok {
			return e.LimiteEfectivo()
		}
		return 0, false
	}

	var cm *client.ConnManager

	marcador := client.NewMarcador(limites,
		func(estado string) {
			if err := cm.SendEstado(estado); err != nil {
				log.Printf("⚠️ No se pudo notificar el cambio: %v", err)
			}
			// entrada and salida are registered through their own endpoints
			if !client.EsEstadoDeCatalogo(estado) {
				return
			}
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if _, err := api.Transition(ctx, *userID, estado); err != nil {
					log.Printf("⚠️ No se pudo registrar la transición: %v", err)
				}
			}()
		},
		func(estado string, excedente time.Duration) {
			fmt.Printf("\n🔔 Límite de %s excedido por %s\n> ", estado, response.FormatDuration(excedente))
		})

	cm = client.NewConnManager(client.Config{
		URL:      cfg.HubURL + "?token=" + *token,
		Role:     client.RoleWorker,
		Identity: client.Identity{UserID: *userID, Nombre: *nombre, Cargo: *cargo, Area: *area},
		Backoff: client.BackoffConfig{
			Base:    cfg.ReconnectBase,
			Ceiling: cfg.ReconnectCeiling,
		},
		PingInterval:  cfg.PingInterval,
		SyncInterval:  cfg.SyncInterval,
		CurrentEstado: marcador.Estado,
		OnMessage: func(env presence.Envelope) {
			handleHubMessage(marcador, env)
		},
		OnStateChange: func(s client.ConnState) {
			log.Printf("[WS] %s", s)
		},
	})

	monitor := client.NewInactivityMonitor(cfg.InactivityWarning, cfg.InactivityMax,
		func(idle time.Duration) {
			fmt.Printf("\n⚠️ Inactividad de %s, la sesión se cerrará pronto\n> ", response.FormatDuration(idle))
		},
		func(idle time.Duration) {
			fmt.Printf("\n⛔ Sesión cerrada por inactividad (%s). Escriba 'reconectar' para volver.\n> ", response.FormatDuration(idle))
			cm.DisconnectInactivity("inactividad")
		})

	cm.Start()
	monitor.Start()
	defer monitor.Stop()

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for range ticker.C {
			marcador.Tick(time.Now())
		}
	}()

	fmt.Println("Comandos: entrada | salida | estado <slug> | estados | reconectar | salir")
	fmt.Print("> ")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		monitor.Touch()
		runCommand(line, api, marcador, cm, monitor, porSlug, *userID)
		if line == "salir" {
			break
		}
		fmt.Print("> ")
	}
	cm.Close()
}

func runCommand(line string, api *client.APIClient, marcador *client.Marcador, cm *client.ConnManager, monitor *client.InactivityMonitor, porSlug map[string]models.EstadoAsesor, userID int) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch fields[0] {
	case "entrada":
		horario, err := api.HorarioActual(ctx, userID)
		if err == nil {
			desde, hasta, verr := horario.VentanaMarcacion(time.Now())
			if verr == nil {
				now := time.Now()
				if now.Before(desde) || now.After(hasta) {
					fmt.Printf("Fuera de la ventana de marcación (%s a %s)\n",
						desde.Format("15:04"), hasta.Format("15:04"))
					return
				}
			}
		}
		if _, err := api.MarcarEntrada(ctx, userID); err != nil {
			log.Printf("⚠️ marcar-entrada: %v", err)
		}
		if err := marcador.IniciarJornada(); err != nil {
			fmt.Println(err)
		}
	case "salida":
		if _, err := api.MarcarSalida(ctx, userID); err != nil {
			log.Printf("⚠️ marcar-salida: %v", err)
		}
		if err := marcador.FinalizarJornada(); err != nil {
			fmt.Println(err)
		} else {
			reg := marcador.Registro()
			fmt.Printf("Jornada cerrada. Tiempo a reponer: %s\n", response.FormatDuration(reg.TiempoReponer))
		}
	case "estado":
		if len(fields) < 2 {
			fmt.Println("uso: estado <slug>")
			return
		}
		slug := response.NormalizeSlug(fields[1])
		if _, ok := porSlug[slug]; !ok && len(porSlug) > 0 {
			fmt.Printf("Estado desconocido: %s\n", slug)
			return
		}
		if err := marcador.CambiarEstado(slug); err != nil {
			fmt.Println(err)
		}
	case "estados":
		for slug, e := range porSlug {
			if lim, ok := e.LimiteEfectivo(); ok {
				fmt.Printf("  %-16s límite %s\n", slug, response.FormatDuration(lim))
			} else {
				fmt.Printf("  %-16s sin límite\n", slug)
			}
		}
	case "reconectar":
		monitor.Reset()
		cm.Reconnect()
	case "salir":
	default:
		fmt.Println("Comando desconocido:", fields[0])
	}
}

// handleHubMessage applies server pushes to the local state machine. A
// forced change follows the same transition path as a manual one.
func handleHubMessage(marcador *client.Marcador, env presence.Envelope) {
	switch env.Type {
	case presence.TypeForcedEstadoChange:
		fmt.Printf("\n📢 Estado forzado por el servidor: %s\n> ", env.Estado)
		if err := marcador.CambiarEstado(env.Estado); err != nil {
			log.Printf("⚠️ No se pudo aplicar el estado forzado: %v", err)
		}
	case presence.TypePong:
		// heartbeat reply, nothing to do
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
