package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/paularlott/cli"
	"github.com/robfig/cron/v3"

	"github.com/martinsuchenak/presenced/internal/api"
	"github.com/martinsuchenak/presenced/internal/config"
	"github.com/martinsuchenak/presenced/internal/identity"
	"github.com/martinsuchenak/presenced/internal/log"
	"github.com/martinsuchenak/presenced/internal/mcp"
	"github.com/martinsuchenak/presenced/internal/model"
	"github.com/martinsuchenak/presenced/internal/monitor"
	"github.com/martinsuchenak/presenced/internal/notify"
	"github.com/martinsuchenak/presenced/internal/probe"
	"github.com/martinsuchenak/presenced/internal/storage"
	"github.com/martinsuchenak/presenced/internal/ui"
)

func Command() *cli.Command {
	return &cli.Command{
		Name:        "server",
		Usage:       "Start the presence monitoring server",
		Description: "Start the HTTP server with web UI, API, and MCP endpoints and begin periodic scanning",
		Flags:       config.GetFlags(),
		Run: func(ctx context.Context, cmd *cli.Command) error {
			cfg := config.Load(cmd)

			log.Info("Configuration loaded", "data_dir", cfg.DataDir, "listen_addr", cfg.ListenAddr,
				"subnet", cfg.Subnet, "scan_interval", cfg.ScanInterval)

			store, err := storage.NewSQLiteStorage(cfg.DataDir)
			if err != nil {
				log.Error("Failed to initialize storage", "error", err)
				return err
			}
			defer store.Close()
			log.Info("Storage initialized", "backend", "SQLite", "path", cfg.DataDir)

			prober := probe.NewPingScanner(cfg.ProbeTimeout, cfg.ICMP)
			snmp := identity.NewSNMPClient(cfg.SNMPCommunity, uint16(cfg.SNMPPort), cfg.ProbeTimeout)
			resolver := identity.NewSystemResolver(identity.WithSNMP(snmp))

			var notifier notify.Notifier = notify.Silent{}
			if cfg.SoundEnabled {
				notifier = notify.NewBeeper()
			}

			engine := monitor.NewEngine(store, prober, resolver, notifier, monitor.Options{
				Subnet:         cfg.Subnet,
				ProbeWorkers:   cfg.ProbeWorkers,
				LatencySamples: cfg.LatencySamples,
				DistanceMode:   cfg.DistanceMode,
			})
			if err := engine.Load(); err != nil {
				log.Error("Failed to restore state", "error", err)
				return err
			}

			scheduler := monitor.NewScheduler(engine, cfg.ScanInterval)
			scheduler.Start()
			defer func() {
				scheduler.Stop()
				scheduler.Wait()
			}()

			// Daily attendance summary
			summaryCron := cron.New()
			if _, err := summaryCron.AddFunc(cfg.SummarySchedule, func() {
				logAttendanceSummary(engine)
			}); err != nil {
				log.Error("Invalid attendance summary schedule", "schedule", cfg.SummarySchedule, "error", err)
				return err
			}
			summaryCron.Start()
			defer summaryCron.Stop()

			mcpServer := mcp.NewServer(engine, scheduler, cfg.MCPAuthToken)
			apiHandler := api.NewHandler(engine, scheduler)

			mux := http.NewServeMux()
			apiHandler.RegisterRoutes(mux)
			mux.HandleFunc("/mcp", mcpServer.GetHTTPHandler())
			mux.Handle("/", ui.AssetHandler())

			var handler http.Handler = mux
			if cfg.IsAPIAuthEnabled() {
				handler = api.AuthMiddleware(cfg.APIAuthToken, handler)
			}
			handler = api.SecurityHeadersMiddleware(handler)

			server := &http.Server{
				Addr:    cfg.ListenAddr,
				Handler: handler,
			}

			go func() {
				sigChan := make(chan os.Signal, 1)
				signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
				<-sigChan
				log.Info("Shutting down server...")
				server.Close()
			}()

			log.Info("Starting presenced server", "addr", cfg.ListenAddr)
			log.Info("Web UI available", "url", "http://localhost"+cfg.ListenAddr)
			log.Info("API available", "url", "http://localhost"+cfg.ListenAddr+"/api/")
			log.Info("MCP available", "url", "http://localhost"+cfg.ListenAddr+"/mcp")
			if cfg.IsAPIAuthEnabled() {
				log.Info("API authentication enabled")
			}
			mcpServer.LogStartup()

			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("Server error", "error", err)
				return err
			}

			log.Info("Server stopped")
			return nil
		},
	}
}

// logAttendanceSummary logs event totals for the day that just ended. It runs
// from the summary cron, normally right after midnight.
func logAttendanceSummary(engine *monitor.Engine) {
	date := time.Now().AddDate(0, 0, -1).Format("2006-01-02")

	rows, err := engine.AttendanceForDate(date)
	if err != nil {
		log.Error("Attendance summary failed", "date", date, "error", err)
		return
	}

	arrivals, departures, transitions := 0, 0, 0
	for _, row := range rows {
		switch row.Type {
		case string(model.AlertArrival):
			arrivals++
		case string(model.AlertDeparture):
			departures++
		case string(model.AlertDistance):
			transitions++
		}
	}

	log.Info("Daily attendance summary", "date", date, "events", len(rows),
		"arrivals", arrivals, "departures", departures, "zone_transitions", transitions)
}
