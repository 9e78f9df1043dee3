package scan

import (
	"context"
	"fmt"

	"github.com/paularlott/cli"

	"github.com/martinsuchenak/presenced/internal/config"
	"github.com/martinsuchenak/presenced/internal/distance"
	"github.com/martinsuchenak/presenced/internal/identity"
	"github.com/martinsuchenak/presenced/internal/log"
	"github.com/martinsuchenak/presenced/internal/monitor"
	"github.com/martinsuchenak/presenced/internal/probe"
	"github.com/martinsuchenak/presenced/internal/storage"
)

func Command() *cli.Command {
	return &cli.Command{
		Name:        "scan",
		Usage:       "Run a single scan cycle and print the results",
		Description: "Sweep the subnet once, update the device registry, and print discovered devices",
		Flags:       config.GetFlags(),
		Run: func(ctx context.Context, cmd *cli.Command) error {
			cfg := config.Load(cmd)

			store, err := storage.NewSQLiteStorage(cfg.DataDir)
			if err != nil {
				log.Error("Failed to initialize storage", "error", err)
				return err
			}
			defer store.Close()

			prober := probe.NewPingScanner(cfg.ProbeTimeout, cfg.ICMP)
			snmp := identity.NewSNMPClient(cfg.SNMPCommunity, uint16(cfg.SNMPPort), cfg.ProbeTimeout)
			resolver := identity.NewSystemResolver(identity.WithSNMP(snmp))

			engine := monitor.NewEngine(store, prober, resolver, nil, monitor.Options{
				Subnet:         cfg.Subnet,
				ProbeWorkers:   cfg.ProbeWorkers,
				LatencySamples: cfg.LatencySamples,
			})
			if err := engine.Load(); err != nil {
				log.Error("Failed to restore state", "error", err)
				return err
			}

			engine.Scan(ctx, cfg.DistanceMode)

			devices := engine.Devices()
			online := 0
			for _, d := range devices {
				if d.Online {
					online++
				}
			}

			fmt.Printf("%d devices known, %d online\n\n", len(devices), online)
			fmt.Printf("%-15s %-18s %-20s %-16s %-8s %s\n", "IP", "MAC", "Name", "Vendor", "Status", "Distance")
			for _, d := range devices {
				status := "offline"
				if d.Online {
					status = "online"
				}
				dist := ""
				if d.EstimatedDistance != nil {
					dist = fmt.Sprintf("%.1fm (%s)", *d.EstimatedDistance, distance.ZoneForDistance(d.EstimatedDistance))
				}
				fmt.Printf("%-15s %-18s %-20s %-16s %-8s %s\n", d.IP, d.MAC, d.DisplayName(), d.Vendor, status, dist)
			}
			return nil
		},
	}
}
