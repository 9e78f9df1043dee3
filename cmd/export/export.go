package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"github.com/paularlott/cli"

	"github.com/martinsuchenak/presenced/internal/log"
	"github.com/martinsuchenak/presenced/internal/storage"
)

func Command() *cli.Command {
	return &cli.Command{
		Name:        "export",
		Usage:       "Export the attendance log for a date as CSV",
		Description: "Write the attendance events for a calendar date to stdout or a file in CSV format",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:         "data-dir",
				Usage:        "Directory for the database",
				DefaultValue: "./data",
				EnvVars:      []string{"PRESENCED_DATA_DIR"},
			},
			&cli.StringFlag{
				Name:         "date",
				Usage:        "Date to export in YYYY-MM-DD format (default today)",
				DefaultValue: "",
			},
			&cli.StringFlag{
				Name:         "output",
				Usage:        "Output file (default stdout)",
				DefaultValue: "",
			},
		},
		Run: func(ctx context.Context, cmd *cli.Command) error {
			date := cmd.GetString("date")
			if date == "" {
				date = time.Now().Format("2006-01-02")
			}
			if _, err := time.Parse("2006-01-02", date); err != nil {
				return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", date)
			}

			store, err := storage.NewSQLiteStorage(cmd.GetString("data-dir"))
			if err != nil {
				log.Error("Failed to open storage", "error", err)
				return err
			}
			defer store.Close()

			rows, err := store.AttendanceForDate(date, time.Local)
			if err != nil {
				return fmt.Errorf("reading attendance for %s: %w", date, err)
			}

			out := os.Stdout
			if path := cmd.GetString("output"); path != "" {
				f, err := os.Create(path)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}

			cw := csv.NewWriter(out)
			cw.Write([]string{"Time", "Action", "Name", "Device Type", "IP", "MAC", "Distance", "Message"})
			for _, row := range rows {
				cw.Write([]string{row.Time, row.Type, row.Name, row.DeviceType, row.IP, row.MAC, row.Distance, row.Message})
			}
			cw.Flush()
			if err := cw.Error(); err != nil {
				return err
			}

			log.Info("Attendance exported", "date", date, "events", len(rows))
			return nil
		},
	}
}
