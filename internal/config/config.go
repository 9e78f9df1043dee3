package config

import (
	"time"

	"github.com/paularlott/cli"
)

// Config holds the application configuration
type Config struct {
	DataDir    string
	ListenAddr string

	Subnet         string // CIDR to sweep; empty means autodetect the local /24
	ScanInterval   time.Duration
	ProbeTimeout   time.Duration
	ProbeWorkers   int
	LatencySamples int
	ICMP           bool // raw-socket ICMP probing, needs elevated privileges

	SNMPCommunity string
	SNMPPort      int

	APIAuthToken string
	MCPAuthToken string

	DistanceMode    bool
	SoundEnabled    bool
	SummarySchedule string // cron expression for the daily attendance summary
}

// GetFlags returns the command-line flags shared by the server and scan commands
func GetFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:         "data-dir",
			Usage:        "Directory for the database",
			DefaultValue: "./data",
			EnvVars:      []string{"PRESENCED_DATA_DIR"},
		},
		&cli.StringFlag{
			Name:         "listen",
			Usage:        "HTTP listen address",
			DefaultValue: ":8080",
			EnvVars:      []string{"PRESENCED_LISTEN_ADDR"},
		},
		&cli.StringFlag{
			Name:         "subnet",
			Usage:        "Subnet to scan in CIDR notation (default: autodetect local /24)",
			DefaultValue: "",
			EnvVars:      []string{"PRESENCED_SUBNET"},
		},
		&cli.IntFlag{
			Name:         "scan-interval",
			Usage:        "Seconds between monitoring scan cycles",
			DefaultValue: 30,
			EnvVars:      []string{"PRESENCED_SCAN_INTERVAL"},
		},
		&cli.IntFlag{
			Name:         "probe-timeout",
			Usage:        "Per-host probe timeout in milliseconds",
			DefaultValue: 1000,
			EnvVars:      []string{"PRESENCED_PROBE_TIMEOUT"},
		},
		&cli.IntFlag{
			Name:         "probe-workers",
			Usage:        "Concurrent probes per scan cycle",
			DefaultValue: 32,
			EnvVars:      []string{"PRESENCED_PROBE_WORKERS"},
		},
		&cli.IntFlag{
			Name:         "latency-samples",
			Usage:        "Echo requests per latency measurement",
			DefaultValue: 5,
			EnvVars:      []string{"PRESENCED_LATENCY_SAMPLES"},
		},
		&cli.BoolFlag{
			Name:         "icmp",
			Usage:        "Use raw-socket ICMP probing (requires elevated privileges)",
			DefaultValue: false,
			EnvVars:      []string{"PRESENCED_ICMP"},
		},
		&cli.StringFlag{
			Name:         "snmp-community",
			Usage:        "SNMP community for hostname fallback lookups",
			DefaultValue: "public",
			EnvVars:      []string{"PRESENCED_SNMP_COMMUNITY"},
		},
		&cli.IntFlag{
			Name:         "snmp-port",
			Usage:        "SNMP port for hostname fallback lookups",
			DefaultValue: 161,
			EnvVars:      []string{"PRESENCED_SNMP_PORT"},
		},
		&cli.StringFlag{
			Name:         "api-token",
			Usage:        "Bearer token for API authentication (empty disables auth)",
			DefaultValue: "",
			EnvVars:      []string{"PRESENCED_API_TOKEN"},
		},
		&cli.StringFlag{
			Name:         "mcp-token",
			Usage:        "Bearer token for MCP authentication (empty disables auth)",
			DefaultValue: "",
			EnvVars:      []string{"PRESENCED_MCP_TOKEN"},
		},
		&cli.BoolFlag{
			Name:         "distance",
			Usage:        "Enable distance estimation on startup",
			DefaultValue: false,
			EnvVars:      []string{"PRESENCED_DISTANCE_MODE"},
		},
		&cli.BoolFlag{
			Name:         "sound",
			Usage:        "Enable audible alerts",
			DefaultValue: false,
			EnvVars:      []string{"PRESENCED_SOUND"},
		},
		&cli.StringFlag{
			Name:         "summary-schedule",
			Usage:        "Cron expression for the daily attendance summary",
			DefaultValue: "0 0 * * *",
			EnvVars:      []string{"PRESENCED_SUMMARY_SCHEDULE"},
		},
	}
}

// Load builds a Config from the parsed command flags
func Load(cmd *cli.Command) *Config {
	return &Config{
		DataDir:         cmd.GetString("data-dir"),
		ListenAddr:      cmd.GetString("listen"),
		Subnet:          cmd.GetString("subnet"),
		ScanInterval:    time.Duration(cmd.GetInt("scan-interval")) * time.Second,
		ProbeTimeout:    time.Duration(cmd.GetInt("probe-timeout")) * time.Millisecond,
		ProbeWorkers:    int(cmd.GetInt("probe-workers")),
		LatencySamples:  int(cmd.GetInt("latency-samples")),
		ICMP:            cmd.GetBool("icmp"),
		SNMPCommunity:   cmd.GetString("snmp-community"),
		SNMPPort:        int(cmd.GetInt("snmp-port")),
		APIAuthToken:    cmd.GetString("api-token"),
		MCPAuthToken:    cmd.GetString("mcp-token"),
		DistanceMode:    cmd.GetBool("distance"),
		SoundEnabled:    cmd.GetBool("sound"),
		SummarySchedule: cmd.GetString("summary-schedule"),
	}
}

// IsAPIAuthEnabled checks if API authentication is configured
func (c *Config) IsAPIAuthEnabled() bool {
	return c.APIAuthToken != ""
}

// IsMCPEnabled checks if MCP authentication is configured
func (c *Config) IsMCPEnabled() bool {
	return c.MCPAuthToken != ""
}
