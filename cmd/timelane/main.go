package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"timelane/internal/config"
	appLog "timelane/internal/log"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	once       bool
	format     string
	output     string
	capture    bool
	debug      bool
}

func main() {
	flags := parseFlags()
	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	}

	appLog.Info("timelane starting", "version", version)

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if !flags.debug {
		appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
	}

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.capture {
		conf.Capture.Enabled = true
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"refresh", conf.RefreshCron,
		"day_width", conf.DayWidth,
		"timezone", conf.Timezone,
		"item_files", len(conf.Items),
		"csv_count", len(conf.CSV),
		"ics_count", len(conf.ICS),
		"capture", conf.Capture.Enabled,
		"once", flags.once,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if flags.once {
		err = runOnce(ctx, conf, flags.format, flags.output)
	} else {
		err = serve(ctx, conf)
	}
	if err != nil {
		appLog.Error("timelane failed", err)
		cancel()
		os.Exit(1)
	}
	appLog.Info("timelane exiting")
}

const version = "0.1.0"

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Load sources, write one rendering and exit")
	flag.StringVar(&cfg.format, "format", "svg", "Output format for -once: svg, json or text")
	flag.StringVar(&cfg.output, "output", "-", "Output file for -once; - writes to stdout")
	flag.BoolVar(&cfg.capture, "capture", false, "Capture a PNG preview after every refresh")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Parse()

	return cfg
}
