package main

import (
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/lowbit-ml/lowbit/internal/logger"
)

var (
	graphPath    string
	capsPath     string
	quantCfgPath string
	logLevel     string
	logFormat    string
	debug        bool
)

func commonGraphFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "graph",
			Aliases:     []string{"g"},
			Usage:       "path to the model graph topology (JSON)",
			Destination: &graphPath,
		},
		&cli.StringFlag{
			Name:        "capabilities",
			Aliases:     []string{"caps"},
			Usage:       "path to a target capability set (YAML); built-in defaults when omitted",
			Destination: &capsPath,
		},
		&cli.StringFlag{
			Name:        "quant-config",
			Aliases:     []string{"qc"},
			Usage:       "path to a global quantization config (YAML); built-in defaults when omitted",
			Destination: &quantCfgPath,
		},
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}

// newLog builds the command logger from the logging flags.
func newLog() logger.Logger {
	level := logger.ParseLevel(logLevel)
	if debug {
		level = logger.ParseLevel("debug")
	}
	switch logFormat {
	case "json":
		return logger.JSON(os.Stderr, level)
	case "text":
		return logger.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	default:
		return logger.Pretty(os.Stderr, level)
	}
}
