// Package main is the entry point for the netprint application.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/paularlott/cli"
	"github.com/paularlott/cli/env"

	"github.com/lukeod/netprint/config"
	"github.com/lukeod/netprint/datamodel"
	"github.com/lukeod/netprint/logger"
)

var (
	version = "dev"
	commit  = "none"
)

// app carries state shared by every subcommand once PreRun has loaded it.
type app struct {
	cfg *datamodel.Config
}

func main() {
	// Load .env file if it exists
	env.Load()

	a := &app{cfg: config.Default()}
	if err := a.rootCommand().Execute(context.Background()); err != nil {
		logger.Error("Command execution failed", "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func (a *app) rootCommand() *cli.Command {
	return &cli.Command{
		Name:        "netprint",
		Version:     version + " (" + commit + ")",
		Usage:       "Discover network printers and submit print jobs over IPP",
		Description: "Sweeps the local /24 subnets for printers on the IPP port and submits documents to them",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Path to the YAML configuration file",
				EnvVars: []string{"NETPRINT_CONFIG"},
				Global:  true,
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (error, warn, info, debug); overrides the config file",
				EnvVars: []string{"NETPRINT_LOG_LEVEL"},
				Global:  true,
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log format (console, json, auto); overrides the config file",
				EnvVars: []string{"NETPRINT_LOG_FORMAT"},
				Global:  true,
			},
		},
		PreRun: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			return ctx, a.configure(cmd.GetString("config"), cmd.GetString("log-level"), cmd.GetString("log-format"))
		},
		Commands: []*cli.Command{
			a.serveCommand(),
			a.discoverCommand(),
			a.printCommand(),
			a.inspectCommand(),
		},
	}
}

// configure loads the configuration and initializes logging. Non-empty flag
// values take precedence over the file.
func (a *app) configure(configPath, levelFlag, formatFlag string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if levelFlag != "" {
		cfg.Logging.Level = levelFlag
	}
	if formatFlag != "" {
		cfg.Logging.Format = formatFlag
	}

	level, err := logger.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	format, err := logger.ParseFormat(cfg.Logging.Format)
	if err != nil {
		return err
	}
	logger.InitWithFormat(level, format)

	a.cfg = cfg
	logger.Debug("Configuration loaded", "file", configPath, "listen_addr", cfg.Server.ListenAddr)
	return nil
}
