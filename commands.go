package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/paularlott/cli"

	"github.com/lukeod/netprint/api"
	"github.com/lukeod/netprint/datamodel"
	"github.com/lukeod/netprint/inspect"
	"github.com/lukeod/netprint/ipp"
	"github.com/lukeod/netprint/logger"
	"github.com/lukeod/netprint/output"
	"github.com/lukeod/netprint/printjob"
	"github.com/lukeod/netprint/scanner"
	"github.com/lukeod/netprint/spool"
)

// shutdownTimeout bounds graceful HTTP shutdown after a signal.
const shutdownTimeout = 10 * time.Second

// errPrintFailed is returned when a CLI submission does not succeed, so the
// process exits non-zero after the failure has been printed.
var errPrintFailed = errors.New("print job failed")

func (a *app) serveCommand() *cli.Command {
	return &cli.Command{
		Name:        "serve",
		Usage:       "Start the HTTP server",
		Description: "Serve printer discovery, print submission and host inspection over HTTP and WebSocket",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Usage:   "Listen address; overrides server.listen_addr",
				EnvVars: []string{"NETPRINT_ADDR"},
			},
		},
		Run: func(ctx context.Context, cmd *cli.Command) error {
			if addr := cmd.GetString("addr"); addr != "" {
				a.cfg.Server.ListenAddr = addr
			}
			srv, err := a.newServer()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("HTTP server failed: %w", err)
			case <-ctx.Done():
			}

			logger.Info("Shutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server shutdown failed: %w", err)
			}
			logger.Info("Server stopped")
			return nil
		},
	}
}

// newServer wires the discovery engine, submission pipeline, inspector and
// upload spool into an HTTP server.
func (a *app) newServer() (*api.Server, error) {
	spooler, err := spool.NewManager(a.cfg.Server.UploadDir)
	if err != nil {
		return nil, err
	}
	logger.Info("Upload spool ready", "dir", spooler.Dir())

	engine := scanner.NewEngine(a.cfg.Discovery)
	pipeline := a.newPipeline(spooler)
	inspector := inspect.NewInspector(a.cfg.Inspect)

	return api.NewServer(a.cfg.Server, engine, pipeline, inspector, spooler), nil
}

func (a *app) newPipeline(remover printjob.Remover) *printjob.Pipeline {
	timeout := time.Duration(a.cfg.Print.TimeoutSeconds) * time.Second
	return printjob.NewPipeline(ipp.NewClient(timeout), remover, a.cfg.Print)
}

func (a *app) discoverCommand() *cli.Command {
	return &cli.Command{
		Name:        "discover",
		Usage:       "Sweep the local subnets for printers",
		Description: "Probe every host of each local /24 subnet on the configured ports and print the printers found as JSON",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:         "output",
				Usage:        "Path to the JSON output file, - for stdout",
				DefaultValue: "-",
			},
		},
		Run: func(ctx context.Context, cmd *cli.Command) error {
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.runDiscover(ctx, scanner.NewEngine(a.cfg.Discovery), output.NewOutputManager(cmd.GetString("output")))
		},
	}
}

func (a *app) runDiscover(ctx context.Context, d api.Discoverer, om *output.OutputManager) error {
	fmt.Fprintln(om.Status, "Starting printer discovery...")
	printers, err := d.DiscoverFunc(ctx, om.OnFound)
	if err != nil {
		return err
	}
	if err := om.WriteJSONOutput(printers); err != nil {
		return err
	}
	om.PrintSummary(printers)
	return nil
}

func (a *app) printCommand() *cli.Command {
	return &cli.Command{
		Name:        "print",
		Usage:       "Submit a document to a printer",
		Description: "Send a file to an IPP printer as a Print-Job request",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Usage:    "Document to print",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "printer",
				Usage:    "Printer URI, e.g. ipp://192.168.1.20:631/ipp/print",
				Required: true,
				EnvVars:  []string{"NETPRINT_PRINTER"},
			},
		},
		Run: func(ctx context.Context, cmd *cli.Command) error {
			return a.runPrint(ctx, a.newPipeline(nil), cmd.GetString("file"), cmd.GetString("printer"), os.Stdout)
		},
	}
}

func (a *app) runPrint(ctx context.Context, s api.Submitter, path, printerURI string, w io.Writer) error {
	document, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	result := s.Submit(ctx, datamodel.PrintJobRequest{
		Document:   document,
		Filename:   filepath.Base(path),
		PrinterURI: printerURI,
	})
	output.WritePrintResult(w, printerURI, result)
	if !result.Success {
		return errPrintFailed
	}
	return nil
}

func (a *app) inspectCommand() *cli.Command {
	return &cli.Command{
		Name:        "inspect",
		Usage:       "Run diagnostics against a printer host",
		Description: "Ping, query over SNMP and reverse-resolve a single IPv4 host",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "host",
				Usage:    "IPv4 address of the host",
				Required: true,
			},
		},
		Run: func(ctx context.Context, cmd *cli.Command) error {
			return a.runInspect(ctx, inspect.NewInspector(a.cfg.Inspect), cmd.GetString("host"), os.Stdout)
		},
	}
}

func (a *app) runInspect(ctx context.Context, in api.Inspector, host string, w io.Writer) error {
	inspection, err := in.Inspect(ctx, host)
	if err != nil {
		return err
	}
	return output.WriteInspection(w, inspection)
}
