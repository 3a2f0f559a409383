package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/lukeod/netprint/config"
	"github.com/lukeod/netprint/datamodel"
	"github.com/lukeod/netprint/inspect"
	"github.com/lukeod/netprint/output"
	"github.com/lukeod/netprint/testutils"
)

type staticDiscoverer struct {
	printers []datamodel.PrinterEndpoint
	err      error
}

func (d *staticDiscoverer) DiscoverFunc(ctx context.Context, onFound func(datamodel.PrinterEndpoint)) ([]datamodel.PrinterEndpoint, error) {
	if d.err != nil {
		return nil, d.err
	}
	for _, p := range d.printers {
		onFound(p)
	}
	return d.printers, nil
}

func newTestApp(t *testing.T) *app {
	t.Helper()
	testutils.InitLogging()
	cfg := config.Default()
	cfg.Server.UploadDir = filepath.Join(t.TempDir(), "uploads")
	return &app{cfg: cfg}
}

func TestRootCommand(t *testing.T) {
	a := newTestApp(t)
	root := a.rootCommand()

	if root.Name != "netprint" {
		t.Errorf("Expected root command netprint, got %q", root.Name)
	}
	var names []string
	for _, c := range root.Commands {
		names = append(names, c.Name)
		if c.Run == nil {
			t.Errorf("Command %s has no Run function", c.Name)
		}
	}
	if got := strings.Join(names, ","); got != "serve,discover,print,inspect" {
		t.Errorf("Unexpected subcommands %s", got)
	}
}

func TestConfigure(t *testing.T) {
	t.Run("Defaults without a file", func(t *testing.T) {
		a := newTestApp(t)
		if err := a.configure("", "", ""); err != nil {
			t.Fatalf("configure returned error: %v", err)
		}
		if a.cfg.Server.ListenAddr != config.DefaultListenAddr {
			t.Errorf("Expected default listen address, got %q", a.cfg.Server.ListenAddr)
		}
	})

	t.Run("Flags override the file", func(t *testing.T) {
		cfg := config.Default()
		cfg.Server.ListenAddr = ":9999"
		cfg.Logging.Level = "error"
		path := testutils.CreateTempConfigFile(t, cfg)

		a := newTestApp(t)
		if err := a.configure(path, "debug", "json"); err != nil {
			t.Fatalf("configure returned error: %v", err)
		}
		if a.cfg.Server.ListenAddr != ":9999" {
			t.Errorf("Expected listen address from file, got %q", a.cfg.Server.ListenAddr)
		}
		if a.cfg.Logging.Level != "debug" || a.cfg.Logging.Format != "json" {
			t.Errorf("Expected flag overrides, got %+v", a.cfg.Logging)
		}
	})

	t.Run("Invalid level", func(t *testing.T) {
		a := newTestApp(t)
		if err := a.configure("", "loud", ""); err == nil {
			t.Error("Expected an error for an unknown log level")
		}
	})

	t.Run("Missing file", func(t *testing.T) {
		a := newTestApp(t)
		if err := a.configure(filepath.Join(t.TempDir(), "absent.yaml"), "", ""); err == nil {
			t.Error("Expected an error for a missing config file")
		}
	})
}

func TestNewServer(t *testing.T) {
	a := newTestApp(t)
	srv, err := a.newServer()
	if err != nil {
		t.Fatalf("newServer returned error: %v", err)
	}
	if _, err := os.Stat(a.cfg.Server.UploadDir); err != nil {
		t.Errorf("Expected upload dir to be created: %v", err)
	}

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/api/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("Expected health 200, got %d", w.Code)
	}
}

func TestRunDiscover(t *testing.T) {
	a := newTestApp(t)
	d := &staticDiscoverer{printers: []datamodel.PrinterEndpoint{
		datamodel.NewPrinterEndpoint("192.168.1.20", 631),
		datamodel.NewPrinterEndpoint("192.168.1.7", 631),
	}}

	om := output.NewOutputManager("-")
	var stdout, status bytes.Buffer
	om.Stdout, om.Status = &stdout, &status

	if err := a.runDiscover(context.Background(), d, om); err != nil {
		t.Fatalf("runDiscover returned error: %v", err)
	}

	var got []datamodel.PrinterEndpoint
	if err := json.Unmarshal(stdout.Bytes(), &got); err != nil {
		t.Fatalf("Expected JSON on stdout: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Expected 2 printers, got %d", len(got))
	}
	if !strings.Contains(status.String(), "Printers found: 2") {
		t.Errorf("Expected summary on status writer, got %q", status.String())
	}

	failing := &staticDiscoverer{err: errors.New("no interfaces")}
	if err := a.runDiscover(context.Background(), failing, om); err == nil {
		t.Error("Expected discovery error to propagate")
	}
}

func TestRunPrint(t *testing.T) {
	a := newTestApp(t)

	printer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/ipp")
		w.Write(testutils.EncodeIPPResponse(testutils.IPPResponse{Status: 0, JobID: testutils.JobID(7)}))
	}))
	defer printer.Close()
	printerURI := strings.Replace(printer.URL, "http://", "ipp://", 1) + "/ipp/print"

	path := filepath.Join(t.TempDir(), "report.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4\n"), 0644); err != nil {
		t.Fatalf("Failed to write document: %v", err)
	}

	t.Run("Success", func(t *testing.T) {
		var buf bytes.Buffer
		if err := a.runPrint(context.Background(), a.newPipeline(nil), path, printerURI, &buf); err != nil {
			t.Fatalf("runPrint returned error: %v", err)
		}
		if !strings.Contains(buf.String(), "Print job 7 submitted") {
			t.Errorf("Unexpected output %q", buf.String())
		}
		if _, err := os.Stat(path); err != nil {
			t.Errorf("Expected the source document to be left alone: %v", err)
		}
	})

	t.Run("Refused", func(t *testing.T) {
		var buf bytes.Buffer
		uri := "ipp://127.0.0.1:" + strconv.Itoa(testutils.ClosedPort(t)) + "/ipp/print"
		err := a.runPrint(context.Background(), a.newPipeline(nil), path, uri, &buf)
		if !errors.Is(err, errPrintFailed) {
			t.Errorf("Expected errPrintFailed, got %v", err)
		}
		if !strings.Contains(buf.String(), "Print failed (transport)") {
			t.Errorf("Unexpected output %q", buf.String())
		}
	})

	t.Run("Missing file", func(t *testing.T) {
		var buf bytes.Buffer
		err := a.runPrint(context.Background(), a.newPipeline(nil), filepath.Join(t.TempDir(), "nope.pdf"), printerURI, &buf)
		if err == nil || errors.Is(err, errPrintFailed) {
			t.Errorf("Expected a read error, got %v", err)
		}
	})
}

func TestRunInspect(t *testing.T) {
	a := newTestApp(t)
	in := inspect.NewInspector(datamodel.InspectSettings{})

	var buf bytes.Buffer
	if err := a.runInspect(context.Background(), in, "127.0.0.1", &buf); err != nil {
		t.Fatalf("runInspect returned error: %v", err)
	}
	if !strings.Contains(buf.String(), `"host": "127.0.0.1"`) {
		t.Errorf("Unexpected output %q", buf.String())
	}

	if err := a.runInspect(context.Background(), in, "not-an-ip", &buf); !errors.Is(err, inspect.ErrInvalidHost) {
		t.Errorf("Expected ErrInvalidHost, got %v", err)
	}
}
