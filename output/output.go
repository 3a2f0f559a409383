// Package output presents results on the command line: live discovery
// progress, the final printer list as JSON, and inspection and print outcomes.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/url"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/lukeod/netprint/datamodel"
	"github.com/lukeod/netprint/tcp"
)

// OutputManager collects discovery results and writes them out.
type OutputManager struct {
	OutputPath string    // JSON destination; empty or "-" means Stdout
	Stdout     io.Writer // Machine-readable output
	Status     io.Writer // Progress and summary lines
	StartTime  time.Time

	mu    sync.Mutex
	found int
}

// NewOutputManager creates an OutputManager writing JSON to outputPath and
// progress to stderr.
func NewOutputManager(outputPath string) *OutputManager {
	return &OutputManager{
		OutputPath: outputPath,
		Stdout:     os.Stdout,
		Status:     os.Stderr,
		StartTime:  time.Now(),
	}
}

// OnFound prints a numbered progress line for each endpoint. It is safe to
// use as a discovery callback.
func (om *OutputManager) OnFound(p datamodel.PrinterEndpoint) {
	om.mu.Lock()
	defer om.mu.Unlock()
	om.found++
	fmt.Fprintf(om.Status, "  %d. %s (%s)\n", om.found, p.Name, p.URI)
}

// WriteJSONOutput writes printers, sorted by URI, to the configured destination.
func (om *OutputManager) WriteJSONOutput(printers []datamodel.PrinterEndpoint) error {
	sorted := make([]datamodel.PrinterEndpoint, len(printers))
	copy(sorted, printers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].URI < sorted[j].URI })

	jsonData, err := json.MarshalIndent(sorted, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling results to JSON: %w", err)
	}
	jsonData = append(jsonData, '\n')

	if om.OutputPath == "" || om.OutputPath == "-" {
		_, err = om.Stdout.Write(jsonData)
		return err
	}
	if err := os.WriteFile(om.OutputPath, jsonData, 0644); err != nil {
		return fmt.Errorf("writing JSON output to %s: %w", om.OutputPath, err)
	}
	return nil
}

// PrintSummary prints the final counts of a discovery run.
func (om *OutputManager) PrintSummary(printers []datamodel.PrinterEndpoint) {
	byService := make(map[string]int)
	for _, p := range printers {
		byService[serviceOf(p)]++
	}
	services := make([]string, 0, len(byService))
	for s := range byService {
		services = append(services, s)
	}
	sort.Strings(services)

	fmt.Fprintln(om.Status, "Discovery complete.")
	fmt.Fprintf(om.Status, "Elapsed: %s\n", time.Since(om.StartTime).Round(time.Millisecond))
	fmt.Fprintf(om.Status, "Printers found: %d\n", len(printers))
	for _, s := range services {
		fmt.Fprintf(om.Status, "  %s: %d\n", s, byService[s])
	}
	if om.OutputPath != "" && om.OutputPath != "-" {
		fmt.Fprintf(om.Status, "Results saved to: %s\n", om.OutputPath)
	}
}

// serviceOf names the service behind an endpoint's port.
func serviceOf(p datamodel.PrinterEndpoint) string {
	u, err := url.Parse(p.URI)
	if err != nil {
		return tcp.ServiceName(0)
	}
	port, _ := strconv.Atoi(u.Port())
	return tcp.ServiceName(port)
}

// WriteInspection writes an inspection as indented JSON.
func WriteInspection(w io.Writer, inspection *datamodel.Inspection) error {
	// Sanitize floating point values to avoid JSON marshalling errors with -Inf, +Inf, NaN
	if inspection.ICMP != nil {
		rtt := inspection.ICMP.RTTms
		if rtt < 0 || math.IsInf(rtt, 0) || math.IsNaN(rtt) {
			inspection.ICMP.RTTms = 0
		}
		loss := inspection.ICMP.PacketLossPercent
		if math.IsInf(loss, 0) || math.IsNaN(loss) {
			inspection.ICMP.PacketLossPercent = 100
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(inspection)
}

// WritePrintResult prints the outcome of a submission.
func WritePrintResult(w io.Writer, printerURI string, result datamodel.PrintJobResult) {
	if !result.Success {
		fmt.Fprintf(w, "Print failed (%s): %s\n", result.Kind, result.Error)
		return
	}
	if result.JobID != nil {
		fmt.Fprintf(w, "Print job %d submitted to %s\n", *result.JobID, printerURI)
		return
	}
	fmt.Fprintf(w, "Print job submitted to %s (no job id returned)\n", printerURI)
}
