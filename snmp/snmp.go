// Package snmp reads a printer's identity and status over SNMP v1/v2c using
// the system group and the Host Resources MIB.
package snmp

import (
	"context"
	"fmt"
	"strings"
	"time"

	g "github.com/gosnmp/gosnmp"

	"github.com/lukeod/netprint/datamodel"
	"github.com/lukeod/netprint/logger"
)

// OIDs queried on every printer
const (
	OIDSysDescr        = "1.3.6.1.2.1.1.1.0"
	OIDSysName         = "1.3.6.1.2.1.1.5.0"
	OIDDeviceDescr     = "1.3.6.1.2.1.25.3.2.1.3.1"
	OIDHrPrinterStatus = "1.3.6.1.2.1.25.3.5.1.1.1"
)

var printerOIDs = []string{OIDSysName, OIDSysDescr, OIDDeviceDescr, OIDHrPrinterStatus}

// hrPrinterStatus values from HOST-RESOURCES-MIB
var printerStatusNames = map[int64]string{
	1: "other",
	2: "unknown",
	3: "idle",
	4: "printing",
	5: "warmup",
}

// maskSensitiveString masks community strings for logging while preserving length.
func maskSensitiveString(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 2 {
		return "**"
	}
	// Show first and last character, mask the rest
	return s[:1] + strings.Repeat("*", len(s)-2) + s[len(s)-1:]
}

// PrinterStatus renders an hrPrinterStatus value.
func PrinterStatus(v int64) string {
	if name, ok := printerStatusNames[v]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", v)
}

// newClient builds the gosnmp parameters for one query.
func newClient(ctx context.Context, host string, settings datamodel.SNMPSettings) (*g.GoSNMP, error) {
	if host == "" {
		return nil, fmt.Errorf("empty host provided to SNMP query")
	}

	timeout := time.Duration(settings.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	port := settings.Port
	if port == 0 {
		port = 161
	}
	retries := settings.Retries
	if retries < 0 {
		retries = 0
	}

	params := &g.GoSNMP{
		Target:    host,
		Port:      uint16(port),
		Community: settings.Community,
		Timeout:   timeout,
		Retries:   retries,
		Context:   ctx,
	}

	switch strings.ToLower(settings.Version) {
	case "v1":
		params.Version = g.Version1
	case "v2c", "":
		params.Version = g.Version2c
	default:
		return nil, fmt.Errorf("unsupported SNMP version: %s", settings.Version)
	}
	return params, nil
}

// PerformQuery connects to the agent on host and reads the printer OIDs.
// Missing objects are left empty; only connection and request failures are errors.
func PerformQuery(ctx context.Context, host string, settings datamodel.SNMPSettings) (*datamodel.SNMPResult, error) {
	log := logger.WithModule("snmp")

	params, err := newClient(ctx, host, settings)
	if err != nil {
		return nil, err
	}

	log.Debug("Connecting to SNMP agent", "host", host, "port", params.Port,
		"version", params.Version.String(), "community", maskSensitiveString(settings.Community))

	if err := params.Connect(); err != nil {
		return nil, fmt.Errorf("SNMP connect to %s: %w", host, err)
	}
	defer func() {
		if params.Conn != nil {
			if err := params.Conn.Close(); err != nil {
				log.Warn("Error closing SNMP connection", "host", host, "error", err)
			}
		}
	}()

	packet, err := params.Get(printerOIDs)
	if err != nil {
		return nil, fmt.Errorf("SNMP get from %s: %w", host, err)
	}

	result := &datamodel.SNMPResult{}
	for _, variable := range packet.Variables {
		applyVariable(result, variable)
	}

	log.Debug("SNMP query completed", "host", host, "sys_name", result.SysName, "status", result.PrinterStatus)
	return result, nil
}

// applyVariable copies one response variable into result.
func applyVariable(result *datamodel.SNMPResult, variable g.SnmpPDU) {
	switch variable.Type {
	case g.NoSuchObject, g.NoSuchInstance, g.EndOfMibView, g.Null:
		return
	}

	switch strings.TrimPrefix(variable.Name, ".") {
	case OIDSysName:
		result.SysName = octetString(variable)
	case OIDSysDescr:
		result.SysDescr = octetString(variable)
	case OIDDeviceDescr:
		result.DeviceDescr = octetString(variable)
	case OIDHrPrinterStatus:
		if variable.Type == g.Integer {
			result.PrinterStatus = PrinterStatus(g.ToBigInt(variable.Value).Int64())
		}
	}
}

func octetString(variable g.SnmpPDU) string {
	if b, ok := variable.Value.([]byte); ok {
		return strings.TrimSpace(string(b))
	}
	return fmt.Sprintf("%v", variable.Value)
}
