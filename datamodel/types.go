// Package datamodel defines the core data structures used throughout the
// netprint application, including configuration structures parsed from YAML
// and the values exchanged between discovery, submission and the HTTP layer.
package datamodel

import "fmt"

// Config is the main configuration structure.
type Config struct {
	Server    ServerSettings    `yaml:"server"`
	Discovery DiscoverySettings `yaml:"discovery"`
	Print     PrintSettings     `yaml:"print"`
	Inspect   InspectSettings   `yaml:"inspect"`
	Logging   LoggingSettings   `yaml:"logging"`
}

// ServerSettings configures the HTTP surface and the upload staging area.
type ServerSettings struct {
	ListenAddr  string `yaml:"listen_addr"`   // e.g. ":3001"
	UploadDir   string `yaml:"upload_dir"`    // Staging directory for uploaded documents
	MaxUploadMB int    `yaml:"max_upload_mb"` // Upper bound for a multipart body
	CORSOrigin  string `yaml:"cors_origin"`   // Value of Access-Control-Allow-Origin
}

// DiscoverySettings configures the subnet sweep.
type DiscoverySettings struct {
	Ports           []int `yaml:"ports"`             // Ports probed on every host, default [631]
	ProbeTimeoutMS  int   `yaml:"probe_timeout_ms"`  // Per connection attempt
	GlobalTimeoutMS int   `yaml:"global_timeout_ms"` // Budget for the whole sweep
}

// PrintSettings configures print-job submission.
type PrintSettings struct {
	RequestingUser string `yaml:"requesting_user"`
	DefaultJobName string `yaml:"default_job_name"`
	TimeoutSeconds int    `yaml:"timeout_seconds"` // Bound for one IPP exchange
}

// InspectSettings groups the per-host diagnostic probes.
type InspectSettings struct {
	ICMP ICMPSettings `yaml:"icmp"`
	SNMP SNMPSettings `yaml:"snmp"`
	DNS  DNSSettings  `yaml:"dns"`
}

// ICMPSettings contains parameters for the inspector ping.
type ICMPSettings struct {
	IsEnabled      bool `yaml:"is_enabled"`
	Count          int  `yaml:"count"`
	TimeoutSeconds int  `yaml:"timeout_seconds"`
	Privileged     bool `yaml:"privileged"` // Use raw sockets
}

// SNMPSettings contains parameters for the inspector SNMP query.
type SNMPSettings struct {
	IsEnabled      bool   `yaml:"is_enabled"`
	Version        string `yaml:"version"` // "v1" or "v2c"
	Community      string `yaml:"community"`
	Port           int    `yaml:"port"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Retries        int    `yaml:"retries"`
}

// DNSSettings contains parameters for reverse lookups.
type DNSSettings struct {
	IsEnabled      bool     `yaml:"is_enabled"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	Servers        []string `yaml:"servers,omitempty"` // host:port, overrides the system resolver
}

// LoggingSettings selects verbosity and handler format.
type LoggingSettings struct {
	Level  string `yaml:"level"`  // error, warn, info, debug
	Format string `yaml:"format"` // console, json, auto
}

// Discovery structures

// InterfaceAddress is an IPv4 address bound to a local interface.
type InterfaceAddress struct {
	Interface string
	Address   string
	Internal  bool // Loopback or link-local
}

// ProbeTarget is a single (host, port) reachability check.
type ProbeTarget struct {
	Host string
	Port int
}

// Key identifies the target in dedup sets.
func (p ProbeTarget) Key() string {
	return fmt.Sprintf("%s:%d", p.Host, p.Port)
}

const (
	// EndpointScheme and EndpointPath are fixed conventions, never learned from a probe.
	EndpointScheme = "ipp"
	EndpointPath   = "/ipp/print"
)

// PrinterEndpoint is a printer found by discovery.
type PrinterEndpoint struct {
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// NewPrinterEndpoint builds the endpoint for a reachable host and port.
func NewPrinterEndpoint(host string, port int) PrinterEndpoint {
	return PrinterEndpoint{
		Name: fmt.Sprintf("Printer at %s:%d", host, port),
		URI:  fmt.Sprintf("%s://%s:%d%s", EndpointScheme, host, port, EndpointPath),
	}
}

// Submission structures

// PrintJobRequest is the input to the submission pipeline.
type PrintJobRequest struct {
	Document    []byte // Nil means read from StagingPath
	Filename    string // Original filename of the upload
	PrinterURI  string
	StagingPath string // Temporary copy owned by this request, removed after submission
}

// ErrorKind classifies a failed submission.
type ErrorKind string

const (
	KindInput     ErrorKind = "input"
	KindTransport ErrorKind = "transport"
	KindProtocol  ErrorKind = "protocol"
)

// PrintJobResult is either a success with an optional job id or a failure.
type PrintJobResult struct {
	Success bool      `json:"success"`
	JobID   *int      `json:"jobId"`
	Error   string    `json:"error,omitempty"`
	Kind    ErrorKind `json:"kind,omitempty"`
}

// IPPJob is the protocol-level Print-Job request handed to a transport.
type IPPJob struct {
	UserName       string
	JobName        string
	DocumentFormat string
	Document       []byte
}

// Inspection structures

// Inspection is the diagnostic view of a single host.
type Inspection struct {
	Host      string      `json:"host"`
	Hostnames []string    `json:"hostnames,omitempty"`
	ICMP      *ICMPResult `json:"icmp,omitempty"`
	SNMP      *SNMPResult `json:"snmp,omitempty"`
	Errors    []string    `json:"errors,omitempty"`
}

// ICMPResult contains results from a ping.
type ICMPResult struct {
	IsReachable       bool    `json:"is_reachable"`
	PacketsSent       int     `json:"packets_sent"`
	PacketsReceived   int     `json:"packets_received"`
	PacketLossPercent float64 `json:"packet_loss_percent"`
	RTTms             float64 `json:"rtt_ms,omitempty"`
}

// SNMPResult contains the identity and status a printer reports over SNMP.
type SNMPResult struct {
	SysName       string `json:"sys_name,omitempty"`
	SysDescr      string `json:"sys_descr,omitempty"`
	DeviceDescr   string `json:"device_descr,omitempty"`
	PrinterStatus string `json:"printer_status,omitempty"` // hrPrinterStatus, textual
}
