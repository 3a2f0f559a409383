// Package config is responsible for loading the YAML configuration file,
// unmarshalling it into the structures defined in the datamodel module,
// applying defaults and validating the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/lukeod/netprint/datamodel"
	"github.com/lukeod/netprint/logger"
	"gopkg.in/yaml.v3"
)

// Defaults applied when the configuration leaves a field empty.
const (
	DefaultListenAddr      = ":3001"
	DefaultUploadDir       = "uploads"
	DefaultMaxUploadMB     = 64
	DefaultCORSOrigin      = "*"
	DefaultIPPPort         = 631
	DefaultProbeTimeoutMS  = 200
	DefaultGlobalTimeoutMS = 5000
	DefaultRequestingUser  = "netprint"
	DefaultJobName         = "print job"
	DefaultPrintTimeoutSec = 30
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// LoadConfig loads and validates the configuration from a YAML file.
// An empty path yields the default configuration.
func LoadConfig(filePath string) (*datamodel.Config, error) {
	var config datamodel.Config

	if filePath != "" {
		yamlFile, err := os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", filePath, err)
		}

		if err := yaml.Unmarshal(yamlFile, &config); err != nil {
			return nil, fmt.Errorf("error unmarshalling YAML from %s: %w", filePath, err)
		}
	}

	setDefaults(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// Default returns the configuration used when no file is given.
func Default() *datamodel.Config {
	var config datamodel.Config
	setDefaults(&config)
	return &config
}

// setDefaults applies default values to the configuration where not specified.
func setDefaults(cfg *datamodel.Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Server.UploadDir == "" {
		cfg.Server.UploadDir = DefaultUploadDir
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = DefaultMaxUploadMB
	}
	if cfg.Server.CORSOrigin == "" {
		cfg.Server.CORSOrigin = DefaultCORSOrigin
	}

	if len(cfg.Discovery.Ports) == 0 {
		cfg.Discovery.Ports = []int{DefaultIPPPort}
	}
	if cfg.Discovery.ProbeTimeoutMS == 0 {
		cfg.Discovery.ProbeTimeoutMS = DefaultProbeTimeoutMS
	}
	if cfg.Discovery.GlobalTimeoutMS == 0 {
		cfg.Discovery.GlobalTimeoutMS = DefaultGlobalTimeoutMS
	}

	if cfg.Print.RequestingUser == "" {
		cfg.Print.RequestingUser = DefaultRequestingUser
	}
	if cfg.Print.DefaultJobName == "" {
		cfg.Print.DefaultJobName = DefaultJobName
	}
	if cfg.Print.TimeoutSeconds == 0 {
		cfg.Print.TimeoutSeconds = DefaultPrintTimeoutSec
	}

	// Inspector probes only need sane numbers when enabled
	if cfg.Inspect.ICMP.Count == 0 {
		cfg.Inspect.ICMP.Count = 3
	}
	if cfg.Inspect.ICMP.TimeoutSeconds == 0 {
		cfg.Inspect.ICMP.TimeoutSeconds = 2
	}
	if cfg.Inspect.SNMP.Version == "" {
		cfg.Inspect.SNMP.Version = "v2c"
	}
	if cfg.Inspect.SNMP.Community == "" {
		cfg.Inspect.SNMP.Community = "public"
	}
	if cfg.Inspect.SNMP.Port == 0 {
		cfg.Inspect.SNMP.Port = 161
	}
	if cfg.Inspect.SNMP.TimeoutSeconds == 0 {
		cfg.Inspect.SNMP.TimeoutSeconds = 2
	}
	if cfg.Inspect.DNS.TimeoutSeconds == 0 {
		cfg.Inspect.DNS.TimeoutSeconds = 2
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = string(logger.FormatAuto)
	}
}

// validateConfig performs semantic validation on the loaded configuration.
func validateConfig(cfg *datamodel.Config) error {
	if err := validateServer(cfg.Server); err != nil {
		return err
	}
	if err := validateDiscovery(cfg.Discovery); err != nil {
		return err
	}
	if err := validatePrint(cfg.Print); err != nil {
		return err
	}
	if err := validateInspect(cfg.Inspect); err != nil {
		return err
	}
	if _, err := logger.ParseLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("%w: logging: %v", ErrInvalidConfig, err)
	}
	if _, err := logger.ParseFormat(cfg.Logging.Format); err != nil {
		return fmt.Errorf("%w: logging: %v", ErrInvalidConfig, err)
	}
	return nil
}

// validateServer validates the HTTP server settings
func validateServer(s datamodel.ServerSettings) error {
	if s.MaxUploadMB < 0 {
		return fmt.Errorf("%w: server.max_upload_mb must be positive, got %d", ErrInvalidConfig, s.MaxUploadMB)
	}
	if strings.TrimSpace(s.UploadDir) == "" {
		return fmt.Errorf("%w: server.upload_dir is empty", ErrInvalidConfig)
	}
	return nil
}

// validateDiscovery validates the sweep settings
func validateDiscovery(d datamodel.DiscoverySettings) error {
	seen := make(map[int]bool)
	for _, port := range d.Ports {
		if port <= 0 || port > 65535 {
			return fmt.Errorf("%w: discovery has invalid port number: %d", ErrInvalidConfig, port)
		}
		if seen[port] {
			return fmt.Errorf("%w: discovery lists port %d twice", ErrInvalidConfig, port)
		}
		seen[port] = true
	}
	if d.ProbeTimeoutMS <= 0 {
		return fmt.Errorf("%w: discovery has invalid probe timeout: %d", ErrInvalidConfig, d.ProbeTimeoutMS)
	}
	if d.GlobalTimeoutMS <= 0 {
		return fmt.Errorf("%w: discovery has invalid global timeout: %d", ErrInvalidConfig, d.GlobalTimeoutMS)
	}
	if d.ProbeTimeoutMS > d.GlobalTimeoutMS {
		return fmt.Errorf("%w: discovery probe timeout %dms exceeds global timeout %dms",
			ErrInvalidConfig, d.ProbeTimeoutMS, d.GlobalTimeoutMS)
	}
	return nil
}

// validatePrint validates the submission settings
func validatePrint(p datamodel.PrintSettings) error {
	if p.TimeoutSeconds <= 0 {
		return fmt.Errorf("%w: print has invalid timeout: %d", ErrInvalidConfig, p.TimeoutSeconds)
	}
	return nil
}

// validateInspect validates the inspector probe settings
func validateInspect(i datamodel.InspectSettings) error {
	if i.ICMP.IsEnabled {
		if i.ICMP.TimeoutSeconds <= 0 {
			return fmt.Errorf("%w: inspect.icmp has invalid timeout: %d", ErrInvalidConfig, i.ICMP.TimeoutSeconds)
		}
		if i.ICMP.Count <= 0 {
			return fmt.Errorf("%w: inspect.icmp has invalid count: %d", ErrInvalidConfig, i.ICMP.Count)
		}
	}

	if i.SNMP.IsEnabled {
		validVersions := map[string]bool{"v1": true, "v2c": true}
		if !validVersions[strings.ToLower(i.SNMP.Version)] {
			return fmt.Errorf("%w: invalid SNMP version '%s'", ErrInvalidConfig, i.SNMP.Version)
		}
		if i.SNMP.Port <= 0 || i.SNMP.Port > 65535 {
			return fmt.Errorf("%w: inspect.snmp has invalid port number: %d", ErrInvalidConfig, i.SNMP.Port)
		}
		if i.SNMP.Retries < 0 {
			return fmt.Errorf("%w: inspect.snmp has invalid retries: %d", ErrInvalidConfig, i.SNMP.Retries)
		}
	}

	if i.DNS.IsEnabled {
		for _, server := range i.DNS.Servers {
			if err := validateDNSServer(server); err != nil {
				return err
			}
		}
	}
	return nil
}

// validateDNSServer validates a single DNS server string
func validateDNSServer(server string) error {
	if server == "" {
		return fmt.Errorf("%w: inspect.dns has an empty server entry", ErrInvalidConfig)
	}
	if !strings.Contains(server, ":") {
		return fmt.Errorf("%w: DNS server '%s' must include port (e.g., '8.8.8.8:53')", ErrInvalidConfig, server)
	}
	return nil
}
