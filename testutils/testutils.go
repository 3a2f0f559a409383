// Package testutils provides helper functions and utilities for testing the netprint codebase.
package testutils

import (
	"bytes"
	"encoding/binary"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/lukeod/netprint/datamodel"
	"github.com/lukeod/netprint/logger"
	"gopkg.in/yaml.v3"
)

// CreateTempConfigFile writes a Config as YAML into the test's temp dir and returns its path.
func CreateTempConfigFile(t *testing.T, config *datamodel.Config) string {
	t.Helper()

	yamlBytes, err := yaml.Marshal(config)
	if err != nil {
		t.Fatalf("Failed to marshal config to YAML: %v", err)
	}

	path := filepath.Join(t.TempDir(), "netprint-test.yaml")
	if err := os.WriteFile(path, yamlBytes, 0644); err != nil {
		t.Fatalf("Failed to write config to %s: %v", path, err)
	}
	return path
}

// StartTCPListener accepts and immediately closes connections on 127.0.0.1
// until the test ends. It returns the listening port.
func StartTCPListener(t *testing.T) int {
	t.Helper()

	listener := Listen(t)

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	return listener.Addr().(*net.TCPAddr).Port
}

// Listen opens a TCP listener on an ephemeral loopback port, closed when the test ends.
func Listen(t *testing.T) net.Listener {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	t.Cleanup(func() { listener.Close() })
	return listener
}

// ClosedPort returns a local port that nothing is listening on.
func ClosedPort(t *testing.T) int {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to reserve port: %v", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()
	return port
}

// IPP value tags used by EncodeIPPResponse
const (
	tagOperation   = 0x01
	tagJob         = 0x02
	tagEnd         = 0x03
	tagInteger     = 0x21
	tagEnum        = 0x23
	tagText        = 0x41
	tagCharset     = 0x47
	tagNaturalLang = 0x48
)

// IPPResponse describes a canned printer reply.
type IPPResponse struct {
	Status        uint16
	StatusMessage string
	JobID         *int32 // Nil omits the job attributes group
}

// EncodeIPPResponse produces the binary IPP/2.0 encoding of resp.
func EncodeIPPResponse(resp IPPResponse) []byte {
	var buf bytes.Buffer
	buf.Write([]byte{2, 0})
	binary.Write(&buf, binary.BigEndian, resp.Status)
	binary.Write(&buf, binary.BigEndian, int32(1))

	buf.WriteByte(tagOperation)
	writeAttr(&buf, tagCharset, "attributes-charset", []byte("utf-8"))
	writeAttr(&buf, tagNaturalLang, "attributes-natural-language", []byte("en-us"))
	if resp.StatusMessage != "" {
		writeAttr(&buf, tagText, "status-message", []byte(resp.StatusMessage))
	}

	if resp.JobID != nil {
		buf.WriteByte(tagJob)
		writeAttr(&buf, tagInteger, "job-id", int32Bytes(*resp.JobID))
		writeAttr(&buf, tagEnum, "job-state", int32Bytes(3))
	}

	buf.WriteByte(tagEnd)
	return buf.Bytes()
}

func writeAttr(buf *bytes.Buffer, tag byte, name string, value []byte) {
	buf.WriteByte(tag)
	binary.Write(buf, binary.BigEndian, uint16(len(name)))
	buf.WriteString(name)
	binary.Write(buf, binary.BigEndian, uint16(len(value)))
	buf.Write(value)
}

func int32Bytes(v int32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(v))
	return b
}

// JobID returns a pointer for IPPResponse literals.
func JobID(id int32) *int32 {
	return &id
}

// InitLogging ensures the logger is properly initialized for tests
func InitLogging() {
	logger.Init(logger.LevelDebug)
}
