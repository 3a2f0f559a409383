// Package printjob turns an uploaded document and a printer URI into a
// single IPP Print-Job exchange and reports the outcome as a PrintJobResult.
package printjob

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lukeod/netprint/datamodel"
	"github.com/lukeod/netprint/ipp"
	"github.com/lukeod/netprint/logger"
)

const (
	// DefaultTimeout bounds one exchange when the Pipeline has none configured.
	DefaultTimeout = 30 * time.Second
	// DefaultJobName is used when the upload has no filename.
	DefaultJobName = "print job"
	// DefaultUserName is the requesting-user-name sent with every job.
	DefaultUserName = "netprint"
	// FallbackErrorMessage replaces an empty error message in a failed result.
	FallbackErrorMessage = "Failed to print document"
	// DefaultMimeType is the document format for unknown extensions.
	DefaultMimeType = "application/octet-stream"
)

// ErrMissingInput is returned when the document or printer URI is absent.
var ErrMissingInput = errors.New("missing file or printer URI")

var mimeTypes = map[string]string{
	".pdf":  "application/pdf",
	".txt":  "text/plain",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".ps":   "application/postscript",
	".pwg":  "image/pwg-raster",
	".urf":  "image/urf",
}

// Transport sends one Print-Job and returns the printer-assigned job id, if any.
type Transport interface {
	PrintJob(ctx context.Context, printerURI string, job datamodel.IPPJob) (*int, error)
}

// Remover deletes a staged document.
type Remover interface {
	Remove(path string) error
}

// Pipeline submits print jobs. It keeps no per-job state, so one Pipeline
// serves concurrent submissions.
type Pipeline struct {
	Transport      Transport
	Remover        Remover // Nil removes staged files with os.Remove
	UserName       string
	DefaultJobName string
	Timeout        time.Duration
}

// NewPipeline builds a Pipeline from the print settings.
func NewPipeline(transport Transport, remover Remover, settings datamodel.PrintSettings) *Pipeline {
	return &Pipeline{
		Transport:      transport,
		Remover:        remover,
		UserName:       settings.RequestingUser,
		DefaultJobName: settings.DefaultJobName,
		Timeout:        time.Duration(settings.TimeoutSeconds) * time.Second,
	}
}

// MimeType infers the document format from the filename extension.
func MimeType(filename string) string {
	if mt, ok := mimeTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return mt
	}
	return DefaultMimeType
}

// Submit performs one submission. Failures are reported in the result, never
// as an error. The staging file, if any, is removed before Submit returns.
func (p *Pipeline) Submit(ctx context.Context, req datamodel.PrintJobRequest) datamodel.PrintJobResult {
	log := logger.WithModule("printjob")
	defer p.cleanup(req.StagingPath)

	if req.PrinterURI == "" || (req.Document == nil && req.StagingPath == "") {
		log.Warn("Rejected print request", "error", ErrMissingInput)
		return failure(datamodel.KindInput, ErrMissingInput.Error())
	}
	if _, err := ipp.HTTPURL(req.PrinterURI); err != nil {
		log.Warn("Rejected print request", "printer", req.PrinterURI, "error", err)
		return failure(datamodel.KindInput, err.Error())
	}

	doc := req.Document
	if doc == nil {
		data, err := os.ReadFile(req.StagingPath)
		if err != nil {
			log.Error("Failed to read staged document", "path", req.StagingPath, "error", err)
			return failure(datamodel.KindInput, fmt.Sprintf("failed to read uploaded file: %v", err))
		}
		doc = data
	}

	job := datamodel.IPPJob{
		UserName:       p.userName(),
		JobName:        p.jobName(req.Filename),
		DocumentFormat: MimeType(req.Filename),
		Document:       doc,
	}

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	log.Info("Submitting print job", "printer", req.PrinterURI, "job", job.JobName,
		"format", job.DocumentFormat, "bytes", len(doc))

	id, err := p.Transport.PrintJob(ctx, req.PrinterURI, job)
	if err != nil {
		kind := classify(err)
		log.Error("Print job failed", "printer", req.PrinterURI, "kind", kind, "error", err)
		return failure(kind, err.Error())
	}

	return datamodel.PrintJobResult{Success: true, JobID: id}
}

func (p *Pipeline) userName() string {
	if p.UserName != "" {
		return p.UserName
	}
	return DefaultUserName
}

func (p *Pipeline) jobName(filename string) string {
	if filename != "" {
		return filename
	}
	if p.DefaultJobName != "" {
		return p.DefaultJobName
	}
	return DefaultJobName
}

func (p *Pipeline) cleanup(path string) {
	if path == "" {
		return
	}
	var err error
	if p.Remover != nil {
		err = p.Remover.Remove(path)
	} else if err = os.Remove(path); errors.Is(err, os.ErrNotExist) {
		err = nil
	}
	if err != nil {
		logger.Warn("Failed to remove staged document", "path", path, "error", err)
	}
}

// classify maps a transport error onto the result kind; anything
// unrecognised counts as a transport failure.
func classify(err error) datamodel.ErrorKind {
	var protoErr *ipp.ProtocolError
	if errors.As(err, &protoErr) {
		return datamodel.KindProtocol
	}
	return datamodel.KindTransport
}

func failure(kind datamodel.ErrorKind, msg string) datamodel.PrintJobResult {
	if msg == "" {
		msg = FallbackErrorMessage
	}
	return datamodel.PrintJobResult{Success: false, Error: msg, Kind: kind}
}
