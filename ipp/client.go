// Package ipp submits Print-Job requests to IPP printers. Requests are encoded
// and responses decoded with github.com/phin1x/go-ipp; the HTTP exchange itself
// runs over a caller-supplied http.Client so deadlines follow the context.
package ipp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	goipp "github.com/phin1x/go-ipp"

	"github.com/lukeod/netprint/datamodel"
	"github.com/lukeod/netprint/logger"
)

// DefaultPort is the IANA port for IPP.
const DefaultPort = "631"

// statusClientErrorMin is the first IPP status code that denotes a client or server error.
const statusClientErrorMin = 0x0400

// ErrUnsupportedScheme is returned for printer URIs that are not ipp, ipps, http or https.
var ErrUnsupportedScheme = errors.New("unsupported printer URI scheme")

// TransportError reports that the printer could not be reached.
type TransportError struct {
	URI string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("failed to reach printer at %s: %v", e.URI, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError reports that the printer answered but rejected the job or
// sent something that is not a valid IPP response.
type ProtocolError struct {
	Status  int16
	Message string
	Err     error
}

func (e *ProtocolError) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("printer rejected job: %s (status 0x%04x)", e.Message, uint16(e.Status))
	case e.Err != nil:
		return fmt.Sprintf("invalid response from printer: %v", e.Err)
	default:
		return fmt.Sprintf("printer rejected job (status 0x%04x)", uint16(e.Status))
	}
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// Client sends Print-Job operations.
type Client struct {
	HTTP *http.Client
}

// NewClient returns a Client whose exchanges are bounded by timeout.
func NewClient(timeout time.Duration) *Client {
	return &Client{HTTP: &http.Client{Timeout: timeout}}
}

// HTTPURL maps a printer URI onto the HTTP URL the request is posted to:
// ipp becomes http and ipps becomes https, with port 631 when none is given.
func HTTPURL(printerURI string) (string, error) {
	u, err := url.Parse(printerURI)
	if err != nil {
		return "", fmt.Errorf("invalid printer URI '%s': %w", printerURI, err)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("invalid printer URI '%s': missing host", printerURI)
	}

	switch strings.ToLower(u.Scheme) {
	case "ipp":
		u.Scheme = "http"
	case "ipps":
		u.Scheme = "https"
	case "http", "https":
		return u.String(), nil
	default:
		return "", fmt.Errorf("%w: '%s'", ErrUnsupportedScheme, u.Scheme)
	}

	if u.Port() == "" {
		u.Host = net.JoinHostPort(u.Hostname(), DefaultPort)
	}
	return u.String(), nil
}

// PrintJob submits one document and returns the job id assigned by the
// printer, or nil when the response carries none.
func (c *Client) PrintJob(ctx context.Context, printerURI string, job datamodel.IPPJob) (*int, error) {
	log := logger.WithModule("ipp")

	target, err := HTTPURL(printerURI)
	if err != nil {
		return nil, err
	}

	req := goipp.NewRequest(goipp.OperationPrintJob, 1)
	req.OperationAttributes[goipp.AttributePrinterURI] = printerURI
	req.OperationAttributes[goipp.AttributeRequestingUserName] = job.UserName
	req.OperationAttributes[goipp.AttributeJobName] = job.JobName
	req.OperationAttributes[goipp.AttributeDocumentFormat] = job.DocumentFormat

	payload, err := req.Encode()
	if err != nil {
		return nil, fmt.Errorf("failed to encode print job: %w", err)
	}

	body := io.MultiReader(bytes.NewReader(payload), bytes.NewReader(job.Document))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target, body)
	if err != nil {
		return nil, &TransportError{URI: printerURI, Err: err}
	}
	httpReq.ContentLength = int64(len(payload) + len(job.Document))
	httpReq.Header.Set("Content-Type", goipp.ContentTypeIPP)

	log.Debug("Sending Print-Job", "target", target, "job", job.JobName,
		"format", job.DocumentFormat, "bytes", len(job.Document))

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, &TransportError{URI: printerURI, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &ProtocolError{Err: fmt.Errorf("unexpected HTTP status %s", resp.Status)}
	}

	ippResp, err := goipp.NewResponseDecoder(resp.Body).Decode(io.Discard)
	if err != nil {
		return nil, &ProtocolError{Err: err}
	}

	if ippResp.StatusCode >= statusClientErrorMin {
		return nil, &ProtocolError{
			Status:  ippResp.StatusCode,
			Message: statusMessage(ippResp),
		}
	}

	id := jobID(ippResp)
	log.Info("Print job accepted", "printer", printerURI, "status", fmt.Sprintf("0x%04x", uint16(ippResp.StatusCode)), "job_id", id)
	return id, nil
}

func statusMessage(resp *goipp.Response) string {
	attrs := resp.OperationAttributes["status-message"]
	if len(attrs) == 0 {
		return ""
	}
	msg, _ := attrs[0].Value.(string)
	return msg
}

// jobID reads job-attributes -> job-id; absence is not an error.
func jobID(resp *goipp.Response) *int {
	for _, group := range resp.JobAttributes {
		attrs := group[goipp.AttributeJobID]
		if len(attrs) == 0 {
			continue
		}
		var id int
		switch v := attrs[0].Value.(type) {
		case int:
			id = v
		case int8:
			id = int(v)
		case int16:
			id = int(v)
		case int32:
			id = int(v)
		case int64:
			id = int(v)
		default:
			return nil
		}
		return &id
	}
	return nil
}
