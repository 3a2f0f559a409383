package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/lukeod/netprint/datamodel"
	"github.com/lukeod/netprint/inspect"
	"github.com/lukeod/netprint/logger"
)

const (
	defaultMaxUploadMB = 64
	// multipart parts above this size spill to temporary files
	multipartMemory = 8 << 20

	msgDiscoveryFailed = "Failed to discover printers"
	msgPrintSubmitted  = "Print job submitted successfully"
	msgUploadTooLarge  = "Uploaded file is too large"
	msgInvalidForm     = "Invalid multipart form"
	msgStagingFailed   = "Failed to store uploaded file"
	msgInspectFailed   = "Failed to inspect printer"
)

type printersResponse struct {
	Printers []datamodel.PrinterEndpoint `json:"printers"`
	Success  bool                        `json:"success"`
	Error    string                      `json:"error,omitempty"`
}

type printSuccess struct {
	Success bool   `json:"success"`
	JobID   *int   `json:"jobId"`
	Message string `json:"message"`
}

type printFailure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// handleHealth handles GET /api/health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListPrinters handles GET /api/printers
func (s *Server) handleListPrinters(w http.ResponseWriter, r *http.Request) {
	printers, err := s.discoverer.DiscoverFunc(r.Context(), nil)
	if err != nil {
		logger.Error("Printer discovery failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, printersResponse{
			Printers: []datamodel.PrinterEndpoint{},
			Success:  false,
			Error:    msgDiscoveryFailed,
		})
		return
	}
	if printers == nil {
		printers = []datamodel.PrinterEndpoint{}
	}
	writeJSON(w, http.StatusOK, printersResponse{Printers: printers, Success: true})
}

// handlePrint handles POST /api/print
func (s *Server) handlePrint(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	log := logger.WithModule("api").With("request_id", requestID)

	maxMB := s.settings.MaxUploadMB
	if maxMB <= 0 {
		maxMB = defaultMaxUploadMB
	}
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxMB)<<20)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			log.Warn("Upload rejected", "limit_mb", maxMB)
			writeJSON(w, http.StatusRequestEntityTooLarge, printFailure{Error: msgUploadTooLarge})
			return
		}
		log.Warn("Invalid print request", "error", err)
		writeJSON(w, http.StatusBadRequest, printFailure{Error: msgInvalidForm})
		return
	}
	defer r.MultipartForm.RemoveAll()

	req := datamodel.PrintJobRequest{PrinterURI: strings.TrimSpace(r.FormValue("printerUri"))}

	file, header, err := r.FormFile("file")
	if err == nil {
		path, stageErr := s.stager.Stage(file, header.Filename)
		file.Close()
		if stageErr != nil {
			log.Error("Failed to stage upload", "error", stageErr)
			writeJSON(w, http.StatusInternalServerError, printFailure{Error: msgStagingFailed})
			return
		}
		req.Filename = header.Filename
		req.StagingPath = path
	}

	log.Info("Print request received", "printer", req.PrinterURI, "file", req.Filename)

	// The pipeline removes the staged file before returning
	result := s.submitter.Submit(r.Context(), req)
	if result.Success {
		writeJSON(w, http.StatusOK, printSuccess{Success: true, JobID: result.JobID, Message: msgPrintSubmitted})
		return
	}

	status := http.StatusInternalServerError
	if result.Kind == datamodel.KindInput {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, printFailure{Error: result.Error})
}

// handleInspect handles GET /api/printers/inspect?host=
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	host := r.URL.Query().Get("host")

	inspection, err := s.inspector.Inspect(r.Context(), host)
	if err != nil {
		if errors.Is(err, inspect.ErrInvalidHost) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		logger.Error("Inspection failed", "host", host, "error", err)
		writeError(w, http.StatusInternalServerError, msgInspectFailed)
		return
	}
	writeJSON(w, http.StatusOK, inspection)
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Debug("Failed to write response", "error", err)
	}
}

// writeError writes an error response
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{"success": false, "error": message})
}
