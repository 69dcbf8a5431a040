package receipt

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/zombor/receipt-scanner/internal/scanning"
)

// maxUploadSize bounds the multipart form (high-resolution phone photos and multi-page scans)
const maxUploadSize = int64(50 << 20) // 50MB

// ErrNoRecord is returned when an export is requested before anything was scanned
var ErrNoRecord = errors.New("no receipt has been scanned")

// corsError writes an error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// uploadError is a rejected upload with the status to answer with
type uploadError struct {
	status  int
	message string
}

// readUpload reads the "file" field of a multipart form
func readUpload(r *http.Request) (string, []byte, *uploadError) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		message := "Error parsing form"
		if err.Error() == "http: request body too large" {
			message = "File is too large. Maximum size is 50MB."
		}
		return "", nil, &uploadError{status: http.StatusBadRequest, message: message}
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		message := "No file provided"
		if errors.Is(err, http.ErrMissingFile) {
			message = "No file was selected. Please choose a file to upload."
		}
		return "", nil, &uploadError{status: http.StatusBadRequest, message: message}
	}
	defer f.Close()

	if header.Size > maxUploadSize {
		return "", nil, &uploadError{status: http.StatusBadRequest, message: "File is too large. Maximum size is 50MB."}
	}

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		return "", nil, &uploadError{status: http.StatusInternalServerError, message: "Error reading file. Please try again."}
	}

	return header.Filename, data, nil
}

// scanOutcome is the result of one upload, shared by the HTML and JSON handlers
type scanOutcome struct {
	scan    *Scan
	status  int
	err     string
	saveErr string
}

// processUpload runs the scan and then the store insert. The record joins the
// session before the insert, so it stays visible and exportable when the insert fails.
func (s *Server) processUpload(r *http.Request, session *Session, okStatus int) scanOutcome {
	filename, data, uploadErr := readUpload(r)
	if uploadErr != nil {
		return scanOutcome{status: uploadErr.status, err: uploadErr.message}
	}

	scan, err := s.service.Scan(r.Context(), filename, data)
	if err != nil {
		var acqErr *scanning.AcquisitionError
		switch {
		case errors.Is(err, scanning.ErrUnsupportedType):
			return scanOutcome{status: http.StatusBadRequest, err: "Unsupported file type. Please upload a JPG, JPEG, PNG or PDF file."}
		case errors.Is(err, ErrNoText):
			return scanOutcome{status: http.StatusUnprocessableEntity, err: "No text could be read from the file. Please upload a clearer image or PDF."}
		case errors.As(err, &acqErr):
			return scanOutcome{status: http.StatusUnprocessableEntity, err: acqErr.Message()}
		default:
			slog.Error("Error processing receipt", "filename", filename, "error", err)
			return scanOutcome{status: http.StatusInternalServerError, err: "Error processing receipt. Please try again."}
		}
	}

	session.Add(scan)

	if err := s.service.Save(r.Context(), scan.Record); err != nil {
		slog.Error("Error saving receipt", "filename", filename, "error", err)
		return scanOutcome{scan: scan, status: http.StatusBadGateway, saveErr: fmt.Sprintf("Error saving receipt: %v", err)}
	}

	return scanOutcome{scan: scan, status: okStatus}
}

// render executes the page template into a buffer so template errors become a 500
func (s *Server) render(w http.ResponseWriter, status int, data pageData) {
	data.Columns = Columns

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		slog.Error("Failed to render page", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	setCORSHeaders(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// handleIndex serves the upload form with the session's current scan and history
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := pageData{}
	if session := s.existingSession(r); session != nil {
		data.Current = session.Current()
		data.History = session.History()
	}
	s.render(w, http.StatusOK, data)
}

// handleScan handles an upload from the HTML form
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	session := s.session(w, r)
	outcome := s.processUpload(r, session, http.StatusOK)

	s.render(w, outcome.status, pageData{
		Current: outcome.scan,
		History: session.History(),
		Saved:   outcome.scan != nil && outcome.saveErr == "",
		Error:   outcome.err,
		SaveErr: outcome.saveErr,
	})
}

// scanResponse is the JSON body of an API upload
type scanResponse struct {
	*Scan
	Saved bool   `json:"saved"`
	Error string `json:"error,omitempty"`
}

// handleAPIScan handles an upload from an API client
func (s *Server) handleAPIScan(w http.ResponseWriter, r *http.Request) {
	session := s.session(w, r)
	outcome := s.processUpload(r, session, http.StatusCreated)

	resp := scanResponse{
		Scan:  outcome.scan,
		Saved: outcome.scan != nil && outcome.saveErr == "",
		Error: outcome.err,
	}
	if outcome.saveErr != "" {
		resp.Error = outcome.saveErr
	}

	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(outcome.status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleAPIHistory returns the session's records
func (s *Server) handleAPIHistory(w http.ResponseWriter, r *http.Request) {
	records := []Record{}
	if session := s.existingSession(r); session != nil {
		records = session.History()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(records); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeCSV sends records as a CSV attachment
func writeCSV(w http.ResponseWriter, filename string, records []Record) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, records); err != nil {
		slog.Error("Error writing CSV", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	setCORSHeaders(w)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Write(buf.Bytes())
}

// handleExportReceipt downloads the current record
func (s *Server) handleExportReceipt(w http.ResponseWriter, r *http.Request) {
	session := s.existingSession(r)
	if session == nil || session.Current() == nil {
		corsError(w, ErrNoRecord.Error(), http.StatusNotFound)
		return
	}
	writeCSV(w, "receipt_data.csv", []Record{session.Current().Record})
}

// handleExportHistory downloads every record of the session
func (s *Server) handleExportHistory(w http.ResponseWriter, r *http.Request) {
	session := s.existingSession(r)
	if session == nil {
		corsError(w, ErrNoRecord.Error(), http.StatusNotFound)
		return
	}
	records := session.History()
	if len(records) == 0 {
		corsError(w, ErrNoRecord.Error(), http.StatusNotFound)
		return
	}
	writeCSV(w, "receipt_history.csv", records)
}

// handleClearHistory starts over with an empty session
func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if session := s.existingSession(r); session != nil {
		session.Clear()
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handlePreview serves a thumbnail of an uploaded image
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		corsError(w, "Upload name required", http.StatusBadRequest)
		return
	}

	thumb, err := s.service.Preview(name)
	if err != nil {
		corsError(w, "Preview not found", http.StatusNotFound)
		return
	}

	setCORSHeaders(w)
	w.Header().Set("Content-Type", "image/png")
	w.Write(thumb)
}
