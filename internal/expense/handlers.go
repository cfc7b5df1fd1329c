package expense

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xzheng/reimburse-report/internal/report"
	"github.com/xzheng/reimburse-report/internal/scanning"
)

// maxUploadSize bounds multipart uploads; high-resolution phone photos can
// be large.
const maxUploadSize = int64(50 << 20) // 50MB

const requestDateLayout = "2006-01-02"

// corsError writes an error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// writeJSON writes a JSON response body
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeJSONError writes a JSON error body with CORS headers set
func writeJSONError(w http.ResponseWriter, status int, message string) {
	setCORSHeaders(w)
	writeJSON(w, status, map[string]string{"error": message})
}

// pathID parses the {id} path value
func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		corsError(w, "Invalid ID", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

// parseRequestDate parses a date field, accepting plain dates and RFC 3339
// timestamps.
func parseRequestDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("date is required")
	}
	if d, err := time.Parse(requestDateLayout, value); err == nil {
		return d, nil
	}
	d, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", value)
	}
	return d, nil
}

// uploadedFile is a receipt payload read out of a multipart form.
type uploadedFile struct {
	filename    string
	data        []byte
	contentType string
}

// readUploadedFile parses the multipart form and reads the "file" part.
// Returns a nil *uploadedFile without error when no file was attached.
func readUploadedFile(w http.ResponseWriter, r *http.Request) (*uploadedFile, bool) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		errorMsg := "Error parsing form"
		if err.Error() == "http: request body too large" {
			errorMsg = "File is too large. Maximum size is 50MB. Please compress or resize your image."
		}
		writeJSONError(w, http.StatusBadRequest, errorMsg)
		return nil, false
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, true
		}
		slog.Error("Error getting file from form", "error", err)
		writeJSONError(w, http.StatusBadRequest, "Error reading uploaded file")
		return nil, false
	}
	defer f.Close()

	if header.Size > maxUploadSize {
		writeJSONError(w, http.StatusBadRequest, "File is too large. Maximum size is 50MB. Please compress or resize your image.")
		return nil, false
	}

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeJSONError(w, http.StatusInternalServerError, "Error reading file. Please try again.")
		return nil, false
	}

	// Multipart writers commonly label every file part octet-stream, so
	// fall back to the filename extension in that case too.
	contentType := strings.ToLower(strings.TrimSpace(header.Header.Get("Content-Type")))
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = contentTypeForExtension(header.Filename)
	}

	return &uploadedFile{
		filename:    header.Filename,
		data:        data,
		contentType: contentType,
	}, true
}

// contentTypeForExtension sniffs a content type from the filename when the
// upload did not declare one
func contentTypeForExtension(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}

// categoryFromForm builds the receipt category from form fields: a
// predefined code in "category", or free text in "custom_category".
func categoryFromForm(r *http.Request) report.Category {
	if custom := strings.TrimSpace(r.FormValue("custom_category")); custom != "" {
		return report.NewCustomCategory(custom)
	}
	return report.NewCategory(report.CategoryCode(r.FormValue("category")))
}

// handleCreateExpense records a standalone expense from a multipart form
func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	file, ok := readUploadedFile(w, r)
	if !ok {
		return
	}

	date, err := parseRequestDate(r.FormValue("date"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	var filename string
	var data []byte
	var contentType string
	if file != nil {
		filename, data, contentType = file.filename, file.data, file.contentType
	}

	expense, err := s.service.CreateExpense(
		r.FormValue("occasion"),
		Category(r.FormValue("category")),
		date,
		filename,
		data,
		contentType,
	)
	if err != nil {
		slog.Error("Error creating expense", "error", err)
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, expense)
}

// handleListExpenses returns a list of all expenses
func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.service.ListExpenses()
	if err != nil {
		slog.Error("Error listing expenses", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, expenses)
}

// handleGetExpense returns a single expense
func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	expense, err := s.service.GetExpense(id)
	if err != nil {
		corsError(w, "Expense not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, expense)
}

// handleDeleteExpense deletes an expense
func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.service.DeleteExpense(id); err != nil {
		corsError(w, "Error deleting expense", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetExpenseFile returns the receipt payload for an expense
func (s *Server) handleGetExpenseFile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	data, contentType, err := s.service.GetExpenseFile(id)
	if err != nil {
		corsError(w, "File not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// tripRequest is the JSON body for creating or updating a trip
type tripRequest struct {
	Name               string `json:"name"`
	StartDate          string `json:"start_date"`
	EndDate            string `json:"end_date"`
	EventStartDate     string `json:"event_start_date,omitempty"`
	EventEndDate       string `json:"event_end_date,omitempty"`
	DestinationCity    string `json:"destination_city"`
	DestinationCountry string `json:"destination_country"`
	TransportType      string `json:"transport_type"`
	NoTransportReason  string `json:"no_transport_reason,omitempty"`
}

func (req tripRequest) toTrip(w http.ResponseWriter) (Trip, bool) {
	trip := Trip{
		Name:               req.Name,
		DestinationCity:    req.DestinationCity,
		DestinationCountry: req.DestinationCountry,
		TransportType:      report.TransportType(req.TransportType),
		NoTransportReason:  NoTransportReason(req.NoTransportReason),
	}

	var err error
	if req.StartDate != "" {
		if trip.StartDate, err = parseRequestDate(req.StartDate); err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return Trip{}, false
		}
	}
	if req.EndDate != "" {
		if trip.EndDate, err = parseRequestDate(req.EndDate); err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return Trip{}, false
		}
	}
	if req.EventStartDate != "" {
		d, err := parseRequestDate(req.EventStartDate)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return Trip{}, false
		}
		trip.EventStartDate = &d
	}
	if req.EventEndDate != "" {
		d, err := parseRequestDate(req.EventEndDate)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return Trip{}, false
		}
		trip.EventEndDate = &d
	}

	return trip, true
}

// handleCreateTrip records a new trip
func (s *Server) handleCreateTrip(w http.ResponseWriter, r *http.Request) {
	var req tripRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	trip, ok := req.toTrip(w)
	if !ok {
		return
	}

	created, err := s.service.CreateTrip(trip)
	if err != nil {
		slog.Error("Error creating trip", "error", err)
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// handleUpdateTrip replaces a trip's fields
func (s *Server) handleUpdateTrip(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req tripRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	trip, ok := req.toTrip(w)
	if !ok {
		return
	}
	trip.ID = id

	updated, err := s.service.UpdateTrip(trip)
	if err != nil {
		corsError(w, "Trip not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// handleListTrips returns a list of all trips
func (s *Server) handleListTrips(w http.ResponseWriter, r *http.Request) {
	trips, err := s.service.ListTrips()
	if err != nil {
		slog.Error("Error listing trips", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, trips)
}

// handleGetTrip returns a trip with its receipts
func (s *Server) handleGetTrip(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	trip, receipts, err := s.service.GetTripWithReceipts(id)
	if err != nil {
		corsError(w, "Trip not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"trip":     trip,
		"receipts": receipts,
	})
}

// handleDeleteTrip deletes a trip and the receipts it owns
func (s *Server) handleDeleteTrip(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.service.DeleteTrip(id); err != nil {
		corsError(w, "Error deleting trip", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAddTripReceipt attaches a receipt to a trip from a multipart form
func (s *Server) handleAddTripReceipt(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	file, ok := readUploadedFile(w, r)
	if !ok {
		return
	}

	date, err := parseRequestDate(r.FormValue("date"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	var filename string
	var data []byte
	var contentType string
	if file != nil {
		filename, data, contentType = file.filename, file.data, file.contentType
	}

	receipt, err := s.service.AddTripReceipt(id, categoryFromForm(r), date, filename, data, contentType)
	if err != nil {
		slog.Error("Error adding trip receipt", "error", err, "trip_id", id)
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, receipt)
}

// handleGetReceipt returns a single trip receipt
func (s *Server) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	receipt, err := s.service.GetReceipt(id)
	if err != nil {
		corsError(w, "Receipt not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

// handleDeleteReceipt deletes a trip receipt
func (s *Server) handleDeleteReceipt(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.service.DeleteReceipt(id); err != nil {
		corsError(w, "Error deleting receipt", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetReceiptFile returns the raw payload for a trip receipt
func (s *Server) handleGetReceiptFile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	data, contentType, err := s.service.GetReceiptFile(id)
	if err != nil {
		corsError(w, "File not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleGetReceiptPreview returns a PNG rendering of the receipt, whatever
// its stored format. PDFs render their first page.
func (s *Server) handleGetReceiptPreview(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	data, contentType, err := s.service.GetReceiptFile(id)
	if err != nil {
		corsError(w, "File not found", http.StatusNotFound)
		return
	}

	pngData, err := scanning.PreparePNG(data, contentType)
	if err != nil {
		slog.Error("Error rendering receipt preview", "error", err, "receipt_id", id)
		corsError(w, "Could not render preview", http.StatusUnprocessableEntity)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(pngData)
}

// reportRequest is the JSON body for generating a report
type reportRequest struct {
	Type       ReportType `json:"type"`
	ExpenseIDs []string   `json:"expense_ids,omitempty"`
	TripID     string     `json:"trip_id,omitempty"`
	Mileage    string     `json:"mileage,omitempty"`
}

// handleCreateReport generates a report. Build failures come back as JSON
// with the user-displayable reason.
func (s *Server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var rep *Report
	var err error
	switch req.Type {
	case ReportTypeExpense:
		ids := make([]uuid.UUID, 0, len(req.ExpenseIDs))
		for _, raw := range req.ExpenseIDs {
			id, parseErr := uuid.Parse(raw)
			if parseErr != nil {
				writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid expense id %q", raw))
				return
			}
			ids = append(ids, id)
		}
		rep, err = s.service.GenerateExpenseReport(ids)
	case ReportTypeTrip:
		var tripID uuid.UUID
		if req.TripID != "" {
			var parseErr error
			if tripID, parseErr = uuid.Parse(req.TripID); parseErr != nil {
				writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid trip id %q", req.TripID))
				return
			}
		}
		rep, err = s.service.GenerateTripReport(tripID, req.Mileage)
	default:
		writeJSONError(w, http.StatusBadRequest, "type must be \"expense\" or \"trip\"")
		return
	}

	if err != nil {
		slog.Error("Error generating report", "type", req.Type, "error", err)
		status := http.StatusBadRequest
		var buildErr *report.BuildError
		if errors.As(err, &buildErr) && buildErr.Kind == report.FailureTripNotFound {
			status = http.StatusNotFound
		}
		writeJSONError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, rep)
}

// handleListReports returns a list of all reports
func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := s.service.ListReports()
	if err != nil {
		slog.Error("Error listing reports", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// Ensure we always return an array, not nil
	if reports == nil {
		reports = []*Report{}
	}
	writeJSON(w, http.StatusOK, reports)
}

// handleGetReport returns a single report
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rep, err := s.service.GetReport(id)
	if err != nil {
		corsError(w, "Report not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// handleUpdateReportSummary edits a report's summary text
func (s *Server) handleUpdateReportSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req struct {
		Summary string `json:"summary"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	rep, err := s.service.UpdateReportSummary(id, req.Summary)
	if err != nil {
		corsError(w, "Report not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// handleDeleteReport deletes a report and its archive
func (s *Server) handleDeleteReport(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.service.DeleteReport(id); err != nil {
		corsError(w, "Error deleting report", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetReportArchive serves the zip archive for download. Any size cap
// (e.g. mail attachment limits) is the caller's concern; the size is in the
// headers.
func (s *Server) handleGetReportArchive(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rep, data, err := s.service.GetReportArchive(id)
	if err != nil {
		corsError(w, "Archive not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("report_%s.zip", rep.ID)))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(data)))
	w.Write(data)
}

// handleScanReceipt suggests expense fields for an uploaded receipt
func (s *Server) handleScanReceipt(w http.ResponseWriter, r *http.Request) {
	file, ok := readUploadedFile(w, r)
	if !ok {
		return
	}
	if file == nil {
		writeJSONError(w, http.StatusBadRequest, "No file was selected. Please choose a file to upload.")
		return
	}

	result, err := s.service.ScanReceipt(file.data, file.contentType)
	if err != nil {
		if errors.Is(err, ErrScanningUnavailable) {
			writeJSONError(w, http.StatusServiceUnavailable, "Scanning is not configured")
			return
		}
		slog.Error("Error scanning receipt", "filename", file.filename, "error", err)
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}
