package expense

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xzheng/reimburse-report/internal/report"
	"github.com/xzheng/reimburse-report/internal/scanning"
)

// ErrScanningUnavailable is returned when no scanner is configured.
var ErrScanningUnavailable = errors.New("no scanner configured")

// IDGenerator generates unique IDs for records
type IDGenerator interface {
	Generate() uuid.UUID
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() uuid.UUID {
	return uuid.New()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles expense, trip and report operations. The scanner is
// optional; without one, scan requests report ErrScanningUnavailable.
type Service struct {
	db          DB
	storage     Storage
	scanner     scanning.Scanner
	idGenerator IDGenerator
	timeSource  TimeSource

	// Report builds assume serial invocation; the service provides the
	// critical section rather than trusting callers to serialize.
	buildMu sync.Mutex
}

// NewService creates a new Service with default ID generator and time source
func NewService(db DB, storage Storage, scanner scanning.Scanner) *Service {
	return &Service{
		db:          db,
		storage:     storage,
		scanner:     scanner,
		idGenerator: &defaultIDGenerator{},
		timeSource:  &defaultTimeSource{},
	}
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, storage Storage, scanner scanning.Scanner, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		storage:     storage,
		scanner:     scanner,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// sanitizeStoredFilename cleans up an uploaded filename before it becomes a
// storage path component
func sanitizeStoredFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	// Remove special characters, keep only alphanumeric, spaces, hyphens, and underscores
	reg := regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	base = reg.ReplaceAllString(base, "")

	// Replace multiple spaces with single space
	reg = regexp.MustCompile(`\s+`)
	base = reg.ReplaceAllString(base, " ")

	base = strings.TrimSpace(base)

	// Truncate phone-generated long filenames
	maxLen := 50
	if len(base) > maxLen {
		base = base[:maxLen]
	}

	if base == "" {
		base = "receipt"
	}

	return base + ext
}

// CreateExpense records a standalone expense item. The payload is optional
// at record time; a missing payload only fails report generation.
func (s *Service) CreateExpense(occasion string, category Category, date time.Time, filename string, data []byte, contentType string) (*Expense, error) {
	if date.IsZero() {
		return nil, fmt.Errorf("expense date is required")
	}

	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	var payloadPath string
	if len(data) > 0 {
		saved, err := s.storage.Save(fmt.Sprintf("%s_%s", id, sanitizeStoredFilename(filename)), data)
		if err != nil {
			return nil, fmt.Errorf("saving receipt file: %w", err)
		}
		payloadPath = saved
	}

	expense := &Expense{
		ID:          id,
		Occasion:    occasion,
		Category:    category,
		Date:        date,
		PayloadPath: payloadPath,
		ContentType: contentType,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.db.SaveExpense(expense); err != nil {
		if payloadPath != "" {
			s.storage.Delete(payloadPath)
		}
		return nil, fmt.Errorf("saving expense to database: %w", err)
	}

	return expense, nil
}

// GetExpense retrieves an expense by ID
func (s *Service) GetExpense(id uuid.UUID) (*Expense, error) {
	expense, err := s.db.GetExpense(id)
	if err != nil {
		return nil, fmt.Errorf("getting expense: %w", err)
	}
	return expense, nil
}

// ListExpenses returns all expenses
func (s *Service) ListExpenses() ([]*Expense, error) {
	expenses, err := s.db.ListExpenses()
	if err != nil {
		return nil, fmt.Errorf("listing expenses: %w", err)
	}
	return expenses, nil
}

// DeleteExpense removes an expense and its payload file
func (s *Service) DeleteExpense(id uuid.UUID) error {
	expense, err := s.db.GetExpense(id)
	if err != nil {
		return fmt.Errorf("getting expense for deletion: %w", err)
	}

	if expense.PayloadPath != "" {
		if err := s.storage.Delete(expense.PayloadPath); err != nil {
			slog.Warn("Failed to delete file", "filename", expense.PayloadPath, "error", err)
		}
	}

	if err := s.db.DeleteExpense(id); err != nil {
		return fmt.Errorf("deleting expense from database: %w", err)
	}
	return nil
}

// GetExpenseFile retrieves the payload for an expense
func (s *Service) GetExpenseFile(id uuid.UUID) ([]byte, string, error) {
	expense, err := s.db.GetExpense(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting expense: %w", err)
	}
	if expense.PayloadPath == "" {
		return nil, "", fmt.Errorf("expense has no receipt file")
	}

	data, err := s.storage.Get(expense.PayloadPath)
	if err != nil {
		return nil, "", fmt.Errorf("getting expense file: %w", err)
	}

	return data, expense.ContentType, nil
}

// CreateTrip records a trip
func (s *Service) CreateTrip(trip Trip) (*Trip, error) {
	if trip.Name == "" {
		return nil, fmt.Errorf("trip name is required")
	}

	now := s.timeSource.Now()
	trip.ID = s.idGenerator.Generate()
	trip.CreatedAt = now
	trip.UpdatedAt = now

	if err := s.db.SaveTrip(&trip); err != nil {
		return nil, fmt.Errorf("saving trip to database: %w", err)
	}
	return &trip, nil
}

// UpdateTrip updates a trip's fields, preserving its identity and creation time
func (s *Service) UpdateTrip(trip Trip) (*Trip, error) {
	existing, err := s.db.GetTrip(trip.ID)
	if err != nil {
		return nil, fmt.Errorf("getting trip for update: %w", err)
	}

	trip.CreatedAt = existing.CreatedAt
	trip.UpdatedAt = s.timeSource.Now()

	if err := s.db.SaveTrip(&trip); err != nil {
		return nil, fmt.Errorf("saving trip to database: %w", err)
	}
	return &trip, nil
}

// ListTrips returns all trips
func (s *Service) ListTrips() ([]*Trip, error) {
	trips, err := s.db.ListTrips()
	if err != nil {
		return nil, fmt.Errorf("listing trips: %w", err)
	}
	return trips, nil
}

// GetTripWithReceipts retrieves a trip with the receipts it owns
func (s *Service) GetTripWithReceipts(id uuid.UUID) (*Trip, []*Receipt, error) {
	trip, err := s.db.GetTrip(id)
	if err != nil {
		return nil, nil, fmt.Errorf("getting trip: %w", err)
	}

	receipts, err := s.db.ListTripReceipts(id)
	if err != nil {
		return nil, nil, fmt.Errorf("listing trip receipts: %w", err)
	}

	return trip, receipts, nil
}

// DeleteTrip removes a trip, its receipts and their payload files
func (s *Service) DeleteTrip(id uuid.UUID) error {
	receipts, err := s.db.ListTripReceipts(id)
	if err != nil {
		return fmt.Errorf("listing trip receipts for deletion: %w", err)
	}

	for _, receipt := range receipts {
		if receipt.PayloadPath == "" {
			continue
		}
		if err := s.storage.Delete(receipt.PayloadPath); err != nil {
			slog.Warn("Failed to delete file", "filename", receipt.PayloadPath, "error", err)
		}
	}

	if err := s.db.DeleteTrip(id); err != nil {
		return fmt.Errorf("deleting trip from database: %w", err)
	}
	return nil
}

// AddTripReceipt attaches a receipt to a trip
func (s *Service) AddTripReceipt(tripID uuid.UUID, category report.Category, date time.Time, filename string, data []byte, contentType string) (*Receipt, error) {
	if _, err := s.db.GetTrip(tripID); err != nil {
		return nil, fmt.Errorf("getting trip: %w", err)
	}
	if date.IsZero() {
		return nil, fmt.Errorf("receipt date is required")
	}

	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	var payloadPath string
	if len(data) > 0 {
		saved, err := s.storage.Save(fmt.Sprintf("%s_%s", id, sanitizeStoredFilename(filename)), data)
		if err != nil {
			return nil, fmt.Errorf("saving receipt file: %w", err)
		}
		payloadPath = saved
	}

	receipt := &Receipt{
		ID:          id,
		TripID:      tripID,
		Category:    category,
		Date:        date,
		PayloadPath: payloadPath,
		ContentType: contentType,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.db.SaveReceipt(receipt); err != nil {
		if payloadPath != "" {
			s.storage.Delete(payloadPath)
		}
		return nil, fmt.Errorf("saving receipt to database: %w", err)
	}

	return receipt, nil
}

// GetReceipt retrieves a trip receipt by ID
func (s *Service) GetReceipt(id uuid.UUID) (*Receipt, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}
	return receipt, nil
}

// GetReceiptFile retrieves the payload for a trip receipt
func (s *Service) GetReceiptFile(id uuid.UUID) ([]byte, string, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt: %w", err)
	}
	if receipt.PayloadPath == "" {
		return nil, "", fmt.Errorf("receipt has no file")
	}

	data, err := s.storage.Get(receipt.PayloadPath)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt file: %w", err)
	}

	return data, receipt.ContentType, nil
}

// DeleteReceipt removes a trip receipt and its payload file
func (s *Service) DeleteReceipt(id uuid.UUID) error {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return fmt.Errorf("getting receipt for deletion: %w", err)
	}

	if receipt.PayloadPath != "" {
		if err := s.storage.Delete(receipt.PayloadPath); err != nil {
			slog.Warn("Failed to delete file", "filename", receipt.PayloadPath, "error", err)
		}
	}

	if err := s.db.DeleteReceipt(id); err != nil {
		return fmt.Errorf("deleting receipt from database: %w", err)
	}
	return nil
}

// loadPayload reads a payload file, returning nil when the path is empty or
// the file is gone. The report builder turns a nil payload into its own
// missing-payload failure naming the item.
func (s *Service) loadPayload(path string) []byte {
	if path == "" {
		return nil
	}
	data, err := s.storage.Get(path)
	if err != nil {
		slog.Warn("Failed to read payload file", "path", path, "error", err)
		return nil
	}
	return data
}

// GenerateExpenseReport builds and persists a report over the given
// expenses, in the given order. On success the included expenses are marked
// reimbursed and stamped with the report ID.
func (s *Service) GenerateExpenseReport(expenseIDs []uuid.UUID) (*Report, error) {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	if len(expenseIDs) == 0 {
		return nil, &report.BuildError{Kind: report.FailureNoItems, Message: "No expenses to report."}
	}

	expenses := make([]*Expense, 0, len(expenseIDs))
	items := make([]report.ExpenseItem, 0, len(expenseIDs))
	for _, id := range expenseIDs {
		expense, err := s.db.GetExpense(id)
		if err != nil {
			return nil, fmt.Errorf("getting expense %s: %w", id, err)
		}
		expenses = append(expenses, expense)
		items = append(items, report.ExpenseItem{
			ID:       expense.ID,
			Date:     expense.Date,
			Occasion: expense.Occasion,
			Payload:  s.loadPayload(expense.PayloadPath),
			MIMEType: expense.ContentType,
		})
	}

	result, err := report.BuildExpenseReport(items)
	if err != nil {
		return nil, err
	}

	rep, err := s.persistReport(ReportTypeExpense, expenseIDs, result, expenseDateRange(expenses))
	if err != nil {
		return nil, err
	}

	now := s.timeSource.Now()
	for _, expense := range expenses {
		expense.Reimbursed = true
		expense.ReportID = rep.ID
		expense.UpdatedAt = now
		if err := s.db.SaveExpense(expense); err != nil {
			return nil, fmt.Errorf("marking expense %s reimbursed: %w", expense.ID, err)
		}
	}

	return rep, nil
}

// GenerateTripReport builds and persists a report for a single trip.
func (s *Service) GenerateTripReport(tripID uuid.UUID, mileage string) (*Report, error) {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	if tripID == uuid.Nil {
		return nil, &report.BuildError{Kind: report.FailureNoItems, Message: "No trip selected."}
	}

	trip, err := s.db.GetTrip(tripID)
	if err != nil {
		return nil, &report.BuildError{Kind: report.FailureTripNotFound, Message: "Trip not found."}
	}

	receipts, err := s.db.ListTripReceipts(tripID)
	if err != nil {
		return nil, fmt.Errorf("listing trip receipts: %w", err)
	}

	coreTrip := report.Trip{
		ID:                 trip.ID,
		Name:               trip.Name,
		StartDate:          trip.StartDate,
		EndDate:            trip.EndDate,
		EventStartDate:     trip.EventStartDate,
		EventEndDate:       trip.EventEndDate,
		DestinationCity:    trip.DestinationCity,
		DestinationCountry: trip.DestinationCountry,
		TransportType:      trip.TransportType,
	}
	itemIDs := make([]uuid.UUID, 0, len(receipts))
	for _, receipt := range receipts {
		itemIDs = append(itemIDs, receipt.ID)
		coreTrip.Receipts = append(coreTrip.Receipts, report.Receipt{
			ID:       receipt.ID,
			Date:     receipt.Date,
			Category: receipt.Category,
			Payload:  s.loadPayload(receipt.PayloadPath),
			MIMEType: receipt.ContentType,
		})
	}

	result, err := report.BuildTripReport(coreTrip, mileage)
	if err != nil {
		return nil, err
	}

	return s.persistReport(ReportTypeTrip, itemIDs, result, dateRange{trip.StartDate, trip.EndDate})
}

type dateRange struct {
	start time.Time
	end   time.Time
}

func expenseDateRange(expenses []*Expense) dateRange {
	var r dateRange
	for _, expense := range expenses {
		if r.start.IsZero() || expense.Date.Before(r.start) {
			r.start = expense.Date
		}
		if r.end.IsZero() || expense.Date.After(r.end) {
			r.end = expense.Date
		}
	}
	return r
}

// persistReport writes the archive file and the report record. The archive
// file is removed again if the record write fails.
func (s *Service) persistReport(reportType ReportType, itemIDs []uuid.UUID, result *report.Result, dates dateRange) (*Report, error) {
	id := s.idGenerator.Generate()

	archivePath, err := s.storage.Save(fmt.Sprintf("report_%s.zip", id), result.Archive)
	if err != nil {
		return nil, fmt.Errorf("saving report archive: %w", err)
	}

	rep := &Report{
		ID:             id,
		Type:           reportType,
		DateRangeStart: dates.start,
		DateRangeEnd:   dates.end,
		CreatedAt:      s.timeSource.Now(),
		ItemIDs:        itemIDs,
		Summary:        result.Summary,
		ArchivePath:    archivePath,
		ArchiveSize:    len(result.Archive),
	}

	if err := s.db.SaveReport(rep); err != nil {
		s.storage.Delete(archivePath)
		return nil, fmt.Errorf("saving report to database: %w", err)
	}

	return rep, nil
}

// GetReport retrieves a report by ID
func (s *Service) GetReport(id uuid.UUID) (*Report, error) {
	rep, err := s.db.GetReport(id)
	if err != nil {
		return nil, fmt.Errorf("getting report: %w", err)
	}
	return rep, nil
}

// ListReports returns all reports
func (s *Service) ListReports() ([]*Report, error) {
	reports, err := s.db.ListReports()
	if err != nil {
		return nil, fmt.Errorf("listing reports: %w", err)
	}
	return reports, nil
}

// GetReportArchive retrieves a report and its archive bytes
func (s *Service) GetReportArchive(id uuid.UUID) (*Report, []byte, error) {
	rep, err := s.db.GetReport(id)
	if err != nil {
		return nil, nil, fmt.Errorf("getting report: %w", err)
	}

	data, err := s.storage.Get(rep.ArchivePath)
	if err != nil {
		return nil, nil, fmt.Errorf("getting report archive: %w", err)
	}

	return rep, data, nil
}

// UpdateReportSummary replaces a report's summary text. The summary is the
// only mutable report field.
func (s *Service) UpdateReportSummary(id uuid.UUID, summary string) (*Report, error) {
	rep, err := s.db.GetReport(id)
	if err != nil {
		return nil, fmt.Errorf("getting report for update: %w", err)
	}

	rep.Summary = summary
	if err := s.db.SaveReport(rep); err != nil {
		return nil, fmt.Errorf("saving report to database: %w", err)
	}
	return rep, nil
}

// DeleteReport removes a report and its archive file. Included items keep
// their reimbursed flag.
func (s *Service) DeleteReport(id uuid.UUID) error {
	rep, err := s.db.GetReport(id)
	if err != nil {
		return fmt.Errorf("getting report for deletion: %w", err)
	}

	if err := s.storage.Delete(rep.ArchivePath); err != nil {
		slog.Warn("Failed to delete archive", "filename", rep.ArchivePath, "error", err)
	}

	if err := s.db.DeleteReport(id); err != nil {
		return fmt.Errorf("deleting report from database: %w", err)
	}
	return nil
}

// ScanReceipt extracts occasion, date and category suggestions from a
// receipt image using the configured scanner.
func (s *Service) ScanReceipt(data []byte, contentType string) (*scanning.ScanResult, error) {
	if s.scanner == nil {
		return nil, ErrScanningUnavailable
	}

	result, err := s.scanner.ScanReceipt(data, contentType)
	if err != nil {
		slog.Error("Failed to scan receipt",
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		return nil, fmt.Errorf("scanning receipt: %w", err)
	}
	return result, nil
}
