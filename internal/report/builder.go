package report

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FailureKind classifies report build failures.
type FailureKind int

const (
	// FailureNoItems means nothing was selected to report on.
	FailureNoItems FailureKind = iota
	// FailureInvalidItem means an item is missing its date or identifier.
	FailureInvalidItem
	// FailureMissingPayload means an item's receipt payload is empty.
	FailureMissingPayload
	// FailureArchiveWrite means the zip backend rejected an entry.
	FailureArchiveWrite
	// FailureTripNotFound means the selected trip did not resolve. Produced
	// by callers that look trips up before invoking the builder.
	FailureTripNotFound
)

// BuildError is a report build failure with a user-displayable message.
// Every failure aborts the whole report; no partial summary or archive is
// ever returned alongside one.
type BuildError struct {
	Kind    FailureKind
	Message string
}

func (e *BuildError) Error() string {
	return e.Message
}

func failf(kind FailureKind, format string, args ...any) *BuildError {
	return &BuildError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Result is a successfully built report: the full summary text and the
// assembled zip archive, returned as a single atomic unit.
type Result struct {
	Summary string
	Archive []byte
}

// BuildExpenseReport assembles a report over standalone expense items,
// processed in caller-supplied order. Any item failure aborts the whole
// build and discards the scratch archive.
func BuildExpenseReport(items []ExpenseItem) (*Result, error) {
	if len(items) == 0 {
		return nil, failf(FailureNoItems, "No expenses to report.")
	}

	var minDate, maxDate time.Time
	for _, item := range items {
		if item.ID == uuid.Nil || item.Date.IsZero() {
			return nil, failf(FailureInvalidItem, "Expense '%s' is missing its date or identifier.", displayOccasion(item.Occasion))
		}
		if minDate.IsZero() || item.Date.Before(minDate) {
			minDate = item.Date
		}
		if maxDate.IsZero() || item.Date.After(maxDate) {
			maxDate = item.Date
		}
	}

	summaryLines := []string{
		"Expenses Report",
		fmt.Sprintf("Date Range: %s to %s", minDate.Format(dateLayout), maxDate.Format(dateLayout)),
		"",
	}

	scratch, err := newScratchArchive("expense-report-*.zip")
	if err != nil {
		return nil, failf(FailureArchiveWrite, "Failed to create ZIP archive.")
	}
	defer scratch.discard()

	for _, item := range items {
		occasion := displayOccasion(item.Occasion)
		data, ext := Normalize(item.Payload, item.MIMEType)
		if len(data) == 0 {
			return nil, failf(FailureMissingPayload, "No receipt data for '%s' on %s. Please check the receipt image and try again.", occasion, item.Date.Format(dateLayout))
		}
		filename := ExpenseReceiptFilename(occasion, item.Date, item.ID, ext)
		if err := scratch.addEntry(filename, data); err != nil {
			return nil, failf(FailureArchiveWrite, "Failed to add receipt for '%s' on %s. Please check the receipt image and try again.", occasion, item.Date.Format(dateLayout))
		}
		summaryLines = append(summaryLines, fmt.Sprintf("• %s on %s — Receipt: %s", occasion, item.Date.Format(dateLayout), filename))
	}

	archive, err := scratch.bytes()
	if err != nil {
		return nil, failf(FailureArchiveWrite, "Failed to create ZIP archive.")
	}

	summaryLines = append(summaryLines, "", fmt.Sprintf("Total Expenses: %d", len(items)))
	return &Result{Summary: strings.Join(summaryLines, "\n"), Archive: archive}, nil
}

// BuildTripReport assembles a report for a single trip. Receipts are
// processed sorted by category display name, case-insensitive ascending,
// ties kept in input order. The per-diem block is embedded when available
// and a mileage line follows it for drive trips with a non-blank mileage.
func BuildTripReport(trip Trip, mileage string) (*Result, error) {
	tripName := trip.Name
	if tripName == "" {
		tripName = "Trip"
	}

	summaryLines := []string{fmt.Sprintf("Trip Expenses Report - %s", tripName)}

	if info, ok := CalculatePerDiem(trip); ok {
		summaryLines = append(summaryLines, "")
		summaryLines = append(summaryLines, strings.Split(info.render("Per Diem Reimbursement Request", "Location:"), "\n")...)
	}

	if trip.TransportType == TransportDrive && strings.TrimSpace(mileage) != "" {
		summaryLines = append(summaryLines, fmt.Sprintf("Mileage reimbursement: %s miles", mileage))
	}

	summaryLines = append(summaryLines, "", "Receipts for reimbursements")

	receipts := make([]Receipt, len(trip.Receipts))
	copy(receipts, trip.Receipts)
	sort.SliceStable(receipts, func(i, j int) bool {
		return strings.ToLower(receipts[i].Category.DisplayName()) < strings.ToLower(receipts[j].Category.DisplayName())
	})

	scratch, err := newScratchArchive("trip-report-*.zip")
	if err != nil {
		return nil, failf(FailureArchiveWrite, "Failed to create ZIP archive.")
	}
	defer scratch.discard()

	for _, receipt := range receipts {
		category := receipt.Category.DisplayName()
		if receipt.ID == uuid.Nil || receipt.Date.IsZero() {
			return nil, failf(FailureInvalidItem, "Receipt [%s] is missing its date or identifier.", category)
		}
		data, ext := Normalize(receipt.Payload, receipt.MIMEType)
		if len(data) == 0 {
			return nil, failf(FailureMissingPayload, "No receipt data for [%s] on %s. Please check the receipt image and try again.", category, receipt.Date.Format(dateLayout))
		}
		filename := TripReceiptFilename(tripName, category, receipt.Date, receipt.ID, ext)
		if err := scratch.addEntry(filename, data); err != nil {
			return nil, failf(FailureArchiveWrite, "Failed to add receipt [%s] on %s. Please check the receipt image and try again.", category, receipt.Date.Format(dateLayout))
		}
		summaryLines = append(summaryLines, fmt.Sprintf("• %s: %s", category, filename))
	}

	archive, err := scratch.bytes()
	if err != nil {
		return nil, failf(FailureArchiveWrite, "Failed to create ZIP archive.")
	}

	summaryLines = append(summaryLines, "", fmt.Sprintf("Total Receipts: %d", len(receipts)))
	return &Result{Summary: strings.Join(summaryLines, "\n"), Archive: archive}, nil
}

func displayOccasion(occasion string) string {
	if occasion == "" {
		return "Expense"
	}
	return occasion
}

// scratchArchive is the transient zip under construction. It lives in a
// temp file that is removed on every exit path; bytes only succeeds after a
// clean writer close, so a failed build can never leak a partial archive.
type scratchArchive struct {
	file   *os.File
	writer *zip.Writer
	closed bool
}

func newScratchArchive(pattern string) (*scratchArchive, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return nil, fmt.Errorf("creating scratch archive: %w", err)
	}
	return &scratchArchive{file: f, writer: zip.NewWriter(f)}, nil
}

// addEntry appends one entry with the exact uncompressed byte length of data.
func (s *scratchArchive) addEntry(filename string, data []byte) error {
	w, err := s.writer.Create(filename)
	if err != nil {
		return fmt.Errorf("creating archive entry: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing archive entry: %w", err)
	}
	return nil
}

// bytes finalizes the archive and reads it back in full.
func (s *scratchArchive) bytes() ([]byte, error) {
	if err := s.writer.Close(); err != nil {
		return nil, fmt.Errorf("closing archive: %w", err)
	}
	s.closed = true
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewinding scratch archive: %w", err)
	}
	data, err := io.ReadAll(s.file)
	if err != nil {
		return nil, fmt.Errorf("reading scratch archive: %w", err)
	}
	return data, nil
}

// discard releases the scratch resources. Safe to call after bytes.
func (s *scratchArchive) discard() {
	if !s.closed {
		s.writer.Close()
	}
	s.file.Close()
	os.Remove(s.file.Name())
}
