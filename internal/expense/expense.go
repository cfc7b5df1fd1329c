package expense

import (
	"time"

	"github.com/google/uuid"
	"github.com/xzheng/reimburse-report/internal/report"
)

// Category classifies a standalone expense item.
type Category string

const (
	CategoryMeal      Category = "meal"
	CategoryEquipment Category = "equipment"
)

// DisplayName returns the human-readable expense category label.
func (c Category) DisplayName() string {
	switch c {
	case CategoryMeal:
		return "Meal"
	case CategoryEquipment:
		return "Equipment"
	}
	return string(c)
}

// NoTransportReason explains a not_applicable transport type.
type NoTransportReason string

const (
	NoTransportLocalEvent     NoTransportReason = "local_event"
	NoTransportCoveredByOther NoTransportReason = "covered_by_other"
)

// Expense is a standalone expense item with an attached receipt payload
// stored on disk.
type Expense struct {
	ID          uuid.UUID `json:"id"`
	Occasion    string    `json:"occasion"`
	Category    Category  `json:"category"`
	Date        time.Time `json:"date"`
	PayloadPath string    `json:"payload_path"`
	ContentType string    `json:"content_type"`
	Reimbursed  bool      `json:"reimbursed"`
	ReportID    uuid.UUID `json:"report_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Trip is a multi-day trip that owns its receipts. Event dates are optional
// and default to the trip bounds for per-diem purposes.
type Trip struct {
	ID                 uuid.UUID            `json:"id"`
	Name               string               `json:"name"`
	StartDate          time.Time            `json:"start_date"`
	EndDate            time.Time            `json:"end_date"`
	EventStartDate     *time.Time           `json:"event_start_date,omitempty"`
	EventEndDate       *time.Time           `json:"event_end_date,omitempty"`
	DestinationCity    string               `json:"destination_city"`
	DestinationCountry string               `json:"destination_country"`
	TransportType      report.TransportType `json:"transport_type"`
	NoTransportReason  NoTransportReason    `json:"no_transport_reason,omitempty"`
	CreatedAt          time.Time            `json:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at"`
}

// Receipt belongs to exactly one trip. TripID is a back-reference used for
// lookup only; the trip owns the receipt's lifecycle and deleting a trip
// deletes its receipts.
type Receipt struct {
	ID          uuid.UUID       `json:"id"`
	TripID      uuid.UUID       `json:"trip_id"`
	Category    report.Category `json:"category"`
	Date        time.Time       `json:"date"`
	PayloadPath string          `json:"payload_path"`
	ContentType string          `json:"content_type"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ReportType distinguishes the two report flavors.
type ReportType string

const (
	ReportTypeExpense ReportType = "expense"
	ReportTypeTrip    ReportType = "trip"
)

// Report is a generated reimbursement report. Immutable after creation
// except for the user-editable summary. The archive lives on disk; the
// record carries its path and size.
type Report struct {
	ID             uuid.UUID   `json:"id"`
	Type           ReportType  `json:"type"`
	DateRangeStart time.Time   `json:"date_range_start"`
	DateRangeEnd   time.Time   `json:"date_range_end"`
	CreatedAt      time.Time   `json:"created_at"`
	ItemIDs        []uuid.UUID `json:"item_ids"`
	Summary        string      `json:"summary"`
	ArchivePath    string      `json:"archive_path"`
	ArchiveSize    int         `json:"archive_size"`
}
