package report

import (
	"time"

	"github.com/google/uuid"
)

// ExpenseItem is a standalone expense with its receipt payload, fully
// materialized by the caller before a build.
type ExpenseItem struct {
	ID       uuid.UUID
	Date     time.Time
	Occasion string
	Payload  []byte
	MIMEType string
}

// Receipt is a single trip receipt with its payload.
type Receipt struct {
	ID       uuid.UUID
	Date     time.Time
	Category Category
	Payload  []byte
	MIMEType string
}

// Trip carries the trip fields the report engine needs plus the receipts to
// include. Event dates are optional and default to the trip bounds.
type Trip struct {
	ID                 uuid.UUID
	Name               string
	StartDate          time.Time
	EndDate            time.Time
	EventStartDate     *time.Time
	EventEndDate       *time.Time
	DestinationCity    string
	DestinationCountry string
	TransportType      TransportType
	Receipts           []Receipt
}

// TransportType is how the traveler got to the trip destination.
type TransportType string

const (
	TransportFlightTrain   TransportType = "flight_train"
	TransportTaxi          TransportType = "taxi"
	TransportDrive         TransportType = "drive"
	TransportNotApplicable TransportType = "not_applicable"
)

// DisplayName returns the human-readable transport label.
func (t TransportType) DisplayName() string {
	switch t {
	case TransportFlightTrain:
		return "Flight/Train"
	case TransportTaxi:
		return "Taxi"
	case TransportDrive:
		return "Drive"
	case TransportNotApplicable:
		return "Not Applicable"
	}
	return string(t)
}

// CategoryCode identifies a predefined receipt category.
type CategoryCode string

const (
	CategoryTransport   CategoryCode = "transport"
	CategoryHotel       CategoryCode = "hotel"
	CategoryUpgrade     CategoryCode = "upgrade"
	CategoryLocalTravel CategoryCode = "local_travel"
	CategoryOther       CategoryCode = "other"
	CategoryCustom      CategoryCode = "custom"
)

// Category is either a predefined receipt category or custom free text.
// Custom is only meaningful when Code is CategoryCustom.
type Category struct {
	Code   CategoryCode `json:"code"`
	Custom string       `json:"custom,omitempty"`
}

// NewCategory returns a predefined category.
func NewCategory(code CategoryCode) Category {
	return Category{Code: code}
}

// NewCustomCategory returns a free-text category.
func NewCustomCategory(text string) Category {
	return Category{Code: CategoryCustom, Custom: text}
}

// DisplayName returns the label used in summaries and filenames. It is total:
// custom categories render their text, unknown codes render the raw code and
// an empty category falls back to "Receipt".
func (c Category) DisplayName() string {
	switch c.Code {
	case CategoryTransport:
		return "Major Transport"
	case CategoryHotel:
		return "Hotel"
	case CategoryUpgrade:
		return "Flight Upgrade"
	case CategoryLocalTravel:
		return "Local Transit"
	case CategoryOther:
		return "Other"
	case CategoryCustom:
		if c.Custom != "" {
			return c.Custom
		}
	case "":
		return "Receipt"
	}
	if c.Code != "" {
		return string(c.Code)
	}
	return "Receipt"
}
