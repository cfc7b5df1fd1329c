package report

import (
	"fmt"
	"strings"
	"time"
)

// dateLayout is the date format used in summaries and filenames.
const dateLayout = "2006-01-02"

// PerDiemInfo classifies a trip's days into travel days and event days.
// Computed on demand, never persisted.
type PerDiemInfo struct {
	DestinationCity    string
	DestinationCountry string
	TotalDays          int
	TravelDayDates     []time.Time
	EventDayDates      []time.Time
}

// CalculatePerDiem derives per-diem day classification from a trip. The
// second return is false when the trip is missing required fields or the
// event interval falls outside the trip interval; that is "insufficient
// data", not an error, and the result is never clamped.
//
// All comparisons are at day granularity: dates are normalized to midnight
// UTC by calendar components first. TotalDays is the sum of the two day
// sequence lengths, never a timestamp subtraction.
func CalculatePerDiem(trip Trip) (PerDiemInfo, bool) {
	if trip.StartDate.IsZero() || trip.EndDate.IsZero() ||
		trip.DestinationCity == "" || trip.DestinationCountry == "" {
		return PerDiemInfo{}, false
	}

	tripStart := startOfDay(trip.StartDate)
	tripEnd := startOfDay(trip.EndDate)

	eventStart := tripStart
	if trip.EventStartDate != nil {
		eventStart = startOfDay(*trip.EventStartDate)
	}
	eventEnd := tripEnd
	if trip.EventEndDate != nil {
		eventEnd = startOfDay(*trip.EventEndDate)
	}

	// Event dates must lie within the trip dates, inclusive.
	if eventStart.Before(tripStart) || eventEnd.After(tripEnd) {
		return PerDiemInfo{}, false
	}

	eventDayDates := dateRange(eventStart, eventEnd)

	var travelDayDates []time.Time
	if tripStart.Before(eventStart) {
		travelDayDates = append(travelDayDates, tripStart)
	}
	if tripEnd.After(eventEnd) {
		travelDayDates = append(travelDayDates, tripEnd)
	}

	return PerDiemInfo{
		DestinationCity:    trip.DestinationCity,
		DestinationCountry: trip.DestinationCountry,
		TotalDays:          len(travelDayDates) + len(eventDayDates),
		TravelDayDates:     travelDayDates,
		EventDayDates:      eventDayDates,
	}, true
}

// Summary renders the per-diem text block.
func (p PerDiemInfo) Summary() string {
	return p.render("Per Diem Summary", "Destination:")
}

// render builds the summary with a configurable header and destination
// label; trip reports retitle both.
func (p PerDiemInfo) render(header, destinationLabel string) string {
	lines := []string{
		header,
		fmt.Sprintf("%s %s, %s", destinationLabel, p.DestinationCity, p.DestinationCountry),
		fmt.Sprintf("Total Days: %d", p.TotalDays),
	}
	if len(p.TravelDayDates) > 0 {
		dates := make([]string, len(p.TravelDayDates))
		for i, d := range p.TravelDayDates {
			dates[i] = d.Format(dateLayout)
		}
		lines = append(lines, fmt.Sprintf("Travel Days: %d (%s)", len(p.TravelDayDates), strings.Join(dates, ", ")))
	}
	if len(p.EventDayDates) > 0 {
		first := p.EventDayDates[0]
		last := p.EventDayDates[len(p.EventDayDates)-1]
		lines = append(lines, fmt.Sprintf("Event Days: %d (%s to %s)", len(p.EventDayDates), first.Format(dateLayout), last.Format(dateLayout)))
	}
	return strings.Join(lines, "\n")
}

// startOfDay normalizes a timestamp to midnight UTC by calendar components,
// so wall-clock times and zones on stored dates never affect classification.
func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// dateRange returns every calendar day from start to end inclusive. An
// inverted range yields an empty sequence.
func dateRange(start, end time.Time) []time.Time {
	var dates []time.Time
	for current := start; !current.After(end); current = current.AddDate(0, 0, 1) {
		dates = append(dates, current)
	}
	return dates
}
