package report

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// disallowedChars matches everything that may not appear in a derived
// filename component after space replacement.
var disallowedChars = regexp.MustCompile(`[^a-zA-Z0-9\-_]`)

// Sanitize cleans a free-text filename component: spaces become underscores,
// then every character outside [A-Za-z0-9-_] is stripped. Idempotent.
func Sanitize(s string) string {
	return disallowedChars.ReplaceAllString(strings.ReplaceAll(s, " ", "_"), "")
}

// ExpenseReceiptFilename derives the deterministic archive entry name for an
// expense receipt. The short ID prefix keeps same-day, same-occasion entries
// from colliding.
func ExpenseReceiptFilename(occasion string, date time.Time, id uuid.UUID, ext string) string {
	return fmt.Sprintf("%s_%s_%s.%s", Sanitize(occasion), date.Format(dateLayout), shortID(id), ext)
}

// TripReceiptFilename derives the deterministic archive entry name for a
// trip receipt.
func TripReceiptFilename(tripName, category string, date time.Time, id uuid.UUID, ext string) string {
	return fmt.Sprintf("%s_%s_%s_%s.%s", Sanitize(tripName), Sanitize(category), date.Format(dateLayout), shortID(id), ext)
}

func shortID(id uuid.UUID) string {
	return id.String()[:4]
}
