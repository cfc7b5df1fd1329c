package scanning

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// knownCategories are the receipt category codes a scan may suggest.
var knownCategories = map[string]bool{
	"transport":    true,
	"hotel":        true,
	"upgrade":      true,
	"local_travel": true,
	"other":        true,
}

// parseScanJSON parses the JSON response from an LLM provider
func parseScanJSON(text string) (*ScanResult, error) {
	// Remove markdown code blocks if present
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	// Find the JSON object boundaries - look for first { and last }
	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}

	text = text[startIdx : endIdx+1]

	var result ScanResult
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	// Validate and parse date
	if result.Date != "" {
		parsedDate, err := time.Parse("2006-01-02", result.Date)
		if err != nil {
			// Try other common formats
			formats := []string{
				"2006/01/02",
				"01/02/2006",
				"02-01-2006",
			}
			parsed := false
			for _, format := range formats {
				if d, e := time.Parse(format, result.Date); e == nil {
					result.Date = d.Format("2006-01-02")
					parsed = true
					break
				}
			}
			if !parsed {
				// If we can't parse it, use today's date
				result.Date = time.Now().Format("2006-01-02")
			}
		} else {
			result.Date = parsedDate.Format("2006-01-02")
		}
	} else {
		// Default to today if no date found
		result.Date = time.Now().Format("2006-01-02")
	}

	result.Occasion = strings.TrimSpace(result.Occasion)
	if result.Occasion == "" {
		result.Occasion = "Expense"
	}

	result.Category = normalizeCategory(result.Category)

	return &result, nil
}

// normalizeCategory maps free-form model output onto a known category code,
// falling back to "other".
func normalizeCategory(category string) string {
	c := strings.ToLower(strings.TrimSpace(category))
	c = strings.ReplaceAll(c, " ", "_")
	c = strings.ReplaceAll(c, "-", "_")
	if knownCategories[c] {
		return c
	}
	switch c {
	case "local_transit", "taxi", "transit":
		return "local_travel"
	case "lodging", "accommodation":
		return "hotel"
	case "flight", "train", "airfare":
		return "transport"
	}
	return "other"
}
