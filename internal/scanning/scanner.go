package scanning

// ScanResult contains suggested expense fields extracted from a receipt.
// Category is one of the receipt category codes (transport, hotel, upgrade,
// local_travel, other).
type ScanResult struct {
	Occasion string `json:"occasion"`
	Date     string `json:"date"` // ISO 8601 format
	Category string `json:"category"`
}

// Scanner defines the interface for receipt scanning operations
type Scanner interface {
	// ScanReceipt analyzes a receipt image/PDF and suggests expense fields
	ScanReceipt(imageData []byte, contentType string) (*ScanResult, error)
	// Close closes the scanner and releases resources
	Close() error
}

// scanPrompt is the shared prompt used by all LLM providers for scanning
// reimbursement receipts
const scanPrompt = `You are analyzing a receipt or invoice for a reimbursement claim. Carefully read all text in the image and extract the following information:

1. **Occasion**: A short label for what this expense was, starting with the merchant or business name. Examples: "Hilton - Hotel Stay", "Deutsche Bahn - Train Ticket", "Joe's Diner - Team Dinner".

2. **Date**: Find the transaction date, purchase date, or invoice date on the receipt. Convert it to ISO 8601 format (YYYY-MM-DD). Common formats: MM/DD/YYYY, DD/MM/YYYY, or written dates.

3. **Category**: Classify the expense as exactly one of: "transport" (flights, trains, long-distance travel), "hotel" (lodging), "upgrade" (seat or fare upgrades), "local_travel" (taxis, buses, metro, rideshare), or "other" (anything else).

Return ONLY valid JSON in this exact format:
{
  "occasion": "Merchant - Brief Description",
  "date": "YYYY-MM-DD",
  "category": "other"
}

Important:
- The occasion should start with the actual merchant/business name from the receipt
- The date must be in YYYY-MM-DD format
- The category must be one of the five listed values
- If you cannot find a field, use null for that field
- Do not include any text before or after the JSON
- Do not use markdown code blocks`
