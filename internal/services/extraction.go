package services

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Extraction errors. ErrNotConfirmation is the expected outcome for any
// message that is not a confirmation summary; ErrPartialSummary means the
// summary shape was there but a field was missing, which signals the
// assistant's output format has drifted from the parser.
var (
	ErrNotConfirmation = errors.New("message is not a confirmation summary")
	ErrPartialSummary  = errors.New("confirmation summary is missing required fields")
)

// ConfirmationSummary is the structured record extracted from the
// assistant's booking-confirmation message
type ConfirmationSummary struct {
	ClientName       string
	ProfessionalName string
	ServiceName      string
	Date             string // YYYY-MM-DD
	Time             string // HH:MM
	Price            float64
}

// Marker glyphs the assistant uses to label each field of a confirmation
// summary. Presence of any of them is what distinguishes "partial summary"
// from "not a summary at all".
var summaryMarkers = []string{"✅", "👨", "🔧", "⏰", "💰"}

var (
	clientRe       = regexp.MustCompile(`✅\s*(?:Cliente:)?\s*(.+)`)
	professionalRe = regexp.MustCompile(`👨\S*\s*(?:Profissional:)?\s*(.+)`)
	serviceRe      = regexp.MustCompile(`🔧\s*(?:Serviço:)?\s*(.+)`)
	dateTimeRe     = regexp.MustCompile(`⏰\s*(?:Data/Hora:)?\s*(\d{4}-\d{2}-\d{2}|\d{2}/\d{2}/\d{4})\s*(?:às|as|,|-)?\s*(\d{1,2}:\d{2})`)
	priceRe        = regexp.MustCompile(`💰\s*(?:Valor:)?\s*R\$\s*(\d+(?:[.,]\d{1,2})?)`)
)

// affirmativeTokens are the user replies that confirm a summary
var affirmativeTokens = map[string]bool{
	"sim":       true,
	"s":         true,
	"ok":        true,
	"confirmo":  true,
	"confirmar": true,
	"yes":       true,
	"👍":         true,
}

// IsAffirmative reports whether a user message is a confirmation token
func IsAffirmative(message string) bool {
	msg := strings.ToLower(strings.TrimSpace(message))
	msg = strings.Trim(msg, ".!?,")
	return affirmativeTokens[msg]
}

// HasSummaryMarkers reports whether the text carries the full set of
// confirmation-summary marker glyphs. Requiring all of them keeps other
// outbound messages that reuse a glyph (payment links, booking
// confirmations) from being mistaken for a drifted summary.
func HasSummaryMarkers(text string) bool {
	for _, marker := range summaryMarkers {
		if !strings.Contains(text, marker) {
			return false
		}
	}
	return true
}

// ParseConfirmationSummary scans an assistant message for the confirmation
// summary shape. Parsing is best-effort pattern matching against free text
// produced by the LLM; there is no formal grammar.
//
// Returns ErrNotConfirmation unless every marker glyph is present, and
// ErrPartialSummary (with the partially-filled record) when the markers are
// all there but a field value could not be extracted. Callers must not
// proceed with a partial record.
func ParseConfirmationSummary(text string) (*ConfirmationSummary, error) {
	if !HasSummaryMarkers(text) {
		return nil, ErrNotConfirmation
	}

	summary := &ConfirmationSummary{}
	missing := []string{}

	if m := clientRe.FindStringSubmatch(text); m != nil {
		summary.ClientName = cleanField(m[1])
	}
	if summary.ClientName == "" {
		missing = append(missing, "cliente")
	}

	if m := professionalRe.FindStringSubmatch(text); m != nil {
		summary.ProfessionalName = cleanField(m[1])
	}
	if summary.ProfessionalName == "" {
		missing = append(missing, "profissional")
	}

	if m := serviceRe.FindStringSubmatch(text); m != nil {
		summary.ServiceName = cleanField(m[1])
	}
	if summary.ServiceName == "" {
		missing = append(missing, "serviço")
	}

	if m := dateTimeRe.FindStringSubmatch(text); m != nil {
		summary.Date = normalizeDate(m[1])
		summary.Time = normalizeTime(m[2])
	}
	if summary.Date == "" || summary.Time == "" {
		missing = append(missing, "data/hora")
	}

	if m := priceRe.FindStringSubmatch(text); m != nil {
		raw := strings.ReplaceAll(m[1], ",", ".")
		if price, err := strconv.ParseFloat(raw, 64); err == nil {
			summary.Price = price
		}
	}
	if summary.Price == 0 {
		missing = append(missing, "valor")
	}

	if len(missing) > 0 {
		return summary, fmt.Errorf("%w: %s", ErrPartialSummary, strings.Join(missing, ", "))
	}
	return summary, nil
}

// cleanField trims whitespace and markdown decoration from an extracted value
func cleanField(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = strings.TrimSpace(s[:idx])
	}
	return strings.Trim(s, " *_")
}

// normalizeDate converts DD/MM/YYYY to YYYY-MM-DD; ISO dates pass through
func normalizeDate(date string) string {
	if strings.Contains(date, "/") {
		parts := strings.Split(date, "/")
		if len(parts) == 3 {
			return fmt.Sprintf("%s-%s-%s", parts[2], parts[1], parts[0])
		}
	}
	return date
}

// normalizeTime left-pads single-digit hours so slot keys compare equal
func normalizeTime(t string) string {
	if len(t) == 4 { // H:MM
		return "0" + t
	}
	return t
}
