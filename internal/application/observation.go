package application

import (
	"strconv"
	"strings"
	"time"
	"unicode"
)

const (
	observationSeparator   = " | "
	defaultExitObservation = "Saída finalizada"
	deletionTimeLayout     = "02/01/2006 15:04:05"
)

// validateObservation enforces the content rule: a non-empty observation must
// carry at least one letter or digit, so whitespace alone is rejected.
func validateObservation(field string, value *string) *ValidationError {
	if value == nil || *value == "" {
		return nil
	}
	for _, r := range *value {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return nil
		}
	}
	return fieldError(field, "observation must contain a letter or digit")
}

// composeExitObservation joins the entry note with the exit note, falling back
// to the default exit text.
func composeExitObservation(entry, exit *string) string {
	entryText := trimmed(entry)
	exitText := trimmed(exit)
	if exitText == "" {
		exitText = defaultExitObservation
	}
	if entryText == "" {
		return exitText
	}
	return entryText + observationSeparator + exitText
}

// autoCheckoutObservation renders the sentinel text for forced exits.
func autoCheckoutObservation(thresholdHours float64) string {
	return "Saída automática após " + strconv.FormatFloat(thresholdHours, 'f', -1, 64) + " horas de permanência"
}

// deletionObservation appends the soft-delete annotation.
func deletionObservation(current *string, deletedAt time.Time, loc *time.Location) string {
	annotation := "EXCLUÍDA em " + deletedAt.In(loc).Format(deletionTimeLayout)
	if text := trimmed(current); text != "" {
		return text + observationSeparator + annotation
	}
	return annotation
}

func trimmed(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}

// normalizeDocument keeps letters and digits in upper case so that
// "123.456.789-00" and "12345678900" compare equal.
func normalizeDocument(document string) string {
	var b strings.Builder
	for _, r := range document {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}

// normalizeContact keeps digits only; an empty result clears the contact.
func normalizeContact(contact *string) *string {
	if contact == nil {
		return nil
	}
	var b strings.Builder
	for _, r := range *contact {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return nil
	}
	digits := b.String()
	return &digits
}

// normalizePlate upper-cases a vehicle plate and writes seven character plates
// as AAA-NNNN style with a hyphen after the third character.
func normalizePlate(plate *string) *string {
	if plate == nil {
		return nil
	}
	var b strings.Builder
	for _, r := range *plate {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	raw := b.String()
	if raw == "" {
		return nil
	}
	if len(raw) == 7 {
		raw = raw[:3] + "-" + raw[3:]
	}
	return &raw
}

// plateKey strips formatting so plate searches ignore the hyphen.
func plateKey(plate string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(plate)), "-", "")
}
