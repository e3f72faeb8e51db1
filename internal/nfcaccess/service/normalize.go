package service

import (
	"regexp"
	"strings"
)

const nationalIDDigits = 11

var (
	nonDigits    = regexp.MustCompile(`[^0-9]`)
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// NormalizeNationalID strips every non-digit and requires exactly 11 digits.
// "123.456.789-00" and "12345678900" normalize to the same value.
func NormalizeNationalID(raw string) (string, error) {
	digits := nonDigits.ReplaceAllString(raw, "")
	if len(digits) != nationalIDDigits {
		return "", &ValidationError{Field: "cpf", Msg: "must contain exactly 11 digits"}
	}
	return digits, nil
}

// NormalizeEmail trims and lower-cases raw so uniqueness is case-insensitive.
func NormalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if !emailPattern.MatchString(email) {
		return "", &ValidationError{Field: "email", Msg: "is not a valid address"}
	}
	return email, nil
}

func normalizeCardUUID(raw string) (string, error) {
	uuid := strings.TrimSpace(raw)
	if uuid == "" {
		return "", &ValidationError{Field: "nfc_card_uuid", Msg: "is required"}
	}
	return uuid, nil
}

func required(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", &ValidationError{Field: field, Msg: "is required"}
	}
	return v, nil
}
