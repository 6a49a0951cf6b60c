package domain

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// plusCodePattern is the short-form Open Location Code accepted for delivery.
var plusCodePattern = regexp.MustCompile(`(?i)^[23456789CFGHJMPQRVWX]{4,8}\+[23456789CFGHJMPQRVWX]{2,4}$`)

type ShippingInfo struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
	PlusCode  string `json:"plusCode"`
}

// ShippingError names the first shipping field that failed validation.
type ShippingError struct {
	Field  string
	Reason string
}

func (e *ShippingError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidShipping, e.Field, e.Reason)
}

func (e *ShippingError) Unwrap() error {
	return ErrInvalidShipping
}

// ValidPlusCode reports whether code is a short plus code once all whitespace is removed.
func ValidPlusCode(code string) bool {
	return plusCodePattern.MatchString(stripSpaces(code))
}

// Normalize trims every field and strips whitespace from the plus code.
func (s ShippingInfo) Normalize() ShippingInfo {
	return ShippingInfo{
		FirstName: strings.TrimSpace(s.FirstName),
		LastName:  strings.TrimSpace(s.LastName),
		Phone:     strings.TrimSpace(s.Phone),
		PlusCode:  strings.ToUpper(stripSpaces(s.PlusCode)),
	}
}

// Validate checks required fields in order and returns a *ShippingError for the first failure.
func (s ShippingInfo) Validate() error {
	required := []struct {
		field string
		value string
	}{
		{"firstName", s.FirstName},
		{"lastName", s.LastName},
		{"phone", s.Phone},
		{"plusCode", s.PlusCode},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &ShippingError{Field: r.field, Reason: "is required"}
		}
	}
	if !ValidPlusCode(s.PlusCode) {
		return &ShippingError{
			Field:  "plusCode",
			Reason: "must be a valid Google Plus Code (e.g., 57FC+4XH, 8F6C+2XH)",
		}
	}
	return nil
}

func stripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
