package utils

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"
)

// ParseInt converts string to int with default value
func ParseInt(value string, defaultValue int) int {
	if value == "" {
		return defaultValue
	}

	result, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	if result < 1 {
		return defaultValue
	}

	return result
}

// ParseFloat converts a query value to float64. ok is false when the value is
// present but malformed.
func ParseFloat(value string, defaultValue float64) (float64, bool) {
	if value == "" {
		return defaultValue, true
	}

	result, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false
	}
	return result, true
}

// GenerateBookingNumber creates a human readable booking reference.
// Format: MOV-YYYYMMDD-HHMMSS-RAND
func GenerateBookingNumber(now time.Time) string {
	now = now.UTC()
	return fmt.Sprintf("MOV-%s-%s-%04d", now.Format("20060102"), now.Format("150405"), rand.IntN(10000))
}
