package utils

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestNewMoney_RoundsToCents(t *testing.T) {
	tests := []struct {
		in   float64
		want Money
	}{
		{212.499, 212.5},
		{150, 150},
		{190.114, 190.11},
		{0.005, 0.01},
	}
	for _, tt := range tests {
		if got := NewMoney(tt.in); got != tt.want {
			t.Errorf("NewMoney(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestMoney_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		Fare Money `json:"fare"`
	}{Fare: NewMoney(150)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"fare":150.00}` {
		t.Errorf("json = %s", b)
	}
}

func TestParseInt(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 10},
		{"3", 3},
		{"abc", 10},
		{"0", 10},
		{"-2", 10},
	}
	for _, tt := range tests {
		if got := ParseInt(tt.in, 10); got != tt.want {
			t.Errorf("ParseInt(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseFloat(t *testing.T) {
	if v, ok := ParseFloat("", 2.5); !ok || v != 2.5 {
		t.Errorf("empty = %v, %v", v, ok)
	}
	if v, ok := ParseFloat("14.5995", 0); !ok || v != 14.5995 {
		t.Errorf("valid = %v, %v", v, ok)
	}
	if _, ok := ParseFloat("north", 0); ok {
		t.Error("malformed value accepted")
	}
}

func TestValidateStruct_Messages(t *testing.T) {
	type pickup struct {
		DriverID string  `validate:"required,uuid"`
		Lat      float64 `validate:"latitude"`
		Method   string  `validate:"oneof=cash card ewallet"`
	}

	errs := ValidateStruct(pickup{DriverID: "d-1", Lat: 91, Method: "barter"})
	want := map[string]string{
		"DriverID": "Must be a valid UUID",
		"Lat":      "Must be a latitude between -90 and 90",
		"Method":   "Must be one of: cash, card, ewallet",
	}
	for field, msg := range want {
		if errs[field] != msg {
			t.Errorf("%s = %q, want %q", field, errs[field], msg)
		}
	}

	if errs := ValidateStruct(pickup{DriverID: "8d3f7a52-4bd1-4c3e-9a3f-5b7e8f1c2d3e", Lat: 14.6, Method: "cash"}); errs != nil {
		t.Errorf("valid struct reported %v", errs)
	}
}

func TestFormatValidationErrors_Ordered(t *testing.T) {
	got := FormatValidationErrors(map[string]string{"Lng": "b", "Lat": "a"})
	if got != "Lat: a; Lng: b" {
		t.Errorf("got %q", got)
	}
}

func TestGenerateBookingNumber(t *testing.T) {
	at := time.Date(2024, 3, 9, 7, 5, 1, 0, time.FixedZone("PHT", 8*3600))
	got := GenerateBookingNumber(at)
	if !strings.HasPrefix(got, "MOV-20240308-230501-") || len(got) != len("MOV-20240308-230501-0000") {
		t.Errorf("booking number = %q", got)
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPasswordHash("s3cret-pass", hash) {
		t.Error("correct password rejected")
	}
	if CheckPasswordHash("wrong", hash) {
		t.Error("wrong password accepted")
	}
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("DISPATCH_NEAREST_ATTEMPTS", "3")
	t.Setenv("CORE2_DB_NAME", "bookings_test")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Dispatch.NearestAttempts != 3 {
		t.Errorf("nearest attempts = %d", cfg.Dispatch.NearestAttempts)
	}
	if cfg.Core2.Name != "bookings_test" || cfg.Core1.Name != "movers_core1" {
		t.Errorf("databases = %q / %q", cfg.Core1.Name, cfg.Core2.Name)
	}
	if cfg.Dispatch.DefaultRadiusKm != 50 || cfg.Session.ExpiryHours != 24 {
		t.Errorf("defaults = %+v %+v", cfg.Dispatch, cfg.Session)
	}
}
