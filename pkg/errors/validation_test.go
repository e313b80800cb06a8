package errors

import (
	"strings"
	"testing"
)

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"dot", "dot", false},
		{"svg", "svg", false},
		{"upper case", "SVG", false},

		{"empty", "", true},
		{"unknown", "png", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFormat(tt.input, "dot", "svg")
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidFormat) {
				t.Errorf("ValidateFormat(%q) returned wrong error code: %v", tt.input, err)
			}
		})
	}
}

func TestValidateRange(t *testing.T) {
	tests := []struct {
		n       int
		wantErr bool
	}{
		{1, false},
		{50, false},
		{100, false},
		{0, true},
		{101, true},
		{-5, true},
	}

	for _, tt := range tests {
		err := ValidateRange("count", tt.n, 1, 100)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateRange(%d) error = %v, wantErr %v", tt.n, err, tt.wantErr)
		}
		if err != nil && !strings.Contains(err.Error(), "count") {
			t.Errorf("ValidateRange(%d) message should name the field: %v", tt.n, err)
		}
	}
}

func TestValidateInputs(t *testing.T) {
	if err := ValidateInputs([]float64{1, 2, 3}); err != nil {
		t.Errorf("ValidateInputs() error = %v", err)
	}
	if err := ValidateInputs(nil); err != nil {
		t.Errorf("ValidateInputs(nil) error = %v", err)
	}
	err := ValidateInputs(make([]float64, MaxInputs+1))
	if !Is(err, ErrCodeInvalidInput) {
		t.Errorf("ValidateInputs(too long) = %v, want INVALID_INPUT", err)
	}
}

func TestValidateNodeID(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"_0", false},
		{"_123", false},
		{"custom", false},
		{"", true},
		{"_ 1", true},
		{"_1\t", true},
	}

	for _, tt := range tests {
		err := ValidateNodeID(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateNodeID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
	}
}

func TestErrorCodesAreUnique(t *testing.T) {
	codes := []Code{
		ErrCodeInvalidInput,
		ErrCodeInvalidGraph,
		ErrCodeInvalidFormat,
		ErrCodeFileNotFound,
		ErrCodeCache,
		ErrCodeInternal,
		ErrCodeUnsupported,
	}

	seen := make(map[Code]bool)
	for _, code := range codes {
		if seen[code] {
			t.Errorf("Duplicate error code: %s", code)
		}
		seen[code] = true
	}
}
