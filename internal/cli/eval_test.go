package cli

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/matzehuels/adjoint/pkg/errors"
)

func TestParseInputs(t *testing.T) {
	tests := []struct {
		in      string
		want    []float64
		wantErr bool
	}{
		{"1", []float64{1}, false},
		{"1, 2.5,-3", []float64{1, 2.5, -3}, false},
		{"Inf,-Inf", []float64{math.Inf(1), math.Inf(-1)}, false},
		{"1,,2", nil, true},
		{"one", nil, true},
	}

	for _, tt := range tests {
		got, err := parseInputs(tt.in)
		if tt.wantErr {
			if !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Errorf("parseInputs(%q) error = %v, want INVALID_INPUT", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseInputs(%q): %v", tt.in, err)
			continue
		}
		if len(got) != len(tt.want) {
			t.Errorf("parseInputs(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("parseInputs(%q)[%d] = %v, want %v", tt.in, i, got[i], tt.want[i])
			}
		}
	}
}

func TestParseInputsNaN(t *testing.T) {
	got, err := parseInputs("NaN")
	if err != nil {
		t.Fatalf("parseInputs: %v", err)
	}
	if len(got) != 1 || !math.IsNaN(got[0]) {
		t.Errorf("parseInputs(NaN) = %v", got)
	}
}

func TestReadInputsFile(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantBatch bool
		wantLen   int
		wantErr   bool
	}{
		{"vector", `[1, 2, "NaN"]`, false, 1, false},
		{"empty vector", `[]`, false, 1, false},
		{"batch", `[[1, 2], [3, "-Infinity"]]`, true, 2, false},
		{"object", `{"inputs": [1]}`, false, 0, true},
		{"bad number", `[1, "two"]`, false, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "inputs.json")
			if err := os.WriteFile(path, []byte(tt.body), 0o644); err != nil {
				t.Fatal(err)
			}
			vecs, isBatch, err := readInputsFile(path)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("readInputsFile: %v", err)
			}
			if isBatch != tt.wantBatch {
				t.Errorf("batch = %v, want %v", isBatch, tt.wantBatch)
			}
			if len(vecs) != tt.wantLen {
				t.Errorf("got %d vectors, want %d", len(vecs), tt.wantLen)
			}
		})
	}
}

func TestReadInputsFileMissing(t *testing.T) {
	_, _, err := readInputsFile(filepath.Join(t.TempDir(), "absent.json"))
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("error = %v, want FILE_NOT_FOUND", err)
	}
}
