package document_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/jacentio/flexdb/document"
)

func TestNumberArithmetic(t *testing.T) {
	tests := []struct {
		name string
		a, b document.Number
		sum  document.Number
		diff document.Number
	}{
		{"integers", "100", "50", "150", "50"},
		{"negative operand", "100", "-50", "50", "150"},
		{"decimals", "0.1", "0.2", "0.3", "-0.1"},
		{"exponent", "1e3", "1", "1001", "999"},
		{"zero", "0", "0", "0", "0"},
		{"high precision", "12345678901234567890.5", "0", "12345678901234567890.5", "12345678901234567890.5"},
		{"mixed scale", "1.25", "0.005", "1.255", "1.245"},
		{"negative exponent", "5e-3", "1", "1.005", "-0.995"},
		{"fraction cancels", "0.5", "0.5", "1", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sum, err := tt.a.Add(tt.b)
			if err != nil {
				t.Fatalf("Add: %v", err)
			}
			if sum != tt.sum {
				t.Errorf("expected %s + %s = %s, got %s", tt.a, tt.b, tt.sum, sum)
			}

			diff, err := tt.a.Sub(tt.b)
			if err != nil {
				t.Fatalf("Sub: %v", err)
			}
			if diff != tt.diff {
				t.Errorf("expected %s - %s = %s, got %s", tt.a, tt.b, tt.diff, diff)
			}
		})
	}
}

func TestNumberSign(t *testing.T) {
	tests := []struct {
		n    document.Number
		want int
	}{
		{"5", 1},
		{"-5", -1},
		{"0", 0},
		{"-0", 0},
		{"0.0001", 1},
	}
	for _, tt := range tests {
		got, err := tt.n.Sign()
		if err != nil {
			t.Fatalf("Sign(%s): %v", tt.n, err)
		}
		if got != tt.want {
			t.Errorf("Sign(%s) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestNumberInvalid(t *testing.T) {
	for _, n := range []document.Number{"", "abc", "1/2", "0x10", "--1"} {
		if n.Valid() {
			t.Errorf("expected %q to be invalid", n)
		}
		if _, err := n.Add("1"); !errors.Is(err, document.ErrInvalidJSON) {
			t.Errorf("Add(%q): expected ErrInvalidJSON, got %v", n, err)
		}
		if _, err := n.MarshalJSON(); err == nil {
			t.Errorf("MarshalJSON(%q): expected error", n)
		}
	}
}

func TestNumberExponentLimit(t *testing.T) {
	for _, n := range []document.Number{"1e999999", "1E-401", "2e+99999999999999999999"} {
		if !n.Valid() {
			t.Errorf("expected %q to be syntactically valid", n)
		}
		if _, err := n.Sign(); !errors.Is(err, document.ErrInvalidJSON) {
			t.Errorf("Sign(%q): expected ErrInvalidJSON, got %v", n, err)
		}
		if _, err := document.Number("1").Add(n); !errors.Is(err, document.ErrInvalidJSON) {
			t.Errorf("Add(%q): expected ErrInvalidJSON, got %v", n, err)
		}

		// Stored values are written back as-is without being evaluated.
		out, err := n.MarshalJSON()
		if err != nil {
			t.Fatalf("MarshalJSON(%q): %v", n, err)
		}
		if string(out) != string(n) {
			t.Errorf("expected %s, got %s", n, out)
		}
	}

	sum, err := document.Number("1e400").Add("1e-400")
	if err != nil {
		t.Fatalf("exponent at the limit: %v", err)
	}
	if len(sum) != 802 || sum[0] != '1' || sum[len(sum)-1] != '1' {
		t.Errorf("expected exact sum of 1e400 and 1e-400, got %d characters", len(sum))
	}

	long := document.Number("1" + strings.Repeat("0", 2000))
	if _, err := long.Sign(); !errors.Is(err, document.ErrInvalidJSON) {
		t.Errorf("expected ErrInvalidJSON for a %d digit number, got %v", len(long), err)
	}
}

func TestNumberFromGo(t *testing.T) {
	if got := document.NumberFromInt(-42); got != "-42" {
		t.Errorf("expected -42, got %s", got)
	}
	if got := document.NumberFromFloat(2.5); got != "2.5" {
		t.Errorf("expected 2.5, got %s", got)
	}
}

func TestNumberUnmarshalJSON(t *testing.T) {
	var holder struct {
		Amount document.Number `json:"amount"`
	}
	if err := json.Unmarshal([]byte(`{"amount": -50.25}`), &holder); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if holder.Amount != "-50.25" {
		t.Errorf("expected -50.25, got %s", holder.Amount)
	}

	for _, input := range []string{`{"amount": "50"}`, `{"amount": true}`, `{"amount": [1]}`} {
		if err := json.Unmarshal([]byte(input), &holder); err == nil {
			t.Errorf("%s: expected error", input)
		}
	}
}
