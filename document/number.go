package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// Limits on numbers that take part in arithmetic.
const (
	maxExponent     = 400
	maxNumberLength = 1024
)

// Number is a JSON number kept in its decimal text form.
type Number string

// NumberFromInt returns the Number for n.
func NumberFromInt(n int64) Number {
	return Number(strconv.FormatInt(n, 10))
}

// NumberFromFloat returns the shortest Number that round-trips f.
func NumberFromFloat(f float64) Number {
	return Number(strconv.FormatFloat(f, 'g', -1, 64))
}

// MarshalJSON writes the number text unchanged.
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid() {
		return nil, fmt.Errorf("%w: invalid number %q", ErrInvalidJSON, string(n))
	}
	return []byte(n), nil
}

// UnmarshalJSON accepts a JSON number literal only.
func (n *Number) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	num, ok := raw.(json.Number)
	if !ok {
		return fmt.Errorf("%w: expected number, got %s", ErrInvalidJSON, string(data))
	}
	*n = Number(num)
	return nil
}

// Valid reports whether n is a well formed JSON number.
func (n Number) Valid() bool {
	if n == "" || (n[0] != '-' && (n[0] < '0' || n[0] > '9')) {
		return false
	}
	return json.Valid([]byte(n))
}

// Sign returns -1, 0 or +1.
func (n Number) Sign() (int, error) {
	r, err := n.rat()
	if err != nil {
		return 0, err
	}
	return r.Sign(), nil
}

// Add returns n + m.
func (n Number) Add(m Number) (Number, error) {
	a, b, err := ratPair(n, m)
	if err != nil {
		return "", err
	}
	return fromRat(new(big.Rat).Add(a, b), max(n.scale(), m.scale())), nil
}

// Sub returns n - m.
func (n Number) Sub(m Number) (Number, error) {
	a, b, err := ratPair(n, m)
	if err != nil {
		return "", err
	}
	return fromRat(new(big.Rat).Sub(a, b), max(n.scale(), m.scale())), nil
}

func (n Number) rat() (*big.Rat, error) {
	if !n.Valid() {
		return nil, fmt.Errorf("%w: invalid number %q", ErrInvalidJSON, string(n))
	}
	if len(n) > maxNumberLength {
		return nil, fmt.Errorf("%w: number longer than %d characters", ErrInvalidJSON, maxNumberLength)
	}
	if exp, err := n.exponent(); err != nil || exp > maxExponent || exp < -maxExponent {
		return nil, fmt.Errorf("%w: exponent out of range in %q", ErrInvalidJSON, string(n))
	}
	r, ok := new(big.Rat).SetString(string(n))
	if !ok {
		return nil, fmt.Errorf("%w: invalid number %q", ErrInvalidJSON, string(n))
	}
	return r, nil
}

// exponent returns the value after 'e' or 'E', or 0 when there is none.
func (n Number) exponent() (int, error) {
	i := strings.IndexAny(string(n), "eE")
	if i < 0 {
		return 0, nil
	}
	return strconv.Atoi(strings.TrimPrefix(string(n[i+1:]), "+"))
}

// scale is the number of decimal places needed to write n exactly.
// Only meaningful once rat has accepted n.
func (n Number) scale() int {
	mantissa := string(n)
	if i := strings.IndexAny(mantissa, "eE"); i >= 0 {
		mantissa = mantissa[:i]
	}
	digits := 0
	if i := strings.IndexByte(mantissa, '.'); i >= 0 {
		digits = len(mantissa) - i - 1
	}
	exp, _ := n.exponent()
	return max(digits-exp, 0)
}

func ratPair(n, m Number) (*big.Rat, *big.Rat, error) {
	a, err := n.rat()
	if err != nil {
		return nil, nil, err
	}
	b, err := m.rat()
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

// fromRat writes r with scale decimal places, trimming trailing zeros.
func fromRat(r *big.Rat, scale int) Number {
	if r.IsInt() {
		return Number(r.Num().String())
	}
	s := strings.TrimRight(r.FloatString(scale), "0")
	return Number(strings.TrimSuffix(s, "."))
}
