package tools

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"spesetools/internal/core"
)

// Args is the flat argument object of a tool call. Numbers are kept as
// json.Number so amounts never pass through float64.
type Args map[string]any

var ErrArgsNotObject = errors.New("tool arguments must be a JSON object")

// DecodeArgs parses raw call arguments. Absent or null arguments decode to
// an empty set.
func DecodeArgs(raw json.RawMessage) (Args, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Args{}, nil
	}
	if raw[0] != '{' {
		return nil, ErrArgsNotObject
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var args Args
	if err := dec.Decode(&args); err != nil {
		return nil, fmt.Errorf("decode arguments: %w", err)
	}
	if args == nil {
		args = Args{}
	}
	return args, nil
}

// String returns the field as a string. Absent and null are nil; any other
// JSON type records a violation.
func (a Args) String(field string, verr *core.ValidationError) *string {
	v, ok := a[field]
	if !ok || v == nil {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		verr.Add(field, fmt.Sprintf("The %s must be a string.", field))
		return nil
	}
	return &s
}

// Decimal returns the field as an exact decimal. Numeric strings are accepted.
func (a Args) Decimal(field string, verr *core.ValidationError) *decimal.Decimal {
	v, ok := a[field]
	if !ok || v == nil {
		return nil
	}

	var (
		d   decimal.Decimal
		err error
	)
	switch x := v.(type) {
	case json.Number:
		d, err = decimal.NewFromString(x.String())
	case float64:
		d = decimal.NewFromFloat(x)
	case string:
		d, err = decimal.NewFromString(strings.TrimSpace(x))
	default:
		err = errors.New("not a number")
	}
	if err != nil {
		verr.Add(field, fmt.Sprintf("The %s must be a number.", field))
		return nil
	}
	return &d
}

// Int returns the field as an integer. Integral numbers written with a
// fraction such as 5.0 and integer strings are accepted.
func (a Args) Int(field string, verr *core.ValidationError) *int64 {
	v, ok := a[field]
	if !ok || v == nil {
		return nil
	}

	var s string
	switch x := v.(type) {
	case json.Number:
		s = x.String()
	case float64:
		s = strconv.FormatFloat(x, 'f', -1, 64)
	case string:
		s = strings.TrimSpace(x)
	}

	if i, ok := parseInt(s); ok {
		return &i
	}
	verr.Add(field, fmt.Sprintf("The %s must be an integer.", field))
	return nil
}

func parseInt(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, true
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsInteger() {
		return 0, false
	}
	if d.GreaterThan(decimal.NewFromInt(math.MaxInt64)) || d.LessThan(decimal.NewFromInt(math.MinInt64)) {
		return 0, false
	}
	return d.IntPart(), true
}
