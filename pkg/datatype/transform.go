package datatype

import (
	"encoding/hex"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"
)

const bigDecimalPrec = 128

// Layouts accepted when converting strings to temporal values.
var (
	dateLayouts      = []string{"2006-01-02"}
	timeLayouts      = []string{"15:04:05.999999999", "15:04:05", "15:04"}
	timestampLayouts = []string{
		"2006-01-02 15:04:05.999999999",
		"2006-01-02T15:04:05.999999999Z07:00",
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04:05.999999999Z07:00",
		"2006-01-02",
	}
)

// TimestampLayout is the canonical string form of timestamps.
const TimestampLayout = "2006-01-02 15:04:05.999999999"

// TransformationError reports a value that cannot be converted to a type.
type TransformationError struct {
	Value  any
	Source Type
	Target Type
	Err    error
}

func (e *TransformationError) Error() string {
	msg := fmt.Sprintf("cannot convert %s value %s to %s", e.Source, describe(e.Value), e.Target)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TransformationError) Unwrap() error {
	return e.Err
}

func describe(v any) string {
	s := fmt.Sprintf("%v", v)
	const maxLen = 40
	if len(s) > maxLen {
		s = s[:maxLen] + "..."
	}
	return strconv.Quote(s)
}

func fail(v any, target Type, err error) error {
	return &TransformationError{Value: v, Source: TypeOf(v), Target: target, Err: err}
}

// Transform converts a runtime value to the representation of target.
// Nil converts to nil for every type.
func Transform(value any, target Type) (any, error) {
	if value == nil || target == Object || target == "" {
		return value, nil
	}
	if target.IsArray() {
		return transformArray(value, target)
	}
	switch target {
	case String:
		return toString(value)
	case Char:
		return toChar(value)
	case Boolean:
		return toBool(value)
	case Byte:
		n, err := toInt(value, target, math.MinInt8, math.MaxInt8)
		return int8(n), err
	case Short:
		n, err := toInt(value, target, math.MinInt16, math.MaxInt16)
		return int16(n), err
	case Integer:
		n, err := toInt(value, target, math.MinInt32, math.MaxInt32)
		return int32(n), err
	case Long:
		return toInt(value, target, math.MinInt64, math.MaxInt64)
	case BigInteger:
		return toBigInt(value)
	case Float:
		f, err := toFloat(value, target)
		if err == nil && math.Abs(f) > math.MaxFloat32 && !math.IsInf(f, 0) {
			return nil, fail(value, target, errors.New("out of range"))
		}
		return float32(f), err
	case Double:
		return toFloat(value, target)
	case BigDecimal:
		return toBigDecimal(value)
	case Date, Time, Timestamp:
		return toTemporal(value, target)
	case VarBinary:
		return toBinary(value)
	case Blob:
		return toBlob(value)
	case Clob:
		return toClob(value)
	case XML:
		return toXML(value)
	case Null:
		return nil, fail(value, target, nil)
	default:
		return nil, fail(value, target, fmt.Errorf("unknown type"))
	}
}

func transformArray(value any, target Type) (any, error) {
	var elems []any
	switch v := value.(type) {
	case []any:
		elems = v
	case []string:
		elems = make([]any, len(v))
		for i := range v {
			elems[i] = v[i]
		}
	case []int32:
		elems = make([]any, len(v))
		for i := range v {
			elems[i] = v[i]
		}
	case []int64:
		elems = make([]any, len(v))
		for i := range v {
			elems[i] = v[i]
		}
	case []float64:
		elems = make([]any, len(v))
		for i := range v {
			elems[i] = v[i]
		}
	default:
		return nil, fail(value, target, errors.New("not an array"))
	}
	component := target.ComponentType()
	out := make([]any, len(elems))
	for i, e := range elems {
		c, err := Transform(e, component)
		if err != nil {
			return nil, fail(value, target, err)
		}
		out[i] = c
	}
	return out, nil
}

func toString(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case int8, int16, int32, int64, int, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case *big.Int:
		return v.String(), nil
	case *big.Float:
		return v.Text('f', -1), nil
	case time.Time:
		return v.Format(TimestampLayout), nil
	case []byte:
		return strings.ToUpper(hex.EncodeToString(v)), nil
	case *ClobType:
		return v.Text()
	case *XMLType:
		return v.Text()
	case fmt.Stringer:
		return v.String(), nil
	default:
		return nil, fail(value, String, nil)
	}
}

func toChar(value any) (any, error) {
	s, err := toString(value)
	if err != nil {
		return nil, fail(value, Char, err)
	}
	str, _ := s.(string)
	if len([]rune(str)) != 1 {
		return nil, fail(value, Char, errors.New("expected a single character"))
	}
	return str, nil
}

func toBool(value any) (any, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "t", "y", "yes":
			return true, nil
		case "false", "0", "f", "n", "no":
			return false, nil
		}
		return nil, fail(value, Boolean, nil)
	default:
		f, ok := asBigFloat(value)
		if !ok {
			return nil, fail(value, Boolean, nil)
		}
		return f.Sign() != 0, nil
	}
}

func toInt(value any, target Type, lo, hi int64) (int64, error) {
	var n int64
	switch v := value.(type) {
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			f, ferr := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if ferr != nil {
				return 0, fail(value, target, err)
			}
			return floatToInt(value, target, f, lo, hi)
		}
		n = parsed
	case int8:
		n = int64(v)
	case int16:
		n = int64(v)
	case int32:
		n = int64(v)
	case int64:
		n = v
	case int:
		n = int64(v)
	case uint8:
		n = int64(v)
	case uint16:
		n = int64(v)
	case uint32:
		n = int64(v)
	case uint64:
		if v > math.MaxInt64 {
			return 0, fail(value, target, errors.New("out of range"))
		}
		n = int64(v)
	case *big.Int:
		if !v.IsInt64() {
			return 0, fail(value, target, errors.New("out of range"))
		}
		n = v.Int64()
	case float32:
		return floatToInt(value, target, float64(v), lo, hi)
	case float64:
		return floatToInt(value, target, v, lo, hi)
	case *big.Float:
		f, _ := v.Float64()
		return floatToInt(value, target, f, lo, hi)
	default:
		return 0, fail(value, target, nil)
	}
	if n < lo || n > hi {
		return 0, fail(value, target, errors.New("out of range"))
	}
	return n, nil
}

func floatToInt(value any, target Type, f float64, lo, hi int64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fail(value, target, errors.New("not a finite number"))
	}
	t := math.Trunc(f)
	if t < float64(lo) || t > float64(hi) {
		return 0, fail(value, target, errors.New("out of range"))
	}
	return int64(t), nil
}

func toBigInt(value any) (any, error) {
	switch v := value.(type) {
	case *big.Int:
		return v, nil
	case string:
		n, ok := new(big.Int).SetString(strings.TrimSpace(v), 10)
		if !ok {
			return nil, fail(value, BigInteger, nil)
		}
		return n, nil
	}
	f, ok := asBigFloat(value)
	if !ok {
		return nil, fail(value, BigInteger, nil)
	}
	if f.IsInf() {
		return nil, fail(value, BigInteger, errors.New("not a finite number"))
	}
	n, _ := f.Int(nil)
	return n, nil
}

func toFloat(value any, target Type) (float64, error) {
	if s, ok := value.(string); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, fail(value, target, err)
		}
		return f, nil
	}
	if f, ok := value.(float64); ok {
		return f, nil
	}
	if f, ok := value.(float32); ok {
		return float64(f), nil
	}
	bf, ok := asBigFloat(value)
	if !ok {
		return 0, fail(value, target, nil)
	}
	f, _ := bf.Float64()
	return f, nil
}

func toBigDecimal(value any) (any, error) {
	if s, ok := value.(string); ok {
		f, _, err := big.ParseFloat(strings.TrimSpace(s), 10, bigDecimalPrec, big.ToNearestEven)
		if err != nil {
			return nil, fail(value, BigDecimal, err)
		}
		return f, nil
	}
	f, ok := asBigFloat(value)
	if !ok {
		return nil, fail(value, BigDecimal, nil)
	}
	return f, nil
}

// asBigFloat widens any numeric or boolean value.
func asBigFloat(value any) (*big.Float, bool) {
	f := new(big.Float).SetPrec(bigDecimalPrec)
	switch v := value.(type) {
	case bool:
		if v {
			return f.SetInt64(1), true
		}
		return f.SetInt64(0), true
	case int8:
		return f.SetInt64(int64(v)), true
	case int16:
		return f.SetInt64(int64(v)), true
	case int32:
		return f.SetInt64(int64(v)), true
	case int64:
		return f.SetInt64(v), true
	case int:
		return f.SetInt64(int64(v)), true
	case uint8:
		return f.SetUint64(uint64(v)), true
	case uint16:
		return f.SetUint64(uint64(v)), true
	case uint32:
		return f.SetUint64(uint64(v)), true
	case uint64:
		return f.SetUint64(v), true
	case float32:
		if math.IsNaN(float64(v)) {
			return nil, false
		}
		return f.SetFloat64(float64(v)), true
	case float64:
		if math.IsNaN(v) {
			return nil, false
		}
		return f.SetFloat64(v), true
	case *big.Int:
		return f.SetInt(v), true
	case *big.Float:
		return v, true
	default:
		return nil, false
	}
}

func toTemporal(value any, target Type) (any, error) {
	var t time.Time
	switch v := value.(type) {
	case time.Time:
		t = v
	case string:
		layouts := timestampLayouts
		switch target {
		case Date:
			layouts = append(dateLayouts, timestampLayouts...)
		case Time:
			layouts = append(timeLayouts, timestampLayouts...)
		}
		parsed, err := parseTime(strings.TrimSpace(v), layouts)
		if err != nil {
			return nil, fail(value, target, err)
		}
		t = parsed
	default:
		return nil, fail(value, target, nil)
	}
	switch target {
	case Date:
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	case Time:
		return time.Date(1970, time.January, 1, t.Hour(), t.Minute(), t.Second(), 0, time.UTC), nil
	default:
		return t, nil
	}
}

func parseTime(s string, layouts []string) (time.Time, error) {
	var firstErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

func toBinary(value any) (any, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case *BlobType:
		return v.Bytes()
	default:
		return nil, fail(value, VarBinary, nil)
	}
}

func toBlob(value any) (any, error) {
	switch v := value.(type) {
	case *BlobType:
		return v, nil
	case []byte:
		return NewBlobBytes(v), nil
	default:
		return nil, fail(value, Blob, nil)
	}
}

func toClob(value any) (any, error) {
	switch v := value.(type) {
	case *ClobType:
		return v, nil
	case string:
		return NewClobString(v), nil
	case *XMLType:
		return NewClob(v.Factory()), nil
	default:
		return nil, fail(value, Clob, nil)
	}
}

func toXML(value any) (any, error) {
	switch v := value.(type) {
	case *XMLType:
		return v, nil
	case string:
		if err := checkWellFormed(v); err != nil {
			return nil, fail(value, XML, err)
		}
		return NewXMLString(v), nil
	case *ClobType:
		s, err := v.Text()
		if err != nil {
			return nil, fail(value, XML, err)
		}
		return toXML(s)
	default:
		return nil, fail(value, XML, nil)
	}
}

func checkWellFormed(s string) error {
	dec := xml.NewDecoder(strings.NewReader(s))
	for {
		_, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
