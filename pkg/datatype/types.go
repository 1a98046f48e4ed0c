// Package datatype defines the engine's runtime type tags, the Go value
// representation of each tag, and conversions between them.
//
// Runtime values use these Go representations:
//
//	string      string
//	char        string (one character)
//	boolean     bool
//	byte        int8
//	short       int16
//	integer     int32
//	long        int64
//	biginteger  *big.Int
//	float       float32
//	double      float64
//	bigdecimal  *big.Float
//	date        time.Time (midnight UTC)
//	time        time.Time (on 1970-01-01 UTC)
//	timestamp   time.Time
//	varbinary   []byte
//	blob        *BlobType
//	clob        *ClobType
//	xml         *XMLType
//	object      any
//	<t>[]       []any
package datatype

import (
	"fmt"
	"math/big"
	"strings"
	"time"
)

// Type is a semantic runtime type tag.
type Type string

// Runtime type tags.
const (
	String     Type = "string"
	Char       Type = "char"
	Boolean    Type = "boolean"
	Byte       Type = "byte"
	Short      Type = "short"
	Integer    Type = "integer"
	Long       Type = "long"
	BigInteger Type = "biginteger"
	Float      Type = "float"
	Double     Type = "double"
	BigDecimal Type = "bigdecimal"
	Date       Type = "date"
	Time       Type = "time"
	Timestamp  Type = "timestamp"
	VarBinary  Type = "varbinary"
	Blob       Type = "blob"
	Clob       Type = "clob"
	XML        Type = "xml"
	Object     Type = "object"
	Null       Type = "null"
)

const arraySuffix = "[]"

var scalarTypes = map[Type]bool{
	String: true, Char: true, Boolean: true, Byte: true, Short: true,
	Integer: true, Long: true, BigInteger: true, Float: true, Double: true,
	BigDecimal: true, Date: true, Time: true, Timestamp: true, VarBinary: true,
	Blob: true, Clob: true, XML: true, Object: true, Null: true,
}

// aliases maps source-native type names onto runtime types.
var aliases = map[string]Type{
	"varchar":                     String,
	"text":                        String,
	"character varying":           String,
	"nvarchar":                    String,
	"bpchar":                      Char,
	"character":                   Char,
	"bool":                        Boolean,
	"tinyint":                     Byte,
	"smallint":                    Short,
	"int2":                        Short,
	"int":                         Integer,
	"int4":                        Integer,
	"bigint":                      Long,
	"int8":                        Long,
	"real":                        Float,
	"float4":                      Float,
	"float8":                      Double,
	"double precision":            Double,
	"decimal":                     BigDecimal,
	"numeric":                     BigDecimal,
	"timestamp without time zone": Timestamp,
	"timestamp with time zone":    Timestamp,
	"timestamptz":                 Timestamp,
	"bytea":                       VarBinary,
	"varbinary":                   VarBinary,
	"binary":                      VarBinary,
	"json":                        Clob,
	"jsonb":                       Clob,
}

// ArrayOf returns the array type whose components are t.
func ArrayOf(t Type) Type {
	return t + arraySuffix
}

// IsArray reports whether t is an array type.
func (t Type) IsArray() bool {
	return strings.HasSuffix(string(t), arraySuffix)
}

// ComponentType returns the element type of an array type, or t itself.
func (t Type) ComponentType() Type {
	if !t.IsArray() {
		return t
	}
	return Type(strings.TrimSuffix(string(t), arraySuffix))
}

// IsLOB reports whether values of t are streamable large objects.
func (t Type) IsLOB() bool {
	return t == Blob || t == Clob || t == XML
}

// IsNumeric reports whether t is a numeric type.
func (t Type) IsNumeric() bool {
	switch t {
	case Byte, Short, Integer, Long, BigInteger, Float, Double, BigDecimal:
		return true
	default:
		return false
	}
}

// Valid reports whether t is a known runtime type.
func (t Type) Valid() bool {
	return scalarTypes[t.ComponentType()]
}

// String returns the type name.
func (t Type) String() string {
	return string(t)
}

// Parse resolves a runtime type name or a common source-native alias.
// Length and precision modifiers such as varchar(20) are ignored.
func Parse(name string) (Type, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if strings.HasPrefix(n, "array(") {
		inner, err := Parse(strings.TrimSuffix(strings.TrimPrefix(n, "array("), ")"))
		if err != nil {
			return "", err
		}
		return ArrayOf(inner), nil
	}
	if strings.HasSuffix(n, arraySuffix) {
		inner, err := Parse(strings.TrimSuffix(n, arraySuffix))
		if err != nil {
			return "", err
		}
		return ArrayOf(inner), nil
	}
	if i := strings.IndexByte(n, '('); i >= 0 {
		n = strings.TrimSpace(n[:i])
	}
	if t := Type(n); scalarTypes[t] {
		return t, nil
	}
	if t, ok := aliases[n]; ok {
		return t, nil
	}
	return "", fmt.Errorf("unknown type %q", name)
}

// TypeOf returns the runtime type of a Go value in its runtime representation.
// Values with no runtime mapping report Object.
func TypeOf(v any) Type {
	switch v.(type) {
	case nil:
		return Null
	case string:
		return String
	case int32:
		return Integer
	case bool:
		return Boolean
	case int8:
		return Byte
	case int16:
		return Short
	case int64:
		return Long
	case *big.Int:
		return BigInteger
	case float32:
		return Float
	case float64:
		return Double
	case *big.Float:
		return BigDecimal
	case time.Time:
		return Timestamp
	case []byte:
		return VarBinary
	case *BlobType:
		return Blob
	case *ClobType:
		return Clob
	case *XMLType:
		return XML
	case []any:
		return ArrayOf(Object)
	default:
		return Object
	}
}
