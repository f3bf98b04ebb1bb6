package soql

import "strings"

// Type is the declared column type of a bound parameter.
// Values follow the JDBC type codes used by the connector framework so that
// diagnostics stay comparable across implementations.
type Type int

const (
	TypeBit           Type = -7
	TypeTinyInt       Type = -6
	TypeBigInt        Type = -5
	TypeLongVarBinary Type = -4
	TypeVarBinary     Type = -3
	TypeBinary        Type = -2
	TypeLongVarChar   Type = -1
	TypeNull          Type = 0
	TypeChar          Type = 1
	TypeNumeric       Type = 2
	TypeDecimal       Type = 3
	TypeInteger       Type = 4
	TypeSmallInt      Type = 5
	TypeFloat         Type = 6
	TypeReal          Type = 7
	TypeDouble        Type = 8
	TypeVarChar       Type = 12
	TypeBoolean       Type = 16
	TypeDataLink      Type = 70
	TypeDate          Type = 91
	TypeTime          Type = 92
	TypeTimestamp     Type = 93
	TypeOther         Type = 1111
	TypeJavaObject    Type = 2000
	TypeDistinct      Type = 2001
	TypeStruct        Type = 2002
	TypeArray         Type = 2003
	TypeBlob          Type = 2004
	TypeClob          Type = 2005
	TypeRef           Type = 2006
)

var typeNames = map[Type]string{
	TypeArray:         "ARRAY",
	TypeBigInt:        "BIGINT",
	TypeBinary:        "BINARY",
	TypeBit:           "BIT",
	TypeBlob:          "BLOB",
	TypeBoolean:       "BOOLEAN",
	TypeChar:          "CHAR",
	TypeClob:          "CLOB",
	TypeDataLink:      "DATALINK",
	TypeDate:          "DATE",
	TypeDecimal:       "DECIMAL",
	TypeDistinct:      "DISTINCT",
	TypeDouble:        "DOUBLE",
	TypeFloat:         "FLOAT",
	TypeInteger:       "INTEGER",
	TypeJavaObject:    "JAVA_OBJECT",
	TypeLongVarBinary: "LONGVARBINARY",
	TypeLongVarChar:   "LONGVARCHAR",
	TypeNumeric:       "NUMERIC",
	TypeOther:         "OTHER",
	TypeReal:          "REAL",
	TypeRef:           "REF",
	TypeSmallInt:      "SMALLINT",
	TypeStruct:        "STRUCT",
	TypeTime:          "TIME",
	TypeTimestamp:     "TIMESTAMP",
	TypeTinyInt:       "TINYINT",
	TypeVarBinary:     "VARBINARY",
	TypeVarChar:       "VARCHAR",
}

// Name returns the uppercase type tag, or "" for TypeNull and unknown codes.
func (t Type) Name() string {
	return typeNames[t]
}

// IsStringLike reports whether literals of this type are single quoted.
func (t Type) IsStringLike() bool {
	switch t {
	case TypeChar, TypeVarChar, TypeLongVarChar, TypeClob:
		return true
	default:
		return false
	}
}

// IsBinary reports whether the type carries a binary payload.
// Binary columns never take part in server-side filtering.
func (t Type) IsBinary() bool {
	switch t {
	case TypeBinary, TypeVarBinary, TypeLongVarBinary, TypeBlob:
		return true
	default:
		return false
	}
}

// ParseType returns the type whose tag is name, ignoring case.
func ParseType(name string) (Type, bool) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for t, tag := range typeNames {
		if tag == name {
			return t, true
		}
	}
	return TypeNull, false
}
