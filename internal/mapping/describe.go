package mapping

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/sfconnect/internal/soql"
)

// Object classes reported for well-known object types.
const (
	AccountClass = "__ACCOUNT__"
	GroupClass   = "__GROUP__"
)

// FieldInfo describes one field of a remote object.
type FieldInfo struct {
	Name       string
	Type       soql.Type
	RemoteType string
	Createable bool
	Updateable bool
	Required   bool
	IDLookup   bool
}

// ObjectInfo is the parsed describe result of a remote object type.
type ObjectInfo struct {
	Name       string
	Class      string
	Fields     []FieldInfo
	Createable bool
	Updateable bool
	Searchable bool
	Deletable  bool
}

// describeDoc is the subset of the describe response we read. Flags are
// pointers because an absent flag means "allowed".
type describeDoc struct {
	Name       string          `json:"name"`
	Createable *bool           `json:"createable"`
	Updateable *bool           `json:"updateable"`
	Searchable *bool           `json:"searchable"`
	Deletable  *bool           `json:"deletable"`
	Fields     []describeField `json:"fields"`
}

type describeField struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Createable *bool  `json:"createable"`
	Updateable *bool  `json:"updateable"`
	Nillable   *bool  `json:"nillable"`
	IDLookup   bool   `json:"idLookup"`
}

// ParseDescribe parses a describe response body.
func ParseDescribe(data []byte) (ObjectInfo, error) {
	var doc describeDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return ObjectInfo{}, fmt.Errorf("parse describe: %w", err)
	}
	if doc.Name == "" {
		return ObjectInfo{}, fmt.Errorf("parse describe: missing object name")
	}

	info := ObjectInfo{
		Name:       doc.Name,
		Class:      objectClass(doc.Name),
		Createable: allowed(doc.Createable),
		Updateable: allowed(doc.Updateable),
		Searchable: allowed(doc.Searchable),
		Deletable:  allowed(doc.Deletable),
	}
	for _, f := range doc.Fields {
		if f.Name == "" {
			continue
		}
		info.Fields = append(info.Fields, FieldInfo{
			Name:       f.Name,
			Type:       FieldType(f.Type),
			RemoteType: f.Type,
			Createable: allowed(f.Createable),
			Updateable: allowed(f.Updateable),
			Required:   f.Nillable != nil && !*f.Nillable,
			IDLookup:   f.IDLookup,
		})
	}
	return info, nil
}

func allowed(flag *bool) bool {
	return flag == nil || *flag
}

func objectClass(name string) string {
	switch {
	case strings.EqualFold(name, "User"):
		return AccountClass
	case strings.EqualFold(name, "Group"):
		return GroupClass
	default:
		return name
	}
}

// Attributes returns the fields exposed as ordinary attributes: the Id
// field and id-lookup fields stand behind __UID__ and __NAME__.
func (o ObjectInfo) Attributes() []FieldInfo {
	var out []FieldInfo
	for _, f := range o.Fields {
		if strings.EqualFold(f.Name, "Id") || f.IDLookup {
			continue
		}
		out = append(out, f)
	}
	return out
}

// ColumnTypes returns the declared type of every field, for Columns.SetTypes.
func (o ObjectInfo) ColumnTypes() map[string]soql.Type {
	types := make(map[string]soql.Type, len(o.Fields))
	for _, f := range o.Fields {
		types[f.Name] = f.Type
	}
	return types
}

// FieldType maps a remote field type to its declared column type.
// Unknown types are treated as VARCHAR.
func FieldType(remote string) soql.Type {
	switch strings.ToLower(remote) {
	case "boolean":
		return soql.TypeBoolean
	case "int":
		return soql.TypeInteger
	case "double", "currency", "percent":
		return soql.TypeDouble
	case "date":
		return soql.TypeDate
	case "datetime":
		return soql.TypeTimestamp
	case "time":
		return soql.TypeTime
	case "base64":
		return soql.TypeBlob
	case "address", "location":
		return soql.TypeStruct
	case "anytype":
		return soql.TypeOther
	case "textarea":
		return soql.TypeLongVarChar
	default:
		return soql.TypeVarChar
	}
}
