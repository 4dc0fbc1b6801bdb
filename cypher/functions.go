package cypher

// exprType is the inferred static type of an expression. PROPERTY, IDENTIFIER
// and ANY are permissive: properties are untyped until runtime, so anything
// may be compared against them.
type exprType int

const (
	typeInteger exprType = iota
	typeFloat
	typeString
	typeBoolean
	typeProperty
	typeIdentifier
	typeAny
	typeList
)

func (t exprType) String() string {
	switch t {
	case typeInteger:
		return "INTEGER"
	case typeFloat:
		return "FLOAT"
	case typeString:
		return "STRING"
	case typeBoolean:
		return "BOOLEAN"
	case typeProperty:
		return "PROPERTY"
	case typeIdentifier:
		return "IDENTIFIER"
	case typeAny:
		return "ANY"
	case typeList:
		return "LIST"
	default:
		return "UNKNOWN"
	}
}

// permissive reports whether the type is compatible with every other type.
func (t exprType) permissive() bool {
	return t == typeProperty || t == typeIdentifier || t == typeAny
}

// builtin describes one entry of the function catalog.
type builtin struct {
	returnType exprType
	aggregate  bool
}

// builtins is the fixed catalog of recognized functions with their declared
// return types. Names are looked up exactly as written.
var builtins = map[string]builtin{
	"count":     {returnType: typeInteger, aggregate: true},
	"sum":       {returnType: typeFloat, aggregate: true},
	"avg":       {returnType: typeFloat, aggregate: true},
	"max":       {returnType: typeAny, aggregate: true},
	"min":       {returnType: typeAny, aggregate: true},
	"collect":   {returnType: typeList, aggregate: true},
	"length":    {returnType: typeInteger},
	"type":      {returnType: typeString},
	"id":        {returnType: typeInteger},
	"toInteger": {returnType: typeInteger},
	"toFloat":   {returnType: typeFloat},
	"toString":  {returnType: typeString},
}

// validComparators restricts which comparators each inferred type accepts.
var validComparators = map[exprType][]Comparator{
	typeInteger: {CmpEq, CmpNe, CmpLt, CmpLe, CmpGt, CmpGe},
	typeFloat:   {CmpEq, CmpNe, CmpLt, CmpLe, CmpGt, CmpGe},
	typeString:  {CmpEq, CmpNe, CmpStartsWith, CmpEndsWith, CmpContains},
	typeBoolean: {CmpEq, CmpNe},
	typeProperty: {
		CmpEq, CmpNe, CmpLt, CmpLe, CmpGt, CmpGe,
		CmpStartsWith, CmpEndsWith, CmpContains,
	},
	typeIdentifier: {
		CmpEq, CmpNe, CmpLt, CmpLe, CmpGt, CmpGe,
		CmpStartsWith, CmpEndsWith, CmpContains,
	},
	typeAny: {
		CmpEq, CmpNe, CmpLt, CmpLe, CmpGt, CmpGe,
		CmpStartsWith, CmpEndsWith, CmpContains,
	},
}

func comparatorAllowed(t exprType, op Comparator) bool {
	for _, c := range validComparators[t] {
		if c == op {
			return true
		}
	}
	return false
}
