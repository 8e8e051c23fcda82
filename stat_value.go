package statsync

// StatDataType tags the value type a statistic was established with.
type StatDataType int

const (
	StatDataUndefined StatDataType = iota
	StatDataInt
	StatDataDouble
	StatDataString
)

func (t StatDataType) String() string {
	switch t {
	case StatDataInt:
		return "int"
	case StatDataDouble:
		return "double"
	case StatDataString:
		return "string"
	default:
		return "undefined"
	}
}

// ParseStatDataType normalizes a wire string into a StatDataType.
func ParseStatDataType(value string) StatDataType {
	switch value {
	case "int", "INT", "integer":
		return StatDataInt
	case "double", "DOUBLE", "number":
		return StatDataDouble
	case "string", "STRING":
		return StatDataString
	default:
		return StatDataUndefined
	}
}

// CompareType is the predicate gating whether a new value replaces the
// current one. Ordering policies apply to numeric stats only.
type CompareType int

const (
	CompareAlways CompareType = iota
	CompareGreater
	CompareGreaterOrEqual
	CompareLess
	CompareLessOrEqual
)

func (c CompareType) String() string {
	switch c {
	case CompareGreater:
		return "greater_than"
	case CompareGreaterOrEqual:
		return "greater_than_or_equal"
	case CompareLess:
		return "less_than"
	case CompareLessOrEqual:
		return "less_than_or_equal"
	default:
		return "always"
	}
}

// ParseCompareType normalizes a wire string into a CompareType.
func ParseCompareType(value string) CompareType {
	switch value {
	case "greater_than", "GREATER_THAN", "max":
		return CompareGreater
	case "greater_than_or_equal", "GREATER_THAN_OR_EQUAL":
		return CompareGreaterOrEqual
	case "less_than", "LESS_THAN", "min":
		return CompareLess
	case "less_than_or_equal", "LESS_THAN_OR_EQUAL":
		return CompareLessOrEqual
	default:
		return CompareAlways
	}
}

// Allows reports whether next may replace current under this policy.
func (c CompareType) Allows(next, current float64) bool {
	switch c {
	case CompareGreater:
		return next > current
	case CompareGreaterOrEqual:
		return next >= current
	case CompareLess:
		return next < current
	case CompareLessOrEqual:
		return next <= current
	default:
		return true
	}
}

// StatValue is a single named statistic. Instances are owned by the
// document that indexes them; accessors on Document return copies.
type StatValue struct {
	Name     string
	DataType StatDataType
	Number   float64
	Text     string
}

// IsNumeric reports whether the stat holds a numeric payload.
func (v StatValue) IsNumeric() bool {
	return v.DataType == StatDataInt || v.DataType == StatDataDouble
}

// Integer returns the numeric payload truncated to int64.
func (v StatValue) Integer() int64 {
	return int64(v.Number)
}

// Value returns the payload as the wire representation.
func (v StatValue) Value() any {
	if v.DataType == StatDataString {
		return v.Text
	}
	return v.Number
}
