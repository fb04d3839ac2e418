package pqds

import (
	"math"
	"strconv"
	"strings"
)

// TagType is the value type of a metadata tag.
type TagType int

const (
	TagText TagType = iota
	TagNumeric
	TagBoolean
	TagEnum
)

// Code is the single-letter type code used by custom fields.
func (t TagType) Code() string {
	switch t {
	case TagNumeric:
		return "N"
	case TagBoolean:
		return "B"
	case TagEnum:
		return "E"
	default:
		return "T"
	}
}

// TagTypeFromCode is the inverse of Code. Unknown codes map to TagText.
func TagTypeFromCode(code string) TagType {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "N":
		return TagNumeric
	case "B":
		return TagBoolean
	case "E":
		return TagEnum
	default:
		return TagText
	}
}

// Tag is one metadata line of a PQDS file. Value holds the unquoted text.
type Tag struct {
	Key   string
	Type  TagType
	Value string
}

func TextTag(key, value string) Tag {
	return Tag{Key: key, Type: TagText, Value: value}
}

func NumericTag(key string, value float64) Tag {
	return Tag{Key: key, Type: TagNumeric, Value: formatFloat(value)}
}

func BoolTag(key string, value bool) Tag {
	return Tag{Key: key, Type: TagBoolean, Value: strconv.FormatBool(value)}
}

func EnumTag(key string, value int) Tag {
	return Tag{Key: key, Type: TagEnum, Value: strconv.Itoa(value)}
}

// NormalizeKey is the case-insensitive form used for lookups.
func NormalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// Is reports whether the tag key matches key ignoring case.
func (t Tag) Is(key string) bool {
	return NormalizeKey(t.Key) == NormalizeKey(key)
}

func (t Tag) Float() (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(t.Value), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func (t Tag) Int() (int, bool) {
	v, ok := t.Float()
	if !ok || v != math.Trunc(v) || math.Abs(v) > math.MaxInt32 {
		return 0, false
	}
	return int(v), true
}

func (t Tag) Bool() (bool, bool) {
	v, err := strconv.ParseBool(strings.TrimSpace(t.Value))
	if err != nil {
		return false, false
	}
	return v, true
}

// Domain splits a custom-field key "<domain>.<name>".
func (t Tag) Domain() (domain, name string, ok bool) {
	i := strings.Index(t.Key, ".")
	if i <= 0 || i == len(t.Key)-1 {
		return "", "", false
	}
	return t.Key[:i], t.Key[i+1:], true
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// Render returns the value column as written to a file. Text values are
// flattened to one line since readers split the file on newlines.
func (t Tag) Render() string {
	if t.Type == TagText {
		return `"` + strings.ReplaceAll(lineBreaks.Replace(t.Value), `"`, `""`) + `"`
	}
	return t.Value
}

// Line returns the full "key,value" metadata line.
func (t Tag) Line() string {
	return t.Key + "," + t.Render()
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
