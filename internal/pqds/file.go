package pqds

import (
	"strings"
	"time"

	"github.com/smallbiznis/pqio/internal/series"
)

// File is a parsed PQDS document.
type File struct {
	Tags []Tag
	// Start is the declared start time from the timing tags.
	Start time.Time
	// Origin is the instant data rows are relative to. Zero means Start,
	// or the earliest sample when Start is zero too.
	Origin time.Time
	Keys   []string
	Series map[string]series.Series
}

// Tag returns the first tag matching key, ignoring case.
func (f *File) Tag(key string) (Tag, bool) {
	for _, t := range f.Tags {
		if t.Is(key) {
			return t, true
		}
	}
	return Tag{}, false
}

func (f *File) Has(key string) bool {
	_, ok := f.Tag(key)
	return ok
}

// Text returns a trimmed text value or nil when the tag is absent or blank.
func (f *File) Text(key string) *string {
	t, ok := f.Tag(key)
	if !ok {
		return nil
	}
	v := strings.TrimSpace(t.Value)
	if v == "" {
		return nil
	}
	return &v
}

// Float returns a numeric value or nil when absent or unparsable.
func (f *File) Float(key string) *float64 {
	t, ok := f.Tag(key)
	if !ok {
		return nil
	}
	v, ok := t.Float()
	if !ok {
		return nil
	}
	return &v
}

// Int returns an integral value or nil when absent or not integral.
func (f *File) Int(key string) *int {
	t, ok := f.Tag(key)
	if !ok {
		return nil
	}
	v, ok := t.Int()
	if !ok {
		return nil
	}
	return &v
}

// Custom returns the "<domain>.<name>" tags.
func (f *File) Custom() []Tag {
	var out []Tag
	for _, t := range f.Tags {
		if _, known := Lookup(t.Key); known {
			continue
		}
		if _, _, ok := t.Domain(); ok {
			out = append(out, t)
		}
	}
	return out
}

// origin resolves the row base used when writing.
func (f *File) origin() time.Time {
	if !f.Origin.IsZero() {
		return f.Origin
	}
	if !f.Start.IsZero() {
		return f.Start
	}
	var min time.Time
	for _, s := range f.Series {
		if len(s) == 0 {
			continue
		}
		if min.IsZero() || s[0].Time.Before(min) {
			min = s[0].Time
		}
	}
	return min
}
