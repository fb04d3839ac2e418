package pqds

import (
	"bufio"
	"errors"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/pqio/internal/pqerr"
	"github.com/smallbiznis/pqio/internal/series"
)

const maxLineSize = 16 << 20

var errUnterminatedQuote = errors.New("unterminated quoted value")

// ReadFile opens and parses a PQDS file.
func ReadFile(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return Read(fh)
}

// Read parses metadata lines up to the waveform-data header, then one row
// per sample: milliseconds since the declared start followed by one value
// per channel key.
func Read(r io.Reader) (*File, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64<<10), maxLineSize)

	f := &File{Series: map[string]series.Series{}}
	var (
		columns []string
		inData  bool
		lineNo  int
	)
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		if !inData {
			key, rest, _ := strings.Cut(line, ",")
			key = strings.TrimSpace(strings.TrimPrefix(key, "\ufeff"))
			if key == "" {
				return nil, pqerr.Parsef("line %d: empty tag key", lineNo)
			}
			if NormalizeKey(key) != DataHeader {
				tag, err := parseTag(key, rest)
				if err != nil {
					return nil, pqerr.Parsef("line %d: %v", lineNo, err)
				}
				f.Tags = append(f.Tags, tag)
				continue
			}

			columns = parseHeader(rest)
			for _, c := range columns {
				if c != "" {
					f.Keys = append(f.Keys, c)
				}
			}
			if len(f.Keys) == 0 {
				return nil, pqerr.Parsef("line %d: %s header lists no channels", lineNo, DataHeader)
			}
			start, ok, err := StartFromTags(f)
			if err != nil {
				return nil, pqerr.Parsef("timing tags: %v", err)
			}
			if !ok {
				start = time.Unix(0, 0).UTC()
			}
			f.Start, f.Origin = start, start
			inData = true
			continue
		}

		fields := strings.Split(line, ",")
		if len(fields) != len(columns)+1 {
			return nil, pqerr.Parsef("line %d: expected %d fields, got %d", lineNo, len(columns)+1, len(fields))
		}
		ms, err := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
		if err != nil || math.IsNaN(ms) || math.IsInf(ms, 0) {
			return nil, pqerr.Parsef("line %d: invalid time offset %q", lineNo, fields[0])
		}
		at := f.Origin.Add(time.Duration(math.Round(ms*1e4)) * 100)
		for i, key := range columns {
			if key == "" {
				continue
			}
			v, err := parseSample(fields[i+1])
			if err != nil {
				return nil, pqerr.Parsef("line %d column %s: %v", lineNo, key, err)
			}
			f.Series[key] = append(f.Series[key], series.Point{Time: at, Value: v})
		}
	}
	if err := sc.Err(); err != nil {
		return nil, pqerr.Parsef("read: %v", err)
	}
	if !inData {
		return nil, pqerr.Parsef("missing %s header", DataHeader)
	}
	return f, nil
}

// parseHeader returns normalized column keys. Repeated keys are blanked so
// only the first column feeds the series.
func parseHeader(rest string) []string {
	parts := strings.Split(rest, ",")
	seen := make(map[string]bool, len(parts))
	out := make([]string, len(parts))
	for i, p := range parts {
		k := NormalizeKey(p)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out[i] = k
	}
	return out
}

func parseSample(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "nan") {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(raw, 64)
}

func parseTag(key, rest string) (Tag, error) {
	value, quoted, err := parseValue(rest)
	if err != nil {
		return Tag{}, err
	}
	if spec, ok := Lookup(key); ok {
		return Tag{Key: spec.Key, Type: spec.Type, Value: value}, nil
	}
	return Tag{Key: key, Type: inferType(value, quoted), Value: value}, nil
}

// parseValue reads the second column. Quoted values use "" escaping; any
// further columns are ignored.
func parseValue(rest string) (string, bool, error) {
	rest = strings.TrimLeft(rest, " \t")
	if !strings.HasPrefix(rest, `"`) {
		v, _, _ := strings.Cut(rest, ",")
		return strings.TrimSpace(v), false, nil
	}
	var b strings.Builder
	for i := 1; i < len(rest); i++ {
		c := rest[i]
		if c != '"' {
			b.WriteByte(c)
			continue
		}
		if i+1 < len(rest) && rest[i+1] == '"' {
			b.WriteByte('"')
			i++
			continue
		}
		return b.String(), true, nil
	}
	return "", true, errUnterminatedQuote
}

func inferType(value string, quoted bool) TagType {
	if quoted {
		return TagText
	}
	switch strings.ToLower(value) {
	case "true", "false":
		return TagBoolean
	}
	if _, err := strconv.ParseFloat(value, 64); err == nil {
		return TagNumeric
	}
	return TagText
}
