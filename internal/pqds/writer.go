package pqds

import (
	"bufio"
	"io"
	"math"
	"os"
	"sort"
	"strconv"

	"github.com/smallbiznis/pqio/internal/series"
)

// WriteFile creates or truncates path and writes f to it.
func WriteFile(path string, f *File) error {
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(fh, f); err != nil {
		fh.Close()
		return err
	}
	return fh.Close()
}

// Write renders the metadata lines, the waveform-data header and one row
// per distinct timestamp. Channels without a sample at a row get NaN.
func Write(w io.Writer, f *File) error {
	bw := bufio.NewWriter(w)
	for _, t := range f.Tags {
		bw.WriteString(t.Line())
		bw.WriteByte('\n')
	}

	bw.WriteString(DataHeader)
	for _, k := range f.Keys {
		bw.WriteByte(',')
		bw.WriteString(k)
	}
	bw.WriteByte('\n')

	index := make([]map[int64]float64, len(f.Keys))
	var ticks []int64
	seen := map[int64]bool{}
	for i, k := range f.Keys {
		index[i] = map[int64]float64{}
		for _, p := range f.Series[k] {
			at := series.ToTicks(p.Time)
			if _, dup := index[i][at]; dup {
				continue
			}
			index[i][at] = p.Value
			if !seen[at] {
				seen[at] = true
				ticks = append(ticks, at)
			}
		}
	}
	sort.Slice(ticks, func(a, b int) bool { return ticks[a] < ticks[b] })

	base := series.ToTicks(f.origin())
	for _, at := range ticks {
		bw.WriteString(strconv.FormatFloat(float64(at-base)/1e4, 'f', -1, 64))
		for i := range f.Keys {
			v, ok := index[i][at]
			if !ok {
				v = math.NaN()
			}
			bw.WriteByte(',')
			bw.WriteString(formatFloat(v))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
