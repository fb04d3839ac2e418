package series

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/gzip"
	"github.com/smallbiznis/pqio/internal/pqerr"
)

const (
	nanCode      uint16 = math.MaxUint16
	maxCode             = math.MaxUint16 - 1
	maxDelta            = math.MaxUint16
	blockHeader         = 4 + 8 + 8
	maxBlobCount        = math.MaxInt32
)

var (
	ErrEmptySeries    = fmt.Errorf("%w: empty series", pqerr.ErrValidation)
	ErrNonFiniteValue = fmt.Errorf("%w: infinite sample value", pqerr.ErrValidation)
)

type encodeOptions struct {
	seriesID int32
	level    int
}

// Option configures Encode.
type Option func(*encodeOptions)

// WithSeriesID sets the synthetic series identifier stored ahead of the values.
func WithSeriesID(id int32) Option {
	return func(o *encodeOptions) { o.seriesID = id }
}

// WithCompressionLevel sets the gzip level. Invalid levels fall back to the default.
func WithCompressionLevel(level int) Option {
	return func(o *encodeOptions) {
		if level == gzip.DefaultCompression || (level >= gzip.NoCompression && level <= gzip.BestCompression) {
			o.level = level
		}
	}
}

// Encode packs s into a delta blob: anchored u16 time deltas, values
// quantized to u16 over [min, max], gzip, magic 0x44 0x33.
func Encode(s Series, opts ...Option) ([]byte, error) {
	if len(s) == 0 {
		return nil, ErrEmptySeries
	}
	if len(s) > maxBlobCount {
		return nil, pqerr.Validationf("series too long: %d samples", len(s))
	}
	o := encodeOptions{level: gzip.DefaultCompression}
	for _, opt := range opts {
		opt(&o)
	}

	for _, p := range s {
		if math.IsInf(p.Value, 0) {
			return nil, ErrNonFiniteValue
		}
	}

	ticks := make([]int64, len(s))
	for i, p := range s {
		ticks[i] = ToTicks(p.Time)
	}

	raw := make([]byte, 0, 4+len(s)*(2+2)+blockHeader+12)
	raw = binary.LittleEndian.AppendUint32(raw, uint32(len(s)))
	for start := 0; start < len(ticks); {
		end := start + 1
		for end < len(ticks) && compressible(ticks[end]-ticks[end-1]) {
			end++
		}
		raw = binary.LittleEndian.AppendUint32(raw, uint32(end-start))
		raw = binary.LittleEndian.AppendUint64(raw, uint64(ticks[start]))
		for i := start + 1; i < end; i++ {
			raw = binary.LittleEndian.AppendUint16(raw, uint16(ticks[i]-ticks[i-1]))
		}
		start = end
	}

	offset, scale := quantization(s)
	raw = binary.LittleEndian.AppendUint32(raw, uint32(o.seriesID))
	raw = binary.LittleEndian.AppendUint64(raw, math.Float64bits(offset))
	raw = binary.LittleEndian.AppendUint64(raw, math.Float64bits(scale))
	for _, p := range s {
		raw = binary.LittleEndian.AppendUint16(raw, quantize(p.Value, offset, scale))
	}

	out, err := deflate(raw, o.level)
	if err != nil {
		return nil, err
	}
	out[0], out[1] = deltaMagic[0], deltaMagic[1]
	return out, nil
}

// EncodeLegacy packs s in the plain gzip layout with absolute ticks and
// float64 values. Values round-trip exactly.
func EncodeLegacy(s Series, seriesID int32) ([]byte, error) {
	if len(s) == 0 {
		return nil, ErrEmptySeries
	}
	raw := make([]byte, 0, 4+len(s)*16+4)
	raw = binary.LittleEndian.AppendUint32(raw, uint32(len(s)))
	for _, p := range s {
		raw = binary.LittleEndian.AppendUint64(raw, uint64(ToTicks(p.Time)))
	}
	raw = binary.LittleEndian.AppendUint32(raw, uint32(seriesID))
	for _, p := range s {
		raw = binary.LittleEndian.AppendUint64(raw, math.Float64bits(p.Value))
	}
	return deflate(raw, gzip.DefaultCompression)
}

// Decode restores a series from either blob layout. When a blob carries
// several value blocks over the same time axis, their samples are returned
// block after block.
func Decode(b []byte) (Series, error) {
	blocks, err := DecodeAll(b)
	if err != nil {
		return nil, err
	}
	if len(blocks) == 1 {
		return blocks[0], nil
	}
	var out Series
	for _, blk := range blocks {
		out = append(out, blk...)
	}
	return out, nil
}

// DecodeAll returns one series per value block.
func DecodeAll(b []byte) ([]Series, error) {
	blob, err := Sniff(b)
	if err != nil {
		return nil, err
	}
	return DecodeBlob(blob)
}

// DecodeBlob decodes an already classified blob.
func DecodeBlob(blob Blob) ([]Series, error) {
	switch v := blob.(type) {
	case LegacyBlob:
		raw, err := inflate(v.Bytes())
		if err != nil {
			return nil, err
		}
		return decodeLegacy(raw)
	case DeltaBlob:
		if len(v) < 2 {
			return nil, pqerr.Decodef("blob too short: %d bytes", len(v))
		}
		raw, err := inflate(v.inflatable())
		if err != nil {
			return nil, err
		}
		return decodeDelta(raw)
	default:
		return nil, pqerr.Decodef("unknown blob type %T", blob)
	}
}

func decodeLegacy(raw []byte) ([]Series, error) {
	r := cursor{b: raw}
	count, err := r.count()
	if err != nil {
		return nil, err
	}
	if r.remaining() < count*8 {
		return nil, pqerr.Decodef("legacy blob truncated in time section")
	}
	times := make([]int64, count)
	for i := range times {
		times[i] = int64(r.u64())
	}

	var blocks []Series
	for r.remaining() > 0 {
		if r.remaining() < 4+count*8 {
			return nil, pqerr.Decodef("legacy blob truncated in value block %d", len(blocks))
		}
		_ = r.u32()
		s := make(Series, count)
		for i := range s {
			s[i] = Point{Time: FromTicks(times[i]), Value: math.Float64frombits(r.u64())}
		}
		blocks = append(blocks, s)
	}
	if len(blocks) == 0 {
		return nil, pqerr.Decodef("legacy blob has no value block")
	}
	return blocks, nil
}

func decodeDelta(raw []byte) ([]Series, error) {
	r := cursor{b: raw}
	count, err := r.count()
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, pqerr.Decodef("delta blob declares zero samples")
	}

	times := make([]int64, 0, count)
	for len(times) < count {
		if r.remaining() < 12 {
			return nil, pqerr.Decodef("delta blob truncated at run header after %d samples", len(times))
		}
		run := int(int32(r.u32()))
		if run <= 0 || run > count-len(times) {
			return nil, pqerr.Decodef("invalid run length %d with %d samples left", run, count-len(times))
		}
		current := int64(r.u64())
		times = append(times, current)
		if r.remaining() < (run-1)*2 {
			return nil, pqerr.Decodef("delta blob truncated inside run")
		}
		for i := 1; i < run; i++ {
			current += int64(r.u16())
			times = append(times, current)
		}
	}

	var blocks []Series
	for r.remaining() > 0 {
		if r.remaining() < blockHeader+count*2 {
			return nil, pqerr.Decodef("delta blob truncated in value block %d", len(blocks))
		}
		_ = r.u32()
		offset := math.Float64frombits(r.u64())
		scale := math.Float64frombits(r.u64())
		s := make(Series, count)
		for i := range s {
			code := r.u16()
			v := math.NaN()
			if code != nanCode {
				v = scale*float64(code) + offset
			}
			s[i] = Point{Time: FromTicks(times[i]), Value: v}
		}
		blocks = append(blocks, s)
	}
	if len(blocks) == 0 {
		return nil, pqerr.Decodef("delta blob has no value block")
	}
	return blocks, nil
}

func compressible(delta int64) bool {
	return delta >= 0 && delta <= maxDelta
}

// quantization returns the affine (offset, scale) mapping codes back to values.
func quantization(s Series) (offset, scale float64) {
	lo, hi, ok := s.Bounds()
	if !ok {
		return 0, 0
	}
	return lo, (hi - lo) / maxCode
}

func quantize(v, offset, scale float64) uint16 {
	if math.IsNaN(v) {
		return nanCode
	}
	if scale == 0 {
		return 0
	}
	q := math.RoundToEven((v - offset) / scale)
	switch {
	case q < 0:
		q = 0
	case q > math.MaxUint16:
		q = math.MaxUint16
	}
	code := uint16(q)
	if code == nanCode {
		code--
	}
	return code
}

func deflate(raw []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(raw); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func inflate(b []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, pqerr.Decodef("open gzip stream: %v", err)
	}
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, pqerr.Decodef("gzip stream truncated")
		}
		return nil, pqerr.Decodef("inflate: %v", err)
	}
	return raw, nil
}

// cursor reads little-endian fields. Callers check remaining() before reading.
type cursor struct {
	b   []byte
	off int
}

func (c *cursor) remaining() int { return len(c.b) - c.off }

func (c *cursor) u16() uint16 {
	v := binary.LittleEndian.Uint16(c.b[c.off:])
	c.off += 2
	return v
}

func (c *cursor) u32() uint32 {
	v := binary.LittleEndian.Uint32(c.b[c.off:])
	c.off += 4
	return v
}

func (c *cursor) u64() uint64 {
	v := binary.LittleEndian.Uint64(c.b[c.off:])
	c.off += 8
	return v
}

func (c *cursor) count() (int, error) {
	if c.remaining() < 4 {
		return 0, pqerr.Decodef("blob truncated before sample count")
	}
	n := int32(c.u32())
	if n < 0 {
		return 0, pqerr.Decodef("negative sample count %d", n)
	}
	// every sample needs at least two bytes of payload
	if int(n) > c.remaining()/2+1 {
		return 0, pqerr.Decodef("sample count %d exceeds payload", n)
	}
	return int(n), nil
}
