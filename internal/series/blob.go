package series

import "github.com/smallbiznis/pqio/internal/pqerr"

var (
	gzipMagic  = [2]byte{0x1F, 0x8B}
	deltaMagic = [2]byte{0x44, 0x33}
)

// Blob is a classified series blob. The concrete type decides the decode path.
type Blob interface {
	Bytes() []byte
	blob()
}

// LegacyBlob is a plain gzip stream of absolute ticks and float64 values.
type LegacyBlob []byte

// DeltaBlob is a gzip stream whose magic was replaced by 0x44 0x33,
// carrying anchored u16 time deltas and quantized u16 values.
type DeltaBlob []byte

func (b LegacyBlob) Bytes() []byte { return []byte(b) }
func (b DeltaBlob) Bytes() []byte  { return []byte(b) }

func (LegacyBlob) blob() {}
func (DeltaBlob) blob()  {}

// Sniff classifies b by its first two bytes. b is not modified or retained
// beyond the returned value, which aliases it.
func Sniff(b []byte) (Blob, error) {
	if len(b) < 2 {
		return nil, pqerr.Decodef("blob too short: %d bytes", len(b))
	}
	if b[0] == gzipMagic[0] && b[1] == gzipMagic[1] {
		return LegacyBlob(b), nil
	}
	return DeltaBlob(b), nil
}

// inflatable returns a gzip stream for the blob. Delta blobs get their real
// magic restored in a private copy.
func (b DeltaBlob) inflatable() []byte {
	cp := make([]byte, len(b))
	copy(cp, b)
	cp[0], cp[1] = gzipMagic[0], gzipMagic[1]
	return cp
}
