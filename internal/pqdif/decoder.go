package pqdif

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/smallbiznis/pqio/internal/pqerr"
)

// Decoder turns a PQDIF byte stream into its record tree. The binary tag
// grammar lives behind this interface.
type Decoder interface {
	Decode(ctx context.Context, r io.Reader) (*Decoded, error)
}

// DecoderFunc adapts a function to Decoder.
type DecoderFunc func(ctx context.Context, r io.Reader) (*Decoded, error)

func (f DecoderFunc) Decode(ctx context.Context, r io.Reader) (*Decoded, error) {
	return f(ctx, r)
}

// JSONDecoder reads the JSON record dump written by an external PQDIF tool.
type JSONDecoder struct{}

func NewJSONDecoder() Decoder { return JSONDecoder{} }

func (JSONDecoder) Decode(ctx context.Context, r io.Reader) (*Decoded, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out Decoded
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return nil, pqerr.Parsef("pqdif record dump: %v", err)
	}
	if err := out.validate(); err != nil {
		return nil, err
	}
	return &out, nil
}

// DecodeFile opens path and runs dec over it.
func DecodeFile(ctx context.Context, dec Decoder, path string) (*Decoded, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	out, err := dec.Decode(ctx, fh)
	if err != nil {
		if pqerr.KindOf(err) == pqerr.KindUnknown {
			return nil, pqerr.Parsef("%s: %v", path, err)
		}
		return nil, err
	}
	if out == nil {
		return &Decoded{}, nil
	}
	return out, out.validate()
}

// validate checks the references the importer relies on. Decoders may hand
// over trees they never checked.
func (d *Decoded) validate() error {
	if len(d.DataSources) != 1 {
		return nil
	}
	n := len(d.DataSources[0].ChannelDefinitions)
	for i, obs := range d.Observations {
		for j, inst := range obs.ChannelInstances {
			if inst.ChannelDefinitionIndex < 0 || inst.ChannelDefinitionIndex >= n {
				return pqerr.Parsef("observation %d channel instance %d: definition index %d out of range [0,%d)",
					i, j, inst.ChannelDefinitionIndex, n)
			}
		}
	}
	return nil
}
