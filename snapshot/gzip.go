package snapshot

import (
	"bytes"
	"compress/gzip"
	"io"
)

type gzipCodec struct {
	inner Codec
}

// Gzip wraps a codec with gzip compression.
func Gzip(inner Codec) Codec {
	return gzipCodec{inner: inner}
}

func (c gzipCodec) Name() string { return c.inner.Name() + "+gzip" }

func (c gzipCodec) Encode(s *Snapshot) ([]byte, error) {
	data, err := c.inner.Encode(s)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	// The header carries no name or mtime, so output stays byte-identical
	// across runs.
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c gzipCodec) Decode(data []byte) (*Snapshot, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, err
	}
	return c.inner.Decode(raw)
}
