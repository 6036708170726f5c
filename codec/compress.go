package codec

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression wraps writers/readers of persisted tables. Catalog and
// statistics tables can be large (10^5-10^6 rows of text), so artifacts
// are compressed by default.
type Compression interface {
	// Name is the stable registry name.
	Name() string
	// Ext is the file extension including the dot, or "" for none.
	Ext() string
	// WrapWriter returns a writer that compresses into w. Closing the
	// returned writer flushes the stream but does not close w.
	WrapWriter(w io.Writer) (io.WriteCloser, error)
	// WrapReader returns a reader that decompresses from r.
	WrapReader(r io.Reader) (io.ReadCloser, error)
}

// CompressionByName returns a built-in compression by its stable name.
func CompressionByName(name string) (Compression, bool) {
	switch name {
	case "none":
		return None{}, true
	case "gzip":
		return Gzip{}, true
	case "zstd":
		return Zstd{}, true
	case "lz4":
		return LZ4{}, true
	default:
		return nil, false
	}
}

// CompressionByExt selects a compression from a file name's extension.
// Unrecognized extensions map to None.
func CompressionByExt(path string) Compression {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		return Gzip{}
	case ".zst":
		return Zstd{}
	case ".lz4":
		return LZ4{}
	default:
		return None{}
	}
}

// None passes data through unchanged.
type None struct{}

func (None) Name() string { return "none" }
func (None) Ext() string  { return "" }

func (None) WrapWriter(w io.Writer) (io.WriteCloser, error) {
	return nopWriteCloser{w}, nil
}

func (None) WrapReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(r), nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// Gzip compresses with klauspost's gzip at the default level.
type Gzip struct{}

func (Gzip) Name() string { return "gzip" }
func (Gzip) Ext() string  { return ".gz" }

func (Gzip) WrapWriter(w io.Writer) (io.WriteCloser, error) {
	return gzip.NewWriter(w), nil
}

func (Gzip) WrapReader(r io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(r)
}

// Zstd compresses with zstandard, the default for published runs.
type Zstd struct{}

func (Zstd) Name() string { return "zstd" }
func (Zstd) Ext() string  { return ".zst" }

func (Zstd) WrapWriter(w io.Writer) (io.WriteCloser, error) {
	return zstd.NewWriter(w)
}

func (Zstd) WrapReader(r io.Reader) (io.ReadCloser, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	return dec.IOReadCloser(), nil
}

// LZ4 compresses with lz4 framing. Fastest option; largest output.
type LZ4 struct{}

func (LZ4) Name() string { return "lz4" }
func (LZ4) Ext() string  { return ".lz4" }

func (LZ4) WrapWriter(w io.Writer) (io.WriteCloser, error) {
	return lz4.NewWriter(w), nil
}

func (LZ4) WrapReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(lz4.NewReader(r)), nil
}
