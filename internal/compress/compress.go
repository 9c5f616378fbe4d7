// Package compress wraps and unwraps box dumps in the compression formats
// the iref tools accept for input and output files.
package compress

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
)

type Compression uint16

const (
	None Compression = iota
	ZIP
	ZSTD
	LZ4
	BR
	XZ
)

var (
	ErrUnknownCompression = errors.New("compress: unknown compression")
	ErrInvalidPayload     = errors.New("compress: invalid payload")
	ErrTooLarge           = errors.New("compress: decompressed data too large")
)

// zipEntryName is the single entry a ZIP-wrapped box dump holds.
const zipEntryName = "box.bin"

// Function variables for testing injection.
var (
	newZstdWriter = func() (*zstd.Encoder, error) { return zstd.NewWriter(nil) }
	newZstdReader = func() (*zstd.Decoder, error) { return zstd.NewReader(nil) }
	zipCreate     = func(zw *zip.Writer, name string) (io.Writer, error) { return zw.Create(name) }
	zipClose      = func(zw *zip.Writer) error { return zw.Close() }
	zipOpen       = func(zf *zip.File) (io.ReadCloser, error) { return zf.Open() }
	readAll       = io.ReadAll
	lz4Close      = func(w *lz4.Writer) error { return w.Close() }
	brotliClose   = func(w *brotli.Writer) error { return w.Close() }
	brotliWrite   = func(w *brotli.Writer, p []byte) (int, error) { return w.Write(p) }
	xzNewWriter   = xz.NewWriter
	xzNewReader   = xz.NewReader
)

var names = map[Compression]string{
	None: "none",
	ZIP:  "zip",
	ZSTD: "zstd",
	LZ4:  "lz4",
	BR:   "brotli",
	XZ:   "xz",
}

func (c Compression) String() string {
	if n, ok := names[c]; ok {
		return n
	}
	return "unknown"
}

// Parse returns the Compression named s. "br" and "zst" are accepted as
// aliases; the empty string means None.
func Parse(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return None, nil
	case "zip":
		return ZIP, nil
	case "zstd", "zst":
		return ZSTD, nil
	case "lz4":
		return LZ4, nil
	case "brotli", "br":
		return BR, nil
	case "xz":
		return XZ, nil
	}
	return None, fmt.Errorf("%w: %q", ErrUnknownCompression, s)
}

// FromExtension maps a file name suffix to a Compression. ok is false when
// the suffix names no known format.
func FromExtension(path string) (c Compression, ok bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zip":
		return ZIP, true
	case ".zst", ".zstd":
		return ZSTD, true
	case ".lz4":
		return LZ4, true
	case ".br":
		return BR, true
	case ".xz":
		return XZ, true
	}
	return None, false
}

// Detect identifies data by its magic bytes. Brotli streams carry no magic
// and are reported as None.
func Detect(data []byte) Compression {
	switch {
	case bytes.HasPrefix(data, []byte{0x28, 0xB5, 0x2F, 0xFD}):
		return ZSTD
	case bytes.HasPrefix(data, []byte{0x04, 0x22, 0x4D, 0x18}):
		return LZ4
	case bytes.HasPrefix(data, []byte{0xFD, '7', 'z', 'X', 'Z', 0x00}):
		return XZ
	case bytes.HasPrefix(data, []byte{'P', 'K', 0x03, 0x04}):
		return ZIP
	}
	return None
}

// Compress encodes in with comp.
func Compress(comp Compression, in []byte) ([]byte, error) {
	switch comp {
	case None:
		return in, nil
	case ZIP:
		return zipCompress(in)
	case ZSTD:
		return zstdCompress(in)
	case LZ4:
		return lz4Compress(in)
	case BR:
		return brotliCompress(in)
	case XZ:
		return xzCompress(in)
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownCompression, comp)
}

// Decompress decodes in with comp. Output longer than maxLen bytes is
// rejected to guard against decompression bombs.
func Decompress(comp Compression, in []byte, maxLen uint64) ([]byte, error) {
	var out []byte
	var err error
	switch comp {
	case None:
		out = in
	case ZIP:
		out, err = zipDecompress(in, maxLen)
	case ZSTD:
		out, err = zstdDecompress(in, maxLen)
	case LZ4:
		out, err = limitedRead(lz4.NewReader(bytes.NewReader(in)), maxLen)
	case BR:
		out, err = limitedRead(brotli.NewReader(bytes.NewReader(in)), maxLen)
	case XZ:
		out, err = xzDecompress(in, maxLen)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCompression, comp)
	}
	if err != nil {
		return nil, err
	}
	if uint64(len(out)) > maxLen {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, len(out), maxLen)
	}
	return out, nil
}

// limitedRead reads at most maxLen+1 bytes from r so that an oversized
// stream is noticed without inflating all of it.
func limitedRead(r io.Reader, maxLen uint64) ([]byte, error) {
	b, err := readAll(io.LimitReader(r, int64(min(maxLen, 1<<62))+1))
	if err != nil {
		return nil, err
	}
	if uint64(len(b)) > maxLen {
		return nil, fmt.Errorf("%w: stream exceeds %d bytes", ErrTooLarge, maxLen)
	}
	return b, nil
}

// zipCompress creates a ZIP archive holding in as its single entry.
func zipCompress(in []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := zipCompressNamed(&buf, zipEntryName, in); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func zipCompressNamed(w io.Writer, name string, in []byte) error {
	zw := zip.NewWriter(w)
	entry, err := zipCreate(zw, name)
	if err != nil {
		_ = zipClose(zw)
		return err
	}
	if _, err := entry.Write(in); err != nil {
		_ = zipClose(zw)
		return err
	}
	return zipClose(zw)
}

// zipDecompress extracts the single regular-file entry of a ZIP archive.
func zipDecompress(zipBytes []byte, maxLen uint64) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(zipBytes), int64(len(zipBytes)))
	if err != nil {
		return nil, err
	}
	if len(zr.File) != 1 {
		return nil, fmt.Errorf("%w: zip must contain exactly one entry, has %d", ErrInvalidPayload, len(zr.File))
	}
	zf := zr.File[0]
	if zf.FileInfo().IsDir() {
		return nil, fmt.Errorf("%w: zip entry must be a file", ErrInvalidPayload)
	}
	if zf.UncompressedSize64 > maxLen {
		return nil, fmt.Errorf("%w: zip entry of %d bytes", ErrTooLarge, zf.UncompressedSize64)
	}
	rc, err := zipOpen(zf)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return limitedRead(rc, maxLen)
}

func zstdCompress(in []byte) ([]byte, error) {
	enc, err := newZstdWriter()
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(in, nil), nil
}

func zstdDecompress(in []byte, maxLen uint64) ([]byte, error) {
	dec, err := newZstdReader()
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	if err := dec.Reset(bytes.NewReader(in)); err != nil {
		return nil, err
	}
	return limitedRead(dec, maxLen)
}

func lz4Compress(in []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := lz4CompressTo(&buf, in); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func lz4CompressTo(w io.Writer, in []byte) error {
	zw := lz4.NewWriter(w)
	if _, err := zw.Write(in); err != nil {
		_ = lz4Close(zw)
		return err
	}
	return lz4Close(zw)
}

func brotliCompress(in []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := brotliCompressTo(&buf, in); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func brotliCompressTo(w io.Writer, in []byte) error {
	bw := brotli.NewWriter(w)
	if _, err := brotliWrite(bw, in); err != nil {
		_ = brotliClose(bw)
		return err
	}
	return brotliClose(bw)
}

func xzCompress(in []byte) ([]byte, error) {
	var buf bytes.Buffer
	xw, err := xzNewWriter(&buf)
	if err != nil {
		return nil, err
	}
	if _, err := xw.Write(in); err != nil {
		_ = xw.Close()
		return nil, err
	}
	if err := xw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func xzDecompress(in []byte, maxLen uint64) ([]byte, error) {
	xr, err := xzNewReader(bytes.NewReader(in))
	if err != nil {
		return nil, err
	}
	return limitedRead(xr, maxLen)
}

// Open decompresses data read from a file called name. The format comes
// from the name's extension, falling back to magic-byte detection.
func Open(name string, data []byte, maxLen uint64) ([]byte, Compression, error) {
	comp, ok := FromExtension(name)
	if !ok {
		comp = Detect(data)
	}
	out, err := Decompress(comp, data, maxLen)
	if err != nil {
		return nil, comp, fmt.Errorf("%s (%s): %w", name, comp, err)
	}
	return out, comp, nil
}
