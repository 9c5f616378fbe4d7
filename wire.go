package iref

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Writer appends big-endian fields to an in-memory buffer.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer that appends to buf.
func NewWriter(buf []byte) *Writer {
	return &Writer{buf: buf}
}

// WriteUint8 appends one byte.
func (w *Writer) WriteUint8(v uint8) {
	w.buf = append(w.buf, v)
}

// WriteUint16 appends a big-endian 16-bit value.
func (w *Writer) WriteUint16(v uint16) {
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)
}

// WriteUint24 appends a big-endian 24-bit value.
func (w *Writer) WriteUint24(v uint32) {
	w.buf = append(w.buf, byte(v>>16), byte(v>>8), byte(v))
}

// WriteUint32 appends a big-endian 32-bit value.
func (w *Writer) WriteUint32(v uint32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
}

// WriteUint64 appends a big-endian 64-bit value.
func (w *Writer) WriteUint64(v uint64) {
	w.buf = binary.BigEndian.AppendUint64(w.buf, v)
}

// WriteFourCC appends c.
func (w *Writer) WriteFourCC(c FourCC) {
	w.buf = append(w.buf, c[:]...)
}

// PatchUint32 overwrites 4 bytes at off, typically a box size written before
// the payload length was known.
func (w *Writer) PatchUint32(off int, v uint32) error {
	if off < 0 || off+4 > len(w.buf) {
		return fmt.Errorf("iref: patch offset %d outside %d written bytes", off, len(w.buf))
	}
	binary.BigEndian.PutUint32(w.buf[off:off+4], v)
	return nil
}

// Offset returns the number of bytes written so far.
func (w *Writer) Offset() int {
	return len(w.buf)
}

// Bytes returns the written bytes. The slice aliases the Writer's buffer.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Reader consumes big-endian fields from a byte slice.
type Reader struct {
	data []byte
	off  int
}

// NewReader returns a Reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

func (r *Reader) take(n int) ([]byte, error) {
	if n < 0 || n > len(r.data)-r.off {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncated, n, r.off, len(r.data)-r.off)
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

// ReadUint8 consumes one byte.
func (r *Reader) ReadUint8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadUint16 consumes a big-endian 16-bit value.
func (r *Reader) ReadUint16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

// ReadUint24 consumes a big-endian 24-bit value.
func (r *Reader) ReadUint24() (uint32, error) {
	b, err := r.take(3)
	if err != nil {
		return 0, err
	}
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2]), nil
}

// ReadUint32 consumes a big-endian 32-bit value.
func (r *Reader) ReadUint32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// ReadUint64 consumes a big-endian 64-bit value.
func (r *Reader) ReadUint64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

// ReadFourCC consumes a four-character code.
func (r *Reader) ReadFourCC() (FourCC, error) {
	var c FourCC
	b, err := r.take(4)
	if err != nil {
		return c, err
	}
	copy(c[:], b)
	return c, nil
}

// Skip advances the Reader by n bytes.
func (r *Reader) Skip(n int) error {
	_, err := r.take(n)
	return err
}

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int {
	return r.off
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.off
}

// sub returns a Reader over the next n bytes and advances past them.
func (r *Reader) sub(n uint64) (*Reader, error) {
	if n > uint64(r.Remaining()) {
		return nil, fmt.Errorf("%w: box needs %d bytes at offset %d, have %d", ErrTruncated, n, r.off, r.Remaining())
	}
	b, err := r.take(int(n))
	if err != nil {
		return nil, err
	}
	return NewReader(b), nil
}

type boxHeader struct {
	Size      uint64 // whole box, header included
	Type      FourCC
	HeaderLen uint32
}

func (h boxHeader) payloadLen() uint64 {
	return h.Size - uint64(h.HeaderLen)
}

type fullBoxHeader struct {
	Version uint8
	Flags   uint32 // low 24 bits
}

// readBoxHeader reads a compact or 64-bit box header. A size of zero means the
// box extends to the end of r.
func readBoxHeader(r *Reader) (boxHeader, error) {
	size, err := r.ReadUint32()
	if err != nil {
		return boxHeader{}, err
	}
	typ, err := r.ReadFourCC()
	if err != nil {
		return boxHeader{}, err
	}
	h := boxHeader{Size: uint64(size), Type: typ, HeaderLen: boxHeaderSize}
	switch size {
	case 0:
		h.Size = uint64(h.HeaderLen) + uint64(r.Remaining())
	case 1:
		large, err := r.ReadUint64()
		if err != nil {
			return boxHeader{}, err
		}
		h.HeaderLen += 8
		h.Size = large
	}
	if h.Size < uint64(h.HeaderLen) {
		return boxHeader{}, fmt.Errorf("%w: %s size %d smaller than header", ErrInvalidHeader, typ, h.Size)
	}
	return h, nil
}

func writeBoxHeader(w *Writer, size uint32, typ FourCC) {
	w.WriteUint32(size)
	w.WriteFourCC(typ)
}

func readFullBoxHeader(r *Reader) (fullBoxHeader, error) {
	v, err := r.ReadUint8()
	if err != nil {
		return fullBoxHeader{}, err
	}
	flags, err := r.ReadUint24()
	if err != nil {
		return fullBoxHeader{}, err
	}
	return fullBoxHeader{Version: v, Flags: flags}, nil
}

func writeFullBoxHeader(w *Writer, fh fullBoxHeader) {
	w.WriteUint8(fh.Version)
	w.WriteUint24(fh.Flags)
}

// readBox reads one whole box from an io.Reader: the header, the optional
// 64-bit size and the payload. A zero size reads until EOF. maxSize bounds the
// bytes buffered.
func readBox(src io.Reader, maxSize uint64) ([]byte, error) {
	var prefix [16]byte
	if _, err := io.ReadFull(src, prefix[:boxHeaderSize]); err != nil {
		return nil, fmt.Errorf("%w: box header: %w", ErrTruncated, err)
	}
	n := int(boxHeaderSize)
	size := uint64(binary.BigEndian.Uint32(prefix[0:4]))
	switch size {
	case 0:
		rest, err := io.ReadAll(io.LimitReader(src, int64(min(maxSize, math.MaxInt64-1))+1))
		if err != nil {
			return nil, err
		}
		if uint64(n+len(rest)) > maxSize {
			return nil, fmt.Errorf("%w: box exceeds %d bytes", ErrLimitExceeded, maxSize)
		}
		return append(prefix[:n:n], rest...), nil
	case 1:
		if _, err := io.ReadFull(src, prefix[8:16]); err != nil {
			return nil, fmt.Errorf("%w: largesize: %w", ErrTruncated, err)
		}
		n = 16
		size = binary.BigEndian.Uint64(prefix[8:16])
	}
	if size < uint64(n) {
		return nil, fmt.Errorf("%w: size %d smaller than header", ErrInvalidHeader, size)
	}
	if size > maxSize {
		return nil, fmt.Errorf("%w: box size %d exceeds %d", ErrLimitExceeded, size, maxSize)
	}
	buf := make([]byte, size)
	copy(buf, prefix[:n])
	if _, err := io.ReadFull(src, buf[n:]); err != nil {
		return nil, fmt.Errorf("%w: box payload: %w", ErrTruncated, err)
	}
	return buf, nil
}
