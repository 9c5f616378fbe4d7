package iref

import (
	"fmt"
	"math"
)

type refKey struct {
	typ  FourCC
	from uint32
}

// ItemReferenceBox is the 'iref' box: an ordered set of typed references
// between items.
//
// A box is either built with Add or filled by one ParseBox call. The zero
// value is an empty box ready to use. An ItemReferenceBox is not safe for
// concurrent mutation.
type ItemReferenceBox struct {
	refs  []Reference
	index map[refKey]int

	parsed        bool
	parsedVersion uint8
}

// NewItemReferenceBox returns an empty box.
func NewItemReferenceBox() *ItemReferenceBox {
	return &ItemReferenceBox{}
}

// Add records a reference of type typ from item from to item to.
//
// If a reference with the same type and from-item exists, to is appended to
// its to-items; otherwise a new reference is created. One call to Add does
// not necessarily produce one reference box.
//
// Add does not check limits. WriteBox rejects a reference holding more
// to-items than Limits.MaxTargetsPerReference (65535 by default) with
// ErrLimitExceeded; raise the limit with WithWriteLimits to write more.
func (b *ItemReferenceBox) Add(typ FourCC, from, to uint32) {
	b.AddReference(Reference{typ: typ, fromID: from, toIDs: []uint32{to}})
}

// AddReference merges r into the box: its to-items are appended to the
// reference with the same type and from-item, or r is added as a new
// reference. Unlike Add, it can record a reference with no to-items.
func (b *ItemReferenceBox) AddReference(r Reference) {
	if b.index == nil {
		b.index = make(map[refKey]int)
	}
	k := refKey{typ: r.typ, from: r.fromID}
	if i, ok := b.index[k]; ok {
		b.refs[i].toIDs = append(b.refs[i].toIDs, r.toIDs...)
		return
	}
	b.index[k] = len(b.refs)
	b.refs = append(b.refs, NewReference(r.typ, r.fromID, r.toIDs...))
}

// ReferencesOfType returns copies of the references of type typ in box order.
func (b *ItemReferenceBox) ReferencesOfType(typ FourCC) []Reference {
	var out []Reference
	for _, r := range b.refs {
		if r.typ == typ {
			out = append(out, NewReference(r.typ, r.fromID, r.toIDs...))
		}
	}
	return out
}

// ReferencesFrom returns copies of the references whose from-item is id.
func (b *ItemReferenceBox) ReferencesFrom(id uint32) []Reference {
	var out []Reference
	for _, r := range b.refs {
		if r.fromID == id {
			out = append(out, NewReference(r.typ, r.fromID, r.toIDs...))
		}
	}
	return out
}

// References returns copies of every reference in box order.
func (b *ItemReferenceBox) References() []Reference {
	out := make([]Reference, len(b.refs))
	for i, r := range b.refs {
		out[i] = NewReference(r.typ, r.fromID, r.toIDs...)
	}
	return out
}

// Len returns the number of reference boxes.
func (b *ItemReferenceBox) Len() int {
	return len(b.refs)
}

// IDWidth returns the narrowest width that holds every id in the box.
func (b *ItemReferenceBox) IDWidth() IDWidth {
	for _, r := range b.refs {
		if !Narrow.Fits(r.maxID()) {
			return Wide
		}
	}
	return Narrow
}

// Version returns the version WriteBox uses without options.
func (b *ItemReferenceBox) Version() uint8 {
	return b.IDWidth().Version()
}

// ParsedVersion returns the version read by ParseBox. ok is false if the box
// was not parsed.
func (b *ItemReferenceBox) ParsedVersion() (version uint8, ok bool) {
	return b.parsedVersion, b.parsed
}

func (b *ItemReferenceBox) writeWidth(cfg writeConfig) IDWidth {
	if cfg.minWidth == Wide {
		return Wide
	}
	return b.IDWidth()
}

// Size returns the encoded size of the box in bytes.
func (b *ItemReferenceBox) Size(opts ...WriteOption) uint64 {
	return b.size(b.writeWidth(newWriteConfig(opts)))
}

func (b *ItemReferenceBox) size(w IDWidth) uint64 {
	n := uint64(fullBoxHeaderSize)
	for _, r := range b.refs {
		n += r.Size(w)
	}
	return n
}

// WriteBox writes the box to bw.
//
// Every reference is written at one width: 16-bit ids (version 0) when all
// ids fit, otherwise 32-bit ids (version 1). The configured Limits apply to
// writes as well as reads.
func (b *ItemReferenceBox) WriteBox(bw *Writer, opts ...WriteOption) error {
	cfg := newWriteConfig(opts)
	if !cfg.minWidth.valid() {
		return fmt.Errorf("%w: id width %d", ErrInvalidHeader, cfg.minWidth)
	}
	if err := validateReferences(b.refs, cfg.limits, false); err != nil {
		return err
	}
	width := b.writeWidth(cfg)
	size := b.size(width)
	if size > cfg.limits.MaxBoxSize || size > math.MaxUint32 {
		return fmt.Errorf("%w: iref box of %d bytes", ErrLimitExceeded, size)
	}

	start := bw.Offset()
	writeBoxHeader(bw, 0, TypeIref)
	writeFullBoxHeader(bw, fullBoxHeader{Version: width.Version()})
	for _, r := range b.refs {
		if err := r.WriteBox(bw, width); err != nil {
			bw.buf = bw.buf[:start]
			return err
		}
	}
	return bw.PatchUint32(start, uint32(bw.Offset()-start))
}

// ParseBox reads an 'iref' box from br. The box must be empty and not
// already parsed, even if the earlier parse found no references; on error
// it is left unchanged.
//
// Any four-character reference type other than 'uuid' is accepted unless
// WithStrictTypes(true) is given.
func (b *ItemReferenceBox) ParseBox(br *Reader, opts ...ReadOption) error {
	if len(b.refs) > 0 || b.parsed {
		return ErrBoxNotEmpty
	}
	cfg := newReadConfig(opts)

	h, err := readBoxHeader(br)
	if err != nil {
		return err
	}
	if h.Type != TypeIref {
		return fmt.Errorf("%w: got %s, want %s", ErrUnexpectedBoxType, h.Type, TypeIref)
	}
	if h.Size > cfg.limits.MaxBoxSize {
		return fmt.Errorf("%w: iref box size %d", ErrLimitExceeded, h.Size)
	}
	body, err := br.sub(h.payloadLen())
	if err != nil {
		return err
	}
	fh, err := readFullBoxHeader(body)
	if err != nil {
		return err
	}
	if fh.Flags != 0 {
		return fmt.Errorf("%w: iref flags must be 0, got %#x", ErrInvalidHeader, fh.Flags)
	}
	width := WidthForVersion(fh.Version)

	var refs []Reference
	for body.Remaining() > 0 {
		if len(refs) >= cfg.limits.MaxReferences {
			return fmt.Errorf("%w: more than %d references", ErrLimitExceeded, cfg.limits.MaxReferences)
		}
		var r Reference
		if err := r.ParseBox(body, width); err != nil {
			return fmt.Errorf("reference %d: %w", len(refs), err)
		}
		refs = append(refs, r)
	}
	if err := validateReferences(refs, cfg.limits, cfg.strictTypes); err != nil {
		return err
	}

	index := make(map[refKey]int, len(refs))
	for i, r := range refs {
		k := refKey{typ: r.typ, from: r.fromID}
		if _, ok := index[k]; !ok {
			index[k] = i
		}
	}
	b.refs = refs
	b.index = index
	b.parsed = true
	b.parsedVersion = fh.Version
	return nil
}

// MarshalBinary encodes the box with default options.
func (b *ItemReferenceBox) MarshalBinary() ([]byte, error) {
	bw := NewWriter(nil)
	if err := b.WriteBox(bw); err != nil {
		return nil, err
	}
	return bw.Bytes(), nil
}

// UnmarshalBinary parses data, which must hold exactly one 'iref' box.
func (b *ItemReferenceBox) UnmarshalBinary(data []byte) error {
	br := NewReader(data)
	if err := b.ParseBox(br); err != nil {
		return err
	}
	if br.Remaining() != 0 {
		n := br.Remaining()
		*b = ItemReferenceBox{}
		return fmt.Errorf("%w: %d trailing bytes after iref box", ErrInvalidHeader, n)
	}
	return nil
}
