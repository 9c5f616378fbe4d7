package iref

import (
	"fmt"
	"math"
	"slices"
)

// Reference is a single item type reference: one from-item linked to an
// ordered list of to-items under a reference type.
//
// On the wire a Reference is a box whose type is the reference type. The
// id width is not stored in the Reference; it is supplied by the enclosing
// ItemReferenceBox on every parse and write.
type Reference struct {
	typ    FourCC
	fromID uint32
	toIDs  []uint32
}

// NewReference returns a Reference of type typ from item from to the items in to.
func NewReference(typ FourCC, from uint32, to ...uint32) Reference {
	return Reference{typ: typ, fromID: from, toIDs: slices.Clone(to)}
}

// SetType sets the reference type.
func (r *Reference) SetType(typ FourCC) {
	r.typ = typ
}

// Type returns the reference type.
func (r Reference) Type() FourCC {
	return r.typ
}

// SetFromItemID sets the from-item id.
func (r *Reference) SetFromItemID(id uint32) {
	r.fromID = id
}

// FromItemID returns the from-item id.
func (r Reference) FromItemID() uint32 {
	return r.fromID
}

// AddToItemID appends id to the to-items. Duplicates are kept.
func (r *Reference) AddToItemID(id uint32) {
	r.toIDs = append(r.toIDs, id)
}

// ToItemIDs returns a copy of the to-items in order.
func (r Reference) ToItemIDs() []uint32 {
	out := make([]uint32, len(r.toIDs))
	copy(out, r.toIDs)
	return out
}

// ClearToItemIDs drops every to-item. Type and from-item are kept.
func (r *Reference) ClearToItemIDs() {
	r.toIDs = nil
}

// Len returns the number of to-items.
func (r Reference) Len() int {
	return len(r.toIDs)
}

// Equal reports whether r and o have the same type, from-item and to-items.
func (r Reference) Equal(o Reference) bool {
	return r.typ == o.typ && r.fromID == o.fromID && slices.Equal(r.toIDs, o.toIDs)
}

// String formats r as "type from -> [to...]".
func (r Reference) String() string {
	return fmt.Sprintf("%s %d -> %v", r.typ, r.fromID, r.toIDs)
}

// Size returns the encoded size of r in bytes at width w.
func (r Reference) Size(w IDWidth) uint64 {
	return uint64(boxHeaderSize) + uint64(1+len(r.toIDs))*uint64(w)
}

// maxID returns the largest item id held by r.
func (r Reference) maxID() uint32 {
	m := r.fromID
	for _, id := range r.toIDs {
		m = max(m, id)
	}
	return m
}

// WriteBox writes r as a box at width w.
func (r Reference) WriteBox(bw *Writer, w IDWidth) error {
	if !w.valid() {
		return fmt.Errorf("%w: id width %d", ErrInvalidHeader, w)
	}
	size := r.Size(w)
	if size > math.MaxUint32 {
		return fmt.Errorf("%w: %s reference is %d bytes", ErrLimitExceeded, r.typ, size)
	}
	if m := r.maxID(); !w.Fits(m) {
		return fmt.Errorf("%w: %s reference holds id %d at %s width", ErrIDOutOfRange, r.typ, m, w)
	}
	writeBoxHeader(bw, uint32(size), r.typ)
	writeID(bw, w, r.fromID)
	for _, id := range r.toIDs {
		writeID(bw, w, id)
	}
	return nil
}

// ParseBox reads one reference box from br at width w and replaces the
// contents of r with it.
func (r *Reference) ParseBox(br *Reader, w IDWidth) error {
	if !w.valid() {
		return fmt.Errorf("%w: id width %d", ErrInvalidHeader, w)
	}
	h, err := readBoxHeader(br)
	if err != nil {
		return err
	}
	if h.Type == typeUUID {
		return fmt.Errorf("%w: %s is not a reference type", ErrUnexpectedBoxType, h.Type)
	}
	body, err := br.sub(h.payloadLen())
	if err != nil {
		return err
	}
	return r.parsePayload(h.Type, body, w)
}

func (r *Reference) parsePayload(typ FourCC, body *Reader, w IDWidth) error {
	n := body.Remaining()
	if n < int(w) {
		return fmt.Errorf("%w: %s payload of %d bytes has no from-item id", ErrMalformedLength, typ, n)
	}
	if (n-int(w))%int(w) != 0 {
		return fmt.Errorf("%w: %s payload of %d bytes is not a multiple of %d", ErrMalformedLength, typ, n, w)
	}
	from, err := readID(body, w)
	if err != nil {
		return err
	}
	count := (n - int(w)) / int(w)
	to := make([]uint32, count)
	for i := range to {
		if to[i], err = readID(body, w); err != nil {
			return err
		}
	}
	r.typ = typ
	r.fromID = from
	r.toIDs = to
	return nil
}

func writeID(bw *Writer, w IDWidth, id uint32) {
	if w == Wide {
		bw.WriteUint32(id)
		return
	}
	bw.WriteUint16(uint16(id))
}

func readID(br *Reader, w IDWidth) (uint32, error) {
	if w == Wide {
		return br.ReadUint32()
	}
	v, err := br.ReadUint16()
	return uint32(v), err
}
