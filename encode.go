package iref

import (
	"fmt"
	"io"
)

// Encode writes box to w as a single 'iref' box.
//
// The version is chosen from the ids held by the box: 0 if every id fits in
// 16 bits, 1 otherwise. Use WriteOption functions to customize this behavior:
//   - WithMinIDWidth(Wide): always write 32-bit ids
//   - WithWriteLimits(l): set custom size limits
func Encode(w io.Writer, box *ItemReferenceBox, opts ...WriteOption) error {
	if box == nil {
		return fmt.Errorf("%w: box is nil", ErrInvalidHeader)
	}
	bw := NewWriter(nil)
	if err := box.WriteBox(bw, opts...); err != nil {
		return err
	}
	b := bw.Bytes()
	n, err := w.Write(b)
	if err == nil && n < len(b) {
		err = io.ErrShortWrite
	}
	return err
}
