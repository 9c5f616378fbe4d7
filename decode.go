package iref

import "io"

// Decode reads one 'iref' box from r.
//
// The whole box is buffered before parsing, bounded by Limits.MaxBoxSize.
// Any malformed reference fails the whole box; no partial result is returned.
//
// Decode returns ErrTruncated if r ends before the declared size,
// ErrUnexpectedBoxType if the box is not 'iref', ErrMalformedLength if a
// reference payload does not divide into whole ids, and ErrLimitExceeded if
// a limit is exceeded.
func Decode(r io.Reader, opts ...ReadOption) (*ItemReferenceBox, error) {
	cfg := newReadConfig(opts)
	data, err := readBox(r, cfg.limits.MaxBoxSize)
	if err != nil {
		return nil, err
	}
	box := NewItemReferenceBox()
	if err := box.ParseBox(NewReader(data), opts...); err != nil {
		return nil, err
	}
	return box, nil
}
