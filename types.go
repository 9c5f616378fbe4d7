package iref

import "fmt"

// FourCC is a four-character code identifying a box or reference type.
type FourCC [4]byte

func (c FourCC) String() string {
	return string(c[:])
}

// ParseFourCC converts s into a FourCC. s must be exactly 4 bytes long.
func ParseFourCC(s string) (FourCC, error) {
	var c FourCC
	if len(s) != 4 {
		return c, fmt.Errorf("%w: %q is %d bytes", ErrInvalidReferenceType, s, len(s))
	}
	copy(c[:], s)
	return c, nil
}

// MustFourCC is like ParseFourCC but panics on error.
func MustFourCC(s string) FourCC {
	c, err := ParseFourCC(s)
	if err != nil {
		panic(err)
	}
	return c
}

// TypeIref is the box type of the item reference box.
var TypeIref = FourCC{'i', 'r', 'e', 'f'}

// typeUUID marks an extended box type. Reference boxes never use it.
var typeUUID = FourCC{'u', 'u', 'i', 'd'}

// Reference types registered for image items.
var (
	RefThumbnail          = FourCC{'t', 'h', 'm', 'b'}
	RefAuxiliary          = FourCC{'a', 'u', 'x', 'l'}
	RefContentDescription = FourCC{'c', 'd', 's', 'c'}
	RefDerivedImage       = FourCC{'d', 'i', 'm', 'g'}
	RefBase               = FourCC{'b', 'a', 's', 'e'}
	RefPremultiplied      = FourCC{'p', 'r', 'e', 'm'}
	RefExif               = FourCC{'e', 'x', 'b', 'l'}
	RefTileBase           = FourCC{'t', 'b', 'a', 's'}
	RefPredicted          = FourCC{'p', 'r', 'e', 'd'}
)

// KnownReferenceTypes returns the reference types accepted by WithStrictTypes.
func KnownReferenceTypes() []FourCC {
	return []FourCC{
		RefThumbnail, RefAuxiliary, RefContentDescription, RefDerivedImage,
		RefBase, RefPremultiplied, RefExif, RefTileBase, RefPredicted,
	}
}

func isKnownReferenceType(t FourCC) bool {
	for _, k := range KnownReferenceTypes() {
		if k == t {
			return true
		}
	}
	return false
}

// IDWidth is the on-wire width of every item id in a box.
//
// It is derived from the iref version: version 0 uses Narrow (16-bit) ids,
// version 1 and above use Wide (32-bit) ids.
type IDWidth uint8

const (
	Narrow IDWidth = 2
	Wide   IDWidth = 4
)

// WidthForVersion returns the id width selected by an iref box version.
func WidthForVersion(version uint8) IDWidth {
	if version >= 1 {
		return Wide
	}
	return Narrow
}

// Version returns the iref box version that selects w.
func (w IDWidth) Version() uint8 {
	if w == Wide {
		return 1
	}
	return 0
}

// Fits reports whether id is representable at width w.
func (w IDWidth) Fits(id uint32) bool {
	return w == Wide || id <= 0xFFFF
}

func (w IDWidth) String() string {
	switch w {
	case Narrow:
		return "narrow"
	case Wide:
		return "wide"
	}
	return "unknown"
}

func (w IDWidth) valid() bool {
	return w == Narrow || w == Wide
}

const (
	boxHeaderSize     uint32 = 8
	fullBoxHeaderSize uint32 = boxHeaderSize + 4
)
