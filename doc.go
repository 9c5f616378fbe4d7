// Package iref implements the item reference box ('iref') of the ISO base
// media file format, as used by HEIF images to link items to each other.
//
// An 'iref' box is a FullBox holding a sequence of reference boxes. Each
// reference box has the reference type as its box type (for example 'thmb'
// or 'dimg') and carries one from-item id followed by the to-item ids:
//
//	iref  [size:32][type:'iref'][version:8][flags:24]
//	  ref [size:32][type:4CC][from:16|32][to:16|32]...
//
// The number of to-items is implied by the box size. The version of the
// 'iref' box selects the width of every id in it: version 0 uses 16-bit ids,
// version 1 uses 32-bit ids.
//
// # Basic Usage
//
// To build and write a box:
//
//	box := iref.NewItemReferenceBox()
//	box.Add(iref.RefDerivedImage, 1, 2)
//	box.Add(iref.RefDerivedImage, 1, 3)
//	box.Add(iref.RefThumbnail, 4, 1)
//	err := iref.Encode(w, box)
//
// Repeated Add calls with the same type and from-item are merged into one
// reference box.
//
// To read a box:
//
//	box, err := iref.Decode(r)
//	for _, ref := range box.ReferencesOfType(iref.RefThumbnail) {
//		fmt.Println(ref.FromItemID(), ref.ToItemIDs())
//	}
//
// The package checks framing only. It does not verify that referenced items
// exist or interpret what a reference type means.
package iref
