package iref

import (
	"bytes"
	"errors"
	"io"
	"slices"
	"testing"
)

func sampleBox() *ItemReferenceBox {
	box := NewItemReferenceBox()
	box.Add(RefDerivedImage, 1, 2)
	box.Add(RefDerivedImage, 1, 3)
	box.Add(RefThumbnail, 4, 2)
	return box
}

var sampleBoxBytes = []byte{
	0x00, 0x00, 0x00, 0x26, 'i', 'r', 'e', 'f', 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x0E, 'd', 'i', 'm', 'g', 0x00, 0x01, 0x00, 0x02, 0x00, 0x03,
	0x00, 0x00, 0x00, 0x0C, 't', 'h', 'm', 'b', 0x00, 0x04, 0x00, 0x02,
}

type failingWriter struct {
	n int
}

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.n <= 0 {
		return 0, io.ErrClosedPipe
	}
	if len(p) > w.n {
		p = p[:w.n]
	}
	w.n -= len(p)
	return len(p), nil
}

func TestEncodeSampleBytes(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, sampleBox()); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), sampleBoxBytes) {
		t.Fatalf("encoded bytes mismatch\nwant: % x\ngot:  % x", sampleBoxBytes, buf.Bytes())
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, sampleBox()); err != nil {
		t.Fatal(err)
	}
	got, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if v, ok := got.ParsedVersion(); !ok || v != 0 {
		t.Fatalf("parsed version = %d, %v; want 0, true", v, ok)
	}
	want := []Reference{
		NewReference(RefDerivedImage, 1, 2, 3),
		NewReference(RefThumbnail, 4, 2),
	}
	refs := got.References()
	if len(refs) != len(want) {
		t.Fatalf("got %d references, want %d: %v", len(refs), len(want), refs)
	}
	for i := range want {
		if !refs[i].Equal(want[i]) {
			t.Fatalf("reference %d = %v, want %v", i, refs[i], want[i])
		}
	}
}

func TestAddMergesSameTypeAndFrom(t *testing.T) {
	box := NewItemReferenceBox()
	box.Add(RefThumbnail, 5, 10)
	box.Add(RefThumbnail, 5, 11)
	if box.Len() != 1 {
		t.Fatalf("Len = %d, want 1", box.Len())
	}
	ref := box.References()[0]
	if ref.FromItemID() != 5 || !slices.Equal(ref.ToItemIDs(), []uint32{10, 11}) {
		t.Fatalf("merged reference = %v", ref)
	}
}

func TestAddKeepsDistinctKeysApart(t *testing.T) {
	box := NewItemReferenceBox()
	box.Add(RefThumbnail, 5, 10)
	box.Add(RefAuxiliary, 5, 10)
	box.Add(RefThumbnail, 6, 10)
	box.Add(RefThumbnail, 5, 10)
	if box.Len() != 3 {
		t.Fatalf("Len = %d, want 3", box.Len())
	}
	if got := box.References()[0].ToItemIDs(); !slices.Equal(got, []uint32{10, 10}) {
		t.Fatalf("duplicate target not kept: %v", got)
	}
}

func TestZeroValueBoxUsable(t *testing.T) {
	var box ItemReferenceBox
	box.Add(RefBase, 1, 2)
	if box.Len() != 1 {
		t.Fatalf("Len = %d", box.Len())
	}
}

func TestReferencesOfType(t *testing.T) {
	box := NewItemReferenceBox()
	box.Add(RefThumbnail, 2, 1)
	box.Add(RefContentDescription, 3, 1)
	box.Add(RefThumbnail, 4, 1)

	thmb := box.ReferencesOfType(RefThumbnail)
	if len(thmb) != 2 {
		t.Fatalf("got %d thmb references, want 2", len(thmb))
	}
	if thmb[0].FromItemID() != 2 || thmb[1].FromItemID() != 4 {
		t.Fatalf("order not preserved: %v", thmb)
	}
	for _, r := range thmb {
		if r.Type() != RefThumbnail {
			t.Fatalf("unexpected type %s", r.Type())
		}
	}
	if got := box.ReferencesOfType(RefDerivedImage); len(got) != 0 {
		t.Fatalf("expected no dimg references, got %v", got)
	}
}

func TestReferencesAreCopies(t *testing.T) {
	box := sampleBox()
	refs := box.ReferencesOfType(RefDerivedImage)
	refs[0].AddToItemID(99)
	refs[0].SetFromItemID(42)
	ids := refs[0].ToItemIDs()
	ids[0] = 77

	again := box.ReferencesOfType(RefDerivedImage)[0]
	if again.FromItemID() != 1 || !slices.Equal(again.ToItemIDs(), []uint32{2, 3}) {
		t.Fatalf("box state changed through a returned copy: %v", again)
	}
}

func TestReferencesFrom(t *testing.T) {
	box := sampleBox()
	box.Add(RefAuxiliary, 1, 9)
	got := box.ReferencesFrom(1)
	if len(got) != 2 || got[0].Type() != RefDerivedImage || got[1].Type() != RefAuxiliary {
		t.Fatalf("ReferencesFrom(1) = %v", got)
	}
	if len(box.ReferencesFrom(100)) != 0 {
		t.Fatal("expected no references from item 100")
	}
}

func TestWidthUniformity(t *testing.T) {
	box := NewItemReferenceBox()
	box.Add(RefThumbnail, 2, 1)
	box.Add(RefDerivedImage, 3, 70000)
	if box.Version() != 1 || box.IDWidth() != Wide {
		t.Fatalf("version %d width %s, want 1 wide", box.Version(), box.IDWidth())
	}

	data, err := box.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{
		0x00, 0x00, 0x00, 0x2C, 'i', 'r', 'e', 'f', 0x01, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x10, 't', 'h', 'm', 'b', 0x00, 0x00, 0x00, 0x02, 0x00, 0x00, 0x00, 0x01,
		0x00, 0x00, 0x00, 0x10, 'd', 'i', 'm', 'g', 0x00, 0x00, 0x00, 0x03, 0x00, 0x01, 0x11, 0x70,
	}
	if !bytes.Equal(data, want) {
		t.Fatalf("wide encoding mismatch\nwant: % x\ngot:  % x", want, data)
	}
	if uint64(len(data)) != box.Size() {
		t.Fatalf("Size = %d, encoded %d bytes", box.Size(), len(data))
	}

	var back ItemReferenceBox
	if err := back.UnmarshalBinary(data); err != nil {
		t.Fatal(err)
	}
	if v, _ := back.ParsedVersion(); v != 1 {
		t.Fatalf("parsed version %d, want 1", v)
	}
	if got := back.ReferencesOfType(RefDerivedImage)[0].ToItemIDs(); !slices.Equal(got, []uint32{70000}) {
		t.Fatalf("wide id lost: %v", got)
	}
}

func TestNarrowBoxIsVersionZero(t *testing.T) {
	box := NewItemReferenceBox()
	box.Add(RefThumbnail, 0xFFFF, 0xFFFF)
	if box.Version() != 0 {
		t.Fatalf("version %d, want 0", box.Version())
	}
	data, err := box.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	if data[8] != 0 {
		t.Fatalf("version byte %d, want 0", data[8])
	}
	if len(data) != 12+8+4 {
		t.Fatalf("encoded %d bytes, want 24", len(data))
	}
}

func TestMinIDWidthForcesVersionOne(t *testing.T) {
	box := sampleBox()
	var buf bytes.Buffer
	if err := Encode(&buf, box, WithMinIDWidth(Wide)); err != nil {
		t.Fatal(err)
	}
	if buf.Bytes()[8] != 1 {
		t.Fatalf("version byte %d, want 1", buf.Bytes()[8])
	}
	if uint64(buf.Len()) != box.Size(WithMinIDWidth(Wide)) {
		t.Fatalf("Size(wide) = %d, encoded %d", box.Size(WithMinIDWidth(Wide)), buf.Len())
	}
	got, err := Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if !got.References()[0].Equal(NewReference(RefDerivedImage, 1, 2, 3)) {
		t.Fatalf("unexpected reference %v", got.References()[0])
	}
}

func TestEmptyTargetRoundTrip(t *testing.T) {
	for _, w := range []IDWidth{Narrow, Wide} {
		t.Run(w.String(), func(t *testing.T) {
			ref := NewReference(RefThumbnail, 7)
			bw := NewWriter(nil)
			if err := ref.WriteBox(bw, w); err != nil {
				t.Fatal(err)
			}
			if len(bw.Bytes()) != int(boxHeaderSize)+int(w) {
				t.Fatalf("encoded %d bytes, want %d", len(bw.Bytes()), int(boxHeaderSize)+int(w))
			}
			var back Reference
			if err := back.ParseBox(NewReader(bw.Bytes()), w); err != nil {
				t.Fatal(err)
			}
			if back.FromItemID() != 7 || back.Len() != 0 || back.Type() != RefThumbnail {
				t.Fatalf("got %v", back)
			}
		})
	}
}

func TestEmptyBoxRoundTrip(t *testing.T) {
	data, err := NewItemReferenceBox().MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x00, 0x00, 0x00, 0x0C, 'i', 'r', 'e', 'f', 0x00, 0x00, 0x00, 0x00}
	if !bytes.Equal(data, want) {
		t.Fatalf("got % x", data)
	}
	got, err := Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if got.Len() != 0 {
		t.Fatalf("Len = %d", got.Len())
	}
}

func TestAddAfterParseMerges(t *testing.T) {
	got, err := Decode(bytes.NewReader(sampleBoxBytes))
	if err != nil {
		t.Fatal(err)
	}
	got.Add(RefThumbnail, 4, 3)
	got.Add(RefAuxiliary, 5, 1)
	if got.Len() != 3 {
		t.Fatalf("Len = %d, want 3", got.Len())
	}
	if ids := got.ReferencesOfType(RefThumbnail)[0].ToItemIDs(); !slices.Equal(ids, []uint32{2, 3}) {
		t.Fatalf("thmb to-items %v", ids)
	}
}

func TestParseIntoNonEmptyBox(t *testing.T) {
	box := sampleBox()
	err := box.ParseBox(NewReader(sampleBoxBytes))
	if !errors.Is(err, ErrBoxNotEmpty) {
		t.Fatalf("expected ErrBoxNotEmpty, got %v", err)
	}
	if box.Len() != 2 {
		t.Fatalf("box modified: Len = %d", box.Len())
	}
}

func TestParseTwiceAfterEmptyParse(t *testing.T) {
	empty, err := NewItemReferenceBox().MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	box := NewItemReferenceBox()
	if err := box.ParseBox(NewReader(empty)); err != nil {
		t.Fatal(err)
	}
	err = box.ParseBox(NewReader(sampleBoxBytes))
	if !errors.Is(err, ErrBoxNotEmpty) {
		t.Fatalf("expected ErrBoxNotEmpty, got %v", err)
	}
	if box.Len() != 0 {
		t.Fatalf("box modified: Len = %d", box.Len())
	}
	if err := box.UnmarshalBinary(sampleBoxBytes); !errors.Is(err, ErrBoxNotEmpty) {
		t.Fatalf("UnmarshalBinary: expected ErrBoxNotEmpty, got %v", err)
	}
}

func TestParsedDuplicateSubBoxesKept(t *testing.T) {
	data := []byte{
		0x00, 0x00, 0x00, 0x24, 'i', 'r', 'e', 'f', 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x0C, 't', 'h', 'm', 'b', 0x00, 0x04, 0x00, 0x01,
		0x00, 0x00, 0x00, 0x0C, 't', 'h', 'm', 'b', 0x00, 0x04, 0x00, 0x02,
	}
	box, err := Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if box.Len() != 2 {
		t.Fatalf("Len = %d, want 2", box.Len())
	}
	box.Add(RefThumbnail, 4, 3)
	refs := box.References()
	if !slices.Equal(refs[0].ToItemIDs(), []uint32{1, 3}) || !slices.Equal(refs[1].ToItemIDs(), []uint32{2}) {
		t.Fatalf("Add did not merge into first match: %v", refs)
	}
}

func TestEncodeNilBox(t *testing.T) {
	err := Encode(io.Discard, nil)
	if !errors.Is(err, ErrInvalidHeader) {
		t.Fatalf("expected ErrInvalidHeader, got %v", err)
	}
}

func TestEncodeWriterError(t *testing.T) {
	err := Encode(&failingWriter{n: 10}, sampleBox())
	if !errors.Is(err, io.ErrShortWrite) {
		t.Fatalf("expected io.ErrShortWrite, got %v", err)
	}
	err = Encode(&failingWriter{}, sampleBox())
	if !errors.Is(err, io.ErrClosedPipe) {
		t.Fatalf("expected io.ErrClosedPipe, got %v", err)
	}
}

func TestWriteBoxAppendsToExistingBuffer(t *testing.T) {
	bw := NewWriter([]byte{0xAA, 0xBB})
	if err := sampleBox().WriteBox(bw); err != nil {
		t.Fatal(err)
	}
	got := bw.Bytes()
	if !bytes.Equal(got[:2], []byte{0xAA, 0xBB}) || !bytes.Equal(got[2:], sampleBoxBytes) {
		t.Fatalf("got % x", got)
	}
}

func TestAddReference(t *testing.T) {
	box := NewItemReferenceBox()
	box.AddReference(NewReference(RefThumbnail, 7))
	box.AddReference(NewReference(RefDerivedImage, 1, 2, 3))
	box.AddReference(NewReference(RefDerivedImage, 1, 4))
	if box.Len() != 2 {
		t.Fatalf("Len = %d, want 2", box.Len())
	}
	refs := box.References()
	if refs[0].Len() != 0 || !slices.Equal(refs[1].ToItemIDs(), []uint32{2, 3, 4}) {
		t.Fatalf("got %v", refs)
	}

	data, err := box.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	back, err := Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if back.References()[0].Len() != 0 || back.References()[0].FromItemID() != 7 {
		t.Fatalf("empty reference lost: %v", back.References())
	}
}
