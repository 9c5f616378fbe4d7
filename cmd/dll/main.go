// Package main provides C-compatible exports for the iref library.
// Build with: go build -buildmode=c-shared -o iref.dll
package main

/*
#include <stdlib.h>
#include <stdint.h>

// Result structure for operations that return data
typedef struct {
    char* data;
    int   data_len;
    char* error;
} IrefResult;
*/
import "C"

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"unsafe"

	"github.com/logicossoftware/go-iref"
	"github.com/logicossoftware/go-iref/internal/compress"
	"github.com/logicossoftware/go-iref/internal/graphjson"
)

func main() {}

// IrefVersion returns the highest iref box version this library reads and writes.
//
//export IrefVersion
func IrefVersion() C.uint8_t {
	return C.uint8_t(iref.Wide.Version())
}

// IrefFreeResult frees memory allocated by other Iref functions.
// Must be called to avoid memory leaks.
//
//export IrefFreeResult
func IrefFreeResult(result C.IrefResult) {
	if result.data != nil {
		C.free(unsafe.Pointer(result.data))
	}
	if result.error != nil {
		C.free(unsafe.Pointer(result.error))
	}
}

// IrefFreeString frees a C string allocated by Go.
//
//export IrefFreeString
func IrefFreeString(s *C.char) {
	if s != nil {
		C.free(unsafe.Pointer(s))
	}
}

// makeResult creates a result with data.
func makeResult(data []byte) C.IrefResult {
	var result C.IrefResult
	if len(data) > 0 {
		result.data = (*C.char)(C.CBytes(data))
		result.data_len = C.int(len(data))
	}
	return result
}

// makeError creates a result with an error message.
func makeError(err error) C.IrefResult {
	var result C.IrefResult
	result.error = C.CString(err.Error())
	return result
}

// IrefEncode encodes an iref box from its JSON description.
// Parameters:
//   - graphJSON: JSON object with a "references" array of {type, from, to}
//   - wide: nonzero to always write 32-bit item ids (version 1)
//   - compression: output wrapping (0=None, 1=ZIP, 2=ZSTD, 3=LZ4, 4=Brotli, 5=XZ)
//
// Returns IrefResult with encoded data or error. Call IrefFreeResult when done.
//
//export IrefEncode
func IrefEncode(graphJSON *C.char, wide C.int, compression C.uint16_t) C.IrefResult {
	if graphJSON == nil {
		return makeError(errors.New("graph JSON is required"))
	}
	data, err := encode(C.GoString(graphJSON), wide != 0, compress.Compression(compression))
	if err != nil {
		return makeError(err)
	}
	return makeResult(data)
}

func encode(graphJSON string, wide bool, comp compress.Compression) ([]byte, error) {
	g, err := graphjson.Read(strings.NewReader(graphJSON))
	if err != nil {
		return nil, err
	}
	box, err := g.Box()
	if err != nil {
		return nil, err
	}
	var opts []iref.WriteOption
	if wide {
		opts = append(opts, iref.WithMinIDWidth(iref.Wide))
	}
	var buf bytes.Buffer
	if err := iref.Encode(&buf, box, opts...); err != nil {
		return nil, err
	}
	return compress.Compress(comp, buf.Bytes())
}

// IrefDecode decodes an iref box and returns its JSON description.
// Parameters:
//   - data: pointer to box bytes, raw or wrapped in a detectable compression
//   - dataLen: length of the data
//
// Returns IrefResult with a JSON string or error. Call IrefFreeResult when done.
// The JSON object contains: version, width, size, blake3, references.
//
//export IrefDecode
func IrefDecode(data *C.char, dataLen C.int) C.IrefResult {
	out, err := decode(C.GoBytes(unsafe.Pointer(data), dataLen))
	if err != nil {
		return makeError(err)
	}
	return makeResult(out)
}

func decode(data []byte) ([]byte, error) {
	raw, err := compress.Decompress(compress.Detect(data), data, iref.DefaultLimits().MaxBoxSize)
	if err != nil {
		return nil, err
	}
	g, _, err := graphjson.Describe(raw)
	if err != nil {
		return nil, err
	}
	return json.Marshal(g)
}

// IrefReferencesOfType returns the references of one type as a JSON array.
// Parameters:
//   - data: pointer to box bytes
//   - dataLen: length of the data
//   - refType: four-character reference type, e.g. "dimg"
//
// Returns IrefResult with JSON or error. Call IrefFreeResult when done.
//
//export IrefReferencesOfType
func IrefReferencesOfType(data *C.char, dataLen C.int, refType *C.char) C.IrefResult {
	out, err := referencesOfType(C.GoBytes(unsafe.Pointer(data), dataLen), C.GoString(refType))
	if err != nil {
		return makeError(err)
	}
	return makeResult(out)
}

func referencesOfType(data []byte, refType string) ([]byte, error) {
	typ, err := iref.ParseFourCC(refType)
	if err != nil {
		return nil, err
	}
	box, err := iref.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	refs := []graphjson.Reference{}
	for _, r := range box.ReferencesOfType(typ) {
		refs = append(refs, graphjson.Reference{Type: r.Type().String(), From: r.FromItemID(), To: r.ToItemIDs()})
	}
	return json.Marshal(refs)
}

// IrefValidate checks that data holds exactly one well-formed iref box.
// Returns NULL on success, or an error message string on failure.
// Call IrefFreeString on the result if non-NULL.
//
//export IrefValidate
func IrefValidate(data *C.char, dataLen C.int, strict C.int) *C.char {
	goData := C.GoBytes(unsafe.Pointer(data), dataLen)
	if err := validate(goData, strict != 0); err != nil {
		return C.CString(err.Error())
	}
	return nil
}

func validate(data []byte, strict bool) error {
	box := iref.NewItemReferenceBox()
	br := iref.NewReader(data)
	if err := box.ParseBox(br, iref.WithStrictTypes(strict)); err != nil {
		return err
	}
	if n := br.Remaining(); n != 0 {
		return errors.New("trailing bytes after iref box")
	}
	return nil
}

// IrefGetReferenceCount returns the number of reference boxes in an iref box.
// Returns -1 on error.
//
//export IrefGetReferenceCount
func IrefGetReferenceCount(data *C.char, dataLen C.int) C.int {
	goData := C.GoBytes(unsafe.Pointer(data), dataLen)
	box, err := iref.Decode(bytes.NewReader(goData))
	if err != nil {
		return -1
	}
	return C.int(box.Len())
}
