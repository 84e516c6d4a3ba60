// Package codec implements the tagged compression format used for oversized
// curriculum and lesson payloads.
//
// The canonical wire form is a short format tag followed by base64 of
// gzip-compressed UTF-8 JSON. Decode additionally tolerates two historical
// producers: a foreign encoder that wrote raw base64-compressed payloads with
// no tag, and legacy rows that stored plain JSON text. A separate marker form
// ("blob:<id>") points indirectly at an object-store file for payloads too
// large to inline.
package codec

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/shared"
)

// TagGzip prefixes this codec's canonical compressed form.
const TagGzip = "gz64:"

// blobPrefix marks an object-store indirection instead of an inline payload.
const blobPrefix = "blob:"

// previewLen bounds how much of an offending payload a DecompressionError
// carries for diagnostics.
const previewLen = 64

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

// DecompressionError reports a terminal decode failure with a truncated
// preview of the offending payload.
type DecompressionError struct {
	Reason  string
	Preview string
	Err     error
}

// Error implements the error interface.
func (e *DecompressionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("codec: %s (payload %q): %v", e.Reason, e.Preview, e.Err)
	}
	return fmt.Sprintf("codec: %s (payload %q)", e.Reason, e.Preview)
}

// Unwrap ties the error into the shared taxonomy so errors.Is matching on
// shared.ErrDecompression works across package boundaries.
func (e *DecompressionError) Unwrap() error {
	return shared.ErrDecompression
}

func newDecompressionError(reason, payload string, err error) *DecompressionError {
	preview := payload
	if len(preview) > previewLen {
		preview = preview[:previewLen]
	}
	return &DecompressionError{Reason: reason, Preview: preview, Err: err}
}

// ══════════════════════════════════════════════════════════════════════════════
// ENCODE
// ══════════════════════════════════════════════════════════════════════════════

// Encode serializes a value to the canonical tagged form: TagGzip followed by
// base64 of gzip-compressed JSON.
func Encode(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("codec: marshal: %w", err)
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return "", fmt.Errorf("codec: compress: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("codec: compress: %w", err)
	}

	return TagGzip + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// BlobRef builds the indirection marker for an object-store file id.
func BlobRef(fileID string) string {
	return blobPrefix + fileID
}

// ParseBlobRef extracts the file id from a blob marker. ok is false when the
// input is not a blob marker.
func ParseBlobRef(s string) (fileID string, ok bool) {
	if !strings.HasPrefix(s, blobPrefix) {
		return "", false
	}
	id := s[len(blobPrefix):]
	if id == "" {
		return "", false
	}
	return id, true
}

// ══════════════════════════════════════════════════════════════════════════════
// DECODE
// ══════════════════════════════════════════════════════════════════════════════

// Decode turns a stored payload back into a parsed value. Inputs may be the
// canonical tagged form, a foreign raw-base64 compressed form, plain JSON
// text, raw bytes of any of those, or an already-parsed structure, which
// passes through untouched. Blob markers are not resolved here; use DecodeRef.
func Decode(input any) (any, error) {
	raw, err := decodeToJSON(input)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		// passthrough
		return input, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, newDecompressionError("decoded payload is not valid JSON", string(raw), err)
	}
	return v, nil
}

// DecodeInto decodes a stored payload directly into target, which must be a
// pointer. Already-parsed structures are re-marshalled through JSON so the
// target shape applies either way.
func DecodeInto(input any, target any) error {
	raw, err := decodeToJSON(input)
	if err != nil {
		return err
	}
	if raw == nil {
		raw, err = json.Marshal(input)
		if err != nil {
			return fmt.Errorf("codec: marshal passthrough: %w", err)
		}
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return newDecompressionError("payload does not match target shape", string(raw), err)
	}
	return nil
}

// FileStore fetches blob-indirected payloads from the object store.
type FileStore interface {
	Fetch(ctx context.Context, fileID string) ([]byte, error)
}

// DecodeRef decodes like Decode but additionally resolves "blob:<id>"
// markers through the given store, then decodes the fetched bytes. One
// storage read per blob reference; everything else is a pure transform.
func DecodeRef(ctx context.Context, input any, store FileStore) (any, error) {
	if s, ok := asString(input); ok {
		if fileID, isBlob := ParseBlobRef(s); isBlob {
			if store == nil {
				return nil, newDecompressionError("blob reference with no object store configured", s, nil)
			}
			data, err := store.Fetch(ctx, fileID)
			if err != nil {
				return nil, fmt.Errorf("codec: fetch blob %s: %w", fileID, err)
			}
			return Decode(data)
		}
	}
	return Decode(input)
}

// ══════════════════════════════════════════════════════════════════════════════
// INTERNALS
// ══════════════════════════════════════════════════════════════════════════════

// decodeToJSON normalizes any supported input to raw JSON bytes. A nil result
// with nil error means the input is an already-parsed structure.
func decodeToJSON(input any) ([]byte, error) {
	s, ok := asString(input)
	if !ok {
		return nil, nil
	}

	// (a) explicit format tag
	if strings.HasPrefix(s, TagGzip) {
		return decodeTagged(s)
	}

	// (b) foreign producer: raw base64 of compressed bytes, no tag. The
	// shape check keeps obvious JSON out of this branch; a failed attempt
	// falls through to plain JSON.
	if looksLikeBase64(s) {
		if raw, err := decodeForeign(s); err == nil {
			return raw, nil
		}
	}

	// (c) plain JSON text
	if json.Valid([]byte(s)) {
		return []byte(s), nil
	}

	return nil, newDecompressionError("payload is neither tagged, compressed, nor valid JSON", s, nil)
}

func decodeTagged(s string) ([]byte, error) {
	b64 := s[len(TagGzip):]
	compressed, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, newDecompressionError("tagged payload is not valid base64", s, err)
	}
	raw, err := gunzip(compressed)
	if err != nil {
		return nil, newDecompressionError("tagged payload failed to decompress", s, err)
	}
	return raw, nil
}

// decodeForeign attempts the untagged compressed forms historical producers
// wrote: base64 of gzip or zlib bytes.
func decodeForeign(s string) ([]byte, error) {
	compressed, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if raw, err := gunzip(compressed); err == nil {
		return raw, nil
	}
	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, err
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("decompressed bytes are not JSON")
	}
	return raw, nil
}

func gunzip(compressed []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, err
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("decompressed bytes are not JSON")
	}
	return raw, nil
}

func asString(input any) (string, bool) {
	switch v := input.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	default:
		return "", false
	}
}

// looksLikeBase64 is the shape check guarding the foreign-producer branch:
// long enough, no JSON-looking leading character, and drawn entirely from
// the standard base64 alphabet.
func looksLikeBase64(s string) bool {
	if len(s) < 4 {
		return false
	}
	switch s[0] {
	case '{', '[', '"', '-', ' ', '\t', '\n':
		return false
	}
	if s[0] >= '0' && s[0] <= '9' {
		// could still be base64, but a leading digit is how bare JSON
		// numbers start; the plain-JSON branch handles those
		return false
	}
	switch s[0] {
	case 't', 'f', 'n':
		// true/false/null would also be swallowed; only reject the exact
		// literals, not every payload starting with these letters
		if s == "true" || s == "false" || s == "null" {
			return false
		}
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		case c == '+', c == '/', c == '=':
		default:
			return false
		}
	}
	return true
}
