package codec

import (
	"bytes"
	"compress/zlib"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/shared"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	values := []any{
		map[string]any{"entries": []any{map[string]any{"order": float64(1), "lessonTemplateId": "lt-1"}}},
		[]any{"o1", "o2", "o3"},
		map[string]any{"nested": map[string]any{"deep": []any{float64(1), float64(2)}}},
		"just a string",
		float64(42),
	}

	for _, v := range values {
		encoded, err := Encode(v)
		require.NoError(t, err)
		assert.True(t, len(encoded) > len(TagGzip))

		decoded, err := Decode(encoded)
		require.NoError(t, err)
		assert.Equal(t, v, decoded)
	}
}

func TestDecodePlainJSON(t *testing.T) {
	decoded, err := Decode(`{"order":1,"lessonTemplateId":"lt-1"}`)
	require.NoError(t, err)

	m, ok := decoded.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "lt-1", m["lessonTemplateId"])
}

func TestDecodeForeignRawBase64(t *testing.T) {
	// a producer in another runtime wrote base64(zlib(JSON)) with no tag
	raw := []byte(`["o1","o2"]`)
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	_, err := zw.Write(raw)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	foreign := base64.StdEncoding.EncodeToString(buf.Bytes())
	decoded, err := Decode(foreign)
	require.NoError(t, err)
	assert.Equal(t, []any{"o1", "o2"}, decoded)
}

func TestDecodePassthrough(t *testing.T) {
	parsed := map[string]any{"already": "parsed"}
	decoded, err := Decode(parsed)
	require.NoError(t, err)
	assert.Equal(t, parsed, decoded)
}

func TestDecodeBytes(t *testing.T) {
	decoded, err := Decode([]byte(`[1,2,3]`))
	require.NoError(t, err)
	assert.Equal(t, []any{float64(1), float64(2), float64(3)}, decoded)
}

func TestDecodeGarbageFails(t *testing.T) {
	_, err := Decode("not json, not base64!!!")
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrDecompression)

	var de *DecompressionError
	require.ErrorAs(t, err, &de)
	assert.NotEmpty(t, de.Preview)
}

func TestDecompressionErrorPreviewTruncated(t *testing.T) {
	long := "!!!" + string(bytes.Repeat([]byte("x"), 500))
	_, err := Decode(long)
	require.Error(t, err)

	var de *DecompressionError
	require.ErrorAs(t, err, &de)
	assert.LessOrEqual(t, len(de.Preview), 64)
}

func TestDecodeCorruptTaggedPayload(t *testing.T) {
	_, err := Decode(TagGzip + "@@not-base64@@")
	assert.ErrorIs(t, err, shared.ErrDecompression)

	// valid base64 but not gzip
	_, err = Decode(TagGzip + base64.StdEncoding.EncodeToString([]byte("nope")))
	assert.ErrorIs(t, err, shared.ErrDecompression)
}

func TestDecodeInto(t *testing.T) {
	type entry struct {
		Order            int    `json:"order"`
		LessonTemplateID string `json:"lessonTemplateId"`
	}

	encoded, err := Encode([]entry{{Order: 1, LessonTemplateID: "lt-1"}})
	require.NoError(t, err)

	var got []entry
	require.NoError(t, DecodeInto(encoded, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "lt-1", got[0].LessonTemplateID)

	// already-parsed input is reshaped through JSON
	var fromParsed []entry
	parsed := []any{map[string]any{"order": float64(2), "lessonTemplateId": "lt-2"}}
	require.NoError(t, DecodeInto(parsed, &fromParsed))
	assert.Equal(t, 2, fromParsed[0].Order)
}

func TestBlobRef(t *testing.T) {
	ref := BlobRef("file-123")
	assert.Equal(t, "blob:file-123", ref)

	id, ok := ParseBlobRef(ref)
	assert.True(t, ok)
	assert.Equal(t, "file-123", id)

	_, ok = ParseBlobRef("gz64:abcd")
	assert.False(t, ok)
	_, ok = ParseBlobRef("blob:")
	assert.False(t, ok)
}

type fakeFileStore struct {
	blobs map[string][]byte
	err   error
}

func (f *fakeFileStore) Fetch(_ context.Context, id string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	b, ok := f.blobs[id]
	if !ok {
		return nil, shared.ErrObjectNotFound
	}
	return b, nil
}

func TestDecodeRef(t *testing.T) {
	payload, err := Encode(map[string]any{"big": "document"})
	require.NoError(t, err)

	store := &fakeFileStore{blobs: map[string][]byte{"file-1": []byte(payload)}}

	t.Run("resolves blob marker through the store", func(t *testing.T) {
		decoded, err := DecodeRef(context.Background(), BlobRef("file-1"), store)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"big": "document"}, decoded)
	})

	t.Run("inline payloads skip the store", func(t *testing.T) {
		decoded, err := DecodeRef(context.Background(), `{"inline":true}`, store)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"inline": true}, decoded)
	})

	t.Run("store failure propagates", func(t *testing.T) {
		broken := &fakeFileStore{err: errors.New("connection refused")}
		_, err := DecodeRef(context.Background(), BlobRef("file-1"), broken)
		assert.Error(t, err)
	})

	t.Run("missing blob surfaces not found", func(t *testing.T) {
		_, err := DecodeRef(context.Background(), BlobRef("absent"), store)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestEncodeProducesCompactPayloadForRepetitiveData(t *testing.T) {
	entries := make([]map[string]any, 200)
	for i := range entries {
		entries[i] = map[string]any{"order": i + 1, "lessonTemplateId": "lesson-template-id"}
	}
	raw, err := json.Marshal(entries)
	require.NoError(t, err)

	encoded, err := Encode(entries)
	require.NoError(t, err)
	assert.Less(t, len(encoded), len(raw))
}
