package verify_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickify/ticketing/internal/verify"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	codec := verify.NewCodec("https://tickify.app")

	payload := codec.Encode("bk_123")
	assert.Equal(t, "https://tickify.app/verify/bk_123", payload)

	id, err := verify.Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, "bk_123", id)
}

func TestDecode_URLWithTrailingParts(t *testing.T) {
	for payload, want := range map[string]string{
		"https://tickify.app/verify/bk_1/extra":    "bk_1",
		"https://tickify.app/verify/bk_2?src=mail": "bk_2",
		"https://tickify.app/verify/bk_3#frag":     "bk_3",
	} {
		id, err := verify.Decode(payload)
		require.NoError(t, err, payload)
		assert.Equal(t, want, id)
	}
}

func TestDecode_LegacyForms(t *testing.T) {
	id, err := verify.Decode("TICKIFY_VERIFY:bk_42")
	require.NoError(t, err)
	assert.Equal(t, "bk_42", id)

	id, err = verify.Decode("BOOKING:bk_43")
	require.NoError(t, err)
	assert.Equal(t, "bk_43", id)
}

func TestDecode_GarbagePassthrough(t *testing.T) {
	// Unrecognized input decodes to itself so the caller can treat it as a
	// manually typed reference.
	id, err := verify.Decode("garbage-string-123")
	assert.ErrorIs(t, err, verify.ErrUnrecognizedPayload)
	assert.Equal(t, "garbage-string-123", id)
}

func TestDecode_EmptyIDAfterMarker(t *testing.T) {
	_, err := verify.Decode("https://tickify.app/verify/")
	assert.ErrorIs(t, err, verify.ErrUnrecognizedPayload)
}

func TestRenderQR_ProducesPNG(t *testing.T) {
	codec := verify.NewCodec("https://tickify.app")

	png, err := codec.RenderQR("bk_123")
	require.NoError(t, err)
	require.NotEmpty(t, png)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}
