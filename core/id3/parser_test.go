package id3

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rawFrame builds an ID3v2.3 frame with the given payload.
func rawFrame(id string, payload []byte) []byte {
	buf := make([]byte, 10+len(payload))
	copy(buf[0:4], id)
	binary.BigEndian.PutUint32(buf[4:8], uint32(len(payload)))
	copy(buf[10:], payload)
	return buf
}

// textFrameBytes builds an ISO-8859-1 text frame.
func textFrameBytes(id, text string) []byte {
	payload := append([]byte{0}, []byte(text)...)
	return rawFrame(id, payload)
}

// apicFrameBytes builds an APIC frame around the given picture bytes.
func apicFrameBytes(mime string, picture []byte) []byte {
	payload := []byte{0}
	payload = append(payload, []byte(mime)...)
	payload = append(payload, 0)    // mime terminator
	payload = append(payload, 3)    // picture type: front cover
	payload = append(payload, 0)    // empty description
	payload = append(payload, picture...)
	return rawFrame("APIC", payload)
}

// buildTag assembles an ID3v2.3 tag followed by fake audio data.
func buildTag(frames ...[]byte) []byte {
	var body []byte
	for _, f := range frames {
		body = append(body, f...)
	}

	size := len(body)
	tag := []byte{'I', 'D', '3', 3, 0, 0,
		byte(size >> 21 & 0x7F), byte(size >> 14 & 0x7F), byte(size >> 7 & 0x7F), byte(size & 0x7F)}
	tag = append(tag, body...)
	// Trailing bytes standing in for the audio stream.
	return append(tag, 0xFF, 0xFB, 0x90, 0x00)
}

func TestParseTextFrames(t *testing.T) {
	data := buildTag(
		textFrameBytes("TPE1", "Ada"),
		textFrameBytes("TIT2", "Loop"),
		textFrameBytes("TALB", "Signals"),
		textFrameBytes("TCON", "Electronic"),
		textFrameBytes("TLEN", "183000"),
	)

	meta, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "Ada", meta.Artist)
	assert.Equal(t, "Loop", meta.Title)
	assert.Equal(t, "Signals", meta.Album)
	assert.Equal(t, "Electronic", meta.Genre)
	assert.InDelta(t, 183.0, meta.Duration, 0.001)
	assert.Nil(t, meta.Image)
}

func TestParseUTF16Text(t *testing.T) {
	// "Läuft" as UTF-16LE with BOM, encoding byte 1.
	payload := []byte{1, 0xFF, 0xFE}
	for _, r := range "Läuft" {
		payload = append(payload, byte(r), byte(r>>8))
	}
	data := buildTag(rawFrame("TIT2", payload))

	meta, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "Läuft", meta.Title)
}

func TestParseEmbeddedImage(t *testing.T) {
	picture := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 1, 2, 3}
	data := buildTag(
		textFrameBytes("TIT2", "Cover Test"),
		apicFrameBytes("image/png", picture),
	)

	meta, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, picture, meta.Image)
}

func TestParseNoTag(t *testing.T) {
	// A plain MPEG frame header with no ID3 prefix: empty fields, no error.
	meta, err := Parse([]byte{0xFF, 0xFB, 0x90, 0x00, 0x12, 0x34})
	require.NoError(t, err)
	assert.Equal(t, &Metadata{}, meta)
}

func TestParseMalformed(t *testing.T) {
	cases := map[string][]byte{
		"empty buffer":     {},
		"truncated header": {'I', 'D', '3', 3, 0},
		"size past end":    {'I', 'D', '3', 3, 0, 0, 0, 0, 0x10, 0x00},
	}

	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(data)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestParseSkipsCorruptFrame(t *testing.T) {
	good := textFrameBytes("TPE1", "Ada")
	// Frame header whose declared size runs past the tag boundary.
	bad := make([]byte, 10)
	copy(bad[0:4], "TIT2")
	binary.BigEndian.PutUint32(bad[4:8], 0xFFFF)
	data := buildTag(good, bad)

	meta, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "Ada", meta.Artist)
	assert.Empty(t, meta.Title)
}

func TestParseIdempotent(t *testing.T) {
	data := buildTag(
		textFrameBytes("TPE1", "Ada"),
		textFrameBytes("TIT2", "Loop"),
		apicFrameBytes("image/jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0}),
	)

	first, err := Parse(data)
	require.NoError(t, err)
	second, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
