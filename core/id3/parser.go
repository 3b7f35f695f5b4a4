package id3

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strconv"
	"unicode/utf16"
)

// Metadata is the structured result of reading the embedded tag of an audio
// buffer. Absent frames leave their field at the zero value; callers decide
// what placeholder to substitute.
type Metadata struct {
	Artist   string
	Title    string
	Album    string
	Genre    string
	Duration float64 // Seconds, 0 when unknown
	Image    []byte  // Raw embedded picture bytes, nil when absent
}

// ErrMalformed reports a buffer that cannot be read at all: empty, or an ID3
// header whose declared size runs past the end of the data.
var ErrMalformed = errors.New("id3: malformed or truncated buffer")

// header is a parsed ID3v2 tag header.
type header struct {
	version byte
	flags   byte
	size    uint32 // Tag size excluding the 10-byte header, synchsafe
}

// frame is a single ID3v2 frame.
type frame struct {
	id   string
	data []byte
}

// Parse reads the ID3v2 tag embedded in data and returns the extracted
// metadata. A buffer without a tag yields empty metadata, not an error;
// malformed individual frames are skipped. Only a buffer that cannot be read
// at all returns ErrMalformed. Parse performs no I/O and is idempotent.
func Parse(data []byte) (*Metadata, error) {
	if len(data) == 0 {
		return nil, ErrMalformed
	}

	meta := &Metadata{}

	if len(data) < 3 || string(data[0:3]) != "ID3" {
		// No tag present. Missing frames simply yield empty fields.
		return meta, nil
	}

	if len(data) < 10 {
		return nil, ErrMalformed
	}

	hdr := header{
		version: data[3],
		flags:   data[5],
		size:    decodeSynchsafe(data[6:10]),
	}

	tagEnd := 10 + int(hdr.size)
	if tagEnd > len(data) {
		return nil, ErrMalformed
	}

	// Only ID3v2.3 and ID3v2.4 frames are understood; anything else is
	// treated as an absent tag.
	if hdr.version != 3 && hdr.version != 4 {
		return meta, nil
	}

	offset := 10
	// Skip the extended header when present.
	if hdr.flags&0x40 != 0 && offset+4 <= tagEnd {
		extSize := int(binary.BigEndian.Uint32(data[offset : offset+4]))
		if hdr.version == 4 {
			extSize = int(decodeSynchsafe(data[offset : offset+4]))
		} else {
			extSize += 4
		}
		offset += extSize
	}

	for offset+10 <= tagEnd {
		// Padding marks the end of the frame area.
		if data[offset] == 0 {
			break
		}

		f, size, ok := readFrame(data, offset, tagEnd, hdr.version)
		if !ok {
			break
		}
		applyFrame(f, meta)
		offset += size
	}

	return meta, nil
}

// readFrame reads one frame header and its data. Returns ok=false when the
// frame runs past the tag boundary or carries a nonsense size.
func readFrame(data []byte, offset, tagEnd int, version byte) (frame, int, bool) {
	id := string(data[offset : offset+4])

	var size uint32
	if version == 4 {
		size = decodeSynchsafe(data[offset+4 : offset+8])
	} else {
		size = binary.BigEndian.Uint32(data[offset+4 : offset+8])
	}

	if size == 0 || offset+10+int(size) > tagEnd {
		return frame{}, 0, false
	}

	return frame{
		id:   id,
		data: data[offset+10 : offset+10+int(size)],
	}, 10 + int(size), true
}

// applyFrame maps a frame onto the metadata fields the pipeline cares about.
func applyFrame(f frame, meta *Metadata) {
	switch f.id {
	case "TIT2":
		meta.Title = textFrame(f.data)
	case "TPE1":
		meta.Artist = textFrame(f.data)
	case "TALB":
		meta.Album = textFrame(f.data)
	case "TCON":
		meta.Genre = textFrame(f.data)
	case "TLEN":
		// Track length in milliseconds.
		if ms, err := strconv.ParseFloat(textFrame(f.data), 64); err == nil && ms > 0 {
			meta.Duration = ms / 1000
		}
	case "APIC":
		if img := parseAPIC(f.data); img != nil {
			meta.Image = img
		}
	}
}

// textFrame decodes a standard text frame: [encoding byte][text].
func textFrame(data []byte) string {
	if len(data) < 2 {
		return ""
	}
	text := decodeText(data[1:], data[0])
	return trimNull(text)
}

func trimNull(s string) string {
	for len(s) > 0 && s[len(s)-1] == 0 {
		s = s[:len(s)-1]
	}
	return s
}

// parseAPIC extracts the raw picture bytes from an APIC frame:
// [encoding][mime\0][picture type][description\0][picture data].
// The image bytes are returned without format validation; the consumer
// validates before writing them anywhere.
func parseAPIC(data []byte) []byte {
	if len(data) < 4 {
		return nil
	}

	encoding := data[0]
	pos := 1

	// The MIME type field is always ISO-8859-1 regardless of the text encoding byte.
	mimeEnd := bytes.IndexByte(data[pos:], 0)
	if mimeEnd < 0 {
		return nil
	}
	pos += mimeEnd + 1

	if pos >= len(data) {
		return nil
	}
	pos++ // picture type byte

	descEnd := findNullTerminator(data[pos:], encoding)
	if descEnd >= 0 {
		pos += descEnd + terminatorSize(encoding)
	}

	if pos >= len(data) {
		return nil
	}
	return data[pos:]
}

// decodeSynchsafe decodes a synchsafe integer (7 bits per byte).
func decodeSynchsafe(b []byte) uint32 {
	if len(b) != 4 {
		return 0
	}
	return uint32(b[0]&0x7F)<<21 |
		uint32(b[1]&0x7F)<<14 |
		uint32(b[2]&0x7F)<<7 |
		uint32(b[3]&0x7F)
}

// decodeText decodes text based on the ID3v2 encoding byte.
func decodeText(data []byte, encoding byte) string {
	if len(data) == 0 {
		return ""
	}

	switch encoding {
	case 1: // UTF-16 with BOM
		return decodeUTF16(data)
	case 2: // UTF-16BE
		return decodeUTF16BE(data)
	default: // ISO-8859-1, UTF-8, or unknown
		return string(data)
	}
}

func decodeUTF16(data []byte) string {
	if len(data) < 2 {
		return ""
	}
	if data[0] == 0xFF && data[1] == 0xFE {
		return decodeUTF16LE(data[2:])
	}
	if data[0] == 0xFE && data[1] == 0xFF {
		return decodeUTF16BE(data[2:])
	}
	// No BOM - assume big-endian
	return decodeUTF16BE(data)
}

func decodeUTF16LE(data []byte) string {
	if len(data)%2 != 0 {
		data = data[:len(data)-1]
	}
	u16 := make([]uint16, len(data)/2)
	for i := range u16 {
		u16[i] = uint16(data[i*2]) | uint16(data[i*2+1])<<8
	}
	return string(utf16.Decode(u16))
}

func decodeUTF16BE(data []byte) string {
	if len(data)%2 != 0 {
		data = data[:len(data)-1]
	}
	u16 := make([]uint16, len(data)/2)
	for i := range u16 {
		u16[i] = uint16(data[i*2])<<8 | uint16(data[i*2+1])
	}
	return string(utf16.Decode(u16))
}

// findNullTerminator finds the null terminator for the given encoding.
func findNullTerminator(data []byte, encoding byte) int {
	switch encoding {
	case 1, 2: // UTF-16 uses a double-byte null
		for i := 0; i < len(data)-1; i += 2 {
			if data[i] == 0 && data[i+1] == 0 {
				return i
			}
		}
		return -1
	default:
		return bytes.IndexByte(data, 0)
	}
}

// terminatorSize returns the size of the null terminator for the encoding.
func terminatorSize(encoding byte) int {
	if encoding == 1 || encoding == 2 {
		return 2
	}
	return 1
}
