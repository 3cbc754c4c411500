// ABOUTME: Tests for ID3v2 tag detection
// ABOUTME: Covers syncsafe sizes, footers, short prefixes and non-tag data
package frame

import "testing"

// id3Header builds a v2.4 tag header for a body of n bytes
func id3Header(n int, flags byte) []byte {
	return []byte{'I', 'D', '3', 4, 0, flags,
		byte(n >> 21 & 0x7F), byte(n >> 14 & 0x7F), byte(n >> 7 & 0x7F), byte(n & 0x7F)}
}

func TestTagSize(t *testing.T) {
	tests := []struct {
		name     string
		buf      []byte
		size     int
		needMore bool
	}{
		{"empty", nil, 0, true},
		{"partial magic", []byte("ID"), 0, true},
		{"partial header", []byte("ID3\x04\x00"), 0, true},
		{"small tag", id3Header(100, 0), 110, false},
		{"syncsafe size", id3Header(200*1024, 0), 10 + 200*1024, false},
		{"footer", id3Header(100, 0x10), 120, false},
		{"mpeg frame", []byte{0xFF, 0xFB, 0x90, 0x04}, 0, false},
		{"other bytes", []byte("IDX3456789"), 0, false},
		{"size high bit set", []byte{'I', 'D', '3', 4, 0, 0, 0x80, 0, 0, 0}, 0, false},
		{"bad version", []byte{'I', 'D', '3', 0xFF, 0, 0, 0, 0, 0, 1}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			size, needMore := TagSize(tt.buf)
			if size != tt.size || needMore != tt.needMore {
				t.Errorf("expected (%d, %v), got (%d, %v)", tt.size, tt.needMore, size, needMore)
			}
		})
	}
}

func TestTagBodyIsNotScanned(t *testing.T) {
	// Cover art bytes inside the tag look like frame headers
	tag := append(id3Header(64, 0), make([]byte, 64)...)
	tag[40], tag[41] = 0xFF, 0xE3

	stream := append(tag, 0xFF, 0xFB, 0x90, 0x04, 0xFF, 0xFB, 0x90, 0x04)

	size, _ := TagSize(stream)
	front, _, ok := Split(stream[size:], MPEG)
	if !ok || len(front) != 4 {
		t.Fatalf("expected one whole frame after the tag, got %x (ok=%v)", front, ok)
	}

	if i, _ := LastBoundary(stream[:size], MPEG); i != 40 {
		t.Errorf("expected a false boundary inside the tag at 40, got %d", i)
	}
}
