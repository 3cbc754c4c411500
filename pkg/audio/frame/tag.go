// ABOUTME: ID3v2 tag detection
// ABOUTME: Measures a metadata tag at the head of a stream so it is not scanned for frames
package frame

const (
	id3HeaderLen = 10
	id3FooterLen = 10
	id3Footer    = 0x10 // flags bit: footer present
)

var id3Magic = []byte("ID3")

// TagSize reports the length of an ID3v2 tag at the start of buf, header and
// footer included. Tag bodies often hold cover art whose bytes look like
// frame headers, so a scan must start after the tag.
//
// needMore is true when buf is a prefix of a tag header that is too short to
// measure. size is 0 when buf does not start with a tag.
func TagSize(buf []byte) (size int, needMore bool) {
	n := min(len(buf), len(id3Magic))
	for i := 0; i < n; i++ {
		if buf[i] != id3Magic[i] {
			return 0, false
		}
	}
	if len(buf) < id3HeaderLen {
		return 0, true
	}

	// Version bytes are never 0xFF and the size is four 7-bit bytes
	if buf[3] == 0xFF || buf[4] == 0xFF {
		return 0, false
	}
	body := 0
	for _, b := range buf[6:10] {
		if b&0x80 != 0 {
			return 0, false
		}
		body = body<<7 | int(b)
	}

	size = id3HeaderLen + body
	if buf[5]&id3Footer != 0 {
		size += id3FooterLen
	}
	return size, false
}
