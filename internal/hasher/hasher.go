package hasher

import (
	"encoding/binary"
	"encoding/hex"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// ContentHash returns the hex xxHash64 of data, truncated to hexLen chars
// when 0 < hexLen < 16. Output files are named by the first 8.
func ContentHash(data []byte, hexLen int) string {
	full := hex.EncodeToString(binary.BigEndian.AppendUint64(nil, xxhash.Sum64(data)))
	if hexLen > 0 && hexLen < len(full) {
		return full[:hexLen]
	}
	return full
}

// ETag returns a strong HTTP entity tag for an encoded body.
func ETag(data []byte) string {
	return strconv.Quote(ContentHash(data, 0))
}
