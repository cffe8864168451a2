package keystore

import (
	"encoding/hex"
	"strings"
)

// encodeHex renders b as lowercase hex with a "0x" prefix, the wire format
// every field in a keystore v3 JSON document uses.
func encodeHex(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

// decodeHex accepts a hex string with or without a "0x"/"0X" prefix.
func decodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return hex.DecodeString(s)
}
