package pack

import (
	"encoding/hex"
	"encoding/json"

	"github.com/zeebo/blake3"
)

// jsonMarshal is a variable to allow testing of marshal errors.
var jsonMarshal = json.Marshal

// HashBytes computes the BLAKE3 hash of bytes and returns it as a hex string.
// The document store uses this as the revision token for optimistic
// concurrency: a save must name the revision it was based on.
func HashBytes(data []byte) string {
	h := blake3.Sum256(data)
	return hex.EncodeToString(h[:])
}

// HashString computes the BLAKE3 hash of a string and returns it as a hex string.
func HashString(s string) string {
	return HashBytes([]byte(s))
}

// HashPack computes the BLAKE3 hash of a normalized Pack by serializing to
// JSON. Two packs with equal normalized forms hash equal regardless of the
// wire format they were decoded from.
func HashPack(p *Pack) (string, error) {
	data, err := jsonMarshal(p)
	if err != nil {
		return "", err
	}
	return HashBytes(data), nil
}
