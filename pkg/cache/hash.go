package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Hash returns the hex SHA-256 digest of data. Graph identities and file
// cache names both use it.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// hashKey builds "<kind>:<digest>" where digest covers the JSON encoding of
// parts. Every part must be JSON-encodable; floats are passed as bit patterns.
func hashKey(kind string, parts ...any) string {
	h := sha256.New()
	if err := json.NewEncoder(h).Encode(parts); err != nil {
		panic("cache: unencodable key part: " + err.Error())
	}
	return kind + ":" + hex.EncodeToString(h.Sum(nil))
}
