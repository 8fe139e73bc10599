package crawl

import (
	"crypto/sha256"
	"encoding/hex"
)

// contentHash returns the hex sha256 of content, the hash stored on library
// files for change detection.
func contentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
