package project

import (
	"crypto/sha256"
	"encoding/hex"
)

// Digest is a sha256 content hash used as a cache key.
type Digest [32]byte

// DigestBytes hashes raw content.
func DigestBytes(content []byte) Digest {
	return sha256.Sum256(content)
}

// Hex renders the digest for file names and logs.
func (d Digest) Hex() string {
	return hex.EncodeToString(d[:])
}
