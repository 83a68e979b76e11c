// Package checksum computes file digests for SPDX records. SHA-1 is
// mandatory for every file; the remaining algorithms are behind a fixed
// allow-list and computed only on demand.
package checksum

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"slices"
	"sync"

	"golang.org/x/crypto/md4"
)

// SHA1Algorithm is the mandatory file checksum algorithm. It is not part of
// the optional allow-list.
const SHA1Algorithm = "SHA-1"

// Algorithms is the allow-list of optional checksum algorithms. Names are
// case-sensitive literals.
var Algorithms = []string{"SHA-224", "SHA-256", "SHA-384", "SHA-512", "MD2", "MD4", "MD5", "MD6"}

var (
	// ErrUnsupported marks a requested algorithm outside the allow-list.
	ErrUnsupported = errors.New("algorithm is not supported for creating file checksums")
	// ErrUnavailable marks an allow-listed algorithm with no implementation
	// in this runtime (MD2 and MD6 have none in Go).
	ErrUnavailable = errors.New("no implementation available for digest algorithm")
)

var registry = map[string]func() hash.Hash{}

func register(name string, fn func() hash.Hash) {
	registry[name] = fn
}

func init() {
	register(SHA1Algorithm, sha1.New)
	register("SHA-224", sha256.New224)
	register("SHA-256", sha256.New)
	register("SHA-384", sha512.New384)
	register("SHA-512", sha512.New)
	register("MD4", md4.New)
	register("MD5", md5.New)
}

const digestBufferSize = 32 * 1024

var digestBufferPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, digestBufferSize)
		return &buf
	},
}

// SHA1Hex returns the SHA-1 digest of the file as 40 lowercase hex characters.
func SHA1Hex(path string) (string, error) {
	return digestFile(path, SHA1Algorithm, sha1.New())
}

// OptionalHex computes one of the allow-listed optional checksums. The
// allow-list is checked before any file I/O.
func OptionalHex(path, algorithm string) (string, error) {
	if !slices.Contains(Algorithms, algorithm) {
		return "", fmt.Errorf("%s: %w", algorithm, ErrUnsupported)
	}
	fn, ok := registry[algorithm]
	if !ok {
		return "", fmt.Errorf("%s: %w", algorithm, ErrUnavailable)
	}
	return digestFile(path, algorithm, fn())
}

// HexString renders a raw digest as lowercase hex.
func HexString(sum []byte) string {
	return hex.EncodeToString(sum)
}

func digestFile(path, algorithm string, h hash.Hash) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("IO error while calculating the %s checksum: %w", algorithm, err)
	}
	defer f.Close()

	bufPtr := digestBufferPool.Get().(*[]byte)
	defer digestBufferPool.Put(bufPtr)
	buf := *bufPtr
	for {
		n, readErr := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return "", fmt.Errorf("IO error while calculating the %s checksum: %w", algorithm, readErr)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
