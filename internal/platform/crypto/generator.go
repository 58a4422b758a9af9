// File: internal/platform/crypto/generator.go
package crypto

import (
	"crypto/rand"
	"math/big"
)

const documentIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// DocumentIDLength matches the auto ids generated by Firestore.
const DocumentIDLength = 20

// NewDocumentID returns a random 20 character alphanumeric id, the same shape
// Firestore uses for auto ids, so rows keep one id format across backends.
func NewDocumentID() (string, error) {
	max := big.NewInt(int64(len(documentIDAlphabet)))
	b := make([]byte, DocumentIDLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = documentIDAlphabet[n.Int64()]
	}
	return string(b), nil
}
