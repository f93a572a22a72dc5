package draft

import (
	"crypto/rand"
	"math/big"
)

const inviteCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const inviteLength = 8

// GenerateCode returns a random invite token.
func GenerateCode() (string, error) {
	code := make([]byte, inviteLength)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(inviteCharset))))
		if err != nil {
			return "", err
		}
		code[i] = inviteCharset[num.Int64()]
	}
	return string(code), nil
}
