package orbit

import (
	"crypto/rand"
	"math/big"
)

const (
	minGeneratedChainID = 1_000_000_000
	maxGeneratedChainID = 9_999_999_999
)

// GenerateChainID returns a random chain ID in a range unlikely to collide
// with registered chains.
func GenerateChainID() uint64 {
	span := big.NewInt(maxGeneratedChainID - minGeneratedChainID + 1)
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		panic("crypto/rand unavailable: " + err.Error())
	}
	return uint64(minGeneratedChainID) + n.Uint64()
}
