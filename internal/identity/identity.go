package identity

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// Generator produces unique identifiers, account numbers and referral codes
type Generator struct{}

// New creates a new identifier generator
func New() *Generator {
	return &Generator{}
}

// NewID returns a new unique entity identifier
func (g *Generator) NewID() uuid.UUID {
	return uuid.New()
}

// AccountNumber returns a random 10-digit account number
func (g *Generator) AccountNumber() string {
	// 1000000000..9999999999
	n, err := rand.Int(rand.Reader, big.NewInt(9_000_000_000))
	if err != nil {
		// crypto/rand only fails if the platform source is broken
		panic(err)
	}
	return n.Add(n, big.NewInt(1_000_000_000)).String()
}

// ReferralCode derives a shareable referral code from the user's name:
// a slugified prefix plus a random suffix. Codes resolve purely by
// equality against User.ReferralCode, so the format carries no meaning.
func (g *Generator) ReferralCode(name string) string {
	prefix := slug.Make(name)
	if len(prefix) > 12 {
		prefix = prefix[:12]
	}
	if prefix == "" {
		prefix = "user"
	}

	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return prefix + "-" + hex.EncodeToString(buf)
}
