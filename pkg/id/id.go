// Package id mints time-sortable identifiers for orders and trades.
package id

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator mints ULIDs from a single monotonic entropy source, so IDs
// created in the same millisecond still sort in creation order. That
// ordering is what lets the journal break ties on primary key.
type Generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func NewGenerator() *Generator {
	var seed int64
	_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{
		entropy: ulid.Monotonic(rand.New(rand.NewSource(seed)), 0),
	}
}

// New returns a fresh ULID string.
func (g *Generator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	v, err := ulid.New(ulid.Timestamp(time.Now().UTC()), g.entropy)
	if err != nil {
		// Only possible if the clock goes backwards past the ULID epoch
		// or entropy is exhausted.
		panic(err)
	}
	return v.String()
}

var defaultGenerator = NewGenerator()

// New mints an ID from the process-wide generator.
func New() string { return defaultGenerator.New() }
