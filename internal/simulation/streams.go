package simulation

import (
	"encoding/binary"
	"math/rand/v2"

	"github.com/cespare/xxhash/v2"
)

// Streams derives independent random generators from a run seed.
// It holds no mutable state and is safe for concurrent use.
type Streams struct {
	seed uint64
}

// NewStreams creates the stream source of a run.
func NewStreams(seed uint64) *Streams {
	return &Streams{seed: seed}
}

// Seed returns the run seed.
func (s *Streams) Seed() uint64 {
	return s.seed
}

// For returns the generator of one user, activity and day. Equal arguments
// always yield generators producing equal sequences.
func (s *Streams) For(user, activity string, day int) *rand.Rand {
	return rand.New(rand.NewPCG(s.key(user, activity, int64(day)), s.seed))
}

// Named returns a generator for a purpose outside the daily schedule, such
// as resolving device bindings at load time.
func (s *Streams) Named(name string) *rand.Rand {
	return rand.New(rand.NewPCG(s.key(name, "", -1), s.seed))
}

func (s *Streams) key(user, activity string, day int64) uint64 {
	d := xxhash.New()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], s.seed)
	_, _ = d.Write(buf[:])
	_, _ = d.WriteString(user)
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(activity)
	_, _ = d.Write([]byte{0})
	binary.LittleEndian.PutUint64(buf[:], uint64(day))
	_, _ = d.Write(buf[:])
	return d.Sum64()
}
