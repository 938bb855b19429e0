// Package selection implements C4, the account selection set: next()
// answers with an account that is not currently blocked, preferring a
// forwarding hint, else sampled from the account space with weight
// proportional to 2^(-backoff).
package selection

import (
	"bytes"
	"crypto/rand"
	"math"
	"sort"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/tolelom/latticenode/block"
)

// defaultBackoffExclusion bounds how many candidates random() draws
// before picking one, matching spec.md §4.4 ("BACKOFF_EXCLUSION (=16)").
// A tuning constant, not an invariant — config.Config can override it
// via NewSetWithExclusion.
const defaultBackoffExclusion = 16

// Set tracks which accounts ascending.Attempt should pull next.
// forwarding and blocking use golang-set since membership, not order, is
// all either needs; backoff keeps a sorted key slice alongside its map
// (the same "map plus a parallel ordered slice" shape the teacher's
// Mempool uses for deterministic iteration) so random() can binary-search
// a lower_bound the way spec.md describes.
type Set struct {
	mu sync.Mutex

	forwarding mapset.Set[block.Account]
	blocking   mapset.Set[block.Account]

	backoff          map[block.Account]float64
	sorted           []block.Account // kept sorted ascending by account bytes
	backoffExclusion int
}

// NewSet returns an empty selection set using spec.md's default
// BACKOFF_EXCLUSION of 16.
func NewSet() *Set {
	return NewSetWithExclusion(defaultBackoffExclusion)
}

// NewSetWithExclusion returns an empty selection set that draws up to n
// candidates per random() call. n <= 0 falls back to the default.
func NewSetWithExclusion(n int) *Set {
	if n <= 0 {
		n = defaultBackoffExclusion
	}
	return &Set{
		forwarding:       mapset.NewSet[block.Account](),
		blocking:         mapset.NewSet[block.Account](),
		backoff:          make(map[block.Account]float64),
		backoffExclusion: n,
	}
}

func acctLess(a, b block.Account) bool { return bytes.Compare(a[:], b[:]) < 0 }

// insertSorted adds a to the sorted key slice if not already present.
// Callers hold mu.
func (s *Set) insertSorted(a block.Account) {
	i := sort.Search(len(s.sorted), func(i int) bool { return !acctLess(s.sorted[i], a) })
	if i < len(s.sorted) && s.sorted[i] == a {
		return
	}
	s.sorted = append(s.sorted, block.Account{})
	copy(s.sorted[i+1:], s.sorted[i:])
	s.sorted[i] = a
}

// removeSorted deletes a from the sorted key slice if present. Callers
// hold mu.
func (s *Set) removeSorted(a block.Account) {
	i := sort.Search(len(s.sorted), func(i int) bool { return !acctLess(s.sorted[i], a) })
	if i < len(s.sorted) && s.sorted[i] == a {
		s.sorted = append(s.sorted[:i], s.sorted[i+1:]...)
	}
}

// Size returns the number of accounts currently eligible for random()
// selection (excludes blocked accounts). For observability only.
func (s *Set) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sorted)
}

// Unblock makes a eligible for selection again, resetting its backoff.
func (s *Set) Unblock(a block.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocking.Remove(a)
	s.backoff[a] = 0
	s.insertSorted(a)
}

// Block removes a from consideration entirely: ascending has decided
// this account should not be requested again (for now).
func (s *Set) Block(a block.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.backoff, a)
	s.removeSorted(a)
	s.forwarding.Remove(a)
	s.blocking.Add(a)
}

// Forward hints that a should be requested soon, unless it is blocked.
func (s *Set) Forward(a block.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.blocking.Contains(a) {
		s.forwarding.Add(a)
	}
}

// Next returns the next account to request: a forwarding hint if one is
// pending, otherwise a weighted-random pick from the backoff set.
func (s *Set) Next() (block.Account, bool) {
	s.mu.Lock()
	if s.forwarding.Cardinality() > 0 {
		a, ok := s.forwarding.Pop()
		s.mu.Unlock()
		return a, ok
	}
	s.mu.Unlock()
	return s.random()
}

type candidate struct {
	account block.Account
	weight  float64
}

// random implements spec.md §4.4's random(): draw uniform random account
// keys, resolving each to a lower_bound candidate (wrapping to the first
// entry on miss), until it holds min(backoffExclusion, pool size)
// distinct candidates; weight each candidate 2^(-backoff), and pick one
// via a weighted draw. The
// chosen account's backoff is incremented by one so it is less likely to
// be picked again immediately, spreading requests across the ledger.
func (s *Set) random() (block.Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.sorted) == 0 {
		return block.Account{}, false
	}

	n := s.backoffExclusion
	if n > len(s.sorted) {
		n = len(s.sorted)
	}

	seen := make(map[block.Account]bool, n)
	candidates := make([]candidate, 0, n)
	for len(candidates) < n {
		key := randomAccount()
		i := sort.Search(len(s.sorted), func(i int) bool { return !acctLess(s.sorted[i], key) })
		if i == len(s.sorted) {
			i = 0 // wrap to begin on miss
		}
		a := s.sorted[i]
		if seen[a] {
			continue
		}
		seen[a] = true
		candidates = append(candidates, candidate{account: a, weight: math.Exp2(-s.backoff[a])})
	}

	total := 0.0
	for _, c := range candidates {
		total += c.weight
	}
	target := total * randomFraction()
	var chosen block.Account
	for _, c := range candidates {
		target -= c.weight
		chosen = c.account
		if target <= 0 {
			break
		}
	}

	s.backoff[chosen]++
	return chosen, true
}

func randomAccount() block.Account {
	var a block.Account
	_, _ = rand.Read(a[:])
	return a
}

// randomFraction returns a uniform float64 in [0, 1).
func randomFraction() float64 {
	var buf [8]byte
	_, _ = rand.Read(buf[:])
	v := uint64(0)
	for _, b := range buf {
		v = v<<8 | uint64(b)
	}
	return float64(v>>11) / float64(1<<53)
}
