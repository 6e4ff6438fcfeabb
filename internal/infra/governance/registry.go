package governance

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/tutu-network/multisig/internal/domain"
)

// Registry is the immutable principal → weight mapping fixed at construction.
type Registry struct {
	weights map[string]uint64
	sorted  []domain.Voter // by address, for paginated listing
	total   uint64
}

// NewRegistry validates voters and freezes them.
// An empty registry, a blank or duplicate address, or a zero total weight
// is an invalid configuration.
func NewRegistry(voters []domain.Voter) (*Registry, error) {
	if len(voters) == 0 {
		return nil, fmt.Errorf("%w: no voters", domain.ErrInvalidConfiguration)
	}
	if blank := lo.Filter(voters, func(v domain.Voter, _ int) bool { return strings.TrimSpace(v.Addr) == "" }); len(blank) > 0 {
		return nil, fmt.Errorf("%w: voter address is empty", domain.ErrInvalidConfiguration)
	}
	if dups := lo.FindDuplicatesBy(voters, func(v domain.Voter) string { return v.Addr }); len(dups) > 0 {
		return nil, fmt.Errorf("%w: duplicate voter %q", domain.ErrInvalidConfiguration, dups[0].Addr)
	}

	r := &Registry{
		weights: make(map[string]uint64, len(voters)),
		sorted:  make([]domain.Voter, len(voters)),
	}
	copy(r.sorted, voters)
	sort.Slice(r.sorted, func(i, j int) bool { return r.sorted[i].Addr < r.sorted[j].Addr })

	for _, v := range r.sorted {
		// Weights are persisted as SQLite INTEGER (int64).
		if v.Weight > math.MaxInt64-r.total {
			return nil, fmt.Errorf("%w: total weight overflows", domain.ErrInvalidConfiguration)
		}
		r.total += v.Weight
		r.weights[v.Addr] = v.Weight
	}
	if r.total == 0 {
		return nil, fmt.Errorf("%w: total voter weight is zero", domain.ErrInvalidConfiguration)
	}
	return r, nil
}

// Weight returns a voter's weight and whether the address is registered.
func (r *Registry) Weight(addr string) (uint64, bool) {
	w, ok := r.weights[addr]
	return w, ok
}

// TotalWeight is the denominator of every threshold comparison.
func (r *Registry) TotalWeight() uint64 { return r.total }

// Len returns the number of voters.
func (r *Registry) Len() int { return len(r.sorted) }

// Voters returns up to limit voters with address > startAfter, ascending.
func (r *Registry) Voters(startAfter string, limit int) []domain.Voter {
	start := sort.Search(len(r.sorted), func(i int) bool { return r.sorted[i].Addr > startAfter })
	end := min(start+limit, len(r.sorted))
	out := make([]domain.Voter, end-start)
	copy(out, r.sorted[start:end])
	return out
}
