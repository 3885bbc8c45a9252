package dtree

import (
	"fmt"
)

// Policy decides how a supply of items arriving at a node is divided between
// the node itself and its children. It is fixed at creation.
type Policy struct {
	// ParentParticipates is false for interior nodes that only redistribute.
	ParentParticipates bool

	FirstFraction float64
	RestFraction  float64

	// ChildFractions[i] is child i's multiplier over TotalChildWeight.
	ChildFractions   []float64
	TotalChildWeight float64

	MinDistribUnit int16
	NodeMultiplier float64
}

// Split is the outcome of applying a Policy to a supply.
type Split struct {
	Local  int64
	Shares []int64
}

// Total is the size of the supply the split came from.
func (s Split) Total() int64 {
	total := s.Local
	for _, sh := range s.Shares {
		total += sh
	}
	return total
}

// newPolicy builds the policy of the node described by topo. multipliers
// holds the advertised multiplier of every rank in the group.
func newPolicy(opts *Options, topo Topology, multipliers []float64) Policy {
	p := Policy{
		ParentParticipates: opts.ParentsWork || !topo.IsParent(),
		FirstFraction:      opts.FirstFraction,
		RestFraction:       opts.RestFraction,
		MinDistribUnit:     opts.MinDistribUnit,
		NodeMultiplier:     multipliers[topo.Rank],
	}
	for _, c := range topo.Children {
		p.TotalChildWeight += multipliers[c]
	}
	for _, c := range topo.Children {
		p.ChildFractions = append(p.ChildFractions, multipliers[c]/p.TotalChildWeight)
	}
	return p
}

// Split divides a supply of s items:
//
//	local      = max(min, floor(s*first)), capped at s (0 if the node only redistributes)
//	forwardable = s - local
//	share_i    = floor(forwardable * childFraction_i * rest)
//
// A share under the minimum unit is carried into the next child, so small
// remainders collect in the last child rather than fragmenting; if even the
// last child's share is under the minimum it stays local, as does every
// rounding remainder. Local + sum(Shares) == s always holds.
func (p Policy) Split(s int64) Split {
	sp := Split{Shares: make([]int64, len(p.ChildFractions))}
	if s <= 0 {
		return sp
	}
	n := len(sp.Shares)
	min := int64(p.MinDistribUnit)
	if n == 0 || s < min {
		sp.Local = s
		return sp
	}

	var local int64
	if p.ParentParticipates {
		local = portion(s, p.FirstFraction)
		if local < min {
			local = min
		}
		if local > s {
			local = s
		}
	}
	forwardable := s - local

	// Fractions that sum past 1.0 by float error must not hand out more
	// than the forwardable pool, so each share is capped by what is left.
	var carry, given int64
	for i, f := range p.ChildFractions {
		share := portion(forwardable, f*p.RestFraction)
		if left := forwardable - given - carry; share > left {
			share = left
		}
		share += carry
		carry = 0
		if share < min && i < n-1 {
			carry, share = share, 0
		}
		sp.Shares[i] = share
		given += share
	}
	if last := sp.Shares[n-1]; last > 0 && last < min {
		sp.Shares[n-1] = 0
		given -= last
	}
	sp.Local = s - given
	return sp
}

// portion is floor(x*f) clamped to [0, x]. The clamp keeps products that
// round up past the largest int64 from wrapping.
func portion(x int64, f float64) int64 {
	v := float64(x) * f
	if !(v > 0) {
		return 0
	}
	if v >= float64(x) {
		return x
	}
	return int64(v)
}

// shareFor is the number of items to carve for child i out of a remaining
// range of rem items. A requesting child always gets at least the minimum
// unit while items remain, so it is never told the range is empty when it
// is not.
func (p Policy) shareFor(i int, rem int64) int64 {
	if rem <= 0 {
		return 0
	}
	share := p.Split(rem).Shares[i]
	return p.atLeastUnit(share, rem)
}

func (p Policy) atLeastUnit(share, rem int64) int64 {
	floor := int64(p.MinDistribUnit)
	if floor < 1 {
		floor = 1
	}
	if share < floor {
		share = floor
	}
	if share > rem {
		share = rem
	}
	return share
}

func (p Policy) String() string {
	return fmt.Sprintf("participates:%t first:%v rest:%v min:%d mul:%v children:%v",
		p.ParentParticipates, p.FirstFraction, p.RestFraction, p.MinDistribUnit,
		p.NodeMultiplier, p.ChildFractions)
}

// InitialRange is the block of [0, N) that rank owns at creation. Every rank
// replays the root's split down its own path, so all ranks agree on the
// allocation without exchanging messages. Blocks are laid out in pre-order:
// a node's local part first, then each child's subtree in rank order.
func InitialRange(opts *Options, topo Topology, multipliers []float64) (first, last int64) {
	start, supply := int64(0), opts.NumWorkItems
	path := topo.Path()
	for depth, rank := range path {
		at := topo.At(rank)
		sp := newPolicy(opts, at, multipliers).Split(supply)
		if depth == len(path)-1 {
			return start, start + sp.Local
		}
		next := at.ChildIndex(path[depth+1])
		start += sp.Local
		for i := 0; i < next; i++ {
			start += sp.Shares[i]
		}
		supply = sp.Shares[next]
	}
	return 0, 0
}
