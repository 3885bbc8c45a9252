package dtree

import (
	"fmt"
)

// NoParent is the Parent of the root.
const NoParent = -1

// Topology is one rank's place in the scheduling tree. Ranks are laid out
// breadth first: with fan-out F, rank r's children are r*F+1 .. r*F+F.
//
//	F=2, size 7:      0
//	                1   2
//	               3 4 5 6
type Topology struct {
	Rank     int
	Size     int
	FanOut   int
	Parent   int
	Children []int

	// Level is the depth of Rank, the root being level 0. NumLevels is the
	// level of the last rank, i.e. the height of the tree.
	Level     int8
	NumLevels int8
}

// NewTopology computes rank's parent, children and depth in a group of size
// ranks. When canParent is false the tree is flattened so rank 0 is the only
// interior node.
func NewTopology(fanOut, size, rank int, canParent bool) (Topology, error) {
	if size < 1 {
		return Topology{}, newError(ConfigurationError, "group size %d must be at least 1", size)
	}
	if fanOut < 1 {
		return Topology{}, newError(ConfigurationError, "fan-out %d must be at least 1", fanOut)
	}
	if rank < 0 || rank >= size {
		return Topology{}, newError(ConfigurationError, "rank %d outside group of size %d", rank, size)
	}
	if !canParent && size > 1 {
		fanOut = size - 1
	}

	t := Topology{
		Rank:      rank,
		Size:      size,
		FanOut:    fanOut,
		Parent:    parentOf(fanOut, rank),
		Children:  childrenOf(fanOut, size, rank),
		Level:     levelOf(fanOut, rank),
		NumLevels: levelOf(fanOut, size-1),
	}
	return t, nil
}

// IsRoot reports whether the rank has no parent.
func (t Topology) IsRoot() bool {
	return t.Parent == NoParent
}

// IsParent reports whether the rank has children.
func (t Topology) IsParent() bool {
	return len(t.Children) > 0
}

// ChildIndex returns the position of rank among t's children, or -1.
func (t Topology) ChildIndex(rank int) int {
	for i, c := range t.Children {
		if c == rank {
			return i
		}
	}
	return -1
}

// Path returns the ranks from the root down to and including t.Rank.
func (t Topology) Path() []int {
	var up []int
	for r := t.Rank; r != NoParent; r = parentOf(t.FanOut, r) {
		up = append(up, r)
	}
	path := make([]int, len(up))
	for i, r := range up {
		path[len(up)-1-i] = r
	}
	return path
}

// At returns the topology of another rank of the same tree.
func (t Topology) At(rank int) Topology {
	return Topology{
		Rank:      rank,
		Size:      t.Size,
		FanOut:    t.FanOut,
		Parent:    parentOf(t.FanOut, rank),
		Children:  childrenOf(t.FanOut, t.Size, rank),
		Level:     levelOf(t.FanOut, rank),
		NumLevels: t.NumLevels,
	}
}

func (t Topology) String() string {
	return fmt.Sprintf("rank %d/%d level %d/%d parent %d children %v",
		t.Rank, t.Size, t.Level, t.NumLevels, t.Parent, t.Children)
}

func parentOf(fanOut, rank int) int {
	if rank == 0 {
		return NoParent
	}
	return (rank - 1) / fanOut
}

func childrenOf(fanOut, size, rank int) []int {
	var children []int
	first := rank*fanOut + 1
	for c := first; c < first+fanOut && c < size; c++ {
		children = append(children, c)
	}
	return children
}

// levelOf is floor(log_F(rank*(F-1)+1)), walked layer by layer so it is
// exact and also covers F=1.
func levelOf(fanOut, rank int) int8 {
	level := int8(0)
	layerStart, width := 0, 1
	for rank >= layerStart+width {
		layerStart += width
		width *= fanOut
		level++
	}
	return level
}
