// +build property_test

package dtree

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func Test_SplitConservesSupply(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 1000
	properties := gopter.NewProperties(parameters)

	properties.Property("local plus shares equals supply", prop.ForAll(
		func(supply int64, first, rest float64, min int16, weights []float64, works bool) bool {
			p := testPolicy(works, first, rest, min, normalize(weights)...)
			sp := p.Split(supply)
			if sp.Total() != supply || sp.Local < 0 {
				return false
			}
			for _, sh := range sp.Shares {
				if sh < 0 {
					return false
				}
			}
			return true
		},
		gen.Int64Range(0, 1<<40),
		gen.Float64Range(0, 1),
		gen.Float64Range(0, 1),
		gen.Int16Range(0, 64),
		gen.SliceOf(gen.Float64Range(0.1, 10)),
		gen.Bool(),
	))

	properties.Property("chunks respect the minimum unit", prop.ForAll(
		func(supply int64, min int16, n int) bool {
			w := make([]float64, n)
			for i := range w {
				w[i] = 1
			}
			p := testPolicy(true, 0.4, 0.4, min, normalize(w)...)
			for _, sh := range p.Split(supply).Shares {
				if sh != 0 && sh < int64(min) {
					return false
				}
			}
			return true
		},
		gen.Int64Range(0, 1<<20),
		gen.Int16Range(1, 100),
		gen.IntRange(1, 16),
	))

	properties.Property("topology parent and children agree", prop.ForAll(
		func(fanOut, size, rank int) bool {
			rank = rank % size
			topo, err := NewTopology(fanOut, size, rank, true)
			if err != nil {
				return false
			}
			for _, c := range topo.Children {
				if topo.At(c).Parent != rank {
					return false
				}
			}
			return rank == 0 || topo.At(topo.Parent).ChildIndex(rank) >= 0
		},
		gen.IntRange(1, 64),
		gen.IntRange(1, 5000),
		gen.IntRange(0, 5000),
	))

	properties.TestingRun(t)
}

func normalize(weights []float64) []float64 {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	fractions := make([]float64, len(weights))
	for i, w := range weights {
		fractions[i] = w / total
	}
	return fractions
}
