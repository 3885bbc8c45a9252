package dtree

import (
	"runtime"

	"github.com/twitter/dtree/common/stats"
)

// Defaults used by DefaultOptions.
const (
	DefaultFanOut         = 16
	DefaultFirstFraction  = 0.4
	DefaultRestFraction   = 0.4
	DefaultMinDistribUnit = 1
)

// Options are the arguments of tree creation. Every rank of a group must use
// the same FanOut, NumWorkItems, CanParent, ParentsWork, FirstFraction,
// RestFraction and MinDistribUnit; the topology and the initial allocation
// are computed independently on each rank from them.
type Options struct {
	// FanOut is the number of children of an interior node.
	FanOut int

	// NumWorkItems is N: the items scheduled are [0, N).
	NumWorkItems int64

	// CanParent lets ranks other than 0 be interior nodes. When false the
	// tree has one level: rank 0 parents every other rank.
	CanParent bool

	// ParentsWork lets interior nodes consume items themselves. When false
	// they only redistribute.
	ParentsWork bool

	// NodeMultiplier is this rank's relative speed. A parent forwards work to
	// its children in proportion to their multipliers.
	NodeMultiplier float64

	// NumThreads is how many goroutines call GetWork concurrently on this rank.
	NumThreads int

	// ThreadID identifies the calling goroutine in diagnostics. Optional.
	ThreadID func() int

	// FirstFraction of a supply is retained for local consumption.
	FirstFraction float64

	// RestFraction of what is not retained is offered to the children.
	RestFraction float64

	// MinDistribUnit is the smallest chunk worth splitting off.
	MinDistribUnit int16

	// Stats receives the scheduler's profiling metrics. Optional.
	Stats stats.StatsReceiver
}

// DefaultOptions returns options for n items with one thread per CPU.
func DefaultOptions(n int64) Options {
	return Options{
		FanOut:         DefaultFanOut,
		NumWorkItems:   n,
		CanParent:      true,
		ParentsWork:    true,
		NodeMultiplier: 1.0,
		NumThreads:     runtime.NumCPU(),
		FirstFraction:  DefaultFirstFraction,
		RestFraction:   DefaultRestFraction,
		MinDistribUnit: DefaultMinDistribUnit,
	}
}

func (o *Options) validate() error {
	switch {
	case o.FanOut < 1:
		return newError(ConfigurationError, "fan-out %d must be at least 1", o.FanOut)
	case o.NumWorkItems < 0:
		return newError(ConfigurationError, "number of work items %d is negative", o.NumWorkItems)
	case o.NumThreads < 1:
		return newError(ConfigurationError, "thread count %d must be at least 1", o.NumThreads)
	case !(o.NodeMultiplier > 0):
		return newError(ConfigurationError, "node multiplier %v must be positive", o.NodeMultiplier)
	case !(o.FirstFraction >= 0 && o.FirstFraction <= 1):
		return newError(ConfigurationError, "first fraction %v outside [0,1]", o.FirstFraction)
	case !(o.RestFraction >= 0 && o.RestFraction <= 1):
		return newError(ConfigurationError, "rest fraction %v outside [0,1]", o.RestFraction)
	case o.MinDistribUnit < 0:
		return newError(ConfigurationError, "minimum distribution unit %d is negative", o.MinDistribUnit)
	}
	return nil
}

func (o *Options) threadID() int {
	if o.ThreadID == nil {
		return 0
	}
	return o.ThreadID()
}
