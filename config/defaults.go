package config

import (
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/twitter/dtree/common/endpoints"
	"github.com/twitter/dtree/common/stats"
	"github.com/twitter/dtree/dtree"
	"github.com/twitter/dtree/transport"
	"github.com/twitter/dtree/transport/memory"
	"github.com/twitter/dtree/transport/rpc"
)

func DefaultParser() *Parser {
	return &Parser{
		Tree: TreeConfig{
			FanOut:         dtree.DefaultFanOut,
			CanParent:      true,
			ParentsWork:    true,
			NodeMultiplier: 1.0,
			NumThreads:     4,
			FirstFraction:  dtree.DefaultFirstFraction,
			RestFraction:   dtree.DefaultRestFraction,
			MinDistribUnit: dtree.DefaultMinDistribUnit,
		},
		Workload: WorkloadConfig{
			MinCostMicros: 0,
			MaxCostMicros: 100,
		},
		Log: LogConfig{
			Level: "info",
		},
		Transport: map[string]TransportConfig{
			"memory": &MemoryTransportConfig{},
			"rpc":    &RPCTransportConfig{},
			"":       &MemoryTransportConfig{Type: "memory", Size: 1},
		},
		Report: map[string]ReportConfig{
			"default": &DefaultReportConfig{},
			"none":    &NoReportConfig{},
			"":        &DefaultReportConfig{Type: "default"},
		},
	}
}

// MemoryTransportConfig hosts a whole group of Size ranks in this process.
type MemoryTransportConfig struct {
	Type string
	Size int
}

func (c *MemoryTransportConfig) Create() ([]transport.Transport, error) {
	if c.Size < 1 {
		return nil, errors.Errorf("memory transport size %d must be at least 1", c.Size)
	}
	g := memory.NewGroup(c.Size)
	var trs []transport.Transport
	for r := 0; r < c.Size; r++ {
		trs = append(trs, g.Endpoint(r))
	}
	log.Infof("simulating %d ranks in memory group %s", c.Size, g.RunID())
	return trs, nil
}

// RPCTransportConfig makes this process rank Rank of the group whose
// addresses are Peers, in rank order.
type RPCTransportConfig struct {
	Type               string
	Rank               int
	Peers              []string
	CallTimeoutMs      int
	BootstrapTimeoutMs int
}

func (c *RPCTransportConfig) Create() ([]transport.Transport, error) {
	tr, err := rpc.Listen(rpc.Config{
		Rank:             c.Rank,
		Peers:            c.Peers,
		CallTimeout:      time.Duration(c.CallTimeoutMs) * time.Millisecond,
		BootstrapTimeout: time.Duration(c.BootstrapTimeoutMs) * time.Millisecond,
	})
	if err != nil {
		return nil, err
	}
	return []transport.Transport{tr}, nil
}

// DefaultReportConfig collects stats in a go-metrics registry and, if
// HttpAddr is set, serves them from an admin endpoint.
type DefaultReportConfig struct {
	Type     string
	HttpAddr string
}

func (c *DefaultReportConfig) Create() (stats.StatsReceiver, error) {
	stat := endpoints.MakeStatsReceiver("dtree")
	if c.HttpAddr == "" {
		return stat, nil
	}
	server := endpoints.NewServer(c.HttpAddr, stat)
	lis, err := server.Listen()
	if err != nil {
		return nil, err
	}
	go func() {
		if err := server.Serve(lis); err != nil {
			log.Errorf("admin server on %s stopped: %v", c.HttpAddr, err)
		}
	}()
	return stat, nil
}

// NoReportConfig discards stats.
type NoReportConfig struct {
	Type string
}

func (c *NoReportConfig) Create() (stats.StatsReceiver, error) {
	return stats.NilStatsReceiver(), nil
}
