// Package config parses the JSON configuration of a dtree node: the tree
// options shared by every rank, the transport this process uses to reach the
// group, the synthetic workload and how stats are reported.
package config

import (
	"encoding/json"
	"io/ioutil"
	"regexp"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/twitter/dtree/common/stats"
	"github.com/twitter/dtree/dtree"
	"github.com/twitter/dtree/transport"
)

// Config is the parsed configuration of a node process.
type Config struct {
	Tree      TreeConfig
	Workload  WorkloadConfig
	Log       LogConfig
	Transport TransportConfig
	Report    ReportConfig
}

// TransportConfig creates the transports of the ranks this process hosts:
// one for a networked rank, or a whole group when simulating in memory.
type TransportConfig interface {
	Create() ([]transport.Transport, error)
}

// ReportConfig creates the stats receiver of the process and starts
// whatever serves it.
type ReportConfig interface {
	Create() (stats.StatsReceiver, error)
}

// TreeConfig holds the tree creation options. All ranks must agree on them
// except NodeMultiplier and NumThreads.
type TreeConfig struct {
	FanOut         int
	NumWorkItems   int64
	CanParent      bool
	ParentsWork    bool
	NodeMultiplier float64
	NumThreads     int
	FirstFraction  float64
	RestFraction   float64
	MinDistribUnit int16
}

// Options converts the config to tree options reporting to stat.
func (c TreeConfig) Options(stat stats.StatsReceiver) dtree.Options {
	return dtree.Options{
		FanOut:         c.FanOut,
		NumWorkItems:   c.NumWorkItems,
		CanParent:      c.CanParent,
		ParentsWork:    c.ParentsWork,
		NodeMultiplier: c.NodeMultiplier,
		NumThreads:     c.NumThreads,
		FirstFraction:  c.FirstFraction,
		RestFraction:   c.RestFraction,
		MinDistribUnit: c.MinDistribUnit,
		Stats:          stat,
	}
}

// WorkloadConfig shapes the synthetic irregular loop a node runs: each item
// costs between MinCostMicros and MaxCostMicros of busy time, the spread
// growing with the item index when Skewed is set.
type WorkloadConfig struct {
	MinCostMicros int
	MaxCostMicros int
	Skewed        bool
	Seed          int64
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level    string
	JSON     bool
	FileLine bool
}

// Node config parsed from JSON. Transport and Report are each an empty
// string or a JSON object with a "Type" field used to pick which kind of
// config to parse them as.
type topLevelConfig struct {
	Tree      *TreeConfig
	Workload  *WorkloadConfig
	Log       *LogConfig
	Transport json.RawMessage
	Report    json.RawMessage
}

type typeConfig struct {
	Type string
}

var emptyJson = []byte("{}")

func parseType(data json.RawMessage) (string, []byte) {
	if len(data) == 0 {
		return "", emptyJson
	}

	var t typeConfig
	err := json.Unmarshal(data, &t)
	if err != nil {
		return "", emptyJson
	}
	return t.Type, data
}

// Parser holds how to parse our configs. For each configurable dependency it
// maps the "Type" field to the config to unmarshal into. If the object is
// absent the empty string is looked up, so Parser.Foo[""] is the default.
type Parser struct {
	Tree      TreeConfig
	Workload  WorkloadConfig
	Log       LogConfig
	Transport map[string]TransportConfig
	Report    map[string]ReportConfig
}

// DefaultJSON is the configuration that results from empty text; useful for
// showing a complete configuration.
func (p *Parser) DefaultJSON() ([]byte, error) {
	c, err := p.Parse(nil)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(c, "", " ")
}

// Parse parses configText on top of the parser's defaults.
func (p *Parser) Parse(configText []byte) (*Config, error) {
	if len(configText) == 0 {
		configText = emptyJson
	}
	tree, workload, logCfg := p.Tree, p.Workload, p.Log
	cfg := topLevelConfig{Tree: &tree, Workload: &workload, Log: &logCfg}
	if err := json.Unmarshal(configText, &cfg); err != nil {
		return nil, errors.Wrap(err, "couldn't parse top-level config")
	}
	if cfg.Tree == nil || cfg.Workload == nil || cfg.Log == nil {
		return nil, errors.New("Tree, Workload and Log must be objects")
	}
	r := &Config{Tree: *cfg.Tree, Workload: *cfg.Workload, Log: *cfg.Log}

	transportType, transportData := parseType(cfg.Transport)
	transportConfig, ok := p.Transport[transportType]
	if !ok {
		return nil, errors.Errorf("no parser for transport type %q", transportType)
	}
	if err := json.Unmarshal(transportData, &transportConfig); err != nil {
		return nil, errors.Wrapf(err, "couldn't parse Transport (config: %s; type: %s)", transportData, transportType)
	}
	r.Transport = transportConfig

	reportType, reportData := parseType(cfg.Report)
	reportConfig, ok := p.Report[reportType]
	if !ok {
		return nil, errors.Errorf("no parser for report type %q", reportType)
	}
	if err := json.Unmarshal(reportData, &reportConfig); err != nil {
		return nil, errors.Wrapf(err, "couldn't parse Report (config: %s; type: %s)", reportData, reportType)
	}
	r.Report = reportConfig

	return r, nil
}

var configFileName = regexp.MustCompile(`^[^{\s][^\s]*\.json$`)

// GetConfigText finds the right text for a config flag. If the flag looks
// like a json file name the file is read; otherwise it is taken as the
// literal JSON text.
func GetConfigText(configFlag string) ([]byte, error) {
	if configFileName.MatchString(configFlag) {
		log.Infof("reading config file %v", configFlag)
		text, err := ioutil.ReadFile(configFlag)
		if err != nil {
			return nil, errors.Wrapf(err, "loading config file %v", configFlag)
		}
		return text, nil
	}
	log.Debugf("using config flag as JSON: %v", configFlag)
	return []byte(configFlag), nil
}
