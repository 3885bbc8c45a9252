package config_test

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twitter/dtree/common/stats"
	"github.com/twitter/dtree/config"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := config.DefaultParser().Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Tree.FanOut)
	assert.Equal(t, "info", cfg.Log.Level)

	mem, ok := cfg.Transport.(*config.MemoryTransportConfig)
	require.True(t, ok)
	assert.Equal(t, 1, mem.Size)
	_, ok = cfg.Report.(*config.DefaultReportConfig)
	assert.True(t, ok)
}

func TestParse_Overrides(t *testing.T) {
	text := `{
 "Tree": {"FanOut": 2, "NumWorkItems": 1000, "NodeMultiplier": 2.5},
 "Transport": {"Type": "rpc", "Rank": 1, "Peers": ["a:1", "b:2"], "CallTimeoutMs": 50},
 "Report": {"Type": "none"},
 "Log": {"Level": "debug"}
}`
	cfg, err := config.DefaultParser().Parse([]byte(text))
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Tree.FanOut)
	assert.Equal(t, int64(1000), cfg.Tree.NumWorkItems)
	assert.Equal(t, 2.5, cfg.Tree.NodeMultiplier)
	// Fields not named keep their defaults.
	assert.True(t, cfg.Tree.CanParent)
	assert.Equal(t, 0.4, cfg.Tree.FirstFraction)
	assert.Equal(t, "debug", cfg.Log.Level)

	rpcCfg, ok := cfg.Transport.(*config.RPCTransportConfig)
	require.True(t, ok)
	assert.Equal(t, 1, rpcCfg.Rank)
	assert.Equal(t, []string{"a:1", "b:2"}, rpcCfg.Peers)
	assert.Equal(t, 50, rpcCfg.CallTimeoutMs)

	stat, err := cfg.Report.Create()
	require.NoError(t, err)
	assert.Equal(t, "{}", string(stat.Render(false)))

	opts := cfg.Tree.Options(stat)
	assert.Equal(t, 2, opts.FanOut)
	assert.Equal(t, stat, opts.Stats)
}

func TestParse_Errors(t *testing.T) {
	_, err := config.DefaultParser().Parse([]byte(`{"Transport": {"Type": "carrier-pigeon"}}`))
	assert.Error(t, err)
	_, err = config.DefaultParser().Parse([]byte(`{"Report": {"Type": "graphite"}}`))
	assert.Error(t, err)
	_, err = config.DefaultParser().Parse([]byte(`{"Tree": [1, 2]}`))
	assert.Error(t, err)
	_, err = config.DefaultParser().Parse([]byte(`not json`))
	assert.Error(t, err)
}

func TestMemoryTransport(t *testing.T) {
	cfg, err := config.DefaultParser().Parse([]byte(`{"Transport": {"Type": "memory", "Size": 3}}`))
	require.NoError(t, err)
	trs, err := cfg.Transport.Create()
	require.NoError(t, err)
	require.Len(t, trs, 3)
	for r, tr := range trs {
		assert.Equal(t, r, tr.Rank())
		assert.Equal(t, 3, tr.Size())
	}

	_, err = (&config.MemoryTransportConfig{Size: 0}).Create()
	assert.Error(t, err)
}

func TestDefaultJSON(t *testing.T) {
	text, err := config.DefaultParser().DefaultJSON()
	require.NoError(t, err)
	cfg, err := config.DefaultParser().Parse(text)
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Tree.FanOut)
}

func TestGetConfigText(t *testing.T) {
	dir, err := ioutil.TempDir("", "dtree-config")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	file := filepath.Join(dir, "node.json")
	require.NoError(t, ioutil.WriteFile(file, []byte(`{"Tree": {"FanOut": 3}}`), 0644))

	text, err := config.GetConfigText(file)
	require.NoError(t, err)
	assert.Equal(t, `{"Tree": {"FanOut": 3}}`, string(text))

	text, err = config.GetConfigText(`{"Tree": {}}`)
	require.NoError(t, err)
	assert.Equal(t, `{"Tree": {}}`, string(text))

	_, err = config.GetConfigText(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestTreeOptionsDefaultsValidate(t *testing.T) {
	cfg, err := config.DefaultParser().Parse(nil)
	require.NoError(t, err)
	opts := cfg.Tree.Options(stats.NilStatsReceiver())
	assert.Equal(t, 1.0, opts.NodeMultiplier)
	assert.Equal(t, 4, opts.NumThreads)
}
