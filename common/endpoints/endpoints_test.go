package endpoints_test

import (
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twitter/dtree/common/endpoints"
	"github.com/twitter/dtree/common/stats"
)

func TestServer_Paths(t *testing.T) {
	stat := endpoints.MakeStatsReceiver("dtree")
	stat.Counter(stats.DtreeGetWorkCounter).Inc(7)

	ts := httptest.NewServer(endpoints.NewServer("unused", stat).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + endpoints.HealthPath)
	require.NoError(t, err)
	body, _ := ioutil.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "ok", string(body))

	resp, err = http.Get(ts.URL + endpoints.MetricsPath)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json; charset=utf-8", resp.Header.Get("Content-Type"))
	var data map[string]float64
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&data))
	assert.Equal(t, float64(7), data["dtree/"+stats.DtreeGetWorkCounter])

	resp, err = http.Get(ts.URL + "/elsewhere")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
}

func TestServer_Listen(t *testing.T) {
	s := endpoints.NewServer("127.0.0.1:0", stats.NilStatsReceiver())
	lis, err := s.Listen()
	require.NoError(t, err)
	go s.Serve(lis)
	defer lis.Close()

	resp, err := http.Get("http://" + lis.Addr().String() + endpoints.MetricsPath)
	require.NoError(t, err)
	body, _ := ioutil.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "{}", string(body))
}
