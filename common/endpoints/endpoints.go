// Package endpoints serves the admin HTTP surface of a dtree process: a
// health check and the finagle-style metrics of its stats receiver.
package endpoints

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/twitter/dtree/common/stats"
)

const (
	HealthPath  = "/health"
	MetricsPath = "/admin/metrics.json"
)

type Server struct {
	Addr  string
	Stats stats.StatsReceiver
	mux   *http.ServeMux
}

func NewServer(addr string, stat stats.StatsReceiver) *Server {
	s := &Server{Addr: addr, Stats: stat, mux: http.NewServeMux()}
	s.mux.HandleFunc("/", helpHandler)
	s.mux.HandleFunc(HealthPath, healthHandler)
	s.mux.HandleFunc(MetricsPath, s.statsHandler)
	return s
}

// Handler serves the admin paths.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Listen binds s.Addr.
func (s *Server) Listen() (net.Listener, error) {
	lis, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return nil, errors.Wrapf(err, "listening on %s", s.Addr)
	}
	return lis, nil
}

// Serve blocks serving lis until it is closed.
func (s *Server) Serve(lis net.Listener) error {
	log.Infof("Serving http & stats on %s", lis.Addr())
	return http.Serve(lis, s.mux)
}

func helpHandler(w http.ResponseWriter, r *http.Request) {
	http.Error(w, fmt.Sprintf("Common paths: '%s', '%s'", HealthPath, MetricsPath), http.StatusNotImplemented)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, "ok")
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	const contentTypeHdr = "Content-Type"
	const contentTypeVal = "application/json; charset=utf-8"
	w.Header().Set(contentTypeHdr, contentTypeVal)

	pretty := r.URL.Query().Get("pretty") == "true"
	str := s.Stats.Render(pretty)
	if _, err := io.Copy(w, bytes.NewBuffer(str)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

// MakeStatsReceiver returns a fresh receiver under scope whose latencies
// render in milliseconds.
func MakeStatsReceiver(scope string) stats.StatsReceiver {
	return stats.DefaultStatsReceiver().Scope(scope).Precision(time.Millisecond)
}
