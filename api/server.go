// Package api exposes TCP scans and ICMP sweeps over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/liamg/vulnscan/scan"
	"github.com/liamg/vulnscan/version"
	log "github.com/sirupsen/logrus"
)

// ScannerFactory builds the scanner used for a single request.
type ScannerFactory func(cfg scan.ConnectConfig) scan.Scanner

// DefaultScannerFactory builds ConnectScanners.
func DefaultScannerFactory(cfg scan.ConnectConfig) scan.Scanner {
	return scan.NewConnectScanner(cfg)
}

// ScanRequest is the body of POST /api/scan.
type ScanRequest struct {
	Host              string  `json:"host"`
	Ports             string  `json:"ports"`
	Timeout           float64 `json:"timeout"`
	Concurrency       int     `json:"concurrency"`
	BannerConcurrency int     `json:"banner_concurrency"`
	GrabAllPorts      bool    `json:"banner_all"`
}

// SweepRequest is the body of POST /api/sweep.
type SweepRequest struct {
	Network     string  `json:"network"`
	Timeout     float64 `json:"timeout"`
	Concurrency int     `json:"concurrency"`
	Devices     bool    `json:"devices"`
}

type SweepResponse struct {
	Network string        `json:"network"`
	Hosts   int           `json:"hosts"`
	Alive   []string      `json:"alive"`
	Devices []scan.Device `json:"devices,omitempty"`
}

// StreamEvent is one message on the /api/scan/stream websocket.
type StreamEvent struct {
	Type   string       `json:"type"` // "open", "report" or "error"
	Port   int          `json:"port,omitempty"`
	Report *scan.Report `json:"report,omitempty"`
	Error  string       `json:"error,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type APIServer struct {
	router         *mux.Router
	newScanner     ScannerFactory
	pinger         scan.Pinger
	upgrader       websocket.Upgrader
	allowedOrigins map[string]struct{}
}

// NewAPIServer builds the API. Browsers may only call it from the origin it
// is served on, plus any of allowedOrigins (e.g. "http://localhost:3000").
func NewAPIServer(newScanner ScannerFactory, pinger scan.Pinger, allowedOrigins ...string) *APIServer {
	s := &APIServer{
		router:         mux.NewRouter(),
		newScanner:     newScanner,
		pinger:         pinger,
		allowedOrigins: make(map[string]struct{}, len(allowedOrigins)),
	}
	for _, origin := range allowedOrigins {
		s.allowedOrigins[strings.ToLower(strings.TrimRight(origin, "/"))] = struct{}{}
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.originAllowed}
	s.setupRoutes()
	return s
}

func (s *APIServer) Handler() http.Handler {
	return s.router
}

func (s *APIServer) setupRoutes() {
	s.router.Use(s.corsMiddleware)
	s.router.Use(loggingMiddleware)

	s.router.HandleFunc("/api/health", s.getHealth).Methods("GET")
	s.router.HandleFunc("/api/scan", s.postScan).Methods("POST", "OPTIONS")
	s.router.HandleFunc("/api/scan/stream", s.streamScan).Methods("GET")
	s.router.HandleFunc("/api/sweep", s.postSweep).Methods("POST", "OPTIONS")
}

func (s *APIServer) getHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.String(),
	})
}

func (s *APIServer) postScan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	ports, err := validateScan(req)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	scanner := s.newScanner(scanConfig(req))

	report, err := scanner.Scan(r.Context(), req.Host, ports)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (s *APIServer) postSweep(w http.ResponseWriter, r *http.Request) {
	var req SweepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	hosts, err := scan.ExpandNetwork(req.Network)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	sweeper := scan.NewSweeper(s.pinger, 0)

	alive, err := sweeper.Sweep(r.Context(), hosts, seconds(req.Timeout), req.Concurrency)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := SweepResponse{
		Network: req.Network,
		Hosts:   len(hosts),
		Alive:   alive,
	}
	if req.Devices {
		resp.Devices = scan.LookupDevices(r.Context(), alive)
	}

	writeJSON(w, http.StatusOK, resp)
}

// streamScan runs a scan and reports each open port over a websocket as it is
// found, followed by the final report.
func (s *APIServer) streamScan(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	req := ScanRequest{
		Host:  query.Get("host"),
		Ports: query.Get("ports"),
	}
	if v := query.Get("timeout"); v != "" {
		timeout, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid timeout: "+v)
			return
		}
		req.Timeout = timeout
	}
	if v := query.Get("concurrency"); v != "" {
		concurrency, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid concurrency: "+v)
			return
		}
		req.Concurrency = concurrency
	}

	ports, err := validateScan(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debugf("Websocket upgrade failed: %s", err)
		return
	}
	defer conn.Close()

	// websocket connections allow a single concurrent writer
	var writeMu sync.Mutex
	send := func(event StreamEvent) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := conn.WriteJSON(event); err != nil {
			log.Debugf("Error writing stream event: %s", err)
		}
	}

	cfg := scanConfig(req)
	cfg.OnOpen = func(port int) {
		send(StreamEvent{Type: "open", Port: port})
	}

	report, err := s.newScanner(cfg).Scan(r.Context(), req.Host, ports)
	if err != nil {
		send(StreamEvent{Type: "error", Error: err.Error()})
		return
	}

	send(StreamEvent{Type: "report", Report: &report})

	writeMu.Lock()
	_ = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "scan complete"),
		time.Now().Add(time.Second),
	)
	writeMu.Unlock()
}

func validateScan(req ScanRequest) (scan.PortSpec, error) {
	if req.Host == "" {
		return nil, errMissingHost
	}
	return scan.ParsePorts(req.Ports)
}

func scanConfig(req ScanRequest) scan.ConnectConfig {
	return scan.ConnectConfig{
		Timeout:           seconds(req.Timeout),
		Concurrency:       req.Concurrency,
		BannerConcurrency: req.BannerConcurrency,
		GrabAllPorts:      req.GrabAllPorts,
	}
}

var errMissingHost = errors.New("host is required")

func statusFor(err error) int {
	switch {
	case errors.Is(err, scan.ErrInvalidPortSpec), errors.Is(err, scan.ErrInvalidNetworkSpec), errors.Is(err, scan.ErrNetworkTooLarge), errors.Is(err, errMissingHost):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func seconds(s float64) time.Duration {
	if s <= 0 {
		return 0
	}
	return time.Duration(s * float64(time.Second))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("Error encoding response: %s", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
