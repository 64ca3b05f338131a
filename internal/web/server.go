// Package web exposes a small status server for driving compression runs
// remotely and watching per-file outcomes live over a websocket.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/altair823/image-compressor/internal/compressor"
	"github.com/altair823/image-compressor/internal/config"
	"github.com/altair823/image-compressor/internal/crawler"
	"github.com/altair823/image-compressor/internal/factor"
	"github.com/altair823/image-compressor/internal/statistics"
)

// Server serves the REST API and the websocket outcome stream.
type Server struct {
	cfg        *config.Config
	log        *logrus.Logger
	router     *mux.Router
	httpServer *http.Server
	wsUpgrader websocket.Upgrader
	wsClients  map[*websocket.Conn]bool
	wsMutex    sync.RWMutex

	operationMutex sync.RWMutex
	isRunning      bool
	lastError      string
	currentStats   *statistics.Statistics
}

// APIResponse is the envelope for every REST reply.
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// CompressRequest starts a folder compression run.
type CompressRequest struct {
	SourceDirectory      string  `json:"source_directory"`
	DestinationDirectory string  `json:"destination_directory"`
	Quality              float64 `json:"quality,omitempty"`
	ResizeRatio          float64 `json:"resize_ratio,omitempty"`
	Threads              int     `json:"threads,omitempty"`
	Overwrite            bool    `json:"overwrite,omitempty"`
}

// WSMessage is one websocket frame: an outcome, a start or a completion.
type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// NewServer returns a Server wired to the given configuration and logger.
func NewServer(cfg *config.Config, log *logrus.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		log:       log,
		router:    mux.NewRouter(),
		wsClients: make(map[*websocket.Conn]bool),
		wsUpgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // local tool, no cross-origin policy
			},
		},
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/compress", s.handleCompress).Methods("POST")
	api.HandleFunc("/statistics", s.handleGetStatistics).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// Start blocks serving HTTP on the given port.
func (s *Server) Start(port int) error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	s.log.Infof("Starting web server on http://localhost:%d", port)
	return s.httpServer.ListenAndServe()
}

// Stop shuts the HTTP server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.operationMutex.RLock()
	running := s.isRunning
	lastError := s.lastError
	stats := s.currentStats
	s.operationMutex.RUnlock()

	data := map[string]interface{}{
		"running": running,
	}
	if lastError != "" {
		data["last_error"] = lastError
	}
	if stats != nil {
		data["statistics"] = stats.GetSnapshot()
	}
	s.writeJSON(w, APIResponse{Success: true, Data: data})
}

func (s *Server) handleCompress(w http.ResponseWriter, r *http.Request) {
	var req CompressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.SourceDirectory == "" || req.DestinationDirectory == "" {
		s.writeError(w, "Source and destination directories are required", http.StatusBadRequest)
		return
	}
	if _, err := os.Stat(req.SourceDirectory); os.IsNotExist(err) {
		s.writeError(w, "Source directory does not exist", http.StatusBadRequest)
		return
	}

	s.operationMutex.Lock()
	if s.isRunning {
		s.operationMutex.Unlock()
		s.writeError(w, "Compression already in progress", http.StatusConflict)
		return
	}
	s.isRunning = true
	s.lastError = ""
	s.currentStats = statistics.New()
	s.operationMutex.Unlock()

	go s.runCompressAsync(req)

	s.writeJSON(w, APIResponse{Success: true, Message: "Compression started"})
}

func (s *Server) handleGetStatistics(w http.ResponseWriter, r *http.Request) {
	s.operationMutex.RLock()
	stats := s.currentStats
	s.operationMutex.RUnlock()

	if stats == nil {
		s.writeError(w, "No run recorded yet", http.StatusNotFound)
		return
	}
	s.writeJSON(w, APIResponse{Success: true, Data: stats.GetSnapshot()})
}

// runCompressAsync drives one folder compression, feeding statistics and the
// websocket stream from the outcome channel.
func (s *Server) runCompressAsync(req CompressRequest) {
	defer func() {
		s.operationMutex.Lock()
		s.isRunning = false
		if s.currentStats != nil {
			s.currentStats.Finish()
		}
		s.operationMutex.Unlock()
	}()

	s.operationMutex.RLock()
	stats := s.currentStats
	s.operationMutex.RUnlock()

	fc := compressor.NewFolder(req.SourceDirectory, req.DestinationDirectory)
	_ = fc.SetLogger(s.log)
	_ = fc.SetOverwrite(req.Overwrite)
	if req.Threads > 0 {
		if err := fc.SetThreadCount(req.Threads); err != nil {
			s.failRun(err)
			return
		}
	}
	if req.Quality != 0 || req.ResizeRatio != 0 {
		quality, ratio := req.Quality, req.ResizeRatio
		if quality == 0 {
			quality = s.cfg.Quality
		}
		if ratio == 0 {
			ratio = s.cfg.ResizeRatio
		}
		f, err := factor.New(quality, ratio)
		if err != nil {
			s.failRun(err)
			return
		}
		_ = fc.SetFactor(f)
	}

	if files, err := crawler.ListFiles(req.SourceDirectory); err == nil {
		stats.AddFound(int64(len(files)))
		s.broadcastWSMessage("run_started", map[string]interface{}{
			"files": len(files),
		})
	}

	outcomes := make(chan compressor.Outcome, 64)
	_ = fc.SetOutcomes(outcomes)

	done := make(chan error, 1)
	go func() {
		done <- fc.Compress()
		close(outcomes)
	}()

	for o := range outcomes {
		if o.Failed() {
			stats.IncrementFailed()
			stats.RecordError(o.SourcePath, o.Err)
			s.broadcastWSMessage("outcome", map[string]interface{}{
				"source": o.SourcePath,
				"error":  o.Err.Error(),
			})
			continue
		}
		stats.IncrementCompressed()
		recordSizes(stats, o)
		s.broadcastWSMessage("outcome", map[string]interface{}{
			"source": o.SourcePath,
			"output": o.DestPath,
		})
	}

	if err := <-done; err != nil {
		s.failRun(err)
		return
	}
	s.broadcastWSMessage("run_complete", stats.GetSnapshot())
}

func recordSizes(stats *statistics.Statistics, o compressor.Outcome) {
	in, err := os.Stat(o.SourcePath)
	if err != nil {
		return
	}
	out, err := os.Stat(o.DestPath)
	if err != nil {
		return
	}
	stats.AddBytes(in.Size(), out.Size())
}

func (s *Server) failRun(err error) {
	s.log.WithError(err).Error("Compression run failed")
	s.operationMutex.Lock()
	s.lastError = err.Error()
	s.operationMutex.Unlock()
	s.broadcastWSMessage("run_failed", map[string]interface{}{
		"error": err.Error(),
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Error("WebSocket upgrade failed")
		return
	}

	s.wsMutex.Lock()
	s.wsClients[conn] = true
	s.wsMutex.Unlock()

	defer func() {
		s.wsMutex.Lock()
		delete(s.wsClients, conn)
		s.wsMutex.Unlock()
		conn.Close()
	}()

	// Reads are only used to detect the peer going away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) broadcastWSMessage(msgType string, data interface{}) {
	msg := WSMessage{Type: msgType, Data: data}

	s.wsMutex.RLock()
	defer s.wsMutex.RUnlock()
	for conn := range s.wsClients {
		if err := conn.WriteJSON(msg); err != nil {
			s.log.WithError(err).Debug("WebSocket write failed")
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, resp APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.log.WithError(err).Error("Failed to encode API response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(APIResponse{Success: false, Error: message})
}
