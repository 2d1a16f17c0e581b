// Package server is the HTTP surface of the agent and the email pipeline.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"geoagent/internal"
	"geoagent/internal/ai"
	"geoagent/internal/ai/tools"
	"geoagent/internal/config"
	"geoagent/internal/logger"
	"geoagent/internal/marketing"
)

const greeting = "Hello, geospatial llm-service with Go!"

// AgentRunner answers a single user query with the tool-calling loop
type AgentRunner interface {
	Run(ctx context.Context, query string) (*ai.Result, error)
	Status() map[string]interface{}
}

// EmailGenerator drafts a marketing email from uploaded documents
type EmailGenerator interface {
	Generate(ctx context.Context, files []marketing.File, topic, recipientType string) string
}

type Server struct {
	agent     AgentRunner
	email     EmailGenerator
	registry  *tools.ToolRegistry
	imagePath string
	maxUpload int64
	mux       *http.ServeMux
	started   time.Time
}

func New(cfg *config.Config, agent AgentRunner, email EmailGenerator, registry *tools.ToolRegistry) *Server {
	maxUpload := cfg.Server.MaxUploadMB
	if maxUpload <= 0 {
		maxUpload = internal.DEFAULT_MAX_UPLOAD_MB
	}

	s := &Server{
		agent:     agent,
		email:     email,
		registry:  registry,
		imagePath: cfg.Satellite.ImagePath,
		maxUpload: maxUpload << 20,
		mux:       http.NewServeMux(),
		started:   time.Now(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("GET /{$}", s.handleRoot)
	s.mux.HandleFunc("POST /api/agent", s.handleAgent)
	s.mux.HandleFunc("POST /api/generate-email", s.handleGenerateEmail)
	s.mux.HandleFunc("GET /api/satellite-image", s.handleSatelliteImage)
	s.mux.HandleFunc("GET /api/tools", s.handleTools)
	s.mux.HandleFunc("GET /api/status", s.handleStatus)
}

// MountMCP serves an MCP transport under /mcp
func (s *Server) MountMCP(h http.Handler) {
	s.mux.Handle("/mcp", h)
	logger.Infof("MCP endpoint enabled at /mcp")
}

// Handler returns the mux wrapped in the request middleware
func (s *Server) Handler() http.Handler {
	return RequestID(Logging(CORS(s.mux)))
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, greeting)
}

type agentRequest struct {
	Query string `json:"query"`
}

func (s *Server) handleAgent(w http.ResponseWriter, r *http.Request) {
	var req agentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "request body must be JSON with a \"query\" field")
		return
	}

	id := RequestIDFrom(r.Context())
	logger.LogTranscript(logger.AgentTranscript, id, "query", req.Query)

	res, err := s.agent.Run(r.Context(), req.Query)
	if err != nil {
		status := agentErrorStatus(err)
		logger.Errorf("Agent request %s failed (%d): %v", id, status, err)
		logger.LogTranscript(logger.AgentTranscript, id, "error", err.Error())
		writeError(w, status, err.Error())
		return
	}

	logger.Successf("Agent request %s answered after %d model calls and %d tool calls", id, res.Iterations, res.ToolCalls)
	logger.LogTranscript(logger.AgentTranscript, id, "answer", res.Answer)
	writeJSON(w, http.StatusOK, res.Answer)
}

func agentErrorStatus(err error) int {
	var gatewayErr *ai.GatewayError
	switch {
	case errors.Is(err, ai.ErrEmptyQuery):
		return http.StatusBadRequest
	// The loop wraps an expired request deadline in a GatewayError
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &gatewayErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleGenerateEmail(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > s.maxUpload {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", s.maxUpload))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, "expected a multipart form: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	topic := strings.TrimSpace(r.FormValue("topic"))
	recipientType := strings.TrimSpace(r.FormValue("recipient_type"))
	headers := r.MultipartForm.File["files"]

	var missing []string
	if len(headers) == 0 {
		missing = append(missing, "files")
	}
	if topic == "" {
		missing = append(missing, "topic")
	}
	if recipientType == "" {
		missing = append(missing, "recipient_type")
	}
	if len(missing) > 0 {
		writeError(w, http.StatusBadRequest, "missing form fields: "+strings.Join(missing, ", "))
		return
	}

	files := make([]marketing.File, 0, len(headers))
	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		files = append(files, marketing.File{Name: header.Filename, Data: data})
	}

	id := RequestIDFrom(r.Context())
	logger.Infof("Generating %s email about %q from %d files", recipientType, topic, len(files))
	logger.LogTranscript(logger.EmailTranscript, id, "request", fmt.Sprintf("topic=%s recipient_type=%s files=%d", topic, recipientType, len(files)))

	email := s.email.Generate(r.Context(), files, topic, recipientType)
	logger.LogTranscript(logger.EmailTranscript, id, "email", email)
	writeJSON(w, http.StatusOK, email)
}

func (s *Server) handleSatelliteImage(w http.ResponseWriter, r *http.Request) {
	f, err := os.Open(s.imagePath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Errorf("Failed to open satellite image: %v", err)
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Satellite image not found"})
		return
	}
	defer f.Close()

	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Disposition", `inline; filename="satellite_image.jpg"`)
	http.ServeContent(w, r, "satellite_image.jpg", time.Time{}, f)
}

type toolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	all := s.registry.GetAllTools()
	out := make([]toolInfo, len(all))
	for i, tool := range all {
		out[i] = toolInfo{Name: tool.Name(), Description: tool.Description()}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.agent.Status()
	status["version"] = internal.APP_VERSION
	status["uptime"] = time.Since(s.started).Round(time.Second).String()
	writeJSON(w, http.StatusOK, status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Errorf("Failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
