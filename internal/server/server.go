package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/copyleftdev/genopt/internal/config"
	apperrors "github.com/copyleftdev/genopt/internal/errors"
	"github.com/copyleftdev/genopt/internal/logging"
	"github.com/copyleftdev/genopt/internal/optimization"
	"github.com/copyleftdev/genopt/internal/optimization/genetic"
	"github.com/copyleftdev/genopt/internal/optimization/objectives"
	"github.com/copyleftdev/genopt/internal/report"
)

// Logger defines the logging interface used by the server
// This allows us to be flexible with our logging implementation
type Logger interface {
	Debug(msg string, fields ...map[string]interface{})
	Info(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
	Fatal(msg string, fields ...map[string]interface{})
	WithFields(fields map[string]interface{}) *logging.Logger
}

// Run statuses.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// OptimizationState represents the state of an optimization job.
// All fields are guarded by Server.optimizationsMu.
type OptimizationState struct {
	ID          string
	Objective   string
	Status      string
	StartTime   time.Time
	EndTime     *time.Time
	Result      *optimization.OptimizationResult
	Err         string
	Optimizer   *genetic.GeneticOptimizer
	CancelFunc  context.CancelFunc
	LastUpdated time.Time
}

// Server implements the HTTP and JSON-RPC server for the optimization service.
// It manages optimization jobs and provides endpoints to start, monitor, and cancel them.
type Server struct {
	cfg    *config.Config
	logger Logger

	metrics   *report.Metrics
	publisher report.Publisher

	// Optimization state management
	optimizations   map[string]*OptimizationState
	optimizationsMu sync.RWMutex // Protects the optimizations map
	slots           chan struct{}
	seq             atomic.Uint64
	wg              sync.WaitGroup
}

// Option customizes a Server.
type Option func(*Server)

// WithMetrics feeds every run into the given prometheus collectors.
func WithMetrics(m *report.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithPublisher publishes every generation through p, typically a *nats.Conn.
func WithPublisher(p report.Publisher) Option {
	return func(s *Server) { s.publisher = p }
}

// NewServer creates a new server instance with the given config and logger
// The logger parameter accepts any type that implements the Logger interface
func NewServer(cfg *config.Config, logger Logger, opts ...Option) *Server {
	maxRuns := cfg.Optimization.MaxRuns
	if maxRuns < 1 {
		maxRuns = 1
	}
	s := &Server{
		cfg:           cfg,
		logger:        logger,
		optimizations: make(map[string]*OptimizationState),
		slots:         make(chan struct{}, maxRuns),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) RegisterRoutes(r chi.Router) {
	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/objectives", s.handleObjectives)
		r.Post("/optimize", s.handleOptimize)
		r.Get("/status/{id}", s.handleStatus)
		r.Get("/history/{id}", s.handleHistory)
		r.Delete("/optimization/{id}", s.handleCancel)
	})

	// JSON-RPC 2.0 endpoint
	r.Post("/rpc", s.handleJSONRPC)
}

// startRequest is the body of optimization.start and POST /optimize. Every
// field except the objective is optional and overrides the configured default.
type startRequest struct {
	Objective           string      `json:"objective"`
	Bounds              [][]float64 `json:"bounds,omitempty"`
	PopulationSize      *int        `json:"population_size,omitempty"`
	Generations         *int        `json:"generations,omitempty"`
	MutationProbability *float64    `json:"mutation_probability,omitempty"`
	MutationRange       []float64   `json:"mutation_range,omitempty"`
	Modulus             *float64    `json:"modulus,omitempty"`
	MutationPolicy      string      `json:"mutation_policy,omitempty"`
	Selection           string      `json:"selection,omitempty"`
	RandomSeed          *int64      `json:"random_seed,omitempty"`
}

type idRequest struct {
	OptimizationID string `json:"optimization_id"`
}

func badRequest(format string, args ...interface{}) error {
	return apperrors.Errorf(format, args...).WithStatus(http.StatusBadRequest)
}

// settings applies the request overrides on top of the configured defaults.
func (req startRequest) settings(base optimization.Settings) (optimization.Settings, error) {
	s := base
	if req.Bounds != nil {
		if len(req.Bounds) != 2 || len(req.Bounds[0]) != 2 || len(req.Bounds[1]) != 2 {
			return s, badRequest("invalid bounds format, expected [[x_min, x_max], [y_min, y_max]]")
		}
		s.Domain = optimization.Domain{
			XMin: req.Bounds[0][0], XMax: req.Bounds[0][1],
			YMin: req.Bounds[1][0], YMax: req.Bounds[1][1],
		}
	}
	if req.MutationRange != nil {
		if len(req.MutationRange) != 2 {
			return s, badRequest("invalid mutation_range format, expected [lo, hi]")
		}
		s.MutationRange = optimization.Range{Lo: req.MutationRange[0], Hi: req.MutationRange[1]}
	}
	if req.PopulationSize != nil {
		s.PopulationSize = *req.PopulationSize
	}
	if req.Generations != nil {
		s.Generations = *req.Generations
	}
	if req.MutationProbability != nil {
		s.MutationProbability = *req.MutationProbability
	}
	if req.Modulus != nil {
		s.Modulus = *req.Modulus
	}
	if req.MutationPolicy != "" {
		s.MutationPolicy = optimization.MutationPolicy(req.MutationPolicy)
	}
	if req.Selection != "" {
		s.Selection = req.Selection
	}
	if req.RandomSeed != nil {
		s.RandomSeed = *req.RandomSeed
	}
	if err := s.Validate(); err != nil {
		return s, apperrors.Wrap(err, "invalid settings").WithStatus(http.StatusBadRequest)
	}
	return s, nil
}

// handleJSONRPC handles JSON-RPC 2.0 requests
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var request struct {
		JSONRPC string            `json:"jsonrpc"`
		ID      interface{}       `json:"id"`
		Method  string            `json:"method"`
		Params  []json.RawMessage `json:"params,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.respondWithError(w, -32700, "Parse error", nil)
		return
	}

	// Validate JSON-RPC 2.0 request
	if request.JSONRPC != "2.0" {
		s.respondWithError(w, -32600, "Invalid Request", request.ID)
		return
	}

	// Route to appropriate handler
	var result interface{}
	var err error

	switch request.Method {
	case "optimization.start":
		var req startRequest
		if err = decodeParams(request.Params, &req); err == nil {
			result, err = s.handleOptimizeStart(req)
		}
	case "optimization.status":
		var req idRequest
		if err = decodeParams(request.Params, &req); err == nil {
			result, err = s.handleOptimizationStatus(req.OptimizationID)
		}
	case "optimization.history":
		var req idRequest
		if err = decodeParams(request.Params, &req); err == nil {
			result, err = s.handleOptimizationHistory(req.OptimizationID)
		}
	case "optimization.cancel":
		var req idRequest
		if err = decodeParams(request.Params, &req); err == nil {
			err = s.handleOptimizationCancel(req.OptimizationID)
			result = map[string]string{"status": "cancellation requested"}
		}
	default:
		s.respondWithError(w, -32601, "Method not found", request.ID)
		return
	}

	if err != nil {
		code := -32000
		if apperrors.StatusCode(err) == http.StatusBadRequest {
			code = -32602
		}
		s.respondWithError(w, code, err.Error(), request.ID)
		return
	}

	// Send successful response
	response := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      request.ID,
		"result":  result,
	}

	body, err := json.Marshal(response)
	if err != nil {
		s.respondWithError(w, -32603, "Internal error: "+err.Error(), request.ID)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(append(body, '\n'))
}

func decodeParams(params []json.RawMessage, v interface{}) error {
	if len(params) == 0 {
		return badRequest("missing required parameters")
	}
	if err := json.Unmarshal(params[0], v); err != nil {
		return badRequest("invalid parameter format, expected object: %v", err)
	}
	return nil
}

// handleOptimizeStart starts a new optimization job with the specified parameters.
// Returns: {"optimization_id": "opt_123", "status": "pending"}
func (s *Server) handleOptimizeStart(req startRequest) (interface{}, error) {
	name := req.Objective
	if name == "" {
		name = s.cfg.GA.Objective
	}
	objective, err := objectives.Get(name)
	if err != nil {
		return nil, apperrors.Wrap(err, "cannot start optimization").WithStatus(http.StatusBadRequest)
	}

	settings, err := req.settings(s.cfg.GA.Settings())
	if err != nil {
		return nil, err
	}

	select {
	case s.slots <- struct{}{}:
	default:
		return nil, apperrors.Errorf("too many running optimizations (max %d)", cap(s.slots)).
			WithStatus(http.StatusTooManyRequests)
	}

	// Generate a unique ID for this optimization
	id := fmt.Sprintf("opt_%d_%d", time.Now().UnixNano(), s.seq.Add(1))
	runLogger := s.logger.WithFields(map[string]interface{}{
		"optimization_id": id,
		"objective":       name,
	})

	reporters := report.Multi{report.NewLog(runLogger)}
	if s.metrics != nil {
		reporters = append(reporters, s.metrics.Reporter(id, name))
	}
	if s.publisher != nil {
		reporters = append(reporters, report.NewNATS(s.publisher, s.cfg.NATS.Subject, id, name))
	}

	optimizer, err := genetic.NewGeneticOptimizer(objective, settings,
		genetic.WithReporter(reporters),
		genetic.WithLogger(logging.NewZapLogger(runLogger)),
	)
	if err != nil {
		<-s.slots
		return nil, apperrors.Wrap(err, "failed to create optimizer").WithStatus(http.StatusBadRequest)
	}

	// Create a cancellable context
	ctx, cancel := context.WithCancel(context.Background())

	now := time.Now()
	state := &OptimizationState{
		ID:          id,
		Objective:   name,
		Status:      StatusPending,
		StartTime:   now,
		Optimizer:   optimizer,
		CancelFunc:  cancel,
		LastUpdated: now,
	}

	// Store the optimization state
	s.optimizationsMu.Lock()
	s.optimizations[id] = state
	s.optimizationsMu.Unlock()

	// Start optimization in a goroutine
	s.wg.Add(1)
	go s.runOptimization(ctx, state, runLogger)

	return map[string]interface{}{
		"optimization_id": id,
		"status":          StatusPending,
	}, nil
}

func (s *Server) lookup(id string) (*OptimizationState, error) {
	if id == "" {
		return nil, badRequest("optimization_id is required")
	}
	state, exists := s.optimizations[id]
	if !exists {
		return nil, apperrors.Errorf("optimization %s not found", id).WithStatus(http.StatusNotFound)
	}
	return state, nil
}

// handleOptimizationStatus returns the current status and results of an optimization job.
func (s *Server) handleOptimizationStatus(id string) (interface{}, error) {
	s.optimizationsMu.RLock()
	defer s.optimizationsMu.RUnlock()

	state, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	response := map[string]interface{}{
		"optimization_id": state.ID,
		"objective":       state.Objective,
		"status":          state.Status,
		"progress":        state.Optimizer.Progress(),
		"state":           state.Optimizer.State(),
		"settings":        state.Optimizer.Settings(),
		"start_time":      state.StartTime.Format(time.RFC3339),
		"last_update":     state.LastUpdated.Format(time.RFC3339),
	}

	// Add end time if available
	if state.EndTime != nil {
		response["end_time"] = state.EndTime.Format(time.RFC3339)
	}
	if state.Err != "" {
		response["error"] = state.Err
	}

	if best, ok := state.Optimizer.Best(); ok {
		response["best_solution"] = best
	}

	history := state.Optimizer.History()
	response["generations"] = len(history)
	if len(history) > 0 {
		last := history[len(history)-1]
		response["population"] = last.Population
		response["stats"] = last.Stats
	}
	if state.Result != nil {
		response["population"] = state.Result.Population
		response["mutations"] = state.Result.Mutations
	}

	return response, nil
}

// handleOptimizationHistory returns every generation emitted so far.
func (s *Server) handleOptimizationHistory(id string) (interface{}, error) {
	s.optimizationsMu.RLock()
	state, err := s.lookup(id)
	s.optimizationsMu.RUnlock()
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"optimization_id": id,
		"history":         state.Optimizer.History(),
	}, nil
}

// handleOptimizationCancel cancels a running optimization job.
func (s *Server) handleOptimizationCancel(id string) error {
	s.optimizationsMu.Lock()
	defer s.optimizationsMu.Unlock()

	state, err := s.lookup(id)
	if err != nil {
		return err
	}

	switch state.Status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		// Already in a terminal state
		return apperrors.Errorf("cannot cancel optimization with status: %s", state.Status).
			WithStatus(http.StatusConflict)
	}

	// Cancel the optimization
	if state.CancelFunc != nil {
		state.CancelFunc()
	}

	state.Status = StatusCancelled
	now := time.Now()
	state.EndTime = &now
	state.LastUpdated = now

	s.logger.Info("Optimization cancelled", map[string]interface{}{
		"optimization_id": id,
	})

	return nil
}

// respondWithError sends a JSON-RPC 2.0 error response
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string, id interface{}) {
	s.logger.Warn("RPC error", map[string]interface{}{
		"code":    code,
		"message": message,
	})

	response := map[string]interface{}{
		"jsonrpc": "2.0",
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
		"id": id,
	}

	s.writeJSON(w, http.StatusOK, response)
}

// runOptimization executes the optimization process in a goroutine
func (s *Server) runOptimization(ctx context.Context, state *OptimizationState, logger *logging.Logger) {
	defer s.wg.Done()
	defer func() { <-s.slots }()

	s.optimizationsMu.Lock()
	if state.Status == StatusPending {
		state.Status = StatusRunning
		state.LastUpdated = time.Now()
	}
	s.optimizationsMu.Unlock()

	logger.Info("Optimization started")
	result, err := state.Optimizer.Optimize(ctx)

	s.optimizationsMu.Lock()
	state.Result = result
	switch {
	case state.Status == StatusCancelled:
	case err == nil:
		state.Status = StatusCompleted
	case ctx.Err() != nil:
		state.Status = StatusCancelled
	default:
		state.Status = StatusFailed
		state.Err = err.Error()
	}
	now := time.Now()
	if state.EndTime == nil {
		state.EndTime = &now
	}
	state.LastUpdated = now
	status := state.Status
	s.optimizationsMu.Unlock()

	if s.metrics != nil {
		s.metrics.RunFinished(state.ID, status)
	}

	fields := map[string]interface{}{"status": status}
	if result != nil {
		fields["generations"] = result.Generations
		fields["best_fitness"] = result.Best.Fitness()
		fields["best_x"] = result.Best.X()
		fields["best_y"] = result.Best.Y()
	}
	if status == StatusFailed {
		fields["error"] = err.Error()
		logger.Error("Optimization failed", fields)
		return
	}
	logger.Info("Optimization finished", fields)
}

// Close cancels all running optimizations and waits for them to stop.
func (s *Server) Close() error {
	s.optimizationsMu.Lock()
	for _, opt := range s.optimizations {
		if opt.CancelFunc != nil {
			opt.CancelFunc()
		}
	}
	s.optimizationsMu.Unlock()

	s.wg.Wait()
	return nil
}

// writeJSON encodes v before committing the status so an encoding failure
// still reaches the client as a 500.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("Failed to encode response", map[string]interface{}{"error": err.Error()})
		status = http.StatusInternalServerError
		body, _ = json.Marshal(map[string]string{"error": "failed to encode response: " + err.Error()})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	if l, ok := s.logger.(*logging.Logger); ok {
		apperrors.WriteJSON(w, l, err)
		return
	}
	s.writeJSON(w, apperrors.StatusCode(err), map[string]interface{}{"error": err.Error()})
}

// handleObjectives lists the objective names a run can be started with
func (s *Server) handleObjectives(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"objectives": objectives.Names(),
		"default":    s.cfg.GA.Objective,
	})
}

// handleOptimize handles the HTTP POST /optimize endpoint for starting a new optimization
func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, badRequest("Invalid request body: %v", err))
		return
	}

	result, err := s.handleOptimizeStart(req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, result)
}

// handleStatus handles the HTTP GET /status/{id} endpoint for checking optimization status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	result, err := s.handleOptimizationStatus(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

// handleHistory handles the HTTP GET /history/{id} endpoint
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	result, err := s.handleOptimizationHistory(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

// handleCancel handles the HTTP DELETE /optimization/{id} endpoint for canceling an optimization
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.handleOptimizationCancel(chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status": "cancellation requested",
	})
}
