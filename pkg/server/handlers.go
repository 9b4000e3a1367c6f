package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/matzehuels/stemplan/pkg/buildinfo"
	"github.com/matzehuels/stemplan/pkg/errors"
	"github.com/matzehuels/stemplan/pkg/orchestrator"
	"github.com/matzehuels/stemplan/pkg/pipeline"
	"github.com/matzehuels/stemplan/pkg/plan"
	"github.com/matzehuels/stemplan/pkg/solver"
)

// =============================================================================
// Request/Response types
// =============================================================================

type planResponse struct {
	Plan   *plan.Plan `json:"plan"`
	Cached bool       `json:"cached"`
}

type runResponse struct {
	Result    *orchestrator.Result `json:"result"`
	PlanHit   bool                 `json:"plan_hit"`
	ResultHit bool                 `json:"result_hit"`
	Artifacts map[string]string    `json:"artifacts,omitempty"`
}

type perfEntry struct {
	Successes   int     `json:"successes"`
	Failures    int     `json:"failures"`
	Attempts    int     `json:"attempts"`
	SuccessRate float64 `json:"success_rate"`
	AverageMS   float64 `json:"average_ms"`
	Available   bool    `json:"available"`
}

type healthResponse struct {
	Status   string               `json:"status"`
	Version  string               `json:"version"`
	Backends map[solver.Kind]bool `json:"backends"`
}

type errorResponse struct {
	Error   errors.Code `json:"error"`
	Message string      `json:"message"`
}

// =============================================================================
// Handlers
// =============================================================================

// handlePlan plans a spec or graph without orchestrating it.
func (s *Server) handlePlan(source string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var opts pipeline.Options
		if err := decode(w, r, &opts); err != nil {
			writeError(w, err)
			return
		}
		switch {
		case source == pipeline.SourceSpec && (opts.Spec == nil || opts.Graph != nil):
			writeError(w, errors.New(errors.ErrCodeInvalidInput, "request must carry a spec"))
			return
		case source == pipeline.SourceGraph && (opts.Graph == nil || opts.Spec != nil):
			writeError(w, errors.New(errors.ErrCodeInvalidInput, "request must carry a graph"))
			return
		}
		opts.NoSolve = true
		opts.Formats = nil

		res, err := s.runner.Execute(r.Context(), opts)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, planResponse{Plan: res.Plan, Cached: res.CacheInfo.PlanHit})
	}
}

// handleRun plans and orchestrates a spec or graph.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var opts pipeline.Options
	if err := decode(w, r, &opts); err != nil {
		writeError(w, err)
		return
	}
	opts.NoSolve = false

	res, err := s.runner.Execute(r.Context(), opts)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := runResponse{
		Result:    res.Run,
		PlanHit:   res.CacheInfo.PlanHit,
		ResultHit: res.CacheInfo.ResultHit,
	}
	// The JSON document is the response itself.
	for format, data := range res.Artifacts {
		if format == pipeline.FormatJSON {
			continue
		}
		if resp.Artifacts == nil {
			resp.Artifacts = make(map[string]string)
		}
		resp.Artifacts[format] = string(data)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePerformance(w http.ResponseWriter, _ *http.Request) {
	avail := s.orch.Registry().Availability()
	out := make(map[solver.Kind]perfEntry)
	for k, rec := range s.orch.Performance() {
		out[k] = perfEntry{
			Successes:   rec.Successes,
			Failures:    rec.Failures,
			Attempts:    rec.Attempts(),
			SuccessRate: rec.SuccessRate(),
			AverageMS:   float64(rec.AverageTime()) / float64(time.Millisecond),
			Available:   avail[k],
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.orch.Reset()
	var deleted int64
	if s.history != nil {
		n, err := s.history.Reset(r.Context())
		if err != nil {
			writeError(w, errors.Wrap(errors.ErrCodeStore, err, "reset attempt history"))
			return
		}
		deleted = n
	}
	s.logger.Info("performance reset", "history_deleted", deleted)
	writeJSON(w, http.StatusOK, map[string]any{"reset": true, "history_deleted": deleted})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:   "ok",
		Version:  buildinfo.Version,
		Backends: s.orch.Registry().Availability(),
	})
}

// =============================================================================
// Helpers
// =============================================================================

// decode reads a size-limited JSON body into v, rejecting unknown fields.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid request body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	writeJSON(w, errors.HTTPStatus(err), errorResponse{Error: code, Message: errors.UserMessage(err)})
}
