package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/tokensleuth/internal/domain"
	"github.com/sawpanic/tokensleuth/internal/pipeline"
	"github.com/sawpanic/tokensleuth/internal/store"
)

// maxBodyBytes bounds the submit request body
const maxBodyBytes = 16 << 10

type submitRequest struct {
	Chain        string `json:"chain"`
	TokenAddress string `json:"tokenAddress"`
	UserID       string `json:"userId,omitempty"`
	Tier         string `json:"tier,omitempty"`
}

type submitResponse struct {
	RequestID  string    `json:"requestId"`
	State      string    `json:"state"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

type statusResponse struct {
	RequestID    string            `json:"requestId"`
	Chain        domain.Chain      `json:"chain"`
	TokenAddress string            `json:"tokenAddress"`
	State        string            `json:"state"`
	Attempts     int               `json:"attempts"`
	EnqueuedAt   time.Time         `json:"enqueuedAt"`
	StartedAt    *time.Time        `json:"startedAt,omitempty"`
	CompletedAt  *time.Time        `json:"completedAt,omitempty"`
	Error        string            `json:"error,omitempty"`
	Result       *domain.RiskScore `json:"result,omitempty"`
}

type historyResponse struct {
	Chain        domain.Chain        `json:"chain"`
	TokenAddress string              `json:"tokenAddress"`
	Scores       []*domain.RiskScore `json:"scores"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "MALFORMED_REQUEST", "body must be valid JSON")
		return
	}

	job, err := s.service.Submit(r.Context(), pipeline.SubmitRequest{
		Chain:   req.Chain,
		Address: req.TokenAddress,
		UserID:  req.UserID,
		Tier:    req.Tier,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	// Always 202: a cached result still reports COMPLETED in the body and
	// resolves immediately via GET /scan/{id}
	writeJSON(w, http.StatusAccepted, submitResponse{
		RequestID:  job.RequestID,
		State:      string(job.State),
		EnqueuedAt: job.EnqueuedAt,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	requestID := mux.Vars(r)["requestID"]
	job, score, err := s.service.Status(r.Context(), requestID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		RequestID:    job.RequestID,
		Chain:        job.Chain,
		TokenAddress: job.TokenAddress,
		State:        string(job.State),
		Attempts:     job.Attempts,
		EnqueuedAt:   job.EnqueuedAt,
		StartedAt:    job.StartedAt,
		CompletedAt:  job.CompletedAt,
		Error:        job.LastError,
		Result:       score,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	chain, err := domain.ParseChain(r.URL.Query().Get("chain"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ADDRESS", "unknown chain")
		return
	}
	address, err := domain.ValidateAddress(chain, r.URL.Query().Get("address"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	scores, err := s.scores.History(r.Context(), chain, address, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{
		Chain:        chain,
		TokenAddress: address,
		Scores:       scores,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	depths := make(map[string]int)
	for chain, depth := range s.service.QueueDepths() {
		depths[string(chain)] = depth
	}
	health := map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC(),
		"queues": depths,
	}
	if s.config.Diagnostics != nil {
		for name, section := range s.config.Diagnostics() {
			health[name] = section
		}
	}
	writeJSON(w, http.StatusOK, health)
}

func (s *Server) handleNotFound(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeError(w, http.StatusNotFound, "NOT_FOUND", "no such route")
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidAddress):
		writeError(w, http.StatusBadRequest, domain.ErrInvalidAddress.Error(), "address is not valid for the chain")
	case errors.Is(err, store.ErrNotFound), errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, domain.ErrNotFound.Error(), "")
	default:
		log.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, domain.ErrInternal.Error(), "")
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("response encode failed")
	}
}
