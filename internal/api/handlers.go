package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"movie-recommender/internal/recommend"
)

const maxLimit = 100

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Recommendations handles GET /v1/users/{userID}/recommendations.
// An optional ?limit= lowers or raises the result size up to maxLimit.
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	engine := h.engine
	if s := r.URL.Query().Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit < 1 || limit > maxLimit {
			respondError(w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be between 1 and 100", err)
			return
		}
		engine = engine.WithLimit(limit)
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.queryTimeout)
	defer cancel()

	res, err := engine.Recommend(ctx, chi.URLParam(r, "userID"))
	if err != nil {
		var qerr *recommend.QueryError
		if errors.As(err, &qerr) && qerr.InvalidInput() {
			respondError(w, http.StatusBadRequest, "INVALID_USER_ID", qerr.Error(), err)
			return
		}
		respondError(w, http.StatusBadGateway, "QUERY_FAILED", "recommendation query failed", err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// Stats handles GET /v1/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.queryTimeout)
	defer cancel()

	stats, err := h.stats.Stats(ctx)
	if err != nil {
		respondError(w, http.StatusBadGateway, "QUERY_FAILED", "stats query failed", err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		log.Error().Err(err).Msg("Failed to write JSON response")
	}
}

func respondError(w http.ResponseWriter, status int, code, message string, err error) {
	if err != nil {
		log.Warn().Err(err).Str("code", code).Int("status", status).Msg("API error")
	}
	var body errorBody
	body.Error.Code = code
	body.Error.Message = message
	respondJSON(w, status, body)
}
