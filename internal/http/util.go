package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/perysek/sorting-management/internal/service"
)

// writeJSON leaves '<', '>' and '&' unescaped: remarks and note texts are
// free text shown verbatim.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

// parsePage reads a 1-based page number. Blank, malformed or non-positive
// input yields def.
func parsePage(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return def
	}
	return n
}

// writeServiceError maps service errors onto HTTP statuses and result codes.
func writeServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	switch {
	case errors.Is(err, service.ErrInvalidFilter):
		writeJSON(w, http.StatusBadRequest, Fail(ResultInvalidFilter, err.Error()))
	case errors.Is(err, service.ErrNotFound):
		writeJSON(w, http.StatusNotFound, Fail(ResultNotFound, err.Error()))
	default:
		logger.Error("Request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail(ResultError, "internal error"))
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, Fail(ResultMethodNotAllowed, "method not allowed"))
}
