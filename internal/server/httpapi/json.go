package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Stable error codes returned in every non-2xx body.
const (
	codeInvalidInput = "INVALID_INPUT"
	codeUserExists   = "USER_EXISTS"
	codeUserNotFound = "USER_NOT_FOUND"
	codeAuthFailed   = "AUTH_FAILED"
	codeRateLimited  = "RATE_LIMITED"
	codeDBError      = "DB_ERROR"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, code string) {
	writeJSON(w, status, errorResponse{ErrorMsg: msg, Code: code})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	defer func() { _ = r.Body.Close() }()

	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(body).Decode(dst)
}
