package httpapi

import (
	"errors"
	"net/http"

	"github.com/keywarden/keywarden/internal/common"
	"github.com/keywarden/keywarden/internal/server/services"
)

func (s *HTTPServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", codeInvalidInput)
		return
	}

	user, err := s.vault.Register(r.Context(), services.RegisterInput{
		Email:      req.Email,
		AuthKey:    req.UserKey,
		Salt:       req.Salt,
		Iterations: req.Iterations,
		Vault:      req.Vault,
		VaultIV:    req.VaultIV,
	})
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorValidation):
			writeError(w, http.StatusBadRequest, "email and user_key are required", codeInvalidInput)
		case errors.Is(err, common.ErrorAlreadyExists):
			writeError(w, http.StatusConflict, "user already exists", codeUserExists)
		default:
			s.logger.Error(r.Context(), "register failed", "error", err.Error())
			writeError(w, http.StatusInternalServerError, "failed to create user", codeDBError)
		}
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{
		User:       userResponse{ID: user.ID, Email: user.Email},
		Vault:      user.Vault,
		Salt:       user.Salt,
		Iterations: user.Iterations,
		VaultIV:    user.VaultIV,
	})
}

func (s *HTTPServer) handleAuth(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", codeInvalidInput)
		return
	}

	user, err := s.vault.Authenticate(r.Context(), req.Email, req.UserKey)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorValidation):
			writeError(w, http.StatusBadRequest, "email and user_key are required", codeInvalidInput)
		case errors.Is(err, common.ErrorUnauthorized):
			writeError(w, http.StatusUnauthorized, "invalid email or user_key", codeAuthFailed)
		default:
			s.logger.Error(r.Context(), "auth failed", "error", err.Error())
			writeError(w, http.StatusInternalServerError, "failed to fetch user", codeDBError)
		}
		return
	}

	// Historical shape kept for existing clients: no iterations or IV here,
	// those travel over /get_vault.
	writeJSON(w, http.StatusOK, authResponse{
		User:  userResponse{ID: user.ID, Email: user.Email},
		Vault: user.Vault,
		Salt:  user.Salt,
	})
}

func (s *HTTPServer) handleGetVault(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	userKey := r.URL.Query().Get("user_key")

	user, err := s.vault.GetVault(r.Context(), email, userKey)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorValidation):
			writeError(w, http.StatusBadRequest, "email and user_key are required", codeInvalidInput)
		case errors.Is(err, common.ErrorUnauthorized):
			writeError(w, http.StatusUnauthorized, "invalid email or user_key", codeAuthFailed)
		default:
			s.logger.Error(r.Context(), "get_vault failed", "error", err.Error())
			writeError(w, http.StatusInternalServerError, "failed to fetch user", codeDBError)
		}
		return
	}

	writeJSON(w, http.StatusOK, vaultResponse{
		User:       userResponse{ID: user.ID, Email: user.Email},
		Vault:      user.Vault,
		Iterations: user.Iterations,
		VaultIV:    user.VaultIV,
	})
}

func (s *HTTPServer) handleGetCryptoParams(w http.ResponseWriter, r *http.Request) {
	params, ok := s.cryptoParams(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, cryptoParamsResponse{Salt: params.Salt, Iterations: params.Iterations})
}

// Deprecated route kept for clients predating /get_crypto_params; same lookup,
// salt-only body.
func (s *HTTPServer) handleGetSalt(w http.ResponseWriter, r *http.Request) {
	params, ok := s.cryptoParams(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, saltResponse{Salt: params.Salt})
}

func (s *HTTPServer) cryptoParams(w http.ResponseWriter, r *http.Request) (*services.CryptoParams, bool) {
	email := r.URL.Query().Get("email")

	params, err := s.vault.GetCryptoParams(r.Context(), email)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorValidation):
			writeError(w, http.StatusBadRequest, "email is required", codeInvalidInput)
		case errors.Is(err, common.ErrorNotFound):
			writeError(w, http.StatusNotFound, "user not found", codeUserNotFound)
		default:
			s.logger.Error(r.Context(), "crypto params lookup failed", "error", err.Error())
			writeError(w, http.StatusInternalServerError, "failed to fetch user", codeDBError)
		}
		return nil, false
	}
	return params, true
}
