// Package services contains server-side business logic. This file implements
// VaultService, the policy layer over the credential store: it decides which
// identity fields may be disclosed without authentication (salt, iterations)
// and which require proof of the authentication key (the vault itself).
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/keywarden/keywarden/internal/common"
	"github.com/keywarden/keywarden/internal/server/config"
	"github.com/keywarden/keywarden/internal/server/models"
	"github.com/keywarden/keywarden/internal/server/repositories/repomanager"
)

// RegisterInput describes a registration request. Email and AuthKey are
// required. The remaining fields are optional precomputed KDF/vault material:
// a client that has already derived everything locally supplies them, a
// minimal client leaves them nil and the server fills in defaults (generated
// salt, configured iteration count, empty vault).
type RegisterInput struct {
	Email   string
	AuthKey string

	Salt       *string
	Iterations *int
	Vault      *string
	VaultIV    *string
}

// CryptoParams is the subset of an identity disclosed without proof of the
// authentication key. A client needs it to even begin deriving its key.
type CryptoParams struct {
	Salt       string
	Iterations int
}

// VaultService provides the vault access protocol:
// - Register: create an identity with its KDF parameters and vault
// - GetCryptoParams: unauthenticated salt/iterations lookup by email
// - Authenticate / GetVault: exact-match credential check and vault fetch
//
// The protocol is stateless: every operation re-validates the credential pair
// supplied with that call. No sessions or tokens are issued.
type VaultService struct {
	db                *sql.DB
	repomanager       repomanager.RepositoryManager
	saltLength        int
	defaultIterations int
}

// NewVaultService constructs a VaultService using repositories and server
// config.
func NewVaultService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *VaultService {
	return &VaultService{
		db:                db,
		repomanager:       m,
		saltLength:        cfg.SaltLength,
		defaultIterations: cfg.DefaultIterations,
	}
}

// Register creates a new identity record. Duplicate emails yield
// common.ErrorAlreadyExists; the original record is never mutated.
func (s *VaultService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := strings.TrimSpace(in.Email)
	authKey := strings.TrimSpace(in.AuthKey)
	if email == "" || authKey == "" {
		return nil, common.ErrorValidation
	}

	vault, vaultIV, err := vaultPair(in.Vault, in.VaultIV)
	if err != nil {
		return nil, err
	}

	salt := ""
	if in.Salt != nil {
		salt = strings.TrimSpace(*in.Salt)
	}
	if salt == "" {
		salt, err = common.MakeRandAlphanumericString(s.saltLength)
		if err != nil {
			return nil, common.ErrorInternal
		}
	}

	iterations := s.defaultIterations
	if in.Iterations != nil && *in.Iterations > 0 {
		iterations = *in.Iterations
	}

	user := &models.User{
		ID:         uuid.NewString(),
		Email:      email,
		AuthKey:    authKey,
		Salt:       salt,
		Iterations: iterations,
		Vault:      vault,
		VaultIV:    vaultIV,
	}

	repo := s.repomanager.Users(s.db)
	u, err := repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return u, nil
}

// GetCryptoParams returns the KDF parameters for an existing email. This is
// deliberately unauthenticated; it discloses only what a client needs to
// start key derivation, never the vault.
func (s *VaultService) GetCryptoParams(ctx context.Context, email string) (*CryptoParams, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, common.ErrorValidation
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error fetching user: %w", err)
	}
	return &CryptoParams{Salt: user.Salt, Iterations: user.Iterations}, nil
}

// Authenticate verifies the credential pair by exact match and returns the
// stored identity. Unknown email and wrong key are indistinguishable to the
// caller: both yield common.ErrorUnauthorized.
func (s *VaultService) Authenticate(ctx context.Context, email, authKey string) (*models.User, error) {
	email = strings.TrimSpace(email)
	authKey = strings.TrimSpace(authKey)
	if email == "" || authKey == "" {
		return nil, common.ErrorValidation
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByEmailAndKey(ctx, email, authKey)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error fetching user: %w", err)
	}
	return user, nil
}

// GetVault returns the complete decryption material (vault, iterations,
// vault IV) under the same credential contract as Authenticate.
func (s *VaultService) GetVault(ctx context.Context, email, authKey string) (*models.User, error) {
	return s.Authenticate(ctx, email, authKey)
}

// vaultPair validates that vault ciphertext and its IV are supplied together.
// One without the other would store undecryptable state.
func vaultPair(vault, vaultIV *string) (string, string, error) {
	var v, iv string
	if vault != nil {
		v = *vault
	}
	if vaultIV != nil {
		iv = *vaultIV
	}
	if (v == "") != (iv == "") {
		return "", "", common.ErrorValidation
	}
	return v, iv, nil
}
