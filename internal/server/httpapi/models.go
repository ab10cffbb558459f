package httpapi

// Request and response schemas for the five endpoints. Field names match the
// wire format consumed by existing clients; auth_key/user_key is accepted in
// requests and never serialized into any response.

type registerRequest struct {
	Email   string `json:"email"`
	UserKey string `json:"user_key"`

	// Optional precomputed KDF/vault material (full registration shape).
	Salt       *string `json:"salt,omitempty"`
	Iterations *int    `json:"iterations,omitempty"`
	Vault      *string `json:"vault,omitempty"`
	VaultIV    *string `json:"vaultiv,omitempty"`
}

type authRequest struct {
	Email   string `json:"email"`
	UserKey string `json:"user_key"`
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type registerResponse struct {
	User       userResponse `json:"user"`
	Vault      string       `json:"vault"`
	Salt       string       `json:"salt"`
	Iterations int          `json:"iterations"`
	VaultIV    string       `json:"vaultiv"`
}

type authResponse struct {
	User  userResponse `json:"user"`
	Vault string       `json:"vault"`
	Salt  string       `json:"salt"`
}

type vaultResponse struct {
	User       userResponse `json:"user"`
	Vault      string       `json:"vault"`
	Iterations int          `json:"iterations"`
	VaultIV    string       `json:"vaultiv"`
}

type cryptoParamsResponse struct {
	Salt       string `json:"salt"`
	Iterations int    `json:"iterations"`
}

type saltResponse struct {
	Salt string `json:"salt"`
}

type errorResponse struct {
	ErrorMsg string `json:"error_msg"`
	Code     string `json:"code"`
}
