package model

// ErrorResponse is the consistent JSON structure for all API error responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Error codes carried in ErrorResponse.Code.
const (
	CodeBadRequest           = "BAD_REQUEST"
	CodeMalformedKey         = "MALFORMED_KEY"
	CodeAddressAlreadyExists = "ADDRESS_ALREADY_EXISTS"
	CodeWalletNotFound       = "WALLET_NOT_FOUND"
	CodeAuthenticationFailed = "AUTHENTICATION_FAILED"
	CodeSubmissionFailed     = "SUBMISSION_FAILED"
	CodeCorruptBackup        = "CORRUPT_BACKUP"
	CodeChainClient          = "CHAIN_CLIENT_ERROR"
	CodeCooldown             = "COOLDOWN_ACTIVE"
	CodeInternal             = "INTERNAL"
)
