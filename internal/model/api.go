package model

// CreateWalletRequest represents request for POST /wallets
type CreateWalletRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// ImportWalletRequest represents request for POST /wallets/import
type ImportWalletRequest struct {
	PrivateKey string `json:"privateKey"`
	Name       string `json:"name"`
	Password   string `json:"password"`
}

// CreateWalletResponse represents response for POST /wallets and /wallets/import
type CreateWalletResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Address string `json:"address,omitempty"`
	QR      string `json:"QR,omitempty"` // base64 PNG of the address
}

// SendRequest represents request for POST /wallets/{address}/send
type SendRequest struct {
	ToAddress string  `json:"toAddress"`
	Amount    string  `json:"amount"` // ether, decimal string
	Password  string  `json:"password"`
	GasLimit  *uint64 `json:"gasLimit,omitempty"`
	GasPrice  string  `json:"gasPrice,omitempty"` // wei, decimal string
	Data      string  `json:"data,omitempty"`     // 0x-prefixed hex
	Nonce     *uint64 `json:"nonce,omitempty"`
}

// SendTokenRequest represents request for POST /wallets/{address}/send-token
type SendTokenRequest struct {
	ToAddress    string `json:"toAddress"`
	TokenAddress string `json:"tokenAddress"`
	Amount       string `json:"amount"` // smallest token unit, decimal string
	Password     string `json:"password"`
}

// SendResponse represents response for the send endpoints
type SendResponse struct {
	TxHash string `json:"txHash"`
}

// BalanceResponse represents response for GET /wallets/{address}/balance
type BalanceResponse struct {
	Address  string            `json:"address"`
	Wei      string            `json:"wei"`
	Ether    string            `json:"ether"`
	Nonce    uint64            `json:"nonce"`
	Tokens   map[string]string `json:"tokens"`
	Rate     string            `json:"rate,omitempty"`
	Currency string            `json:"currency,omitempty"`
	Fiat     string            `json:"fiat,omitempty"`
}

// PasswordRequest carries a single password (delete, export key).
type PasswordRequest struct {
	Password string `json:"password"`
}

// ChangePasswordRequest represents request for POST /wallets/{address}/password
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// RenameRequest represents request for PATCH /wallets/{address}
type RenameRequest struct {
	Name string `json:"name"`
}

// TokenRequest represents request for POST /wallets/{address}/tokens
type TokenRequest struct {
	TokenAddress string `json:"tokenAddress"`
}

// SignMessageRequest represents request for POST /wallets/{address}/sign
type SignMessageRequest struct {
	Message  string `json:"message"`
	Password string `json:"password"`
}

// SignMessageResponse represents response for POST /wallets/{address}/sign
type SignMessageResponse struct {
	Signature string `json:"signature"`
}

// VerifySignatureRequest represents request for POST /signatures/verify
type VerifySignatureRequest struct {
	Message   string `json:"message"`
	Signature string `json:"signature"`
	Address   string `json:"address"`
}

// VerifySignatureResponse represents response for POST /signatures/verify
type VerifySignatureResponse struct {
	Valid bool `json:"valid"`
}

// ExportKeyResponse represents response for POST /wallets/{address}/export
type ExportKeyResponse struct {
	PrivateKey string `json:"privateKey"`
}

// BackupRequest represents request for POST /backup/export and /backup/restore
type BackupRequest struct {
	// File name inside the backup directory; defaults to the configured backup file.
	Path string `json:"path,omitempty"`
}

// BackupResponse represents response for the backup endpoints
type BackupResponse struct {
	Path    string `json:"path"`
	Wallets int    `json:"wallets"`
}

// HistoryResponse represents response for GET /wallets/{address}/transactions
type HistoryResponse struct {
	Address      string              `json:"address"`
	Transactions []TransactionRecord `json:"transactions"`
}

// WalletListResponse represents response for GET /wallets
type WalletListResponse struct {
	Addresses []string `json:"addresses"`
}

// TokenResponse represents response for POST /wallets/{address}/tokens
type TokenResponse struct {
	TokenAddress string     `json:"tokenAddress"`
	Balance      string     `json:"balance"` // smallest token unit
	Info         *TokenInfo `json:"info,omitempty"`
}

// TokenInfo is the ERC-20 metadata of a token contract.
type TokenInfo struct {
	Address     string `json:"address"`
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Decimals    uint8  `json:"decimals"`
	TotalSupply string `json:"totalSupply"` // smallest token unit
}

// GasPriceResponse represents response for GET /gas-price
type GasPriceResponse struct {
	Wei  string `json:"wei"`
	Gwei string `json:"gwei"`
}
