package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/AlexZinkM/custody-wallet/internal/backup"
	"github.com/AlexZinkM/custody-wallet/internal/client"
	units "github.com/AlexZinkM/custody-wallet/internal/common"
	"github.com/AlexZinkM/custody-wallet/internal/keys"
	"github.com/AlexZinkM/custody-wallet/internal/keystore"
	"github.com/AlexZinkM/custody-wallet/internal/model"
	"github.com/AlexZinkM/custody-wallet/internal/registry"
	"github.com/AlexZinkM/custody-wallet/internal/signer"
	"github.com/AlexZinkM/custody-wallet/internal/wallet"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

var (
	// errBadRequest marks request parsing failures.
	errBadRequest = errors.New("bad request")

	errBodyTooLarge = errors.New("request body too large")
)

// PriceSource values ether in a fiat currency.
type PriceSource interface {
	EtherRate(ctx context.Context, currency string) (string, error)
}

// WalletHandler serves the wallet HTTP API.
type WalletHandler struct {
	manager  *wallet.Manager
	prices   PriceSource
	currency string
	log      *zap.Logger
}

// NewWalletHandler creates a WalletHandler. prices may be nil, in which case
// balances carry no fiat valuation.
func NewWalletHandler(manager *wallet.Manager, prices PriceSource, currency string, log *zap.Logger) *WalletHandler {
	return &WalletHandler{
		manager:  manager,
		prices:   prices,
		currency: currency,
		log:      log.Named("http"),
	}
}

// CreateWallet handles POST /wallets
// @Summary      Create wallet
// @Description  Generates a new key pair, encrypts it under the password and registers it
// @Tags         wallets
// @Accept       json
// @Produce      json
// @Param        request  body      model.CreateWalletRequest  true  "Wallet name and password"
// @Success      201      {object}  model.CreateWalletResponse
// @Failure      400      {object}  model.ErrorResponse
// @Router       /wallets [post]
func (h *WalletHandler) CreateWallet(w http.ResponseWriter, r *http.Request) {
	var req model.CreateWalletRequest
	if !h.decode(w, r, &req) {
		return
	}

	password := []byte(req.Password)
	defer clear(password) // Always clear password from memory

	addr, err := h.manager.CreateWallet(req.Name, password)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeCreated(w, addr, "Wallet created successfully")
}

// ImportWallet handles POST /wallets/import
// @Summary      Import wallet
// @Description  Registers an existing hex private key under the password
// @Tags         wallets
// @Accept       json
// @Produce      json
// @Param        request  body      model.ImportWalletRequest  true  "Private key, name and password"
// @Success      201      {object}  model.CreateWalletResponse
// @Failure      400      {object}  model.ErrorResponse
// @Failure      409      {object}  model.ErrorResponse
// @Router       /wallets/import [post]
func (h *WalletHandler) ImportWallet(w http.ResponseWriter, r *http.Request) {
	var req model.ImportWalletRequest
	if !h.decode(w, r, &req) {
		return
	}

	password := []byte(req.Password)
	defer clear(password)

	addr, err := h.manager.ImportWallet(req.PrivateKey, req.Name, password)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeCreated(w, addr, "Wallet imported successfully")
}

func (h *WalletHandler) writeCreated(w http.ResponseWriter, addr common.Address, msg string) {
	qr, err := generateQRCode(addr.Hex())
	if err != nil {
		// The wallet exists; a missing QR code is not worth failing for.
		h.log.Warn("qr code generation failed", zap.Error(err))
	}
	writeJSON(w, http.StatusCreated, model.CreateWalletResponse{
		Success: true,
		Message: msg,
		Address: addr.Hex(),
		QR:      qr,
	})
}

// ListWallets handles GET /wallets
// @Summary      List wallets
// @Tags         wallets
// @Produce      json
// @Success      200  {object}  model.WalletListResponse
// @Router       /wallets [get]
func (h *WalletHandler) ListWallets(w http.ResponseWriter, r *http.Request) {
	addrs := h.manager.ListAddresses()
	out := model.WalletListResponse{Addresses: make([]string, 0, len(addrs))}
	for _, a := range addrs {
		out.Addresses = append(out.Addresses, a.Hex())
	}
	writeJSON(w, http.StatusOK, out)
}

// GetWallet handles GET /wallets/{address}
// @Summary      Get wallet
// @Tags         wallets
// @Produce      json
// @Param        address  path      string  true  "Wallet address"
// @Success      200      {object}  model.WalletRecord
// @Failure      404      {object}  model.ErrorResponse
// @Router       /wallets/{address} [get]
func (h *WalletHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	addr, ok := h.pathAddress(w, r, "address")
	if !ok {
		return
	}
	rec, err := h.manager.GetWallet(addr)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// RenameWallet handles PATCH /wallets/{address}
// @Summary      Rename wallet
// @Tags         wallets
// @Accept       json
// @Param        address  path  string               true  "Wallet address"
// @Param        request  body  model.RenameRequest  true  "New name"
// @Success      204
// @Failure      404  {object}  model.ErrorResponse
// @Router       /wallets/{address} [patch]
func (h *WalletHandler) RenameWallet(w http.ResponseWriter, r *http.Request) {
	addr, ok := h.pathAddress(w, r, "address")
	if !ok {
		return
	}
	var req model.RenameRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.manager.RenameWallet(addr, req.Name); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteWallet handles DELETE /wallets/{address}
// @Summary      Delete wallet
// @Description  Removes the wallet and its encrypted key after verifying the password
// @Tags         wallets
// @Accept       json
// @Param        address  path  string                 true  "Wallet address"
// @Param        request  body  model.PasswordRequest  true  "Wallet password"
// @Success      204
// @Failure      401  {object}  model.ErrorResponse
// @Failure      404  {object}  model.ErrorResponse
// @Router       /wallets/{address} [delete]
func (h *WalletHandler) DeleteWallet(w http.ResponseWriter, r *http.Request) {
	addr, ok := h.pathAddress(w, r, "address")
	if !ok {
		return
	}
	var req model.PasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	password := []byte(req.Password)
	defer clear(password)

	if err := h.manager.DeleteWallet(addr, password); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetBalance handles GET /wallets/{address}/balance
// @Summary      Get wallet balance
// @Description  Returns the cached balance, refreshed from the chain when refresh=true, with a fiat valuation
// @Tags         wallets
// @Produce      json
// @Param        address  path      string  true   "Wallet address"
// @Param        refresh  query     bool    false  "Refresh balance and nonce from the chain"
// @Success      200      {object}  model.BalanceResponse
// @Failure      404      {object}  model.ErrorResponse
// @Failure      502      {object}  model.ErrorResponse
// @Router       /wallets/{address}/balance [get]
func (h *WalletHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	addr, ok := h.pathAddress(w, r, "address")
	if !ok {
		return
	}

	var (
		rec model.WalletRecord
		err error
	)
	if r.URL.Query().Get("refresh") == "true" {
		rec, err = h.manager.RefreshWallet(r.Context(), addr)
	} else {
		rec, err = h.manager.GetWallet(addr)
	}
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := model.BalanceResponse{
		Address: addr.Hex(),
		Wei:     balanceString(rec.Balance),
		Ether:   units.WeiToEther(rec.Balance),
		Nonce:   rec.Nonce,
		Tokens:  make(map[string]string, len(rec.Tokens)),
	}
	for token, bal := range rec.Tokens {
		resp.Tokens[token.Hex()] = balanceString(bal)
	}

	if h.prices != nil && h.currency != "" {
		rate, err := h.prices.EtherRate(r.Context(), h.currency)
		if err != nil {
			h.log.Warn("price lookup failed", zap.Error(err))
		} else if fiat, err := units.FiatValue(rec.Balance, rate); err == nil {
			resp.Rate = rate
			resp.Currency = h.currency
			resp.Fiat = fiat
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// Send handles POST /wallets/{address}/send
// @Summary      Send ether
// @Description  Signs and submits a legacy transaction; unset gas fields and nonce are filled in
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Param        address  path      string             true  "Sender address"
// @Param        request  body      model.SendRequest  true  "Transfer data"
// @Success      200      {object}  model.SendResponse
// @Failure      400      {object}  model.ErrorResponse
// @Failure      401      {object}  model.ErrorResponse
// @Failure      429      {object}  model.ErrorResponse
// @Failure      502      {object}  model.ErrorResponse
// @Router       /wallets/{address}/send [post]
func (h *WalletHandler) Send(w http.ResponseWriter, r *http.Request) {
	from, ok := h.pathAddress(w, r, "address")
	if !ok {
		return
	}
	var req model.SendRequest
	if !h.decode(w, r, &req) {
		return
	}

	password := []byte(req.Password)
	defer clear(password)

	txReq, err := toTransactionRequest(req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	hash, err := h.manager.SendTransaction(r.Context(), from, txReq, password)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.SendResponse{TxHash: hash.Hex()})
}

// SendToken handles POST /wallets/{address}/send-token
// @Summary      Send ERC-20 tokens
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Param        address  path      string                  true  "Sender address"
// @Param        request  body      model.SendTokenRequest  true  "Token transfer data"
// @Success      200      {object}  model.SendResponse
// @Failure      400      {object}  model.ErrorResponse
// @Failure      401      {object}  model.ErrorResponse
// @Failure      502      {object}  model.ErrorResponse
// @Router       /wallets/{address}/send-token [post]
func (h *WalletHandler) SendToken(w http.ResponseWriter, r *http.Request) {
	from, ok := h.pathAddress(w, r, "address")
	if !ok {
		return
	}
	var req model.SendTokenRequest
	if !h.decode(w, r, &req) {
		return
	}

	password := []byte(req.Password)
	defer clear(password)

	to, err := wallet.ParseAddress(req.ToAddress)
	if err != nil {
		h.writeError(w, err)
		return
	}
	token, err := wallet.ParseAddress(req.TokenAddress)
	if err != nil {
		h.writeError(w, err)
		return
	}
	amount, err := parseWei(req.Amount, "amount")
	if err != nil {
		h.writeError(w, err)
		return
	}

	hash, err := h.manager.SendToken(r.Context(), from, to, token, amount, password)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.SendResponse{TxHash: hash.Hex()})
}

// SignMessage handles POST /wallets/{address}/sign
// @Summary      Sign message
// @Description  Signs the message with the personal-message prefix (EIP-191)
// @Tags         signatures
// @Accept       json
// @Produce      json
// @Param        address  path      string                    true  "Signer address"
// @Param        request  body      model.SignMessageRequest  true  "Message and password"
// @Success      200      {object}  model.SignMessageResponse
// @Failure      401      {object}  model.ErrorResponse
// @Failure      404      {object}  model.ErrorResponse
// @Router       /wallets/{address}/sign [post]
func (h *WalletHandler) SignMessage(w http.ResponseWriter, r *http.Request) {
	addr, ok := h.pathAddress(w, r, "address")
	if !ok {
		return
	}
	var req model.SignMessageRequest
	if !h.decode(w, r, &req) {
		return
	}

	password := []byte(req.Password)
	defer clear(password)

	sig, err := h.manager.SignMessage(addr, req.Message, password)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.SignMessageResponse{Signature: sig})
}

// VerifySignature handles POST /signatures/verify
// @Summary      Verify signature
// @Tags         signatures
// @Accept       json
// @Produce      json
// @Param        request  body      model.VerifySignatureRequest  true  "Message, signature and address"
// @Success      200      {object}  model.VerifySignatureResponse
// @Failure      400      {object}  model.ErrorResponse
// @Router       /signatures/verify [post]
func (h *WalletHandler) VerifySignature(w http.ResponseWriter, r *http.Request) {
	var req model.VerifySignatureRequest
	if !h.decode(w, r, &req) {
		return
	}

	addr, err := wallet.ParseAddress(req.Address)
	if err != nil {
		h.writeError(w, err)
		return
	}

	valid, err := h.manager.VerifySignature(req.Message, req.Signature, addr)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.VerifySignatureResponse{Valid: valid})
}

// ChangePassword handles POST /wallets/{address}/password
// @Summary      Change wallet password
// @Tags         wallets
// @Accept       json
// @Param        address  path  string                       true  "Wallet address"
// @Param        request  body  model.ChangePasswordRequest  true  "Old and new password"
// @Success      204
// @Failure      401  {object}  model.ErrorResponse
// @Router       /wallets/{address}/password [post]
func (h *WalletHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	addr, ok := h.pathAddress(w, r, "address")
	if !ok {
		return
	}
	var req model.ChangePasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	oldPassword := []byte(req.OldPassword)
	defer clear(oldPassword)
	newPassword := []byte(req.NewPassword)
	defer clear(newPassword)

	if err := h.manager.ChangePassword(addr, oldPassword, newPassword); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportPrivateKey handles POST /wallets/{address}/export
// @Summary      Export private key
// @Description  Returns the hex private key after verifying the password
// @Tags         wallets
// @Accept       json
// @Produce      json
// @Param        address  path      string                 true  "Wallet address"
// @Param        request  body      model.PasswordRequest  true  "Wallet password"
// @Success      200      {object}  model.ExportKeyResponse
// @Failure      401      {object}  model.ErrorResponse
// @Router       /wallets/{address}/export [post]
func (h *WalletHandler) ExportPrivateKey(w http.ResponseWriter, r *http.Request) {
	addr, ok := h.pathAddress(w, r, "address")
	if !ok {
		return
	}
	var req model.PasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	password := []byte(req.Password)
	defer clear(password)

	key, err := h.manager.ExportPrivateKey(addr, password)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, model.ExportKeyResponse{PrivateKey: key})
}

// AddToken handles POST /wallets/{address}/tokens
// @Summary      Track ERC-20 token
// @Description  Records the token balance and includes the token metadata when the contract exposes it
// @Tags         tokens
// @Accept       json
// @Produce      json
// @Param        address  path      string              true  "Wallet address"
// @Param        request  body      model.TokenRequest  true  "Token contract address"
// @Success      200      {object}  model.TokenResponse
// @Failure      404      {object}  model.ErrorResponse
// @Failure      502      {object}  model.ErrorResponse
// @Router       /wallets/{address}/tokens [post]
func (h *WalletHandler) AddToken(w http.ResponseWriter, r *http.Request) {
	addr, ok := h.pathAddress(w, r, "address")
	if !ok {
		return
	}
	var req model.TokenRequest
	if !h.decode(w, r, &req) {
		return
	}
	token, err := wallet.ParseAddress(req.TokenAddress)
	if err != nil {
		h.writeError(w, err)
		return
	}

	bal, err := h.manager.AddToken(r.Context(), addr, token)
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := model.TokenResponse{TokenAddress: token.Hex(), Balance: bal.String()}
	if info, err := h.manager.TokenInfo(r.Context(), token); err != nil {
		h.log.Debug("token metadata unavailable", zap.Stringer("token", token), zap.Error(err))
	} else {
		resp.Info = &info
	}
	writeJSON(w, http.StatusOK, resp)
}

// TokenInfo handles GET /tokens/{token}
// @Summary      ERC-20 token metadata
// @Description  Reads name, symbol, decimals and total supply from the token contract
// @Tags         tokens
// @Produce      json
// @Param        token  path      string  true  "Token contract address"
// @Success      200    {object}  model.TokenInfo
// @Failure      400    {object}  model.ErrorResponse
// @Failure      502    {object}  model.ErrorResponse
// @Router       /tokens/{token} [get]
func (h *WalletHandler) TokenInfo(w http.ResponseWriter, r *http.Request) {
	token, ok := h.pathAddress(w, r, "token")
	if !ok {
		return
	}
	info, err := h.manager.TokenInfo(r.Context(), token)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// RefreshToken handles POST /wallets/{address}/tokens/{token}/refresh
// @Summary      Refresh token balance
// @Tags         tokens
// @Produce      json
// @Param        address  path      string  true  "Wallet address"
// @Param        token    path      string  true  "Token contract address"
// @Success      200      {object}  model.TokenResponse
// @Failure      404      {object}  model.ErrorResponse
// @Router       /wallets/{address}/tokens/{token}/refresh [post]
func (h *WalletHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	addr, ok := h.pathAddress(w, r, "address")
	if !ok {
		return
	}
	token, ok := h.pathAddress(w, r, "token")
	if !ok {
		return
	}

	bal, err := h.manager.RefreshToken(r.Context(), addr, token)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.TokenResponse{TokenAddress: token.Hex(), Balance: bal.String()})
}

// RemoveToken handles DELETE /wallets/{address}/tokens/{token}
// @Summary      Stop tracking token
// @Tags         tokens
// @Param        address  path  string  true  "Wallet address"
// @Param        token    path  string  true  "Token contract address"
// @Success      204
// @Failure      404  {object}  model.ErrorResponse
// @Router       /wallets/{address}/tokens/{token} [delete]
func (h *WalletHandler) RemoveToken(w http.ResponseWriter, r *http.Request) {
	addr, ok := h.pathAddress(w, r, "address")
	if !ok {
		return
	}
	token, ok := h.pathAddress(w, r, "token")
	if !ok {
		return
	}
	if err := h.manager.RemoveToken(addr, token); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TransactionHistory handles GET /wallets/{address}/transactions
// @Summary      Get wallet transactions
// @Description  Lists transactions submitted by this service with optional filters
// @Tags         transactions
// @Produce      json
// @Param        address  path      string  true   "Wallet address"
// @Param        status   query     string  false  "PENDING, CONFIRMED or FAILED"
// @Param        to       query     string  false  "Recipient address"
// @Param        from     query     string  false  "Start date (YYYY-MM-DD)"
// @Param        until    query     string  false  "End date (YYYY-MM-DD), inclusive"
// @Success      200      {object}  model.HistoryResponse
// @Failure      400      {object}  model.ErrorResponse
// @Router       /wallets/{address}/transactions [get]
func (h *WalletHandler) TransactionHistory(w http.ResponseWriter, r *http.Request) {
	addr, ok := h.pathAddress(w, r, "address")
	if !ok {
		return
	}

	filter, err := parseHistoryFilter(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	txs, err := h.manager.History(addr, filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.HistoryResponse{Address: addr.Hex(), Transactions: txs})
}

// Stats handles GET /wallets/{address}/stats
// @Summary      Wallet statistics
// @Tags         wallets
// @Produce      json
// @Param        address  path      string  true  "Wallet address"
// @Success      200      {object}  model.WalletStats
// @Router       /wallets/{address}/stats [get]
func (h *WalletHandler) Stats(w http.ResponseWriter, r *http.Request) {
	addr, ok := h.pathAddress(w, r, "address")
	if !ok {
		return
	}
	stats, err := h.manager.Stats(addr)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// GasPrice handles GET /gas-price
// @Summary      Current gas price
// @Tags         chain
// @Produce      json
// @Success      200  {object}  model.GasPriceResponse
// @Failure      502  {object}  model.ErrorResponse
// @Router       /gas-price [get]
func (h *WalletHandler) GasPrice(w http.ResponseWriter, r *http.Request) {
	price, err := h.manager.GasPrice(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.GasPriceResponse{Wei: price.String(), Gwei: units.WeiToGwei(price)})
}

// ExportBackup handles POST /backup/export
// @Summary      Export backup
// @Description  Writes all wallets and encrypted keys to the backup file
// @Tags         backup
// @Accept       json
// @Produce      json
// @Param        request  body      model.BackupRequest  false  "File name inside the backup directory"
// @Success      200      {object}  model.BackupResponse
// @Router       /backup/export [post]
func (h *WalletHandler) ExportBackup(w http.ResponseWriter, r *http.Request) {
	var req model.BackupRequest
	if !h.decodeOptional(w, r, &req) {
		return
	}
	path, err := h.manager.BackupPathFor(req.Path)
	if err != nil {
		h.writeError(w, err)
		return
	}
	path, n, err := h.manager.ExportBackup(path)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.BackupResponse{Path: path, Wallets: n})
}

// RestoreBackup handles POST /backup/restore
// @Summary      Restore backup
// @Description  Replaces all wallets with the contents of the backup file, all or nothing
// @Tags         backup
// @Accept       json
// @Produce      json
// @Param        request  body      model.BackupRequest  false  "File name inside the backup directory"
// @Success      200      {object}  model.BackupResponse
// @Failure      422      {object}  model.ErrorResponse
// @Router       /backup/restore [post]
func (h *WalletHandler) RestoreBackup(w http.ResponseWriter, r *http.Request) {
	var req model.BackupRequest
	if !h.decodeOptional(w, r, &req) {
		return
	}
	path, err := h.manager.BackupPathFor(req.Path)
	if err != nil {
		h.writeError(w, err)
		return
	}
	path, n, err := h.manager.RestoreBackup(path)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.BackupResponse{Path: path, Wallets: n})
}

func (h *WalletHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, fmt.Errorf("%w: limit is %d bytes", errBodyTooLarge, tooLarge.Limit))
			return false
		}
		h.writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return false
	}
	return true
}

// decodeOptional accepts an empty body.
func (h *WalletHandler) decodeOptional(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.ContentLength == 0 {
		return true
	}
	return h.decode(w, r, v)
}

func (h *WalletHandler) pathAddress(w http.ResponseWriter, r *http.Request, name string) (common.Address, bool) {
	addr, err := wallet.ParseAddress(r.PathValue(name))
	if err != nil {
		h.writeError(w, err)
		return common.Address{}, false
	}
	return addr, true
}

// writeError maps domain errors onto status codes.
func (h *WalletHandler) writeError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, model.ErrorResponse{Error: err.Error(), Code: code})
}

func classify(err error) (int, string) {
	var chainErr *client.ChainClientError

	switch {
	case errors.Is(err, keys.ErrMalformedKey):
		return http.StatusBadRequest, model.CodeMalformedKey
	case errors.Is(err, registry.ErrAddressAlreadyExists), errors.Is(err, wallet.ErrConcurrentChange):
		return http.StatusConflict, model.CodeAddressAlreadyExists
	case errors.Is(err, registry.ErrWalletNotFound), errors.Is(err, wallet.ErrTokenNotTracked),
		errors.Is(err, os.ErrNotExist):
		return http.StatusNotFound, model.CodeWalletNotFound
	case errors.Is(err, keystore.ErrAuthenticationFailed):
		return http.StatusUnauthorized, model.CodeAuthenticationFailed
	case errors.Is(err, wallet.ErrCooldownActive):
		return http.StatusTooManyRequests, model.CodeCooldown
	case errors.Is(err, signer.ErrSubmissionFailed):
		return http.StatusBadGateway, model.CodeSubmissionFailed
	case errors.Is(err, backup.ErrCorruptBackup), errors.Is(err, backup.ErrKDFMismatch):
		return http.StatusUnprocessableEntity, model.CodeCorruptBackup
	case errors.As(err, &chainErr):
		return http.StatusBadGateway, model.CodeChainClient
	case errors.Is(err, errBodyTooLarge):
		return http.StatusRequestEntityTooLarge, model.CodeBadRequest
	case errors.Is(err, errBadRequest),
		errors.Is(err, wallet.ErrInvalidAddress),
		errors.Is(err, wallet.ErrInvalidName),
		errors.Is(err, wallet.ErrInvalidAmount),
		errors.Is(err, wallet.ErrEmptyPassword),
		errors.Is(err, wallet.ErrMalformedSignature),
		errors.Is(err, wallet.ErrNoBackupPath),
		errors.Is(err, wallet.ErrInvalidBackupName):
		return http.StatusBadRequest, model.CodeBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, model.CodeInternal
	default:
		return http.StatusInternalServerError, model.CodeInternal
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func toTransactionRequest(req model.SendRequest) (model.TransactionRequest, error) {
	to, err := wallet.ParseAddress(req.ToAddress)
	if err != nil {
		return model.TransactionRequest{}, err
	}

	value, err := units.EtherToWei(req.Amount)
	if err != nil {
		return model.TransactionRequest{}, fmt.Errorf("%w: invalid amount: %v", errBadRequest, err)
	}

	out := model.TransactionRequest{
		To:       to,
		Value:    value,
		GasLimit: req.GasLimit,
		Nonce:    req.Nonce,
	}
	if req.GasPrice != "" {
		if out.GasPrice, err = parseWei(req.GasPrice, "gasPrice"); err != nil {
			return model.TransactionRequest{}, err
		}
	}
	if req.Data != "" {
		if out.Data, err = hexutil.Decode(req.Data); err != nil {
			return model.TransactionRequest{}, fmt.Errorf("%w: invalid data: %v", errBadRequest, err)
		}
	}
	return out, nil
}

func parseWei(s, field string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("%w: %s must be a non-negative integer", errBadRequest, field)
	}
	return v, nil
}

func parseHistoryFilter(r *http.Request) (*model.HistoryFilter, error) {
	const dateLayout = "2006-01-02"
	q := r.URL.Query()
	var f model.HistoryFilter

	if s := q.Get("status"); s != "" {
		status := model.TxStatus(s)
		f.Status = &status
	}
	if s := q.Get("to"); s != "" {
		to, err := wallet.ParseAddress(s)
		if err != nil {
			return nil, err
		}
		f.To = &to
	}
	if s := q.Get("from"); s != "" {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid from date: use YYYY-MM-DD (e.g. 2006-01-02)", errBadRequest)
		}
		f.From = &t
	}
	if s := q.Get("until"); s != "" {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid until date: use YYYY-MM-DD (e.g. 2006-01-02)", errBadRequest)
		}
		// End of day so filter is inclusive
		t = t.Add(24*time.Hour - time.Nanosecond)
		f.Until = &t
	}

	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return &f, nil
}

func balanceString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// generateQRCode generates QR code of address in base64
func generateQRCode(address string) (string, error) {
	qr, err := qrcode.New(address, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("failed to create QR code: %w", err)
	}

	png, err := qr.PNG(256)
	if err != nil {
		return "", fmt.Errorf("failed to generate PNG: %w", err)
	}
	return base64.StdEncoding.EncodeToString(png), nil
}
