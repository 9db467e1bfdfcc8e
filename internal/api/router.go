package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/AlexZinkM/custody-wallet/docs"
	"github.com/AlexZinkM/custody-wallet/internal/handler"
)

// SetupRouter sets up router with handlers. gatherer backs /metrics and may
// be nil to leave the endpoint out.
func SetupRouter(h *handler.WalletHandler, gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()

	// Swagger UI
	mux.HandleFunc("/swagger/", httpSwagger.WrapHandler)

	if gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	// Wallet endpoints
	mux.HandleFunc("POST /wallets", h.CreateWallet)
	mux.HandleFunc("POST /wallets/import", h.ImportWallet)
	mux.HandleFunc("GET /wallets", h.ListWallets)
	mux.HandleFunc("GET /wallets/{address}", h.GetWallet)
	mux.HandleFunc("PATCH /wallets/{address}", h.RenameWallet)
	mux.HandleFunc("DELETE /wallets/{address}", h.DeleteWallet)
	mux.HandleFunc("GET /wallets/{address}/balance", h.GetBalance)
	mux.HandleFunc("GET /wallets/{address}/stats", h.Stats)
	mux.HandleFunc("POST /wallets/{address}/password", h.ChangePassword)
	mux.HandleFunc("POST /wallets/{address}/export", h.ExportPrivateKey)

	// Transactions
	mux.HandleFunc("POST /wallets/{address}/send", h.Send)
	mux.HandleFunc("POST /wallets/{address}/send-token", h.SendToken)
	mux.HandleFunc("GET /wallets/{address}/transactions", h.TransactionHistory)
	mux.HandleFunc("GET /gas-price", h.GasPrice)

	// Tokens
	mux.HandleFunc("POST /wallets/{address}/tokens", h.AddToken)
	mux.HandleFunc("POST /wallets/{address}/tokens/{token}/refresh", h.RefreshToken)
	mux.HandleFunc("DELETE /wallets/{address}/tokens/{token}", h.RemoveToken)
	mux.HandleFunc("GET /tokens/{token}", h.TokenInfo)

	// Signatures
	mux.HandleFunc("POST /wallets/{address}/sign", h.SignMessage)
	mux.HandleFunc("POST /signatures/verify", h.VerifySignature)

	// Backup
	mux.HandleFunc("POST /backup/export", h.ExportBackup)
	mux.HandleFunc("POST /backup/restore", h.RestoreBackup)

	return mux
}
