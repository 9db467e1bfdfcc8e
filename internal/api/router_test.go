package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AlexZinkM/custody-wallet/internal/client/clienttest"
	"github.com/AlexZinkM/custody-wallet/internal/handler"
	"github.com/AlexZinkM/custody-wallet/internal/keystore"
	"github.com/AlexZinkM/custody-wallet/internal/metrics"
	"github.com/AlexZinkM/custody-wallet/internal/model"
	"github.com/AlexZinkM/custody-wallet/internal/registry"
	"github.com/AlexZinkM/custody-wallet/internal/signer"
	"github.com/AlexZinkM/custody-wallet/internal/wallet"
)

type fixedRate string

func (r fixedRate) EtherRate(context.Context, string) (string, error) {
	return string(r), nil
}

type server struct {
	t     *testing.T
	srv   *httptest.Server
	chain *clienttest.Fake
}

func newServer(t *testing.T) *server {
	t.Helper()

	cipher, err := keystore.NewCipher(keystore.KDFParams{
		Name: keystore.KDFScrypt, N: keystore.MinScryptN, R: 8, P: 1,
	})
	require.NoError(t, err)

	promReg := prometheus.NewRegistry()
	m := metrics.New(promReg)
	reg := registry.New()
	chain := clienttest.NewFake()

	sgn, err := signer.New(signer.Config{ChainID: chain.ID}, reg, cipher, chain, m, zap.NewNop())
	require.NoError(t, err)

	mgr := wallet.New(wallet.Config{BackupPath: filepath.Join(t.TempDir(), "wallets.json")},
		reg, cipher, chain, sgn, m, zap.NewNop())
	h := handler.NewWalletHandler(mgr, fixedRate("2000.50"), "usd", zap.NewNop())

	srv := httptest.NewServer(SetupRouter(h, promReg))
	t.Cleanup(srv.Close)
	return &server{t: t, srv: srv, chain: chain}
}

// do sends body as JSON and decodes the response into out when out is
// non-nil. It returns the status code.
func (s *server) do(method, path string, body, out any) int {
	s.t.Helper()

	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(s.t, err)
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, s.srv.URL+path, rd)
	require.NoError(s.t, err)

	resp, err := s.srv.Client().Do(req)
	require.NoError(s.t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(s.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (s *server) create(name, password string) string {
	s.t.Helper()

	var resp model.CreateWalletResponse
	code := s.do(http.MethodPost, "/wallets", model.CreateWalletRequest{Name: name, Password: password}, &resp)
	require.Equal(s.t, http.StatusCreated, code)
	require.True(s.t, resp.Success)
	return resp.Address
}

func TestWalletLifecycle(t *testing.T) {
	t.Parallel()
	s := newServer(t)

	var created model.CreateWalletResponse
	code := s.do(http.MethodPost, "/wallets", model.CreateWalletRequest{Name: "alice", Password: "pw"}, &created)
	require.Equal(t, http.StatusCreated, code)
	require.True(t, wallet.ValidateAddress(created.Address))

	png, err := base64.StdEncoding.DecodeString(created.QR)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	addr := created.Address

	var list model.WalletListResponse
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/wallets", nil, &list))
	require.Equal(t, []string{addr}, list.Addresses)

	require.Equal(t, http.StatusNoContent,
		s.do(http.MethodPatch, "/wallets/"+addr, model.RenameRequest{Name: "treasury"}, nil))

	var rec model.WalletRecord
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/wallets/"+strings.ToLower(addr), nil, &rec))
	require.Equal(t, "treasury", rec.Name)

	// Wrong password leaves the wallet in place.
	var apiErr model.ErrorResponse
	code = s.do(http.MethodDelete, "/wallets/"+addr, model.PasswordRequest{Password: "nope"}, &apiErr)
	require.Equal(t, http.StatusUnauthorized, code)
	require.Equal(t, model.CodeAuthenticationFailed, apiErr.Code)

	require.Equal(t, http.StatusNoContent,
		s.do(http.MethodDelete, "/wallets/"+addr, model.PasswordRequest{Password: "pw"}, nil))

	code = s.do(http.MethodGet, "/wallets/"+addr, nil, &apiErr)
	require.Equal(t, http.StatusNotFound, code)
	require.Equal(t, model.CodeWalletNotFound, apiErr.Code)
}

func TestImportConflict(t *testing.T) {
	t.Parallel()
	s := newServer(t)

	req := model.ImportWalletRequest{
		PrivateKey: "0x0000000000000000000000000000000000000000000000000000000000000001",
		Name:       "one",
		Password:   "pw",
	}
	var created model.CreateWalletResponse
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/wallets/import", req, &created))
	require.Equal(t, "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf", created.Address)

	var apiErr model.ErrorResponse
	require.Equal(t, http.StatusConflict, s.do(http.MethodPost, "/wallets/import", req, &apiErr))
	require.Equal(t, model.CodeAddressAlreadyExists, apiErr.Code)

	req.PrivateKey = "0x1234"
	require.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/wallets/import", req, &apiErr))
	require.Equal(t, model.CodeMalformedKey, apiErr.Code)

	var key model.ExportKeyResponse
	require.Equal(t, http.StatusOK,
		s.do(http.MethodPost, "/wallets/"+created.Address+"/export", model.PasswordRequest{Password: "pw"}, &key))
	require.Equal(t, "0x0000000000000000000000000000000000000000000000000000000000000001", key.PrivateKey)
}

func TestBalanceAndSend(t *testing.T) {
	t.Parallel()
	s := newServer(t)

	from := s.create("alice", "pw")
	to := s.create("bob", "pw")
	s.chain.Balances[common.HexToAddress(from)] = big.NewInt(2_000_000_000_000_000_000)

	var bal model.BalanceResponse
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/wallets/"+from+"/balance?refresh=true", nil, &bal))
	require.Equal(t, "2000000000000000000", bal.Wei)
	require.Equal(t, "2000.50", bal.Rate)
	require.Equal(t, "4001.00", bal.Fiat)
	require.Equal(t, "usd", bal.Currency)

	var sent model.SendResponse
	code := s.do(http.MethodPost, "/wallets/"+from+"/send",
		model.SendRequest{ToAddress: to, Amount: "0.5", Password: "pw"}, &sent)
	require.Equal(t, http.StatusOK, code)

	txs := s.chain.Submitted()
	require.Len(t, txs, 1)
	require.Equal(t, txs[0].Hash().Hex(), sent.TxHash)
	require.Equal(t, "500000000000000000", txs[0].Value().String())
	require.Equal(t, uint64(21000), txs[0].Gas())

	var history model.HistoryResponse
	require.Equal(t, http.StatusOK,
		s.do(http.MethodGet, "/wallets/"+from+"/transactions?status=PENDING&to="+to, nil, &history))
	require.Len(t, history.Transactions, 1)
	require.Equal(t, uint64(0), history.Transactions[0].Nonce)

	var apiErr model.ErrorResponse
	code = s.do(http.MethodGet, "/wallets/"+from+"/transactions?status=LOST", nil, &apiErr)
	require.Equal(t, http.StatusBadRequest, code)

	code = s.do(http.MethodPost, "/wallets/"+from+"/send",
		model.SendRequest{ToAddress: to, Amount: "0.5", Password: "wrong"}, &apiErr)
	require.Equal(t, http.StatusUnauthorized, code)

	code = s.do(http.MethodPost, "/wallets/"+from+"/send",
		model.SendRequest{ToAddress: "0xnothex", Amount: "0.5", Password: "pw"}, &apiErr)
	require.Equal(t, http.StatusBadRequest, code)

	s.chain.SetFailSubmit(true)
	code = s.do(http.MethodPost, "/wallets/"+from+"/send",
		model.SendRequest{ToAddress: to, Amount: "0.5", Password: "pw"}, &apiErr)
	require.Equal(t, http.StatusBadGateway, code)
	require.Equal(t, model.CodeSubmissionFailed, apiErr.Code)

	var stats model.WalletStats
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/wallets/"+from+"/stats", nil, &stats))
	require.Equal(t, 1, stats.TransactionCount)
	require.Equal(t, uint64(1), stats.Nonce)
}

func TestSignAndVerify(t *testing.T) {
	t.Parallel()
	s := newServer(t)
	addr := s.create("alice", "pw")

	var sig model.SignMessageResponse
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/wallets/"+addr+"/sign",
		model.SignMessageRequest{Message: "hello", Password: "pw"}, &sig))

	var res model.VerifySignatureResponse
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/signatures/verify",
		model.VerifySignatureRequest{Message: "hello", Signature: sig.Signature, Address: addr}, &res))
	require.True(t, res.Valid)

	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/signatures/verify",
		model.VerifySignatureRequest{Message: "hello!", Signature: sig.Signature, Address: addr}, &res))
	require.False(t, res.Valid)

	var apiErr model.ErrorResponse
	require.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/signatures/verify",
		model.VerifySignatureRequest{Message: "hello", Signature: "0x00", Address: addr}, &apiErr))
}

func TestTokens(t *testing.T) {
	t.Parallel()
	s := newServer(t)
	addr := s.create("alice", "pw")
	token := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	s.chain.TokenBals[token] = map[common.Address]*big.Int{common.HexToAddress(addr): big.NewInt(900)}

	s.chain.TokenMeta[token] = clienttest.TokenMeta{
		Name: "Test Dollar", Symbol: "TUSD", Decimals: 6, Supply: big.NewInt(1_000_000),
	}

	var tok model.TokenResponse
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/wallets/"+addr+"/tokens",
		model.TokenRequest{TokenAddress: token.Hex()}, &tok))
	require.Equal(t, "900", tok.Balance)
	require.NotNil(t, tok.Info)
	require.Equal(t, "TUSD", tok.Info.Symbol)
	require.Equal(t, uint8(6), tok.Info.Decimals)

	var info model.TokenInfo
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/tokens/"+token.Hex(), nil, &info))
	require.Equal(t, model.TokenInfo{
		Address: token.Hex(), Name: "Test Dollar", Symbol: "TUSD", Decimals: 6, TotalSupply: "1000000",
	}, info)

	// The cached token balance follows a transfer.
	recipient := common.HexToAddress("0x00000000000000000000000000000000000000b0")
	s.chain.OnSubmit = func(*types.Transaction) error {
		s.chain.TokenBals[token][common.HexToAddress(addr)] = big.NewInt(600)
		return nil
	}
	var sent model.SendResponse
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/wallets/"+addr+"/send-token",
		model.SendTokenRequest{ToAddress: recipient.Hex(), TokenAddress: token.Hex(), Amount: "300", Password: "pw"}, &sent))

	var history model.HistoryResponse
	require.Equal(t, http.StatusOK,
		s.do(http.MethodGet, "/wallets/"+addr+"/transactions?to="+recipient.Hex(), nil, &history))
	require.Len(t, history.Transactions, 1)
	require.Equal(t, "300", history.Transactions[0].Value.String())
	require.Equal(t, token, *history.Transactions[0].Token)

	var bal model.BalanceResponse
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/wallets/"+addr+"/balance", nil, &bal))
	require.Equal(t, "600", bal.Tokens[token.Hex()])

	// Contracts without metadata are still tracked.
	bare := common.HexToAddress("0x00000000000000000000000000000000000000bb")
	tok = model.TokenResponse{}
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/wallets/"+addr+"/tokens",
		model.TokenRequest{TokenAddress: bare.Hex()}, &tok))
	require.Equal(t, "0", tok.Balance)
	require.Nil(t, tok.Info)

	var apiErr model.ErrorResponse
	require.Equal(t, http.StatusBadGateway, s.do(http.MethodGet, "/tokens/"+bare.Hex(), nil, &apiErr))

	require.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, "/wallets/"+addr+"/tokens/"+token.Hex(), nil, nil))

	require.Equal(t, http.StatusNotFound,
		s.do(http.MethodPost, "/wallets/"+addr+"/tokens/"+token.Hex()+"/refresh", nil, &apiErr))
}

func TestBackupEndpoints(t *testing.T) {
	t.Parallel()
	s := newServer(t)
	addr := s.create("alice", "pw")

	var out model.BackupResponse
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/backup/export", nil, &out))
	require.Equal(t, 1, out.Wallets)

	s.create("bob", "pw")

	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/backup/restore", nil, &out))
	require.Equal(t, 1, out.Wallets)

	var list model.WalletListResponse
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/wallets", nil, &list))
	require.Equal(t, []string{addr}, list.Addresses)

	var apiErr model.ErrorResponse
	require.Equal(t, http.StatusNotFound,
		s.do(http.MethodPost, "/backup/restore", model.BackupRequest{Path: "missing.json"}, &apiErr))

	// Named backups live next to the configured file.
	require.Equal(t, http.StatusOK,
		s.do(http.MethodPost, "/backup/export", model.BackupRequest{Path: "snapshot.json"}, &out))
	require.Equal(t, "snapshot.json", filepath.Base(out.Path))
	require.Equal(t, http.StatusOK,
		s.do(http.MethodPost, "/backup/restore", model.BackupRequest{Path: "snapshot.json"}, &out))

	outside := filepath.Join(t.TempDir(), "outside.json")
	for _, name := range []string{outside, "/tmp/x", "../x", "a/b.json", `a\b.json`, ".."} {
		for _, op := range []string{"/backup/export", "/backup/restore"} {
			apiErr = model.ErrorResponse{}
			require.Equal(t, http.StatusBadRequest,
				s.do(http.MethodPost, op, model.BackupRequest{Path: name}, &apiErr), "%s %s", op, name)
			require.Equal(t, model.CodeBadRequest, apiErr.Code)
		}
	}
	_, err := os.Stat(outside)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestGasPriceAndMetrics(t *testing.T) {
	t.Parallel()
	s := newServer(t)

	var gp model.GasPriceResponse
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/gas-price", nil, &gp))
	require.Equal(t, "1000000000", gp.Wei)

	s.chain.FailGas = true
	var apiErr model.ErrorResponse
	require.Equal(t, http.StatusBadGateway, s.do(http.MethodGet, "/gas-price", nil, &apiErr))
	require.Equal(t, model.CodeChainClient, apiErr.Code)

	resp, err := s.srv.Client().Get(s.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), "custody_wallet_")
}

func TestUnknownRoutes(t *testing.T) {
	t.Parallel()
	s := newServer(t)

	require.Equal(t, http.StatusMethodNotAllowed, s.do(http.MethodPut, "/wallets", nil, nil))
	require.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/nowhere", nil, nil))

	var apiErr model.ErrorResponse
	require.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/wallets/0x1234", nil, &apiErr))
	require.Equal(t, model.CodeBadRequest, apiErr.Code)
}
