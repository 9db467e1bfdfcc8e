package client

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// EthereumClient is a Chain backed by a JSON-RPC endpoint.
type EthereumClient struct {
	rpcClient *ethclient.Client
	rpcURL    string
	timeout   time.Duration
	log       *zap.Logger
}

// NewEthereumClient dials the JSON-RPC endpoint at rpcURL. timeout bounds
// every individual call; zero means the caller's context alone decides.
func NewEthereumClient(ctx context.Context, rpcURL string, timeout time.Duration, log *zap.Logger) (*EthereumClient, error) {
	rpcClient, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", rpcURL, err)
	}

	return &EthereumClient{
		rpcClient: rpcClient,
		rpcURL:    rpcURL,
		timeout:   timeout,
		log:       log.Named("chain"),
	}, nil
}

// Close releases the underlying RPC connection.
func (c *EthereumClient) Close() {
	c.rpcClient.Close()
}

func (c *EthereumClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// ChainID returns the chain id used for replay-protected signing.
func (c *EthereumClient) ChainID(ctx context.Context) (*big.Int, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	id, err := c.rpcClient.ChainID(ctx)
	return id, wrap("chain id", err)
}

// GasPrice returns the node's suggested legacy gas price in wei.
func (c *EthereumClient) GasPrice(ctx context.Context) (*big.Int, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	price, err := c.rpcClient.SuggestGasPrice(ctx)
	return price, wrap("gas price", err)
}

// Nonce returns the pending transaction count of address.
func (c *EthereumClient) Nonce(ctx context.Context, address common.Address) (uint64, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	nonce, err := c.rpcClient.PendingNonceAt(ctx, address)
	return nonce, wrap("nonce", err)
}

// EstimateGas asks the node how much gas msg would consume.
func (c *EthereumClient) EstimateGas(ctx context.Context, msg CallMsg) (uint64, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	gas, err := c.rpcClient.EstimateGas(ctx, toCallMsg(msg))
	return gas, wrap("estimate gas", err)
}

// SubmitRawTransaction broadcasts an already signed, RLP/typed-envelope
// encoded transaction and returns the hash reported by the node.
func (c *EthereumClient) SubmitRawTransaction(ctx context.Context, raw []byte) (common.Hash, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var hash common.Hash
	err := c.rpcClient.Client().CallContext(ctx, &hash, "eth_sendRawTransaction", hexutil.Encode(raw))
	if err != nil {
		return common.Hash{}, wrap("send raw transaction", err)
	}

	c.log.Debug("raw transaction submitted", zap.Stringer("hash", hash))
	return hash, nil
}

// Balance returns the latest balance of address in wei.
func (c *EthereumClient) Balance(ctx context.Context, address common.Address) (*big.Int, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	balance, err := c.rpcClient.BalanceAt(ctx, address, nil)
	return balance, wrap("balance", err)
}

// CallContract executes a read-only call against the latest block.
func (c *EthereumClient) CallContract(ctx context.Context, msg CallMsg) ([]byte, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	out, err := c.rpcClient.CallContract(ctx, toCallMsg(msg), nil)
	return out, wrap("call contract", err)
}

func toCallMsg(msg CallMsg) ethereum.CallMsg {
	return ethereum.CallMsg{
		From:     msg.From,
		To:       msg.To,
		Value:    msg.Value,
		Data:     msg.Data,
		GasPrice: msg.GasPrice,
	}
}
