package config

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/AlexZinkM/custody-wallet/internal/keystore"
)

// Config contains all configuration parameters for the application.
// Passwords are never part of it: they arrive per request or from the
// terminal prompt.
type Config struct {
	Port string `envconfig:"PORT" default:"8080"`

	ChainRPCURL string        `envconfig:"CHAIN_RPC_URL" default:"http://127.0.0.1:8545"`
	ChainID     int64         `envconfig:"CHAIN_ID"` // 0 asks the node
	RPCTimeout  time.Duration `envconfig:"RPC_TIMEOUT" default:"15s"`

	BackupPath    string `envconfig:"BACKUP_PATH" default:"wallets.json"`
	BackupArchive bool   `envconfig:"BACKUP_ARCHIVE" default:"true"`

	KDF              string `envconfig:"KDF" default:"scrypt"`
	ScryptN          int    `envconfig:"SCRYPT_N" default:"262144"`
	ScryptR          int    `envconfig:"SCRYPT_R" default:"8"`
	ScryptP          int    `envconfig:"SCRYPT_P" default:"1"`
	PBKDF2Iterations int    `envconfig:"PBKDF2_ITERATIONS" default:"600000"`

	DefaultGasLimit uint64        `envconfig:"DEFAULT_GAS_LIMIT" default:"21000"`
	SendInterval    time.Duration `envconfig:"SEND_INTERVAL" default:"0s"`

	PriceAPIURL  string `envconfig:"PRICE_API_URL" default:"https://api.coingecko.com/api/v3"`
	FiatCurrency string `envconfig:"FIAT_CURRENCY" default:"usd"`

	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	LogDevelopment bool   `envconfig:"LOG_DEVELOPMENT" default:"false"`
}

// Load reads configuration from environment variables and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints envconfig cannot express.
func (c *Config) Validate() error {
	if c.ChainRPCURL == "" {
		return errors.New("CHAIN_RPC_URL must be set")
	}
	if c.ChainID < 0 {
		return fmt.Errorf("CHAIN_ID must not be negative, got %d", c.ChainID)
	}
	if c.SendInterval < 0 {
		return fmt.Errorf("SEND_INTERVAL must not be negative, got %v", c.SendInterval)
	}
	if err := c.KDFParams().Validate(); err != nil {
		return fmt.Errorf("invalid KDF settings: %w", err)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	return nil
}

// KDFParams returns the keystore parameters selected by KDF.
func (c *Config) KDFParams() keystore.KDFParams {
	switch keystore.KDF(strings.ToLower(c.KDF)) {
	case keystore.KDFPBKDF2:
		return keystore.KDFParams{Name: keystore.KDFPBKDF2, Iterations: c.PBKDF2Iterations}
	case keystore.KDFScrypt:
		return keystore.KDFParams{Name: keystore.KDFScrypt, N: c.ScryptN, R: c.ScryptR, P: c.ScryptP}
	default:
		return keystore.KDFParams{Name: keystore.KDF(c.KDF)}
	}
}

// ChainIDBig returns the configured chain id, or nil when it should be
// discovered from the node.
func (c *Config) ChainIDBig() *big.Int {
	if c.ChainID == 0 {
		return nil
	}
	return big.NewInt(c.ChainID)
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_DEVELOPMENT.
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}

	zc := zap.NewProductionConfig()
	if c.LogDevelopment {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// PromptForPassword prompts for a password in the terminal without echo.
// The caller must clear the returned slice.
func PromptForPassword(prompt string) ([]byte, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, errors.New("stdin is not a terminal: run the command interactively to enter password")
	}
	fmt.Fprint(os.Stderr, prompt)
	defer fmt.Fprintln(os.Stderr)

	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	if len(raw) == 0 {
		return nil, errors.New("password cannot be empty")
	}

	out := make([]byte, len(raw))
	copy(out, raw)
	clear(raw)
	return out, nil
}
