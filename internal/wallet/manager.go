// Package wallet is the public face of the custody service: it ties key
// generation, the keystore, the registry, the signer and the backup file
// together into the operations exposed to the API and CLI.
package wallet

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"github.com/AlexZinkM/custody-wallet/internal/client"
	"github.com/AlexZinkM/custody-wallet/internal/keys"
	"github.com/AlexZinkM/custody-wallet/internal/keystore"
	"github.com/AlexZinkM/custody-wallet/internal/metrics"
	"github.com/AlexZinkM/custody-wallet/internal/model"
	"github.com/AlexZinkM/custody-wallet/internal/registry"
	"github.com/AlexZinkM/custody-wallet/internal/signer"
)

// MaxNameLen bounds wallet display names.
const MaxNameLen = 64

var (
	// ErrInvalidAddress is returned for strings that are not 20-byte hex addresses.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrInvalidName is returned for empty or overlong wallet names.
	ErrInvalidName = errors.New("invalid wallet name")

	// ErrEmptyPassword is returned when a password is required but empty.
	ErrEmptyPassword = errors.New("password cannot be empty")

	// ErrConcurrentChange is returned when the key entry changed between
	// password verification and the update that depended on it.
	ErrConcurrentChange = errors.New("wallet key changed concurrently, retry")
)

// Config holds the manager's tunables.
type Config struct {
	// SendInterval is the minimum time between two successful sends from the
	// same address. Zero disables the cooldown.
	SendInterval time.Duration

	// BackupPath is the default backup file used when callers pass no path.
	BackupPath string

	// BackupArchive keeps previous backup versions next to the file.
	BackupArchive bool
}

// Manager implements the wallet operations.
type Manager struct {
	registry *registry.Registry
	cipher   *keystore.Cipher
	chain    client.Chain
	signer   *signer.Signer
	keygen   *keys.Generator
	metrics  *metrics.Metrics
	log      *zap.Logger
	now      func() time.Time

	cfg Config

	limitersMu sync.Mutex
	limiters   map[common.Address]*cooldown

	// backupMu serializes writers of the same backup files.
	backupMu sync.Mutex
}

// New returns a Manager. All collaborators are required.
func New(cfg Config, reg *registry.Registry, cipher *keystore.Cipher, chain client.Chain,
	sgn *signer.Signer, m *metrics.Metrics, log *zap.Logger) *Manager {

	return &Manager{
		registry: reg,
		cipher:   cipher,
		chain:    chain,
		signer:   sgn,
		keygen:   keys.NewGenerator(),
		metrics:  m,
		log:      log.Named("wallet"),
		now:      time.Now,
		cfg:      cfg,
		limiters: make(map[common.Address]*cooldown),
	}
}

// CreateWallet generates a new key pair, encrypts it under password and
// registers it as name.
// password must be []byte for security (caller should zero it after use)
func (m *Manager) CreateWallet(name string, password []byte) (common.Address, error) {
	kp, err := m.keygen.Generate()
	if err != nil {
		return common.Address{}, err
	}
	defer kp.Zero()

	return m.store(kp, name, password)
}

// ImportWallet registers an existing private key given as hex.
// password must be []byte for security (caller should zero it after use)
func (m *Manager) ImportWallet(privateKeyHex string, name string, password []byte) (common.Address, error) {
	kp, err := keys.ImportHex(privateKeyHex)
	if err != nil {
		return common.Address{}, err
	}
	defer kp.Zero()

	// Fail before paying for the KDF.
	if _, err := m.registry.Get(kp.Address()); err == nil {
		return common.Address{}, fmt.Errorf("%w: %s", registry.ErrAddressAlreadyExists, kp.Address())
	}

	return m.store(kp, name, password)
}

func (m *Manager) store(kp *keys.KeyPair, name string, password []byte) (common.Address, error) {
	name, err := validName(name)
	if err != nil {
		return common.Address{}, err
	}
	if len(password) == 0 {
		return common.Address{}, ErrEmptyPassword
	}

	raw := kp.Bytes()
	defer clear(raw)

	addr := kp.Address()
	entry, err := m.cipher.Encrypt(addr, raw, password)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to encrypt key: %w", err)
	}

	if err := m.registry.Register(model.NewWalletRecord(addr, name, m.now()), *entry); err != nil {
		return common.Address{}, err
	}
	m.metrics.Wallets.Set(float64(m.registry.Len()))

	m.log.Info("wallet registered", zap.Stringer("address", addr), zap.String("name", name))
	return addr, nil
}

// GetWallet returns a copy of the wallet record.
func (m *Manager) GetWallet(addr common.Address) (model.WalletRecord, error) {
	return m.registry.Get(addr)
}

// ListAddresses returns every custodied address in ascending order.
func (m *Manager) ListAddresses() []common.Address {
	return m.registry.Addresses()
}

// RenameWallet changes the display name.
func (m *Manager) RenameWallet(addr common.Address, name string) error {
	name, err := validName(name)
	if err != nil {
		return err
	}
	return m.registry.Mutate(addr, func(w *model.WalletRecord) error {
		w.Name = name
		return nil
	})
}

// ChangePassword re-encrypts the key of addr under newPassword. A fresh salt
// and nonce are drawn; the old entry is replaced wholesale.
// passwords must be []byte for security (caller should zero them after use)
func (m *Manager) ChangePassword(addr common.Address, oldPassword, newPassword []byte) error {
	if len(newPassword) == 0 {
		return ErrEmptyPassword
	}

	current, err := m.registry.KeyEntry(addr)
	if err != nil {
		return err
	}

	raw, err := m.cipher.Decrypt(&current, oldPassword)
	if err != nil {
		return err
	}
	defer clear(raw)

	next, err := m.cipher.Encrypt(addr, raw, newPassword)
	if err != nil {
		return fmt.Errorf("failed to encrypt key: %w", err)
	}

	err = m.registry.ReplaceKey(addr, *next, func(now keystore.EncryptedKey) error {
		return sameEntry(current, now)
	})
	if err != nil {
		return err
	}

	m.log.Info("wallet password changed", zap.Stringer("address", addr))
	return nil
}

// DeleteWallet removes the wallet and its key after verifying password.
// password must be []byte for security (caller should zero it after use)
func (m *Manager) DeleteWallet(addr common.Address, password []byte) error {
	current, err := m.registry.KeyEntry(addr)
	if err != nil {
		return err
	}
	if err := m.cipher.Verify(&current, password); err != nil {
		return err
	}

	err = m.registry.Remove(addr, func(e registry.Entry) error {
		return sameEntry(current, e.Key)
	})
	if err != nil {
		return err
	}

	m.forgetLimiter(addr)
	m.metrics.Wallets.Set(float64(m.registry.Len()))
	m.log.Info("wallet deleted", zap.Stringer("address", addr))
	return nil
}

// ExportPrivateKey returns the 0x-prefixed hex private key of addr.
// password must be []byte for security (caller should zero it after use)
func (m *Manager) ExportPrivateKey(addr common.Address, password []byte) (string, error) {
	kp, err := m.signer.Unlock(addr, password)
	if err != nil {
		return "", err
	}
	defer kp.Zero()

	raw := kp.Bytes()
	defer clear(raw)

	m.log.Warn("private key exported", zap.Stringer("address", addr))
	return hexutil.Encode(raw), nil
}

// ParseAddress validates and parses a hex address with 0x prefix.
func ParseAddress(s string) (common.Address, error) {
	if !ValidateAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return common.HexToAddress(s), nil
}

// ValidateAddress reports whether s is a 0x-prefixed 20-byte hex address.
// Mixed-case input must carry a valid checksum.
func ValidateAddress(s string) bool {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return false
	}
	if !common.IsHexAddress(s) {
		return false
	}
	body := s[2:]
	if body == strings.ToLower(body) || body == strings.ToUpper(body) {
		return true
	}
	return common.HexToAddress(s).Hex()[2:] == body
}

func validName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > MaxNameLen {
		return "", fmt.Errorf("%w: must be 1-%d characters", ErrInvalidName, MaxNameLen)
	}
	return name, nil
}

func sameEntry(want, got keystore.EncryptedKey) error {
	if !bytes.Equal(want.Ciphertext, got.Ciphertext) ||
		!bytes.Equal(want.Salt, got.Salt) ||
		!bytes.Equal(want.Nonce, got.Nonce) {
		return ErrConcurrentChange
	}
	return nil
}
