package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/AlexZinkM/custody-wallet/internal/api"
	"github.com/AlexZinkM/custody-wallet/internal/client"
	"github.com/AlexZinkM/custody-wallet/internal/config"
	"github.com/AlexZinkM/custody-wallet/internal/handler"
	"github.com/AlexZinkM/custody-wallet/internal/keystore"
	"github.com/AlexZinkM/custody-wallet/internal/metrics"
	"github.com/AlexZinkM/custody-wallet/internal/registry"
	"github.com/AlexZinkM/custody-wallet/internal/signer"
	"github.com/AlexZinkM/custody-wallet/internal/wallet"
)

const shutdownTimeout = 15 * time.Second

// ServeCmd runs the HTTP API.
type ServeCmd struct {
	BaseCmd
	// Skip loading BACKUP_PATH at startup.
	NoLoad bool
	// Skip writing BACKUP_PATH at shutdown.
	NoSave bool
}

func GetServeCmd() *ServeCmd {
	c := new(ServeCmd)
	c.Cmd = &cobra.Command{
		Use:     "serve",
		Short:   "Start the wallet HTTP API. Configuration is read from the environment.",
		Example: "CHAIN_RPC_URL=http://127.0.0.1:8545 walletd serve",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return c.serve(ctx)
		},
	}

	c.Cmd.Flags().BoolVar(&c.NoLoad, "no-load", false, "start with an empty registry")
	c.Cmd.Flags().BoolVar(&c.NoSave, "no-save", false, "do not export a backup on shutdown")

	return c
}

func (c *ServeCmd) serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := cfg.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer log.Sync()

	chain, err := client.NewEthereumClient(ctx, cfg.ChainRPCURL, cfg.RPCTimeout, log)
	if err != nil {
		return err
	}
	defer chain.Close()

	chainID := cfg.ChainIDBig()
	if chainID == nil {
		if chainID, err = chain.ChainID(ctx); err != nil {
			return fmt.Errorf("failed to discover chain id: %w", err)
		}
	}

	cipher, err := keystore.NewCipher(cfg.KDFParams())
	if err != nil {
		return err
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(promReg)

	reg := registry.New()
	sgn, err := signer.New(signer.Config{
		ChainID:         chainID,
		DefaultGasLimit: cfg.DefaultGasLimit,
	}, reg, cipher, chain, m, log)
	if err != nil {
		return err
	}

	mgr := wallet.New(wallet.Config{
		SendInterval:  cfg.SendInterval,
		BackupPath:    cfg.BackupPath,
		BackupArchive: cfg.BackupArchive,
	}, reg, cipher, chain, sgn, m, log)

	if !c.NoLoad {
		n, err := mgr.LoadBackup()
		if err != nil {
			return fmt.Errorf("failed to load backup %s: %w", cfg.BackupPath, err)
		}
		log.Info("wallets loaded", zap.String("path", cfg.BackupPath), zap.Int("wallets", n))
	}

	h := handler.NewWalletHandler(mgr, client.NewCoinGeckoClient(cfg.PriceAPIURL), cfg.FiatCurrency, log)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.SetupRouter(h, promReg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("API server listening",
			zap.String("addr", srv.Addr), zap.Stringer("chainID", chainID), zap.Stringer("kdf", cipher.Params()))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down API server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()

	if !c.NoSave {
		if path, n, berr := mgr.ExportBackup(""); berr != nil {
			log.Error("final backup failed", zap.Error(berr))
			err = errors.Join(err, berr)
		} else {
			log.Info("final backup written", zap.String("path", path), zap.Int("wallets", n))
		}
	}
	return err
}
