package cmd

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"text/tabwriter"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AlexZinkM/custody-wallet/internal/backup"
	"github.com/AlexZinkM/custody-wallet/internal/config"
	"github.com/AlexZinkM/custody-wallet/internal/keystore"
)

// BackupCmd groups the offline backup tools.
type BackupCmd struct {
	BaseCmd
}

func GetBackupCmd() *BackupCmd {
	c := new(BackupCmd)
	c.Cmd = &cobra.Command{
		Use:   "backup",
		Short: "Inspect or re-encrypt a backup file. Run these with the server stopped.",
	}
	c.Cmd.AddCommand(GetInspectCmd().GetCmd())
	c.Cmd.AddCommand(GetRekeyCmd().GetCmd())
	return c
}

// InspectCmd prints the wallets of a backup file without decrypting anything.
type InspectCmd struct {
	BaseCmd
}

func GetInspectCmd() *InspectCmd {
	c := new(InspectCmd)
	c.Cmd = &cobra.Command{
		Use:     "inspect [path]",
		Short:   "Validate a backup file and list its wallets.",
		Example: "walletd backup inspect wallets.json",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "wallets.json"
			if len(args) == 1 {
				path = args[0]
			}
			return inspect(cmd.OutOrStdout(), path)
		},
	}
	return c
}

func inspect(out io.Writer, path string) error {
	doc, err := readDocument(path)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "version %d, kdf %s, %d wallets\n", doc.Version, doc.KDF, len(doc.Wallets))

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ADDRESS\tNAME\tNONCE\tTXS\tTOKENS\tCREATED")
	for _, key := range slices.Sorted(maps.Keys(doc.Wallets)) {
		w := doc.Wallets[key]
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n",
			key, w.Name, w.Nonce, len(w.Transactions), len(w.Tokens), w.CreatedAt.Format("2006-01-02"))
	}
	return tw.Flush()
}

const rekeyLong = `Re-encrypt a backup under the KDF configured in the environment
(KDF, SCRYPT_N, SCRYPT_R, SCRYPT_P, PBKDF2_ITERATIONS), prompting for each
wallet's password. Passwords are unchanged. The output is written only if
every wallet succeeds.`

// RekeyCmd re-encrypts every entry of a backup under a new KDF.
type RekeyCmd struct {
	BaseCmd
	In      string
	Out     string
	KDF     string
	Archive bool
}

func GetRekeyCmd() *RekeyCmd {
	c := new(RekeyCmd)
	c.Cmd = &cobra.Command{
		Use:     "rekey",
		Short:   "Re-encrypt a backup under the configured KDF, prompting for each wallet's password.",
		Long:    rekeyLong,
		Example: "KDF=pbkdf2 walletd backup rekey --in wallets.json",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if c.KDF != "" {
				cfg.KDF = c.KDF
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			log, err := cfg.NewLogger()
			if err != nil {
				return err
			}
			defer log.Sync()

			return c.rekey(cmd.OutOrStdout(), cfg.KDFParams(), promptPassword, log)
		},
	}

	c.Cmd.Flags().StringVarP(&c.In, "in", "i", "wallets.json", "backup file to read")
	c.Cmd.Flags().StringVarP(&c.Out, "out", "o", "", "file to write, defaults to --in")
	c.Cmd.Flags().StringVar(&c.KDF, "kdf", "", "target KDF (scrypt or pbkdf2), overrides KDF")
	c.Cmd.Flags().BoolVar(&c.Archive, "archive", true, "keep the replaced file under backup-archives")

	return c
}

func (c *RekeyCmd) rekey(out io.Writer, target keystore.KDFParams, password backup.PasswordFunc, log *zap.Logger) error {
	doc, err := readDocument(c.In)
	if err != nil {
		return err
	}
	if doc.KDF.Equal(target) {
		fmt.Fprintf(out, "%s already uses %s, nothing to do\n", c.In, target)
		return nil
	}

	next, err := backup.Rekey(doc, target, password)
	if err != nil {
		return err
	}
	data, err := next.Bytes()
	if err != nil {
		return err
	}

	dest := c.Out
	if dest == "" {
		dest = c.In
	}
	if err := backup.NewFile(dest, c.Archive, log).Write(data); err != nil {
		return err
	}

	log.Info("backup re-encrypted",
		zap.String("in", c.In), zap.String("out", dest),
		zap.Stringer("from", doc.KDF), zap.Stringer("to", target), zap.Int("wallets", len(next.Wallets)))
	fmt.Fprintf(out, "re-encrypted %d wallets from %s to %s into %s\n", len(next.Wallets), doc.KDF, target, dest)
	return nil
}

func promptPassword(addr common.Address) ([]byte, error) {
	return config.PromptForPassword(fmt.Sprintf("Password for %s: ", addr.Hex()))
}

func readDocument(path string) (*backup.Document, error) {
	data, err := backup.NewFile(path, false, zap.NewNop()).Read()
	if err != nil {
		return nil, fmt.Errorf("unable to read backup: %w", err)
	}
	return backup.Decode(data)
}
