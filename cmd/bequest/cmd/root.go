package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmcleod/bequest/crypto"
	"github.com/jmcleod/bequest/envelope"
	"github.com/jmcleod/bequest/internal/config"
)

// Version is set at build time with -ldflags "-X .../cmd.Version=...".
var Version = "dev"

// globals holds settings shared by every subcommand. Flags are bound directly
// to cfg, with defaults taken from the environment.
type globals struct {
	cfg    *config.Config
	envErr error
	logger *slog.Logger
}

// NewRootCmd builds the bequest command tree.
func NewRootCmd() *cobra.Command {
	g := &globals{}
	g.cfg, g.envErr = config.FromEnv()

	root := &cobra.Command{
		Use:   "bequest",
		Short: "Bequest issues and validates license files",
		Long: `Bequest seals a payload into a tamper-evident license file bound to a
password and/or the hardware id of a machine, optionally with an expiry.
Complete documentation is available at https://github.com/jmcleod/bequest`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if g.envErr != nil {
				return g.envErr
			}
			if err := g.cfg.Validate(); err != nil {
				return err
			}
			logger, err := g.cfg.Logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			g.logger = logger
			return nil
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&g.cfg.DataDir, "data-dir", g.cfg.DataDir, "Directory for persistent data")
	f.StringVar(&g.cfg.Store, "store", g.cfg.Store, "License store: file, bolt, postgres or memory")
	f.StringVar(&g.cfg.PostgresDSN, "postgres-dsn", g.cfg.PostgresDSN, "PostgreSQL connection string for the postgres store")
	f.StringVar(&g.cfg.KDF, "kdf", g.cfg.KDF, "Key derivation: sha256 or argon2id")
	f.StringVar(&g.cfg.KDFProfile, "kdf-profile", g.cfg.KDFProfile, "Argon2id profile: interactive, moderate or sensitive")
	f.BoolVar(&g.cfg.Watermark, "watermark", g.cfg.Watermark, "Guard expiry checks against clock rollback")
	f.StringVar(&g.cfg.LogLevel, "log-level", g.cfg.LogLevel, "Log level: debug, info, warn or error")
	f.StringVar(&g.cfg.LogFormat, "log-format", g.cfg.LogFormat, "Log format: text or json")

	root.AddCommand(
		newIssueCmd(g),
		newVerifyCmd(g),
		newInspectCmd(g),
		newHWIDCmd(),
		newServerCmd(g),
		newVersionCmd(),
	)
	return root
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		var invalid *invalidLicenseError
		if !errors.As(err, &invalid) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		return 1
	}
	return 0
}

func newCodec(d crypto.KeyDeriver) *envelope.Codec {
	return envelope.NewCodec(envelope.WithKeyDeriver(d))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "bequest %s\n", Version)
		},
	}
}
