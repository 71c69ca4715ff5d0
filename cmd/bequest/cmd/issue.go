package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmcleod/bequest/host"
	"github.com/jmcleod/bequest/license"
	"github.com/jmcleod/bequest/storage/file"
)

type issueFlags struct {
	password       string
	promptPassword bool
	hardwareID     string
	bindLocal      bool
	expires        string
	ttl            time.Duration
}

func newIssueCmd(g *globals) *cobra.Command {
	var fl issueFlags

	cmd := &cobra.Command{
		Use:   "issue PAYLOAD LICENSE",
		Short: "Seal a payload file into a license",
		Long: `Seal the file at PAYLOAD into a license written to LICENSE. The license is
bound to a password, a hardware id, or both; at least one is required.

With the file store LICENSE is a filesystem path. With the bolt, postgres and
memory stores it is the name of the license in that store.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := fl.createOptions(cmd)
			if err != nil {
				return err
			}

			b, err := openBackend(cmd.Context(), g.cfg, "")
			if err != nil {
				return err
			}
			defer b.Close()

			mopts, err := managerOptions(g.cfg, b, g.logger)
			if err != nil {
				return err
			}
			mopts = append(mopts, license.WithPayloadStore(file.NewStore("")))
			m := license.New(b.store, mopts...)

			env, err := m.Create(cmd.Context(), args[0], args[1], opts...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "License written to %s\n", args[1])
			fmt.Fprintf(out, "  checksum:             %s\n", env.ChecksumHex())
			fmt.Fprintf(out, "  requires password:    %t\n", env.RequiresPassword())
			fmt.Fprintf(out, "  requires hardware id: %t\n", env.RequiresHardwareID())
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&fl.password, "password", "", "Password the license is bound to")
	f.BoolVar(&fl.promptPassword, "prompt-password", false, "Read the password from the terminal")
	f.StringVar(&fl.hardwareID, "hardware-id", "", "Hardware id (network adapter address) the license is bound to")
	f.BoolVar(&fl.bindLocal, "bind-local", false, "Bind to this machine's hardware id")
	f.StringVar(&fl.expires, "expires", "", "Expiry as RFC 3339 time or YYYY-MM-DD (UTC midnight)")
	f.DurationVar(&fl.ttl, "ttl", 0, "Expiry relative to now, e.g. 720h")
	cmd.MarkFlagsMutuallyExclusive("password", "prompt-password")
	cmd.MarkFlagsMutuallyExclusive("hardware-id", "bind-local")
	cmd.MarkFlagsMutuallyExclusive("expires", "ttl")
	return cmd
}

func (fl *issueFlags) createOptions(cmd *cobra.Command) ([]license.CreateOption, error) {
	password := fl.password
	if fl.promptPassword {
		pw, err := host.PasswordPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())()
		if err != nil {
			return nil, err
		}
		password = pw
	}

	hardwareID := fl.hardwareID
	if fl.bindLocal {
		id, err := host.HardwareID()
		if err != nil {
			return nil, err
		}
		hardwareID = id
	}

	expiresAt, err := fl.expiry(time.Now())
	if err != nil {
		return nil, err
	}

	return []license.CreateOption{
		license.WithPassword(password),
		license.WithHardwareID(hardwareID),
		license.WithExpiry(expiresAt),
	}, nil
}

func (fl *issueFlags) expiry(now time.Time) (time.Time, error) {
	switch {
	case fl.ttl < 0:
		return time.Time{}, fmt.Errorf("ttl must be positive")
	case fl.ttl > 0:
		return now.Add(fl.ttl), nil
	case fl.expires == "":
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, fl.expires); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, fl.expires)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid expiry %q: want RFC 3339 or YYYY-MM-DD", fl.expires)
	}
	return t, nil
}
