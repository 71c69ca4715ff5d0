package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmcleod/bequest/host"
	"github.com/jmcleod/bequest/license"
	"github.com/jmcleod/bequest/storage/file"
)

// invalidLicenseError reports a license that opened with a status other than
// ok. The report has already been printed.
type invalidLicenseError struct {
	status string
}

func (e *invalidLicenseError) Error() string {
	return "license is " + e.status
}

type verifyReport struct {
	File      string     `json:"file"`
	Status    string     `json:"status"`
	Valid     bool       `json:"valid"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Expired   *bool      `json:"expired,omitempty"`
	Payload   []byte     `json:"payload,omitempty"`
}

func newVerifyCmd(g *globals) *cobra.Command {
	var (
		password   string
		hardwareID string
		noLocalHW  bool
		output     string
		jsonOut    bool
	)

	cmd := &cobra.Command{
		Use:   "verify LICENSE",
		Short: "Validate a license and recover its payload",
		Long: `Validate the license at LICENSE. When it requires a password that was not
given, one is read from the terminal. When it requires a hardware id that was
not given, this machine's hardware id is used.

The payload of a valid license is written to --output, or to stdout. The exit
status is non-zero unless the license is ok.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBackend(cmd.Context(), g.cfg, "")
			if err != nil {
				return err
			}
			defer b.Close()

			mopts, err := managerOptions(g.cfg, b, g.logger)
			if err != nil {
				return err
			}
			mopts = append(mopts, license.WithPrompter(host.PasswordPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())))
			if !noLocalHW {
				mopts = append(mopts, license.WithHardwareIDSource(host.HardwareID))
			}
			m := license.New(b.store, mopts...)

			lic, err := m.Load(cmd.Context(), args[0],
				license.WithPassword(password),
				license.WithHardwareID(hardwareID))
			if err != nil {
				return err
			}

			report := newVerifyReport(args[0], lic)
			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else {
				printVerifyReport(cmd.ErrOrStderr(), report)
				if lic.Valid() {
					if err := writePayload(cmd, output, lic.Payload()); err != nil {
						return err
					}
				}
			}

			if !lic.Valid() {
				return &invalidLicenseError{status: report.Status}
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&password, "password", "", "Password the license is bound to")
	f.StringVar(&hardwareID, "hardware-id", "", "Hardware id the license is bound to")
	f.BoolVar(&noLocalHW, "no-local-hwid", false, "Do not fall back to this machine's hardware id")
	f.StringVarP(&output, "output", "o", "", "Write the payload to this file instead of stdout")
	f.BoolVar(&jsonOut, "json", false, "Print the result as JSON, payload base64 encoded")
	return cmd
}

func newVerifyReport(path string, lic *license.License) verifyReport {
	r := verifyReport{
		File:    path,
		Status:  string(lic.Status()),
		Valid:   lic.Valid(),
		Payload: lic.Payload(),
	}
	if exp, ok := lic.ExpiresAt(); ok {
		exp = exp.UTC()
		r.ExpiresAt = &exp
	}
	if expired, known := lic.Expired(); known {
		r.Expired = &expired
	}
	return r
}

func printVerifyReport(w io.Writer, r verifyReport) {
	fmt.Fprintf(w, "License: %s\n", r.File)
	fmt.Fprintf(w, "  status:     %s\n", r.Status)
	switch {
	case r.ExpiresAt != nil:
		fmt.Fprintf(w, "  expires at: %s\n", r.ExpiresAt.Format(time.RFC3339))
	case r.Valid:
		fmt.Fprintf(w, "  expires at: never\n")
	default:
		fmt.Fprintf(w, "  expires at: unknown\n")
	}
}

func writePayload(cmd *cobra.Command, output string, payload []byte) error {
	if output == "" {
		_, err := cmd.OutOrStdout().Write(payload)
		return err
	}
	if err := file.NewStore("").WriteBytes(output, payload); err != nil {
		return fmt.Errorf("writing payload: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Payload written to %s\n", output)
	return nil
}
