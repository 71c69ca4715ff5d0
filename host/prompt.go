package host

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/jmcleod/bequest/envelope"
)

// PromptText is written before reading a password.
const PromptText = "Password: "

// PasswordPrompter returns a credential func that writes PromptText to out and
// reads one line from in. When in is a terminal, echo is disabled.
func PasswordPrompter(in io.Reader, out io.Writer) envelope.CredentialFunc {
	var lines *bufio.Reader
	return func() (string, error) {
		if _, err := io.WriteString(out, PromptText); err != nil {
			return "", fmt.Errorf("writing prompt: %w", err)
		}

		if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			pw, err := term.ReadPassword(int(f.Fd()))
			fmt.Fprintln(out)
			if err != nil {
				return "", fmt.Errorf("reading password: %w", err)
			}
			return string(pw), nil
		}

		if lines == nil {
			lines = bufio.NewReader(in)
		}
		line, err := lines.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
}
