package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Hash an API token for tasknest-server",
	Long: `Read an API token and print its bcrypt hash. Put the hash in
api_token_hash (or TASKNEST_API_TOKEN_HASH) and send the token as
"Authorization: Bearer <token>".

Examples:
  tasknest token
  tasknest token --save`,
	Args: cobra.NoArgs,
	RunE: runToken,
}

var tokenSave bool

func init() {
	tokenCmd.Flags().BoolVar(&tokenSave, "save", false, "Store the hash in the config file")
}

func runToken(cmd *cobra.Command, args []string) error {
	token, err := readToken(cmd)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash token: %w", err)
	}

	if tokenSave {
		cfg.APITokenHash = string(hash)
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Token hash saved to config")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(hash))
	return nil
}

// readToken prompts twice without echo on a terminal, otherwise reads one line
func readToken(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		token := strings.TrimSpace(line)
		if token == "" {
			if err != nil {
				return "", fmt.Errorf("failed to read token: %w", err)
			}
			return "", errors.New("empty token")
		}
		return token, nil
	}

	fmt.Fprint(cmd.ErrOrStderr(), "Token: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", err
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Confirm: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", err
	}

	if string(first) != string(second) {
		return "", errors.New("tokens do not match")
	}
	if len(first) < 16 {
		return "", errors.New("token must be at least 16 characters")
	}
	return string(first), nil
}
