package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/otherjamesbrown/aircheck-cli/config"
	"github.com/otherjamesbrown/aircheck-cli/credentials"
)

// Auth command flags.
var (
	authToken          string
	authServer         string
	authExpires        string
	authNonInteractive bool
)

// AuthCmd is the parent command for authentication operations.
var AuthCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage archive authentication",
	Long: `Manage authentication credentials for the broadcast archive.

The archive token is stored encrypted in ~/.aircheck/credentials.yaml.
The encryption key lives in your system keyring (macOS Keychain, Windows
Credential Manager, or Linux Secret Service). For CI environments, set
AIRCHECK_ENCRYPTION_KEY to a 64-character hex string instead.

The AIRCHECK_TOKEN environment variable, when set, takes precedence over
stored credentials for every command.

Examples:
  # Interactive login (prompts for the token without echoing it)
  aircheck auth login

  # Non-interactive login for scripts
  aircheck auth login --token="$ARCHIVE_TOKEN" --non-interactive

  # Show the current authentication state
  aircheck auth status

  # Remove stored credentials
  aircheck auth logout`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store an archive token",
	Long: `Store an archive API token for subsequent commands.

Without --token, the token is read from the terminal with echo disabled.
The token is only needed for saving highlights; searching and reading
transcripts work anonymously.`,
	RunE: runAuthLogin,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove stored credentials",
	RunE:  runAuthLogout,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show authentication status",
	RunE:  runAuthStatus,
}

func init() {
	authLoginCmd.Flags().StringVar(&authToken, "token", "", "Archive API token (prompted when omitted)")
	authLoginCmd.Flags().StringVar(&authServer, "server", "", "Archive URL this token is for (defaults to the configured server)")
	authLoginCmd.Flags().StringVar(&authExpires, "expires", "", "Token expiry as RFC 3339 time or duration (e.g. 720h)")
	authLoginCmd.Flags().BoolVar(&authNonInteractive, "non-interactive", false, "Fail instead of prompting when --token is missing")

	AuthCmd.AddCommand(authLoginCmd)
	AuthCmd.AddCommand(authLogoutCmd)
	AuthCmd.AddCommand(authStatusCmd)
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	token := strings.TrimSpace(authToken)
	if token == "" {
		if authNonInteractive {
			return fmt.Errorf("--token is required in non-interactive mode")
		}
		var err error
		token, err = promptForToken()
		if err != nil {
			return err
		}
	}
	if token == "" {
		return fmt.Errorf("token must not be empty")
	}

	server := authServer
	if server == "" {
		if cfg, err := config.LoadConfig(); err == nil {
			server = cfg.ServerURL
		}
	}

	creds := &credentials.Credentials{
		Token:     token,
		ServerURL: server,
	}

	if authExpires != "" {
		expiresAt, err := parseExpiry(authExpires)
		if err != nil {
			return fmt.Errorf("invalid --expires: %w", err)
		}
		creds.ExpiresAt = expiresAt
	}

	store, err := credentials.NewStore()
	if err != nil {
		return fmt.Errorf("opening credential store: %w", err)
	}
	if err := store.Save(creds); err != nil {
		return fmt.Errorf("saving credentials: %w", err)
	}

	fmt.Printf("Logged in. Token %s stored for %s.\n", credentials.MaskToken(token), valueOrDefault(server, "the configured archive"))
	return nil
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	store, err := credentials.NewStore()
	if err != nil {
		return fmt.Errorf("opening credential store: %w", err)
	}

	if !store.Exists() {
		fmt.Println("No stored credentials.")
		return nil
	}
	if err := store.Delete(); err != nil {
		return fmt.Errorf("removing credentials: %w", err)
	}

	fmt.Println("Logged out.")
	return nil
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	if os.Getenv("AIRCHECK_TOKEN") != "" {
		fmt.Println("Authenticated via AIRCHECK_TOKEN environment variable.")
		return nil
	}

	store, err := credentials.NewStore()
	if err != nil {
		return fmt.Errorf("opening credential store: %w", err)
	}

	creds, err := store.Load()
	if errors.Is(err, credentials.ErrNoCredentials) {
		fmt.Println("Not authenticated. Run 'aircheck auth login' to store a token.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading credentials: %w", err)
	}

	fmt.Printf("Token:   %s\n", credentials.MaskToken(creds.Token))
	if creds.ServerURL != "" {
		fmt.Printf("Server:  %s\n", creds.ServerURL)
	}
	if creds.Subject != "" {
		fmt.Printf("Subject: %s\n", creds.Subject)
	}
	fmt.Printf("Expires: %s\n", credentials.FormatExpiry(creds.ExpiresAt))
	fmt.Printf("Updated: %s\n", creds.LastUpdated.Format(time.RFC3339))
	return nil
}

// promptForToken reads the token from the terminal without echoing it.
// Falls back to a plain line read when stdin is not a terminal.
func promptForToken() (string, error) {
	fmt.Fprint(os.Stderr, "Archive token: ")

	if term.IsTerminal(int(syscall.Stdin)) {
		raw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading token: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading token: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// parseExpiry accepts either an absolute RFC 3339 time or a duration from now.
func parseExpiry(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("want RFC 3339 time or duration: %s", s)
	}
	return time.Now().Add(d), nil
}

// valueOrDefault returns fallback when value is empty.
func valueOrDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
