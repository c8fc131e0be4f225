package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rezonia/invoicer/internal/app"
	"github.com/rezonia/invoicer/internal/auth"
)

var (
	sessionToken string
	authEmail    string
	authPassword string
	authNoSave   bool

	resetRedirect string
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Sign up, sign in and sign out",
	Long: `Manage the session used by the invoices commands.

The session is saved to $XDG_CONFIG_HOME/invoicer/session.json unless
--no-save is given. INVOICER_TOKEN or --token override the saved session.

Examples:
  invoicer auth signup --email jane@example.com
  invoicer auth signin --email jane@example.com --password "$PASSWORD"
  invoicer auth status
  invoicer auth reset-password --email jane@example.com
  invoicer auth signout`,
}

var signUpCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account and sign in",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEnter(cmd, (*auth.Manager).SignUp)
	},
}

var signInCmd = &cobra.Command{
	Use:   "signin",
	Short: "Sign in with an existing account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEnter(cmd, (*auth.Manager).SignIn)
	},
}

var signOutCmd = &cobra.Command{
	Use:   "signout",
	Short: "Sign out and forget the saved session",
	Args:  cobra.NoArgs,
	RunE:  runSignOut,
}

var resetPasswordCmd = &cobra.Command{
	Use:   "reset-password",
	Short: "Email a password reset link",
	Args:  cobra.NoArgs,
	RunE:  runResetPassword,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current session",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(signUpCmd, signInCmd, signOutCmd, statusCmd, resetPasswordCmd)

	rootCmd.PersistentFlags().StringVar(&sessionToken, "token", "", "Access token (env: INVOICER_TOKEN)")
	for _, c := range []*cobra.Command{signUpCmd, signInCmd} {
		c.Flags().StringVar(&authEmail, "email", "", "Account email")
		c.Flags().StringVar(&authPassword, "password", "", "Account password (prompted when empty)")
		c.Flags().BoolVar(&authNoSave, "no-save", false, "Print the session without saving it")
		_ = c.MarkFlagRequired("email")
	}
	resetPasswordCmd.Flags().StringVar(&authEmail, "email", "", "Account email")
	resetPasswordCmd.Flags().StringVar(&resetRedirect, "redirect-to", "", "Reset link target (default: auth.reset_redirect_url)")
	_ = resetPasswordCmd.MarkFlagRequired("email")
}

func runEnter(cmd *cobra.Command, fn func(*auth.Manager, context.Context, auth.Credentials) (auth.Session, error)) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	if a.Auth == nil {
		return fmt.Errorf("no auth provider is configured")
	}

	password := authPassword
	if password == "" {
		password, err = promptPassword()
		if err != nil {
			return err
		}
	}

	manager := auth.NewManager(a.Auth, a.Logger)
	session, err := fn(manager, cmd.Context(), auth.Credentials{Email: authEmail, Password: password})
	if err != nil {
		return describeError(err)
	}

	if !authNoSave {
		if err := saveSession(session); err != nil {
			return err
		}
		printVerbose("Session saved to %s\n", sessionPath())
	}
	return outputJSON(os.Stdout, session)
}

func runSignOut(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	if a.Auth == nil {
		return fmt.Errorf("no auth provider is configured")
	}

	manager := auth.NewManager(a.Auth, a.Logger)
	if err := manager.Init(cmd.Context(), resolveToken()); err != nil {
		return describeError(err)
	}
	signOutErr := manager.SignOut(cmd.Context())
	if err := os.Remove(sessionPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove saved session: %w", err)
	}
	if signOutErr != nil {
		return describeError(signOutErr)
	}
	fmt.Println("Signed out")
	return nil
}

func runResetPassword(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	if a.Auth == nil {
		return fmt.Errorf("no auth provider is configured")
	}

	redirect := resetRedirect
	if redirect == "" {
		redirect = a.Config.Auth.ResetRedirectURL
	}
	manager := auth.NewManager(a.Auth, a.Logger)
	if err := manager.ResetPassword(cmd.Context(), authEmail, redirect); err != nil {
		return describeError(err)
	}
	fmt.Printf("Password reset link sent to %s\n", authEmail)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	if a.Auth == nil {
		return fmt.Errorf("no auth provider is configured")
	}

	ctx, err := signedInContext(cmd.Context(), a)
	if err != nil {
		return err
	}
	session, err := auth.RequireSession(ctx)
	if err != nil {
		return describeError(err)
	}
	session.AccessToken = ""
	return outputJSON(os.Stdout, session)
}

// signedInContext resolves the token from flag, environment or saved
// session and attaches the session to ctx when it is still valid.
func signedInContext(ctx context.Context, a *app.App) (context.Context, error) {
	manager := auth.NewManager(a.Auth, a.Logger)
	if err := manager.Init(ctx, resolveToken()); err != nil {
		return ctx, describeError(err)
	}
	return manager.Context(ctx), nil
}

func resolveToken() string {
	if sessionToken != "" {
		return sessionToken
	}
	if env := os.Getenv("INVOICER_TOKEN"); env != "" {
		return env
	}
	data, err := os.ReadFile(sessionPath())
	if err != nil {
		return ""
	}
	var s auth.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return ""
	}
	return s.AccessToken
}

func sessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "invoicer", "session.json")
}

func saveSession(s auth.Session) error {
	path := sessionPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func promptPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Password: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
