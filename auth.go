package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"golang.org/x/text/unicode/norm"

	"github.com/tonimelisma/moneyboard/internal/api"
	"github.com/tonimelisma/moneyboard/internal/credstore"
	"github.com/tonimelisma/moneyboard/internal/usermsg"
)

func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store credentials",
		Long: `Sign in with email and password. The password is prompted for on a
terminal, or read from the first line of stdin with --password-stdin.

Examples:
  moneyboard login --email me@example.com
  echo "$PASSWORD" | moneyboard login --email me@example.com --password-stdin`,
		RunE: runLogin,
	}

	cmd.Flags().String("email", "", "account email (required)")
	cmd.Flags().Bool("password-stdin", false, "read the password from stdin")

	return cmd
}

func newRegisterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		RunE:  runRegister,
	}

	cmd.Flags().String("email", "", "account email (required)")
	cmd.Flags().String("first-name", "", "first name")
	cmd.Flags().String("last-name", "", "last name")
	cmd.Flags().Bool("password-stdin", false, "read the password from stdin")

	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove stored credentials",
		RunE:  runLogout,
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Display the signed-in user",
		RunE:  runWhoami,
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show session and backend status",
		RunE:  runStatus,
	}
}

func newPasswdCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "passwd",
		Short: "Change your password",
		Long: `Change your password. Prompts for the current and new password on a
terminal. With --password-stdin, reads the current password, the new
password and its confirmation from three lines of stdin.`,
		RunE: runPasswd,
	}

	cmd.Flags().Bool("password-stdin", false, "read passwords from stdin")

	return cmd
}

// normalizeEmail trims and NFC-normalizes an email address so that the same
// address typed on different keyboards matches.
func normalizeEmail(email string) string {
	return norm.NFC.String(strings.TrimSpace(email))
}

// passwordReader reads passwords either from stdin lines or from the
// terminal without echo.
type passwordReader struct {
	fromStdin bool
	stdin     *bufio.Reader
	prompt    io.Writer
}

func newPasswordReader(cmd *cobra.Command) *passwordReader {
	fromStdin, _ := cmd.Flags().GetBool("password-stdin")

	return &passwordReader{
		fromStdin: fromStdin,
		stdin:     bufio.NewReader(cmd.InOrStdin()),
		prompt:    cmd.ErrOrStderr(),
	}
}

func (pr *passwordReader) read(label string) (string, error) {
	if pr.fromStdin {
		line, err := pr.stdin.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return "", fmt.Errorf("reading %s from stdin: %w", strings.ToLower(label), err)
		}

		return strings.TrimRight(line, "\r\n"), nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("stdin is not a terminal; use --password-stdin")
	}

	fmt.Fprintf(pr.prompt, "%s: ", label)

	b, err := term.ReadPassword(fd)
	fmt.Fprintln(pr.prompt)

	if err != nil {
		return "", fmt.Errorf("reading %s: %w", strings.ToLower(label), err)
	}

	return string(b), nil
}

func requiredEmail(cmd *cobra.Command) (string, error) {
	email, _ := cmd.Flags().GetString("email")

	email = normalizeEmail(email)
	if email == "" {
		return "", fmt.Errorf("--email is required")
	}

	return email, nil
}

func runLogin(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	email, err := requiredEmail(cmd)
	if err != nil {
		return err
	}

	password, err := newPasswordReader(cmd).read("Password")
	if err != nil {
		return err
	}

	client, err := cc.Client(ctx)
	if err != nil {
		return err
	}

	cc.Logger.Info("login started", "email", email)

	user, err := client.Login(ctx, api.LoginCredentials{Email: email, Password: password})
	if err != nil {
		return err
	}

	cc.Logger.Info("login successful", "user_id", user.ID)
	cc.Statusf("Logged in as %s.\n", user.Email)

	return nil
}

func runRegister(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	email, err := requiredEmail(cmd)
	if err != nil {
		return err
	}

	first, _ := cmd.Flags().GetString("first-name")
	last, _ := cmd.Flags().GetString("last-name")

	pr := newPasswordReader(cmd)

	password, err := pr.read("Password")
	if err != nil {
		return err
	}

	confirm, err := pr.read("Confirm password")
	if err != nil {
		return err
	}

	client, err := cc.Client(ctx)
	if err != nil {
		return err
	}

	resp, err := client.Register(ctx, api.RegisterData{
		Email:           email,
		Password:        password,
		PasswordConfirm: confirm,
		FirstName:       first,
		LastName:        last,
	})
	if err != nil {
		return err
	}

	cc.Statusf("Registered and logged in as %s.\n", resp.User.Email)

	return nil
}

func runLogout(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	client, err := cc.Client(ctx)
	if err != nil {
		return err
	}

	if err := client.Logout(ctx); err != nil {
		return err
	}

	cc.Logger.Info("logout successful")
	cc.Statusf("%s\n", usermsg.LoggedOut(cc.Lang))

	return nil
}

func runWhoami(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	client, err := cc.requireLogin(ctx)
	if err != nil {
		return err
	}

	user, err := client.CurrentUser(ctx)
	if err != nil {
		return err
	}

	if cc.Flags.JSON {
		return printJSON(cc.Stdout, user)
	}

	name := strings.TrimSpace(user.FirstName + " " + user.LastName)
	if name == "" {
		name = user.Username
	}

	fmt.Fprintf(cc.Stdout, "User:   %s (%s)\n", name, user.Email)
	fmt.Fprintf(cc.Stdout, "ID:     %d\n", user.ID)
	fmt.Fprintf(cc.Stdout, "Since:  %s\n", user.CreatedAt)

	return nil
}

// statusOutput is the JSON schema for `status --json`.
type statusOutput struct {
	APIURL          string     `json:"api_url"`
	CredentialStore string     `json:"credential_store"`
	CredentialPath  string     `json:"credential_path,omitempty"`
	LoggedIn        bool       `json:"logged_in"`
	AccessExpires   *time.Time `json:"access_expires,omitempty"`
	Backend         string     `json:"backend"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	client, err := cc.Client(ctx)
	if err != nil {
		return err
	}

	out := statusOutput{
		APIURL:          cc.Cfg.APIURL,
		CredentialStore: cc.Cfg.CredentialStore,
		Backend:         "up",
	}

	if cc.Cfg.CredentialStore != credstore.BackendMemory {
		out.CredentialPath = cc.Cfg.CredentialFile()
	}

	if pair, err := client.Credentials(ctx); err == nil {
		out.LoggedIn = true
		out.AccessExpires = accessExpiry(pair.Access)
	}

	if _, err := client.Health(ctx); err != nil {
		cc.Logger.Debug("health check failed", "error", err)
		out.Backend = usermsg.For(err, cc.Lang)
	}

	if cc.Flags.JSON {
		return printJSON(cc.Stdout, out)
	}

	fmt.Fprintf(cc.Stdout, "Backend:      %s (%s)\n", out.APIURL, out.Backend)
	fmt.Fprintf(cc.Stdout, "Credentials:  %s", out.CredentialStore)

	if out.CredentialPath != "" {
		fmt.Fprintf(cc.Stdout, " (%s)", out.CredentialPath)
	}

	fmt.Fprintln(cc.Stdout)

	switch {
	case !out.LoggedIn:
		fmt.Fprintln(cc.Stdout, "Session:      not logged in")
	case out.AccessExpires == nil:
		fmt.Fprintln(cc.Stdout, "Session:      logged in")
	case out.AccessExpires.Before(time.Now()):
		fmt.Fprintln(cc.Stdout, "Session:      logged in (access expired; refreshes on next request)")
	default:
		fmt.Fprintf(cc.Stdout, "Session:      logged in (access expires in %s)\n",
			time.Until(*out.AccessExpires).Round(time.Second))
	}

	return nil
}

// accessExpiry reads the exp claim of a JWT access token without verifying
// it. Opaque tokens have no expiry to show.
func accessExpiry(access string) *time.Time {
	var claims jwt.RegisteredClaims

	if _, _, err := jwt.NewParser().ParseUnverified(access, &claims); err != nil || claims.ExpiresAt == nil {
		return nil
	}

	exp := claims.ExpiresAt.Time

	return &exp
}

func runPasswd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	client, err := cc.requireLogin(ctx)
	if err != nil {
		return err
	}

	pr := newPasswordReader(cmd)
	data := api.ChangePasswordData{}

	for _, f := range []struct {
		label string
		dst   *string
	}{
		{"Current password", &data.OldPassword},
		{"New password", &data.NewPassword},
		{"Confirm new password", &data.NewPasswordConfirm},
	} {
		if *f.dst, err = pr.read(f.label); err != nil {
			return err
		}
	}

	msg, err := client.ChangePassword(ctx, data)
	if err != nil {
		return err
	}

	cc.Statusf("%s\n", msg)

	return nil
}
