package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/existflow/taskflow/internal/service"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage your account",
	Long:  `Sign up, log in and manage email verification on the TaskFlow server.`,
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account and log in",
	RunE:  runSignup,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the server",
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	RunE:  runLogout,
}

var meCmd = &cobra.Command{
	Use:   "me",
	Short: "Show the logged in user",
	RunE:  runMe,
}

var verifyCmd = &cobra.Command{
	Use:   "verify [token]",
	Short: "Verify your email with the token from the verification link",
	Args:  cobra.ExactArgs(1),
	RunE:  runVerify,
}

var resendCmd = &cobra.Command{
	Use:   "resend",
	Short: "Send a new verification email",
	RunE:  runResend,
}

var (
	authName  string
	authEmail string
)

// stdin is read for prompts when it is not a terminal
var stdin = bufio.NewReader(os.Stdin)

func init() {
	authCmd.AddCommand(signupCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(meCmd)
	authCmd.AddCommand(verifyCmd)
	authCmd.AddCommand(resendCmd)

	signupCmd.Flags().StringVar(&authName, "name", "", "Display name")
	signupCmd.Flags().StringVar(&authEmail, "email", "", "Email address")
	loginCmd.Flags().StringVar(&authEmail, "email", "", "Email address")
	resendCmd.Flags().StringVar(&authEmail, "email", "", "Email address (default: the logged in account)")
}

func prompt(w io.Writer, label, value string) string {
	if value != "" {
		return value
	}
	fmt.Fprint(w, label)
	line, _ := stdin.ReadString('\n')
	return strings.TrimSpace(line)
}

func promptPassword(w io.Writer, label string) (string, error) {
	fmt.Fprint(w, label)
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := stdin.ReadString('\n')
		if err != nil && err != io.EOF {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(b), nil
}

func runSignup(cmd *cobra.Command, args []string) error {
	w := out(cmd)
	name := prompt(w, "Name: ", authName)
	email := prompt(w, "Email: ", authEmail)
	password, err := promptPassword(w, "Password: ")
	if err != nil {
		return err
	}
	confirm, err := promptPassword(w, "Confirm Password: ")
	if err != nil {
		return err
	}
	if password != confirm {
		return fmt.Errorf("passwords do not match")
	}

	fmt.Fprintln(w, "Creating account...")
	user, err := api.Signup(cmd.Context(), service.SignupInput{Name: name, Email: email, Password: password})
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "✓ Account created, logged in as %s <%s>\n", user.Name, user.Email)
	if !user.EmailVerified {
		fmt.Fprintln(w, "  Check your inbox for a verification link.")
	}
	return nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	w := out(cmd)
	email := prompt(w, "Email: ", authEmail)
	password, err := promptPassword(w, "Password: ")
	if err != nil {
		return err
	}

	user, err := api.Login(cmd.Context(), service.LoginInput{Email: email, Password: password})
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "✓ Logged in as %s <%s>\n", user.Name, user.Email)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	w := out(cmd)
	if !api.IsLoggedIn() {
		fmt.Fprintln(w, "Not logged in.")
		return nil
	}
	if err := api.Logout(); err != nil {
		return err
	}
	fmt.Fprintln(w, "✓ Logged out.")
	return nil
}

func runMe(cmd *cobra.Command, args []string) error {
	user, err := api.Me(cmd.Context())
	if err != nil {
		return err
	}
	w := out(cmd)
	verified := "not verified"
	if user.EmailVerified {
		verified = "verified"
	}
	fmt.Fprintf(w, "%s <%s>\n", user.Name, user.Email)
	fmt.Fprintf(w, "  id:     %s\n", user.ID)
	fmt.Fprintf(w, "  role:   %s\n", user.Role)
	fmt.Fprintf(w, "  email:  %s\n", verified)
	fmt.Fprintf(w, "  server: %s\n", api.Config().ServerURL)
	return nil
}

func runVerify(cmd *cobra.Command, args []string) error {
	if err := api.VerifyEmail(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintln(out(cmd), "✓ Email verified.")
	return nil
}

func runResend(cmd *cobra.Command, args []string) error {
	email := authEmail
	if email == "" {
		email = api.Config().Email
	}
	if email == "" {
		return fmt.Errorf("--email is required when not logged in")
	}
	if err := api.ResendVerification(cmd.Context(), email); err != nil {
		return err
	}
	fmt.Fprintln(out(cmd), "✓ If the account exists and is unverified, a new link is on its way.")
	return nil
}
