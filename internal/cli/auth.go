package cli

import (
	"fmt"
	"time"

	"github.com/hafizbahtiar/console/internal/session"
	"github.com/spf13/cobra"
)

func (a *app) loginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the token pair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.connect(ctx); err != nil {
				return err
			}
			var err error
			if email, err = a.prompt("Email", email); err != nil {
				return err
			}
			if password, err = a.prompt("Password", password); err != nil {
				return err
			}

			if err := a.sess.Login(ctx, email, password); err != nil {
				return present(err, "Login failed. Please try again.")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", a.sess.User().DisplayName())
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password (prompted when empty)")
	return cmd
}

func (a *app) registerCmd() *cobra.Command {
	var in session.RegisterInput

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.connect(ctx); err != nil {
				return err
			}
			var err error
			if in.Password, err = a.prompt("Password", in.Password); err != nil {
				return err
			}

			if err := a.sess.Register(ctx, in); err != nil {
				return present(err, "Registration failed. Please try again.")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Welcome, %s\n", a.sess.User().DisplayName())
			return nil
		},
	}

	cmd.Flags().StringVar(&in.FirstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&in.LastName, "last-name", "", "Last name")
	cmd.Flags().StringVarP(&in.Username, "username", "u", "", "Username")
	cmd.Flags().StringVarP(&in.Email, "email", "e", "", "Email")
	cmd.Flags().StringVarP(&in.Password, "password", "p", "", "Password (prompted when empty)")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.connect(ctx); err != nil {
				return err
			}
			a.sess.Logout(ctx)
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.connect(ctx); err != nil {
				return err
			}
			a.sess.Bootstrap(ctx)

			out := cmd.OutOrStdout()
			user := a.sess.User()
			if user == nil {
				fmt.Fprintln(out, "Not signed in")
				return nil
			}
			fmt.Fprintf(out, "%s <%s>\n", user.DisplayName(), user.Email)
			if user.Role != "" {
				fmt.Fprintf(out, "role: %s\n", user.Role)
			}
			if !user.EmailVerified {
				fmt.Fprintln(out, "email not verified")
			}
			return nil
		},
	}
}

// statusCmd reports local state only; it never calls the backend.
func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show local session state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.connect(ctx); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "api:      %s\n", a.api.BaseURL())
			fmt.Fprintf(out, "storage:  %s\n", a.cfg.Storage.Driver)
			fmt.Fprintf(out, "phase:    %s\n", a.sess.State().Phase())
			fmt.Fprintf(out, "token:    %t\n", a.tokens.HasToken())

			if exp := a.tokens.AccessExpiry(); !exp.IsZero() {
				left := time.Until(exp).Round(time.Second)
				if left <= 0 {
					fmt.Fprintf(out, "expires:  %s (expired)\n", exp.Format(time.RFC3339))
				} else {
					fmt.Fprintf(out, "expires:  %s (in %s)\n", exp.Format(time.RFC3339), left)
				}
			}
			return nil
		},
	}
}
