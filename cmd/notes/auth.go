package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kuitang/notes-client/internal/errs"
	"github.com/kuitang/notes-client/internal/profile"
	"github.com/kuitang/notes-client/internal/session"
)

// readPassword returns flagValue, or the first line of stdin when it is empty.
func (a *app) readPassword(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	fmt.Fprint(a.errOut, "Password: ")
	line, err := bufio.NewReader(a.in).ReadString('\n')
	if err != nil && line == "" {
		return "", errs.Wrap(errs.InvalidArgument, "Password is required", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func resultErr(res session.Result) error {
	if res.OK {
		return nil
	}
	code := errs.InvalidArgument
	switch res.Reason {
	case session.ReasonRestricted:
		code = errs.Restricted
	case session.ReasonFailed:
		code = errs.Unauthenticated
	}
	return errs.New(code, res.Message)
}

func newLoginCmd(e *env) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		Args:  cobra.NoArgs,
		RunE: e.run(func(ctx context.Context, a *app, _ []string) error {
			pw, err := a.readPassword(password)
			if err != nil {
				return err
			}
			res := a.session.Login(ctx, email, pw)
			if err := resultErr(res); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Logged in as %s <%s>\n", res.User.Name, res.User.Email)
			return nil
		}),
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (read from stdin when empty)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newRegisterCmd(e *env) *cobra.Command {
	var name, email, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: e.run(func(ctx context.Context, a *app, _ []string) error {
			pw, err := a.readPassword(password)
			if err != nil {
				return err
			}
			res := a.session.Register(ctx, name, email, pw)
			if err := resultErr(res); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Welcome, %s\n", res.User.Name)
			return nil
		}),
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (read from stdin when empty)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: e.run(func(_ context.Context, a *app, _ []string) error {
			a.session.Logout()
			return nil
		}),
	}
}

func newWhoamiCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: e.run(func(_ context.Context, a *app, _ []string) error {
			if err := a.enter("/profile"); err != nil {
				return err
			}
			u := a.session.Snapshot().User
			fmt.Fprintf(a.out, "%s <%s>\n", u.Name, u.Email)
			fmt.Fprintf(a.out, "id:      %s\n", u.ID)
			fmt.Fprintf(a.out, "roles:   %s\n", u.Roles)
			fmt.Fprintf(a.out, "avatar:  %s\n", profile.AvatarURL(a.shareOrigin(), u.ProfilePicture))
			if !u.CreatedAt.IsZero() {
				fmt.Fprintf(a.out, "active:  %d days\n", profile.DaysActive(u.CreatedAt.Time, time.Now()))
			}
			return nil
		}),
	}
}
