package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kuitang/notes-client/internal/errs"
	"github.com/kuitang/notes-client/internal/prefs"
	"github.com/kuitang/notes-client/internal/profile"
)

func newSettingsCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change local preferences",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:       "theme [light|dark|toggle]",
			Short:     "Show or set the theme used for HTML output",
			Args:      cobra.MaximumNArgs(1),
			ValidArgs: []string{"light", "dark", "toggle"},
			RunE: e.run(func(ctx context.Context, a *app, args []string) error {
				if err := a.enter("/settings"); err != nil {
					return err
				}
				var (
					theme prefs.Theme
					err   error
				)
				switch {
				case len(args) == 0:
					theme, err = a.prefs.Theme(ctx)
				case args[0] == "toggle":
					theme, err = a.prefs.ToggleTheme(ctx)
				default:
					theme, err = prefs.ParseTheme(args[0])
					if err == nil {
						err = a.prefs.SetTheme(ctx, theme)
					}
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "theme: %s\n", theme)
				return nil
			}),
		},
		&cobra.Command{
			Use:       "default-share [on|off]",
			Short:     "Show or set whether new notes start shared",
			Args:      cobra.MaximumNArgs(1),
			ValidArgs: []string{"on", "off"},
			RunE: e.run(func(ctx context.Context, a *app, args []string) error {
				if err := a.enter("/settings"); err != nil {
					return err
				}
				if len(args) == 1 {
					var share bool
					switch strings.ToLower(args[0]) {
					case "on", "true", "yes":
						share = true
					case "off", "false", "no":
					default:
						return errs.New(errs.InvalidArgument, fmt.Sprintf("expected on or off, got %q", args[0]))
					}
					if err := a.prefs.SetDefaultShare(ctx, share); err != nil {
						return err
					}
				}
				share, err := a.prefs.DefaultShare(ctx)
				if err != nil {
					return err
				}
				state := "off"
				if share {
					state = "on"
				}
				fmt.Fprintf(a.out, "default-share: %s\n", state)
				return nil
			}),
		},
	)
	return cmd
}

func newProfileCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or edit your profile",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Fetch and show your profile",
		Args:  cobra.NoArgs,
		RunE: e.run(func(ctx context.Context, a *app, _ []string) error {
			if err := a.enter("/profile"); err != nil {
				return err
			}
			if err := a.session.RefreshProfile(ctx); err != nil {
				return err
			}
			u := a.session.Snapshot().User
			if u == nil {
				return errs.New(errs.Unauthenticated, "Not logged in")
			}
			fmt.Fprintf(a.out, "name:    %s\n", u.Name)
			fmt.Fprintf(a.out, "email:   %s\n", u.Email)
			fmt.Fprintf(a.out, "bio:     %s\n", u.Bio)
			fmt.Fprintf(a.out, "avatar:  %s\n", profile.AvatarURL(a.shareOrigin(), u.ProfilePicture))
			fmt.Fprintf(a.out, "active:  %d days\n", profile.DaysActive(u.CreatedAt.Time, time.Now()))
			return nil
		}),
	}

	var name, bio, picture string
	update := &cobra.Command{
		Use:   "update",
		Short: "Change your name, bio or picture",
		Args:  cobra.NoArgs,
	}
	update.RunE = e.run(func(ctx context.Context, a *app, _ []string) error {
		if err := a.enter("/profile"); err != nil {
			return err
		}
		current := a.session.Snapshot().User
		u := profile.Update{Name: current.Name, Bio: current.Bio}
		if update.Flags().Changed("name") {
			u.Name = name
		}
		if update.Flags().Changed("bio") {
			u.Bio = bio
		}
		if picture != "" {
			f, err := os.Open(picture)
			if err != nil {
				return errs.Wrap(errs.InvalidArgument, fmt.Sprintf("open %s: %v", picture, err), err)
			}
			defer f.Close()
			u.Picture = &profile.Picture{Filename: filepath.Base(picture), Data: f}
		}
		saved, err := profile.NewService(a.client, a.session).Save(ctx, u)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Profile saved: %s\n", saved.Name)
		return nil
	})
	update.Flags().StringVar(&name, "name", "", "display name")
	update.Flags().StringVar(&bio, "bio", "", "short bio")
	update.Flags().StringVar(&picture, "picture", "", "image file to upload as your profile picture")

	cmd.AddCommand(show, update)
	return cmd
}
