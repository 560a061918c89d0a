package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/kuitang/notes-client/internal/config"
	"github.com/kuitang/notes-client/internal/obs"
)

type rootOptions struct {
	configPath string
	verbose    bool
	overrides  config.Overrides
}

// env is what every command closes over: parsed root flags and the streams.
type env struct {
	opts   *rootOptions
	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	e := &env{opts: &rootOptions{}, in: in, out: out, errOut: errOut}

	cmd := &cobra.Command{
		Use:           "notes",
		Short:         "Read, write and share notes from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			level := slog.LevelInfo
			if e.opts.verbose {
				level = slog.LevelDebug
			}
			obs.Configure(errOut, obs.FormatText, level)
		},
	}
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	flags := cmd.PersistentFlags()
	flags.StringVar(&e.opts.configPath, "config", "", "YAML config file (default $NOTES_CONFIG)")
	flags.StringVar(&e.opts.overrides.APIURL, "api-url", "", "API base URL (default $NOTES_API_URL)")
	flags.StringVar(&e.opts.overrides.StateDir, "state-dir", "", "directory for the encrypted local state (default $NOTES_STATE_DIR)")
	flags.BoolVarP(&e.opts.verbose, "verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(
		newLoginCmd(e),
		newRegisterCmd(e),
		newLogoutCmd(e),
		newWhoamiCmd(e),
		newNotesCmd(e),
		newSharedCmd(e),
		newProfileCmd(e),
		newSettingsCmd(e),
		newAdminCmd(e),
		newExportCmd(e),
		newMCPCmd(e),
		newConfigCmd(e),
	)
	return cmd
}

// run opens the app for one command invocation and closes it afterwards.
func (e *env) run(fn func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx, e)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(ctx, a, args)
	}
}
