package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kuitang/notes-client/internal/crypto"
	"github.com/kuitang/notes-client/internal/mcp"
)

func newMCPCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Expose your notes to MCP clients",
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Serve the notes tools over Streamable HTTP until interrupted",
		Long: `Serve the notes tools over Streamable HTTP until interrupted.

Every request must carry "Authorization: Bearer <token>". The token comes from
NOTES_MCP_TOKEN (or mcp.token in the config file); when neither is set a fresh
token is generated and printed. Browser pages may only call the bridge from the
origins listed in NOTES_MCP_ALLOWED_ORIGINS.`,
		Args: cobra.NoArgs,
		RunE: e.run(func(ctx context.Context, a *app, _ []string) error {
			if err := a.enter("/"); err != nil {
				return err
			}
			opts := mcp.Options{Token: a.cfg.MCPToken, AllowedOrigins: a.cfg.MCPAllowedOrigins}
			if opts.Token == "" {
				tok, err := crypto.GenerateToken()
				if err != nil {
					return err
				}
				opts.Token = tok
				fmt.Fprintf(a.errOut, "Generated bearer token for this run: %s\n", tok)
				fmt.Fprintln(a.errOut, "Set NOTES_MCP_TOKEN to keep a stable token.")
			}
			addr := a.cfg.MCPAddr
			fmt.Fprintf(a.errOut, "Serving notes over MCP at http://%s%s\n", addr, mcp.Path)
			return mcp.NewServer(a.notes, a.session, a.shareOrigin()).ListenAndServe(ctx, addr, opts)
		}),
	}
	serve.Flags().StringVar(&e.opts.overrides.MCPAddr, "addr", "", "listen address (default $NOTES_MCP_ADDR)")

	cmd.AddCommand(serve)
	return cmd
}
