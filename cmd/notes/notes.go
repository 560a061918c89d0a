package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kuitang/notes-client/internal/errs"
	"github.com/kuitang/notes-client/internal/model"
	"github.com/kuitang/notes-client/internal/notes"
)

const listPreviewRunes = 60

func newNotesCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notes",
		Short: "Manage your notes",
	}
	cmd.AddCommand(
		newNotesListCmd(e),
		newNotesShowCmd(e),
		newNotesCreateCmd(e),
		newNotesEditCmd(e),
		newNotesDeleteCmd(e),
		newNotesShareCmd(e),
	)
	return cmd
}

func newNotesListCmd(e *env) *cobra.Command {
	var query string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notes, newest first",
		Args:  cobra.NoArgs,
		RunE: e.run(func(ctx context.Context, a *app, _ []string) error {
			if err := a.enter("/"); err != nil {
				return err
			}
			all := a.notes.LoadNotes(ctx)
			if msg := a.notes.State().Error; msg != "" {
				return errs.New(errs.Unavailable, msg)
			}
			list := notes.Filter(all, query)

			if asJSON {
				enc := json.NewEncoder(a.out)
				enc.SetIndent("", "  ")
				return enc.Encode(list)
			}
			if len(list) == 0 {
				fmt.Fprintln(a.out, "No notes.")
				return nil
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tSHARED\tUPDATED\tPREVIEW")
			for _, n := range list {
				shared := ""
				if n.IsShared() {
					shared = "yes"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					n.ID, n.Title, shared, n.UpdatedAt.Format("2006-01-02 15:04"), notes.Preview(n.Content, listPreviewRunes))
			}
			return tw.Flush()
		}),
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "only notes whose title or content contains this text")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	return cmd
}

// printNote writes a note as plain text, or as a rendered HTML page.
func (a *app) printNote(ctx context.Context, n model.Note, asHTML bool) error {
	shareURL := ""
	if n.IsShared() {
		shareURL = notes.ShareURL(a.shareOrigin(), n.ShareToken)
	}
	if asHTML {
		theme, err := a.prefs.Theme(ctx)
		if err != nil {
			return err
		}
		page, err := notes.RenderPage(n, shareURL, string(theme))
		if err != nil {
			return err
		}
		_, err = a.out.Write(page)
		return err
	}
	fmt.Fprintf(a.out, "# %s\n", n.Title)
	fmt.Fprintf(a.out, "id %s, updated %s", n.ID, n.UpdatedAt.Format("2006-01-02 15:04:05"))
	if shareURL != "" {
		fmt.Fprintf(a.out, ", shared at %s", shareURL)
	}
	fmt.Fprint(a.out, "\n\n")
	fmt.Fprintln(a.out, n.Content)
	return nil
}

func newNotesShowCmd(e *env) *cobra.Command {
	var asHTML bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print one note",
		Args:  cobra.ExactArgs(1),
		RunE: e.run(func(ctx context.Context, a *app, args []string) error {
			id := model.ParseID(args[0])
			if err := a.enter("/note/" + id.String()); err != nil {
				return err
			}
			n, err := a.notes.GetNoteByID(ctx, id)
			if err != nil {
				return err
			}
			return a.printNote(ctx, n, asHTML)
		}),
	}
	cmd.Flags().BoolVar(&asHTML, "html", false, "render the note as an HTML page")
	return cmd
}

type noteForm struct {
	cmd         *cobra.Command
	title       string
	content     string
	contentFile string
	share       bool
	noShare     bool
}

func (f *noteForm) bind(cmd *cobra.Command) {
	f.cmd = cmd
	cmd.Flags().StringVarP(&f.title, "title", "t", "", "note title")
	cmd.Flags().StringVarP(&f.content, "content", "c", "", "note body (Markdown)")
	cmd.Flags().StringVar(&f.contentFile, "content-file", "", "read the body from this file (- for stdin)")
	cmd.Flags().BoolVar(&f.share, "share", false, "publish the note with a share link")
	cmd.Flags().BoolVar(&f.noShare, "no-share", false, "make the note private")
	cmd.MarkFlagsMutuallyExclusive("content", "content-file")
	cmd.MarkFlagsMutuallyExclusive("share", "no-share")
}

// apply copies the flags the user set onto ed.
func (f *noteForm) apply(a *app, ed *notes.Editor) error {
	if f.cmd.Flags().Changed("title") {
		ed.Title = f.title
	}
	switch {
	case f.cmd.Flags().Changed("content"):
		ed.Content = f.content
	case f.contentFile == "-":
		body, err := io.ReadAll(a.in)
		if err != nil {
			return err
		}
		ed.Content = string(body)
	case f.contentFile != "":
		body, err := os.ReadFile(f.contentFile)
		if err != nil {
			return errs.Wrap(errs.InvalidArgument, fmt.Sprintf("read %s: %v", f.contentFile, err), err)
		}
		ed.Content = string(body)
	}
	if f.share {
		ed.Shared = true
	}
	if f.noShare {
		ed.Shared = false
	}
	return nil
}

func (a *app) printSaved(n model.Note, verb string) {
	fmt.Fprintf(a.out, "%s note %s: %s\n", verb, n.ID, n.Title)
	if n.IsShared() {
		fmt.Fprintf(a.out, "Share link: %s\n", notes.ShareURL(a.shareOrigin(), n.ShareToken))
	}
}

func newNotesCreateCmd(e *env) *cobra.Command {
	form := &noteForm{}
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a note",
		Args:  cobra.NoArgs,
		RunE: e.run(func(ctx context.Context, a *app, _ []string) error {
			if err := a.enter("/new"); err != nil {
				return err
			}
			defaultShare, err := a.prefs.DefaultShare(ctx)
			if err != nil {
				return err
			}
			ed := notes.NewEditor(defaultShare)
			if err := form.apply(a, ed); err != nil {
				return err
			}
			n, err := ed.Save(ctx, a.notes)
			if err != nil {
				return err
			}
			a.printSaved(n, "Created")
			return nil
		}),
	}
	form.bind(cmd)
	return cmd
}

func newNotesEditCmd(e *env) *cobra.Command {
	form := &noteForm{}
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a note's title, body or sharing",
		Args:  cobra.ExactArgs(1),
		RunE: e.run(func(ctx context.Context, a *app, args []string) error {
			id := model.ParseID(args[0])
			if err := a.enter("/edit/" + id.String()); err != nil {
				return err
			}
			current, err := a.notes.GetNoteByID(ctx, id)
			if err != nil {
				return err
			}
			ed := notes.EditNote(current)
			if err := form.apply(a, ed); err != nil {
				return err
			}
			n, err := ed.Save(ctx, a.notes)
			if err != nil {
				return err
			}
			a.printSaved(n, "Updated")
			return nil
		}),
	}
	form.bind(cmd)
	return cmd
}

func newNotesDeleteCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a note",
		Args:  cobra.ExactArgs(1),
		RunE: e.run(func(ctx context.Context, a *app, args []string) error {
			id := model.ParseID(args[0])
			if err := a.enter("/note/" + id.String()); err != nil {
				return err
			}
			if err := a.notes.DeleteNote(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Deleted note %s\n", id)
			return nil
		}),
	}
}

func newNotesShareCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "share <id>",
		Short: "Mint a new share link for a note",
		Args:  cobra.ExactArgs(1),
		RunE: e.run(func(ctx context.Context, a *app, args []string) error {
			id := model.ParseID(args[0])
			if err := a.enter("/note/" + id.String()); err != nil {
				return err
			}
			n, err := a.notes.ShareNote(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, notes.ShareURL(a.shareOrigin(), n.ShareToken))
			return nil
		}),
	}
}

func newSharedCmd(e *env) *cobra.Command {
	var asHTML bool
	cmd := &cobra.Command{
		Use:   "shared <token>",
		Short: "Read a note someone shared with you",
		Args:  cobra.ExactArgs(1),
		RunE: e.run(func(ctx context.Context, a *app, args []string) error {
			token := args[0]
			if err := a.enter("/share/" + token); err != nil {
				return err
			}
			n, err := a.notes.GetSharedNote(ctx, token)
			if err != nil {
				return err
			}
			return a.printNote(ctx, n, asHTML)
		}),
	}
	cmd.Flags().BoolVar(&asHTML, "html", false, "render the note as an HTML page")
	return cmd
}
