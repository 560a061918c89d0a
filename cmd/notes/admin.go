package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kuitang/notes-client/internal/admin"
	"github.com/kuitang/notes-client/internal/errs"
	"github.com/kuitang/notes-client/internal/model"
)

func newAdminCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administer users (admins only)",
	}
	cmd.AddCommand(
		newAdminStatsCmd(e),
		newAdminUsersCmd(e),
		newAdminRestrictCmd(e, true),
		newAdminRestrictCmd(e, false),
		newAdminDeleteCmd(e),
		newAdminRoleCmd(e, true),
		newAdminRoleCmd(e, false),
	)
	return cmd
}

// adminService enters path and returns the admin service.
func (a *app) adminService(path string) (*admin.Service, error) {
	if err := a.enter(path); err != nil {
		return nil, err
	}
	return admin.NewService(a.client, a.session), nil
}

func newAdminStatsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show user and note totals",
		Args:  cobra.NoArgs,
		RunE: e.run(func(ctx context.Context, a *app, _ []string) error {
			svc, err := a.adminService("/admin")
			if err != nil {
				return err
			}
			st, err := svc.Stats(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "users:      %d\n", st.TotalUsers)
			fmt.Fprintf(a.out, "admins:     %d\n", st.TotalAdmins)
			fmt.Fprintf(a.out, "notes:      %d\n", st.TotalNotes)
			fmt.Fprintf(a.out, "restricted: %d\n", st.RestrictedUsers)
			if len(st.RecentUsers) > 0 {
				fmt.Fprintln(a.out, "\nRecent users:")
				return printUsers(a, st.RecentUsers)
			}
			return nil
		}),
	}
}

func printUsers(a *app, users []model.AdminUser) error {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tROLES\tRESTRICTED\tNOTES\tJOINED")
	for _, u := range users {
		restricted := ""
		if u.Restricted {
			restricted = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			u.ID, u.Name, u.Email, u.Roles, restricted, u.NotesCount, u.CreatedAt.Format("2006-01-02"))
	}
	return tw.Flush()
}

func newAdminUsersCmd(e *env) *cobra.Command {
	var search, sortBy string
	var desc bool
	cmd := &cobra.Command{
		Use:   "users",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: e.run(func(ctx context.Context, a *app, _ []string) error {
			key, err := admin.ParseSortKey(sortBy)
			if err != nil {
				return err
			}
			svc, err := a.adminService("/admin/users")
			if err != nil {
				return err
			}
			users, err := svc.Users(ctx)
			if err != nil {
				return err
			}
			table := admin.Table{Search: search, Key: key, Desc: desc}
			rows := table.Apply(users)
			if len(rows) == 0 {
				fmt.Fprintln(a.out, "No users.")
				return nil
			}
			return printUsers(a, rows)
		}),
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "only users whose name or email contains this text")
	cmd.Flags().StringVar(&sortBy, "sort", string(admin.SortName), "sort column: name, email, restricted, createdAt, notesCount")
	cmd.Flags().BoolVar(&desc, "desc", false, "sort descending")
	return cmd
}

// findUser looks id up in the admin user list.
func findUser(ctx context.Context, svc *admin.Service, id model.ID) (model.User, error) {
	users, err := svc.Users(ctx)
	if err != nil {
		return model.User{}, err
	}
	for _, u := range users {
		if u.ID == id {
			return u.User, nil
		}
	}
	return model.User{}, errs.New(errs.NotFound, fmt.Sprintf("User %s not found", id))
}

func newAdminRestrictCmd(e *env, restrict bool) *cobra.Command {
	use, short, done := "restrict <user-id>", "Restrict a user", "Restricted"
	if !restrict {
		use, short, done = "unrestrict <user-id>", "Lift a user's restriction", "Unrestricted"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: e.run(func(ctx context.Context, a *app, args []string) error {
			svc, err := a.adminService("/admin/users")
			if err != nil {
				return err
			}
			target, err := findUser(ctx, svc, model.ParseID(args[0]))
			if err != nil {
				return err
			}
			if err := svc.Restrict(ctx, target, restrict); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s %s <%s>\n", done, target.Name, target.Email)
			return nil
		}),
	}
}

func newAdminDeleteCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <user-id>",
		Short: "Delete a user and all their notes",
		Args:  cobra.ExactArgs(1),
		RunE: e.run(func(ctx context.Context, a *app, args []string) error {
			svc, err := a.adminService("/admin/users")
			if err != nil {
				return err
			}
			id := model.ParseID(args[0])
			if err := svc.Delete(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Deleted user %s\n", id)
			return nil
		}),
	}
}

func newAdminRoleCmd(e *env, promote bool) *cobra.Command {
	use, short := "promote <user-id>", "Grant the admin role"
	if !promote {
		use, short = "demote <user-id>", "Revoke the admin role"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: e.run(func(ctx context.Context, a *app, args []string) error {
			svc, err := a.adminService("/admin/users")
			if err != nil {
				return err
			}
			id := model.ParseID(args[0])
			change := svc.Promote
			if !promote {
				change = svc.Demote
			}
			roles, err := change(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "User %s roles: %s\n", id, roles)
			return nil
		}),
	}
}
