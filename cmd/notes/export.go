package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kuitang/notes-client/internal/errs"
	"github.com/kuitang/notes-client/internal/export"
	"github.com/kuitang/notes-client/internal/s3client"
)

func newExportCmd(e *env) *cobra.Command {
	var dir, prefix string
	var toS3, prune bool
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every note as HTML and Markdown plus an index.json",
		Long: `Export renders every note to <prefix>notes/<id>.html and .md and writes
<prefix>index.json last. The target is a local directory (--dir) or the S3
bucket from the configuration (--s3).`,
		Args: cobra.NoArgs,
		RunE: e.run(func(ctx context.Context, a *app, _ []string) error {
			if err := a.enter("/"); err != nil {
				return err
			}

			var (
				sink   export.Sink
				target string
			)
			switch {
			case toS3:
				if !a.cfg.S3Enabled() {
					return errs.New(errs.InvalidArgument, "S3 export is not configured (set BUCKET_NAME and credentials)")
				}
				client, err := s3client.New(ctx, s3client.Config{
					Endpoint:        a.cfg.AWSEndpointS3,
					Region:          a.cfg.AWSRegion,
					AccessKeyID:     a.cfg.AWSAccessKeyID,
					SecretAccessKey: a.cfg.AWSSecretAccessKey,
					BucketName:      a.cfg.AWSBucketName,
					UsePathStyle:    a.cfg.AWSEndpointS3 != "",
				})
				if err != nil {
					return err
				}
				sink, target = client, client.URL(export.IndexKey(prefix))
			case dir != "":
				sink, target = &export.Dir{Root: dir}, dir
			default:
				return errs.New(errs.InvalidArgument, "choose a target with --dir or --s3")
			}

			list := a.notes.LoadNotes(ctx)
			if msg := a.notes.State().Error; msg != "" {
				return errs.New(errs.Unavailable, msg)
			}
			theme, err := a.prefs.Theme(ctx)
			if err != nil {
				return err
			}
			res, err := export.Export(ctx, sink, list, export.Options{
				Prefix:      prefix,
				ShareOrigin: a.shareOrigin(),
				Theme:       string(theme),
				Prune:       prune,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Exported %d notes (%d files) to %s", res.Index.Count, res.Written, target)
			if res.Pruned > 0 {
				fmt.Fprintf(a.out, ", removed %d stale files", res.Pruned)
			}
			fmt.Fprintln(a.out)
			return nil
		}),
	}
	cmd.Flags().StringVar(&dir, "dir", "", "export into this local directory")
	cmd.Flags().BoolVar(&toS3, "s3", false, "export into the configured S3 bucket")
	cmd.Flags().StringVar(&prefix, "prefix", "", "key prefix inside the target, e.g. backups/")
	cmd.Flags().BoolVar(&prune, "prune", false, "delete exported files of notes that no longer exist")
	cmd.MarkFlagsMutuallyExclusive("dir", "s3")
	return cmd
}
