package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/sivacor/sivacor-cli/internal/format"
	"github.com/sivacor/sivacor-cli/internal/services"
	"github.com/sivacor/sivacor-cli/pkg/domain"
)

func submissionCmd(c *cli) *cobra.Command {
	sub := &cobra.Command{
		Use:   "submission",
		Short: "Inspect submissions and download their artifacts",
	}
	sub.AddCommand(submissionListCmd(c), submissionGetCmd(c))
	return sub
}

func submissionListCmd(c *cli) *cobra.Command {
	var (
		user    string
		sortBy  string
		sortDir int
		asJSON  bool
		since   string
		head    int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all submissions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if sortDir != 1 && sortDir != -1 {
				return fmt.Errorf("--sortDir must be 1 or -1, got %d", sortDir)
			}
			if head < 0 {
				return fmt.Errorf("--head must not be negative, got %d", head)
			}
			opts := services.SubmissionListOptions{Sort: sortBy, SortDir: sortDir, Head: head}
			if since != "" {
				t, err := format.ParseSince(since, c.cfg.Location())
				if err != nil {
					return err
				}
				opts.Since = t
			}

			ctx := cmd.Context()
			a, err := c.connect(ctx)
			if err != nil {
				return err
			}
			if user != "" {
				u, err := c.resolveUser(ctx, a, user)
				if err != nil {
					return err
				}
				opts.CreatorID = u.ID
				c.infof("Filtering by user ID: %s", u.ID)
			}

			stop := c.spin("Fetching submissions...")
			folders, err := a.Submissions.List(ctx, opts)
			if err != nil {
				stop()
				return err
			}
			if asJSON {
				stop()
				return c.printer().JSON(folders)
			}
			creators, err := a.Users.Directory(ctx)
			stop()
			if err != nil {
				return err
			}
			c.printer().Submissions(folders, creators)
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "Only show submissions created by this user (name, login or email)")
	cmd.Flags().StringVar(&sortBy, "sort", "created", "Field to sort by")
	cmd.Flags().IntVar(&sortDir, "sortDir", -1, "Sort direction: 1 ascending, -1 descending")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output submissions in JSON format")
	cmd.Flags().StringVar(&since, "since", "", "Only show submissions created at or after this local date/time")
	cmd.Flags().IntVar(&head, "head", 0, "Show at most this many submissions (0 for all)")
	return cmd
}

func submissionGetCmd(c *cli) *cobra.Command {
	var (
		download  []string
		asJSON    bool
		outputDir string
	)
	cmd := &cobra.Command{
		Use:   "get <job-id-or-name>",
		Short: "Get details about a submission and optionally download its files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := c.connect(ctx)
			if err != nil {
				return err
			}

			stop := c.spin("Fetching submission...")
			folder, err := a.Submissions.Get(ctx, args[0])
			if err != nil {
				stop()
				return err
			}
			if asJSON {
				stop()
				return c.printer().JSON(folder)
			}
			detail, err := a.Submissions.Detail(ctx, *folder)
			if err != nil {
				stop()
				return err
			}
			files, err := a.Submissions.Files(ctx, *folder)
			stop()
			if err != nil {
				return err
			}

			p := c.printer()
			p.Summary(detail)
			p.AvailableFiles(detail.ArtifactIDs)
			p.Files(files)

			if len(download) == 0 {
				return nil
			}
			fmt.Fprintln(c.stdout)
			results := a.Submissions.Download(ctx, *folder, services.DownloadRequest{
				Slots:    download,
				Dir:      outputDir,
				Progress: c.progress,
			})
			return c.reportDownloads(results)
		},
	}
	cmd.Flags().StringSliceVar(&download, "download", nil,
		fmt.Sprintf("File to download, repeatable: %s or %s", strings.Join(domain.ArtifactNames(), ", "), domain.ArtifactWildcard))
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output submission details in JSON format")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "Directory to save downloads in (default current directory)")
	return cmd
}

// progress draws a byte progress bar on stderr for interactive sessions.
func (c *cli) progress(f domain.File) io.Writer {
	c.infof("Downloading %s...", f.Name)
	if !c.interactive {
		return nil
	}
	return progressbar.NewOptions64(f.Size,
		progressbar.OptionSetWriter(c.stderr),
		progressbar.OptionSetDescription(f.Name),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(24),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

// reportDownloads prints one line per requested slot. Skipped slots are
// warnings; a failed transfer makes the command fail once every slot ran.
func (c *cli) reportDownloads(results []services.DownloadResult) error {
	failed := 0
	for _, r := range results {
		switch {
		case r.Skipped():
			c.warnf("%s", r.Err)
		case r.Err != nil:
			failed++
			fmt.Fprintln(c.stderr, c.ui.err("[ERROR]"), fmt.Sprintf("%s: %v", r.Kind.Spec().DisplayName, r.Err))
		default:
			c.okf("Saved %s to %s (%s)", r.Kind.Spec().DisplayName, r.Path, format.HumanSize(r.Bytes))
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d downloads failed", failed, len(results))
	}
	return nil
}
