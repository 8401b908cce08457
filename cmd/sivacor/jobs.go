package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sivacor/sivacor-cli/internal/format"
	"github.com/sivacor/sivacor-cli/internal/services"
	"github.com/sivacor/sivacor-cli/internal/stream"
	"github.com/sivacor/sivacor-cli/pkg/domain"
)

func jobCmd(c *cli) *cobra.Command {
	job := &cobra.Command{
		Use:   "job",
		Short: "Inspect jobs and follow their logs",
	}

	var (
		statuses []int
		types    []string
		asJSON   bool
		since    string
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List all submission jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := services.JobListOptions{Statuses: statuses, Types: types}
			if since != "" {
				t, err := format.ParseSince(since, c.cfg.Location())
				if err != nil {
					return err
				}
				opts.Since = t
			}
			a, err := c.connect(cmd.Context())
			if err != nil {
				return err
			}
			stop := c.spin("Fetching jobs...")
			jobs, err := a.Jobs.List(cmd.Context(), opts)
			stop()
			if err != nil {
				return err
			}
			p := c.printer()
			if asJSON {
				return p.JSON(jobs)
			}
			p.Jobs(jobs)
			return nil
		},
	}
	list.Flags().IntSliceVar(&statuses, "status", nil, "Filter jobs by status code, repeatable (e.g. 4 for Failed)")
	list.Flags().StringSliceVar(&types, "types", []string{domain.DefaultJobType}, "Filter jobs by type, repeatable")
	list.Flags().BoolVar(&asJSON, "json", false, "Output job list in JSON format")
	list.Flags().StringVar(&since, "since", "", "Only show jobs created at or after this local date/time")

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Get a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.connect(cmd.Context())
			if err != nil {
				return err
			}
			stop := c.spin("Fetching job...")
			j, err := a.Jobs.Get(cmd.Context(), args[0])
			stop()
			if errors.Is(err, services.ErrNotFound) {
				return fmt.Errorf("job '%s' not found", args[0])
			}
			if err != nil {
				return err
			}
			return c.printer().JSON(j)
		},
	}

	streamCmd := &cobra.Command{
		Use:   "stream",
		Short: "Follow the live job log stream",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := c.connect(ctx)
			if err != nil {
				return err
			}
			shown, err := stream.URL(a.Config.APIURL, "")
			if err != nil {
				return err
			}
			u, err := stream.URL(a.Config.APIURL, a.Client.Token())
			if err != nil {
				return err
			}

			w := c.stdout
			rule := strings.Repeat("=", 60)
			fmt.Fprintf(w, "Attempting to connect to WebSocket at: %s...\n", shown)
			conn, err := stream.Dial(ctx, u, c.logger)
			if err != nil {
				return err
			}
			fmt.Fprintln(w, c.ui.ok("Connection successful!"), "Subscribed to log stream.")
			fmt.Fprintln(w, rule)
			defer func() {
				fmt.Fprintln(w, rule)
				fmt.Fprintln(w, "Log stream client stopped.")
			}()

			res, err := conn.Receive(ctx, w)
			if err != nil {
				return err
			}
			switch res.Outcome {
			case stream.ClosedGracefully:
				fmt.Fprintln(w, "\nConnection closed gracefully by the server.")
			case stream.ClosedByServer:
				fmt.Fprintf(w, "\nConnection closed unexpectedly (Code: %d, Reason: %s).\n", res.Code, res.Reason)
			case stream.Stopped:
				fmt.Fprintln(w, "\nClient stopped by user (Ctrl+C)")
			}
			return nil
		},
	}

	job.AddCommand(list, get, streamCmd)
	return job
}
