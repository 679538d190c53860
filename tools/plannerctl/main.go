// plannerctl is a small command line client for the calendar service.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/md-rashed-zaman/dayplanner/libs/runtime"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var (
	baseURL string
	timeout time.Duration
)

func main() {
	ctx, stop := runtime.SignalContext(context.Background())
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "plannerctl",
		Short:         "Inspect and edit the day planner from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&baseURL, "base-url", getenv("PLANNER_URL", "http://localhost:8080"), "calendar service base url")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Second, "request timeout")

	root.AddCommand(newListCmd(), newNextSlotCmd(), newAddCmd(), newDeleteCmd())
	return root
}

func newListCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List events, optionally for one date",
		RunE: func(cmd *cobra.Command, _ []string) error {
			evs, err := apiClient().listEvents(cmd.Context(), date)
			if err != nil {
				return err
			}
			renderEvents(cmd.OutOrStdout(), evs)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "only events on this date (YYYY-MM-DD)")
	return cmd
}

func newNextSlotCmd() *cobra.Command {
	var (
		date    string
		minutes int
	)
	cmd := &cobra.Command{
		Use:   "next-slot",
		Short: "Find the earliest free slot on a date",
		Example: `  plannerctl next-slot --date 2026-01-28 --minutes 30`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := apiClient().nextSlot(cmd.Context(), date, minutes)
			if err != nil {
				return err
			}
			if s == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "no free slot")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", s.Start, s.End)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", time.Now().Format("2006-01-02"), "date to search (YYYY-MM-DD)")
	cmd.Flags().IntVar(&minutes, "minutes", 30, "slot length in minutes")
	return cmd
}

func newAddCmd() *cobra.Command {
	var ev event
	cmd := &cobra.Command{
		Use:     "add",
		Short:   "Create an event",
		Example: `  plannerctl add --title Standup --date 2026-01-28 --start 09:00 --end 09:15`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			saved, err := apiClient().addEvent(cmd.Context(), ev)
			if err != nil {
				return err
			}
			renderEvents(cmd.OutOrStdout(), []event{saved})
			return nil
		},
	}
	cmd.Flags().StringVar(&ev.Title, "title", "", "event title")
	cmd.Flags().StringVar(&ev.Type, "type", "MEETING", "REMINDER, MEETING, TASK or OOO")
	cmd.Flags().StringVar(&ev.Date, "date", "", "date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&ev.StartTime, "start", "", "start time (HH:MM)")
	cmd.Flags().StringVar(&ev.EndTime, "end", "", "end time (HH:MM)")
	for _, name := range []string{"title", "date", "start", "end"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := apiClient().deleteEvent(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

func renderEvents(w io.Writer, evs []event) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Date", "Start", "End", "Type", "Title"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	for _, e := range evs {
		table.Append([]string{e.ID, e.Date, e.StartTime, e.EndTime, e.Type, e.Title})
	}
	table.Render()
}

func apiClient() *client {
	return newClient(baseURL, timeout)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
