package cmd

import (
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/op-booking/internal/records"
)

func newBookingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bookings",
		Short: "Previous bookings and their confirmation status",
	}
	cmd.AddCommand(newBookingsListCmd())
	cmd.AddCommand(newBookingsAckCmd())
	return cmd
}

func openBoard(env *appEnv) (*records.Board, error) {
	u, err := env.requireUser()
	if err != nil {
		return nil, err
	}
	return records.NewBoard(env.api, u.AadhaarNumber, records.WithLogger(env.log))
}

func printBoard(out io.Writer, b *records.Board) error {
	entries := b.Records()
	if len(entries) == 0 {
		_, err := fmt.Fprintln(out, "No bookings found.")
		return err
	}
	now := time.Now()
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tTIME\tDEPARTMENT\tSYMPTOMS\tSTATUS")
	for _, e := range entries {
		status := records.DisplayStatus(e.HealthRecord, now)
		if records.CanAcknowledge(e.HealthRecord, now) {
			status += " (confirm/cancel)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", e.ID, e.SlipDate, e.SlotTime, e.Department, e.Symptoms, status)
	}
	return tw.Flush()
}

func newBookingsListCmd() *cobra.Command {
	var watch bool
	c := &cobra.Command{
		Use:   "list",
		Short: "List previous bookings",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv(nil)
			if err != nil {
				return err
			}
			b, err := openBoard(env)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if err := b.Refresh(cmd.Context()); err != nil {
				return err
			}
			if err := printBoard(out, b); err != nil || !watch {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			go b.Poll(ctx, env.cfg.RecordsRefresh)
			last := b.RefreshedAt()
			tick := time.NewTicker(time.Second)
			defer tick.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-tick.C:
				}
				if at := b.RefreshedAt(); at.After(last) {
					last = at
					fmt.Fprintf(out, "\n-- %s --\n", at.Format(time.Kitchen))
					if err := printBoard(out, b); err != nil {
						return err
					}
				} else if msg := b.Err(); msg != "" {
					fmt.Fprintln(out, msg)
				}
			}
		},
	}
	c.Flags().BoolVar(&watch, "watch", false, "keep refreshing until interrupted (RECORDS_REFRESH_SECONDS)")
	return c
}

func newBookingsAckCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "ack <id> confirm|cancel",
		Short:     "Confirm or cancel an upcoming booking",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"confirm", "cancel"},
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv(nil)
			if err != nil {
				return err
			}
			b, err := openBoard(env)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := b.Refresh(ctx); err != nil {
				return err
			}
			if err := b.Acknowledge(ctx, args[0], args[1]); err != nil {
				return err
			}
			return printBoard(cmd.OutOrStdout(), b)
		},
	}
}
