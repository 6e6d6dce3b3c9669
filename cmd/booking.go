package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/example/room-booking/internal/bookings"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newBookingCmd() *cobra.Command {
	var inMemory bool
	cmd := &cobra.Command{
		Use:   "booking",
		Short: "Manage bookings (non-UI)",
	}
	cmd.PersistentFlags().BoolVar(&inMemory, "in-memory", false, "use a throwaway in-memory store")

	withApp := func(run func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			a, err := newApp(ctx, appOptions{migrate: true, inMemory: inMemory, cli: true})
			if err != nil {
				return err
			}
			defer a.Close()
			return run(ctx, a, cmd, args)
		}
	}

	cmd.AddCommand(newBookingCreateCmd(withApp))
	cmd.AddCommand(newBookingListCmd(withApp))
	cmd.AddCommand(newBookingGetCmd(withApp))
	cmd.AddCommand(newBookingDeleteCmd(withApp))
	cmd.AddCommand(newBookingStatsCmd(withApp))
	return cmd
}

type appRunner func(run func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error

func newBookingCreateCmd(withApp appRunner) *cobra.Command {
	var f bookings.Form
	c := &cobra.Command{
		Use:   "create",
		Short: "Check availability and record the booking",
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			req, err := f.Request()
			if err != nil {
				return err
			}
			b, out, err := a.bookings.Submit(ctx, req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "id=%s status=%s message=%q\n", b.ID, b.Status, out.Message)
			return nil
		}),
	}
	slotFlags(c, &f)
	c.Flags().StringVar(&f.UserEmail, "email", "", "email of the person booking")
	c.Flags().StringVar(&f.Purpose, "purpose", "", "optional purpose")
	_ = c.MarkFlagRequired("email")
	return c
}

func newBookingListCmd(withApp appRunner) *cobra.Command {
	var (
		f            bookings.Filter
		status, date string
	)
	c := &cobra.Command{
		Use:   "list",
		Short: "List bookings, newest first",
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			var err error
			if status != "" {
				if f.Status, err = bookings.ParseStatus(status); err != nil {
					return err
				}
			}
			if date != "" {
				if f.Date, err = bookings.ParseDate(date); err != nil {
					return err
				}
			}
			list, err := a.bookings.List(ctx, f)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tROOM\tDATE\tTIME\tTYPE\tEMAIL\tSTATUS")
			for _, b := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s-%s\t%s\t%s\t%s\n",
					b.ID, b.RoomNumber, b.BookingDate, b.StartTime.Short(), b.EndTime.Short(), b.BookingType, b.UserEmail, b.Status)
			}
			return tw.Flush()
		}),
	}
	c.Flags().StringVar(&f.UserEmail, "email", "", "filter by email (substring)")
	c.Flags().StringVar(&status, "status", "", "filter by status")
	c.Flags().StringVar(&date, "date", "", "filter by booking date YYYY-MM-DD")
	c.Flags().IntVar(&f.Limit, "limit", bookings.DefaultPageSize, "page size")
	c.Flags().IntVar(&f.Offset, "offset", 0, "rows to skip")
	return c
}

func newBookingGetCmd(withApp appRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Print one booking as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid booking id: %w", err)
			}
			b, err := a.bookings.Get(ctx, id)
			if err != nil {
				return err
			}
			return printJSON(cmd, b)
		}),
	}
}

func newBookingDeleteCmd(withApp appRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a booking",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid booking id: %w", err)
			}
			if err := a.bookings.Delete(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
			return nil
		}),
	}
}

func newBookingStatsCmd(withApp appRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count bookings by status",
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			s, err := a.bookings.Stats(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "total=%d confirmed=%d rejected=%d pending=%d\n", s.Total, s.Confirmed, s.Rejected, s.Pending)
			return nil
		}),
	}
}
