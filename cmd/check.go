package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/room-booking/internal/availability"
	"github.com/example/room-booking/internal/bookings"
	"github.com/example/room-booking/internal/config"
	"github.com/example/room-booking/internal/logging"
	"github.com/spf13/cobra"
)

func newCheckCmd() *cobra.Command {
	var f bookings.Form
	c := &cobra.Command{
		Use:   "check",
		Short: "Ask the availability service about a slot without booking it",
		RunE: func(cmd *cobra.Command, args []string) error {
			f.UserEmail = "availability-check@example.com"
			req, err := f.Request()
			if err != nil {
				return err
			}

			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			log, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile, Stderr: true})
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			client := availability.New(availability.Config{
				BaseURL: cfg.AvailabilityURL,
				Timeout: cfg.AvailabilityTimeout,
			}, log)
			out := client.Check(context.Background(), req.AvailabilityRequest())

			if err := printJSON(cmd, out); err != nil {
				return err
			}
			if !out.Succeeded {
				return fmt.Errorf("availability check failed: %s", out.FailureKind)
			}
			return nil
		},
	}
	slotFlags(c, &f)
	return c
}

// slotFlags binds the room, date, time and type flags shared by check and
// booking create.
func slotFlags(c *cobra.Command, f *bookings.Form) {
	c.Flags().StringVar(&f.RoomNumber, "room", "", "room number")
	c.Flags().StringVar(&f.BookingDate, "date", "", "booking date YYYY-MM-DD")
	c.Flags().StringVar(&f.StartTime, "start", "", "start time HH:MM or HH:MM:SS")
	c.Flags().StringVar(&f.EndTime, "end", "", "end time HH:MM or HH:MM:SS")
	c.Flags().StringVar(&f.BookingType, "type", string(bookings.TypeLesson), "lesson, exam or meeting")
	_ = c.MarkFlagRequired("room")
	_ = c.MarkFlagRequired("date")
	_ = c.MarkFlagRequired("start")
	_ = c.MarkFlagRequired("end")
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
