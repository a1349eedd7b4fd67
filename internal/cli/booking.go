package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sanosuguru/go-seat-reservation/internal/api/dto"
)

// parseUntil は --until の値を予約リクエストにする
// HH:MM はサーバーのタイムゾーンでの当日の時刻、それ以外は RFC3339 として扱う
func parseUntil(s string) (dto.BookingRequest, error) {
	if s == "" {
		return dto.BookingRequest{}, fmt.Errorf("--until を指定してください")
	}
	if _, err := time.Parse("15:04", s); err == nil {
		return dto.BookingRequest{UntilClock: s}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return dto.BookingRequest{}, fmt.Errorf("--until は HH:MM か RFC3339 で指定してください: %q", s)
	}
	return dto.BookingRequest{Until: &t}, nil
}

func (a *app) bookCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "book <seat-id>",
		Short: "座席を予約",
		Example: `  seatctl book 12 --until 18:30
  seatctl book 12 --until 2026-03-02T18:30:00+05:30`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newPrinter(cmd)
			if err != nil {
				return err
			}
			until, _ := cmd.Flags().GetString("until")
			req, err := parseUntil(until)
			if err != nil {
				return err
			}
			s, err := a.client().Book(cmd.Context(), args[0], req)
			if err != nil {
				return err
			}
			return p.seat(*s)
		},
	}
	cmd.Flags().String("until", "", "予約期限 (HH:MM か RFC3339)")
	addFormatFlag(cmd)
	return cmd
}

func (a *app) releaseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "release <seat-id>",
		Short: "予約を解放",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client().Release(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "座席 %s の予約を解放しました\n", args[0])
			return nil
		},
	}
}
