package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) seatsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seats",
		Short: "座席の一覧と管理",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "座席の一覧",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newPrinter(cmd)
			if err != nil {
				return err
			}
			seats, err := a.client().ListSeats(cmd.Context())
			if err != nil {
				return err
			}
			return p.seats(seats)
		},
	}
	addFormatFlag(list)

	create := &cobra.Command{
		Use:   "create",
		Short: "座席を作成（運用者）",
		Long:  "既存IDの最大値+1から連番で空席を作成します",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newPrinter(cmd)
			if err != nil {
				return err
			}
			count, _ := cmd.Flags().GetInt("count")
			if count < 1 {
				return fmt.Errorf("--count は1以上を指定してください")
			}
			seats, err := a.client().CreateSeats(cmd.Context(), count)
			if err != nil {
				return err
			}
			return p.seats(seats)
		},
	}
	create.Flags().IntP("count", "n", 1, "作成する座席数")
	addFormatFlag(create)

	del := &cobra.Command{
		Use:   "delete <seat-id>",
		Short: "空席を削除（運用者）",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client().DeleteSeat(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "座席 %s を削除しました\n", args[0])
			return nil
		},
	}

	toggle := &cobra.Command{
		Use:   "toggle <seat-id>",
		Short: "空席と使用中を切り替える（運用者）",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newPrinter(cmd)
			if err != nil {
				return err
			}
			s, err := a.client().ToggleSeat(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return p.seat(*s)
		},
	}
	addFormatFlag(toggle)

	cmd.AddCommand(list, create, del, toggle)
	return cmd
}
