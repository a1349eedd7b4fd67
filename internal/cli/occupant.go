package cli

import (
	"github.com/spf13/cobra"

	"github.com/sanosuguru/go-seat-reservation/internal/api/dto"
)

func (a *app) meCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "me",
		Short: "自分の利用者情報",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newPrinter(cmd)
			if err != nil {
				return err
			}
			o, err := a.client().Me(cmd.Context())
			if err != nil {
				return err
			}
			if p.format == formatJSON {
				return p.json(o)
			}
			return p.occupants([]dto.OccupantResponse{*o})
		},
	}
	addFormatFlag(cmd)
	return cmd
}

func (a *app) registerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "トークンの利用者を登録",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newPrinter(cmd)
			if err != nil {
				return err
			}
			o, err := a.client().Register(cmd.Context())
			if err != nil {
				return err
			}
			if p.format == formatJSON {
				return p.json(o)
			}
			return p.occupants([]dto.OccupantResponse{*o})
		},
	}
	addFormatFlag(cmd)
	return cmd
}

func (a *app) occupantsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "occupants",
		Short: "一般利用者の一覧（運用者）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newPrinter(cmd)
			if err != nil {
				return err
			}
			list, err := a.client().Occupants(cmd.Context())
			if err != nil {
				return err
			}
			return p.occupants(list)
		},
	}
	addFormatFlag(cmd)
	return cmd
}
