package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/occupant"
	"github.com/sanosuguru/go-seat-reservation/internal/pkg/authtoken"
	"github.com/sanosuguru/go-seat-reservation/internal/view"
)

func (a *app) boardCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "自分から見た座席表",
		Long:  "* は自分の座席、x は押せない座席です",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newPrinter(cmd)
			if err != nil {
				return err
			}
			tiles, err := a.client().Board(cmd.Context())
			if err != nil {
				return err
			}
			return p.tiles(tiles)
		},
	}
	addFormatFlag(cmd)
	return cmd
}

func (a *app) watchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "座席表の変化を監視",
		Long:  "変更ストリームに接続し、座席表が変わるたびに表示します。Ctrl+C で終了します",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newPrinter(cmd)
			if err != nil {
				return err
			}
			viewer := view.Viewer{}
			if a.cfg.Auth.Token != "" {
				id, err := authtoken.Peek(a.cfg.Auth.Token)
				if err != nil {
					return err
				}
				viewer = view.Viewer{ID: id.ID, Operator: id.Role == occupant.RoleOperator}
			}

			board := view.NewBoard(viewer)
			render := func() {
				now := time.Now()
				if p.format == formatText {
					fmt.Fprintf(p.w, "--- %s ---\n", now.Format("15:04:05"))
				}
				if err := p.tiles(board.Tiles(now, p.loc)); err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), err)
				}
			}

			err = a.client().Watch(cmd.Context(), board, render)
			if err != nil && cmd.Context().Err() != nil {
				// Ctrl+C による終了
				return nil
			}
			return err
		},
	}
	addFormatFlag(cmd)
	return cmd
}
