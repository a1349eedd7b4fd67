// Package cli は座席予約APIを操作するコマンドラインツール seatctl
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sanosuguru/go-seat-reservation/internal/client"
)

// app はコマンド間で共有する状態
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *Config
}

// NewRootCommand は seatctl のルートコマンドを作成する
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "seatctl",
		Short: "座席予約APIのコマンドラインツール",
		Long: `座席の一覧と予約、運用者による座席の管理、
変更ストリームの監視を行うコマンドラインツールです。`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(a.v, a.cfgFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "設定ファイル (デフォルトは $HOME/.seatctl/config.yaml)")
	root.PersistentFlags().String("server", "", "APIサーバーのURL")
	root.PersistentFlags().String("token", "", "認証トークン")
	_ = a.v.BindPFlag("server.url", root.PersistentFlags().Lookup("server"))
	_ = a.v.BindPFlag("auth.token", root.PersistentFlags().Lookup("token"))

	root.AddCommand(
		a.seatsCommand(),
		a.bookCommand(),
		a.releaseCommand(),
		a.meCommand(),
		a.registerCommand(),
		a.occupantsCommand(),
		a.boardCommand(),
		a.watchCommand(),
		a.tokenCommand(),
	)
	return root
}

// Execute は seatctl を実行する
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func (a *app) client() *client.Client {
	return client.New(a.cfg.Server.URL, a.cfg.Auth.Token)
}
