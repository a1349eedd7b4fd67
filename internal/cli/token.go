package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/occupant"
	"github.com/sanosuguru/go-seat-reservation/internal/pkg/authtoken"
)

func (a *app) tokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "開発用のトークンを発行",
		Long: `サーバーと同じシークレットで署名したトークンを発行します。
本番では外部の認証基盤が発行したトークンを使ってください。`,
		Example: `  SEATCTL_AUTH_SECRET=dev seatctl token --id u1 --name Alice
  seatctl token --id admin --role operator --secret dev`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := cmd.Flags().GetString("id")
			name, _ := cmd.Flags().GetString("name")
			roleFlag, _ := cmd.Flags().GetString("role")
			ttl, _ := cmd.Flags().GetDuration("ttl")
			secret, _ := cmd.Flags().GetString("secret")
			if secret == "" {
				secret = a.cfg.Auth.Secret
			}

			role, err := occupant.ParseRole(roleFlag)
			if err != nil {
				return fmt.Errorf("--role が不正です: %q", roleFlag)
			}
			if name == "" {
				name = id
			}

			raw, err := authtoken.NewSigner(secret, a.cfg.Auth.Issuer).Issue(authtoken.Identity{ID: id, Name: name, Role: role}, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), raw)
			return nil
		},
	}
	cmd.Flags().String("id", "", "利用者ID")
	cmd.Flags().String("name", "", "表示名 (省略時はID)")
	cmd.Flags().String("role", "regular", "権限 (regular|operator)")
	cmd.Flags().Duration("ttl", 24*time.Hour, "有効期間 (0で期限なし)")
	cmd.Flags().String("secret", "", "署名用シークレット (省略時は設定の auth.secret)")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}
