package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config は seatctl の設定
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Auth   AuthConfig   `mapstructure:"auth"`
}

type ServerConfig struct {
	URL string `mapstructure:"url"`
}

type AuthConfig struct {
	Token  string `mapstructure:"token"`
	Secret string `mapstructure:"secret"` // token コマンドでの署名用
	Issuer string `mapstructure:"issuer"`
}

// LoadConfig は設定ファイルと環境変数から設定を読み込む
// 環境変数は SEATCTL_SERVER_URL のように SEATCTL_ を前置する
func LoadConfig(v *viper.Viper, cfgFile string) (*Config, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.seatctl")
	}

	v.SetEnvPrefix("SEATCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("server.url")
	_ = v.BindEnv("auth.token")
	_ = v.BindEnv("auth.secret")
	_ = v.BindEnv("auth.issuer")

	v.SetDefault("server.url", "http://localhost:8080")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("設定ファイルの読み込みに失敗しました: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("設定の解析に失敗しました: %w", err)
	}
	return &cfg, nil
}
