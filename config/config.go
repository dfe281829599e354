package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Session  SessionConfig  `mapstructure:"session"`
	Game     GameConfig     `mapstructure:"game"`
	Database DatabaseConfig `mapstructure:"database"`
}

type ServerConfig struct {
	HTTPAddress    string `mapstructure:"http_address"`
	RPCAddress     string `mapstructure:"rpc_address"`
	MetricsAddress string `mapstructure:"metrics_address"`
}

type SessionConfig struct {
	// SweepInterval is how often the store looks for idle sessions.
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	// IdleTimeout is how long a session may go without activity before eviction.
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
}

type GameConfig struct {
	// Formulation selects the rule set served by this process.
	Formulation string `mapstructure:"formulation"`
	// AutoStart starts a game as the owner once every required role is filled.
	AutoStart bool `mapstructure:"auto_start"`
}

type DatabaseConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

func LoadConfig(path string) (config *Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("server.http_address", ":8080")
	viper.SetDefault("server.rpc_address", ":8081")
	viper.SetDefault("server.metrics_address", ":9100")
	viper.SetDefault("session.sweep_interval", 5*time.Minute)
	viper.SetDefault("session.idle_timeout", time.Hour)
	viper.SetDefault("game.formulation", "tictactoe")

	viper.AutomaticEnv()

	// 没有配置文件时用默认值跑
	if err = viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
		err = nil
	}

	err = viper.Unmarshal(&config)
	return
}
