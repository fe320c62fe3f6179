package serve

import (
	"context"

	"github.com/Acr4niu5/beatsync-local/internal/config"
	"github.com/Acr4niu5/beatsync-local/internal/logging"
	"github.com/Acr4niu5/beatsync-local/internal/server"
)

type Flags struct {
	EnvFile string
	Port    int
}

// Run loads configuration and blocks serving HTTP until interrupted.
func Run(flags Flags) {
	cfg, err := config.Load(flags.EnvFile)
	if err != nil {
		logging.Fatal("invalid configuration", logging.Err(err))
	}
	if flags.Port > 0 {
		cfg.Port = flags.Port
	}

	if err := logging.Init(cfg.Log); err != nil {
		logging.Fatal("init logger", logging.Err(err))
	}
	defer logging.Sync()
	logging.Info("configuration loaded", logging.String("config", cfg.String()))

	if err := server.Serve(context.Background(), cfg); err != nil {
		logging.Fatal("server exited", logging.Err(err))
	}
}
