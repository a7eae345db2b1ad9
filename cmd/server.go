package cmd

import (
	"github.com/fzft/go-mini-redis/config"
	"github.com/fzft/go-mini-redis/log"
	"github.com/fzft/go-mini-redis/node"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func serverCmd() *cobra.Command {
	var (
		configPath string
		addr       string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Accept connections and answer frames",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("loglevel") {
				cfg.Log.Level = logLevel
			}

			if err := log.InitLogger(cfg.Log.Level); err != nil {
				return err
			}
			defer log.Sync()

			log.Logger.Info("starting server",
				zap.String("addr", cfg.Server.Addr),
				zap.Int("max_clients", cfg.Server.MaxClients),
				zap.Int("max_bulk_len", cfg.Protocol.MaxBulkLen),
			)

			s := node.NewServer(cfg)
			s.SetHandler(node.DefaultHandler{})
			return s.Run()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path of the TOML config file")
	cmd.Flags().StringVar(&addr, "addr", config.DefaultAddr, "Address to listen on")
	cmd.Flags().StringVar(&logLevel, "loglevel", config.DefaultLogLevel, "Log level: debug, info, warn or error")
	return cmd
}
