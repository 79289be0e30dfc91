// postfeedctl 运维入口：启动服务、迁移、初始化数据、清缓存、签发令牌
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/d60-Lab/postfeed/config"
	"github.com/d60-Lab/postfeed/pkg/logger"
)

const configFlag = "config"

// 持久 flag 需要对所有子命令生效，直接挂在 PersistentFlags 上
var configPath string

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "postfeedctl",
		Short:         "Run and operate the postfeed service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, configFlag, "",
		"Path to config.yaml (defaults to ./config.yaml or ./config/config.yaml)")

	root.AddCommand(
		newServeCommand(),
		newMigrateCommand(),
		newSeedCommand(),
		newCacheCommand(),
		newTokenCommand(),
	)
	return root
}

// loadConfig 读取配置并初始化日志，所有子命令共用
func loadConfig() (*config.Config, error) {
	if p := configPath; p != "" {
		if err := os.Setenv("POSTFEED_CONFIG", p); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, nil
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
