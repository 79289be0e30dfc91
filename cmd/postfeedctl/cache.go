package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/d60-Lab/postfeed/internal/app"
	"github.com/d60-Lab/postfeed/internal/cache"
)

func newCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the index page cache",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Drop every cached index page",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			rdb := app.NewRedis(cfg.Redis)
			defer func() { _ = rdb.Close() }()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			n, err := cache.NewIndexCache(rdb, cfg.Cache.IndexPrefix, cfg.Cache.IndexTTL).Clear(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d cached pages\n", n)
			return nil
		},
	})
	return cmd
}
