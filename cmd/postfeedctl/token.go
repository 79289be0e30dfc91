package main

import (
	"context"
	"fmt"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"github.com/d60-Lab/postfeed/internal/repository"
	"github.com/d60-Lab/postfeed/pkg/database"
	"github.com/d60-Lab/postfeed/pkg/jwtauth"
)

const userFlag = "user"

var tokenFlags = map[string]cobraflags.Flag{
	userFlag: &cobraflags.StringFlag{
		Name:  userFlag,
		Value: "",
		Usage: "Username to issue a token for (required)",
	},
}

// 本地调试用：为已有用户签发 Bearer 令牌
func newTokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a login token for an existing user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			name := tokenFlags[userFlag].GetString()
			if name == "" {
				return fmt.Errorf("--%s is required", userFlag)
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := database.InitDB(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close(db) }()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			u, err := repository.NewUserRepository(db).GetByUsername(ctx, name)
			if err != nil {
				return fmt.Errorf("user %q: %w", name, err)
			}
			tok, err := jwtauth.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL).Issue(u.ID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cobraflags.RegisterMap(cmd, tokenFlags)
	return cmd
}
