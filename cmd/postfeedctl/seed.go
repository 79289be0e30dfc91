package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/d60-Lab/postfeed/internal/model"
	"github.com/d60-Lab/postfeed/internal/repository"
	"github.com/d60-Lab/postfeed/pkg/database"
	"github.com/d60-Lab/postfeed/pkg/logger"
)

const (
	usersFlag  = "users"
	groupsFlag = "groups"
)

var seedFlags = map[string]cobraflags.Flag{
	usersFlag: &cobraflags.StringFlag{
		Name:  usersFlag,
		Value: "",
		Usage: "Comma separated usernames to create, e.g. alice,bob",
	},
	groupsFlag: &cobraflags.StringFlag{
		Name:  groupsFlag,
		Value: "",
		Usage: "Comma separated slug:Title pairs, e.g. news:News,go:Go",
	},
}

func newSeedCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create users and groups that do not exist yet",
		RunE:  seedCommand,
	}
	cobraflags.RegisterMap(cmd, seedFlags)
	return cmd
}

func seedCommand(cmd *cobra.Command, _ []string) error {
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
	if err := seedUsers(ctx, repository.NewUserRepository(db), splitList(seedFlags[usersFlag].GetString())); err != nil {
		return err
	}
	return seedGroups(ctx, repository.NewGroupRepository(db), splitList(seedFlags[groupsFlag].GetString()))
}

func seedUsers(ctx context.Context, users repository.UserRepository, names []string) error {
	for _, name := range names {
		_, err := users.GetByUsername(ctx, name)
		if err == nil {
			continue
		}
		if !errors.Is(err, model.ErrNotFound) {
			return err
		}
		u := &model.User{Username: name, Email: name + "@example.com"}
		if err := users.Create(ctx, u); err != nil {
			return fmt.Errorf("create user %q: %w", name, err)
		}
		logger.Info("user created", zap.String("username", name), zap.Uint("id", u.ID))
	}
	return nil
}

func seedGroups(ctx context.Context, groups repository.GroupRepository, pairs []string) error {
	for _, pair := range pairs {
		slug, title, ok := strings.Cut(pair, ":")
		if !ok || title == "" {
			title = slug
		}
		_, err := groups.GetBySlug(ctx, slug)
		if err == nil {
			continue
		}
		if !errors.Is(err, model.ErrNotFound) {
			return err
		}
		g := &model.Group{Slug: slug, Title: title}
		if err := groups.Create(ctx, g); err != nil {
			return fmt.Errorf("create group %q: %w", slug, err)
		}
		logger.Info("group created", zap.String("slug", slug), zap.Uint("id", g.ID))
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
