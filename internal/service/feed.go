package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/d60-Lab/postfeed/internal/model"
	"github.com/d60-Lab/postfeed/internal/repository"
)

// PageSize 每页帖子数
const PageSize = 10

type FeedKind int

const (
	FeedGlobal FeedKind = iota + 1
	FeedGroup
	FeedProfile
	FeedFollowing
)

func (k FeedKind) String() string {
	switch k {
	case FeedGlobal:
		return "global"
	case FeedGroup:
		return "group"
	case FeedProfile:
		return "profile"
	case FeedFollowing:
		return "following"
	default:
		return "unknown"
	}
}

// FeedQuery 一次 feed 请求。Page 为 ParsePage 的结果，越界由 Assemble 处理
type FeedQuery struct {
	Kind      FeedKind
	GroupSlug string      // FeedGroup
	Username  string      // FeedProfile
	Viewer    *model.User // 匿名为 nil
	Page      int
}

// Page 一页帖子
type Page struct {
	Posts    []*model.Post
	Number   int
	NumPages int
	Total    int64
}

func (p *Page) HasNext() bool     { return p.Number < p.NumPages }
func (p *Page) HasPrevious() bool { return p.Number > 1 }

// Feed 组装结果；Group / Author 等只在对应类型下填充
type Feed struct {
	Kind        FeedKind
	Page        *Page
	Group       *model.Group
	Author      *model.User
	PostCount   int64
	IsFollowing bool
}

// ParsePage 缺失或非整数返回 1，其余原样返回（包括 <1 的值）
func ParsePage(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 1
	}
	return n
}

type FeedService interface {
	Assemble(ctx context.Context, q FeedQuery) (*Feed, error)
	// Profile 作者主页：帖子、帖子总数、当前用户是否已关注
	Profile(ctx context.Context, username string, viewer *model.User, page int) (*Feed, error)
}

type feedService struct {
	users   repository.UserRepository
	groups  repository.GroupRepository
	posts   repository.PostRepository
	follows repository.FollowRepository
}

func NewFeedService(users repository.UserRepository, groups repository.GroupRepository, posts repository.PostRepository, follows repository.FollowRepository) FeedService {
	return &feedService{users: users, groups: groups, posts: posts, follows: follows}
}

func (s *feedService) Assemble(ctx context.Context, q FeedQuery) (*Feed, error) {
	feed := &Feed{Kind: q.Kind}
	var filter repository.PostFilter

	switch q.Kind {
	case FeedGlobal:
	case FeedGroup:
		g, err := s.groups.GetBySlug(ctx, q.GroupSlug)
		if err != nil {
			return nil, fmt.Errorf("group %q: %w", q.GroupSlug, err)
		}
		feed.Group = g
		filter.GroupID = &g.ID
	case FeedProfile:
		u, err := s.users.GetByUsername(ctx, q.Username)
		if err != nil {
			return nil, fmt.Errorf("user %q: %w", q.Username, err)
		}
		feed.Author = u
		filter.AuthorID = &u.ID
		if q.Viewer != nil && q.Viewer.ID != u.ID {
			ok, err := s.follows.Exists(ctx, q.Viewer.ID, u.ID)
			if err != nil {
				return nil, err
			}
			feed.IsFollowing = ok
		}
	case FeedFollowing:
		if q.Viewer == nil {
			return nil, model.ErrUnauthenticated
		}
		filter.FollowerID = &q.Viewer.ID
	default:
		return nil, fmt.Errorf("unknown feed kind %d", q.Kind)
	}

	page, err := s.paginate(ctx, filter, q.Page)
	if err != nil {
		return nil, err
	}
	feed.Page = page
	if q.Kind == FeedProfile {
		feed.PostCount = page.Total
	}
	return feed, nil
}

func (s *feedService) Profile(ctx context.Context, username string, viewer *model.User, page int) (*Feed, error) {
	return s.Assemble(ctx, FeedQuery{Kind: FeedProfile, Username: username, Viewer: viewer, Page: page})
}

// paginate 越界（<1 或超过最后一页）取最后一页；空结果为第 1 页
func (s *feedService) paginate(ctx context.Context, filter repository.PostFilter, requested int) (*Page, error) {
	total, err := s.posts.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	numPages := int((total + PageSize - 1) / PageSize)
	if numPages == 0 {
		numPages = 1
	}
	number := requested
	if number < 1 || number > numPages {
		number = numPages
	}

	posts := []*model.Post{}
	if total > 0 {
		posts, err = s.posts.List(ctx, filter, (number-1)*PageSize, PageSize)
		if err != nil {
			return nil, err
		}
	}
	return &Page{Posts: posts, Number: number, NumPages: numPages, Total: total}, nil
}
