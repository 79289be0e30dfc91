package handler

import (
	"time"

	"github.com/d60-Lab/postfeed/internal/model"
	"github.com/d60-Lab/postfeed/internal/service"
)

type UserView struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

type GroupView struct {
	ID          uint   `json:"id"`
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
}

type PostView struct {
	ID        uint       `json:"id"`
	Title     string     `json:"title"`
	Text      string     `json:"text"`
	Author    UserView   `json:"author"`
	Group     *GroupView `json:"group,omitempty"`
	Image     string     `json:"image,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type CommentView struct {
	ID        uint      `json:"id"`
	Author    UserView  `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// PageView 分页信息与当前页帖子
type PageView struct {
	Posts       []PostView `json:"posts"`
	Number      int        `json:"number"`
	NumPages    int        `json:"num_pages"`
	Count       int64      `json:"count"`
	HasNext     bool       `json:"has_next"`
	HasPrevious bool       `json:"has_previous"`
}

// FeedView 各类 feed 页面；只有个人主页带 author / post_count / following
type FeedView struct {
	Kind      string     `json:"kind"`
	Page      PageView   `json:"page"`
	Group     *GroupView `json:"group,omitempty"`
	Author    *UserView  `json:"author,omitempty"`
	PostCount *int64     `json:"post_count,omitempty"`
	Following *bool      `json:"following,omitempty"`
}

// FormView 表单描述：提交地址、当前值、字段错误
type FormView struct {
	Action string            `json:"action"`
	Values map[string]string `json:"values"`
	Errors map[string]string `json:"errors,omitempty"`
	IsEdit bool              `json:"is_edit,omitempty"`
	Groups []GroupView       `json:"groups,omitempty"`
}

type PostDetailView struct {
	Post            PostView      `json:"post"`
	AuthorPostCount int64         `json:"author_post_count"`
	Comments        []CommentView `json:"comments"`
	Form            FormView      `json:"form"`
}

func newUserView(u *model.User) UserView {
	return UserView{ID: u.ID, Username: u.Username}
}

func newGroupView(g *model.Group) *GroupView {
	if g == nil {
		return nil
	}
	return &GroupView{ID: g.ID, Title: g.Title, Slug: g.Slug, Description: g.Description}
}

func newGroupViews(groups []*model.Group) []GroupView {
	res := make([]GroupView, len(groups))
	for i, g := range groups {
		res[i] = *newGroupView(g)
	}
	return res
}

func newPostView(p *model.Post) PostView {
	return PostView{
		ID:        p.ID,
		Title:     p.Title(),
		Text:      p.Text,
		Author:    newUserView(&p.Author),
		Group:     newGroupView(p.Group),
		Image:     p.Image,
		CreatedAt: p.CreatedAt,
	}
}

func newCommentViews(comments []*model.Comment) []CommentView {
	res := make([]CommentView, len(comments))
	for i, c := range comments {
		res[i] = CommentView{ID: c.ID, Author: newUserView(&c.Author), Text: c.Text, CreatedAt: c.CreatedAt}
	}
	return res
}

func newPageView(p *service.Page) PageView {
	posts := make([]PostView, len(p.Posts))
	for i, post := range p.Posts {
		posts[i] = newPostView(post)
	}
	return PageView{
		Posts:       posts,
		Number:      p.Number,
		NumPages:    p.NumPages,
		Count:       p.Total,
		HasNext:     p.HasNext(),
		HasPrevious: p.HasPrevious(),
	}
}

func newFeedView(f *service.Feed) FeedView {
	v := FeedView{Kind: f.Kind.String(), Page: newPageView(f.Page), Group: newGroupView(f.Group)}
	if f.Kind == service.FeedProfile {
		author := newUserView(f.Author)
		count, following := f.PostCount, f.IsFollowing
		v.Author, v.PostCount, v.Following = &author, &count, &following
	}
	return v
}

func newPostDetailView(d *service.PostDetail, form FormView) PostDetailView {
	return PostDetailView{
		Post:            newPostView(d.Post),
		AuthorPostCount: d.AuthorPostCount,
		Comments:        newCommentViews(d.Comments),
		Form:            form,
	}
}
