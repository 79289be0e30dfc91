package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/d60-Lab/postfeed/config"
	"github.com/d60-Lab/postfeed/internal/api/handler"
	"github.com/d60-Lab/postfeed/internal/app"
	"github.com/d60-Lab/postfeed/internal/model"
	"github.com/d60-Lab/postfeed/internal/testutil"
	"github.com/d60-Lab/postfeed/pkg/response"
	"github.com/d60-Lab/postfeed/pkg/storage"
)

type env struct {
	t   *testing.T
	app *app.App
	db  *gorm.DB
	mr  *miniredis.Miniredis
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Mode: "test"},
		Cache:  config.CacheConfig{IndexPrefix: "index", IndexTTL: 20 * time.Second},
		Auth:   config.AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour, LoginURL: "/auth/login/"},
	}
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.NewDB(t)
	mr := miniredis.RunT(t)
	a := app.Build(testConfig(), db, redis.NewClient(&redis.Options{Addr: mr.Addr()}), storage.NewMemory())
	t.Cleanup(func() { _ = a.Close() })
	return &env{t: t, app: a, db: db, mr: mr}
}

func (e *env) do(req *http.Request, user *model.User) *httptest.ResponseRecorder {
	e.t.Helper()
	if user != nil {
		token, err := e.app.Tokens.Issue(user.ID)
		require.NoError(e.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.app.Router.ServeHTTP(w, req)
	return w
}

func (e *env) get(target string, user *model.User) *httptest.ResponseRecorder {
	return e.do(httptest.NewRequest(http.MethodGet, target, nil), user)
}

func (e *env) postForm(target string, vals url.Values, user *model.User) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(vals.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(req, user)
}

// decode 解析统一响应体，把 data 填到 out
func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) response.Response {
	t.Helper()
	var raw struct {
		Code    int             `json:"code"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw), w.Body.String())
	if out != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, out))
	}
	return response.Response{Code: raw.Code, Message: raw.Message}
}

func texts(p handler.PageView) []string {
	res := make([]string, len(p.Posts))
	for i, post := range p.Posts {
		res[i] = post.Text
	}
	return res
}

func TestVisibilityScenario(t *testing.T) {
	e := newEnv(t)
	u := testutil.CreateUser(t, e.db, "u")
	news := testutil.CreateGroup(t, e.db, "news")
	testutil.CreateGroup(t, e.db, "other")

	w := e.postForm("/create", url.Values{"text": {"hello"}, "group": {fmt.Sprint(news.ID)}}, u)
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())
	assert.Equal(t, "/profile/u", w.Header().Get("Location"))

	w = e.get("/group/news", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var feed handler.FeedView
	decode(t, w, &feed)
	assert.Equal(t, []string{"hello"}, texts(feed.Page))
	require.NotNil(t, feed.Group)
	assert.Equal(t, "Group news", feed.Group.Title)

	w = e.get("/group/other", nil)
	require.Equal(t, http.StatusOK, w.Code)
	feed = handler.FeedView{}
	decode(t, w, &feed)
	assert.Empty(t, feed.Page.Posts)

	w = e.get("/group/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	var nf map[string]string
	decode(t, w, &nf)
	assert.Equal(t, "/group/missing", nf["path"])
}

func TestLoginRedirect(t *testing.T) {
	e := newEnv(t)
	testutil.CreateUser(t, e.db, "bob")

	cases := []struct {
		method, target string
	}{
		{http.MethodGet, "/create"},
		{http.MethodGet, "/follow?page=2"},
		{http.MethodGet, "/profile/bob/follow"},
		{http.MethodPost, "/posts/1/comment"},
	}
	for _, tc := range cases {
		w := e.do(httptest.NewRequest(tc.method, tc.target, nil), nil)
		require.Equal(t, http.StatusFound, w.Code, tc.target)
		assert.Equal(t, "/auth/login/?next="+url.QueryEscape(tc.target), w.Header().Get("Location"))
	}
}

func TestInvalidTokenIsAnonymous(t *testing.T) {
	e := newEnv(t)
	testutil.CreateUser(t, e.db, "bob")

	req := httptest.NewRequest(http.MethodGet, "/profile/bob", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w := e.do(req, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/create", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: "garbage"})
	w = e.do(req, nil)
	assert.Equal(t, http.StatusFound, w.Code)
}

func TestTokenCookie(t *testing.T) {
	e := newEnv(t)
	u := testutil.CreateUser(t, e.db, "u")
	token, err := e.app.Tokens.Issue(u.ID)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/create", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: token})
	w := e.do(req, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestIndexCacheWindow(t *testing.T) {
	e := newEnv(t)
	u := testutil.CreateUser(t, e.db, "u")
	testutil.CreatePost(t, e.db, u, nil, "first", time.Time{})

	index := func() []string {
		w := e.get("/", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var feed handler.FeedView
		decode(t, w, &feed)
		return texts(feed.Page)
	}

	assert.Equal(t, []string{"first"}, index())

	w := e.postForm("/create", url.Values{"text": {"second"}}, u)
	require.Equal(t, http.StatusFound, w.Code)

	// 写操作不失效缓存
	assert.Equal(t, []string{"first"}, index())

	e.mr.FastForward(21 * time.Second)
	assert.Equal(t, []string{"second", "first"}, index())

	// 手动清缓存后立即可见
	testutil.CreatePost(t, e.db, u, nil, "third", time.Time{})
	assert.Equal(t, []string{"second", "first"}, index())
	_, err := e.app.Index.Clear(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"third", "second", "first"}, index())
}

func TestIndexPagination(t *testing.T) {
	e := newEnv(t)
	u := testutil.CreateUser(t, e.db, "u")
	testutil.CreatePosts(t, e.db, u, nil, 14)

	page := func(q string) handler.PageView {
		w := e.get("/"+q, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var feed handler.FeedView
		decode(t, w, &feed)
		return feed.Page
	}

	p1 := page("")
	assert.Len(t, p1.Posts, 10)
	assert.Equal(t, 1, p1.Number)
	assert.Equal(t, int64(14), p1.Count)
	assert.True(t, p1.HasNext)

	p2 := page("?page=2")
	assert.Len(t, p2.Posts, 4)
	assert.Equal(t, 2, p2.Number)

	assert.Equal(t, 2, page("?page=3").Number)
	assert.Equal(t, 1, page("?page=abc").Number)
}

func TestPostDetail(t *testing.T) {
	e := newEnv(t)
	u := testutil.CreateUser(t, e.db, "u")
	p := testutil.CreatePost(t, e.db, u, nil, "a fairly long post text", time.Time{})
	testutil.CreatePost(t, e.db, u, nil, "another", time.Time{})

	w := e.get(fmt.Sprintf("/posts/%d", p.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var d handler.PostDetailView
	decode(t, w, &d)
	assert.Equal(t, "a fairly long p", d.Post.Title)
	assert.Equal(t, int64(2), d.AuthorPostCount)
	assert.Equal(t, fmt.Sprintf("/posts/%d/comment", p.ID), d.Form.Action)
	assert.Empty(t, d.Comments)

	assert.Equal(t, http.StatusNotFound, e.get("/posts/999", nil).Code)
	assert.Equal(t, http.StatusNotFound, e.get("/posts/abc", nil).Code)
}

func TestComment(t *testing.T) {
	e := newEnv(t)
	alice := testutil.CreateUser(t, e.db, "alice")
	bob := testutil.CreateUser(t, e.db, "bob")
	p := testutil.CreatePost(t, e.db, alice, nil, "post", time.Time{})
	target := fmt.Sprintf("/posts/%d/comment", p.ID)

	w := e.postForm(target, url.Values{"text": {"  "}}, bob)
	require.Equal(t, http.StatusOK, w.Code)
	var d handler.PostDetailView
	resp := decode(t, w, &d)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Contains(t, d.Form.Errors, "text")
	assert.Empty(t, d.Comments)

	w = e.postForm(target, url.Values{"text": {"nice"}}, bob)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, fmt.Sprintf("/posts/%d", p.ID), w.Header().Get("Location"))

	w = e.get(fmt.Sprintf("/posts/%d", p.ID), nil)
	d = handler.PostDetailView{}
	decode(t, w, &d)
	require.Len(t, d.Comments, 1)
	assert.Equal(t, "bob", d.Comments[0].Author.Username)

	w = e.postForm("/posts/999/comment", url.Values{"text": {"x"}}, bob)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAuthorOnlyMutations(t *testing.T) {
	e := newEnv(t)
	alice := testutil.CreateUser(t, e.db, "alice")
	bob := testutil.CreateUser(t, e.db, "bob")
	p := testutil.CreatePost(t, e.db, alice, nil, "mine", time.Time{})
	detail := fmt.Sprintf("/posts/%d", p.ID)

	w := e.get(detail+"/edit", bob)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, detail, w.Header().Get("Location"))

	w = e.postForm(detail+"/edit", url.Values{"text": {"hijack"}}, bob)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, detail, w.Header().Get("Location"))

	w = e.postForm(detail+"/delete", nil, bob)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, detail, w.Header().Get("Location"))

	var got model.Post
	require.NoError(t, e.db.First(&got, p.ID).Error)
	assert.Equal(t, "mine", got.Text)

	// 作者本人
	w = e.get(detail+"/edit", alice)
	require.Equal(t, http.StatusOK, w.Code)
	var form handler.FormView
	decode(t, w, &form)
	assert.True(t, form.IsEdit)
	assert.Equal(t, "mine", form.Values["text"])

	w = e.postForm(detail+"/edit", url.Values{"text": {""}}, alice)
	require.Equal(t, http.StatusOK, w.Code)
	form = handler.FormView{}
	decode(t, w, &form)
	assert.Contains(t, form.Errors, "text")

	w = e.postForm(detail+"/edit", url.Values{"text": {"edited"}}, alice)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, detail, w.Header().Get("Location"))

	w = e.postForm(detail+"/delete", nil, alice)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/profile/alice", w.Header().Get("Location"))
	assert.Equal(t, http.StatusNotFound, e.get(detail, nil).Code)
}

func TestCreateForm(t *testing.T) {
	e := newEnv(t)
	u := testutil.CreateUser(t, e.db, "u")
	testutil.CreateGroup(t, e.db, "news")

	w := e.get("/create", u)
	require.Equal(t, http.StatusOK, w.Code)
	var form handler.FormView
	decode(t, w, &form)
	assert.False(t, form.IsEdit)
	require.Len(t, form.Groups, 1)
	assert.Equal(t, "news", form.Groups[0].Slug)

	w = e.postForm("/create", url.Values{"text": {""}, "group": {"999"}}, u)
	require.Equal(t, http.StatusOK, w.Code)
	form = handler.FormView{}
	resp := decode(t, w, &form)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Contains(t, form.Errors, "text")
	assert.Contains(t, form.Errors, "group")
	assert.Len(t, form.Groups, 1)

	w = e.postForm("/create", url.Values{"text": {"x"}, "group": {"abc"}}, u)
	require.Equal(t, http.StatusOK, w.Code)
	form = handler.FormView{}
	decode(t, w, &form)
	assert.Contains(t, form.Errors, "group")

	// 非数字 group 与空正文的错误一起返回
	w = e.postForm("/create", url.Values{"text": {" "}, "group": {"abc"}}, u)
	require.Equal(t, http.StatusOK, w.Code)
	form = handler.FormView{}
	decode(t, w, &form)
	assert.Equal(t, "Select a valid choice.", form.Errors["group"])
	assert.Equal(t, "This field is required.", form.Errors["text"])
	assert.Equal(t, "abc", form.Values["group"])
}

func TestCreateWithImage(t *testing.T) {
	e := newEnv(t)
	u := testutil.CreateUser(t, e.db, "u")

	upload := func(content []byte) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("text", "with image"))
		fw, err := mw.CreateFormFile("image", "pic.gif")
		require.NoError(t, err)
		_, err = io.Copy(fw, bytes.NewReader(content))
		require.NoError(t, err)
		require.NoError(t, mw.Close())
		req := httptest.NewRequest(http.MethodPost, "/create", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return e.do(req, u)
	}

	w := upload([]byte("not an image at all"))
	require.Equal(t, http.StatusOK, w.Code)
	var form handler.FormView
	decode(t, w, &form)
	assert.Contains(t, form.Errors, "image")

	w = upload([]byte("GIF89a\x01\x00\x01\x00\x00\x00\x00;"))
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())

	var p model.Post
	require.NoError(t, e.db.Where("text = ?", "with image").First(&p).Error)
	assert.True(t, strings.HasPrefix(p.Image, "posts/"))
}

func TestFollowFlow(t *testing.T) {
	e := newEnv(t)
	alice := testutil.CreateUser(t, e.db, "alice")
	bob := testutil.CreateUser(t, e.db, "bob")
	testutil.CreatePost(t, e.db, bob, nil, "from bob", time.Time{})

	profile := func(viewer *model.User) handler.FeedView {
		w := e.get("/profile/bob", viewer)
		require.Equal(t, http.StatusOK, w.Code)
		var feed handler.FeedView
		decode(t, w, &feed)
		return feed
	}
	following := func() []string {
		w := e.get("/follow", alice)
		require.Equal(t, http.StatusOK, w.Code)
		var feed handler.FeedView
		decode(t, w, &feed)
		return texts(feed.Page)
	}

	f := profile(nil)
	require.NotNil(t, f.Following)
	assert.False(t, *f.Following)
	require.NotNil(t, f.PostCount)
	assert.Equal(t, int64(1), *f.PostCount)
	assert.Empty(t, following())

	for i := 0; i < 2; i++ {
		w := e.get("/profile/bob/follow", alice)
		require.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/profile/bob", w.Header().Get("Location"))
	}
	assert.True(t, *profile(alice).Following)
	assert.Equal(t, []string{"from bob"}, following())

	var n int64
	require.NoError(t, e.db.Model(&model.Follow{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)

	// 关注自己是空操作
	w := e.get("/profile/alice/follow", alice)
	require.Equal(t, http.StatusFound, w.Code)
	require.NoError(t, e.db.Model(&model.Follow{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)

	w = e.get("/profile/bob/unfollow", alice)
	require.Equal(t, http.StatusFound, w.Code)
	assert.False(t, *profile(alice).Following)
	assert.Empty(t, following())

	assert.Equal(t, http.StatusNotFound, e.get("/profile/nobody/follow", alice).Code)
	assert.Equal(t, http.StatusNotFound, e.get("/profile/nobody", nil).Code)
}

func TestNotFoundAndHealth(t *testing.T) {
	e := newEnv(t)

	w := e.get("/no/such/page", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	var nf map[string]string
	decode(t, w, &nf)
	assert.Equal(t, "/no/such/page", nf["path"])

	w = e.get("/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
