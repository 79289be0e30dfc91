package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/d60-Lab/postfeed/internal/cache"
	"github.com/d60-Lab/postfeed/internal/model"
	"github.com/d60-Lab/postfeed/internal/repository"
	"github.com/d60-Lab/postfeed/internal/service"
	"github.com/d60-Lab/postfeed/pkg/database"
	"github.com/d60-Lab/postfeed/pkg/response"
)

// 全站 feed：不缓存 vs 20 秒整页缓存
func main() {
	ctx := context.Background()

	db := openDB()
	mustDo(db.Migrator().DropTable(&model.Follow{}, &model.Comment{}, &model.Post{}, &model.Group{}, &model.User{}))
	mustDo(repository.AutoMigrate(db))

	const (
		userCount = 200
		postCount = 20000
		requests  = 5000
		ttl       = 20 * time.Second
	)

	fmt.Println("Setting up test data...")
	users := make([]model.User, userCount)
	for i := range users {
		users[i] = model.User{Username: fmt.Sprintf("user_%d", i), Email: fmt.Sprintf("user_%d@example.com", i)}
	}
	mustDo(db.CreateInBatches(&users, 500).Error)

	groups := []model.Group{
		{Title: "News", Slug: "news"},
		{Title: "Cats", Slug: "cats"},
		{Title: "Misc", Slug: "misc"},
	}
	mustDo(db.Create(&groups).Error)

	rnd := rand.New(rand.NewSource(42))
	base := time.Now().Add(-time.Duration(postCount) * time.Minute)
	posts := make([]model.Post, postCount)
	for i := range posts {
		posts[i] = model.Post{
			Text:      fmt.Sprintf("post %d %s", i, strings.Repeat("lorem ipsum ", 1+rnd.Intn(20))),
			AuthorID:  users[rnd.Intn(userCount)].ID,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if rnd.Intn(3) > 0 {
			posts[i].GroupID = &groups[rnd.Intn(len(groups))].ID
		}
	}
	mustDo(db.Omit("Author", "Group", "Comments").CreateInBatches(&posts, 500).Error)
	fmt.Printf("Test data ready: %d users, %d posts\n", userCount, postCount)

	client, closeRedis := openRedis(ctx)
	defer closeRedis()

	feeds := service.NewFeedService(
		repository.NewUserRepository(db),
		repository.NewGroupRepository(db),
		repository.NewPostRepository(db),
		repository.NewFollowRepository(db),
	)
	index := cache.NewIndexCache(client, "feedbench", ttl)
	render := func(page int) cache.Loader {
		return func(ctx context.Context) ([]byte, error) {
			feed, err := feeds.Assemble(ctx, service.FeedQuery{Kind: service.FeedGlobal, Page: page})
			if err != nil {
				return nil, err
			}
			return response.Render(feed.Page)
		}
	}

	reqs := makeRequests(requests)

	noCache := runScenario(ctx, index, reqs, false, func(ctx context.Context, page int) ([]byte, error) {
		return render(page)(ctx)
	}, client)

	cached := runScenario(ctx, index, reqs, true, func(ctx context.Context, page int) ([]byte, error) {
		return index.Fetch(ctx, page, render(page))
	}, client)

	fmt.Printf("\nGlobal feed latency (%d req, %d posts)\n", requests, postCount)
	for _, r := range []struct {
		name string
		res  scenarioResult
	}{{"No cache", noCache}, {"Index cache", cached}} {
		fmt.Printf("%-12s avg=%v p95=%v p99=%v hits=%d loads=%d cache_keys=%d mem=%s\n",
			r.name, avg(r.res.durations), pct(r.res.durations, 0.95), pct(r.res.durations, 0.99),
			r.res.counters.Hits, r.res.counters.Loads, r.res.cacheKeys, formatBytes(r.res.memoryBytes),
		)
	}
}

func openDB() *gorm.DB {
	cfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent), TranslateError: true}
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return must(gorm.Open(postgres.Open(dsn), cfg))
	}
	db := must(gorm.Open(sqlite.Open(database.SQLiteDSN("file:feedbench?mode=memory&cache=shared")), cfg))
	sqlDB := must(db.DB())
	sqlDB.SetMaxOpenConns(1)
	return db
}

// openRedis 优先使用 REDIS_ADDR，否则启动 miniredis
func openRedis(ctx context.Context) (*redis.Client, func()) {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		if err := client.Ping(ctx).Err(); err != nil {
			panic(fmt.Sprintf("Failed to connect to Redis at %s: %v", addr, err))
		}
		return client, func() { _ = client.Close() }
	}
	mr := must(miniredis.Run())
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return client, func() {
		_ = client.Close()
		mr.Close()
	}
}

type scenarioResult struct {
	durations   []time.Duration
	counters    cache.Counters
	cacheKeys   int
	memoryBytes int64
}

func runScenario(ctx context.Context, index *cache.IndexCache, reqs []int, warm bool, call func(context.Context, int) ([]byte, error), client *redis.Client) scenarioResult {
	_, err := index.Clear(ctx)
	mustDo(err)
	index.ResetCounters()

	if warm {
		fmt.Print("  Warming cache...")
		for _, page := range reqs {
			must(call(ctx, page))
		}
		fmt.Println(" done")
	}

	fmt.Print("  Running benchmark...")
	out := make([]time.Duration, 0, len(reqs))
	for _, page := range reqs {
		start := time.Now()
		must(call(ctx, page))
		out = append(out, time.Since(start))
	}
	fmt.Println(" done")

	keys, _ := client.Keys(ctx, "feedbench:*").Result()
	var memBytes int64
	if info, err := client.Info(ctx, "memory").Result(); err == nil {
		memBytes = parseRedisMemory(info)
	}

	return scenarioResult{
		durations:   out,
		counters:    index.Counters(),
		cacheKeys:   len(keys),
		memoryBytes: memBytes,
	}
}

// parseRedisMemory extracts used_memory from Redis INFO
func parseRedisMemory(info string) int64 {
	for _, line := range strings.Split(info, "\n") {
		if v, ok := strings.CutPrefix(strings.TrimSpace(line), "used_memory:"); ok {
			n, _ := strconv.ParseInt(v, 10, 64)
			return n
		}
	}
	return 0
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// makeRequests 大部分请求落在第一页，少量翻页
func makeRequests(n int) []int {
	out := make([]int, n)
	rnd := rand.New(rand.NewSource(42))
	for i := range out {
		out[i] = 1
		if rnd.Float64() > 0.72 {
			out[i] = 2 + rnd.Intn(120)
		}
	}
	return out
}

func avg(vs []time.Duration) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range vs {
		sum += v
	}
	return sum / time.Duration(len(vs))
}

func pct(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), vs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func mustDo(err error) {
	if err != nil {
		panic(err)
	}
}
