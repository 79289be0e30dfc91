package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/d60-Lab/postfeed/config"
	"github.com/d60-Lab/postfeed/internal/model"
	"github.com/d60-Lab/postfeed/internal/repository"
	"github.com/d60-Lab/postfeed/internal/service"
	"github.com/d60-Lab/postfeed/pkg/database"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func envInt(name string, def int) int {
	if s := os.Getenv(name); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}

// 并发关注同一作者（含重复关注），再测关注 feed 读取
func main() {
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))
	if err := repository.AutoMigrate(db); err != nil {
		panic(err)
	}

	users := repository.NewUserRepository(db)
	follows := repository.NewFollowRepository(db)
	posts := repository.NewPostRepository(db)
	subs := service.NewSubscriptionService(users, follows)
	feeds := service.NewFeedService(users, repository.NewGroupRepository(db), posts, follows)
	ctx := context.Background()

	N := envInt("N", 2000)
	CONC := envInt("CONC", 8)
	DUP := envInt("DUP", 2)

	// seed users: celeb 被所有人关注
	tag := uuid.NewString()[:8]
	celeb := model.User{Username: "celeb_" + tag, Email: "celeb_" + tag + "@example.com"}
	if err := users.Create(ctx, &celeb); err != nil {
		panic(err)
	}
	fans := make([]model.User, N)
	for i := range fans {
		fans[i] = model.User{Username: fmt.Sprintf("fan_%s_%d", tag, i), Email: fmt.Sprintf("fan_%s_%d@example.com", tag, i)}
	}
	if err := db.CreateInBatches(&fans, 500).Error; err != nil {
		panic(err)
	}
	for i := 0; i < 50; i++ {
		p := &model.Post{Text: fmt.Sprintf("celeb post %d", i), AuthorID: celeb.ID}
		if err := posts.Create(ctx, p); err != nil {
			panic(err)
		}
	}

	// 每个粉丝关注 DUP 次，只有第一次落库
	jobs := make(chan int, N*DUP)
	for d := 0; d < DUP; d++ {
		for i := 0; i < N; i++ {
			jobs <- i
		}
	}
	close(jobs)

	recs := make(chan time.Duration, N*DUP)
	done := make(chan struct{}, CONC)
	t0 := time.Now()
	for w := 0; w < CONC; w++ {
		go func() {
			for i := range jobs {
				st := time.Now()
				if err := subs.Follow(ctx, &fans[i], celeb.Username); err != nil {
					panic(err)
				}
				recs <- time.Since(st)
			}
			done <- struct{}{}
		}()
	}
	for w := 0; w < CONC; w++ {
		<-done
	}
	close(recs)
	followDur := time.Since(t0)
	lat := make([]time.Duration, 0, N*DUP)
	for d := range recs {
		lat = append(lat, d)
	}

	count := must(follows.CountFollowers(ctx, celeb.ID))

	// 关注 feed 第一页
	feedLat := make([]time.Duration, 0, 200)
	for i := 0; i < 200; i++ {
		st := time.Now()
		must(feeds.Assemble(ctx, service.FeedQuery{Kind: service.FeedFollowing, Viewer: &fans[i%N], Page: 1}))
		feedLat = append(feedLat, time.Since(st))
	}

	fmt.Printf("N=%d, CONC=%d, DUP=%d\n", N, CONC, DUP)
	fmt.Printf("Follow total: %v, per op: %v, p50: %v, p95: %v, p99: %v\n",
		followDur, followDur/time.Duration(len(lat)), pct(lat, 0.50), pct(lat, 0.95), pct(lat, 0.99))
	fmt.Printf("Follower rows: %d (expected %d)\n", count, N)
	fmt.Printf("Following feed page 1: p50: %v, p95: %v\n", pct(feedLat, 0.50), pct(feedLat, 0.95))
}

func pct(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	xs := append([]time.Duration(nil), vs...)
	sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
	k := int(math.Ceil(p*float64(len(xs)))) - 1
	if k < 0 {
		k = 0
	}
	if k >= len(xs) {
		k = len(xs) - 1
	}
	return xs[k]
}
