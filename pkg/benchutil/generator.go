// Package benchutil provides synthetic post generation for benchmarks and testing.
package benchutil

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/eunmann/postcache/pkg/postcache"
)

// GeneratorConfig configures synthetic post generation.
type GeneratorConfig struct {
	// NumPosts is the total number of posts to generate.
	NumPosts int
	// Accounts is the number of distinct account ids posts are linked to.
	Accounts int
	// MaxAccountsPerPost bounds how many accounts share one post.
	MaxAccountsPerPost int
	// MaxGallery is the maximum number of gallery images per post.
	MaxGallery int
	// ExtraKeys is the number of extra metadata entries per post.
	ExtraKeys int
	// Seed for reproducible generation. 0 = use BenchmarkSeed.
	Seed int64
}

// DefaultConfig returns a timeline-like configuration: a few accounts,
// mostly single-account posts, small galleries.
func DefaultConfig(numPosts int) GeneratorConfig {
	return GeneratorConfig{
		NumPosts:           numPosts,
		Accounts:           8,
		MaxAccountsPerPost: 2,
		MaxGallery:         4,
		ExtraKeys:          3,
		Seed:               BenchmarkSeed,
	}
}

// Generator generates synthetic posts.
type Generator struct {
	cfg  GeneratorConfig
	rng  *rand.Rand
	base time.Time
	next int
}

// NewGenerator creates a new post generator.
func NewGenerator(cfg GeneratorConfig) *Generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = BenchmarkSeed
	}
	if cfg.Accounts <= 0 {
		cfg.Accounts = 1
	}
	if cfg.MaxAccountsPerPost <= 0 {
		cfg.MaxAccountsPerPost = 1
	}
	return &Generator{
		cfg:  cfg,
		rng:  rand.New(rand.NewSource(seed)),
		base: time.Date(2013, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Generate returns NumPosts synthetic posts. Post ids are unique within one
// generator; each post carries the accounts it should be linked to.
func (g *Generator) Generate() []postcache.Post {
	posts := make([]postcache.Post, g.cfg.NumPosts)
	for i := range posts {
		posts[i] = g.generatePost()
	}
	return posts
}

func (g *Generator) generatePost() postcache.Post {
	n := g.next
	g.next++

	id := fmt.Sprintf("%d%06d", 300000000+g.rng.Intn(100000000), n)
	ts := g.base.Add(time.Duration(g.rng.Intn(365*24*3600)) * time.Second)

	return postcache.NewPost(
		id,
		g.generateName(),
		g.generateBody(),
		ts,
		g.generateImages(id),
		g.generateExtra(),
		g.generateAccounts(),
	)
}

func (g *Generator) generateName() string {
	names := []string{"gopher", "sqlite_fan", "news_bot", "alice", "bob", "daily_digest"}
	return names[g.rng.Intn(len(names))]
}

func (g *Generator) generateBody() string {
	words := []string{"release", "cache", "today", "shipping", "coffee", "benchmark", "weekend", "update", "photo", "thread"}
	n := 3 + g.rng.Intn(20)
	body := words[g.rng.Intn(len(words))]
	for i := 1; i < n; i++ {
		body += " " + words[g.rng.Intn(len(words))]
	}
	return body
}

func (g *Generator) generateImages(id string) map[int]postcache.PostImage {
	images := make(map[int]postcache.PostImage)
	images[postcache.IconPosition] = postcache.NewPostImage(
		fmt.Sprintf("https://img.example.com/avatar/%d.png", g.rng.Intn(1000)), postcache.ImagePhoto)

	if g.cfg.MaxGallery <= 0 {
		return images
	}
	n := g.rng.Intn(g.cfg.MaxGallery + 1)
	for i := 1; i <= n; i++ {
		kind := postcache.ImagePhoto
		ext := "jpg"
		if g.rng.Intn(5) == 0 {
			kind, ext = postcache.ImageVideo, "mp4"
		}
		images[i] = postcache.NewPostImage(fmt.Sprintf("https://img.example.com/%s/%d.%s", id, i, ext), kind)
	}
	return images
}

func (g *Generator) generateExtra() map[string]any {
	extra := make(map[string]any, g.cfg.ExtraKeys)
	for i := 0; i < g.cfg.ExtraKeys; i++ {
		switch i % 3 {
		case 0:
			extra[fmt.Sprintf("count_%d", i)] = g.rng.Intn(10000)
		case 1:
			extra[fmt.Sprintf("flag_%d", i)] = g.rng.Intn(2) == 1
		default:
			extra[fmt.Sprintf("lang_%d", i)] = []string{"en", "de", "ja", "pt"}[g.rng.Intn(4)]
		}
	}
	return extra
}

func (g *Generator) generateAccounts() []int {
	n := 1 + g.rng.Intn(g.cfg.MaxAccountsPerPost)
	seen := make(map[int]bool, n)
	accounts := make([]int, 0, n)
	for len(accounts) < n && len(seen) < g.cfg.Accounts {
		acc := 1 + g.rng.Intn(g.cfg.Accounts)
		if seen[acc] {
			continue
		}
		seen[acc] = true
		accounts = append(accounts, acc)
	}
	return accounts
}
