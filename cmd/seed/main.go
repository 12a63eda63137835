// Package main seeds the blog database with an admin and a demo account,
// the default categories and tags, and a handful of published posts. It is
// idempotent: rows that already exist are left untouched.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/Farylve/TEST/internal/config"
	"github.com/Farylve/TEST/internal/domain"
	"github.com/Farylve/TEST/migrations"
	pkgconfig "github.com/Farylve/TEST/pkg/config"
	"github.com/Farylve/TEST/pkg/database"
	"github.com/Farylve/TEST/pkg/logger"
	"github.com/Farylve/TEST/pkg/slug"
)

// --------------------------------------------------------------------------
// Seed data definitions
// --------------------------------------------------------------------------

type userDef struct {
	email     string
	password  string
	firstName string
	lastName  string
	role      string
	id        string
}

type taxonomyDef struct {
	name  string
	slug  string
	color string
	id    string
}

type postDef struct {
	title      string
	content    string
	author     int
	age        time.Duration
	categories []string
	tags       []string
	comments   []string
}

var users = []userDef{
	{email: "admin@portfolio.com", password: "Admin123!", firstName: "Admin", lastName: "User", role: domain.RoleAdmin},
	{email: "user@portfolio.com", password: "User123!", firstName: "Demo", lastName: "User", role: domain.RoleUser},
}

var categories = []taxonomyDef{
	{name: "Tech", slug: "tech", color: "#3B82F6"},
	{name: "Lifestyle", slug: "lifestyle", color: "#10B981"},
	{name: "News", slug: "news", color: "#F59E0B"},
}

var tags = []taxonomyDef{
	{name: "coding", slug: "coding", color: "#61DAFB"},
	{name: "motivation", slug: "motivation", color: "#10B981"},
	{name: "javascript", slug: "javascript", color: "#F7DF1E"},
	{name: "react", slug: "react", color: "#61DAFB"},
	{name: "ai", slug: "ai", color: "#8B5CF6"},
	{name: "startup", slug: "startup", color: "#F59E0B"},
	{name: "productivity", slug: "productivity", color: "#EF4444"},
	{name: "learning", slug: "learning", color: "#3B82F6"},
}

var posts = []postDef{
	{
		title:      "Just shipped a new feature!",
		content:    "Spent the weekend building a real-time chat feature with WebSockets. The feeling when everything just clicks is unmatched!",
		author:     1,
		age:        2 * time.Hour,
		categories: []string{"tech"},
		tags:       []string{"coding", "javascript"},
		comments:   []string{"Congrats, looks great!", "WebSockets are so much fun."},
	},
	{
		title:      "Coffee and code",
		content:    "Monday morning vibes: fresh coffee, clean code, and endless possibilities. What is everyone working on today?",
		author:     0,
		age:        4 * time.Hour,
		categories: []string{"lifestyle"},
		tags:       []string{"coding", "motivation"},
	},
	{
		title:      "React 19 is amazing!",
		content:    "The new React compiler is a game changer. No more manual memoization! Who else is excited about the future of React?",
		author:     1,
		age:        6 * time.Hour,
		categories: []string{"tech", "news"},
		tags:       []string{"react", "javascript"},
		comments:   []string{"Finally no more useMemo everywhere."},
	},
	{
		title:      "AI is everywhere now",
		content:    "From coding assistants to design tools, AI is transforming how we work. Embracing it rather than fighting it seems like the smart move.",
		author:     0,
		age:        8 * time.Hour,
		categories: []string{"tech", "news"},
		tags:       []string{"ai"},
	},
	{
		title:      "Debugging at 2 AM",
		content:    "That moment when you find the bug that has been haunting you for hours... it was a missing semicolon. Time for bed!",
		author:     1,
		age:        12 * time.Hour,
		categories: []string{"lifestyle"},
		tags:       []string{"coding"},
	},
	{
		title:      "Startup life is wild",
		content:    "From idea to MVP in 2 weeks. Sleep is optional, coffee is mandatory, and building something people love is worth it.",
		author:     0,
		age:        24 * time.Hour,
		categories: []string{"lifestyle"},
		tags:       []string{"startup", "productivity"},
	},
	{
		title:      "Learning never stops",
		content:    "Picked up Go this month. Small language, big standard library, and goroutines make concurrency feel approachable.",
		author:     1,
		age:        48 * time.Hour,
		categories: []string{"tech"},
		tags:       []string{"learning", "motivation"},
	},
}

func main() {
	if err := run(); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	if err := pkgconfig.LoadDotEnv(); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.NewWithOptions(logger.Options{Service: "blog-seed", Level: cfg.LogLevel, Format: "text"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db := database.NewSupervisor(cfg.Postgres(), cfg.RetryPolicy(), log)
	if err := db.Connect(ctx); err != nil {
		return err
	}
	defer db.Close()
	pool := db.Pool()

	if err := database.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return database.InTx(ctx, pool, func(tx pgx.Tx) error {
		if err := seedUsers(ctx, tx, cfg.BcryptCost, log); err != nil {
			return err
		}
		if err := seedTaxonomy(ctx, tx, "categories", categories, log); err != nil {
			return err
		}
		if err := seedTaxonomy(ctx, tx, "tags", tags, log); err != nil {
			return err
		}
		return seedPosts(ctx, tx, log)
	})
}

func seedUsers(ctx context.Context, tx pgx.Tx, cost int, log *slog.Logger) error {
	for i := range users {
		u := &users[i]
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), cost)
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", u.email, err)
		}

		err = tx.QueryRow(ctx,
			`INSERT INTO users (email, password_hash, first_name, last_name, role, is_email_verified, is_active)
			 VALUES ($1, $2, $3, $4, $5, TRUE, TRUE)
			 ON CONFLICT (email) WHERE deleted_at IS NULL DO UPDATE SET updated_at = users.updated_at
			 RETURNING id`,
			u.email, string(hash), u.firstName, u.lastName, u.role,
		).Scan(&u.id)
		if err != nil {
			return fmt.Errorf("seed user %s: %w", u.email, err)
		}
		log.Info("user ready", slog.String("email", u.email), slog.String("role", u.role))
	}
	return nil
}

// seedTaxonomy upserts categories or tags; table is one of two constants.
func seedTaxonomy(ctx context.Context, tx pgx.Tx, table string, defs []taxonomyDef, log *slog.Logger) error {
	query := fmt.Sprintf(
		`INSERT INTO %s (name, slug, color) VALUES ($1, $2, $3)
		 ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id`, table)

	for i := range defs {
		if err := tx.QueryRow(ctx, query, defs[i].name, defs[i].slug, defs[i].color).Scan(&defs[i].id); err != nil {
			return fmt.Errorf("seed %s %q: %w", table, defs[i].slug, err)
		}
	}
	log.Info("taxonomy ready", slog.String("table", table), slog.Int("count", len(defs)))
	return nil
}

func seedPosts(ctx context.Context, tx pgx.Tx, log *slog.Logger) error {
	categoryIDs := idsBySlug(categories)
	tagIDs := idsBySlug(tags)
	now := time.Now().UTC()

	created := 0
	for _, p := range posts {
		var postID string
		err := tx.QueryRow(ctx,
			`INSERT INTO posts (title, content, slug, status, author_id, published_at)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (slug) DO NOTHING
			 RETURNING id`,
			p.title, p.content, slug.Generate(p.title), string(domain.PostStatusPublished), users[p.author].id, now.Add(-p.age),
		).Scan(&postID)
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			return fmt.Errorf("seed post %q: %w", p.title, err)
		}

		for _, s := range p.categories {
			if _, err := tx.Exec(ctx,
				`INSERT INTO post_categories (post_id, category_id) VALUES ($1, $2)`,
				postID, categoryIDs[s]); err != nil {
				return fmt.Errorf("link post %q to category %q: %w", p.title, s, err)
			}
		}
		for _, s := range p.tags {
			if _, err := tx.Exec(ctx,
				`INSERT INTO post_tags (post_id, tag_id) VALUES ($1, $2)`,
				postID, tagIDs[s]); err != nil {
				return fmt.Errorf("link post %q to tag %q: %w", p.title, s, err)
			}
		}
		for i, c := range p.comments {
			commenter := users[(p.author+1+i)%len(users)].id
			if _, err := tx.Exec(ctx,
				`INSERT INTO comments (post_id, author_id, content) VALUES ($1, $2, $3)`,
				postID, commenter, c); err != nil {
				return fmt.Errorf("comment on post %q: %w", p.title, err)
			}
		}
		for _, u := range users {
			if _, err := tx.Exec(ctx,
				`INSERT INTO likes (post_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
				postID, u.id); err != nil {
				return fmt.Errorf("like post %q: %w", p.title, err)
			}
		}
		created++
	}

	log.Info("posts ready", slog.Int("created", created), slog.Int("defined", len(posts)))
	return nil
}

func idsBySlug(defs []taxonomyDef) map[string]string {
	m := make(map[string]string, len(defs))
	for _, d := range defs {
		m[d.slug] = d.id
	}
	return m
}
