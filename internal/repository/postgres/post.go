package postgres

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Farylve/TEST/internal/domain"
	"github.com/Farylve/TEST/internal/repository"
	"github.com/Farylve/TEST/pkg/database"
	apperrors "github.com/Farylve/TEST/pkg/errors"
)

const postSelect = `
	SELECT p.id, p.title, p.content, p.slug, p.status, p.published_at, p.created_at, p.updated_at,
	       u.id, u.first_name, u.last_name, u.email
	FROM posts p
	JOIN users u ON u.id = p.author_id`

// PostRepository implements repository.PostRepository using PostgreSQL.
type PostRepository struct {
	db database.DBTX
}

// NewPostRepository creates a new PostgreSQL-backed post repository.
func NewPostRepository(db database.DBTX) *PostRepository {
	return &PostRepository{db: db}
}

var _ repository.PostRepository = (*PostRepository)(nil)

// buildPostFilter renders the WHERE clause shared by the page and count
// queries, so both always see the same set of rows.
func buildPostFilter(filter repository.PostFilter) (string, []any) {
	conditions := []string{"p.status = $1"}
	args := []any{string(domain.PostStatusPublished)}
	argIndex := 2

	if filter.Category != nil {
		conditions = append(conditions, fmt.Sprintf(`EXISTS (
			SELECT 1 FROM post_categories pc JOIN categories c ON c.id = pc.category_id
			WHERE pc.post_id = p.id AND c.slug = $%d)`, argIndex))
		args = append(args, *filter.Category)
		argIndex++
	}

	if filter.Tag != nil {
		conditions = append(conditions, fmt.Sprintf(`EXISTS (
			SELECT 1 FROM post_tags pt JOIN tags t ON t.id = pt.tag_id
			WHERE pt.post_id = p.id AND t.slug = $%d)`, argIndex))
		args = append(args, *filter.Tag)
		argIndex++
	}

	if filter.Search != nil && *filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			`(p.title ILIKE $%d ESCAPE '\' OR p.content ILIKE $%d ESCAPE '\')`, argIndex, argIndex))
		args = append(args, containsPattern(*filter.Search))
	}

	return "WHERE " + strings.Join(conditions, " AND "), args
}

// List returns one page of published posts and the total number of matches.
// The page and the count run concurrently against the same predicate; the
// first failure cancels the other.
func (r *PostRepository) List(ctx context.Context, filter repository.PostFilter) ([]domain.Post, int, error) {
	where, args := buildPostFilter(filter)

	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}

	pageQuery := fmt.Sprintf(`%s
		%s
		ORDER BY p.published_at DESC NULLS LAST, p.id DESC
		LIMIT $%d OFFSET $%d`, postSelect, where, len(args)+1, len(args)+2)
	pageArgs := append(append([]any{}, args...), limit, offset)

	countQuery := "SELECT count(*) FROM posts p " + where

	var (
		posts []domain.Post
		total int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		qctx, end := database.TraceQuery(gctx, "posts.list", pageQuery)
		defer func() { end(err) }()

		posts, err = r.queryPosts(qctx, pageQuery, pageArgs...)
		if err != nil {
			return err
		}
		return r.attachRelations(qctx, posts)
	})
	g.Go(func() (err error) {
		qctx, end := database.TraceQuery(gctx, "posts.count", countQuery)
		defer func() { end(err) }()

		if err = r.db.QueryRow(qctx, countQuery, args...).Scan(&total); err != nil {
			return fmt.Errorf("count posts: %w", database.Classify(err))
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	return posts, total, nil
}

// GetByID retrieves a published post by id.
func (r *PostRepository) GetByID(ctx context.Context, id string) (*domain.Post, error) {
	return r.getOne(ctx, "posts.get_by_id", postSelect+" WHERE p.id = $1 AND p.status = $2", "id", id)
}

// GetBySlug retrieves a published post by slug.
func (r *PostRepository) GetBySlug(ctx context.Context, slug string) (*domain.Post, error) {
	return r.getOne(ctx, "posts.get_by_slug", postSelect+" WHERE p.slug = $1 AND p.status = $2", "slug", slug)
}

// getOne treats unpublished posts exactly like absent ones.
func (r *PostRepository) getOne(ctx context.Context, op, query, field, value string) (post *domain.Post, err error) {
	ctx, end := database.TraceQuery(ctx, op, query)
	defer func() { end(err) }()

	posts, err := r.queryPosts(ctx, query, value, string(domain.PostStatusPublished))
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, apperrors.NotFound("post", field, value)
	}
	if err := r.attachRelations(ctx, posts); err != nil {
		return nil, err
	}
	return &posts[0], nil
}

func (r *PostRepository) queryPosts(ctx context.Context, query string, args ...any) ([]domain.Post, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", database.Classify(err))
	}
	defer rows.Close()

	posts := []domain.Post{}
	for rows.Next() {
		var (
			p      domain.Post
			status string
		)
		if err := rows.Scan(
			&p.ID,
			&p.Title,
			&p.Content,
			&p.Slug,
			&status,
			&p.PublishedAt,
			&p.CreatedAt,
			&p.UpdatedAt,
			&p.Author.ID,
			&p.Author.FirstName,
			&p.Author.LastName,
			&p.Author.Email,
		); err != nil {
			return nil, fmt.Errorf("scan post row: %w", err)
		}
		p.Status = domain.PostStatus(status)
		p.Categories = []domain.Category{}
		p.Tags = []domain.Tag{}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate post rows: %w", database.Classify(err))
	}
	return posts, nil
}

// attachRelations loads categories, tags and comment/like counts for all
// posts with one query each and flattens them onto the posts.
func (r *PostRepository) attachRelations(ctx context.Context, posts []domain.Post) error {
	if len(posts) == 0 {
		return nil
	}

	ids := make([]string, len(posts))
	index := make(map[string]int, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
		index[p.ID] = i
	}

	if err := r.loadTaxonomy(ctx, `
		SELECT pc.post_id, c.id, c.name, c.slug, c.color
		FROM post_categories pc JOIN categories c ON c.id = pc.category_id
		WHERE pc.post_id = ANY($1)
		ORDER BY c.name`, ids, func(postID string, c domain.Category) {
		p := &posts[index[postID]]
		p.Categories = append(p.Categories, c)
	}); err != nil {
		return fmt.Errorf("load post categories: %w", err)
	}

	if err := r.loadTaxonomy(ctx, `
		SELECT pt.post_id, t.id, t.name, t.slug, t.color
		FROM post_tags pt JOIN tags t ON t.id = pt.tag_id
		WHERE pt.post_id = ANY($1)
		ORDER BY t.name`, ids, func(postID string, c domain.Category) {
		p := &posts[index[postID]]
		p.Tags = append(p.Tags, domain.Tag(c))
	}); err != nil {
		return fmt.Errorf("load post tags: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT p.id,
		       (SELECT count(*) FROM comments c WHERE c.post_id = p.id),
		       (SELECT count(*) FROM likes l WHERE l.post_id = p.id)
		FROM posts p
		WHERE p.id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("load post stats: %w", database.Classify(err))
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id    string
			stats domain.PostStats
		)
		if err := rows.Scan(&id, &stats.Comments, &stats.Likes); err != nil {
			return fmt.Errorf("scan post stats: %w", err)
		}
		if i, ok := index[id]; ok {
			posts[i].Stats = stats
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate post stats: %w", database.Classify(err))
	}
	return nil
}

// loadTaxonomy scans (post_id, id, name, slug, color) rows. Categories and
// tags share a shape, so tags are read as categories and converted.
func (r *PostRepository) loadTaxonomy(ctx context.Context, query string, ids []string, add func(postID string, c domain.Category)) error {
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return database.Classify(err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			postID string
			c      domain.Category
		)
		if err := rows.Scan(&postID, &c.ID, &c.Name, &c.Slug, &c.Color); err != nil {
			return err
		}
		add(postID, c)
	}
	return database.Classify(rows.Err())
}

// ListCategories returns every category ordered by name.
func (r *PostRepository) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var out []domain.Category
	err := r.listTaxonomy(ctx, "categories.list", `SELECT id, name, slug, color FROM categories ORDER BY name`, func(c domain.Category) {
		out = append(out, c)
	})
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	if out == nil {
		out = []domain.Category{}
	}
	return out, nil
}

// ListTags returns every tag ordered by name.
func (r *PostRepository) ListTags(ctx context.Context) ([]domain.Tag, error) {
	var out []domain.Tag
	err := r.listTaxonomy(ctx, "tags.list", `SELECT id, name, slug, color FROM tags ORDER BY name`, func(c domain.Category) {
		out = append(out, domain.Tag(c))
	})
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	if out == nil {
		out = []domain.Tag{}
	}
	return out, nil
}

func (r *PostRepository) listTaxonomy(ctx context.Context, op, query string, add func(domain.Category)) (err error) {
	ctx, end := database.TraceQuery(ctx, op, query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return database.Classify(err)
	}
	defer rows.Close()

	for rows.Next() {
		var c domain.Category
		if err = rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Color); err != nil {
			return err
		}
		add(c)
	}
	return database.Classify(rows.Err())
}
