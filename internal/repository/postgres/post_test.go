package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Farylve/TEST/internal/domain"
	"github.com/Farylve/TEST/internal/repository"
	apperrors "github.com/Farylve/TEST/pkg/errors"
)

const (
	pageQueryPattern     = `SELECT p.id, p.title, .+ FROM posts p\s+JOIN users u ON u.id = p.author_id`
	countQueryPattern    = `SELECT count\(\*\) FROM posts p WHERE`
	categoryQueryPattern = `FROM post_categories pc JOIN categories c ON c.id = pc.category_id\s+WHERE pc.post_id = ANY`
	tagQueryPattern      = `FROM post_tags pt JOIN tags t ON t.id = pt.tag_id\s+WHERE pt.post_id = ANY`
	statsQueryPattern    = `FROM comments c WHERE c.post_id = p.id`
)

func newPostFixture(t *testing.T) (*PostRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	// Page and count queries run concurrently.
	mock.MatchExpectationsInOrder(false)
	t.Cleanup(mock.Close)
	return NewPostRepository(mock), mock
}

func postColumns() []string {
	return []string{
		"id", "title", "content", "slug", "status", "published_at", "created_at", "updated_at",
		"author_id", "first_name", "last_name", "email",
	}
}

func addPostRow(rows *pgxmock.Rows, id, title string) *pgxmock.Rows {
	published := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return rows.AddRow(
		id, title, "content of "+title, "slug-"+id, "PUBLISHED", &published, published, published,
		"author-1", "Ada", "Lovelace", "ada@example.com",
	)
}

func taxonomyColumns() []string {
	return []string{"post_id", "id", "name", "slug", "color"}
}

func strPtr(s string) *string { return &s }

func TestBuildPostFilter_NoFilters(t *testing.T) {
	where, args := buildPostFilter(repository.PostFilter{})

	assert.Equal(t, "WHERE p.status = $1", where)
	assert.Equal(t, []any{"PUBLISHED"}, args)
}

func TestBuildPostFilter_AllFilters(t *testing.T) {
	where, args := buildPostFilter(repository.PostFilter{
		Category: strPtr("tech"),
		Tag:      strPtr("go"),
		Search:   strPtr("React"),
	})

	assert.Contains(t, where, "c.slug = $2")
	assert.Contains(t, where, "t.slug = $3")
	assert.Contains(t, where, "p.title ILIKE $4")
	assert.Contains(t, where, "p.content ILIKE $4")
	assert.Equal(t, []any{"PUBLISHED", "tech", "go", "%React%"}, args)
}

func TestBuildPostFilter_EmptySearchIgnored(t *testing.T) {
	where, args := buildPostFilter(repository.PostFilter{Search: strPtr("")})

	assert.NotContains(t, where, "ILIKE")
	assert.Len(t, args, 1)
}

func TestPostRepository_List_AttachesRelations(t *testing.T) {
	repo, mock := newPostFixture(t)

	rows := pgxmock.NewRows(postColumns())
	addPostRow(rows, "p-2", "Second")
	addPostRow(rows, "p-1", "First")

	mock.ExpectQuery(pageQueryPattern).
		WithArgs("PUBLISHED", "tech", 10, 0).
		WillReturnRows(rows)
	mock.ExpectQuery(countQueryPattern).
		WithArgs("PUBLISHED", "tech").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(25))
	mock.ExpectQuery(categoryQueryPattern).
		WithArgs([]string{"p-2", "p-1"}).
		WillReturnRows(pgxmock.NewRows(taxonomyColumns()).
			AddRow("p-1", "c-1", "Tech", "tech", strPtr("#3B82F6")).
			AddRow("p-2", "c-1", "Tech", "tech", strPtr("#3B82F6")))
	mock.ExpectQuery(tagQueryPattern).
		WithArgs([]string{"p-2", "p-1"}).
		WillReturnRows(pgxmock.NewRows(taxonomyColumns()).
			AddRow("p-1", "t-1", "Go", "go", (*string)(nil)))
	mock.ExpectQuery(statsQueryPattern).
		WithArgs([]string{"p-2", "p-1"}).
		WillReturnRows(pgxmock.NewRows([]string{"id", "comments", "likes"}).
			AddRow("p-1", 3, 5).
			AddRow("p-2", 0, 1))

	posts, total, err := repo.List(context.Background(), repository.PostFilter{
		Category: strPtr("tech"), Page: 1, Limit: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, 25, total)
	require.Len(t, posts, 2)

	assert.Equal(t, "p-2", posts[0].ID)
	assert.Equal(t, domain.PostStatusPublished, posts[0].Status)
	assert.Equal(t, "Ada", posts[0].Author.FirstName)
	assert.Len(t, posts[0].Categories, 1)
	assert.Empty(t, posts[0].Tags)
	assert.NotNil(t, posts[0].Tags)
	assert.Equal(t, domain.PostStats{Comments: 0, Likes: 1}, posts[0].Stats)

	require.Len(t, posts[1].Tags, 1)
	assert.Equal(t, "go", posts[1].Tags[0].Slug)
	assert.Nil(t, posts[1].Tags[0].Color)
	assert.Equal(t, domain.PostStats{Comments: 3, Likes: 5}, posts[1].Stats)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_List_Pagination(t *testing.T) {
	repo, mock := newPostFixture(t)

	mock.ExpectQuery(pageQueryPattern).
		WithArgs("PUBLISHED", "%react%", 10, 20).
		WillReturnRows(pgxmock.NewRows(postColumns()))
	mock.ExpectQuery(countQueryPattern).
		WithArgs("PUBLISHED", "%react%").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(25))

	posts, total, err := repo.List(context.Background(), repository.PostFilter{
		Search: strPtr("react"), Page: 3, Limit: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, 25, total)
	assert.NotNil(t, posts)
	assert.Empty(t, posts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_List_CountFailure(t *testing.T) {
	repo, mock := newPostFixture(t)

	mock.ExpectQuery(pageQueryPattern).
		WithArgs("PUBLISHED", 10, 0).
		WillReturnRows(pgxmock.NewRows(postColumns()))
	mock.ExpectQuery(countQueryPattern).
		WithArgs("PUBLISHED").
		WillReturnError(errors.New("connection reset by peer"))

	_, _, err := repo.List(context.Background(), repository.PostFilter{Page: 1, Limit: 10})
	require.Error(t, err)
	assert.Equal(t, 503, apperrors.HTTPStatus(err))
}

func TestPostRepository_GetBySlug_Found(t *testing.T) {
	repo, mock := newPostFixture(t)

	mock.ExpectQuery(`WHERE p.slug = \$1 AND p.status = \$2`).
		WithArgs("hello-world", "PUBLISHED").
		WillReturnRows(addPostRow(pgxmock.NewRows(postColumns()), "p-1", "Hello"))
	mock.ExpectQuery(categoryQueryPattern).
		WithArgs([]string{"p-1"}).
		WillReturnRows(pgxmock.NewRows(taxonomyColumns()))
	mock.ExpectQuery(tagQueryPattern).
		WithArgs([]string{"p-1"}).
		WillReturnRows(pgxmock.NewRows(taxonomyColumns()))
	mock.ExpectQuery(statsQueryPattern).
		WithArgs([]string{"p-1"}).
		WillReturnRows(pgxmock.NewRows([]string{"id", "comments", "likes"}).AddRow("p-1", 2, 4))

	post, err := repo.GetBySlug(context.Background(), "hello-world")
	require.NoError(t, err)
	assert.Equal(t, "p-1", post.ID)
	assert.Equal(t, 4, post.Stats.Likes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_GetBySlug_DraftLooksAbsent(t *testing.T) {
	repo, mock := newPostFixture(t)

	mock.ExpectQuery(`WHERE p.slug = \$1 AND p.status = \$2`).
		WithArgs("draft-post", "PUBLISHED").
		WillReturnRows(pgxmock.NewRows(postColumns()))

	post, err := repo.GetBySlug(context.Background(), "draft-post")
	assert.Nil(t, post)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := newPostFixture(t)

	mock.ExpectQuery(`WHERE p.id = \$1 AND p.status = \$2`).
		WithArgs("6f1c2d7e-0000-4000-8000-000000000009", "PUBLISHED").
		WillReturnRows(pgxmock.NewRows(postColumns()))

	_, err := repo.GetByID(context.Background(), "6f1c2d7e-0000-4000-8000-000000000009")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestPostRepository_ListCategories(t *testing.T) {
	repo, mock := newPostFixture(t)

	mock.ExpectQuery("SELECT id, name, slug, color FROM categories ORDER BY name").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "slug", "color"}).
			AddRow("c-1", "Lifestyle", "lifestyle", strPtr("#10B981")).
			AddRow("c-2", "Technology", "technology", strPtr("#3B82F6")))

	cats, err := repo.ListCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "lifestyle", cats[0].Slug)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_ListTags_Empty(t *testing.T) {
	repo, mock := newPostFixture(t)

	mock.ExpectQuery("SELECT id, name, slug, color FROM tags ORDER BY name").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "slug", "color"}))

	tags, err := repo.ListTags(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, tags)
	assert.Empty(t, tags)
}
