package domain

import "time"

// PostStatus enumerates the publication states of a post.
type PostStatus string

const (
	PostStatusDraft     PostStatus = "DRAFT"
	PostStatusPublished PostStatus = "PUBLISHED"
	PostStatusArchived  PostStatus = "ARCHIVED"
)

// Author is the public projection of a post's author.
type Author struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// Category groups posts by subject.
type Category struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Slug  string  `json:"slug"`
	Color *string `json:"color"`
}

// Tag is a free-form label attached to posts.
type Tag struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Slug  string  `json:"slug"`
	Color *string `json:"color"`
}

// PostStats carries aggregate counts computed at query time.
type PostStats struct {
	Comments int `json:"comments"`
	Likes    int `json:"likes"`
}

// Post is the flattened public shape of a blog post.
type Post struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	Slug        string     `json:"slug"`
	Status      PostStatus `json:"status"`
	PublishedAt *time.Time `json:"publishedAt"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	Author      Author     `json:"author"`
	Categories  []Category `json:"categories"`
	Tags        []Tag      `json:"tags"`
	Stats       PostStats  `json:"stats"`
}
