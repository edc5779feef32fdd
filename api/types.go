package api

import (
	"net/url"
	"strconv"
	"time"
)

// Role is the account role reported by the backend. The empty role means
// the caller is not signed in.
type Role string

const (
	RoleNone    Role = ""
	RolePending Role = "PENDING"
	RoleUser    Role = "USER"
	RoleAdmin   Role = "ADMIN"
)

// Profile is the signed-in user's public profile.
type Profile struct {
	ID              int64     `json:"id"`
	Nickname        string    `json:"nickname"`
	Email           string    `json:"email"`
	ProfileImageURL string    `json:"profileImageUrl"`
	Bio             string    `json:"bio"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Author is the public view of a post or comment writer.
type Author struct {
	ID              int64  `json:"id"`
	Nickname        string `json:"nickname"`
	ProfileImageURL string `json:"profileImageUrl"`
}

// Post is one blog post as listed and shown.
type Post struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Category     string    `json:"category"`
	ImageURLs    []string  `json:"imageUrls"`
	Author       Author    `json:"author"`
	LikeCount    int       `json:"likeCount"`
	CommentCount int       `json:"commentCount"`
	Liked        bool      `json:"liked"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// PostPage is one page of a post listing.
type PostPage struct {
	Posts         []Post `json:"posts"`
	Page          int    `json:"page"`
	Size          int    `json:"size"`
	TotalPages    int    `json:"totalPages"`
	TotalElements int64  `json:"totalElements"`
	HasNext       bool   `json:"hasNext"`
}

// PostFilter selects a post listing. It is also part of the listing's cache
// key, so its JSON form must stay stable.
type PostFilter struct {
	Category string `json:"category,omitempty"`
	Keyword  string `json:"keyword,omitempty"`
	Sort     string `json:"sort,omitempty"`
	Page     int    `json:"page"`
	Size     int    `json:"size,omitempty"`
}

func (f PostFilter) values() url.Values {
	q := url.Values{}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if f.Keyword != "" {
		q.Set("keyword", f.Keyword)
	}
	if f.Sort != "" {
		q.Set("sort", f.Sort)
	}
	q.Set("page", strconv.Itoa(f.Page))
	if f.Size > 0 {
		q.Set("size", strconv.Itoa(f.Size))
	}
	return q
}

// PostInput is the body for creating or editing a post.
type PostInput struct {
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Category  string   `json:"category"`
	ImageURLs []string `json:"imageUrls,omitempty"`
}

// Comment is one comment on a post.
type Comment struct {
	ID        int64     `json:"id"`
	PostID    int64     `json:"postId"`
	Content   string    `json:"content"`
	Author    Author    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CommentInput is the body for creating or editing a comment.
type CommentInput struct {
	Content string `json:"content"`
}

// LikeStatus is the like state of one post after a like or unlike.
type LikeStatus struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"likeCount"`
}

// Image is an uploaded image.
type Image struct {
	URL string `json:"url"`
}

// PendingUser is a registration awaiting approval.
type PendingUser struct {
	ID          int64     `json:"id"`
	Nickname    string    `json:"nickname"`
	Email       string    `json:"email"`
	RequestedAt time.Time `json:"requestedAt"`
}

// TokenPair is issued by the refresh endpoint.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// ProfileUpdate carries the editable profile fields.
type ProfileUpdate struct {
	Nickname        string `json:"nickname,omitempty"`
	Bio             string `json:"bio,omitempty"`
	ProfileImageURL string `json:"profileImageUrl,omitempty"`
}

// Registration completes a pending account.
type Registration struct {
	Nickname        string `json:"nickname"`
	Bio             string `json:"bio,omitempty"`
	ProfileImageURL string `json:"profileImageUrl,omitempty"`
}

type roleBody struct {
	Role Role `json:"role"`
}
