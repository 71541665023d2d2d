package models

// Post is a page post returned by the platform client.
type Post struct {
	ID           string `json:"id"`
	PermalinkURL string `json:"permalink_url"`
}

// Comment is a top-level comment on a post.
type Comment struct {
	ID   string `json:"id"`
	Text string `json:"message"`
}
