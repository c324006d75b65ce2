// Package models defines the domain types for devpub.
package models

import (
	"encoding/json"
	"strings"
)

// Article is a parsed local markdown file.
type Article struct {
	Path     string         `json:"path"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Body     string         `json:"-"`

	Title          string   `json:"title"`
	Tags           []string `json:"tags"`
	Published      bool     `json:"published"`
	Series         *string  `json:"series,omitempty"`
	CanonicalURL   *string  `json:"canonical_url,omitempty"`
	CoverImage     *string  `json:"cover_image,omitempty"`
	Description    *string  `json:"description,omitempty"`
	OrganizationID *int     `json:"organization_id,omitempty"`
}

// ArticleFile is a lightweight representation returned by list operations.
type ArticleFile struct {
	Name string `json:"name"`
}

// Post is an article as owned by the remote service.
type Post struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Slug        string  `json:"slug,omitempty"`
	URL         string  `json:"url"`
	Published   bool    `json:"published"`
	Tags        TagList `json:"tag_list,omitempty"`
}

// User is the authenticated account.
type User struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// Publish actions.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
)

// Outcome is the result of publishing one file.
type Outcome struct {
	File      string `json:"file"`
	Title     string `json:"title,omitempty"`
	Action    string `json:"action,omitempty"`
	PostID    int    `json:"post_id,omitempty"`
	URL       string `json:"url,omitempty"`
	Published bool   `json:"published"`
	// Checksum is the digest of the bytes that were read, set even when
	// publishing failed later on.
	Checksum string `json:"checksum,omitempty"`
	Err      error  `json:"-"`
}

// OK reports whether the publish attempt succeeded.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// TagList decodes tags sent either as a JSON array or as a comma separated string.
type TagList []string

// UnmarshalJSON implements json.Unmarshaler.
func (t *TagList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*t = list
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	out := TagList{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*t = out
	return nil
}
