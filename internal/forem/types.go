package forem

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ArticleFields is the article payload of create and update requests.
// Nil fields are omitted from the request body, never sent as null.
type ArticleFields struct {
	Title          *string   `json:"title,omitempty"`
	BodyMarkdown   *string   `json:"body_markdown,omitempty"`
	Published      *bool     `json:"published,omitempty"`
	Tags           *[]string `json:"tags,omitempty"`
	Series         *string   `json:"series,omitempty"`
	CanonicalURL   *string   `json:"canonical_url,omitempty"`
	MainImage      *string   `json:"main_image,omitempty"`
	Description    *string   `json:"description,omitempty"`
	OrganizationID *int      `json:"organization_id,omitempty"`
}

// capped returns a copy whose tag list holds at most MaxTags entries.
func (f ArticleFields) capped() ArticleFields {
	if f.Tags != nil && len(*f.Tags) > MaxTags {
		tags := append([]string(nil), (*f.Tags)[:MaxTags]...)
		f.Tags = &tags
	}
	return f
}

type articleRequest struct {
	Article ArticleFields `json:"article"`
}

// APIError is a non-2xx answer from the API.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
}

func newAPIError(method, path string, status int, body []byte) *APIError {
	e := &APIError{Method: method, Path: path, StatusCode: status}
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		e.Message = payload.Error
	} else {
		e.Message = strings.TrimSpace(string(body))
	}
	return e
}
