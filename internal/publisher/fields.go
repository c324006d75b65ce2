package publisher

import (
	"github.com/starford/devpub/internal/forem"
	"github.com/starford/devpub/internal/models"
)

// CreateFields builds the payload for a new article. Title, body and
// published are always sent; optional fields only when set and non-empty.
func CreateFields(a *models.Article) forem.ArticleFields {
	f := forem.ArticleFields{
		Title:        ptr(a.Title),
		BodyMarkdown: ptr(a.Body),
		Published:    ptr(a.Published),
	}
	if len(a.Tags) > 0 {
		tags := append([]string(nil), a.Tags...)
		f.Tags = &tags
	}
	f.Series = nonEmpty(a.Series)
	f.CanonicalURL = nonEmpty(a.CanonicalURL)
	f.MainImage = nonEmpty(a.CoverImage)
	f.Description = nonEmpty(a.Description)
	if a.OrganizationID != nil && *a.OrganizationID != 0 {
		f.OrganizationID = ptr(*a.OrganizationID)
	}
	return f
}

// UpdateFields builds the payload for an existing article. The tag list is
// always sent so removed tags are cleared remotely; optional fields are sent
// whenever the header declares them. The organization is never changed.
func UpdateFields(a *models.Article) forem.ArticleFields {
	tags := append([]string{}, a.Tags...)
	return forem.ArticleFields{
		Title:        ptr(a.Title),
		BodyMarkdown: ptr(a.Body),
		Published:    ptr(a.Published),
		Tags:         &tags,
		Series:       a.Series,
		CanonicalURL: a.CanonicalURL,
		MainImage:    a.CoverImage,
		Description:  a.Description,
	}
}

func ptr[T any](v T) *T { return &v }

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return ptr(*s)
}
