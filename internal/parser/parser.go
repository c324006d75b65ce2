// Package parser extracts the metadata header and body from article files.
package parser

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/starford/devpub/internal/models"
)

// Metadata keys understood by the publisher.
const (
	KeyTitle          = "title"
	KeyTags           = "tags"
	KeyPublished      = "published"
	KeySeries         = "series"
	KeyCanonicalURL   = "canonical_url"
	KeyCoverImage     = "cover_image"
	KeyDescription    = "description"
	KeyOrganizationID = "organization_id"
)

// ParseError reports a malformed header block.
type ParseError struct {
	File string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.File, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

type headerFormat struct {
	delim     string
	unmarshal func([]byte, any) error
}

var formats = []headerFormat{
	{delim: "---", unmarshal: yaml.Unmarshal},
	{delim: "+++", unmarshal: toml.Unmarshal},
}

// Parse splits raw file content into metadata and body and derives the typed
// article fields. name is the file name and provides the title fallback.
func Parse(name string, data []byte) (*models.Article, error) {
	meta, body, err := splitHeader(data)
	if err != nil {
		return nil, &ParseError{File: name, Err: err}
	}

	a := &models.Article{
		Path:     name,
		Metadata: meta,
		Body:     body,
		Tags:     []string{},
	}
	if err := applyMetadata(a, meta); err != nil {
		return nil, &ParseError{File: name, Err: err}
	}
	if a.Title == "" {
		a.Title = stem(name)
	}
	return a, nil
}

// splitHeader separates a header (between leading --- or +++ delimiter lines)
// from the body. Without both delimiters the entire content is body.
func splitHeader(data []byte) (map[string]any, string, error) {
	trimmed := bytes.TrimLeft(data, "\n\r")
	first, rest, ok := bytes.Cut(trimmed, []byte("\n"))
	if !ok {
		return map[string]any{}, string(data), nil
	}
	opening := strings.TrimRight(string(first), " \t\r")

	for _, f := range formats {
		if opening != f.delim {
			continue
		}
		lines := strings.SplitAfter(string(rest), "\n")
		for i, line := range lines {
			if strings.TrimRight(line, " \t\r\n") != f.delim {
				continue
			}
			block := strings.Join(lines[:i], "")
			body := strings.TrimLeft(strings.Join(lines[i+1:], ""), "\n\r")

			meta := map[string]any{}
			if strings.TrimSpace(block) == "" {
				return meta, body, nil
			}
			if err := f.unmarshal([]byte(block), &meta); err != nil {
				return nil, "", fmt.Errorf("invalid header: %w", err)
			}
			if meta == nil {
				meta = map[string]any{}
			}
			return meta, body, nil
		}
		// No closing delimiter.
		return map[string]any{}, string(data), nil
	}

	return map[string]any{}, string(data), nil
}

func applyMetadata(a *models.Article, meta map[string]any) error {
	if v, ok := meta[KeyTitle]; ok && v != nil {
		s, err := scalarString(KeyTitle, v)
		if err != nil {
			return err
		}
		a.Title = strings.TrimSpace(s)
	}

	if v, ok := meta[KeyTags]; ok && v != nil {
		tags, err := tagList(v)
		if err != nil {
			return err
		}
		a.Tags = tags
	}

	if v, ok := meta[KeyPublished]; ok && v != nil {
		b, err := boolValue(v)
		if err != nil {
			return err
		}
		a.Published = b
	}

	var err error
	if a.Series, err = optionalString(meta, KeySeries); err != nil {
		return err
	}
	if a.CanonicalURL, err = optionalString(meta, KeyCanonicalURL); err != nil {
		return err
	}
	if a.CoverImage, err = optionalString(meta, KeyCoverImage); err != nil {
		return err
	}
	if a.Description, err = optionalString(meta, KeyDescription); err != nil {
		return err
	}

	if v, ok := meta[KeyOrganizationID]; ok && v != nil {
		id, err := intValue(v)
		if err != nil {
			return err
		}
		a.OrganizationID = &id
	}
	return nil
}

func scalarString(key string, v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case []any, map[string]any:
		return "", fmt.Errorf("%s must be a scalar, got %T", key, v)
	default:
		return fmt.Sprint(t), nil
	}
}

func optionalString(meta map[string]any, key string) (*string, error) {
	v, ok := meta[key]
	if !ok || v == nil {
		return nil, nil
	}
	s, err := scalarString(key, v)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// tagList accepts a list of scalars or a comma separated string.
func tagList(v any) ([]string, error) {
	var raw []string
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			s, err := scalarString(KeyTags, item)
			if err != nil {
				return nil, err
			}
			raw = append(raw, s)
		}
	case string:
		raw = strings.Split(t, ",")
	default:
		return nil, fmt.Errorf("tags must be a list or a comma separated string, got %T", v)
	}

	out := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

func boolValue(v any) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "yes", "on":
			return true, nil
		case "no", "off":
			return false, nil
		}
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return false, fmt.Errorf("published must be a boolean, got %q", t)
		}
		return b, nil
	default:
		return false, fmt.Errorf("published must be a boolean, got %T", v)
	}
}

var errNotInteger = errors.New("organization_id must be an integer")

func intValue(v any) (int, error) {
	switch t := v.(type) {
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case uint64:
		if t > math.MaxInt {
			return 0, errNotInteger
		}
		return int(t), nil
	case float64:
		if t != math.Trunc(t) {
			return 0, errNotInteger
		}
		return int(t), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, errNotInteger
		}
		return n, nil
	default:
		return 0, errNotInteger
	}
}

func stem(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
