package apperr

import "errors"

var (
	ErrMissingCredential   = errors.New("api credential not set")
	ErrArticlesDirNotFound = errors.New("articles directory not found")
	ErrAuth                = errors.New("authentication failed")
	ErrPublishFailed       = errors.New("one or more articles failed to publish")
)
