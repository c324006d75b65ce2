package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/starford/devpub/internal/models"
)

// FakeAPIKey is the key accepted by a FakeForem unless overridden.
const FakeAPIKey = "test-api-key"

// Request is one call received by the fake API. Article holds the decoded
// "article" object of create and update bodies.
type Request struct {
	Method  string
	Path    string
	APIKey  string
	Article map[string]any
}

// FakeForem is an in-memory Forem API served over httptest.
type FakeForem struct {
	User models.User

	apiKey string
	server *httptest.Server

	mu         sync.Mutex
	posts      []models.Post
	nextID     int
	requests   []Request
	failTitles map[string]int
}

// NewFakeForem starts a fake API that accepts apiKey; it is closed on test cleanup.
func NewFakeForem(t *testing.T, apiKey string) *FakeForem {
	t.Helper()
	f := &FakeForem{
		User:       models.User{ID: 1, Name: "Test Author", Username: "tester"},
		apiKey:     apiKey,
		nextID:     1000,
		failTitles: map[string]int{},
	}
	f.server = httptest.NewServer(f.router())
	t.Cleanup(f.server.Close)
	return f
}

// URL returns the API root to hand to forem.New.
func (f *FakeForem) URL() string {
	return f.server.URL + "/api"
}

// AddPost seeds an existing remote post and returns it.
func (f *FakeForem) AddPost(title string, published bool) models.Post {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.newPostLocked(title, published)
	f.posts = append(f.posts, p)
	return p
}

// FailTitle makes create and update of an article titled title answer status.
func (f *FakeForem) FailTitle(title string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failTitles[title] = status
}

// Posts returns a copy of the stored posts.
func (f *FakeForem) Posts() []models.Post {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Post(nil), f.posts...)
}

// Requests returns a copy of every request received so far.
func (f *FakeForem) Requests() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Request(nil), f.requests...)
}

// Count returns how many requests matched method and path prefix.
func (f *FakeForem) Count(method, pathPrefix string) int {
	n := 0
	for _, r := range f.Requests() {
		if r.Method == method && strings.HasPrefix(r.Path, pathPrefix) {
			n++
		}
	}
	return n
}

func (f *FakeForem) router() http.Handler {
	r := chi.NewRouter()
	r.Use(f.record)
	r.Use(f.auth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/users/me", f.me)
		r.Get("/articles/me/all", f.listMine)
		r.Post("/articles", f.create)
		r.Put("/articles/{id}", f.update)
	})
	return r
}

func (f *FakeForem) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := Request{Method: r.Method, Path: r.URL.Path, APIKey: r.Header.Get("api-key")}
		if r.Body != nil && (r.Method == http.MethodPost || r.Method == http.MethodPut) {
			var body struct {
				Article map[string]any `json:"article"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				writeJSON(w, http.StatusBadRequest, errorBody(http.StatusBadRequest, "invalid json"))
				return
			}
			req.Article = body.Article
		}
		f.mu.Lock()
		f.requests = append(f.requests, req)
		f.mu.Unlock()
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), articleKey{}, req.Article)))
	})
}

func (f *FakeForem) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("api-key") != f.apiKey {
			writeJSON(w, http.StatusUnauthorized, errorBody(http.StatusUnauthorized, "unauthorized"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *FakeForem) me(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, f.User)
}

func (f *FakeForem) listMine(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, f.Posts())
}

func (f *FakeForem) create(w http.ResponseWriter, r *http.Request) {
	article := articleFrom(r)
	title, _ := article["title"].(string)

	f.mu.Lock()
	defer f.mu.Unlock()
	if status, ok := f.failTitles[title]; ok {
		writeJSON(w, status, errorBody(status, "rejected: "+title))
		return
	}
	published, _ := article["published"].(bool)
	p := f.newPostLocked(title, published)
	applyArticle(&p, article)
	f.posts = append(f.posts, p)
	writeJSON(w, http.StatusCreated, p)
}

func (f *FakeForem) update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody(http.StatusNotFound, "not found"))
		return
	}
	article := articleFrom(r)

	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.posts {
		if f.posts[i].ID != id {
			continue
		}
		if status, ok := f.failTitles[f.posts[i].Title]; ok {
			writeJSON(w, status, errorBody(status, "rejected: "+f.posts[i].Title))
			return
		}
		applyArticle(&f.posts[i], article)
		writeJSON(w, http.StatusOK, f.posts[i])
		return
	}
	writeJSON(w, http.StatusNotFound, errorBody(http.StatusNotFound, "not found"))
}

type articleKey struct{}

func articleFrom(r *http.Request) map[string]any {
	article, _ := r.Context().Value(articleKey{}).(map[string]any)
	return article
}

func (f *FakeForem) newPostLocked(title string, published bool) models.Post {
	f.nextID++
	slug := strings.ToLower(strings.ReplaceAll(title, " ", "-"))
	return models.Post{
		ID:        f.nextID,
		Title:     title,
		Slug:      slug,
		URL:       fmt.Sprintf("https://dev.to/%s/%s-%d", f.User.Username, slug, f.nextID),
		Published: published,
	}
}

func applyArticle(p *models.Post, article map[string]any) {
	if v, ok := article["title"].(string); ok {
		p.Title = v
	}
	if v, ok := article["published"].(bool); ok {
		p.Published = v
	}
	if v, ok := article["description"].(string); ok {
		p.Description = v
	}
	if raw, ok := article["tags"].([]any); ok {
		tags := models.TagList{}
		for _, t := range raw {
			if s, ok := t.(string); ok {
				tags = append(tags, s)
			}
		}
		p.Tags = tags
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

func errorBody(status int, msg string) errResponse {
	return errResponse{Error: msg, Status: status}
}
