package publisher

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/starford/devpub/internal/apperr"
	"github.com/starford/devpub/internal/checksum"
	"github.com/starford/devpub/internal/forem"
	"github.com/starford/devpub/internal/models"
	"github.com/starford/devpub/internal/parser"
	"github.com/starford/devpub/internal/testutil"
)

type testEnv struct {
	dir  string
	fake *testutil.FakeForem
	svc  *Service
	out  *bytes.Buffer
}

func newTestEnv(t *testing.T, apiKey string) *testEnv {
	t.Helper()
	dir, store := testutil.TestArticles(t)
	fake := testutil.NewFakeForem(t, testutil.FakeAPIKey)
	out := &bytes.Buffer{}
	client := forem.New(fake.URL(), apiKey)
	svc := NewService(client, store, WithReporter(NewReporter(out)))
	return &testEnv{dir: dir, fake: fake, svc: svc, out: out}
}

func TestRun_ExistingTitleUpdates(t *testing.T) {
	env := newTestEnv(t, testutil.FakeAPIKey)
	existing := env.fake.AddPost("Foo", false)
	testutil.WriteArticle(t, env.dir, "foo.md", "---\ntitle: Foo\npublished: true\n---\nNew body\n")

	sum, err := env.svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !sum.OK() || sum.Total != 1 {
		t.Fatalf("summary = %+v", sum)
	}
	if n := env.fake.Count(http.MethodPost, "/api/articles"); n != 0 {
		t.Errorf("create calls = %d, want 0", n)
	}
	if n := env.fake.Count(http.MethodPut, "/api/articles/"+strconv.Itoa(existing.ID)); n != 1 {
		t.Errorf("update calls for id %d = %d, want 1", existing.ID, n)
	}
	if !strings.Contains(env.out.String(), "✓ Updated: Foo") {
		t.Errorf("output = %q", env.out.String())
	}
	if posts := env.fake.Posts(); len(posts) != 1 || !posts[0].Published {
		t.Errorf("posts = %+v", posts)
	}
}

func TestRun_NewTitleCreates(t *testing.T) {
	env := newTestEnv(t, testutil.FakeAPIKey)
	env.fake.AddPost("Foo", false)
	testutil.WriteArticle(t, env.dir, "bar.md", "---\ntitle: Bar\n---\nBody\n")

	sum, err := env.svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !sum.OK() {
		t.Fatalf("summary = %+v", sum)
	}
	if n := env.fake.Count(http.MethodPut, "/api/articles/"); n != 0 {
		t.Errorf("update calls = %d, want 0", n)
	}
	if n := env.fake.Count(http.MethodPost, "/api/articles"); n != 1 {
		t.Errorf("create calls = %d, want 1", n)
	}
	out := env.out.String()
	if !strings.Contains(out, "✓ Created: Bar") || !strings.Contains(out, "Status: Draft") {
		t.Errorf("output = %q", out)
	}
}

func TestRun_AuthFailureTouchesNothing(t *testing.T) {
	env := newTestEnv(t, "wrong-key")
	testutil.WriteArticle(t, env.dir, "a.md", "---\ntitle: A\n---\n")

	_, err := env.svc.Run(context.Background())
	if !errors.Is(err, apperr.ErrAuth) {
		t.Fatalf("error = %v, want ErrAuth", err)
	}
	for _, r := range env.fake.Requests() {
		if r.Method == http.MethodPost || r.Method == http.MethodPut {
			t.Errorf("unexpected mutation %s %s", r.Method, r.Path)
		}
	}
	if n := env.fake.Count(http.MethodGet, "/api/articles"); n != 0 {
		t.Errorf("list calls = %d, want 0", n)
	}
}

func TestRun_FailureIsolation(t *testing.T) {
	env := newTestEnv(t, testutil.FakeAPIKey)
	testutil.WriteArticle(t, env.dir, "a.md", "---\ntitle: A\n---\nA body\n")
	testutil.WriteArticle(t, env.dir, "b.md", "---\ntitle: [broken\n---\nB body\n")
	testutil.WriteArticle(t, env.dir, "c.md", "---\ntitle: C\n---\nC body\n")

	sum, err := env.svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Total != 3 || sum.Succeeded != 2 || sum.OK() {
		t.Fatalf("summary = %+v", sum)
	}
	if len(sum.Failed) != 1 || sum.Failed[0] != "b.md" {
		t.Errorf("failed = %v, want [b.md]", sum.Failed)
	}
	if len(env.fake.Posts()) != 2 {
		t.Errorf("posts = %+v", env.fake.Posts())
	}
	out := env.out.String()
	if !strings.Contains(out, "Processed 2 of 3 articles") {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(out, "✗ Failed to publish b.md") {
		t.Errorf("output = %q", out)
	}
}

func TestRun_APIRejectionIsPerFile(t *testing.T) {
	env := newTestEnv(t, testutil.FakeAPIKey)
	env.fake.FailTitle("Bad", http.StatusUnprocessableEntity)
	testutil.WriteArticle(t, env.dir, "bad.md", "---\ntitle: Bad\n---\n")
	testutil.WriteArticle(t, env.dir, "good.md", "---\ntitle: Good\n---\n")

	sum, err := env.svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Succeeded != 1 || len(sum.Failed) != 1 || sum.Failed[0] != "bad.md" {
		t.Errorf("summary = %+v", sum)
	}
	if !strings.Contains(env.out.String(), "status 422") {
		t.Errorf("output = %q", env.out.String())
	}
}

func TestRun_NoFiles(t *testing.T) {
	env := newTestEnv(t, testutil.FakeAPIKey)
	sum, err := env.svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !sum.OK() || sum.Total != 0 {
		t.Errorf("summary = %+v", sum)
	}
	if !strings.Contains(env.out.String(), "No article files found") {
		t.Errorf("output = %q", env.out.String())
	}
}

func TestRun_TitleFallsBackToFileName(t *testing.T) {
	env := newTestEnv(t, testutil.FakeAPIKey)
	testutil.WriteArticle(t, env.dir, "untitled-post.md", "Just text\n")

	if _, err := env.svc.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	posts := env.fake.Posts()
	if len(posts) != 1 || posts[0].Title != "untitled-post" {
		t.Errorf("posts = %+v", posts)
	}
}

func TestRun_TagsTruncatedOnCreateAndUpdate(t *testing.T) {
	env := newTestEnv(t, testutil.FakeAPIKey)
	testutil.WriteArticle(t, env.dir, "t.md", "---\ntitle: T\ntags: [a, b, c, d, e]\n---\n")

	ctx := context.Background()
	if _, err := env.svc.Run(ctx); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, err := env.svc.Run(ctx); err != nil {
		t.Fatalf("second run: %v", err)
	}

	var mutations int
	for _, r := range env.fake.Requests() {
		if r.Method != http.MethodPost && r.Method != http.MethodPut {
			continue
		}
		mutations++
		tags, _ := r.Article["tags"].([]any)
		if len(tags) != 4 {
			t.Errorf("%s tags = %v, want 4 entries", r.Method, tags)
		}
	}
	if mutations != 2 {
		t.Errorf("mutations = %d, want create then update", mutations)
	}
}

func TestCreateFields_Omission(t *testing.T) {
	a, err := parser.Parse("a.md", []byte("---\ntitle: A\nseries: \"\"\ndescription: D\norganization_id: 0\n---\nbody"))
	if err != nil {
		t.Fatal(err)
	}
	f := CreateFields(a)
	if f.Title == nil || f.BodyMarkdown == nil || f.Published == nil || *f.Published {
		t.Errorf("required fields = %+v", f)
	}
	if f.Tags != nil {
		t.Error("empty tags should be omitted on create")
	}
	if f.Series != nil {
		t.Error("empty series should be omitted on create")
	}
	if f.Description == nil || *f.Description != "D" {
		t.Errorf("description = %v", f.Description)
	}
	if f.OrganizationID != nil {
		t.Error("zero organization_id should be omitted")
	}
	if f.CanonicalURL != nil || f.MainImage != nil {
		t.Error("undeclared fields should be omitted")
	}
}

func TestUpdateFields_Omission(t *testing.T) {
	a, err := parser.Parse("a.md", []byte("---\ntitle: A\ncover_image: https://img\norganization_id: 9\n---\nbody"))
	if err != nil {
		t.Fatal(err)
	}
	f := UpdateFields(a)
	if f.Tags == nil || len(*f.Tags) != 0 {
		t.Errorf("tags = %v, want explicit empty list", f.Tags)
	}
	if f.MainImage == nil || *f.MainImage != "https://img" {
		t.Errorf("main_image = %v", f.MainImage)
	}
	if f.OrganizationID != nil {
		t.Error("organization_id is never sent on update")
	}
	if f.Series != nil || f.CanonicalURL != nil || f.Description != nil {
		t.Error("undeclared fields should be omitted")
	}
}

func TestPublishFile_Outcome(t *testing.T) {
	env := newTestEnv(t, testutil.FakeAPIKey)
	testutil.WriteArticle(t, env.dir, "p.md", "---\ntitle: P\npublished: true\n---\n")

	out := env.svc.PublishFile(context.Background(), "p.md")
	if !out.OK() {
		t.Fatalf("outcome error: %v", out.Err)
	}
	if out.Action != models.ActionCreated || !out.Published || out.URL == "" || out.PostID == 0 {
		t.Errorf("outcome = %+v", out)
	}

	out = env.svc.PublishFile(context.Background(), "missing.md")
	if out.OK() {
		t.Error("missing file should fail")
	}
}

func TestRun_UnreadableFileIsIsolated(t *testing.T) {
	env := newTestEnv(t, testutil.FakeAPIKey)
	testutil.WriteArticle(t, env.dir, "a.md", "---\ntitle: A\n---\n")
	testutil.WriteArticle(t, env.dir, "c.md", "---\ntitle: C\n---\n")
	if err := os.Symlink(filepath.Join(env.dir, "missing.md"), filepath.Join(env.dir, "b.md")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	sum, err := env.svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Total != 3 || sum.Succeeded != 2 || sum.OK() {
		t.Fatalf("summary = %+v", sum)
	}
	if len(sum.Failed) != 1 || sum.Failed[0] != "b.md" {
		t.Errorf("failed = %v, want [b.md]", sum.Failed)
	}
	if len(env.fake.Posts()) != 2 {
		t.Errorf("posts = %+v", env.fake.Posts())
	}
	if !strings.Contains(env.out.String(), "Processed 2 of 3 articles") {
		t.Errorf("output = %q", env.out.String())
	}
}

func TestRun_OutcomesCarryReadChecksum(t *testing.T) {
	env := newTestEnv(t, testutil.FakeAPIKey)
	content := "---\ntitle: A\n---\nbody\n"
	testutil.WriteArticle(t, env.dir, "a.md", content)
	testutil.WriteArticle(t, env.dir, "b.md", "---\ntitle: [bad\n---\n")

	sum, err := env.svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sum.Outcomes) != 2 {
		t.Fatalf("outcomes = %+v", sum.Outcomes)
	}
	if got := sum.Outcomes[0].Checksum; got != checksum.Sum([]byte(content)) {
		t.Errorf("a.md checksum = %q", got)
	}
	if sum.Outcomes[1].OK() || sum.Outcomes[1].Checksum == "" {
		t.Errorf("b.md outcome = %+v, want failed with checksum", sum.Outcomes[1])
	}
}
