package publisher

import (
	"fmt"
	"io"
	"strings"

	"github.com/starford/devpub/internal/models"
)

// Reporter writes human-readable progress lines. The format is for people,
// not for parsing.
type Reporter struct {
	w io.Writer
}

// NewReporter returns a reporter writing to w. A nil w discards output.
func NewReporter(w io.Writer) *Reporter {
	if w == nil {
		w = io.Discard
	}
	return &Reporter{w: w}
}

func (r *Reporter) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.w, format, args...)
}

// Authenticated reports the account behind the API key.
func (r *Reporter) Authenticated(u *models.User) {
	r.printf("✓ Authenticated as: %s (@%s)\n", u.Name, u.Username)
}

// NoFiles reports an empty articles directory.
func (r *Reporter) NoFiles(dir string) {
	r.printf("No article files found in %s\n", dir)
}

// Processing announces the file about to be published.
func (r *Reporter) Processing(name string) {
	r.printf("\n📝 Processing: %s\n", name)
}

// Updating announces an update of an existing post.
func (r *Reporter) Updating(id int) {
	r.printf("  Article exists (ID: %d), updating...\n", id)
}

// Creating announces creation of a new post.
func (r *Reporter) Creating() {
	r.printf("  Creating new article...\n")
}

// Published reports a successful create or update.
func (r *Reporter) Published(o models.Outcome) {
	verb := "Created"
	if o.Action == models.ActionUpdated {
		verb = "Updated"
	}
	status := "Draft"
	if o.Published {
		status = "Published"
	}
	r.printf("✓ %s: %s\n", verb, o.Title)
	r.printf("  URL: %s\n", o.URL)
	r.printf("  Status: %s\n", status)
}

// Failed reports a file that could not be published.
func (r *Reporter) Failed(o models.Outcome) {
	r.printf("✗ Failed to publish %s: %v\n", o.File, o.Err)
}

// Summary prints the final tally.
func (r *Reporter) Summary(s Summary) {
	r.printf("\n%s\n", strings.Repeat("=", 50))
	r.printf("Processed %d of %d articles\n", s.Succeeded, s.Total)
}
