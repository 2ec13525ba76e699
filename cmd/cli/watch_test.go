package main

import (
	"os"
	"strings"
	"testing"

	"github.com/and161185/fastcite/internal/config"
	"github.com/and161185/fastcite/internal/model"
)

func watchConfig(t *testing.T, base string) {
	t.Helper()
	if err := os.MkdirAll(base, 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(config.Path(base), []byte("debounce = \"150ms\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
}

// lastRender is the output after the final filter header.
func lastRender(out string) string {
	i := strings.LastIndex(out, "Filter: ")
	if i < 0 {
		return ""
	}
	return out[i:]
}

func Test_booksWatch(t *testing.T) {
	base := withTmpConfig(t)
	loggedIn(t, base)
	watchConfig(t, base)
	b := &backend{books: []model.Book{
		{ID: "b1", Title: "Dune", AuthorName: "Herbert", Status: model.BookComplete},
		{ID: "b2", Title: "Foundation", AuthorName: "Asimov", Status: model.BookProcessing},
	}}
	api := b.start(t)

	// lines typed faster than the debounce collapse into the last one
	code, out, errOut := runFC(t, "zzz\nfound\n", "-api", api, "books", "-watch")
	if code != 0 {
		t.Fatalf("code=%d err=%q", code, errOut)
	}
	if !strings.Contains(out, `Filter: "" (status all)`) || !strings.Contains(out, "Dune") {
		t.Fatalf("initial list missing: %q", out)
	}
	if strings.Contains(out, `Filter: "zzz"`) {
		t.Fatalf("superseded query was applied: %q", out)
	}
	last := lastRender(out)
	if !strings.HasPrefix(last, `Filter: "found"`) || !strings.Contains(last, "Foundation") || strings.Contains(last, "Dune") {
		t.Fatalf("settled render: %q", last)
	}
	var listed int
	b.locked(func() { listed = b.bookHits })
	if listed != 1 {
		t.Fatalf("books fetched %d times, want 1", listed)
	}
}

func Test_booksWatchStatus(t *testing.T) {
	base := withTmpConfig(t)
	loggedIn(t, base)
	watchConfig(t, base)
	b := &backend{books: []model.Book{
		{ID: "b1", Title: "Dune", Status: model.BookComplete},
		{ID: "b2", Title: "Foundation", Status: model.BookProcessing},
	}}
	api := b.start(t)

	code, out, errOut := runFC(t, ":status pink\n:status processing\n", "-api", api, "books", "-q", "o", "-watch")
	if code != 0 {
		t.Fatalf("code=%d err=%q", code, errOut)
	}
	if !strings.Contains(errOut, `unknown status "pink"`) {
		t.Fatalf("stderr=%q", errOut)
	}
	last := lastRender(out)
	if !strings.HasPrefix(last, `Filter: "o" (status processing)`) || !strings.Contains(last, "Foundation") || strings.Contains(last, "Dune") {
		t.Fatalf("status render: %q", last)
	}
}

func Test_chatsWatch(t *testing.T) {
	base := withTmpConfig(t)
	loggedIn(t, base)
	watchConfig(t, base)
	b := &backend{}
	api := b.start(t)

	code, out, errOut := runFC(t, "nothing\n", "-api", api, "chats", "-watch")
	if code != 0 {
		t.Fatalf("code=%d err=%q", code, errOut)
	}
	if !strings.Contains(out, "Old chat") {
		t.Fatalf("initial list missing: %q", out)
	}
	if last := lastRender(out); !strings.HasPrefix(last, `Filter: "nothing"`) || strings.Contains(last, "Old chat") {
		t.Fatalf("settled render: %q", last)
	}
}
