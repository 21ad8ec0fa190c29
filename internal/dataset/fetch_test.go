package dataset

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func TestIsEmpty(t *testing.T) {
	dir := t.TempDir()
	empty, err := IsEmpty(dir)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, empty, test.ShouldBeTrue)

	empty, err = IsEmpty(filepath.Join(dir, "missing"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, empty, test.ShouldBeTrue)

	test.That(t, os.WriteFile(filepath.Join(dir, "x"), nil, 0o644), test.ShouldBeNil)
	empty, err = IsEmpty(dir)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, empty, test.ShouldBeFalse)
}

func TestFetchSkipsNonEmptyDir(t *testing.T) {
	dir := t.TempDir()
	// unrelated content still short-circuits the fetch
	test.That(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o644), test.ShouldBeNil)

	res, err := NewFetcher().Fetch(context.Background(), "/does/not/matter", dir)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Skipped, test.ShouldBeTrue)
	test.That(t, res.Files, test.ShouldEqual, 0)
}

func TestFetchFailureLeavesDirEmpty(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "data")

	res, err := NewFetcher().Fetch(context.Background(), filepath.Join(root, "no-such-source"), dir)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, res.Files, test.ShouldEqual, 0)
	test.That(t, res.Skipped, test.ShouldBeFalse)

	empty, err := IsEmpty(dir)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, empty, test.ShouldBeTrue)

	// staging dirs are cleaned up
	entries, err := os.ReadDir(root)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, entries, test.ShouldHaveLength, 1)
}

func TestFetchLocalDirectory(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "remote")
	test.That(t, os.MkdirAll(filepath.Join(src, "train"), 0o755), test.ShouldBeNil)
	for _, name := range []string{"a.jpg", "b.jpg", filepath.Join("train", "c.xml")} {
		test.That(t, os.WriteFile(filepath.Join(src, name), []byte(name), 0o644), test.ShouldBeNil)
	}

	dir := filepath.Join(root, "data")
	res, err := NewFetcher().Fetch(context.Background(), src, dir)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Files, test.ShouldEqual, 3)

	data, err := os.ReadFile(filepath.Join(dir, "train", "c.xml"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(data), test.ShouldEqual, filepath.Join("train", "c.xml"))

	// the source is left alone
	_, err = os.Stat(filepath.Join(src, "a.jpg"))
	test.That(t, err, test.ShouldBeNil)
}

func TestFetchRejectsWebPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body>shared folder listing</body></html>"))
	}))
	defer srv.Close()

	dir := filepath.Join(t.TempDir(), "data")
	source := srv.URL + "/drive/folders/abc?usp=drive_link"
	f := NewFetcher()

	res, err := f.Fetch(context.Background(), source, dir)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, res.Files, test.ShouldEqual, 0)

	empty, err := IsEmpty(dir)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, empty, test.ShouldBeTrue)

	// the next run tries again instead of skipping
	res, err = f.Fetch(context.Background(), source, dir)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, res.Skipped, test.ShouldBeFalse)
}

func TestEmptyDirKeepsDir(t *testing.T) {
	dir := t.TempDir()
	test.That(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755), test.ShouldBeNil)
	test.That(t, os.WriteFile(filepath.Join(dir, "sub", "a.jpg"), nil, 0o644), test.ShouldBeNil)
	test.That(t, os.WriteFile(filepath.Join(dir, "b.jpg"), nil, 0o644), test.ShouldBeNil)

	emptyDir(dir)

	empty, err := IsEmpty(dir)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, empty, test.ShouldBeTrue)
	_, err = os.Stat(dir)
	test.That(t, err, test.ShouldBeNil)
}
