// Package dataset makes sure the local data directory is populated before a
// run, pulling the dataset from a remote source when it is empty.
package dataset

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	getter "github.com/hashicorp/go-getter"
	"github.com/pkg/errors"
)

type Result struct {
	// Skipped is set when the directory already had content.
	Skipped bool
	// Files is the number of regular files placed into the directory.
	Files int
}

type Fetcher struct {
	getters map[string]getter.Getter
}

func NewFetcher() *Fetcher {
	getters := make(map[string]getter.Getter, len(getter.Getters))
	for k, v := range getter.Getters {
		getters[k] = v
	}
	getters["file"] = &getter.FileGetter{Copy: true}
	return &Fetcher{getters: getters}
}

// IsEmpty reports whether dir has no entries. A missing dir counts as empty.
func IsEmpty(dir string) (bool, error) {
	f, err := os.Open(dir)
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	defer f.Close()

	_, err = f.Readdirnames(1)
	if err == io.EOF {
		return true, nil
	}
	return false, err
}

// Fetch downloads source into dir unless dir already has any entry. source
// must resolve to a directory: an archive URL, git::, s3::, gcs:: or a local
// directory. A plain web page is rejected rather than stored as a file. On
// failure dir is left empty.
func (f *Fetcher) Fetch(ctx context.Context, source, dir string) (Result, error) {
	empty, err := IsEmpty(dir)
	if err != nil {
		return Result{}, errors.Wrapf(err, "failed to inspect %q", dir)
	}
	if !empty {
		return Result{Skipped: true}, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{}, errors.Wrapf(err, "failed to create %q", dir)
	}

	staging, err := os.MkdirTemp(filepath.Dir(filepath.Clean(dir)), ".fetch-")
	if err != nil {
		return Result{}, errors.Wrap(err, "failed to create staging dir")
	}
	defer os.RemoveAll(staging)

	pwd, err := os.Getwd()
	if err != nil {
		return Result{}, err
	}

	dst := filepath.Join(staging, "dataset")
	client := &getter.Client{
		Ctx:     ctx,
		Src:     source,
		Dst:     dst,
		Pwd:     pwd,
		Mode:    getter.ClientModeDir,
		Getters: f.getters,
	}
	if err := client.Get(); err != nil {
		return Result{}, errors.Wrapf(err, "failed to download %q", source)
	}

	files, err := collect(dst, dir)
	if err != nil {
		emptyDir(dir)
		return Result{}, errors.Wrap(err, "failed to place downloaded files")
	}
	return Result{Files: files}, nil
}

// emptyDir removes every entry of dir, keeping dir itself.
func emptyDir(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		os.RemoveAll(filepath.Join(dir, e.Name()))
	}
}

// collect copies everything under src into dir. For local sources src is a
// symlink to the source directory.
func collect(src, dir string) (int, error) {
	root, err := filepath.EvalSymlinks(src)
	if err != nil {
		return 0, err
	}

	files := 0
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dir, rel)
		switch {
		case d.IsDir():
			return os.MkdirAll(target, 0o755)
		case d.Type().IsRegular():
			if err := copyFile(p, target); err != nil {
				return err
			}
			files++
		}
		return nil
	})
	return files, err
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
