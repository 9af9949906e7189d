package assets

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
)

// starterRoot is the embed directory holding the starter project.
const starterRoot = "starter"

//go:embed all:starter
var starter embed.FS

// StarterFS returns the starter project rooted at its top directory.
func StarterFS() fs.FS {
	sub, err := fs.Sub(starter, starterRoot)
	if err != nil {
		// The embed directive guarantees the directory exists.
		panic(err)
	}
	return sub
}

// Files lists the starter files as slash-separated relative paths, sorted.
func Files() ([]string, error) {
	var files []string
	err := fs.WalkDir(StarterFS(), ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAssetRead, err)
	}
	sort.Strings(files)
	return files, nil
}

// ReadFile returns one starter file by relative path.
func ReadFile(name string) ([]byte, error) {
	data, err := fs.ReadFile(StarterFS(), name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrAssetRead, name)
	}
	return data, nil
}
