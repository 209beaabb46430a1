package output

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore writes artifacts to the local filesystem. Both files are first
// written to temporary files in the target directory and then renamed.
type FileStore struct{}

func (FileStore) Save(_ context.Context, base string, artifacts Artifacts) (Locations, error) {
	if base == "" {
		return Locations{}, errors.New("output path is empty")
	}
	loc := names(base)

	dir := filepath.Dir(base)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Locations{}, fmt.Errorf("create output directory %q: %w", dir, err)
	}

	jsonTmp, err := writeTemp(dir, artifacts.JSON)
	if err != nil {
		return Locations{}, err
	}
	defer os.Remove(jsonTmp)

	mdTmp, err := writeTemp(dir, artifacts.Markdown)
	if err != nil {
		return Locations{}, err
	}
	defer os.Remove(mdTmp)

	if err := os.Rename(jsonTmp, loc.JSON); err != nil {
		return Locations{}, fmt.Errorf("write %s: %w", loc.JSON, err)
	}
	if err := os.Rename(mdTmp, loc.Markdown); err != nil {
		_ = os.Remove(loc.JSON)
		return Locations{}, fmt.Errorf("write %s: %w", loc.Markdown, err)
	}

	return loc, nil
}

func (FileStore) Exists(_ context.Context, base string) (bool, error) {
	for _, path := range []string{base + ".json", base + ".md"} {
		_, err := os.Stat(path)
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return false, fmt.Errorf("check %s: %w", path, err)
		}
	}
	return false, nil
}

func writeTemp(dir string, data []byte) (string, error) {
	f, err := os.CreateTemp(dir, ".prep-brief-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temporary file in %q: %w", dir, err)
	}
	name := f.Name()

	_, err = f.Write(data)
	if err == nil {
		err = f.Sync()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Chmod(name, 0o644)
	}
	if err != nil {
		_ = os.Remove(name)
		return "", fmt.Errorf("write temporary file %q: %w", name, err)
	}

	return name, nil
}
