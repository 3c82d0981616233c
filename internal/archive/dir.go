package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DirReader serves an archive that has been laid out on disk the way ZIM
// tools export it: an A/ directory of article HTML files and an I/
// directory of media. It exists for local runs and tests; production
// deployments plug in a real archive binding behind the same interface.
//
// Reads are plain os.ReadFile calls, safe for concurrent use.
type DirReader struct {
	root string
}

func OpenDir(root string) (*DirReader, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("open archive dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open archive dir: %s is not a directory", root)
	}
	return &DirReader{root: root}, nil
}

func (d *DirReader) Entries(ctx context.Context) ([]string, error) {
	dir := filepath.Join(d.root, "A")
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	var ids []string
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		name := f.Name()
		if strings.HasSuffix(name, ".html") {
			ids = append(ids, strings.TrimSuffix(name, ".html"))
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (d *DirReader) Article(ctx context.Context, id string) (*Article, error) {
	if err := checkName(id); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(d.root, "A", id+".html"))
	if err != nil {
		return nil, fmt.Errorf("read article %s: %w", id, err)
	}
	return &Article{
		ID:    id,
		Title: strings.ReplaceAll(id, "_", " "),
		HTML:  data,
	}, nil
}

func (d *DirReader) Media(ctx context.Context, path string) ([]byte, error) {
	ns, name, ok := strings.Cut(path, "/")
	if !ok || ns != MediaNamespace {
		return nil, fmt.Errorf("media path must be in the %s namespace: %q", MediaNamespace, path)
	}
	if err := checkName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(d.root, ns, name))
	if err != nil {
		return nil, fmt.Errorf("read media %s: %w", path, err)
	}
	return data, nil
}

func (d *DirReader) Close() error { return nil }

func checkName(name string) error {
	if name == "" || strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return fmt.Errorf("invalid archive entry name: %q", name)
	}
	return nil
}
