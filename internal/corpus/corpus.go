// Package corpus walks image directories and assigns stable image keys.
//
// A labeled corpus is a directory with one non-hidden subdirectory per
// class. Directory entries are sorted before class order and keys are
// assigned, so the same tree always yields the same keys.
package corpus

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	imgfile "visual-bow/internal/image"
)

// ErrNotDir is returned when the corpus root is missing or not a directory.
var ErrNotDir = errors.New("no such directory")

// Item is one corpus image. Key is unique within one scan and increases in
// traversal order.
type Item struct {
	Key   int    `json:"key"`
	Path  string `json:"path"`
	Class string `json:"class,omitempty"`
}

// Labeled is the result of scanning a class-per-directory corpus.
type Labeled struct {
	Root    string
	Classes []string
	Items   []Item
}

// ByClass returns the items of one class in key order.
func (l *Labeled) ByClass(class string) []Item {
	var out []Item
	for _, it := range l.Items {
		if it.Class == class {
			out = append(out, it)
		}
	}
	return out
}

// CheckDir verifies that path is an existing directory.
func CheckDir(path string) error {
	fi, err := os.Stat(path)
	if err != nil || !fi.IsDir() {
		return fmt.Errorf("%s: %w", path, ErrNotDir)
	}
	return nil
}

// ScanLabeled lists every matching image under the class subdirectories of
// root. Hidden entries are ignored. Classes with no images are still
// reported in Classes.
func ScanLabeled(root string, m imgfile.Matcher) (*Labeled, error) {
	if err := CheckDir(root); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read corpus root: %w", err)
	}
	sortEntries(entries)

	l := &Labeled{Root: root}
	for _, e := range entries {
		if !e.IsDir() || hidden(e.Name()) {
			continue
		}
		class := e.Name()
		l.Classes = append(l.Classes, class)
		paths, err := listImages(filepath.Join(root, class), m)
		if err != nil {
			return nil, err
		}
		for _, p := range paths {
			l.Items = append(l.Items, Item{Key: len(l.Items), Path: p, Class: class})
		}
	}
	return l, nil
}

// ScanFlat lists the matching images directly inside dir.
func ScanFlat(dir string, m imgfile.Matcher) ([]Item, error) {
	if err := CheckDir(dir); err != nil {
		return nil, err
	}
	paths, err := listImages(dir, m)
	if err != nil {
		return nil, err
	}
	items := make([]Item, len(paths))
	for i, p := range paths {
		items[i] = Item{Key: i, Path: p}
	}
	return items, nil
}

func listImages(dir string, m imgfile.Matcher) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	sortEntries(entries)
	var out []string
	for _, e := range entries {
		if e.IsDir() || hidden(e.Name()) || !m.Match(e.Name()) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	return out, nil
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

func sortEntries(entries []os.DirEntry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
}
