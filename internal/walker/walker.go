package walker

import (
	"bufio"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileInfo holds metadata about a discovered note file.
type FileInfo struct {
	Path    string
	RelPath string
	Size    int64
}

// IgnoreFileName lists extra ignore patterns, one per line, in the root.
const IgnoreFileName = ".agentmemignore"

// Options controls which files Walk reports.
type Options struct {
	// Extensions are matched against the file suffix, dot included.
	Extensions []string
	// Ignore holds directory names, relative path prefixes or globs.
	Ignore []string
	// SkipHidden drops dot-files and dot-directories.
	SkipHidden bool
	// SkipNames drops files by exact base name (index snapshots and the like).
	SkipNames []string
	// SkipPaths drops files by path, such as a snapshot written inside root.
	SkipPaths []string
	// MaxSize drops files larger than this many bytes when positive.
	MaxSize int64
}

// Walk traverses the tree rooted at root in lexical order and calls fn for
// every matching file. Unreadable entries are skipped. Walk stops early
// when ctx is done or fn returns an error.
func Walk(ctx context.Context, root string, opts Options, fn func(FileInfo) error) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return err
	}

	ignores := append(append([]string(nil), opts.Ignore...), loadIgnorePatterns(absRoot)...)
	skipNames := make(map[string]bool, len(opts.SkipNames))
	for _, n := range opts.SkipNames {
		skipNames[n] = true
	}
	skipPaths := make(map[string]bool, len(opts.SkipPaths))
	for _, p := range opts.SkipPaths {
		if abs, err := filepath.Abs(p); err == nil {
			skipPaths[abs] = true
		}
	}

	return filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip errors, keep walking
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		name := d.Name()
		if d.IsDir() {
			if path == absRoot {
				return nil
			}
			rel, _ := filepath.Rel(absRoot, path)
			if opts.SkipHidden && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			if matchesIgnore(name, filepath.ToSlash(rel), ignores) {
				return filepath.SkipDir
			}
			return nil
		}

		// Skip symlinks.
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if opts.SkipHidden && strings.HasPrefix(name, ".") {
			return nil
		}
		if skipNames[name] || skipPaths[path] || !hasExtension(name, opts.Extensions) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if opts.MaxSize > 0 && info.Size() > opts.MaxSize {
			return nil
		}

		relPath, _ := filepath.Rel(absRoot, path)
		return fn(FileInfo{
			Path:    path,
			RelPath: filepath.ToSlash(relPath),
			Size:    info.Size(),
		})
	})
}

func hasExtension(name string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	for _, ext := range exts {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// loadIgnorePatterns reads the ignore file from the root, if any.
func loadIgnorePatterns(root string) []string {
	f, err := os.Open(filepath.Join(root, IgnoreFileName))
	if err != nil {
		return nil
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns
}

// matchesIgnore checks if a directory name or relative path matches any ignore pattern.
func matchesIgnore(name, relPath string, patterns []string) bool {
	for _, p := range patterns {
		// Exact directory name match (e.g. "node_modules", ".git").
		if name == p {
			return true
		}
		// Path prefix match (e.g. "archive/2023").
		if strings.HasPrefix(relPath, p+"/") || relPath == p {
			return true
		}
		if matched, _ := filepath.Match(p, relPath); matched {
			return true
		}
		if matched, _ := filepath.Match(p, name); matched {
			return true
		}
	}
	return false
}
