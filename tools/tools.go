// Package tools provides the sandboxed read-only filesystem tools used by
// plan execution: directory listing, file reading and text search. All
// three operate against a Workspace resolver that confines every path to a
// single designated root, and all three return their failures as values.
package tools

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

const (
	// MaxOutputLen is the output ceiling shared by ReadFile, SearchText
	// and the renderings that quote tool output.
	MaxOutputLen = 2000

	// maxScanFiles bounds how many files one search may visit.
	maxScanFiles = 120

	// maxMatches bounds the total matched lines of one search.
	maxMatches = 40

	// maxScanFileSize is the per-file ceiling; larger files are skipped
	// without being opened for content scanning.
	maxScanFileSize = 200_000
)

// NoMatches is returned by SearchText when nothing matched, instead of an
// empty string.
const NoMatches = "No matches found."

var (
	ErrNoWorkspace = errors.New("no workspace root available")
)

// skipDirNames are conventionally noisy directories excluded from search
// traversal: version-control metadata, dependency caches, build output and
// editor state.
var skipDirNames = map[string]struct{}{
	".git":         {},
	".svn":         {},
	".hg":          {},
	"node_modules": {},
	"vendor":       {},
	"target":       {},
	"dist":         {},
	"build":        {},
	"out":          {},
	".idea":        {},
	".vscode":      {},
	"__pycache__":  {},
	".next":        {},
}

// Workspace maps a tool path argument to an absolute path confined to a
// designated root. ok is false when no root is configured; resolution must
// never fail any other way.
type Workspace interface {
	Resolve(path string) (abs string, ok bool)
}

// Dir is a Workspace rooted at a single directory. Path arguments are
// cleaned against a virtual root so that ".." can never escape it.
type Dir struct {
	root string
}

// NewDir creates a workspace rooted at root.
func NewDir(root string) (*Dir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve workspace root %q: %w", root, err)
	}
	return &Dir{root: abs}, nil
}

// Root returns the absolute workspace root.
func (d *Dir) Root() string {
	if d == nil {
		return ""
	}
	return d.root
}

func (d *Dir) Resolve(p string) (string, bool) {
	if d == nil || d.root == "" {
		return "", false
	}
	p = strings.TrimSpace(p)
	if p == "" {
		p = "."
	}
	// Clean against a leading slash so relative and absolute arguments
	// alike stay inside the root (the http.Dir confinement trick).
	cleaned := path.Clean("/" + filepath.ToSlash(p))
	return filepath.Join(d.root, filepath.FromSlash(cleaned)), true
}

// Truncate caps s at MaxOutputLen characters, appending a human-readable
// notice carrying the number of characters dropped.
func Truncate(s string) string {
	if len(s) <= MaxOutputLen {
		return s
	}
	return s[:MaxOutputLen] + fmt.Sprintf("...(truncated %d characters)", len(s)-MaxOutputLen)
}

// ListFiles lists the immediate entries of a directory, sorted
// lexicographically, directories suffixed with "/". An empty directory
// yields "(empty directory)".
func ListFiles(ctx context.Context, ws Workspace, arg string) (string, error) {
	abs, ok := resolve(ws, arg)
	if !ok {
		return "", ErrNoWorkspace
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return "", fmt.Errorf("cannot list directory %q: %w", strings.TrimSpace(arg), err)
	}
	if len(entries) == 0 {
		return "(empty directory)", nil
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)

	return strings.Join(names, "\n"), nil
}

// ReadFile reads the full text content of a file, truncated to
// MaxOutputLen. Directories are rejected with an explicit error.
func ReadFile(ctx context.Context, ws Workspace, arg string) (string, error) {
	abs, ok := resolve(ws, arg)
	if !ok {
		return "", ErrNoWorkspace
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("cannot read file %q: %w", strings.TrimSpace(arg), err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%q is a directory, not a file", strings.TrimSpace(arg))
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("cannot read file %q: %w", strings.TrimSpace(arg), err)
	}

	return Truncate(string(data)), nil
}

// SearchText searches file contents under a directory. The argument is
// "pattern | path" split on the first "|"; the path defaults to the
// workspace root. The pattern is compiled as a case-insensitive regular
// expression, falling back to case-insensitive substring matching when it
// does not compile. Traversal is breadth-first, skips noisy directories,
// and is bounded by maxScanFiles, maxMatches and maxScanFileSize.
// Unreadable files and directories are skipped silently.
func SearchText(ctx context.Context, ws Workspace, arg string) (string, error) {
	pattern := arg
	searchPath := "."
	if idx := strings.Index(arg, "|"); idx >= 0 {
		pattern = arg[:idx]
		if p := strings.TrimSpace(arg[idx+1:]); p != "" {
			searchPath = p
		}
	}
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return "", errors.New("empty search pattern")
	}

	root, ok := resolve(ws, ".")
	if !ok {
		return "", ErrNoWorkspace
	}
	start, _ := resolve(ws, searchPath)

	matchLine := newLineMatcher(pattern)

	var b strings.Builder
	filesScanned := 0
	matched := 0

	scanFile := func(file string) {
		if filesScanned >= maxScanFiles || matched >= maxMatches {
			return
		}
		filesScanned++

		info, err := os.Stat(file)
		if err != nil || info.Size() > maxScanFileSize {
			return
		}
		f, err := os.Open(file)
		if err != nil {
			return
		}
		defer f.Close()

		rel, err := filepath.Rel(root, file)
		if err != nil {
			rel = file
		}

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), maxScanFileSize+1)
		lineNo := 0
		for scanner.Scan() && matched < maxMatches {
			lineNo++
			line := scanner.Text()
			if matchLine(line) {
				fmt.Fprintf(&b, "%s:%d: %s\n", filepath.ToSlash(rel), lineNo, strings.TrimSpace(line))
				matched++
			}
		}
	}

	info, err := os.Stat(start)
	if err != nil {
		return "", fmt.Errorf("cannot search %q: %w", searchPath, err)
	}

	if !info.IsDir() {
		scanFile(start)
	} else {
		queue := []string{start}
		for len(queue) > 0 && filesScanned < maxScanFiles && matched < maxMatches {
			if ctx.Err() != nil {
				break
			}
			dir := queue[0]
			queue = queue[1:]

			entries, err := os.ReadDir(dir)
			if err != nil {
				continue
			}
			for _, entry := range entries {
				if matched >= maxMatches || filesScanned >= maxScanFiles {
					break
				}
				name := entry.Name()
				full := filepath.Join(dir, name)
				if entry.IsDir() {
					if _, skip := skipDirNames[name]; !skip {
						queue = append(queue, full)
					}
					continue
				}
				if !entry.Type().IsRegular() {
					continue
				}
				scanFile(full)
			}
		}
	}

	if matched == 0 {
		return NoMatches, nil
	}
	return Truncate(strings.TrimRight(b.String(), "\n")), nil
}

// newLineMatcher compiles pattern case-insensitively, degrading to plain
// substring matching on an invalid pattern. An invalid pattern never fails
// the whole search.
func newLineMatcher(pattern string) func(string) bool {
	if re, err := regexp.Compile("(?i)" + pattern); err == nil {
		return re.MatchString
	}
	lowered := strings.ToLower(pattern)
	return func(line string) bool {
		return strings.Contains(strings.ToLower(line), lowered)
	}
}

func resolve(ws Workspace, p string) (string, bool) {
	if ws == nil {
		return "", false
	}
	return ws.Resolve(p)
}
