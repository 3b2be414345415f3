// Package gitobj provides a pure Go reader for Git's object and pack
// formats: loose objects, pack indices (v1/v2), and delta resolution.
// It supports exactly the object kinds a history-size scan needs —
// commits, trees, and blob sizes — and does not implement porcelain
// operations such as diff, merge, or status.
package gitobj

import (
	"container/heap"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Repository represents a read-only handle onto a Git object store:
// loose objects, pack files, and refs. It never mutates the repository
// it points at.
type Repository struct {
	gitDir  string
	workDir string

	packIndices []*PackIndex

	head         Hash
	headRef      string
	headDetached bool

	mailmap *Mailmap
}

// OpenRepository opens a Git repository starting from path, which can be
// the working directory, the .git directory, or any directory inside the
// working tree (the search walks upward from path to find .git). It
// loads pack indices and resolves HEAD; it does not eagerly load commits
// or trees — those are read on demand via ReadCommit/ReadTree.
func OpenRepository(path string) (*Repository, error) {
	gitDir, workDir, err := findGitDirectory(path)
	if err != nil {
		return nil, err
	}
	if err := validateGitDirectory(gitDir); err != nil {
		return nil, err
	}

	repo := &Repository{
		gitDir:      gitDir,
		workDir:     workDir,
		packIndices: make([]*PackIndex, 0),
	}

	if err := repo.loadPackIndices(); err != nil {
		return nil, fmt.Errorf("failed to load pack indices: %w", err)
	}
	if err := repo.loadHEAD(); err != nil {
		return nil, fmt.Errorf("failed to load HEAD: %w", err)
	}

	mailmap, err := loadMailmap(repo.workDir, repo.IsBare())
	if err != nil {
		return nil, fmt.Errorf("failed to load mailmap: %w", err)
	}
	repo.mailmap = mailmap

	return repo, nil
}

// GitDir returns the path to the repository's .git directory.
func (r *Repository) GitDir() string { return r.gitDir }

// WorkDir returns the path to the repository's working directory.
func (r *Repository) WorkDir() string { return r.workDir }

// IsBare reports whether the repository is a bare repository.
func (r *Repository) IsBare() bool { return r.gitDir == r.workDir }

// Head returns the hash of the current HEAD commit, or empty if the
// repository has no commits yet.
func (r *Repository) Head() Hash { return r.head }

// HeadRef returns the symbolic ref HEAD points at (e.g. "refs/heads/main"),
// or empty string if HEAD is detached.
func (r *Repository) HeadRef() string { return r.headRef }

// HeadDetached reports whether HEAD points directly at a commit rather
// than through a branch ref.
func (r *Repository) HeadDetached() bool { return r.headDetached }

// AncestorWalk returns every commit reachable from head by following
// parent links, newest-author-date first, each visited exactly once.
// A commit that fails to decode is skipped silently along with its
// ancestry (per commit-decode error policy, the caller is responsible for
// noticing the corresponding commit never became "scanned" and retrying
// it on a later run).
func (r *Repository) AncestorWalk(head Hash) ([]*Commit, error) {
	if head == "" {
		return nil, nil
	}

	headCommit, err := r.ReadCommit(head)
	if err != nil {
		return nil, fmt.Errorf("failed to read HEAD commit: %w", err)
	}

	visited := make(map[Hash]bool)
	h := &commitHeap{}
	heap.Init(h)
	heap.Push(h, headCommit)
	visited[headCommit.ID] = true

	var result []*Commit
	for h.Len() > 0 {
		c := heap.Pop(h).(*Commit) //nolint:errcheck // heap only stores *Commit; assertion always succeeds
		result = append(result, c)

		for _, parentHash := range c.Parents {
			if visited[parentHash] {
				continue
			}
			visited[parentHash] = true
			parent, err := r.ReadCommit(parentHash)
			if err != nil {
				// Unreadable commit: skip it and its ancestry silently.
				continue
			}
			heap.Push(h, parent)
		}
	}

	return result, nil
}

// commitHeap is a max-heap of commits sorted by author date (newest first).
type commitHeap []*Commit

func (h commitHeap) Len() int            { return len(h) }
func (h commitHeap) Less(i, j int) bool  { return h[i].Author.When.After(h[j].Author.When) }
func (h commitHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *commitHeap) Push(x any)         { *h = append(*h, x.(*Commit)) } //nolint:errcheck // heap only stores *Commit; assertion always succeeds
func (h *commitHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// findGitDirectory walks up from startPath to locate the .git directory.
func findGitDirectory(startPath string) (gitDir string, workDir string, err error) {
	absPath, err := filepath.Abs(startPath)
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve path: %w", err)
	}

	if filepath.Base(absPath) == ".git" {
		info, err := os.Stat(absPath)
		if err == nil && info.IsDir() {
			return absPath, filepath.Dir(absPath), nil
		}
	}

	if isBareRepository(absPath) {
		return absPath, absPath, nil
	}

	currentPath := absPath
	for {
		gitPath := filepath.Join(currentPath, ".git")

		info, err := os.Stat(gitPath)
		if err == nil {
			if info.IsDir() {
				return gitPath, currentPath, nil
			}
			return handleGitFile(gitPath, currentPath)
		}

		parentPath := filepath.Dir(currentPath)
		if parentPath == currentPath {
			return "", "", fmt.Errorf("not a git repository (or any parent up to mount point): %s", startPath)
		}
		currentPath = parentPath
	}
}

// handleGitFile handles .git files (worktrees, submodules) with format "gitdir: <path>".
func handleGitFile(gitFilePath string, workDir string) (string, string, error) {
	//nolint:gosec // G304: .git file path is controlled by repository location
	content, err := os.ReadFile(gitFilePath)
	if err != nil {
		return "", "", fmt.Errorf("failed to read .git file: %w", err)
	}

	line := strings.TrimSpace(string(content))
	if !strings.HasPrefix(line, "gitdir: ") {
		return "", "", fmt.Errorf("invalid .git file format: %s", gitFilePath)
	}

	gitDir := strings.TrimPrefix(line, "gitdir: ")
	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Join(filepath.Dir(gitFilePath), gitDir)
	}
	gitDir = filepath.Clean(gitDir)

	if _, err := os.Stat(gitDir); err != nil {
		return "", "", fmt.Errorf("gitdir points to non-existent directory: %s", gitDir)
	}

	return gitDir, workDir, nil
}

// validateGitDirectory checks that gitDir exists, is a directory, and contains
// the expected Git internals (objects, refs, HEAD).
func validateGitDirectory(gitDir string) error {
	info, err := os.Stat(gitDir)
	if err != nil {
		return fmt.Errorf("git directory does not exist: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("git path is not a directory: %s", gitDir)
	}

	requiredPaths := []string{"objects", "refs", "HEAD"}
	for _, required := range requiredPaths {
		path := filepath.Join(gitDir, required)
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("invalid git repository, missing: %s", required)
		}
	}

	return nil
}

// isBareRepository checks whether path looks like a bare Git repository.
// A bare repo is a directory containing objects/, refs/, and HEAD but no .git subdirectory.
func isBareRepository(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return false
	}
	if _, err := os.Stat(filepath.Join(path, ".git")); err == nil {
		return false
	}
	for _, required := range []string{"objects", "refs", "HEAD"} {
		if _, err := os.Stat(filepath.Join(path, required)); err != nil {
			return false
		}
	}
	return true
}
