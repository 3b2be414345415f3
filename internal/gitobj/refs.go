package gitobj

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// loadHEAD reads .git/HEAD and resolves it to a commit hash, following a
// symbolic ref through loose ref files or packed-refs if necessary. A
// symbolic HEAD pointing at a branch with no commits yet resolves to an
// empty hash, which is not an error — it is a freshly initialized
// repository.
func (r *Repository) loadHEAD() error {
	headPath := filepath.Join(r.gitDir, "HEAD")
	//nolint:gosec // G304: HEAD path is controlled by git repository structure
	content, err := os.ReadFile(headPath)
	if err != nil {
		return fmt.Errorf("failed to read HEAD: %w", err)
	}

	line := strings.TrimSpace(string(content))

	if strings.HasPrefix(line, "ref: ") {
		r.headRef = strings.TrimPrefix(line, "ref: ")
		r.headDetached = false

		hash, err := r.resolveRefName(r.headRef)
		if err != nil {
			r.head = "" // New repository with no commits, this is ok.
			return nil
		}
		r.head = hash
		return nil
	}

	r.headDetached = true
	r.headRef = ""

	hash, err := NewHash(line)
	if err != nil {
		return fmt.Errorf("invalid HEAD: %w", err)
	}
	r.head = hash
	return nil
}

// resolveRefName resolves a ref name (e.g. "refs/heads/main") to a commit
// hash, checking the loose ref file first and falling back to packed-refs.
func (r *Repository) resolveRefName(refName string) (Hash, error) {
	loosePath := filepath.Join(r.gitDir, refName)
	if hash, err := r.resolveRef(loosePath); err == nil {
		return hash, nil
	}
	return r.resolvePackedRef(refName)
}

// resolveRef reads a single ref file and returns its hash, following
// symbolic refs recursively.
func (r *Repository) resolveRef(path string) (Hash, error) {
	//nolint:gosec // G304: Ref paths are controlled by git repository structure
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	line := strings.TrimSpace(string(content))

	if strings.HasPrefix(line, "ref: ") {
		targetRef := strings.TrimPrefix(line, "ref: ")
		return r.resolveRefName(targetRef)
	}

	hash, err := NewHash(line)
	if err != nil {
		return "", fmt.Errorf("invalid hash in ref file %s: %w", path, err)
	}
	return hash, nil
}

// resolvePackedRef looks up refName in .git/packed-refs.
func (r *Repository) resolvePackedRef(refName string) (Hash, error) {
	packedRefsFile := filepath.Join(r.gitDir, "packed-refs")

	//nolint:gosec // G304: Packed-refs path is controlled by git repository structure
	file, err := os.Open(packedRefsFile)
	if err != nil {
		return "", err
	}
	defer file.Close() //nolint:errcheck

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "^") {
			continue
		}

		parts := strings.Fields(line)
		if len(parts) != 2 || parts[1] != refName {
			continue
		}

		return NewHash(parts[0])
	}

	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("ref not found: %s", refName)
}
