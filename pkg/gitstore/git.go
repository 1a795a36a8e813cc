package gitstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const (
	authorName  = "stagehand"
	authorEmail = "stagehand@localhost"
)

// GitStore implements Store over a local git repository.
type GitStore struct {
	repoPath string
	repo     *git.Repository
}

// NewGitStore opens the repository at repoPath, initializing it if it does
// not exist yet.
func NewGitStore(repoPath string) (*GitStore, error) {
	repo, err := git.PlainOpen(repoPath)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		repo, err = git.PlainInit(repoPath, false)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot repository at %s: %w", repoPath, err)
	}

	return &GitStore{repoPath: repoPath, repo: repo}, nil
}

// WriteFiles writes every file to the worktree, stages it and commits.
// Empty commits are allowed: a snapshot of an unchanged environment still
// needs a resolvable commit reference.
func (s *GitStore) WriteFiles(ctx context.Context, files map[string]string, message string) (string, error) {
	worktree, err := s.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to get worktree: %w", err)
	}

	for path, content := range files {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		fullPath := filepath.Join(s.repoPath, filepath.FromSlash(path))

		if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
			return "", fmt.Errorf("failed to create directory for %s: %w", path, err)
		}

		if err := os.WriteFile(fullPath, []byte(content), 0o644); err != nil {
			return "", fmt.Errorf("failed to write file %s: %w", path, err)
		}

		if _, err := worktree.Add(path); err != nil {
			return "", fmt.Errorf("failed to stage file %s: %w", path, err)
		}
	}

	commit, err := worktree.Commit(message, &git.CommitOptions{
		AllowEmptyCommits: true,
		Author: &object.Signature{
			Name:  authorName,
			Email: authorEmail,
			When:  time.Now().UTC(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to commit: %w", err)
	}

	return commit.String(), nil
}

// ReadFileAt returns the content of path at ref.
func (s *GitStore) ReadFileAt(ctx context.Context, path, ref string) (string, error) {
	commit, err := s.commitAt(ref)
	if err != nil {
		return "", err
	}

	file, err := commit.File(path)
	if errors.Is(err, object.ErrFileNotFound) {
		return "", fmt.Errorf("%w: %s at %s", ErrFileNotFound, path, ref)
	}

	if err != nil {
		return "", fmt.Errorf("failed to look up %s at %s: %w", path, ref, err)
	}

	content, err := file.Contents()
	if err != nil {
		return "", fmt.Errorf("failed to read %s at %s: %w", path, ref, err)
	}

	return content, nil
}

// ListFilesUnder returns every .json file under dir at ref, keyed by file
// name without extension. An empty ref reads HEAD.
func (s *GitStore) ListFilesUnder(ctx context.Context, dir, ref string) (map[string]string, error) {
	commit, err := s.commitAt(ref)
	if err != nil {
		return nil, err
	}

	files, err := commit.Files()
	if err != nil {
		return nil, fmt.Errorf("failed to list files at %s: %w", ref, err)
	}

	prefix := strings.TrimSuffix(dir, "/") + "/"
	contents := make(map[string]string)

	err = files.ForEach(func(file *object.File) error {
		if !strings.HasPrefix(file.Name, prefix) || !strings.HasSuffix(file.Name, ".json") {
			return nil
		}

		content, err := file.Contents()
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", file.Name, err)
		}

		name := strings.TrimSuffix(filepath.Base(file.Name), ".json")
		contents[name] = content

		return nil
	})
	if err != nil {
		return nil, err
	}

	return contents, nil
}

// LatestCommitFor returns the most recent commit hash touching path.
func (s *GitStore) LatestCommitFor(ctx context.Context, path string) (string, error) {
	log, err := s.repo.Log(&git.LogOptions{
		FileName: &path,
		Order:    git.LogOrderCommitterTime,
	})
	if err != nil {
		return "", fmt.Errorf("failed to read log for %s: %w", path, err)
	}
	defer log.Close()

	commit, err := log.Next()
	if errors.Is(err, io.EOF) {
		return "", fmt.Errorf("%w: %s", ErrNoCommits, path)
	}

	if err != nil {
		return "", fmt.Errorf("failed to read log for %s: %w", path, err)
	}

	return commit.Hash.String(), nil
}

func (s *GitStore) commitAt(ref string) (*object.Commit, error) {
	if ref == "" {
		ref = "HEAD"
	}

	hash, err := s.repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve ref %s: %w", ref, err)
	}

	commit, err := s.repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("failed to load commit %s: %w", hash, err)
	}

	return commit, nil
}
