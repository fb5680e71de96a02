// Package gitsource keeps local checkouts of git-hosted deck sources.
package gitsource

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"go.uber.org/zap"
)

// Sync clones a git repository if it doesn't exist at the given path,
// or pulls the latest changes if it does.
func Sync(ctx context.Context, repoURL, localPath string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.With(zap.String("url", repoURL), zap.String("path", localPath))

	_, err := os.Stat(localPath)
	switch {
	case os.IsNotExist(err):
		log.Info("git_clone_started")
		_, err := git.PlainCloneContext(ctx, localPath, false, &git.CloneOptions{
			URL:   repoURL,
			Depth: 1,
		})
		if err != nil {
			return fmt.Errorf("failed to clone repo %s: %w", repoURL, err)
		}
		log.Info("git_clone_finished")

	case err == nil:
		repo, err := git.PlainOpen(localPath)
		if err != nil {
			return fmt.Errorf("failed to open existing repo at %s: %w", localPath, err)
		}
		worktree, err := repo.Worktree()
		if err != nil {
			return fmt.Errorf("failed to get worktree for repo at %s: %w", localPath, err)
		}
		err = worktree.PullContext(ctx, &git.PullOptions{RemoteName: "origin"})
		if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
			return fmt.Errorf("failed to pull changes for repo at %s: %w", localPath, err)
		}
		log.Info("git_pull_finished", zap.Bool("up_to_date", err != nil))

	default:
		return fmt.Errorf("error checking path %s: %w", localPath, err)
	}
	return nil
}

// LocalPath maps a repository URL (https or scp-like ssh) to a directory
// under baseDir, e.g. https://github.com/me/decks.git -> baseDir/github.com/me/decks.
func LocalPath(baseDir, repoURL string) (string, error) {
	parsed, err := url.Parse(repoURL)
	if err == nil && (parsed.Scheme == "https" || parsed.Scheme == "http" || parsed.Scheme == "ssh") {
		repoPath := strings.TrimSuffix(strings.Trim(parsed.Path, "/"), ".git")
		if parsed.Hostname() == "" || repoPath == "" {
			return "", fmt.Errorf("could not parse git URL: %s", repoURL)
		}
		return joinRepoPath(baseDir, parsed.Hostname(), repoPath)
	}

	// git@host:owner/repo.git
	userHost, repoPath, ok := strings.Cut(repoURL, ":")
	if !ok || !strings.Contains(userHost, "@") {
		return "", fmt.Errorf("could not parse git URL: %s", repoURL)
	}
	_, host, _ := strings.Cut(userHost, "@")
	repoPath = strings.TrimSuffix(strings.Trim(repoPath, "/"), ".git")
	if host == "" || repoPath == "" {
		return "", fmt.Errorf("could not parse git URL: %s", repoURL)
	}
	return joinRepoPath(baseDir, host, repoPath)
}

// joinRepoPath places repoPath under baseDir/host, rejecting paths that
// climb out of it.
func joinRepoPath(baseDir, host, repoPath string) (string, error) {
	if host == "." || host == ".." || strings.ContainsAny(host, `/\`) {
		return "", fmt.Errorf("invalid git host: %s", host)
	}
	root := filepath.Join(baseDir, host)
	local := filepath.Join(root, filepath.FromSlash(repoPath))
	rel, err := filepath.Rel(root, local)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("git URL path escapes the repos directory: %s", repoPath)
	}
	return local, nil
}

// IsRemote reports whether path names a git repository rather than a
// local directory.
func IsRemote(path string) bool {
	if strings.HasPrefix(path, "https://") || strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "ssh://") {
		return true
	}
	return strings.HasPrefix(path, "git@") || strings.HasSuffix(path, ".git")
}
