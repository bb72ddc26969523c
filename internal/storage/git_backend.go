package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/rs/zerolog/log"
)

// artifactDir is the repository subdirectory artifacts are committed under
const artifactDir = "artifacts"

// Revision is one commit touching an artifact
type Revision struct {
	Hash    string    `json:"hash"`
	Message string    `json:"message"`
	When    time.Time `json:"when"`
}

// GitBackend versions every stored artifact as a commit
type GitBackend struct {
	repo             *git.Repository
	repoPath         string
	author           string
	email            string
	metricsCollector MetricsCollector
}

// InitRepository opens the repository at repoPath, creating it if missing
func InitRepository(repoPath string) (*git.Repository, error) {
	repo, err := git.PlainOpen(repoPath)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("failed to open git repository: %w", err)
	}
	if err := os.MkdirAll(repoPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", repoPath, err)
	}
	repo, err = git.PlainInit(repoPath, false)
	if err != nil {
		return nil, fmt.Errorf("failed to init git repository: %w", err)
	}
	log.Info().Str("path", repoPath).Msg("Initialized artifact repository")
	return repo, nil
}

// NewGitBackend creates a new Git-based storage backend
func NewGitBackend(repoPath, author, email string, metrics MetricsCollector) (*GitBackend, error) {
	repo, err := InitRepository(repoPath)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(repoPath, artifactDir), 0755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}

	return &GitBackend{
		repo:             repo,
		repoPath:         repoPath,
		author:           author,
		email:            email,
		metricsCollector: metrics,
	}, nil
}

// StoreArtifact writes the artifact into the worktree and commits it.
// Storing identical content again returns the current HEAD without a new commit.
func (g *GitBackend) StoreArtifact(ctx context.Context, artifact *Artifact) (string, error) {
	start := time.Now()
	commitHash, err := g.storeArtifactInGit(ctx, artifact)
	recordMetric(g.metricsCollector, "git", "store", artifact.Name, start, len(artifact.Data), err)
	return commitHash, err
}

func (g *GitBackend) GetArtifact(ctx context.Context, name string) (*Artifact, error) {
	start := time.Now()
	artifact, err := readArtifact(filepath.Join(g.repoPath, artifactDir), name)
	size := 0
	if artifact != nil {
		size = len(artifact.Data)
	}
	recordMetric(g.metricsCollector, "git", "get", name, start, size, err)
	return artifact, err
}

func (g *GitBackend) ListArtifacts(ctx context.Context) ([]ArtifactInfo, error) {
	start := time.Now()
	infos, err := listDir(filepath.Join(g.repoPath, artifactDir))
	recordMetric(g.metricsCollector, "git", "list", "", start, 0, err)
	return infos, err
}

// Health checks that the repository is readable. A repository without commits is healthy.
func (g *GitBackend) Health(ctx context.Context) error {
	start := time.Now()
	_, err := g.repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		err = nil
	}
	recordMetric(g.metricsCollector, "git", "health", "", start, 0, err)
	return err
}

// ArtifactHistory lists commits that touched the artifact, newest first
func (g *GitBackend) ArtifactHistory(ctx context.Context, name string) ([]Revision, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	file := path.Join(artifactDir, name)

	iter, err := g.repo.Log(&git.LogOptions{FileName: &file})
	if err != nil {
		return nil, fmt.Errorf("failed to read history of %s: %w", name, err)
	}
	defer iter.Close()

	var revisions []Revision
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		revisions = append(revisions, Revision{
			Hash:    c.Hash.String(),
			Message: strings.TrimSpace(c.Message),
			When:    c.Author.When,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return revisions, nil
}

func (g *GitBackend) storeArtifactInGit(ctx context.Context, artifact *Artifact) (string, error) {
	if err := ValidateName(artifact.Name); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	w, err := g.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to get worktree: %w", err)
	}

	relPath := path.Join(artifactDir, artifact.Name)
	if err := writeFileAtomic(filepath.Join(g.repoPath, artifactDir, artifact.Name), artifact.Data); err != nil {
		return "", err
	}
	if _, err := w.Add(relPath); err != nil {
		return "", fmt.Errorf("failed to add %s: %w", relPath, err)
	}

	status, err := w.Status()
	if err != nil {
		return "", fmt.Errorf("failed to read worktree status: %w", err)
	}
	if st, changed := status[relPath]; !changed || st.Staging == git.Unmodified {
		head, err := g.repo.Head()
		if err != nil {
			return "", fmt.Errorf("artifact %s unchanged but HEAD unreadable: %w", artifact.Name, err)
		}
		log.Debug().Str("artifact", artifact.Name).Msg("Artifact unchanged, skipping commit")
		return head.Hash().String(), nil
	}

	commit, err := w.Commit(commitMessage(artifact), &git.CommitOptions{
		Author: &object.Signature{
			Name:  g.author,
			Email: g.email,
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to commit: %w", err)
	}
	return commit.String(), nil
}

func commitMessage(artifact *Artifact) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Store %s artifact %s\n", artifact.Kind, artifact.Name)
	if len(artifact.Metadata) > 0 {
		keys := make([]string, 0, len(artifact.Metadata))
		for k := range artifact.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("\n")
		for _, k := range keys {
			fmt.Fprintf(&b, "%s: %s\n", k, artifact.Metadata[k])
		}
	}
	return b.String()
}
