package engine

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initGitRepo(t *testing.T, dir string) string {
	t.Helper()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	worktree, err := repo.Worktree()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "release.cue"), []byte("name: \"test\"\n"), 0o644))
	_, err = worktree.Add("release.cue")
	require.NoError(t, err)

	hash, err := worktree.Commit("init", &git.CommitOptions{
		Author: &object.Signature{
			Name:  "Release Bot",
			Email: "release@example.com",
			When:  time.Now(),
		},
	})
	require.NoError(t, err)
	return hash.String()
}

func TestGitRevision(t *testing.T) {
	dir := t.TempDir()
	want := initGitRepo(t, dir)

	got, err := GitRevision(dir)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Subdirectories resolve to the enclosing repository.
	sub := filepath.Join(dir, "manifests")
	require.NoError(t, os.Mkdir(sub, 0o755))
	got, err = GitRevision(sub)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestGitRevision_NotARepository(t *testing.T) {
	got, err := GitRevision(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGitRevision_NoCommits(t *testing.T) {
	dir := t.TempDir()
	_, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	got, err := GitRevision(dir)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRelease_StampsRevision(t *testing.T) {
	dir := t.TempDir()
	want := initGitRepo(t, dir)

	e := newTestEngine(nil, WithRevisionFrom(dir), WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))))
	res, err := e.Release(context.Background(), manifest(target("javascript", 2, true)))
	require.NoError(t, err)
	assert.Equal(t, want, res.Release.Revision)
}
