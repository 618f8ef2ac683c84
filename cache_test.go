package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultCacheEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TAPEC_CACHE", dir)
	require.Equal(t, dir, defaultCache())

	t.Setenv("TAPEC_CACHE", "")
	require.Contains(t, defaultCache(), "tapec")
}

func TestArtifactKey(t *testing.T) {
	s1, f1 := artifactKey([]byte("llvm"), []byte("x86_64"))
	s2, f2 := artifactKey([]byte("llvm"), []byte("x86_64"))
	require.Equal(t, s1, s2)
	require.Equal(t, f1, f2)
	require.True(t, isHashDir(s1))
	require.Len(t, f1, 128)

	// parts are length prefixed
	s3, _ := artifactKey([]byte("ab"), []byte("c"))
	s4, _ := artifactKey([]byte("a"), []byte("bc"))
	require.NotEqual(t, s3, s4)
}

func TestIsHashDir(t *testing.T) {
	require.True(t, isHashDir("0123abcd"))
	require.False(t, isHashDir("0123abc"))
	require.False(t, isHashDir("0123abcg"))
}

func TestCachedBuild(t *testing.T) {
	dir := t.TempDir()
	key := [][]byte{[]byte("bytecode"), []byte("int main() { return 0; }")}
	calls := 0
	build := func() ([]byte, error) {
		calls++
		return []byte("artifact"), nil
	}

	data, hit, err := cachedBuild(dir, key, build)
	require.NoError(t, err)
	require.False(t, hit)
	require.Equal(t, "artifact", string(data))

	data, hit, err = cachedBuild(dir, key, build)
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, "artifact", string(data))
	require.Equal(t, 1, calls)

	short, full := artifactKey(key...)
	stored, err := os.ReadFile(filepath.Join(dir, ARTIFACT_DIR, short, HASH_FILE))
	require.NoError(t, err)
	require.Equal(t, full, string(stored))
}

func TestCachedBuildFailure(t *testing.T) {
	dir := t.TempDir()
	key := [][]byte{[]byte("broken")}
	boom := errors.New("boom")

	_, _, err := cachedBuild(dir, key, func() ([]byte, error) { return nil, boom })
	require.ErrorIs(t, err, boom)

	short, _ := artifactKey(key...)
	_, err = os.Stat(filepath.Join(dir, ARTIFACT_DIR, short))
	require.True(t, os.IsNotExist(err))
}

func TestCachedBuildStaleHash(t *testing.T) {
	dir := t.TempDir()
	key := [][]byte{[]byte("k")}
	short, _ := artifactKey(key...)
	entry := filepath.Join(dir, ARTIFACT_DIR, short)
	require.NoError(t, os.MkdirAll(entry, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(entry, HASH_FILE), []byte("collision"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(entry, ARTIFACT_FILE), []byte("old"), 0644))

	data, hit, err := cachedBuild(dir, key, func() ([]byte, error) { return []byte("new"), nil })
	require.NoError(t, err)
	require.False(t, hit)
	require.Equal(t, "new", string(data))
}

func TestCleanupOldArtifacts(t *testing.T) {
	dir := t.TempDir()
	old := time.Now().Add(-14 * 24 * time.Hour)
	names := []string{"00000000", "00000001", "00000002", "00000003", "00000004", "00000005", "00000006"}
	for i, name := range names {
		path := filepath.Join(dir, name)
		require.NoError(t, os.Mkdir(path, 0755))
		if i < 3 {
			mtime := old.Add(time.Duration(i) * time.Hour)
			require.NoError(t, os.Chtimes(path, mtime, mtime))
		}
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "keepme"), 0755))

	cleanupOldArtifacts(dir, cacheKeep, cacheMinAge)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var left []string
	for _, e := range entries {
		left = append(left, e.Name())
	}
	// the two oldest go; the third old one is kept to leave five
	require.ElementsMatch(t, []string{"00000002", "00000003", "00000004", "00000005", "00000006", "keepme"}, left)
}
