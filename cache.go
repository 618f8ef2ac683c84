package main

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/glycerine/blake2b"
	"github.com/gofrs/flock"
	"github.com/nikandfor/errors"
	"github.com/nikandfor/tlog"
)

const (
	ARTIFACT_DIR  = "artifacts"
	ARTIFACT_FILE = "out"
	HASH_FILE     = ".hash"

	cacheKeep   = 5
	cacheMinAge = 7 * 24 * 60 * 60
)

// defaultCache returns TAPEC_CACHE, or the per OS user cache directory when
// it is not set.
func defaultCache() string {
	if env := os.Getenv("TAPEC_CACHE"); env != "" {
		return env
	}

	homeDir, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "windows":
		if localAppData := os.Getenv("LocalAppData"); localAppData != "" {
			return filepath.Join(localAppData, "tapec")
		}
		return filepath.Join(homeDir, "AppData", "Local", "tapec")
	case "darwin":
		return filepath.Join(homeDir, "Library", "Caches", "tapec")
	}
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "tapec")
	}
	return filepath.Join(homeDir, ".cache", "tapec")
}

// isHashDir returns true if name is an 8-char hex string (matches artifactKey).
func isHashDir(name string) bool {
	if len(name) != 8 {
		return false
	}
	_, err := hex.DecodeString(name)
	return err == nil
}

// artifactKey hashes every input that changes an artifact. The short hash
// names the directory and the full hash detects collisions.
func artifactKey(parts ...[]byte) (shortHash, fullHash string) {
	h, err := blake2b.New(nil)
	if err != nil {
		panic(err)
	}
	var size [8]byte
	for _, p := range parts {
		n := len(p)
		for i := range size {
			size[i] = byte(n >> (8 * i))
		}
		h.Write(size[:])
		h.Write(p)
	}
	fullHash = hex.EncodeToString(h.Sum(nil))
	return fullHash[:8], fullHash
}

// cleanupOldArtifacts removes artifact directories older than minAge, keeping
// at least keep of the most recent ones.
func cleanupOldArtifacts(dir string, keep int, minAge int64) {
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) <= keep {
		return
	}

	type dirInfo struct {
		name  string
		mtime int64
	}
	var dirs []dirInfo
	for _, e := range entries {
		if e.IsDir() && isHashDir(e.Name()) {
			if info, err := e.Info(); err == nil {
				dirs = append(dirs, dirInfo{e.Name(), info.ModTime().Unix()})
			}
		}
	}
	if len(dirs) <= keep {
		return
	}

	cutoff := time.Now().Unix() - minAge
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].mtime < dirs[j].mtime })
	for i := 0; i < len(dirs)-keep; i++ {
		if dirs[i].mtime < cutoff {
			path := filepath.Join(dir, dirs[i].name)
			if err := os.RemoveAll(path); err != nil {
				tlog.Printw("remove old artifact", "path", path, "err", err)
				continue
			}
			tlog.V("cache").Printw("pruned", "path", path)
		}
	}
}

// cachedBuild returns the artifact stored under key, calling build and
// storing its result on a miss. A failed build stores nothing. The lock
// makes concurrent processes see either a complete artifact or none.
func cachedBuild(cacheDir string, key [][]byte, build func() ([]byte, error)) (data []byte, hit bool, err error) {
	dir := filepath.Join(cacheDir, ARTIFACT_DIR)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, false, errors.Wrap(err, "create artifact dir")
	}

	lock := flock.New(filepath.Join(dir, ".lock"))
	if err := lock.Lock(); err != nil {
		return nil, false, errors.Wrap(err, "acquire cache lock")
	}
	defer lock.Unlock()

	shortHash, fullHash := artifactKey(key...)
	entry := filepath.Join(dir, shortHash)
	hashFile := filepath.Join(entry, HASH_FILE)
	outFile := filepath.Join(entry, ARTIFACT_FILE)

	if stored, err := os.ReadFile(hashFile); err == nil {
		if string(stored) == fullHash {
			if data, err := os.ReadFile(outFile); err == nil {
				tlog.V("cache").Printw("hit", "entry", entry)
				now := time.Now()
				_ = os.Chtimes(entry, now, now)
				return data, true, nil
			}
		}
		tlog.V("cache").Printw("stale entry", "entry", entry)
		os.RemoveAll(entry)
	}

	cleanupOldArtifacts(dir, cacheKeep, cacheMinAge)

	data, err = build()
	if err != nil {
		return nil, false, err
	}
	if err := os.MkdirAll(entry, 0755); err != nil {
		return nil, false, errors.Wrap(err, "create artifact entry")
	}
	if err := os.WriteFile(outFile, data, 0644); err != nil {
		return nil, false, errors.Wrap(err, "write artifact")
	}
	// the hash file is the completion marker
	if err := os.WriteFile(hashFile, []byte(fullHash), 0644); err != nil {
		return nil, false, errors.Wrap(err, "write hash file")
	}
	tlog.V("cache").Printw("stored", "entry", entry, "bytes", len(data))
	return data, false, nil
}
