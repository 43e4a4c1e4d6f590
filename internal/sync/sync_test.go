package sync_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riftforge/assets/internal/digest"
	"github.com/riftforge/assets/internal/persist"
	"github.com/riftforge/assets/internal/sync"
)

// fakeStore mirrors BlobRepo semantics in memory: Get returns nil for
// missing names, Put is a digest-gated upsert.
type fakeStore struct {
	blobs map[string]*persist.Blob
}

func newFakeStore() *fakeStore {
	return &fakeStore{blobs: make(map[string]*persist.Blob)}
}

func (f *fakeStore) seed(name string, data []byte) {
	f.blobs[name] = &persist.Blob{
		Name:      name,
		Data:      append([]byte(nil), data...),
		Digest:    digest.Sum(data),
		Size:      int64(len(data)),
		UpdatedAt: time.Now(),
	}
}

func (f *fakeStore) Get(_ context.Context, name string) (*persist.Blob, error) {
	b, ok := f.blobs[name]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (f *fakeStore) Stat(_ context.Context, name string) (*persist.BlobInfo, error) {
	b, ok := f.blobs[name]
	if !ok {
		return nil, nil
	}
	return &persist.BlobInfo{Name: b.Name, Digest: b.Digest, Size: b.Size, UpdatedAt: b.UpdatedAt}, nil
}

func (f *fakeStore) Put(_ context.Context, name string, data []byte) (bool, error) {
	if b, ok := f.blobs[name]; ok && digest.Equal(b.Digest, digest.Sum(data)) {
		return false, nil
	}
	f.seed(name, data)
	return true, nil
}

func (f *fakeStore) Delete(_ context.Context, name string) (bool, error) {
	if _, ok := f.blobs[name]; !ok {
		return false, nil
	}
	delete(f.blobs, name)
	return true, nil
}

func (f *fakeStore) List(_ context.Context, prefix string) ([]persist.BlobInfo, error) {
	var infos []persist.BlobInfo
	for _, b := range f.blobs {
		if !strings.HasPrefix(b.Name, prefix) {
			continue
		}
		infos = append(infos, persist.BlobInfo{Name: b.Name, Digest: b.Digest, Size: b.Size, UpdatedAt: b.UpdatedAt})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, data := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	}
}

func TestPushUploadsAndSkipsUnchanged(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"data/npc.yaml":    "rows: []\n",
		"scripts/boot.lua": "x = 1\n",
		".hidden":          "nope",
		".git/config":      "nope",
	})

	st := newFakeStore()
	res, err := sync.Push(context.Background(), st, root, sync.Options{}, new(bytes.Buffer))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Pushed, "dotfiles and dot-dirs must not be pushed")
	assert.Len(t, st.blobs, 2)

	b, _ := st.Get(context.Background(), "data/npc.yaml")
	require.NotNil(t, b)
	assert.NoError(t, digest.Verify(b.Data, b.Digest))

	// Second push with nothing changed uploads nothing.
	res, err = sync.Push(context.Background(), st, root, sync.Options{}, new(bytes.Buffer))
	require.NoError(t, err)
	assert.Zero(t, res.Pushed)
	assert.Equal(t, 2, res.Unchanged)
}

func TestPushPrunesStaleBlobs(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]string{"data/keep.yaml": "rows: []\n"})

	st := newFakeStore()
	st.seed("data/stale.yaml", []byte("gone: true\n"))

	res, err := sync.Push(context.Background(), st, root, sync.Options{}, new(bytes.Buffer))
	require.NoError(t, err)
	assert.Zero(t, res.Pruned, "prune must be opt-in")
	assert.Len(t, st.blobs, 2)

	res, err = sync.Push(context.Background(), st, root, sync.Options{Prune: true}, new(bytes.Buffer))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Pruned)
	assert.NotContains(t, st.blobs, "data/stale.yaml")
	assert.Contains(t, st.blobs, "data/keep.yaml")
}

func TestPushPrefixAndDryRun(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"data/npc.yaml": "rows: []\n",
		"raw/icon.bin":  "\x00\x01",
	})

	st := newFakeStore()
	var out bytes.Buffer
	res, err := sync.Push(context.Background(), st, root, sync.Options{Prefix: "data/", DryRun: true}, &out)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Pushed)
	assert.Empty(t, st.blobs, "dry run must not write")
	assert.Contains(t, out.String(), "would push data/npc.yaml")
	assert.NotContains(t, out.String(), "raw/icon.bin")
}

func TestPullWritesVerifiedBlobs(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	st := newFakeStore()
	st.seed("data/npc.yaml", []byte("rows: []\n"))
	st.seed("scripts/boot.lua", []byte("x = 1\n"))

	res, err := sync.Pull(context.Background(), st, root, sync.Options{}, new(bytes.Buffer))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Pulled)

	data, err := os.ReadFile(filepath.Join(root, "data", "npc.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "rows: []\n", string(data))

	// Second pull finds everything current.
	res, err = sync.Pull(context.Background(), st, root, sync.Options{}, new(bytes.Buffer))
	require.NoError(t, err)
	assert.Zero(t, res.Pulled)
	assert.Equal(t, 2, res.Unchanged)
}

func TestPullRejectsCorruptBlob(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	st := newFakeStore()
	st.seed("data/npc.yaml", []byte("rows: []\n"))
	st.blobs["data/npc.yaml"].Data[0] ^= 0xff

	_, err := sync.Pull(context.Background(), st, root, sync.Options{}, new(bytes.Buffer))
	require.ErrorIs(t, err, digest.ErrMismatch)
	assert.NoFileExists(t, filepath.Join(root, "data", "npc.yaml"))
}

func TestPullRejectsEscapingName(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	st := newFakeStore()
	st.seed("../evil.lua", []byte("x = 1\n"))

	_, err := sync.Pull(context.Background(), st, root, sync.Options{}, new(bytes.Buffer))
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(filepath.Dir(root), "evil.lua"))
}

func TestPushPullRoundTrip(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	files := map[string]string{
		"data/npc.yaml":    "rows:\n  - id: 1\n",
		"data/spawn.yaml":  "rows: []\n",
		"scripts/boot.lua": "API = 1\n",
		"text/motd.txt":    "welcome\n",
	}
	writeTree(t, src, files)

	st := newFakeStore()
	_, err := sync.Push(context.Background(), st, src, sync.Options{}, new(bytes.Buffer))
	require.NoError(t, err)

	dst := t.TempDir()
	res, err := sync.Pull(context.Background(), st, dst, sync.Options{}, new(bytes.Buffer))
	require.NoError(t, err)
	require.Equal(t, len(files), res.Pulled)

	for name, want := range files {
		got, err := os.ReadFile(filepath.Join(dst, filepath.FromSlash(name)))
		require.NoError(t, err, name)
		assert.Equal(t, want, string(got), name)
	}
}
