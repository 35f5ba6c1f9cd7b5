package artifact

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/snonux/toolbelt/internal/apperr"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), "")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndLookup(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	a, err := s.Save(ctx, "qr", "qrcode_20250101_120000.png", "image/png", strings.NewReader("png"))
	require.NoError(t, err)
	assert.Equal(t, int64(3), a.Size)
	assert.Equal(t, filepath.Join(s.Root(), "qr", "qrcode_20250101_120000.png"), a.Path)

	got, err := s.Lookup(ctx, "qr", "qrcode_20250101_120000.png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", got.MIME)
	assert.Equal(t, a.Path, got.Path)
}

func TestLookupUnknownIsNotFound(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	// present on disk but never indexed
	dir, err := s.Dir("tts")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stray.mp3"), []byte("x"), 0o644))

	_, err = s.Lookup(ctx, "tts", "stray.mp3")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	_, err = s.Lookup(ctx, "other", "stray.mp3")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestLookupRejectsTraversal(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	for _, name := range []string{"../artifacts.db", "a/b.txt", "", ".."} {
		_, err := s.Lookup(ctx, "tts", name)
		assert.True(t, apperr.IsKind(err, apperr.KindInvalid), "name %q", name)
	}
}

func TestLookupMissingFile(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	a, err := s.Save(ctx, "tts", "gone.mp3", "audio/mpeg", strings.NewReader("x"))
	require.NoError(t, err)
	require.NoError(t, os.Remove(a.Path))

	_, err = s.Lookup(ctx, "tts", "gone.mp3")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestRegisterAndList(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	path, err := s.Path("youtube", "clip.mp4")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte("video"), 0o644))

	_, err = s.Register(ctx, "youtube", "clip.mp4", "video/mp4")
	require.NoError(t, err)
	// re-registering updates instead of failing on the unique key
	_, err = s.Register(ctx, "youtube", "clip.mp4", "video/mp4")
	require.NoError(t, err)

	list, err := s.List(ctx, "youtube")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(5), list[0].Size)
}

func TestArchiveApp(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	_, err := s.Save(ctx, "translate", "a_translated_ko.txt", "text/plain", strings.NewReader("안녕"))
	require.NoError(t, err)

	archived, err := s.ArchiveApp(ctx, "translate")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(filepath.Base(archived), "translate-"))
	_, err = os.Stat(filepath.Join(archived, "a_translated_ko.txt"))
	assert.NoError(t, err)

	_, err = os.Stat(filepath.Join(s.Root(), "translate"))
	assert.True(t, os.IsNotExist(err))

	list, err := s.List(ctx, "translate")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestArchiveNonExistent(t *testing.T) {
	if _, err := Archive(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing directory")
	}
}
