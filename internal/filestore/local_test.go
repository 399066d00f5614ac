package filestore

import (
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"
	"testing/iotest"

	"galerie/internal/models"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const root = "images"

// sequentialIDs returns a generator of predictable, well-formed UUIDs.
func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("00000000-0000-4000-8000-%012x", n)
	}
}

func newMemStore(t *testing.T, opts ...Option) (*LocalImageStore, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	opts = append([]Option{WithFs(fs), WithNameGenerator(sequentialIDs())}, opts...)
	store, err := NewLocalImageStore(root, opts...)
	require.NoError(t, err)
	return store, fs
}

func readAll(t *testing.T, store ImageStore, name string) ([]byte, int64) {
	t.Helper()
	rc, size, err := store.Open(name)
	require.NoError(t, err)
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return data, size
}

func dirNames(t *testing.T, fs afero.Fs) []string {
	t.Helper()
	infos, err := afero.ReadDir(fs, root)
	require.NoError(t, err)
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name())
	}
	return names
}

func TestValidName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		valid bool
	}{
		{"Generated png", "217d4814-58c0-49e1-877f-f84a17323df4.png", true},
		{"Four letter extension", "217d4814-58c0-49e1-877f-f84a17323df4.jpeg", true},
		{"Two letter extension", "217d4814-58c0-49e1-877f-f84a17323df4.ai", true},
		{"Traversal", "../../etc/passwd.png", false},
		{"Traversal with valid suffix", "../217d4814-58c0-49e1-877f-f84a17323df4.png", false},
		{"Trailing path", "217d4814-58c0-49e1-877f-f84a17323df4.png/../../x", false},
		{"Upper case hex", "217D4814-58C0-49E1-877F-F84A17323DF4.png", false},
		{"Upper case extension", "217d4814-58c0-49e1-877f-f84a17323df4.PNG", false},
		{"Extension too long", "217d4814-58c0-49e1-877f-f84a17323df4.woff2", false},
		{"Extension too short", "217d4814-58c0-49e1-877f-f84a17323df4.p", false},
		{"No extension", "217d4814-58c0-49e1-877f-f84a17323df4", false},
		{"Temp file", "upload-123456789", false},
		{"Empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidName(tt.input); got != tt.valid {
				t.Errorf("ValidName(%q) = %v, want %v", tt.input, got, tt.valid)
			}
		})
	}
}

func TestLocalImageStore(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		store, _ := newMemStore(t)
		content := []byte("\x89PNG\r\n\x1a\nnot really a png")

		name, err := store.Save(bytes.NewReader(content), "image/png")
		require.NoError(t, err)
		require.Equal(t, "00000000-0000-4000-8000-000000000001.png", name)
		require.True(t, ValidName(name))

		data, size := readAll(t, store, name)
		require.Equal(t, content, data)
		require.Equal(t, int64(len(content)), size)
	})

	t.Run("ExtensionPerType", func(t *testing.T) {
		store, _ := newMemStore(t)
		for contentType, ext := range map[string]string{
			"image/gif":  ".gif",
			"image/jpeg": ".jpg",
			"image/png":  ".png",
		} {
			name, err := store.Save(strings.NewReader("x"), contentType)
			require.NoError(t, err)
			require.True(t, strings.HasSuffix(name, ext), "name %s for %s", name, contentType)
		}
	})

	t.Run("NamesAreNotReused", func(t *testing.T) {
		store, fs := newMemStore(t)
		first, err := store.Save(strings.NewReader("one"), "image/png")
		require.NoError(t, err)
		second, err := store.Save(strings.NewReader("two"), "image/png")
		require.NoError(t, err)
		require.NotEqual(t, first, second)
		require.ElementsMatch(t, []string{first, second}, dirNames(t, fs))
	})

	t.Run("RepeatedOpen", func(t *testing.T) {
		store, _ := newMemStore(t)
		name, err := store.Save(strings.NewReader("same bytes"), "image/gif")
		require.NoError(t, err)

		first, _ := readAll(t, store, name)
		second, _ := readAll(t, store, name)
		require.Equal(t, first, second)
		require.Equal(t, "same bytes", string(second))
	})

	t.Run("SmallReads", func(t *testing.T) {
		store, fs := newMemStore(t)
		content := make([]byte, 10000)
		_, err := rand.Read(content)
		require.NoError(t, err)

		name, err := store.Save(iotest.OneByteReader(bytes.NewReader(content)), "image/jpeg")
		require.NoError(t, err)

		info, err := fs.Stat(root + "/" + name)
		require.NoError(t, err)
		require.Equal(t, int64(10000), info.Size())

		data, size := readAll(t, store, name)
		require.Equal(t, int64(10000), size)
		require.Equal(t, content, data)
	})

	t.Run("EmptyUpload", func(t *testing.T) {
		store, _ := newMemStore(t)
		name, err := store.Save(bytes.NewReader(nil), "image/png")
		require.NoError(t, err)

		data, size := readAll(t, store, name)
		require.Empty(t, data)
		require.Zero(t, size)
	})

	t.Run("UnsupportedType", func(t *testing.T) {
		store, fs := newMemStore(t)
		_, err := store.Save(strings.NewReader("text"), "text/x-made-up")
		require.ErrorIs(t, err, models.ErrUnsupportedType)
		require.Empty(t, dirNames(t, fs))
	})

	t.Run("ReadFailureLeavesNothing", func(t *testing.T) {
		store, fs := newMemStore(t)
		boom := errors.New("connection reset")
		r := io.MultiReader(strings.NewReader("partial"), iotest.ErrReader(boom))

		_, err := store.Save(r, "image/png")
		require.ErrorIs(t, err, boom)
		require.NotErrorIs(t, err, models.ErrNotFound)
		require.Empty(t, dirNames(t, fs))
	})

	t.Run("TooLarge", func(t *testing.T) {
		store, fs := newMemStore(t, WithMaxBytes(16))
		_, err := store.Save(bytes.NewReader(make([]byte, 17)), "image/png")
		require.ErrorIs(t, err, models.ErrTooLarge)
		require.Empty(t, dirNames(t, fs))

		name, err := store.Save(bytes.NewReader(make([]byte, 16)), "image/png")
		require.NoError(t, err)
		_, size := readAll(t, store, name)
		require.Equal(t, int64(16), size)
	})

	t.Run("InvalidNames", func(t *testing.T) {
		store, fs := newMemStore(t)
		// A file outside root that a traversal would reach.
		require.NoError(t, afero.WriteFile(fs, "/etc/passwd.png", []byte("secret"), 0644))

		for _, name := range []string{
			"../../etc/passwd.png",
			"/etc/passwd.png",
			"passwd.png",
			"",
		} {
			_, _, err := store.Open(name)
			require.ErrorIs(t, err, models.ErrNotFound, "name %q", name)
		}
	})

	t.Run("MissingFile", func(t *testing.T) {
		store, _ := newMemStore(t)
		_, _, err := store.Open("217d4814-58c0-49e1-877f-f84a17323df4.png")
		require.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestLocalImageStoreOnDisk(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalImageStore(dir)
	require.NoError(t, err)

	name, err := store.Save(strings.NewReader("gif89a"), "image/gif")
	require.NoError(t, err)
	require.True(t, ValidName(name), "default generator produced %q", name)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, name, entries[0].Name())

	data, size := readAll(t, store, name)
	require.Equal(t, "gif89a", string(data))
	require.Equal(t, int64(6), size)
}

func TestSaveLeavesOnlyFinalName(t *testing.T) {
	tests := []struct {
		name string
		fs   func() afero.Fs
	}{
		{"MemMapFs", afero.NewMemMapFs},
		{"OsFs", func() afero.Fs { return afero.NewBasePathFs(afero.NewOsFs(), t.TempDir()) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := tt.fs()
			store, err := NewLocalImageStore(root, WithFs(fs), WithNameGenerator(sequentialIDs()))
			require.NoError(t, err)

			name, err := store.Save(strings.NewReader("abc"), "image/png")
			require.NoError(t, err)

			names := dirNames(t, fs)
			require.Equal(t, []string{name}, names)
			for _, n := range names {
				require.False(t, strings.HasPrefix(n, "upload-"), "leftover temp file %s", n)
			}

			data, size := readAll(t, store, name)
			require.Equal(t, "abc", string(data))
			require.Equal(t, int64(3), size)
		})
	}
}
