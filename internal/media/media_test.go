package media

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// 1x1 transparent PNG.
var pngPixel = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01, 0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4,
	0x89, 0x00, 0x00, 0x00, 0x0a, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49, 0x45, 0x4e, 0x44, 0xae,
	0x42, 0x60, 0x82,
}

func TestClassify(t *testing.T) {
	cases := map[string]Kind{
		"image/png":                 KindImage,
		"video/mp4":                 KindVideo,
		"audio/mpeg":                KindAudio,
		"application/pdf":           KindDocument,
		"text/plain; charset=utf-8": KindDocument,
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document": KindDocument,
	}
	for ct, want := range cases {
		got, ok := Classify(ct)
		require.True(t, ok, ct)
		require.Equal(t, want, got, ct)
	}
	for _, ct := range []string{"application/zip", "image/svg+xml", "image/svg+xml; charset=utf-8"} {
		_, ok := Classify(ct)
		require.False(t, ok, ct)
	}
}

func TestSaveStoresImage(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "/uploads/", 1024)
	require.NoError(t, err)

	m, err := store.Save(context.Background(), bytes.NewReader(pngPixel))
	require.NoError(t, err)
	require.Equal(t, KindImage, m.Type)
	require.True(t, strings.HasSuffix(m.Filename, ".png"))
	require.Equal(t, "/uploads/"+m.Filename, m.URL)

	stored, err := os.ReadFile(filepath.Join(dir, m.Filename))
	require.NoError(t, err)
	require.Equal(t, pngPixel, stored)
}

func TestSaveRejectsOversizeAndUnsupported(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "/uploads", 16)
	require.NoError(t, err)

	_, err = store.Save(context.Background(), bytes.NewReader(pngPixel))
	require.ErrorIs(t, err, ErrTooLarge)

	zip := []byte{0x50, 0x4b, 0x03, 0x04, 0x0a, 0x00, 0x00, 0x00}
	_, err = store.Save(context.Background(), bytes.NewReader(zip))
	require.ErrorIs(t, err, ErrUnsupportedType)
}
