package pipeline

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnyUserName/imgfit/internal/budget"
	"github.com/AnyUserName/imgfit/internal/hasher"
)

func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: 128, A: 255})
		}
	}
	return img
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func testConfig(in, out string) Config {
	return Config{
		InputDir:    in,
		OutputDir:   out,
		ProfileName: "test",
		TargetKB:    50,
		Options:     budget.DefaultOptions(),
		Workers:     2,
	}
}

func TestScanImages(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "b.png"), gradient(4, 4))
	writePNG(t, filepath.Join(dir, "cards", "a.PNG"), gradient(4, 4))
	writePNG(t, filepath.Join(dir, ".cache", "hidden.png"), gradient(4, 4))
	writePNG(t, filepath.Join(dir, "out", "prev.png"), gradient(4, 4))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	sources, err := ScanImages(dir, filepath.Join(dir, "out"))
	require.NoError(t, err)
	require.Len(t, sources, 2)

	assert.Equal(t, "b", sources[0].Key)
	assert.Equal(t, "cards/a", sources[1].Key)
	assert.Equal(t, "cards/a.PNG", sources[1].RelPath)
	assert.Positive(t, sources[0].Size)
}

func TestScanImages_SameStemDifferentExtension(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "photo.png"), gradient(4, 4))
	writePNG(t, filepath.Join(dir, "photo.jpg"), gradient(4, 4))
	writePNG(t, filepath.Join(dir, "other.png"), gradient(4, 4))

	sources, err := ScanImages(dir, "")
	require.NoError(t, err)
	require.Len(t, sources, 3)

	assert.Equal(t, "other", sources[0].Key)
	assert.Equal(t, "photo.jpg", sources[1].Key)
	assert.Equal(t, "photo.png", sources[2].Key)
}

func TestScanImages_UnresolvableCollision(t *testing.T) {
	dir := t.TempDir()
	// "photo.png.jpg" has the stem "photo.png", which is also the fallback
	// key for "photo.png" once it collides with "photo.jpg".
	writePNG(t, filepath.Join(dir, "photo.png"), gradient(4, 4))
	writePNG(t, filepath.Join(dir, "photo.jpg"), gradient(4, 4))
	writePNG(t, filepath.Join(dir, "photo.png.jpg"), gradient(4, 4))

	_, err := ScanImages(dir, "")
	assert.ErrorContains(t, err, "same key")
}

func TestRun_SameStemKeepsBothEntries(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	writePNG(t, filepath.Join(in, "photo.png"), gradient(64, 48))
	writePNG(t, filepath.Join(in, "photo.jpg"), gradient(48, 64))

	m, err := New(testConfig(in, out)).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, m.Entries, 2)
	assert.Equal(t, 2, m.Stats.TotalOutputs)

	paths := map[string]bool{}
	for _, key := range []string{"photo.png", "photo.jpg"} {
		e, ok := m.Entries[key]
		require.True(t, ok, "entry %s missing", key)
		require.NotNil(t, e.Output)
		paths[e.Output.Path] = true
		_, err := os.Stat(filepath.Join(out, filepath.FromSlash(e.Output.Path)))
		assert.NoError(t, err)
	}
	assert.Len(t, paths, 2)

	written, err := filepath.Glob(filepath.Join(out, "*.jpg"))
	require.NoError(t, err)
	assert.Len(t, written, 2)
}

func TestRun_WritesOutputsAndManifest(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	writePNG(t, filepath.Join(in, "banner.png"), gradient(1600, 900))
	writePNG(t, filepath.Join(in, "cards", "card.png"), gradient(200, 150))

	m, err := New(testConfig(in, out)).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, m.Entries, 2)
	assert.Equal(t, 50, m.TargetKB)
	assert.Equal(t, 2, m.BuildInfo.Workers)
	assert.Equal(t, "binary", m.BuildInfo.Search)
	assert.Equal(t, 2, m.Stats.TotalOutputs)

	banner := m.Entries["banner"]
	require.NotNil(t, banner.Output)
	assert.Equal(t, 1600, banner.Original.Width)
	assert.Equal(t, "png", banner.Original.Format)
	assert.Equal(t, 1024, banner.Output.Width)
	assert.Equal(t, 576, banner.Output.Height)
	assert.LessOrEqual(t, banner.Output.Size, int64(50*1024))
	assert.True(t, banner.Output.WithinBudget)

	data, err := os.ReadFile(filepath.Join(out, filepath.FromSlash(banner.Output.Path)))
	require.NoError(t, err)
	assert.Equal(t, banner.Output.Hash, hasher.ContentHash(data, 16))
	_, err = jpeg.Decode(bytes.NewReader(data))
	assert.NoError(t, err)

	card := m.Entries["cards/card"]
	require.NotNil(t, card.Output)
	assert.Regexp(t, `^cards/card\.200\.150\.[0-9a-f]{8}\.jpg$`, card.Output.Path)
}

func TestRun_NoRegressSizeSkips(t *testing.T) {
	in := t.TempDir()
	// A tiny solid PNG compresses far better than any JPEG of it.
	writePNG(t, filepath.Join(in, "dot.png"), image.NewNRGBA(image.Rect(0, 0, 8, 8)))

	cfg := testConfig(in, t.TempDir())
	cfg.NoRegressSize = true
	m, err := New(cfg).Run(context.Background())
	require.NoError(t, err)

	e := m.Entries["dot"]
	assert.Nil(t, e.Output)
	assert.NotEmpty(t, e.Skipped)
	assert.Equal(t, 1, m.Stats.SkippedRegress)
}

func TestRun_PartialFailure(t *testing.T) {
	in := t.TempDir()
	writePNG(t, filepath.Join(in, "good.png"), gradient(64, 64))
	require.NoError(t, os.WriteFile(filepath.Join(in, "bad.jpg"), []byte("not a jpeg"), 0o644))

	m, err := New(testConfig(in, t.TempDir())).Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, m.Entries, "good")
	assert.NotContains(t, m.Entries, "bad")
}

func TestRun_AllFail(t *testing.T) {
	in := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(in, "bad.png"), []byte{0x89, 'P', 'N', 'G'}, 0o644))

	_, err := New(testConfig(in, t.TempDir())).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, budget.ErrDecode)
}

func TestRun_EmptyDir(t *testing.T) {
	_, err := New(testConfig(t.TempDir(), t.TempDir())).Run(context.Background())
	assert.Error(t, err)
}

func TestRun_InvalidTarget(t *testing.T) {
	cfg := testConfig(t.TempDir(), t.TempDir())
	cfg.TargetKB = 0
	_, err := New(cfg).Run(context.Background())
	assert.ErrorIs(t, err, budget.ErrInvalidParameter)
}
