package budget

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand"
	"sync"
	"testing"
)

// sizeEncoder produces size(w, h, q) zero bytes, making stage outcomes exact.
type sizeEncoder struct {
	size func(w, h, q int) int

	mu    sync.Mutex
	calls []int // qualities, in call order
}

func (e *sizeEncoder) Format() string      { return "fake" }
func (e *sizeEncoder) ContentType() string { return "application/octet-stream" }
func (e *sizeEncoder) Extension() string   { return "bin" }

func (e *sizeEncoder) Encode(img image.Image, quality int) ([]byte, error) {
	e.mu.Lock()
	e.calls = append(e.calls, quality)
	e.mu.Unlock()
	b := img.Bounds()
	return make([]byte, e.size(b.Dx(), b.Dy(), quality)), nil
}

// areaTimesQuality is monotonic in both area and quality.
func areaTimesQuality(w, h, q int) int { return w * h * q / 100 }

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 255 / w),
				G: uint8(y * 255 / h),
				B: 128,
				A: 255,
			})
		}
	}
	return img
}

func noise(w, h int, seed int64) *image.NRGBA {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	rng.Read(img.Pix)
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	return img
}

func encodePNG(t testing.TB, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

func encodeJPEG(t testing.TB, img image.Image, q int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: q}); err != nil {
		t.Fatalf("jpeg encode: %v", err)
	}
	return buf.Bytes()
}

func decodeJPEG(t testing.TB, data []byte) image.Image {
	t.Helper()
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a valid JPEG: %v", err)
	}
	return img
}

// pngClaiming returns a 1x1 PNG whose IHDR declares w x h. Only the header
// is rewritten, so decoding the body would fail; callers rely on the size
// check happening first.
func pngClaiming(t testing.TB, w, h uint32) []byte {
	t.Helper()
	data := encodePNG(t, solid(1, 1, color.NRGBA{A: 255}))
	// signature(8) | length(4) | "IHDR"(4) | width(4) | height(4) | ... | crc(4)
	binary.BigEndian.PutUint32(data[16:20], w)
	binary.BigEndian.PutUint32(data[20:24], h)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))
	return data
}
