package utils

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square(c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestParseHexColor(t *testing.T) {
	assert.Equal(t, color.RGBA{0x48, 0xc0, 0x50, 0xff}, ParseHexColor("#48c050"))
	assert.Equal(t, color.RGBA{0x10, 0x20, 0x30, 0x40}, ParseHexColor("#10203040"))
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, ParseHexColor("nope"))
}

func TestTintSkipsTransparentPixels(t *testing.T) {
	img := square(color.RGBA{0, 0, 255, 255})
	img.SetRGBA(0, 0, color.RGBA{})

	out := TintImage(img, color.RGBA{255, 0, 0, 255}).(*image.RGBA)
	assert.Equal(t, color.RGBA{255, 0, 0, 255}, out.RGBAAt(1, 1))
	assert.Equal(t, color.RGBA{}, out.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{0, 0, 255, 255}, img.RGBAAt(1, 1), "source untouched")
}

func TestBlendHalf(t *testing.T) {
	got := Blend(color.RGBA{0, 0, 200, 255}, color.RGBA{200, 0, 0, 128})
	assert.InDelta(t, 100, int(got.R), 1)
	assert.InDelta(t, 100, int(got.B), 1)
	assert.EqualValues(t, 255, got.A)
}

func TestDownloadCaches(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, square(color.RGBA{1, 2, 3, 255})))
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ok.png" {
			http.NotFound(w, r)
			return
		}
		hits.Add(1)
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	c := NewImageCache(time.Second)
	for i := 0; i < 2; i++ {
		img, err := c.Download(context.Background(), srv.URL+"/ok.png")
		require.NoError(t, err)
		assert.Equal(t, 4, img.Bounds().Dx())
	}
	assert.EqualValues(t, 1, hits.Load())

	_, err := c.Download(context.Background(), srv.URL+"/missing.png")
	assert.Error(t, err)
}

func TestLoadFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.png")
	b, err := EncodeImageToBuffer(square(color.RGBA{9, 9, 9, 255}))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o644))

	c := NewImageCache(time.Second)
	img, err := c.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, img.Bounds().Dy())

	_, err = c.Load(filepath.Join(t.TempDir(), "none.png"))
	assert.Error(t, err)
}
