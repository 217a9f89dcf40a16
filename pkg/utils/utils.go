package utils

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
)

// ImageCache keeps decoded images keyed by file path or URL.
type ImageCache struct {
	client *http.Client

	mu     sync.RWMutex
	images map[string]image.Image
}

func NewImageCache(timeout time.Duration) *ImageCache {
	return &ImageCache{
		client: &http.Client{Timeout: timeout},
		images: make(map[string]image.Image),
	}
}

func (c *ImageCache) get(key string) (image.Image, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	img, ok := c.images[key]
	return img, ok
}

func (c *ImageCache) put(key string, img image.Image) {
	c.mu.Lock()
	c.images[key] = img
	c.mu.Unlock()
}

// Load loads an image from disk or cache
func (c *ImageCache) Load(path string) (image.Image, error) {
	if img, ok := c.get(path); ok {
		return img, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("file not found: %s", path)
	}
	img, err := imaging.Open(path)
	if err != nil {
		return nil, err
	}
	c.put(path, img)
	return img, nil
}

// Download fetches an image from a URL, or returns the cached copy.
func (c *ImageCache) Download(ctx context.Context, url string) (image.Image, error) {
	if img, ok := c.get(url); ok {
		return img, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download %s: %s", url, resp.Status)
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", url, err)
	}
	c.put(url, img)
	return img, nil
}

// ParseFont reads a TTF/OTF file.
func ParseFont(path string) (*opentype.Font, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return opentype.Parse(b)
}

// NewFace sizes a parsed font. Faces are not safe for concurrent use.
func NewFace(ft *opentype.Font, size float64) (font.Face, error) {
	return opentype.NewFace(ft, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// ParseHexColor converts hex string to color.RGBA
func ParseHexColor(s string) color.RGBA {
	c := color.RGBA{0, 0, 0, 255}
	switch len(s) {
	case 7:
		fmt.Sscanf(s, "#%02x%02x%02x", &c.R, &c.G, &c.B)
	case 9:
		fmt.Sscanf(s, "#%02x%02x%02x%02x", &c.R, &c.G, &c.B, &c.A)
	}
	return c
}

// DrawShadow draws a radial shadow
func DrawShadow(dc *gg.Context, x, y, radius float64, alpha float64) {
	grad := gg.NewRadialGradient(x, y, 0, x, y, radius)
	grad.AddColorStop(0, color.RGBA{0, 0, 0, uint8(alpha * 255)})
	grad.AddColorStop(1, color.RGBA{0, 0, 0, 0})
	dc.SetFillStyle(grad)
	dc.DrawCircle(x, y, radius)
	dc.Fill()
}

// TintImage blends tint into every non-transparent pixel.
func TintImage(img image.Image, tint color.RGBA) image.Image {
	bounds := img.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, img, bounds.Min, draw.Src)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			px := dst.RGBAAt(x, y)
			if px.A > 0 {
				dst.SetRGBA(x, y, Blend(px, tint))
			}
		}
	}
	return dst
}

// Blend mixes tint over base by the tint's alpha, keeping base's alpha.
func Blend(base color.RGBA, tint color.RGBA) color.RGBA {
	alpha := float64(tint.A) / 255.0
	mix := func(a, b uint8) uint8 {
		return uint8(float64(a)*(1-alpha) + float64(b)*alpha)
	}
	return color.RGBA{mix(base.R, tint.R), mix(base.G, tint.G), mix(base.B, tint.B), base.A}
}

// EncodeImageToBuffer returns PNG bytes
func EncodeImageToBuffer(img image.Image) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := png.Encode(buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
