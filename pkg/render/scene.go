// Package render draws battle sessions as PNG scenes.
package render

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"

	"pokebattle/pkg/battle"
	"pokebattle/pkg/logging"
	"pokebattle/pkg/utils"
)

const (
	CanvasW = 768
	CanvasH = 432

	spriteSize = 160
	logLines   = 3
)

var (
	sky       = utils.ParseHexColor("#a8d8f0")
	ground    = utils.ParseHexColor("#88c070")
	panel     = utils.ParseHexColor("#f8f8f0e6")
	ink       = utils.ParseHexColor("#202020")
	barTrack  = utils.ParseHexColor("#505050")
	hpGreen   = utils.ParseHexColor("#48c050")
	hpYellow  = utils.ParseHexColor("#f8b800")
	hpRed     = utils.ParseHexColor("#f83800")
	faintTint = color.RGBA{255, 0, 0, 100}
)

// Renderer draws sessions. It is safe for concurrent use.
type Renderer struct {
	images *utils.ImageCache
	font   *opentype.Font

	// Background is an image file drawn instead of the sky and ground
	// gradient, cropped to the canvas.
	Background string
}

// New returns a renderer using the font at fontPath, or the built-in bitmap
// face when fontPath is empty or unreadable.
func New(images *utils.ImageCache, fontPath string) *Renderer {
	r := &Renderer{images: images}
	if fontPath != "" {
		ft, err := utils.ParseFont(fontPath)
		if err != nil {
			logging.Warn("falling back to basic font", logging.Fields{"font": fontPath, "error": err.Error()})
		} else {
			r.font = ft
		}
	}
	return r
}

func (r *Renderer) face(size float64) font.Face {
	if r.font == nil {
		return basicfont.Face7x13
	}
	f, err := utils.NewFace(r.font, size)
	if err != nil {
		return basicfont.Face7x13
	}
	return f
}

// Scene draws s. Sprites that cannot be fetched are replaced by a shadow.
func (r *Renderer) Scene(ctx context.Context, s battle.Session) image.Image {
	dc := gg.NewContext(CanvasW, CanvasH)

	// 1. Background
	r.drawBackground(dc)

	// 2. Combatants: opponent up right facing us, player low left from behind
	if s.Opponent != nil {
		r.drawSprite(ctx, dc, s.Opponent, s.Opponent.SpriteURL, 520, 40)
		r.drawStatus(dc, s.Opponent, 24, 24, s.CurrentTurn == battle.SideOpponent && s.Active)
	}
	if s.Player != nil {
		url := s.Player.BackSpriteURL
		if url == "" {
			url = s.Player.SpriteURL
		}
		r.drawSprite(ctx, dc, s.Player, url, 90, 170)
		r.drawStatus(dc, s.Player, CanvasW-304, 214, s.CurrentTurn == battle.SidePlayer && s.Active)
	}

	// 3. Banner
	dc.SetFontFace(r.face(22))
	dc.SetColor(ink)
	dc.DrawStringAnchored(banner(s), CanvasW/2, 18, 0.5, 0.5)

	// 4. Log
	r.drawLog(dc, s.Log)
	return dc.Image()
}

func (r *Renderer) drawBackground(dc *gg.Context) {
	if r.Background != "" && r.images != nil {
		bg, err := r.images.Load(r.Background)
		if err == nil {
			dc.DrawImage(imaging.Fill(bg, CanvasW, CanvasH, imaging.Center, imaging.Lanczos), 0, 0)
			return
		}
		logging.Warn("background unavailable, using gradient", logging.Fields{"path": r.Background, "error": err.Error()})
	}
	grad := gg.NewLinearGradient(0, 0, 0, CanvasH)
	grad.AddColorStop(0, sky)
	grad.AddColorStop(0.55, sky)
	grad.AddColorStop(0.56, ground)
	grad.AddColorStop(1, ground)
	dc.SetFillStyle(grad)
	dc.DrawRectangle(0, 0, CanvasW, CanvasH)
	dc.Fill()
}

// PNG renders s and encodes it.
func (r *Renderer) PNG(ctx context.Context, s battle.Session) ([]byte, error) {
	b, err := utils.EncodeImageToBuffer(r.Scene(ctx, s))
	if err != nil {
		return nil, fmt.Errorf("encode scene: %w", err)
	}
	return b, nil
}

func banner(s battle.Session) string {
	switch {
	case s.Winner != battle.SideNone && s.WinnerCombatant() != nil:
		return strings.ToUpper(s.WinnerCombatant().Name) + " WINS!"
	case !s.Active:
		return "CHOOSE YOUR POKEMON"
	case s.CurrentTurn == battle.SidePlayer:
		return fmt.Sprintf("TURN %d - YOUR MOVE", s.Turns+1)
	default:
		return fmt.Sprintf("TURN %d - OPPONENT", s.Turns+1)
	}
}

func (r *Renderer) drawSprite(ctx context.Context, dc *gg.Context, c *battle.Combatant, url string, x, y int) {
	utils.DrawShadow(dc, float64(x+spriteSize/2), float64(y+spriteSize-12), spriteSize*0.4, 0.5)
	if url == "" || r.images == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	img, err := r.images.Download(ctx, url)
	if err != nil {
		logging.Warn("sprite unavailable", logging.Fields{"name": c.Name, "url": url, "error": err.Error()})
		return
	}
	img = imaging.Resize(img, spriteSize, 0, imaging.NearestNeighbor)
	if c.Fainted() {
		img = utils.TintImage(img, faintTint)
	}
	dc.DrawImage(img, x, y)
}

// HPColor picks the bar colour for the remaining fraction.
func HPColor(current, max int) color.RGBA {
	if max <= 0 {
		return hpRed
	}
	switch pct := float64(current) / float64(max); {
	case pct > 0.5:
		return hpGreen
	case pct > 0.2:
		return hpYellow
	}
	return hpRed
}

func (r *Renderer) drawStatus(dc *gg.Context, c *battle.Combatant, x, y float64, acting bool) {
	const w, h = 280.0, 72.0
	dc.SetColor(panel)
	dc.DrawRoundedRectangle(x, y, w, h, 10)
	dc.Fill()
	if acting {
		dc.SetColor(hpYellow)
		dc.SetLineWidth(3)
		dc.DrawRoundedRectangle(x, y, w, h, 10)
		dc.Stroke()
	}

	dc.SetFontFace(r.face(18))
	dc.SetColor(ink)
	name := strings.ToUpper(c.Name)
	if c.DefendActive {
		name += " [DEF]"
	}
	dc.DrawString(name, x+12, y+24)

	bx, by, bw := x+12, y+36, w-24
	dc.SetColor(barTrack)
	dc.DrawRoundedRectangle(bx, by, bw, 10, 4)
	dc.Fill()
	if c.MaxHP > 0 && c.CurrentHP > 0 {
		dc.SetColor(HPColor(c.CurrentHP, c.MaxHP))
		dc.DrawRoundedRectangle(bx, by, bw*float64(c.CurrentHP)/float64(c.MaxHP), 10, 4)
		dc.Fill()
	}
	dc.SetColor(ink)
	dc.DrawStringAnchored(fmt.Sprintf("%d/%d", c.CurrentHP, c.MaxHP), x+w-12, y+62, 1, 0)
}

func (r *Renderer) drawLog(dc *gg.Context, log []string) {
	if len(log) == 0 {
		return
	}
	if len(log) > logLines {
		log = log[len(log)-logLines:]
	}
	const h = 76.0
	dc.SetColor(color.RGBA{0, 0, 0, 170})
	dc.DrawRectangle(0, CanvasH-h, CanvasW, h)
	dc.Fill()

	dc.SetFontFace(r.face(16))
	dc.SetColor(color.White)
	for i, line := range log {
		dc.DrawString(line, 16, CanvasH-h+22+float64(i)*20)
	}
}
