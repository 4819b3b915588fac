// 把游戏快照画成图片
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/hoshinonyaruko/snake-in-browser/memimg"
	"github.com/hoshinonyaruko/snake-in-browser/structs"
)

var (
	gapColor   = color.RGBA{255, 255, 255, 255}
	emptyColor = color.RGBA{211, 211, 211, 255} // lightgray
	snakeColor = color.RGBA{0, 128, 0, 255}     // green
	foodColor  = color.RGBA{255, 0, 0, 255}     // red
)

// 贴图名称，放在皮肤目录下即可替换纯色
const (
	spriteHead = "head"
	spriteBody = "body"
	spriteFood = "food"
)

const overBlurSigma = 3

// Renderer draws snapshots. Backgrounds are cached per grid and block size.
type Renderer struct {
	BlockSize int
	Sprites   *memimg.Store // 可以为 nil

	backgrounds sync.Map
}

func New(blockSize int, sprites *memimg.Store) *Renderer {
	return &Renderer{BlockSize: blockSize, Sprites: sprites}
}

// Render draws snap at BlockSize pixels per cell.
func (r *Renderer) Render(snap structs.Snapshot) image.Image {
	side := snap.Size * r.BlockSize
	dc := gg.NewContext(side, side)
	dc.DrawImage(r.background(snap.Size), 0, 0)

	for index, tag := range snap.Cells {
		switch tag {
		case structs.SnakeBody:
			name := spriteBody
			if index == snap.Head {
				name = spriteHead
			}
			r.drawCell(dc, snap.Size, index, name, snakeColor)
		case structs.Food:
			r.drawCell(dc, snap.Size, index, spriteFood, foodColor)
		}
	}

	switch snap.Status {
	case structs.Over:
		// 游戏结束时模糊整个地图再写字
		blurred := imaging.Blur(dc.Image(), overBlurSigma)
		dc = gg.NewContextForImage(blurred)
		drawLabel(dc, fmt.Sprintf("GAME OVER  score %d", snap.Score))
	case structs.Paused:
		drawLabel(dc, "PAUSED")
	}
	return dc.Image()
}

// EncodePNG renders snap and writes it as PNG.
func (r *Renderer) EncodePNG(w io.Writer, snap structs.Snapshot) error {
	return png.Encode(w, r.Render(snap))
}

func (r *Renderer) background(size int) image.Image {
	cacheKey := fmt.Sprintf("%d_%d", size, r.BlockSize)
	if cached, ok := r.backgrounds.Load(cacheKey); ok {
		return cached.(image.Image)
	}

	side := size * r.BlockSize
	dc := gg.NewContext(side, side)
	dc.SetColor(gapColor)
	dc.Clear()
	dc.SetColor(emptyColor)
	for index := 0; index < size*size; index++ {
		x, y := r.cellOrigin(size, index)
		r.cellRect(dc, x, y)
	}
	dc.Fill()

	img := dc.Image()
	r.backgrounds.Store(cacheKey, img)
	return img
}

func (r *Renderer) drawCell(dc *gg.Context, size, index int, sprite string, fallback color.Color) {
	x, y := r.cellOrigin(size, index)
	if r.Sprites != nil {
		if img, found := r.Sprites.Get(sprite); found {
			dc.DrawImage(img, x, y)
			return
		}
	}
	dc.SetColor(fallback)
	r.cellRect(dc, x, y)
	dc.Fill()
}

func (r *Renderer) cellOrigin(size, index int) (int, int) {
	row, col := index/size, index%size
	return col * r.BlockSize, row * r.BlockSize
}

// cellRect adds a cell rectangle with a one pixel gap on every side.
func (r *Renderer) cellRect(dc *gg.Context, x, y int) {
	gap := 1.0
	if r.BlockSize < 4 {
		gap = 0
	}
	bs := float64(r.BlockSize)
	dc.DrawRectangle(float64(x)+gap, float64(y)+gap, bs-2*gap, bs-2*gap)
}

func drawLabel(dc *gg.Context, text string) {
	w, h := float64(dc.Width()), float64(dc.Height())
	dc.SetRGBA(1, 1, 1, 0.75)
	dc.DrawRectangle(0, h/2-12, w, 24)
	dc.Fill()
	dc.SetRGB(0, 0, 0)
	dc.DrawStringAnchored(text, w/2, h/2, 0.5, 0.5)
}
