// Package render draws a duel board as a PNG for chat delivery.
package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/park285/Cheese-Duel/internal/rules"
)

// Options decorates the board image.
type Options struct {
	// LastMove highlights the from/to squares of the previous move.
	LastMove *rules.LastMove
	// Checked lists the squares of kings currently in check.
	Checked []rules.Square
	// Promotion outlines a pawn waiting for its promotion choice.
	Promotion *rules.Square
	Header    string
	Status    string
}

// Renderer renders boards. The zero value is not usable; call New.
type Renderer struct {
	squareSize int
}

func New() *Renderer {
	return &Renderer{squareSize: 64}
}

const (
	sideMargin   = 28
	topMargin    = 56
	bottomMargin = 28
	hudHeight    = 32
	hudGap       = 12
	panelRadius  = 8
)

var (
	lightSquare    = color.RGBA{233, 207, 163, 255}
	darkSquare     = color.RGBA{187, 136, 96, 255}
	backgroundFill = color.RGBA{22, 24, 34, 255}
	lastMoveFill   = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	checkFill      = color.NRGBA{R: 230, G: 40, B: 40, A: 170}
	promotionEdge  = color.NRGBA{R: 80, G: 170, B: 255, A: 230}
	hudPanelColor  = color.NRGBA{R: 40, G: 44, B: 62, A: 255}
	hudTextColor   = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	coordColor     = color.NRGBA{R: 8, G: 214, B: 120, A: 255}
)

// RenderPNG draws b with white at the bottom.
func (r *Renderer) RenderPNG(ctx context.Context, b *rules.Board, opts Options) ([]byte, error) {
	if b == nil {
		return nil, fmt.Errorf("board is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	size := r.squareSize
	boardSize := size * 8
	origin := image.Point{X: sideMargin, Y: topMargin}
	img := image.NewRGBA(image.Rect(0, 0, boardSize+sideMargin*2, boardSize+topMargin+bottomMargin))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundFill), image.Point{}, imagedraw.Src)

	drawHUD(img, opts, image.Rect(origin.X, origin.Y, origin.X+boardSize, origin.Y+boardSize))
	drawSquares(img, size, origin)
	if lm := opts.LastMove; lm != nil && lm.Valid {
		overlaySquare(img, lm.From, size, origin, lastMoveFill)
		overlaySquare(img, lm.To, size, origin, lastMoveFill)
	}
	for _, sq := range opts.Checked {
		drawCheckMarker(img, sq, size, origin)
	}
	if err := drawPieces(img, b, size, origin); err != nil {
		return nil, err
	}
	if opts.Promotion != nil {
		outlineSquare(img, *opts.Promotion, size, origin, promotionEdge, 4)
	}
	drawCoordinates(img, size, origin)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func squareRect(sq rules.Square, size int, origin image.Point) image.Rectangle {
	x := origin.X + sq.Col*size
	y := origin.Y + sq.Row*size
	return image.Rect(x, y, x+size, y+size)
}

func drawSquares(dst *image.RGBA, size int, origin image.Point) {
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			clr := lightSquare
			if (row+col)%2 == 1 {
				clr = darkSquare
			}
			rect := squareRect(rules.Square{Row: row, Col: col}, size, origin)
			imagedraw.Draw(dst, rect, image.NewUniform(clr), image.Point{}, imagedraw.Src)
		}
	}
}

func drawPieces(dst *image.RGBA, b *rules.Board, size int, origin image.Point) error {
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			sq := rules.Square{Row: row, Col: col}
			p := b.PieceAt(sq)
			if p.Empty() {
				continue
			}
			icon, err := pieceImage(p, size)
			if err != nil {
				return err
			}
			imagedraw.Draw(dst, squareRect(sq, size, origin), icon, image.Point{}, imagedraw.Over)
		}
	}
	return nil
}

func overlaySquare(dst *image.RGBA, sq rules.Square, size int, origin image.Point, clr color.Color) {
	if !sq.Valid() {
		return
	}
	imagedraw.Draw(dst, squareRect(sq, size, origin), image.NewUniform(clr), image.Point{}, imagedraw.Over)
}

func outlineSquare(dst *image.RGBA, sq rules.Square, size int, origin image.Point, clr color.Color, width int) {
	if !sq.Valid() {
		return
	}
	rect := squareRect(sq, size, origin)
	fill := image.NewUniform(clr)
	edges := []image.Rectangle{
		image.Rect(rect.Min.X, rect.Min.Y, rect.Max.X, rect.Min.Y+width),
		image.Rect(rect.Min.X, rect.Max.Y-width, rect.Max.X, rect.Max.Y),
		image.Rect(rect.Min.X, rect.Min.Y+width, rect.Min.X+width, rect.Max.Y-width),
		image.Rect(rect.Max.X-width, rect.Min.Y+width, rect.Max.X, rect.Max.Y-width),
	}
	for _, e := range edges {
		imagedraw.Draw(dst, e, fill, image.Point{}, imagedraw.Over)
	}
}

func drawCheckMarker(dst *image.RGBA, sq rules.Square, size int, origin image.Point) {
	if !sq.Valid() {
		return
	}
	rect := squareRect(sq, size, origin)
	center := image.Point{X: rect.Min.X + size/2, Y: rect.Min.Y + size/2}
	drawDisc(dst, center, size*9/20, checkFill)
}

func drawCoordinates(dst *image.RGBA, size int, origin image.Point) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: dst, Face: face, Src: image.NewUniform(coordColor)}
	ascent := face.Metrics().Ascent.Ceil()
	bottom := origin.Y + 8*size

	for i := 0; i < 8; i++ {
		// row i on the left edge, column i along the bottom
		rankLabel := rules.Square{Row: i, Col: 0}.ChessSquare().Rank().String()
		fileLabel := rules.Square{Row: 7, Col: i}.ChessSquare().File().String()

		drawCenteredText(drawer, rankLabel, origin.X-sideMargin/2, origin.Y+i*size+size/2+ascent/2)
		drawCenteredText(drawer, fileLabel, origin.X+i*size+size/2, bottom+ascent+6)
	}
}

// drawHUD puts the header on the left and the status on the right above the
// board. basicfont only covers ASCII, so callers pass ASCII text.
func drawHUD(dst *image.RGBA, opts Options, boardRect image.Rectangle) {
	header := strings.TrimSpace(opts.Header)
	status := strings.TrimSpace(opts.Status)
	if header == "" && status == "" {
		return
	}
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: dst, Face: face}

	bottom := boardRect.Min.Y - hudGap
	panel := image.Rect(boardRect.Min.X, bottom-hudHeight, boardRect.Max.X, bottom)
	drawRoundedPanel(dst, panel, panelRadius, hudPanelColor)

	metrics := face.Metrics()
	baseline := panel.Min.Y + (panel.Dy()+metrics.Ascent.Ceil()-metrics.Descent.Ceil())/2
	drawer.Src = image.NewUniform(hudTextColor)

	statusWidth := 0
	if status != "" {
		statusWidth = drawer.MeasureString(status).Round()
		drawer.Dot = fixed.P(panel.Max.X-12-statusWidth, baseline)
		drawer.DrawString(status)
	}
	if header != "" {
		header = truncateWithEllipsis(face, header, panel.Dx()-36-statusWidth)
		drawer.Dot = fixed.P(panel.Min.X+12, baseline)
		drawer.DrawString(header)
	}
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	if text == "" {
		return
	}
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}

func truncateWithEllipsis(face font.Face, text string, maxWidth int) string {
	drawer := font.Drawer{Face: face}
	if maxWidth <= 0 {
		return ""
	}
	if drawer.MeasureString(text).Round() <= maxWidth {
		return text
	}
	runes := []rune(text)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + "..."
		if drawer.MeasureString(candidate).Round() <= maxWidth {
			return candidate
		}
	}
	return ""
}
