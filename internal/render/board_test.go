package render

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/park285/Cheese-Duel/internal/rules"
)

func decode(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	return img
}

func rgba(c color.Color) color.RGBA {
	r, g, b, a := c.RGBA()
	return color.RGBA{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), uint8(a >> 8)}
}

func TestRenderStartBoard(t *testing.T) {
	r := New()
	b := rules.NewBoard()
	data, err := r.RenderPNG(context.Background(), &b, Options{Header: "alice vs bob", Status: "white to move"})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	img := decode(t, data)
	want := image.Rect(0, 0, 64*8+sideMargin*2, 64*8+topMargin+bottomMargin)
	if img.Bounds() != want {
		t.Fatalf("bounds = %v, want %v", img.Bounds(), want)
	}

	// a1 is dark, h1 is light; sample the empty corner of e4 (light) and d4 (dark)
	e4 := squareRect(rules.Square{Row: 4, Col: 4}, 64, image.Point{X: sideMargin, Y: topMargin})
	if got := rgba(img.At(e4.Min.X+2, e4.Min.Y+2)); got != lightSquare {
		t.Fatalf("e4 = %v, want light", got)
	}
	d4 := squareRect(rules.Square{Row: 4, Col: 3}, 64, image.Point{X: sideMargin, Y: topMargin})
	if got := rgba(img.At(d4.Min.X+2, d4.Min.Y+2)); got != darkSquare {
		t.Fatalf("d4 = %v, want dark", got)
	}

	// something was painted inside the white king's square
	e1 := squareRect(rules.Square{Row: 7, Col: 4}, 64, image.Point{X: sideMargin, Y: topMargin})
	if got := rgba(img.At(e1.Min.X+32, e1.Min.Y+48)); got == lightSquare || got == darkSquare {
		t.Fatalf("king not drawn at e1")
	}
}

func TestRenderDecorations(t *testing.T) {
	r := New()
	var b rules.Board
	b.Set(rules.Square{Row: 7, Col: 4}, rules.Piece{Kind: rules.King, Color: rules.White})
	b.Set(rules.Square{Row: 0, Col: 4}, rules.Piece{Kind: rules.King, Color: rules.Black})

	e4 := rules.Square{Row: 4, Col: 4}
	d5 := rules.Square{Row: 3, Col: 3}
	lm := rules.LastMove{Valid: true, From: rules.Square{Row: 6, Col: 4}, To: e4}
	data, err := r.RenderPNG(context.Background(), &b, Options{LastMove: &lm, Checked: []rules.Square{d5}})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	img := decode(t, data)
	origin := image.Point{X: sideMargin, Y: topMargin}

	rect := squareRect(e4, 64, origin)
	if got := rgba(img.At(rect.Min.X+2, rect.Min.Y+2)); got == lightSquare {
		t.Fatalf("last move square not highlighted")
	}
	rect = squareRect(d5, 64, origin)
	got := rgba(img.At(rect.Min.X+32, rect.Min.Y+32))
	if got.R < 200 || got.G > 120 {
		t.Fatalf("check marker missing: %v", got)
	}
}

func TestRenderHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := rules.NewBoard()
	if _, err := New().RenderPNG(ctx, &b, Options{}); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestPieceImageCached(t *testing.T) {
	p := rules.Piece{Kind: rules.Knight, Color: rules.Black}
	a, err := pieceImage(p, 32)
	if err != nil {
		t.Fatalf("pieceImage: %v", err)
	}
	b, _ := pieceImage(p, 32)
	if a != b {
		t.Fatalf("expected cached image")
	}
}
