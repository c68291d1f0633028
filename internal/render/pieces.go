package render

import (
	"bytes"
	"embed"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/park285/Cheese-Duel/internal/rules"
)

//go:embed assets/pieces/*.svg
var pieceFiles embed.FS

// 기물 SVG 는 한 벌만 두고 색은 치환한다.
var pieceInks = map[rules.Color][2]string{
	rules.White: {"#f8f8f8", "#1b1b1b"},
	rules.Black: {"#232323", "#e6e6e6"},
}

type pieceKey struct {
	piece rules.Piece
	size  int
}

var (
	pieceCache   = map[pieceKey]image.Image{}
	pieceCacheMu sync.RWMutex
)

func pieceImage(p rules.Piece, size int) (image.Image, error) {
	key := pieceKey{piece: p, size: size}

	pieceCacheMu.RLock()
	if img, ok := pieceCache[key]; ok {
		pieceCacheMu.RUnlock()
		return img, nil
	}
	pieceCacheMu.RUnlock()

	name := "assets/pieces/" + p.Kind.Letter() + ".svg"
	data, err := pieceFiles.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read piece asset %s: %w", name, err)
	}
	ink, ok := pieceInks[p.Color]
	if !ok {
		return nil, fmt.Errorf("no ink for %v", p.Color)
	}
	data = bytes.ReplaceAll(data, []byte("#FILL"), []byte(ink[0]))
	data = bytes.ReplaceAll(data, []byte("#LINE"), []byte(ink[1]))

	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg %s: %w", name, err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	pieceCacheMu.Lock()
	pieceCache[key] = img
	pieceCacheMu.Unlock()
	return img, nil
}
