package tilestore

import (
	"bytes"
	"image"
	"image/png"

	"go.trai.ch/lithotile/internal/core/domain"
)

var encoder = png.Encoder{CompressionLevel: png.BestSpeed}

// encodeTile renders a tile as PNG. Equal tiles encode to equal bytes.
func encodeTile(tile *domain.Tile) ([]byte, error) {
	img := &image.RGBA{
		Pix:    tile.Pixels(),
		Stride: 4 * tile.Width(),
		Rect:   tile.Bounds(),
	}
	var buf bytes.Buffer
	if err := encoder.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeTile(key domain.TileKey, data []byte) (*domain.Tile, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return domain.NewTile(key, img), nil
}
