package main

import (
	"image"
	"image/color"
	"image/draw"
	"image/gif"

	"github.com/carbocation/go-quantize/quantize"
)

// makeOneGif creates an animated gif from an ordered slice of frames.
// The delay between frames is in hundredths of a second. The color
// quantizer is built from *all* input frames, and the quantized palette
// is shared across all of the output frames.
func makeOneGif(sortedImages []image.Image, delay int) (*gif.GIF, error) {
	outGif := &gif.GIF{}

	quantizer := quantize.MedianCutQuantizer{
		Aggregation:    quantize.Mean,
		Weighting:      nil,
		AddTransparent: false,
	}

	pal := quantizer.QuantizeMultiple(make([]color.Color, 0, 256), sortedImages)

	for _, img := range sortedImages {
		palettedImage := image.NewPaletted(img.Bounds(), pal)
		draw.Draw(palettedImage, img.Bounds(), img, image.Point{}, draw.Over)
		outGif.Image = append(outGif.Image, palettedImage)
		outGif.Delay = append(outGif.Delay, delay)
	}

	return outGif, nil
}
