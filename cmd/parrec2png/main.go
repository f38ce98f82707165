package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/parrec"
)

func main() {
	var parPath, recPath, output, scaling string

	flag.StringVar(&parPath, "par", "", "Path to the .PAR header. May be a local path or a gs:// Google Storage path.")
	flag.StringVar(&recPath, "rec", "", "Path to the .REC pixel file. Defaults to the .PAR path with its extension swapped.")
	flag.StringVar(&output, "out", "", "Name of folder where the pngs will be emitted. Filenames will be {orig_filename}.z{z depth}_t{time}.png.")
	flag.StringVar(&scaling, "scaling", "dv", "Intensity scaling convention: dv or fp.")
	flag.Parse()

	if parPath == "" || output == "" {
		flag.PrintDefaults()
		os.Exit(1)
	}

	if recPath == "" {
		recPath = siblingREC(parPath)
	}

	prefix := filepath.Base(parPath)
	prefix = strings.TrimSuffix(prefix, ".PAR")
	prefix = strings.TrimSuffix(prefix, ".par")

	if stat, err := os.Stat(output); err == nil && stat.IsDir() {
		// path is a directory already
	} else {
		os.MkdirAll(output, os.ModePerm)
	}

	var client *storage.Client
	if strings.HasPrefix(parPath, "gs://") || strings.HasPrefix(recPath, "gs://") {
		var err error
		client, err = storage.NewClient(context.Background())
		if err != nil {
			log.Fatalln(err)
		}
	}

	if err := run(parPath, recPath, prefix, output, scaling, client); err != nil {
		log.Fatalln(err)
	}
}

// siblingREC swaps a .PAR extension for .REC, preserving the case
// convention of the header's extension.
func siblingREC(parPath string) string {
	if strings.HasSuffix(parPath, ".par") {
		return strings.TrimSuffix(parPath, ".par") + ".rec"
	}
	return strings.TrimSuffix(parPath, ".PAR") + ".REC"
}

func run(parPath, recPath, prefix, output, scaling string, client *storage.Client) error {
	pf, _, err := parrec.MaybeOpenFromGoogleStorage(parPath, client)
	if err != nil {
		return err
	}
	defer pf.Close()

	hdr, err := parrec.NewHeaderFromReader(pf, parrec.Options{DefaultScaling: scaling})
	if err != nil {
		return err
	}

	rf, _, err := parrec.MaybeOpenFromGoogleStorage(recPath, client)
	if err != nil {
		return err
	}
	defer rf.Close()

	return parrec2png(hdr, parrec.NewREC(hdr, rf), prefix, output)
}

func parrec2png(hdr *parrec.Header, rec *parrec.REC, prefix, output string) error {
	shape, err := hdr.DataShape()
	if err != nil {
		return err
	}
	xm, ym, zm := shape[0], shape[1], shape[2]
	tm := 1
	if len(shape) > 3 {
		tm = shape[3]
	}

	zooms, err := hdr.Zooms()
	if err != nil {
		return err
	}

	rect := image.Rect(0, 0, xm, ym)
	colImg := image.NewRGBA(rect)
	var grayCol color.Color
	var col color.Color

	// March forward through the volumes
	for t := 0; t < tm; t++ {
		vol, err := rec.ScaledVolume(t, "")
		if err != nil {
			return err
		}

		// And down the stack
		for z := 0; z < zm; z++ {
			slice := vol[z]

			maxIntensity := 0.0
			for _, intensity := range slice {
				if intensity > maxIntensity {
					maxIntensity = intensity
				}
			}

			for x := 0; x < xm; x++ {
				for y := 0; y < ym; y++ {
					grayCol = color.Gray16{Y: applyPythonicWindowScaling(slice[y*xm+x], maxIntensity)}
					col = color.RGBA64Model.Convert(grayCol)
					colImg.Set(x, y, col)
				}
			}

			f, err := os.Create(filepath.Join(output, fmt.Sprintf("%s.z%06d_t%06d.png", prefix, z, t)))
			if err != nil {
				return err
			}
			fw := bufio.NewWriter(f)

			if err := png.Encode(fw, colImg); err != nil {
				return err
			}
			// Emit metadata about each PNG
			fmt.Printf("%s\t%d\t%d\t%g\t%g\t%g\n", fmt.Sprintf("%s.z%06d_t%06d", prefix, z, t), z, t, zooms[0], zooms[1], zooms[2])

			fw.Flush()
			f.Close()

		}
	}

	return nil
}

func applyPythonicWindowScaling(intensity, maxIntensity float64) uint16 {
	if intensity < 0 {
		intensity = 0
	}
	if maxIntensity <= 0 {
		return 0
	}

	return uint16(float64(math.MaxUint16) * intensity / maxIntensity)
}
