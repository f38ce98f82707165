package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/parrec"
)

// Animates a dynamic PAR/REC series: one gif per slice location, with
// the dynamics as frames.
func main() {
	var parPath, recPath, output, scaling string
	var delay int

	flag.StringVar(&parPath, "par", "", "Path to the .PAR header. May be a local path or a gs:// Google Storage path.")
	flag.StringVar(&recPath, "rec", "", "Path to the .REC pixel file. Defaults to the .PAR path with its extension swapped.")
	flag.StringVar(&output, "out", "", "Name of folder where the gifs will be emitted. Filenames will be {orig_filename}.z{z depth}.gif.")
	flag.StringVar(&scaling, "scaling", "dv", "Intensity scaling convention: dv or fp.")
	flag.IntVar(&delay, "delay", 4, "Hundredths of a second between each frame of the gif.")
	flag.Parse()

	if parPath == "" || output == "" {
		flag.PrintDefaults()
		os.Exit(1)
	}

	if recPath == "" {
		if strings.HasSuffix(parPath, ".par") {
			recPath = strings.TrimSuffix(parPath, ".par") + ".rec"
		} else {
			recPath = strings.TrimSuffix(parPath, ".PAR") + ".REC"
		}
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

	if err := run(parPath, recPath, prefix, output, scaling, delay, client); err != nil {
		log.Fatalln(err)
	}
}

func run(parPath, recPath, prefix, output, scaling string, delay int, client *storage.Client) error {
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

	rec := parrec.NewREC(hdr, rf)

	shape, err := hdr.DataShape()
	if err != nil {
		return err
	}
	if len(shape) < 4 || shape[3] < 2 {
		return fmt.Errorf("%s has %d volume(s); need at least 2 to animate", parPath, hdr.NVols())
	}
	xm, ym, zm, tm := shape[0], shape[1], shape[2], shape[3]

	// Pull every frame up front so the palette can be shared across the
	// whole gif.
	volumes := make([][][]float64, tm)
	for t := 0; t < tm; t++ {
		if volumes[t], err = rec.ScaledVolume(t, ""); err != nil {
			return err
		}
	}

	for z := 0; z < zm; z++ {
		frames := make([]image.Image, 0, tm)
		for t := 0; t < tm; t++ {
			frames = append(frames, sliceImage(volumes[t][z], xm, ym))
		}

		outGif, err := makeOneGif(frames, delay)
		if err != nil {
			return err
		}

		outName := filepath.Join(output, fmt.Sprintf("%s.z%06d.gif", prefix, z))
		if err := saveGif(outGif, outName); err != nil {
			return err
		}
		fmt.Printf("%s\t%d\t%d\n", outName, z, tm)
	}

	return nil
}

// sliceImage renders one scaled 2D slice to a grayscale image, windowed
// to the slice's own maximum intensity.
func sliceImage(slice []float64, xm, ym int) image.Image {
	maxIntensity := 0.0
	for _, intensity := range slice {
		if intensity > maxIntensity {
			maxIntensity = intensity
		}
	}

	img := image.NewGray16(image.Rect(0, 0, xm, ym))
	if maxIntensity <= 0 {
		return img
	}
	for x := 0; x < xm; x++ {
		for y := 0; y < ym; y++ {
			intensity := slice[y*xm+x]
			if intensity < 0 {
				intensity = 0
			}
			img.SetGray16(x, y, color.Gray16{Y: uint16(float64(math.MaxUint16) * intensity / maxIntensity)})
		}
	}
	return img
}

func saveGif(outGif *gif.GIF, outName string) error {
	f, err := os.OpenFile(outName, os.O_WRONLY|os.O_CREATE, 0600)
	if err != nil {
		return err
	}

	defer f.Close()

	return gif.EncodeAll(f, outGif)
}
