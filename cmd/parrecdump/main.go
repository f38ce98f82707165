package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/parrec"
	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/mat"
)

var (
	BufferSize = 4096
	STDOUT     = bufio.NewWriterSize(os.Stdout, BufferSize)
)

// Summarizes a PAR header and optionally emits its per-slice table
// Emits to stdout
func main() {
	defer STDOUT.Flush()

	var path, scaling string
	var strict, permitTruncated, table bool

	flag.StringVar(&path, "par", "", "Path to a .PAR header. May be a local path or a gs:// Google Storage path.")
	flag.StringVar(&scaling, "scaling", "dv", "Intensity scaling convention: dv or fp.")
	flag.BoolVar(&strict, "strict", false, "Sort slices on the volume-defining fields instead of trusting file order.")
	flag.BoolVar(&permitTruncated, "permit-truncated", false, "Recover from an aborted scan by dropping the incomplete final volume.")
	flag.BoolVar(&table, "table", false, "Also emit the per-slice table as CSV, in sorted slice order.")
	flag.Parse()

	if path == "" {
		flag.Usage()
		os.Exit(1)
	}

	var client *storage.Client
	if strings.HasPrefix(path, "gs://") {
		var err error
		client, err = storage.NewClient(context.Background())
		if err != nil {
			log.Fatalln(err)
		}
	}

	if err := run(path, scaling, strict, permitTruncated, table, client); err != nil {
		log.Fatalln(err)
	}
}

func run(path, scaling string, strict, permitTruncated, table bool, client *storage.Client) error {
	f, _, err := parrec.MaybeOpenFromGoogleStorage(path, client)
	if err != nil {
		return err
	}
	defer f.Close()

	hdr, err := parrec.NewHeaderFromReader(f, parrec.Options{
		PermitTruncated: permitTruncated,
		StrictSort:      strict,
		DefaultScaling:  scaling,
	})
	if err != nil {
		return err
	}

	if err := summarize(hdr); err != nil {
		return err
	}
	if table {
		return emitTable(hdr)
	}
	return nil
}

func summarize(hdr *parrec.Header) error {
	fmt.Fprintf(STDOUT, "Protocol\t%s\n", hdr.Info.ProtocolName)
	fmt.Fprintf(STDOUT, "Patient\t%s\n", hdr.Info.PatientName)
	fmt.Fprintf(STDOUT, "Exam date\t%s\n", hdr.Info.ExamDate)
	fmt.Fprintf(STDOUT, "Technique\t%s\n", hdr.Info.Technique)

	orientation, err := hdr.SliceOrientation()
	if err != nil {
		return err
	}
	fmt.Fprintf(STDOUT, "Orientation\t%s\n", orientation)
	fmt.Fprintf(STDOUT, "Bits per pixel\t%d\n", hdr.BitDepth())

	shape, err := hdr.DataShape()
	if err != nil {
		return err
	}
	fmt.Fprintf(STDOUT, "Shape\t%v\n", shape)

	zooms, err := hdr.Zooms()
	if err != nil {
		return err
	}
	fmt.Fprintf(STDOUT, "Zooms\t%v\n", zooms)

	labels, err := hdr.VolumeLabels()
	if err != nil {
		return err
	}
	for _, label := range labels {
		fmt.Fprintf(STDOUT, "Volume %s\t%v\n", label.Name, label.Values)
	}

	bvals, bvecs, err := hdr.BValsBVecs()
	if err != nil {
		return err
	}
	if bvecs != nil {
		fmt.Fprintf(STDOUT, "B values\t%v\n", bvals)
		fmt.Fprintf(STDOUT, "B vectors\t%v\n", bvecs)
	}

	aff, err := hdr.Affine(parrec.OriginScanner)
	if err != nil {
		return err
	}
	fmt.Fprintf(STDOUT, "Affine (scanner origin)\n%v\n", mat.Formatted(aff))

	return nil
}

type sliceRow struct {
	Row              int     `csv:"row"`
	RECSlab          int     `csv:"rec_slab"`
	Slice            int     `csv:"slice"`
	Echo             int     `csv:"echo"`
	Dynamic          int     `csv:"dynamic"`
	CardiacPhase     int     `csv:"cardiac_phase"`
	ImageTypeMR      int     `csv:"image_type_mr"`
	BValueNumber     int     `csv:"diffusion_b_value_number"`
	GradientNumber   int     `csv:"gradient_orientation_number"`
	LabelType        int     `csv:"label_type"`
	RescaleSlope     float64 `csv:"rescale_slope"`
	RescaleIntercept float64 `csv:"rescale_intercept"`
	ScaleSlope       float64 `csv:"scale_slope"`
}

func emitTable(hdr *parrec.Header) error {
	sorted, err := hdr.SortedSliceIndices()
	if err != nil {
		return err
	}

	rows := make([]sliceRow, 0, len(sorted))
	for _, row := range sorted {
		d := hdr.ImageDefs[row]
		rows = append(rows, sliceRow{
			Row:              row,
			RECSlab:          hdr.RECSlab(row),
			Slice:            d.SliceNumber,
			Echo:             d.EchoNumber,
			Dynamic:          d.DynamicScanNumber,
			CardiacPhase:     d.CardiacPhaseNumber,
			ImageTypeMR:      d.ImageTypeMR,
			BValueNumber:     d.DiffusionBValueNumber,
			GradientNumber:   d.GradientOrientationNumber,
			LabelType:        d.LabelType,
			RescaleSlope:     d.RescaleSlope,
			RescaleIntercept: d.RescaleIntercept,
			ScaleSlope:       d.ScaleSlope,
		})
	}

	return gocsv.Marshal(&rows, STDOUT)
}
