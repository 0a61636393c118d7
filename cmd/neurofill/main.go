package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"neurofill/internal/models"
	"neurofill/pkg/config"
	"neurofill/pkg/fill"
	"neurofill/pkg/raster"
	"neurofill/pkg/visualization"
)

func main() {
	// Parse command line arguments
	fillsDir := flag.String("fills", "", "Directory containing fill documents (YAML)")
	sourceDir := flag.String("source", "", "Directory containing source slice images (required with -preserve)")
	outputDir := flag.String("output", "", "Directory to save rasterized slices (default: from config)")
	configPath := flag.String("config", "neurofill.yaml", "Configuration file path")
	pixelWidth := flag.Int("pixel-width", 0, "Output pixel width in bits: 8, 16 or 32 (default: from config)")
	preserve := flag.Bool("preserve", false, "Write source intensities instead of the marker value")
	threshold := flag.Float64("threshold", 0, "Override the inclusion threshold (default: first fill's threshold)")
	workers := flag.Int("workers", 0, "Number of goroutines for merge and rasterization (default: from config)")
	width := flag.Int("width", 0, "Output volume width (default: inferred from fills or source)")
	height := flag.Int("height", 0, "Output volume height (default: inferred from fills or source)")
	depth := flag.Int("depth", 0, "Output volume depth (default: inferred from fills or source)")
	flag.Parse()

	// Validate inputs
	if *fillsDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	// Load configuration, then let explicitly set flags override it
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "pixel-width":
			cfg.Processing.PixelWidth = *pixelWidth
		case "preserve":
			cfg.Processing.PreserveIntensity = *preserve
		case "threshold":
			cfg.Processing.Threshold = threshold
		case "workers":
			cfg.Processing.NumWorkers = *workers
		case "output":
			cfg.Output.Dir = *outputDir
		}
	})

	fmt.Println("================================")
	fmt.Println("NEUROFILL: MERGE AND RASTERIZE SPARSE FILL VOLUMES")
	fmt.Println("================================")

	// Load fill documents
	docs, names, err := loadFillDocuments(*fillsDir)
	if err != nil {
		log.Fatalf("Failed to load fills: %v", err)
	}
	fmt.Printf("Loaded %d fill document(s) from %s\n", len(docs), *fillsDir)

	results := make([]fill.Result, len(docs))
	for i, doc := range docs {
		result, err := doc.ToResult()
		if err != nil {
			log.Fatalf("Invalid fill %s: %v", names[i], err)
		}
		results[i] = result
	}

	// Report per-fill statistics
	calibration := models.DefaultCalibration()
	if len(docs) > 0 {
		calibration = docs[0].Calibration
	}
	for i, result := range results {
		stats := fill.Summarize(result, docs[i].Calibration)
		fmt.Printf("\nFill %s:\n", names[i])
		fmt.Printf("  Threshold: %.4f\n", result.Threshold())
		fmt.Printf("  Visited voxels: %d (filled: %d)\n", stats.NodeCount, stats.FilledCount)
		fmt.Printf("  g-score mean/stddev/median/max: %.4f / %.4f / %.4f / %.4f\n",
			stats.MeanG, stats.StdDevG, stats.MedianG, stats.MaxG)
		fmt.Printf("  Filled volume: %.4f %s^3\n", stats.FilledVolume, docs[i].Calibration.Unit)
	}

	// Load the source stack when intensities are preserved
	var source *raster.Stack
	if cfg.Processing.PreserveIntensity {
		if *sourceDir == "" {
			log.Fatal("-preserve requires -source")
		}
		source, err = visualization.LoadSourceStack(*sourceDir,
			raster.PixelWidth(cfg.Processing.PixelWidth), calibration)
		if err != nil {
			log.Fatalf("Failed to load source stack: %v", err)
		}
		fmt.Printf("\nLoaded source stack %dx%dx%d (%d-bit)\n",
			source.Dims.Width, source.Dims.Height, source.Dims.Depth, source.PixelWidth)
	}

	// Determine the output dimensions
	dims := models.Dimensions{Width: *width, Height: *height, Depth: *depth}
	if !dims.Valid() {
		if source != nil {
			dims = source.Dims
		} else {
			dims = inferDimensions(results)
		}
	}

	// Merge and rasterize
	fmt.Println("\nMerging and rasterizing...")
	startTime := time.Now()
	opts := raster.Options{
		Dims:              dims,
		PixelWidth:        raster.PixelWidth(cfg.Processing.PixelWidth),
		PreserveIntensity: cfg.Processing.PreserveIntensity,
		Threshold:         cfg.Processing.Threshold,
		Calibration:       calibration,
		Workers:           cfg.Processing.NumWorkers,
	}
	stack, err := raster.Render(context.Background(), results, source, opts)
	if err != nil {
		log.Fatalf("Rasterization failed: %v", err)
	}
	if stack == nil {
		fmt.Println("No fills to rasterize; nothing written.")
		return
	}
	processingTime := time.Since(startTime)

	// Save the output slice sequence
	viewer := visualization.NewViewer(stack, cfg.Output.JpegQuality)
	if err := viewer.SaveSliceSequence(cfg.Output.Dir); err != nil {
		log.Fatalf("Failed to save slices: %v", err)
	}

	fmt.Printf("\nRasterization completed in %.2f seconds!\n", processingTime.Seconds())
	fmt.Printf("Output dimensions: %dx%dx%d (%d-bit)\n",
		dims.Width, dims.Height, dims.Depth, stack.PixelWidth)
	fmt.Printf("Slices saved to: %s\n", cfg.Output.Dir)
	if cfg.Output.Verbose {
		fmt.Printf("Used %d worker(s)\n", cfg.Processing.NumWorkers)
	}
}

// loadFillDocuments reads every YAML fill document in the directory, sorted
// by filename for a stable merge order.
func loadFillDocuments(dir string) ([]*fill.Document, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, err
	}

	var files []string
	for _, entry := range entries {
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, entry.Name())
		}
	}
	if len(files) == 0 {
		return nil, nil, fmt.Errorf("no fill documents found in %s", dir)
	}
	sort.Strings(files)

	docs := make([]*fill.Document, 0, len(files))
	for _, name := range files {
		doc, err := fill.Load(filepath.Join(dir, name))
		if err != nil {
			return nil, nil, err
		}
		docs = append(docs, doc)
	}
	return docs, files, nil
}

// inferDimensions derives the smallest dense extent covering every visited
// voxel, used when neither flags nor a source stack fix the output size.
func inferDimensions(results []fill.Result) models.Dimensions {
	dims := models.Dimensions{Width: 1, Height: 1, Depth: 1}
	for _, result := range results {
		volume := result.Volume()
		if volume == nil {
			continue
		}
		for _, z := range volume.ZIndices() {
			if z+1 > dims.Depth {
				dims.Depth = z + 1
			}
			volume.Slice(z).Each(func(x, y int, node *fill.Node) {
				if x+1 > dims.Width {
					dims.Width = x + 1
				}
				if y+1 > dims.Height {
					dims.Height = y + 1
				}
			})
		}
	}
	return dims
}
