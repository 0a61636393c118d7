package visualization

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"neurofill/internal/models"
	"neurofill/pkg/raster"
)

// LoadSourceStack reads a directory of grayscale slice images (JPEG or PNG)
// into a dense stack of the requested pixel width. Files are ordered by the
// numeric part of their filenames, so slice_2.jpg sorts before slice_10.jpg.
func LoadSourceStack(inputDir string, width raster.PixelWidth, calibration models.Calibration) (*raster.Stack, error) {
	if !width.Valid() {
		return nil, fmt.Errorf("%w: %d", raster.ErrUnsupportedPixelWidth, width)
	}

	// Read input directory
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, err
	}

	// Filter image files
	var imageFiles []string
	for _, entry := range entries {
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".jpg" || ext == ".jpeg" || ext == ".png" {
			imageFiles = append(imageFiles, entry.Name())
		}
	}

	if len(imageFiles) == 0 {
		return nil, fmt.Errorf("no slice images found in input directory")
	}

	// Sort files by the numeric part of the filename to keep the anatomical
	// slice order
	sort.Slice(imageFiles, func(i, j int) bool {
		return extractNumber(imageFiles[i]) < extractNumber(imageFiles[j])
	})

	var stack *raster.Stack
	for z, filename := range imageFiles {
		img, err := loadImage(filepath.Join(inputDir, filename))
		if err != nil {
			return nil, fmt.Errorf("failed to load image %s: %w", filename, err)
		}

		bounds := img.Bounds()
		if stack == nil {
			dims := models.Dimensions{
				Width:  bounds.Dx(),
				Height: bounds.Dy(),
				Depth:  len(imageFiles),
			}
			stack, err = raster.NewStack(width, dims, calibration)
			if err != nil {
				return nil, err
			}
		} else if bounds.Dx() != stack.Dims.Width || bounds.Dy() != stack.Dims.Height {
			return nil, fmt.Errorf("slice %s is %dx%d, expected %dx%d",
				filename, bounds.Dx(), bounds.Dy(), stack.Dims.Width, stack.Dims.Height)
		}

		for y := 0; y < stack.Dims.Height; y++ {
			for x := 0; x < stack.Dims.Width; x++ {
				// RGBA returns 16-bit channels; rescale to the stack width.
				gray, _, _, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
				switch width {
				case raster.Gray8:
					stack.Set(x, y, z, gray>>8)
				case raster.Gray16:
					stack.Set(x, y, z, gray)
				case raster.Gray32:
					stack.Set(x, y, z, gray<<16|gray)
				}
			}
		}
	}

	return stack, nil
}

// extractNumber extracts the numeric part from a filename
func extractNumber(filename string) int {
	base := filepath.Base(filename)
	numStr := ""
	for _, c := range base {
		if c >= '0' && c <= '9' {
			numStr += string(c)
		}
	}

	if numStr != "" {
		num, err := strconv.Atoi(numStr)
		if err == nil {
			return num
		}
	}
	return 0
}

// loadImage opens and decodes a single slice image.
func loadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	return img, err
}
