package vision

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

// ClipBox clips a [x1, y1, x2, y2] pixel bounding box to the frame bounds.
// The second return is false for a degenerate (zero-area) result, which
// callers must treat as "no detection".
func ClipBox(bbox []float64, width, height int) (image.Rectangle, bool) {
	if len(bbox) != 4 || width <= 0 || height <= 0 {
		return image.Rectangle{}, false
	}

	x1 := max(0, int(bbox[0]))
	y1 := max(0, int(bbox[1]))
	x2 := min(width-1, int(bbox[2]))
	y2 := min(height-1, int(bbox[3]))

	if x2 <= x1 || y2 <= y1 {
		return image.Rectangle{}, false
	}
	return image.Rect(x1, y1, x2, y2), true
}

// CropGray extracts the given region of a frame as a grayscale image.
func CropGray(frame image.Image, region image.Rectangle) *image.Gray {
	dst := image.NewGray(image.Rect(0, 0, region.Dx(), region.Dy()))
	draw.Draw(dst, dst.Bounds(), frame, region.Min, draw.Src)
	return dst
}

// EncodeJPEG encodes an image as JPEG bytes.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeImage decodes JPEG, PNG, GIF or BMP image data.
func DecodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// ResizeGray scales a grayscale image to the given dimensions.
func ResizeGray(img *image.Gray, width, height int) *image.Gray {
	dst := image.NewGray(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}
