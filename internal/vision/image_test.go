package vision

import (
	"image"
	"testing"
)

func TestClipBox_InsideFrame(t *testing.T) {
	region, ok := ClipBox([]float64{10, 20, 50, 60}, 100, 100)
	if !ok {
		t.Fatal("expected a valid region")
	}
	if region.Min.X != 10 || region.Min.Y != 20 || region.Max.X != 50 || region.Max.Y != 60 {
		t.Errorf("unexpected region: %v", region)
	}
}

func TestClipBox_ClampsToFrame(t *testing.T) {
	region, ok := ClipBox([]float64{-20, -10, 150, 140}, 100, 100)
	if !ok {
		t.Fatal("expected a valid region")
	}
	if region.Min.X != 0 || region.Min.Y != 0 {
		t.Errorf("expected origin clamp, got %v", region.Min)
	}
	if region.Max.X != 99 || region.Max.Y != 99 {
		t.Errorf("expected frame edge clamp, got %v", region.Max)
	}
}

func TestClipBox_Degenerate(t *testing.T) {
	if _, ok := ClipBox([]float64{50, 50, 50, 50}, 100, 100); ok {
		t.Error("expected degenerate box to be rejected")
	}
	if _, ok := ClipBox([]float64{120, 120, 140, 140}, 100, 100); ok {
		t.Error("expected off-frame box to be rejected")
	}
	if _, ok := ClipBox([]float64{10, 10, 50}, 100, 100); ok {
		t.Error("expected short bbox to be rejected")
	}
	if _, ok := ClipBox([]float64{10, 10, 50, 50}, 0, 0); ok {
		t.Error("expected empty frame to be rejected")
	}
}

func TestCropGray(t *testing.T) {
	frame := image.NewGray(image.Rect(0, 0, 100, 100))
	frame.Pix[30*frame.Stride+40] = 200

	crop := CropGray(frame, image.Rect(40, 30, 60, 50))

	if crop.Bounds().Dx() != 20 || crop.Bounds().Dy() != 20 {
		t.Fatalf("unexpected crop size: %v", crop.Bounds())
	}
	if got := crop.GrayAt(0, 0).Y; got != 200 {
		t.Errorf("expected marked pixel at crop origin, got %d", got)
	}
	if got := crop.GrayAt(10, 10).Y; got != 0 {
		t.Errorf("expected background pixel, got %d", got)
	}
}

func TestResizeGray(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 40, 40))
	dst := ResizeGray(src, 20, 20)
	if dst.Bounds().Dx() != 20 || dst.Bounds().Dy() != 20 {
		t.Errorf("unexpected size: %v", dst.Bounds())
	}
}

func TestEncodeDecodeJPEG(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 16, 16))
	data, err := EncodeJPEG(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	img, err := DecodeImage(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if img.Bounds().Dx() != 16 || img.Bounds().Dy() != 16 {
		t.Errorf("unexpected bounds: %v", img.Bounds())
	}
}

func TestDecodeImage_Invalid(t *testing.T) {
	if _, err := DecodeImage([]byte("not an image")); err == nil {
		t.Error("expected an error for invalid data")
	}
}
