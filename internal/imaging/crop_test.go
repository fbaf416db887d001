package imaging

import (
	"image"
	"image/color"
	"testing"
)

func TestCropRect(t *testing.T) {
	plate := image.Rect(20, 10, 70, 30)
	img := createPlateImage(100, 50, color.White, color.Black, plate)

	crop, err := CropRect(img, plate)
	if err != nil {
		t.Fatalf("CropRect failed: %v", err)
	}
	if crop.Bounds() != image.Rect(0, 0, 50, 20) {
		t.Errorf("bounds: got %v, want (0,0)-(50,20)", crop.Bounds())
	}
	r, g, b, _ := crop.At(25, 10).RGBA()
	if r != 0 || g != 0 || b != 0 {
		t.Errorf("crop center should be black, got (%d,%d,%d)", r>>8, g>>8, b>>8)
	}
}

func TestCropRect_Invalid(t *testing.T) {
	img := createInMemoryImage(100, 50, color.White)

	tests := []struct {
		name string
		r    image.Rectangle
	}{
		{"empty", image.Rect(10, 10, 10, 20)},
		{"negative origin", image.Rect(-5, 0, 10, 10)},
		{"past right edge", image.Rect(90, 0, 110, 10)},
		{"past bottom edge", image.Rect(0, 40, 10, 60)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := CropRect(img, tt.r); err == nil {
				t.Errorf("expected error for %v", tt.r)
			}
		})
	}
}

func TestEnhanceForOCR_UpscalesShortCrops(t *testing.T) {
	crop := createPlateImage(60, 16, color.White, color.Black, image.Rect(10, 4, 20, 12))

	out := EnhanceForOCR(crop, false)
	if out.Rect.Dy() != MinOCRHeight {
		t.Errorf("height: got %d, want %d", out.Rect.Dy(), MinOCRHeight)
	}
	// Aspect ratio is preserved: 60x16 scaled to height 32 is 120 wide
	if out.Rect.Dx() != 120 {
		t.Errorf("width: got %d, want 120", out.Rect.Dx())
	}
}

func TestEnhanceForOCR_KeepsTallCrops(t *testing.T) {
	crop := createInMemoryImage(100, 40, color.White)

	out := EnhanceForOCR(crop, false)
	if out.Rect.Dx() != 100 || out.Rect.Dy() != 40 {
		t.Errorf("dimensions: got %dx%d, want 100x40", out.Rect.Dx(), out.Rect.Dy())
	}
}

func TestEnhanceForOCR_Binary(t *testing.T) {
	crop := createPlateImage(80, 40, color.White, color.Black, image.Rect(30, 10, 50, 30))

	out := EnhanceForOCR(crop, false)
	for i, v := range out.Pix {
		if v != 0 && v != 255 {
			t.Fatalf("pixel %d: got %d, want 0 or 255", i, v)
		}
	}
}

func TestAdaptiveThreshold(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 40, 40))
	for i := range src.Pix {
		src.Pix[i] = 200
	}
	// A dark square in the middle
	for y := 15; y < 25; y++ {
		for x := 15; x < 25; x++ {
			src.SetGray(x, y, color.Gray{Y: 20})
		}
	}

	out := AdaptiveThreshold(src, 5, 2)
	if out.GrayAt(20, 20).Y != 0 {
		t.Error("center of dark square should be black")
	}
	if out.GrayAt(2, 2).Y != 255 {
		t.Error("uniform background should be white")
	}
}
