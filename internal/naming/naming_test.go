package naming

import (
	"path/filepath"
	"testing"
)

func TestStem(t *testing.T) {
	tests := []struct{ in, want string }{
		{"/a/b/car.lxf", "car"},
		{"model.v2.lxfml", "model.v2"},
		{"noext", "noext"},
	}
	for _, tt := range tests {
		if got := Stem(tt.in); got != tt.want {
			t.Errorf("Stem(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestOutputPath(t *testing.T) {
	in := filepath.Join("models", "sub", "truck.lxfml")
	tests := []struct {
		name      string
		outputDir string
		ext       string
		want      string
	}{
		{"explicit dir", "out", ".nif", filepath.Join("out", "truck.nif")},
		{"beside input", "", ".nif", filepath.Join("models", "sub", "truck.nif")},
		{"render image", "", ".png", filepath.Join("models", "sub", "truck.png")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OutputPath(in, tt.outputDir, tt.ext); got != tt.want {
				t.Errorf("OutputPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCollisionResolver(t *testing.T) {
	cr := NewCollisionResolver()
	out := filepath.Join("out", "car.nif")

	if got := cr.Resolve("a/car.lxf", out); got != out {
		t.Fatalf("first claim = %q, want %q", got, out)
	}
	if got := cr.Resolve("a/car.lxf", out); got != out {
		t.Errorf("same owner re-resolve = %q, want %q", got, out)
	}

	want1 := filepath.Join("out", "car_1.nif")
	if got := cr.Resolve("a/car.lxfml", out); got != want1 {
		t.Errorf("second claim = %q, want %q", got, want1)
	}
	want2 := filepath.Join("out", "car_2.nif")
	if got := cr.Resolve("b/car.lxf", out); got != want2 {
		t.Errorf("third claim = %q, want %q", got, want2)
	}
}

func TestCollisionResolver_CaseInsensitive(t *testing.T) {
	cr := NewCollisionResolver()
	cr.Resolve("x/Car.lxf", filepath.Join("out", "Car.nif"))

	want := filepath.Join("out", "car_1.nif")
	if got := cr.Resolve("y/car.lxf", filepath.Join("out", "car.nif")); got != want {
		t.Errorf("Resolve() = %q, want %q", got, want)
	}
}

func TestCollisionResolver_SkipsClaimedSuffix(t *testing.T) {
	cr := NewCollisionResolver()
	cr.Resolve("a/car_1.lxf", filepath.Join("out", "car_1.nif"))
	cr.Resolve("a/car.lxf", filepath.Join("out", "car.nif"))

	want := filepath.Join("out", "car_2.nif")
	if got := cr.Resolve("b/car.lxf", filepath.Join("out", "car.nif")); got != want {
		t.Errorf("Resolve() = %q, want %q", got, want)
	}
}
