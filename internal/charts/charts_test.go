package charts

import (
	"bytes"
	"errors"
	"image/png"
	"testing"
)

var months = []string{"Ene", "Feb", "Mar", "Abr", "May", "Jun", "Jul", "Ago", "Sep", "Oct", "Nov", "Dic"}

func TestGenerator_Render(t *testing.T) {
	g := &Generator{Width: 600, Height: 300}

	tests := []struct {
		name string
		spec Spec
	}{
		{
			name: "bars",
			spec: Spec{Title: "Ingresos", Labels: months, Style: Bars,
				Series: []Series{{Name: "Ingresos", Values: []float64{100, 50, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}}}},
		},
		{
			name: "all zero bars",
			spec: Spec{Title: "Vacío", Labels: months, Style: Bars,
				Series: []Series{{Name: "Ingresos", Values: make([]float64, 12)}}},
		},
		{
			name: "negative bars",
			spec: Spec{Title: "Utilidad", Labels: months, Style: Bars,
				Series: []Series{{Name: "Utilidad", Values: []float64{-20, 30, 0, 0, 0, 0, 0, 0, 0, 0, 0, 5}}}},
		},
		{
			name: "lines",
			spec: Spec{Title: "Comparación", Labels: months, Style: Lines, Series: []Series{
				{Name: "Ingresos", Values: []float64{100, 50, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}},
				{Name: "Gastos", Values: []float64{10, 80, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}},
			}},
		},
		{
			name: "single week line",
			spec: Spec{Title: "Semanal", Labels: []string{"Semana 1 (01/01 - 07/01)"}, Style: Lines,
				Series: []Series{{Name: "Ventas", Values: []float64{42}}}},
		},
		{
			name: "single month comparison",
			spec: Spec{Title: "Comparación", Labels: []string{"Enero"}, Style: Lines, Series: []Series{
				{Name: "Ingresos", Values: []float64{100}},
				{Name: "Gastos", Values: []float64{40}},
			}},
		},
		{
			name: "percent",
			spec: Spec{Title: "Margen", Labels: months, Style: Bars, Percent: true,
				Series: []Series{{Name: "Margen", Values: []float64{50, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := g.Render(tt.spec)
			if err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			cfg, err := png.DecodeConfig(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("output is not a PNG: %v", err)
			}
			if cfg.Width != 600 || cfg.Height != 300 {
				t.Errorf("size = %dx%d, want 600x300", cfg.Width, cfg.Height)
			}
		})
	}
}

func TestGenerator_RenderRejectsBadSpecs(t *testing.T) {
	g := NewGenerator()

	if _, err := g.Render(Spec{Title: "x"}); !errors.Is(err, ErrNoData) {
		t.Errorf("empty spec error = %v, want ErrNoData", err)
	}
	_, err := g.Render(Spec{Labels: months, Series: []Series{{Name: "short", Values: []float64{1}}}})
	if err == nil {
		t.Error("mismatched series length should fail")
	}
}

func TestThumbnail(t *testing.T) {
	g := &Generator{Width: 800, Height: 400}
	full, err := g.Render(Spec{Labels: months, Series: []Series{{Name: "x", Values: make([]float64, 12)}}})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	thumb, err := Thumbnail(full, 200)
	if err != nil {
		t.Fatalf("Thumbnail() error = %v", err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(thumb))
	if err != nil {
		t.Fatalf("thumbnail is not a PNG: %v", err)
	}
	if cfg.Width != 200 || cfg.Height != 100 {
		t.Errorf("thumbnail size = %dx%d, want 200x100", cfg.Width, cfg.Height)
	}

	if _, err := Thumbnail([]byte("not an image"), 200); err == nil {
		t.Error("Thumbnail() of garbage should fail")
	}
	if _, err := Thumbnail(full, 0); err == nil {
		t.Error("Thumbnail() with zero size should fail")
	}
}
