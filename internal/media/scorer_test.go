package media

import (
	"math"
	"testing"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name string
		file string
		size int64
		want float64
	}{
		{name: "plain png", file: "a.png", size: 0, want: 0},
		{name: "jpg bonus", file: "a.jpg", size: 0, want: 10},
		{name: "jpeg bonus", file: "a.JPEG", size: 0, want: 10},
		{name: "render", file: "Render_01.png", size: 0, want: 100},
		{name: "stacked keywords", file: "main_render_preview.jpg", size: 0, want: 100 + 80 + 70 + 10},
		{name: "thumb", file: "thumbnail.png", size: 0, want: 60},
		{name: "size in MiB", file: "a.png", size: 3 << 20, want: 3},
		{name: "keyword in directory", file: "renders/01.png", size: 1 << 19, want: 100.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.file, tt.size); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Score(%q, %d) = %v, want %v", tt.file, tt.size, got, tt.want)
			}
		})
	}
}

func TestPickBest(t *testing.T) {
	tests := []struct {
		name   string
		cands  []Candidate
		want   string
		wantOK bool
	}{
		{name: "empty", cands: nil, wantOK: false},
		{
			name:   "keyword beats size",
			cands:  []Candidate{{"big.png", 50 << 20}, {"render.png", 0}},
			want:   "render.png",
			wantOK: true,
		},
		{
			name:   "size decides without keywords",
			cands:  []Candidate{{"a.png", 1 << 20}, {"b.png", 2 << 20}},
			want:   "b.png",
			wantOK: true,
		},
		{
			name:   "tie keeps first",
			cands:  []Candidate{{"one.png", 100}, {"two.png", 100}, {"three.png", 100}},
			want:   "one.png",
			wantOK: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := PickBest(tt.cands)
			if ok != tt.wantOK || got.Name != tt.want {
				t.Errorf("PickBest() = (%q, %v), want (%q, %v)", got.Name, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestPickFolder(t *testing.T) {
	tests := []struct {
		name  string
		cands []Candidate
		want  string
	}{
		{
			name:  "screenshot short-circuits scoring",
			cands: []Candidate{{"main_render.jpg", 10 << 20}, {"x.png", 0}, {"screenshot.png", 0}},
			want:  "main_render.jpg",
		},
		{
			name:  "first keyword wins even with lower score",
			cands: []Candidate{{"display.png", 0}, {"render_main.jpg", 10 << 20}},
			want:  "display.png",
		},
		{
			name:  "falls back to scoring",
			cands: []Candidate{{"a.png", 0}, {"thumb.png", 0}},
			want:  "thumb.png",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := PickFolder(tt.cands)
			if !ok || got.Name != tt.want {
				t.Errorf("PickFolder() = (%q, %v), want %q", got.Name, ok, tt.want)
			}
		})
	}
}

func TestRankStable(t *testing.T) {
	cands := []Candidate{{"b.png", 0}, {"render.png", 0}, {"a.png", 0}, {"c.jpg", 0}}
	got := Rank(cands)
	want := []string{"render.png", "c.jpg", "b.png", "a.png"}
	for i := range want {
		if got[i].Name != want[i] {
			t.Fatalf("Rank() = %v, want order %v", got, want)
		}
	}
	if cands[0].Name != "b.png" {
		t.Error("Rank() modified its input")
	}
}

func TestIsImageName(t *testing.T) {
	for _, name := range []string{"a.jpg", "a.JPEG", "a.png", "a.webp", "a.bmp", "a.gif"} {
		if !IsImageName(name) {
			t.Errorf("IsImageName(%q) = false", name)
		}
	}
	for _, name := range []string{"a.tiff", "a.stl", "a"} {
		if IsImageName(name) {
			t.Errorf("IsImageName(%q) = true", name)
		}
	}
}
