package grid

import "testing"

func TestGetGridCoords(t *testing.T) {
	tests := []struct {
		index int
		cols  int
		wantX int
		wantY int
	}{
		// single column: one page per row
		{0, 1, 0, 0},
		{3, 1, 0, 3},

		// two-page spreads
		{0, 2, 0, 0},
		{1, 2, 1, 0},
		{2, 2, 0, 1},
		{5, 2, 1, 2},

		// overview
		{7, 4, 3, 1},
		{8, 4, 0, 2},

		// a non-positive column count acts like one column
		{2, 0, 0, 2},
	}

	for _, tc := range tests {
		gotX, gotY := GetGridCoords(tc.index, tc.cols)
		if gotX != tc.wantX || gotY != tc.wantY {
			t.Errorf("GetGridCoords(%d, %d) = (%d, %d); want (%d, %d)", tc.index, tc.cols, gotX, gotY, tc.wantX, tc.wantY)
		}
	}
}

func TestLayout(t *testing.T) {
	l := Layout{Cols: 2, CellW: 100, CellH: 140, Gap: 10}

	if x, y := l.Origin(3); x != 120 || y != 160 {
		t.Errorf("Origin(3) = (%d, %d); want (120, 160)", x, y)
	}
	if w, h := l.Size(3); w != 230 || h != 310 {
		t.Errorf("Size(3) = (%d, %d); want (230, 310)", w, h)
	}
	if w, h := l.Size(1); w != 120 || h != 160 {
		t.Errorf("Size(1) = (%d, %d); want (120, 160)", w, h)
	}

	hits := []struct {
		px, py int
		want   int
	}{
		{15, 15, 0},
		{125, 15, 1},
		{15, 165, 2},
		{125, 165, -1}, // no fourth cell
		{115, 15, -1},  // gap
		{5, 5, -1},     // margin
	}
	for _, h := range hits {
		if got := l.At(h.px, h.py, 3); got != h.want {
			t.Errorf("At(%d, %d) = %d; want %d", h.px, h.py, got, h.want)
		}
	}
}
