// Package grid arranges equally sized cells in rows, left to right and
// top to bottom.
package grid

// GetGridCoords returns the column and row of the cell at index in a grid
// with cols columns.
func GetGridCoords(index, cols int) (x, y int) {
	if cols <= 0 {
		cols = 1
	}
	return index % cols, index / cols
}

// Layout places cells of a fixed size with a gap between them and around
// the edges.
type Layout struct {
	Cols         int
	CellW, CellH  int
	Gap           int
}

// Origin returns the top-left pixel of the cell at index.
func (l Layout) Origin(index int) (px, py int) {
	x, y := GetGridCoords(index, l.Cols)
	return l.Gap + x*(l.CellW+l.Gap), l.Gap + y*(l.CellH+l.Gap)
}

// Size returns the pixel size of a grid holding n cells.
func (l Layout) Size(n int) (w, h int) {
	cols := l.Cols
	if cols <= 0 {
		cols = 1
	}
	if n < cols {
		cols = n
	}
	if cols == 0 {
		return l.Gap * 2, l.Gap * 2
	}
	rows := (n + cols - 1) / cols
	return l.Gap + cols*(l.CellW+l.Gap), l.Gap + rows*(l.CellH+l.Gap)
}

// At returns the index of the cell under pixel (px, py), or -1 if the
// pixel lies in a gap or outside the first n cells.
func (l Layout) At(px, py, n int) int {
	if px < l.Gap || py < l.Gap {
		return -1
	}
	cols := l.Cols
	if cols <= 0 {
		cols = 1
	}
	x, rx := (px-l.Gap)/(l.CellW+l.Gap), (px-l.Gap)%(l.CellW+l.Gap)
	y, ry := (py-l.Gap)/(l.CellH+l.Gap), (py-l.Gap)%(l.CellH+l.Gap)
	if x >= cols || rx >= l.CellW || ry >= l.CellH {
		return -1
	}
	if i := y*cols + x; i < n {
		return i
	}
	return -1
}
