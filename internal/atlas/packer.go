package atlas

// Packer places rectangles left to right in shelves, opening a new shelf
// below the tallest item of the current one when a row is full.
type Packer struct {
	W, H int
	x, y int
	rowH int
}

func NewPacker(w, h int) *Packer {
	return &Packer{W: w, H: h}
}

// Pack reserves a w by h area and returns its top-left corner. ok is false
// when the area does not fit.
func (p *Packer) Pack(w, h int) (x, y int, ok bool) {
	if w <= 0 || h <= 0 || w > p.W || h > p.H {
		return 0, 0, false
	}
	if p.x+w > p.W {
		p.x = 0
		p.y += p.rowH
		p.rowH = 0
	}
	if p.y+h > p.H {
		return 0, 0, false
	}
	if h > p.rowH {
		p.rowH = h
	}

	x, y = p.x, p.y
	p.x += w
	return x, y, true
}

// Used is the height of the packed region so far.
func (p *Packer) Used() int { return p.y + p.rowH }

func (p *Packer) Reset() {
	p.x, p.y, p.rowH = 0, 0, 0
}
