package ui

// 3x5 glyphs, one row per byte, bit 2 is the leftmost column
const (
	glyphWidth  = 3
	glyphHeight = 5
)

var glyphs = map[byte][glyphHeight]byte{
	'0': {0b111, 0b101, 0b101, 0b101, 0b111},
	'1': {0b010, 0b110, 0b010, 0b010, 0b111},
	'2': {0b111, 0b001, 0b111, 0b100, 0b111},
	'3': {0b111, 0b001, 0b111, 0b001, 0b111},
	'4': {0b101, 0b101, 0b111, 0b001, 0b001},
	'5': {0b111, 0b100, 0b111, 0b001, 0b111},
	'6': {0b111, 0b100, 0b111, 0b101, 0b111},
	'7': {0b111, 0b001, 0b010, 0b010, 0b010},
	'8': {0b111, 0b101, 0b111, 0b101, 0b111},
	'9': {0b111, 0b101, 0b111, 0b001, 0b111},
	'-': {0b000, 0b000, 0b111, 0b000, 0b000},
	'+': {0b000, 0b010, 0b111, 0b010, 0b000},
	'F': {0b111, 0b100, 0b110, 0b100, 0b100},
	'R': {0b110, 0b101, 0b110, 0b101, 0b101},
	'A': {0b010, 0b101, 0b111, 0b101, 0b101},
	'S': {0b011, 0b100, 0b010, 0b001, 0b110},
	' ': {},
}

// glyphPixel reports whether column x, row y of ch is lit. Unknown
// characters render blank.
func glyphPixel(ch byte, x, y int) bool {
	g, ok := glyphs[ch]
	if !ok {
		return false
	}
	return g[y]&(1<<(glyphWidth-1-x)) != 0
}
