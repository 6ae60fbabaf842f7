package abc

import "strings"

// Part is one part of a song: its X: number plus the optional name and
// target-instrument text found inside the block. MadeFor is the raw
// string; the caller resolves it against the instrument catalog.
type Part struct {
	Number  int
	Name    string
	MadeFor string
}

// Parts extracts the ordered part list from a header's blocks. The first
// %%part-name and %%made-for inside each block win. A file with no X:
// lines yields an empty list.
func Parts(h Header) []Part {
	parts := make([]Part, 0, len(h.Blocks))
	for _, b := range h.Blocks {
		p := Part{Number: b.Number}
		for _, line := range b.Lines {
			m := tagRe.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			val := strings.TrimSpace(m[2])
			switch m[1] {
			case "part-name":
				if p.Name == "" {
					p.Name = val
				}
			case "made-for":
				if p.MadeFor == "" {
					p.MadeFor = val
				}
			}
		}
		parts = append(parts, p)
	}
	return parts
}
