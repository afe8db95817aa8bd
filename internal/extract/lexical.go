package extract

import "sort"

// region is a half-open byte range [start, end) that holds no code.
type region struct {
	start, end int
}

// regions is sorted by start and never overlaps.
type regions []region

func (r regions) inside(pos int) bool {
	if len(r) == 0 {
		return false
	}
	i := sort.Search(len(r), func(i int) bool { return r[i].end > pos })
	return i < len(r) && r[i].start <= pos
}

// nonCode locates comments, string literals and escaped identifiers in Verilog text.
// Unterminated block comments and strings run to the end of the input.
func nonCode(src string) regions {
	var out regions
	n := len(src)

	for i := 0; i < n; {
		switch {
		case src[i] == '/' && i+1 < n && src[i+1] == '/':
			end := i + 2
			for end < n && src[end] != '\n' {
				end++
			}
			out = append(out, region{i, end})
			i = end

		case src[i] == '/' && i+1 < n && src[i+1] == '*':
			end := i + 2
			for end < n && !(src[end] == '*' && end+1 < n && src[end+1] == '/') {
				end++
			}
			if end < n {
				end += 2
			}
			out = append(out, region{i, end})
			i = end

		case src[i] == '"':
			end := i + 1
			for end < n && src[end] != '"' {
				if src[end] == '\\' {
					end++
				}
				end++
			}
			if end < n {
				end++
			}
			if end > n {
				end = n
			}
			out = append(out, region{i, end})
			i = end

		case src[i] == '\\':
			// Escaped identifier: backslash up to the next whitespace
			end := i + 1
			for end < n && !isSpace(src[end]) {
				end++
			}
			out = append(out, region{i, end})
			i = end

		default:
			i++
		}
	}
	return out
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == '\v'
}
