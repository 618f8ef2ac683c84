package syntax

func formatSpecifierEnd(ch rune) bool {
	return ch == 'd' ||
		ch == 'i' ||
		ch == 'u' ||
		ch == 'o' ||
		ch == 'x' ||
		ch == 'X' ||
		ch == 'f' ||
		ch == 'F' ||
		ch == 'e' ||
		ch == 'E' ||
		ch == 'g' ||
		ch == 'G' ||
		ch == 'a' ||
		ch == 'c' ||
		ch == 's' ||
		ch == 'p' ||
		ch == '%'
}

// Placeholders returns the conversion character of every placeholder in a
// printf format, in order. "%%" is a literal percent and is not returned; a
// trailing unterminated '%' is ignored.
func Placeholders(format string) []rune {
	var convs []rune
	runes := []rune(format)
	i := 0
	for i < len(runes) {
		if runes[i] != '%' {
			i++
			continue
		}
		j := i + 1
		// flags, width, precision and length modifiers
		for j < len(runes) && !formatSpecifierEnd(runes[j]) {
			j++
		}
		if j == len(runes) {
			break
		}
		if runes[j] != '%' {
			convs = append(convs, runes[j])
		}
		i = j + 1
	}
	return convs
}

// PlaceholderClass is the value class a conversion character expects.
func PlaceholderClass(conv rune) Class {
	switch conv {
	case 'f', 'F', 'e', 'E', 'g', 'G', 'a':
		return Float
	}
	return Int
}
