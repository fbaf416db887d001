package plate

// confusions maps letters OCR engines commonly read in place of a digit.
var confusions = map[byte]byte{
	'O': '0',
	'I': '1',
	'S': '5',
	'B': '8',
}

// CorrectConfusions normalizes s and replaces O, I, S and B with 0, 1, 5
// and 8 where the letter sits directly between two digits, as in "12O4".
//
// Neighbors are taken from the normalized input, not from earlier
// replacements. Text outside 4-8 characters is returned normalized but
// uncorrected.
func CorrectConfusions(s string) string {
	text := Normalize(s)
	if len(text) < 4 || len(text) > 8 {
		return text
	}

	out := []byte(text)
	for i := 1; i < len(text)-1; i++ {
		d, ok := confusions[text[i]]
		if !ok {
			continue
		}
		if isDigit(text[i-1]) && isDigit(text[i+1]) {
			out[i] = d
		}
	}
	return string(out)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
