package caption

import (
	"strings"
	"unicode"
)

const asciiPunctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// cjkPunctuation is the supplementary full-width set. Several entries (￥, ＄,
// ～) are symbols rather than Unicode punctuation.
const cjkPunctuation = "，。、！？；：【】《》（）——…“”‘’～·「」『』〔〕￥＄％＠＃＊—－‥︰︱︳︴︵︶︷︸︹︺︻︼︽︾︿﹀﹁﹂﹃﹄"

// IsPunctuation reports whether a token should attach to the previous word.
// A token qualifies only if it is non-empty, contains no whitespace, and each
// rune is Unicode punctuation, ASCII punctuation or a CJK full-width mark.
func IsPunctuation(text string) bool {
	if text == "" {
		return false
	}
	for _, r := range text {
		if unicode.IsSpace(r) {
			return false
		}
		if unicode.IsPunct(r) || strings.ContainsRune(asciiPunctuation, r) || strings.ContainsRune(cjkPunctuation, r) {
			continue
		}
		return false
	}
	return true
}

// isCJKIdeograph reports whether r lies in the CJK Unified Ideographs block.
func isCJKIdeograph(r rune) bool {
	return r >= 0x4E00 && r <= 0x9FFF
}

func isKana(r rune) bool {
	return r >= 0x3040 && r <= 0x30FF
}

// ContainsCJK reports whether text contains at least one CJK ideograph.
func ContainsCJK(text string) bool {
	return strings.IndexFunc(text, isCJKIdeograph) >= 0
}

// looksCJK is the broader check used for language hints; it also accepts kana.
func looksCJK(text string) bool {
	return strings.IndexFunc(text, func(r rune) bool { return isCJKIdeograph(r) || isKana(r) }) >= 0
}
