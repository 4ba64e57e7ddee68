package tts

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// abbreviations never end a sentence. They only match at the start of a
// word.
var abbreviations = map[string][]string{
	"a": {"Mr.", "Mrs.", "Ms.", "Dr.", "Prof.", "Sr.", "Jr.", "Inc.", "Corp.", "Ltd.", "Co.", "etc.", "vs.", "eg.", "i.e.", "e.g.", "Vol.", "Ch.", "Fig.", "No.", "p.", "pp."},
	"e": {"Sr.", "Sra.", "Dr.", "Dra.", "Prof.", "etc.", "pág.", "art.", "núm.", "cap.", "vol."},
	"f": {"M.", "Mme.", "Dr.", "Prof.", "etc.", "art.", "p.", "vol.", "ch.", "fig."},
	"h": {"डॉ.", "प्रो.", "etc.", "पृ.", "अध."},
	"i": {"Sig.", "Dr.", "Prof.", "ecc.", "pag.", "art.", "n.", "vol.", "cap.", "fig."},
	"p": {"Sr.", "Sra.", "Dr.", "Dra.", "Prof.", "etc.", "pág.", "art.", "vol.", "cap."},
}

type boundaryRule struct {
	terminators string
	// needSpace requires whitespace after the terminator; the split
	// consumes it.
	needSpace bool
	// needUpper requires the next sentence to start with an upper-case
	// letter, '_' or one of openers.
	needUpper bool
	openers   string
}

func ruleFor(langCode string) boundaryRule {
	switch langCode {
	case "h":
		return boundaryRule{terminators: "।!?", needSpace: true}
	case "z", "j":
		return boundaryRule{terminators: "。！？"}
	case "e":
		return boundaryRule{terminators: ".!?", needSpace: true, needUpper: true, openers: "¿¡"}
	default:
		return boundaryRule{terminators: ".!?", needSpace: true, needUpper: true}
	}
}

func abbreviationsFor(langCode string) []string {
	if langCode == "b" {
		langCode = "a"
	}
	return abbreviations[langCode]
}

// SplitSentences breaks text into sentences for Kokoro's language code.
//
// Latin-script languages split after . ! ? followed by whitespace and an
// upper-case letter. Hindi splits after । ! ? and whitespace. Chinese and
// Japanese split right after 。！？. Known abbreviations ("Dr.", "etc.")
// do not end a sentence. Blank input yields nil; text without a boundary
// yields one sentence.
func SplitSentences(text, langCode string) []string {
	text = strings.TrimSpace(norm.NFC.String(text))
	if text == "" {
		return nil
	}
	rule := ruleFor(langCode)
	abbrevs := abbreviationsFor(langCode)

	var out []string
	start := 0
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		end := i + size
		i = end
		if !strings.ContainsRune(rule.terminators, r) || endsWithAbbreviation(text[start:end], abbrevs) {
			continue
		}

		next := end
		if rule.needSpace {
			for next < len(text) {
				ws, wsize := utf8.DecodeRuneInString(text[next:])
				if !unicode.IsSpace(ws) {
					break
				}
				next += wsize
			}
			if next == end || next == len(text) {
				continue
			}
		}
		if rule.needUpper {
			first, _ := utf8.DecodeRuneInString(text[next:])
			if !unicode.IsUpper(first) && first != '_' && !strings.ContainsRune(rule.openers, first) {
				continue
			}
		}

		if s := strings.TrimSpace(text[start:end]); s != "" {
			out = append(out, s)
		}
		start = next
		i = next
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}
	if len(out) == 0 {
		return []string{text}
	}
	return out
}

// endsWithAbbreviation reports whether s ends with one of abbrevs starting
// at a word boundary.
func endsWithAbbreviation(s string, abbrevs []string) bool {
	for _, a := range abbrevs {
		if !strings.HasSuffix(s, a) {
			continue
		}
		before := s[:len(s)-len(a)]
		if before == "" {
			return true
		}
		r, _ := utf8.DecodeLastRuneInString(before)
		if unicode.IsSpace(r) || r == '(' || r == '"' {
			return true
		}
	}
	return false
}
