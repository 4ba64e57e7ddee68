package caption

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var vttTimestamp = regexp.MustCompile(`^(?:(\d{1,2}):)?(\d{2}):(\d{2}\.\d{1,3})$`)

// ParseVTTTimestamp parses "HH:MM:SS.mmm" or "MM:SS.mmm". A comma is
// accepted as the decimal separator.
func ParseVTTTimestamp(ts string) (float64, error) {
	m := vttTimestamp.FindStringSubmatch(strings.ReplaceAll(strings.TrimSpace(ts), ",", "."))
	if m == nil {
		return 0, fmt.Errorf("%w: timestamp %q", ErrInvalidVTT, ts)
	}
	h := 0
	if m[1] != "" {
		h, _ = strconv.Atoi(m[1])
	}
	mins, _ := strconv.Atoi(m[2])
	secs, _ := strconv.ParseFloat(m[3], 64)
	return float64(h*3600+mins*60) + secs, nil
}

// FormatVTTTimestamp renders seconds as HH:MM:SS.mmm.
func FormatVTTTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	ms := int64(math.Round(seconds * 1000))
	return fmt.Sprintf("%02d:%02d:%02d.%03d", ms/3600000, ms/60000%60, ms/1000%60, ms%1000)
}

// ParseVTT reads a WebVTT document into sentence-level tokens.
//
// The header, blank lines and numeric cue identifiers are skipped. Cue
// settings after the end timestamp are ignored and multi-line cue text is
// joined with single spaces. Cues without text are dropped.
func ParseVTT(text string) ([]Token, error) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	tokens := []Token{}

	i := 0
	for i < len(lines) {
		line := strings.TrimSpace(lines[i])
		i++
		if line == "" || strings.HasPrefix(strings.ToUpper(line), "WEBVTT") {
			continue
		}
		if isDigits(line) {
			if i >= len(lines) {
				break
			}
			line = strings.TrimSpace(lines[i])
			i++
		}
		if strings.Contains(line, "-->") {
			start, end, err := parseCueTiming(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", i, err)
			}
			var buf []string
			for i < len(lines) && strings.TrimSpace(lines[i]) != "" {
				buf = append(buf, strings.TrimSpace(lines[i]))
				i++
			}
			if cue := strings.TrimSpace(strings.Join(buf, " ")); cue != "" {
				tokens = append(tokens, Token{Text: cue, Start: start, End: end})
			}
		}
		for i < len(lines) && strings.TrimSpace(lines[i]) != "" {
			i++
		}
	}
	return tokens, nil
}

func parseCueTiming(line string) (float64, float64, error) {
	parts := strings.SplitN(line, "-->", 2)
	start, err := ParseVTTTimestamp(parts[0])
	if err != nil {
		return 0, 0, err
	}
	fields := strings.Fields(parts[1])
	if len(fields) == 0 {
		return 0, 0, fmt.Errorf("%w: missing end timestamp in %q", ErrInvalidVTT, line)
	}
	end, err := ParseVTTTimestamp(fields[0])
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// WriteVTT writes tokens as numbered WebVTT cues. Tokens with blank text are
// skipped but still consume a cue number.
func WriteVTT(w io.Writer, tokens []Token) error {
	bw := bufio.NewWriter(w)
	bw.WriteString("WEBVTT\n\n")
	for i, tok := range tokens {
		text := strings.TrimSpace(tok.Text)
		if text == "" {
			continue
		}
		fmt.Fprintf(bw, "%d\n%s --> %s\n%s\n\n", i+1, FormatVTTTimestamp(tok.Start), FormatVTTTimestamp(tok.End), text)
	}
	return bw.Flush()
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
