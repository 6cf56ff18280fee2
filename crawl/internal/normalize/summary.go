package normalize

import "strings"

const (
	// summaryThreshold is the content length above which a summary is
	// extracted instead of echoing the content.
	summaryThreshold = 500
	// summaryMaxSentences caps how many leading sentences a summary keeps.
	summaryMaxSentences = 3
	// summaryMaxLen soft-caps the summary length in bytes.
	summaryMaxLen = 300
)

// Summarize produces the summary field for normalized items. Short
// content is returned unchanged; long content is cut down to its first
// sentences within the length cap.
func Summarize(content string) string {
	content = strings.TrimSpace(content)
	if len(content) <= summaryThreshold {
		return content
	}
	sentences := splitSentences(content)
	if len(sentences) == 0 {
		return truncateWords(content, summaryMaxLen)
	}

	var b strings.Builder
	for i, s := range sentences {
		if i >= summaryMaxSentences {
			break
		}
		if b.Len() > 0 && b.Len()+1+len(s) > summaryMaxLen {
			break
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(s)
	}
	out := b.String()
	if len(out) > summaryMaxLen {
		out = truncateWords(out, summaryMaxLen)
	}
	return out
}

// splitSentences cuts text at terminal punctuation followed by
// whitespace. Good enough for summaries; not a linguistic tokenizer.
func splitSentences(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '.' && c != '!' && c != '?' {
			continue
		}
		if i+1 < len(text) && !isSpace(text[i+1]) {
			continue
		}
		s := strings.TrimSpace(text[start : i+1])
		if s != "" {
			out = append(out, s)
		}
		start = i + 1
	}
	if rest := strings.TrimSpace(text[start:]); rest != "" {
		out = append(out, rest)
	}
	return out
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// truncateWords cuts s to at most max bytes, preferring a word boundary
// and never splitting a multi-byte rune.
func truncateWords(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := strings.ToValidUTF8(s[:max], "")
	if i := strings.LastIndexByte(cut, ' '); i > max/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,;:") + "..."
}
