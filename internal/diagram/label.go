package diagram

import "strings"

// MaxLabelLen is the longest rendered label, in characters.
const MaxLabelLen = 50

const ellipsis = "..."

var labelReplacer = strings.NewReplacer(
	`"`, "'",
	"\r\n", " ",
	"\r", " ",
	"\n", " ",
	"{", "&#123;",
	"}", "&#125;",
	"[", "&#91;",
	"]", "&#93;",
)

// EscapeLabel makes text safe inside Mermaid node brackets.
func EscapeLabel(text string) string {
	return labelReplacer.Replace(text)
}

// Label escapes text and truncates the result to MaxLabelLen characters,
// ending it with "..." when anything was cut.
func Label(text string) string {
	return truncate(EscapeLabel(text), MaxLabelLen)
}

// DecisionLabel renders a condition followed by "?". The condition is cut
// one character earlier than other labels so the whole label, question mark
// included, stays within MaxLabelLen.
func DecisionLabel(cond string) string {
	return truncate(EscapeLabel(cond), MaxLabelLen-1) + "?"
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-len(ellipsis)]) + ellipsis
}
