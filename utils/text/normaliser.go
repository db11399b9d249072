package text

import (
	"regexp"
	"strings"
)

type INormalizer interface {
	Normalize(text string) string
}

// SpeechNormalizer prepares model output for a synthesis engine. Markdown
// markers and pictographs are read aloud literally by most engines, so they
// are removed and whitespace is collapsed.
type SpeechNormalizer struct{}

func NewSpeechNormalizer() *SpeechNormalizer {
	return &SpeechNormalizer{}
}

func (n *SpeechNormalizer) Normalize(input string) string {
	text := removeMarkdown(input)
	text = removeEmojis(text)
	text = multipleSpacesRegex.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

var markdownReplacer = strings.NewReplacer(
	"**", "", // bold
	"__", "", // underline
	"~~", "", // strikethrough
	"`", "", // inline code
	"*", "", // italic
)

func removeMarkdown(text string) string {
	text = headingRegex.ReplaceAllString(text, "")
	text = bulletRegex.ReplaceAllString(text, "")
	text = linkRegex.ReplaceAllString(text, "$1")
	return markdownReplacer.Replace(text)
}

func removeEmojis(text string) string {
	return removeEmojiRegex.ReplaceAllString(text, "")
}

var (
	// Pictographs, dingbats, flags and skin tones, plus the joiners,
	// variation selectors, keycap marks and tag characters that build emoji
	// sequences. Currency, math and unit signs are left for the engine to read.
	removeEmojiRegex    = regexp.MustCompile(`[\x{1F000}-\x{1FAFF}\x{2600}-\x{27BF}\x{2300}-\x{23FF}\x{2B00}-\x{2BFF}\x{3030}\x{303D}\x{3297}\x{3299}\x{200D}\x{20E3}\x{FE00}-\x{FE0F}\x{E0020}-\x{E007F}]`)
	multipleSpacesRegex = regexp.MustCompile(`\s+`)
	headingRegex        = regexp.MustCompile(`(?m)^\s{0,3}#{1,6}\s+`)
	bulletRegex         = regexp.MustCompile(`(?m)^\s*[-+]\s+`)
	linkRegex           = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
)
