package text

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpeechNormalizer(t *testing.T) {
	n := NewSpeechNormalizer()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Selam!", "Selam!"},
		{"bold and italic", "This is **very** *nice*.", "This is very nice."},
		{"inline code", "Run `make` now", "Run make now"},
		{"heading and bullets", "# Title\n- one\n- two", "Title one two"},
		{"link", "See [the docs](https://example.com) please", "See the docs please"},
		{"emoji", "Great job 🎉👍", "Great job"},
		{"accents survive", "Çok güzel, teşekkürler!", "Çok güzel, teşekkürler!"},
		{"whitespace", "  a \n\n b\t c  ", "a b c"},
		{"only markup", "** __ ~~", ""},
		{"degrees", "Bugün 20°C olacak", "Bugün 20°C olacak"},
		{"currency", "That costs $5 or €4", "That costs $5 or €4"},
		{"arithmetic", "1+1=2", "1+1=2"},
		{"emoji sequences", "Hava güzel ☀️ 👍🏽 👨‍👩‍👧", "Hava güzel"},
		{"keycap and flag", "Press 1️⃣ 🇹🇷", "Press 1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, n.Normalize(tc.in))
		})
	}
}
