package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokens(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"empty", "", []string{}},
		{"punctuation only", "+-*/ ();", []string{}},
		{"mixed case", "def Foo_Bar(x1):", []string{"def", "foo_bar", "x1"}},
		{"unicode letters", "ñandú = 'Çà'", []string{"ñandú", "çà"}},
		{"trailing token", "return total", []string{"return", "total"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TokenList(tt.text))
		})
	}
}

func TestTokensIsRestartableAndStoppable(t *testing.T) {
	seq := Tokens("a b c d")

	var first []string
	for tok := range seq {
		first = append(first, tok)
		if len(first) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"a", "b"}, first)

	var all []string
	for tok := range seq {
		all = append(all, tok)
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, all)
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "abc", truncateRunes("abc", 5))
	assert.Equal(t, "ab", truncateRunes("abc", 2))
	assert.Equal(t, "日本", truncateRunes("日本語", 2))
}

func TestParseDecodePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    DecodePolicy
		wantErr bool
	}{
		{"", DecodeSkip, false},
		{"skip", DecodeSkip, false},
		{" Replace ", DecodeReplace, false},
		{"fail", DecodeFail, false},
		{"ignore", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDecodePolicy(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecode(t *testing.T) {
	raw := []byte("ok\xffgo")

	got, err := Decode(raw, DecodeSkip)
	require.NoError(t, err)
	assert.Equal(t, "okgo", got)

	got, err = Decode(raw, DecodeReplace)
	require.NoError(t, err)
	assert.Equal(t, "ok�go", got)

	_, err = Decode(raw, DecodeFail)
	assert.ErrorIs(t, err, ErrInvalidEncoding)

	got, err = Decode([]byte("valid"), DecodeFail)
	require.NoError(t, err)
	assert.Equal(t, "valid", got)
}
