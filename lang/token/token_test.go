package token

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenString(t *testing.T) {
	for tok := Token(0); tok < maxToken; tok++ {
		if tok.String() == "" {
			t.Errorf("missing string representation of token %d", tok)
		}
	}
}

func TestGoStringQuotesPunctuation(t *testing.T) {
	require.Equal(t, "'+'", PLUS.GoString())
	require.Equal(t, "'--'", MINUS_MINUS.GoString())
	require.Equal(t, "identifier", IDENT.GoString())
	require.Equal(t, "class", CLASS.GoString())
}

func TestKeywordsRoundTrip(t *testing.T) {
	for word, tok := range Keywords {
		require.Equal(t, word, tok.String())
	}
}

func TestKeywordsAreNotIdentifiers(t *testing.T) {
	for word, tok := range Keywords {
		require.NotEqual(t, IDENT, tok, word)
	}
}
