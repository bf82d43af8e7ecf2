package scanner

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dictu-lang/dictu/lang/token"
)

func scanAll(t *testing.T, src string) ([]token.Token, []token.Value) {
	t.Helper()

	var s Scanner
	var errs []string
	s.Init([]byte(src), func(line int, msg string) {
		errs = append(errs, msg)
	})

	var toks []token.Token
	var vals []token.Value
	for {
		var v token.Value
		tok := s.Scan(&v)
		toks = append(toks, tok)
		vals = append(vals, v)
		if tok == token.EOF {
			break
		}
	}
	require.Empty(t, errs)
	return toks, vals
}

func TestScanPunctuationAndCompoundAssignment(t *testing.T) {
	toks, _ := scanAll(t, "x += 1; y ** 2 .. 3")
	require.Equal(t, []token.Token{
		token.IDENT, token.PLUS_EQ, token.NUMBER, token.SEMI,
		token.IDENT, token.STARSTAR, token.NUMBER, token.DOT_DOT, token.NUMBER,
		token.EOF,
	}, toks)
}

func TestScanKeywords(t *testing.T) {
	toks, _ := scanAll(t, "class trait use static this super def")
	require.Equal(t, []token.Token{
		token.CLASS, token.TRAIT, token.USE, token.STATIC, token.THIS, token.SUPER, token.DEF,
		token.EOF,
	}, toks)
}

func TestScanStringEscapes(t *testing.T) {
	_, vals := scanAll(t, `"a\nb\tc\\d\'e"`)
	require.Equal(t, "a\nb\tc\\d'e", vals[0].String)
}

func TestScanStringPassesThroughUnknownEscape(t *testing.T) {
	_, vals := scanAll(t, `"a\qb"`)
	require.Equal(t, `a\qb`, vals[0].String)
}

func TestScanNumber(t *testing.T) {
	_, vals := scanAll(t, "123 1.5")
	require.Equal(t, float64(123), vals[0].Number)
	require.Equal(t, 1.5, vals[1].Number)
}

func TestScanLineComment(t *testing.T) {
	toks, vals := scanAll(t, "1 // a comment\n2")
	require.Equal(t, []token.Token{token.NUMBER, token.NUMBER, token.EOF}, toks)
	require.Equal(t, 1, vals[0].Line)
	require.Equal(t, 2, vals[1].Line)
}

func TestMarkAndResetBacktracks(t *testing.T) {
	var s Scanner
	s.Init([]byte("{ } ;"), nil)

	var v token.Value
	m := s.Mark()
	require.Equal(t, token.LBRACE, s.Scan(&v))
	require.Equal(t, token.RBRACE, s.Scan(&v))

	s.Reset(m)
	require.Equal(t, token.LBRACE, s.Scan(&v))
	require.Equal(t, token.RBRACE, s.Scan(&v))
	require.Equal(t, token.SEMI, s.Scan(&v))
}

func TestIllegalCharacterReportsError(t *testing.T) {
	var s Scanner
	var msgs []string
	s.Init([]byte("1 @ 2"), func(line int, msg string) {
		msgs = append(msgs, msg)
	})
	var v token.Value
	for tok := s.Scan(&v); tok != token.EOF; tok = s.Scan(&v) {
	}
	require.Len(t, msgs, 1)
}
