package token

// Value carries the literal payload that accompanies a scanned Token: the
// raw source text plus, for NUMBER and STRING tokens, the decoded value.
type Value struct {
	Raw    string  // the token's source text
	Line   int     // 1-based source line the token starts on
	Number float64 // decoded value, for NUMBER
	String string  // decoded value (escapes resolved), for STRING
}
