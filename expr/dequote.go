package expr

// Dequote strips one layer of SQL-style quoting from z and unescapes
// doubled quote characters, returning z unchanged if it is not
// quoted. Grounded on _examples/feyeleanor-wendigo/util.go's Dequote,
// extended the same way to treat '[' ... ']' (MS SQL Server style)
// and '`' ... '`' (MySQL style) as quote pairs alongside the single
// and double quote.
func Dequote(z string) string {
	if len(z) == 0 {
		return z
	}
	open := z[0]
	var close byte
	switch open {
	case '\'', '"', '`':
		close = open
	case '[':
		close = ']'
	default:
		return z
	}
	if len(z) < 2 || z[len(z)-1] != close {
		return z
	}
	body := z[1 : len(z)-1]
	if close == ']' {
		return body
	}
	out := make([]byte, 0, len(body))
	for i := 0; i < len(body); i++ {
		if body[i] == close && i+1 < len(body) && body[i+1] == close {
			out = append(out, close)
			i++
		} else {
			out = append(out, body[i])
		}
	}
	return string(out)
}

// SplitDottedName splits a possibly db.table.column or table.column
// or column name into its up-to-three parts, right to left, each
// individually dequoted (spec §4.2 step 1: "Dequote each of the three
// name parts"). Dots inside a quoted part are not treated as
// separators.
func SplitDottedName(text string) (db, table, column string) {
	parts := splitUnquoted(text, '.')
	for i, p := range parts {
		parts[i] = Dequote(p)
	}
	switch len(parts) {
	case 1:
		return "", "", parts[0]
	case 2:
		return "", parts[0], parts[1]
	default:
		n := len(parts)
		return parts[n-3], parts[n-2], parts[n-1]
	}
}

func splitUnquoted(s string, sep byte) []string {
	var parts []string
	var cur []byte
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			cur = append(cur, c)
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"' || c == '`':
			quote = c
			cur = append(cur, c)
		case c == '[':
			quote = ']'
			cur = append(cur, c)
		case c == sep:
			parts = append(parts, string(cur))
			cur = nil
		default:
			cur = append(cur, c)
		}
	}
	parts = append(parts, string(cur))
	return parts
}
