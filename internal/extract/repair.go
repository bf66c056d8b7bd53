package extract

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// maxRepairInput bounds the repair pass; larger inputs are reported as malformed.
const maxRepairInput = 16 << 10

// repair makes one lexical pass over s and fixes the mistakes language models
// commonly make when asked for compact JSON:
//
//   - leading prose before the first '{' or '[' and anything after the
//     top-level value is closed
//   - trailing commas before '}' or ']'
//   - missing closing quotes, braces and brackets at the end of input
//   - surplus or mismatched closers
//   - bare double quotes inside string values
//   - single-quoted strings, unquoted keys and Python literals (True, False, None)
//
// It never invents values: a dangling key stays dangling and the second decode
// fails. ok is false when there is nothing that looks like JSON.
func repair(s string) (string, bool) {
	if len(s) > maxRepairInput {
		return "", false
	}
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return "", false
	}
	r := repairer{src: []rune(s[start:])}
	r.out = make([]byte, 0, len(s)+8)
	return r.run(), true
}

type repairer struct {
	src   []rune
	out   []byte
	stack []rune // expected closers, innermost last
}

func (r *repairer) run() string {
	for i := 0; i < len(r.src); i++ {
		c := r.src[i]
		switch {
		case c == '"' || c == '\'':
			i = r.str(i, c)
		case c == '{':
			r.stack = append(r.stack, '}')
			r.out = append(r.out, '{')
		case c == '[':
			r.stack = append(r.stack, ']')
			r.out = append(r.out, '[')
		case c == '}' || c == ']':
			if !r.close(c) {
				continue
			}
			if len(r.stack) == 0 {
				return string(r.out)
			}
		case unicode.IsLetter(c) || c == '_':
			i = r.word(i)
		default:
			r.out = utf8.AppendRune(r.out, c)
		}
	}
	return r.finish()
}

// str copies a string literal opened at src[i] with quote q and returns the
// index of its closing quote. The output is always double-quoted.
func (r *repairer) str(i int, q rune) int {
	r.out = append(r.out, '"')
	for j := i + 1; j < len(r.src); j++ {
		c := r.src[j]
		switch {
		case c == '\\':
			if j+1 >= len(r.src) {
				continue
			}
			n := r.src[j+1]
			j++
			if q == '\'' && n == '\'' {
				r.out = append(r.out, '\'')
				continue
			}
			r.out = append(r.out, '\\')
			r.out = utf8.AppendRune(r.out, n)
		case c == q && r.endsString(j):
			r.out = append(r.out, '"')
			return j
		case c == '"':
			r.out = append(r.out, '\\', '"')
		case c == '\n':
			r.out = append(r.out, '\\', 'n')
		case c == '\r':
			r.out = append(r.out, '\\', 'r')
		case c == '\t':
			r.out = append(r.out, '\\', 't')
		default:
			r.out = utf8.AppendRune(r.out, c)
		}
	}
	r.out = append(r.out, '"')
	return len(r.src) - 1
}

// endsString reports whether the quote at src[j] is structural: it is followed
// by end of input or a JSON delimiter.
func (r *repairer) endsString(j int) bool {
	switch r.nextSignificant(j + 1) {
	case 0, ',', ':', '}', ']':
		return true
	}
	return false
}

func (r *repairer) nextSignificant(k int) rune {
	for ; k < len(r.src); k++ {
		if !unicode.IsSpace(r.src[k]) {
			return r.src[k]
		}
	}
	return 0
}

// word handles a bare identifier starting at src[i] and returns the index of
// its last rune.
func (r *repairer) word(i int) int {
	j := i
	for j < len(r.src) && (unicode.IsLetter(r.src[j]) || unicode.IsDigit(r.src[j]) || r.src[j] == '_') {
		j++
	}
	w := string(r.src[i:j])
	switch w {
	case "True", "true":
		r.out = append(r.out, "true"...)
	case "False", "false":
		r.out = append(r.out, "false"...)
	case "None", "null":
		r.out = append(r.out, "null"...)
	default:
		if r.nextSignificant(j) == ':' {
			r.out = append(r.out, '"')
			r.out = append(r.out, w...)
			r.out = append(r.out, '"')
		} else {
			r.out = append(r.out, w...)
		}
	}
	return j - 1
}

// close emits closer c, first closing any containers opened after the one c
// matches. A closer with no matching open container is dropped.
func (r *repairer) close(c rune) bool {
	k := len(r.stack) - 1
	for k >= 0 && r.stack[k] != c {
		k--
	}
	if k < 0 {
		return false
	}
	for len(r.stack) > k {
		top := r.stack[len(r.stack)-1]
		r.stack = r.stack[:len(r.stack)-1]
		r.trimTrailingComma()
		r.out = utf8.AppendRune(r.out, top)
	}
	return true
}

func (r *repairer) finish() string {
	for len(r.stack) > 0 {
		top := r.stack[len(r.stack)-1]
		r.stack = r.stack[:len(r.stack)-1]
		r.trimTrailingComma()
		r.out = utf8.AppendRune(r.out, top)
	}
	return string(r.out)
}

func (r *repairer) trimTrailingComma() {
	n := len(r.out)
	for n > 0 && (r.out[n-1] == ' ' || r.out[n-1] == '\n' || r.out[n-1] == '\t' || r.out[n-1] == '\r') {
		n--
	}
	if n > 0 && r.out[n-1] == ',' {
		r.out = r.out[:n-1]
	}
}
