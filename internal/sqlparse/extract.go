package sqlparse

import (
	"regexp"
	"strings"
)

// RawStatement is one statement lifted out of raw input, before semantic
// analysis. Log metadata that survives extraction (timestamps, inline
// controller/action comment hints) rides along.
type RawStatement struct {
	Text       string
	LineStart  int
	LineEnd    int
	Timestamp  string
	Controller string
	Action     string
}

var (
	// MySQL general-log entry: timestamp, thread id, command, argument.
	reLogEntry = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}[\d.]*Z?)\s+(\d+)\s+(\w+)(?:\s+(.*))?$`)

	reHint = regexp.MustCompile(`/\*\s*controller:\s*([\w:]+)\s*,\s*action:\s*(\w+)\s*\*/`)

	sqlVerbs = []string{
		"SELECT", "INSERT", "UPDATE", "DELETE", "BEGIN", "START", "COMMIT",
		"ROLLBACK", "SET", "CREATE", "ALTER", "DROP", "SHOW", "EXPLAIN", "WITH",
	}
)

// ExtractStatements normalizes raw input into individual statements. Plain
// SQL is split on semicolons outside string literals; general-log input has
// its entry prefixes stripped, with non-entry lines treated as continuations
// of the preceding statement.
func ExtractStatements(input string) []RawStatement {
	if strings.TrimSpace(input) == "" {
		return nil
	}
	lines := strings.Split(input, "\n")
	if looksLikePlainSQL(lines) {
		return splitPlainSQL(lines)
	}
	return splitLogLines(lines)
}

// looksLikePlainSQL reports whether the leading lines read as bare SQL with
// no log framing.
func looksLikePlainSQL(lines []string) bool {
	sqlLines, logLines := 0, 0
	checked := 0
	for _, line := range lines {
		s := strings.TrimSpace(line)
		if s == "" {
			continue
		}
		if checked++; checked > 10 {
			break
		}
		if startsWithVerb(s) {
			sqlLines++
		}
		if reLogEntry.MatchString(s) {
			logLines++
		}
	}
	return sqlLines > 0 && logLines == 0
}

func startsWithVerb(s string) bool {
	upper := strings.ToUpper(s)
	for _, v := range sqlVerbs {
		if strings.HasPrefix(upper, v) {
			return true
		}
	}
	return false
}

// splitPlainSQL accumulates lines into statements, splitting on semicolons
// that sit outside single-quoted strings.
func splitPlainSQL(lines []string) []RawStatement {
	var out []RawStatement
	var current []string
	start := 0
	inQuote := false

	flush := func(end int) {
		text := normalizeStatement(strings.Join(current, " "))
		if text != "" {
			out = append(out, withHints(RawStatement{Text: text, LineStart: start, LineEnd: end}))
		}
		current = nil
	}

	for i, line := range lines {
		if len(current) == 0 {
			start = i
		}
		var piece strings.Builder
		for j := 0; j < len(line); j++ {
			ch := line[j]
			switch {
			case ch == '\'':
				if inQuote && j+1 < len(line) && line[j+1] == '\'' {
					piece.WriteString("''")
					j++
					continue
				}
				inQuote = !inQuote
				piece.WriteByte(ch)
			case ch == ';' && !inQuote:
				current = append(current, piece.String())
				piece.Reset()
				flush(i)
				start = i
			default:
				piece.WriteByte(ch)
			}
		}
		if piece.Len() > 0 || len(current) > 0 {
			current = append(current, piece.String())
		}
	}
	if len(current) > 0 {
		flush(len(lines) - 1)
	}
	return out
}

// splitLogLines walks general-log entries. An entry whose argument starts a
// statement opens a new RawStatement; lines that are not entries continue
// the current one.
func splitLogLines(lines []string) []RawStatement {
	var out []RawStatement
	var cur *RawStatement

	flush := func() {
		if cur == nil {
			return
		}
		cur.Text = normalizeStatement(cur.Text)
		if cur.Text != "" {
			out = append(out, withHints(*cur))
		}
		cur = nil
	}

	for i, line := range lines {
		m := reLogEntry.FindStringSubmatch(strings.TrimRight(line, "\r"))
		if m != nil {
			arg := strings.TrimSpace(m[4])
			if arg == "" {
				continue
			}
			if startsWithVerb(arg) {
				flush()
				cur = &RawStatement{Text: arg, LineStart: i, LineEnd: i, Timestamp: m[1]}
			} else if cur != nil {
				cur.Text += " " + arg
				cur.LineEnd = i
			}
			continue
		}
		s := strings.TrimSpace(line)
		if s == "" {
			continue
		}
		if cur != nil {
			cur.Text += " " + s
			cur.LineEnd = i
		} else if startsWithVerb(s) {
			cur = &RawStatement{Text: s, LineStart: i, LineEnd: i}
		}
	}
	flush()
	return out
}

// withHints pulls controller/action comment hints out of the statement text.
// The hint stays in the text (it is part of the raw evidence) but is also
// surfaced as structured metadata.
func withHints(st RawStatement) RawStatement {
	if m := reHint.FindStringSubmatch(st.Text); m != nil {
		st.Controller = m[1]
		st.Action = m[2]
	}
	return st
}

// normalizeStatement collapses runs of whitespace to single spaces.
func normalizeStatement(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			if !prevSpace {
				b.WriteByte(' ')
				prevSpace = true
			}
			continue
		}
		b.WriteRune(r)
		prevSpace = false
	}
	return strings.TrimSpace(b.String())
}
