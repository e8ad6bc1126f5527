package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/traditionalchinese"
)

// parseTuples extracts the value tuples of one INSERT statement. Extended
// inserts ("VALUES (...),(...);") yield one tuple per row. Quoted values
// may contain commas, parentheses and doubled quotes; NULL becomes "".
func parseTuples(stmt string) [][]string {
	idx := strings.Index(strings.ToUpper(stmt), "VALUES")
	if idx == -1 {
		return nil
	}
	src := stmt[idx+len("VALUES"):]

	var (
		tuples  [][]string
		tuple   []string
		field   strings.Builder
		depth   int
		quoted  bool
		wasText bool
	)
	flush := func() {
		v := strings.TrimSpace(field.String())
		if !wasText && strings.EqualFold(v, "null") {
			v = ""
		}
		tuple = append(tuple, v)
		field.Reset()
		wasText = false
	}

	for i := 0; i < len(src); i++ {
		ch := src[i]
		if quoted {
			switch {
			case ch == '\\' && i+1 < len(src):
				i++
				field.WriteByte(src[i])
			case ch == '\'' && i+1 < len(src) && src[i+1] == '\'':
				i++
				field.WriteByte('\'')
			case ch == '\'':
				quoted = false
			default:
				field.WriteByte(ch)
			}
			continue
		}
		switch {
		case ch == '(':
			if depth == 0 {
				tuple = nil
			}
			depth++
		case ch == ')' && depth > 0:
			depth--
			if depth == 0 {
				flush()
				tuples = append(tuples, tuple)
			}
		case depth == 0:
			// separators between tuples
		case ch == '\'':
			quoted, wasText = true, true
		case ch == ',':
			flush()
		default:
			field.WriteByte(ch)
		}
	}
	return tuples
}

// parseInserts returns the rows of every INSERT statement in src, one
// statement per line as mysqldump writes them.
func parseInserts(src string) [][]string {
	var rows [][]string
	for _, line := range strings.Split(src, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(strings.ToUpper(line), "INSERT INTO") {
			continue
		}
		rows = append(rows, parseTuples(line)...)
	}
	return rows
}

func readInserts(o options, path string) ([][]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if o.big5 {
		if raw, err = decodeBig5(raw); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return parseInserts(string(raw)), nil
}

// decodeBig5 converts Big5 text to UTF-8.
func decodeBig5(raw []byte) ([]byte, error) {
	out, err := traditionalchinese.Big5.NewDecoder().Bytes(raw)
	if err != nil {
		return nil, fmt.Errorf("decode big5: %w", err)
	}
	return out, nil
}

func parseInt(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}

func parseInt32(s string) int32 { return int32(parseInt(s)) }
