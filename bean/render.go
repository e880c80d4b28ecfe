package bean

import (
	"fmt"
	"io"
	"strings"
)

const (
	// DefaultCurrencyColumn is the column currencies are aligned to
	// (matches bean-format behavior).
	DefaultCurrencyColumn = 52

	// indentation for postings and metadata lines.
	indentation = 2

	// minimumSpacing between an account name and its number.
	minimumSpacing = 2
)

// Renderer writes directives as beancount text with numbers right-aligned so
// that every currency starts at CurrencyColumn.
type Renderer struct {
	// CurrencyColumn is the target column for currency alignment.
	// Zero selects DefaultCurrencyColumn.
	CurrencyColumn int
}

// Render writes the directives to w, separated by blank lines.
func (r *Renderer) Render(w io.Writer, directives []Directive) error {
	col := r.CurrencyColumn
	if col == 0 {
		col = DefaultCurrencyColumn
	}

	for i, d := range directives {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		var err error
		switch v := d.(type) {
		case *Transaction:
			err = renderTransaction(w, v, col)
		case *Balance:
			err = renderBalance(w, v, col)
		default:
			err = fmt.Errorf("cannot render directive of type %T", d)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Render writes the directives with default alignment.
func Render(w io.Writer, directives []Directive) error {
	r := &Renderer{}
	return r.Render(w, directives)
}

func renderTransaction(w io.Writer, t *Transaction, col int) error {
	var b strings.Builder

	b.WriteString(t.TxnDate.String())
	b.WriteString(" ")
	flag := t.Flag
	if flag == "" {
		flag = "txn"
	}
	b.WriteString(flag)
	if t.Payee != "" {
		b.WriteString(` "`)
		b.WriteString(escapeString(t.Payee))
		b.WriteString(`"`)
	}
	b.WriteString(` "`)
	b.WriteString(escapeString(t.Narration))
	b.WriteString(`"`)
	for _, tag := range t.Tags {
		b.WriteString(" #")
		b.WriteString(tag)
	}
	for _, link := range t.Links {
		b.WriteString(" ^")
		b.WriteString(link)
	}
	b.WriteString("\n")

	for _, m := range t.Metadata {
		fmt.Fprintf(&b, "%s%s: \"%s\"\n", strings.Repeat(" ", indentation), m.Key, escapeString(m.Value))
	}

	for _, p := range t.Postings {
		renderPosting(&b, p, col)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func renderPosting(b *strings.Builder, p Posting, col int) {
	line := strings.Repeat(" ", indentation) + string(p.Account)
	if p.Amount == nil {
		b.WriteString(line)
		b.WriteString("\n")
		return
	}

	num := p.Amount.Value.String()
	// Pad so the currency lands on col; keep at least minimumSpacing.
	pad := col - len(line) - len(num) - 1
	if pad < minimumSpacing {
		pad = minimumSpacing
	}
	b.WriteString(line)
	b.WriteString(strings.Repeat(" ", pad))
	b.WriteString(num)
	b.WriteString(" ")
	b.WriteString(p.Amount.Currency)

	if p.Cost != nil {
		b.WriteString(" {")
		parts := make([]string, 0, 3)
		if p.Cost.PerUnit != nil {
			parts = append(parts, p.Cost.PerUnit.String())
		}
		if p.Cost.Date != nil {
			parts = append(parts, p.Cost.Date.String())
		}
		if p.Cost.Label != "" {
			parts = append(parts, `"`+escapeString(p.Cost.Label)+`"`)
		}
		b.WriteString(strings.Join(parts, ", "))
		b.WriteString("}")
	}
	if p.Price != nil {
		b.WriteString(" @ ")
		b.WriteString(p.Price.String())
	}
	b.WriteString("\n")
}

func renderBalance(w io.Writer, bal *Balance, col int) error {
	var b strings.Builder

	prefix := bal.AssertDate.String() + " balance " + string(bal.Account)
	num := bal.Amount.Value.String()
	pad := col - len(prefix) - len(num) - 1
	if pad < minimumSpacing {
		pad = minimumSpacing
	}
	b.WriteString(prefix)
	b.WriteString(strings.Repeat(" ", pad))
	b.WriteString(num)
	b.WriteString(" ")
	b.WriteString(bal.Amount.Currency)
	b.WriteString("\n")

	for _, m := range bal.Metadata {
		fmt.Fprintf(&b, "%s%s: \"%s\"\n", strings.Repeat(" ", indentation), m.Key, escapeString(m.Value))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// escapeString escapes double quotes and backslashes for beancount strings.
func escapeString(s string) string {
	if !strings.ContainsAny(s, `"\`) {
		return s
	}

	var buf strings.Builder
	buf.Grow(len(s) + 10)
	for _, c := range s {
		switch c {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		default:
			buf.WriteRune(c)
		}
	}
	return buf.String()
}
