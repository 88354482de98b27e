package puzzle

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// SpanKind classifies a run of guess text.
type SpanKind int

const (
	SpanPlain SpanKind = iota
	SpanMatched
	SpanWrong
)

func (k SpanKind) String() string {
	switch k {
	case SpanMatched:
		return "matched"
	case SpanWrong:
		return "wrong"
	default:
		return "plain"
	}
}

func (k SpanKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *SpanKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "matched":
		*k = SpanMatched
	case "wrong":
		*k = SpanWrong
	case "plain":
		*k = SpanPlain
	default:
		return fmt.Errorf("unknown span kind %q", b)
	}
	return nil
}

// Span is a run of text with one classification.
type Span struct {
	Text string   `json:"text"`
	Kind SpanKind `json:"kind"`
}

type interval struct {
	start, end int
}

// Highlight splits a guess into plain, matched and wrong runs. Every
// occurrence of each segment is marked; where a matched and a wrong region
// overlap, the wrong one wins.
func Highlight(text string, matched, wrong []string) []Span {
	var ok, bad []interval
	for _, seg := range matched {
		ok = append(ok, occurrences(text, seg)...)
	}
	for _, seg := range wrong {
		bad = append(bad, occurrences(text, seg)...)
	}
	bad = merge(bad)
	ok = subtract(merge(ok), bad)

	// at equal positions ends sort before starts
	type mark struct {
		pos   int
		order int
	}
	const (
		okEnd = iota
		badEnd
		okStart
		badStart
	)
	marks := make([]mark, 0, 2*(len(ok)+len(bad)))
	for _, iv := range ok {
		marks = append(marks, mark{iv.start, okStart}, mark{iv.end, okEnd})
	}
	for _, iv := range bad {
		marks = append(marks, mark{iv.start, badStart}, mark{iv.end, badEnd})
	}
	sort.Slice(marks, func(i, j int) bool {
		if marks[i].pos != marks[j].pos {
			return marks[i].pos < marks[j].pos
		}
		return marks[i].order < marks[j].order
	})

	var spans []Span
	last := 0
	inOK, inBad := false, false
	emit := func(end int) {
		if end <= last {
			return
		}
		kind := SpanPlain
		if inBad {
			kind = SpanWrong
		} else if inOK {
			kind = SpanMatched
		}
		spans = append(spans, Span{Text: text[last:end], Kind: kind})
	}
	for _, m := range marks {
		emit(m.pos)
		last = max(last, m.pos)
		switch m.order {
		case okStart:
			inOK = true
		case okEnd:
			inOK = false
		case badStart:
			inBad = true
		case badEnd:
			inBad = false
		}
	}
	emit(len(text))
	return spans
}

// occurrences finds every, possibly overlapping, match of seg in text.
func occurrences(text, seg string) []interval {
	if seg == "" {
		return nil
	}
	var found []interval
	for from := 0; from < len(text); {
		i := strings.Index(text[from:], seg)
		if i < 0 {
			break
		}
		start := from + i
		found = append(found, interval{start, start + len(seg)})
		_, size := utf8.DecodeRuneInString(text[start:])
		from = start + size
	}
	return found
}

// merge sorts intervals and joins the ones that overlap or touch.
func merge(ivs []interval) []interval {
	if len(ivs) == 0 {
		return nil
	}
	sort.Slice(ivs, func(i, j int) bool { return ivs[i].start < ivs[j].start })
	out := []interval{ivs[0]}
	for _, cur := range ivs[1:] {
		last := &out[len(out)-1]
		if cur.start <= last.end {
			last.end = max(last.end, cur.end)
			continue
		}
		out = append(out, cur)
	}
	return out
}

// subtract removes every part of base covered by cut.
func subtract(base, cut []interval) []interval {
	var out []interval
	for _, b := range base {
		pieces := []interval{b}
		for _, c := range cut {
			var next []interval
			for _, p := range pieces {
				if c.end <= p.start || c.start >= p.end {
					next = append(next, p)
					continue
				}
				if p.start < c.start {
					next = append(next, interval{p.start, c.start})
				}
				if p.end > c.end {
					next = append(next, interval{c.end, p.end})
				}
			}
			pieces = next
		}
		out = append(out, pieces...)
	}
	return merge(out)
}

// Plain joins spans back into the original text.
func Plain(spans []Span) string {
	var b strings.Builder
	for _, s := range spans {
		b.WriteString(s.Text)
	}
	return b.String()
}
