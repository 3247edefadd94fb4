package common

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

const LineSeparator = "\n"

// Line is one mutable line of text.
type Line struct {
	text string
}

func NewLine(text string) *Line {
	return &Line{text: text}
}

func (l *Line) Text() string {
	return l.text
}

func (l *Line) SetText(text string) {
	l.text = text
}

// number of characters in the line
func (l *Line) Len() int {
	return utf8.RuneCountInString(l.text)
}

func (l *Line) String() string {
	return l.text
}

// Document is an ordered sequence of lines with a cursor on one of them.
// A Document always holds at least one line.
type Document struct {
	lines  []*Line
	cursor int
}

// NewDocument returns a document holding a single empty line.
func NewDocument() *Document {
	return &Document{
		lines: []*Line{NewLine("")},
	}
}

// DocumentFromString returns a new document holding text.
func DocumentFromString(text string) *Document {
	d := NewDocument()
	d.FromString(text)
	return d
}

// FromString replaces the content with text, reusing existing lines where
// indices match.
func (d *Document) FromString(text string) {
	text = strings.TrimSuffix(text, LineSeparator)
	next := strings.Split(text, LineSeparator)

	n := len(d.lines)
	if len(next) < n {
		n = len(next)
	}

	for i := 0; i < n; i++ {
		d.lines[i].SetText(next[i])
	}

	// Split never returns an empty slice so at least one line survives
	d.lines = d.lines[:n]
	for _, text := range next[n:] {
		d.lines = append(d.lines, NewLine(text))
	}

	if d.cursor >= len(d.lines) {
		d.SelectLine(len(d.lines) - 1)
	}
}

func (d *Document) String() string {
	var b strings.Builder
	for i, l := range d.lines {
		if i > 0 {
			b.WriteString(LineSeparator)
		}
		b.WriteString(l.text)
	}
	return b.String()
}

// SelectLine moves the cursor to line i, clamped to the document.
func (d *Document) SelectLine(i int) *Line {
	if i > len(d.lines)-1 {
		i = len(d.lines) - 1
	}
	if i < 0 {
		i = 0
	}
	d.cursor = i
	return d.lines[i]
}

// InsertLine inserts an empty line after the cursor and selects it.
func (d *Document) InsertLine() *Line {
	at := d.cursor + 1
	d.lines = append(d.lines, nil)
	copy(d.lines[at+1:], d.lines[at:])
	d.lines[at] = NewLine("")
	return d.SelectLine(at)
}

// RemoveLine deletes the line at the cursor and selects the previous one.
// The last remaining line is replaced by an empty line instead.
func (d *Document) RemoveLine() *Line {
	if len(d.lines) == 1 {
		d.lines[0] = NewLine("")
	} else {
		d.lines = append(d.lines[:d.cursor], d.lines[d.cursor+1:]...)
	}
	return d.SelectLine(d.cursor - 1)
}

// current line
func (d *Document) Line() *Line {
	return d.lines[d.cursor]
}

func (d *Document) Cursor() int {
	return d.cursor
}

// number of lines
func (d *Document) Size() int {
	return len(d.lines)
}

// number of characters over all lines
func (d *Document) Length() int {
	n := 0
	for _, l := range d.lines {
		n += l.Len()
	}
	return n
}

// Lines returns a copy of the line texts.
func (d *Document) Lines() []string {
	res := make([]string, len(d.lines))
	for i, l := range d.lines {
		res[i] = l.text
	}
	return res
}

func (d *Document) Clone() *Document {
	c := &Document{
		lines:  make([]*Line, len(d.lines)),
		cursor: d.cursor,
	}
	for i, l := range d.lines {
		c.lines[i] = NewLine(l.text)
	}
	return c
}

// Equal compares content only; the cursor is ignored.
func (d *Document) Equal(o *Document) bool {
	if d == nil || o == nil {
		return d == o
	}
	if len(d.lines) != len(o.lines) {
		return false
	}
	for i := range d.lines {
		if d.lines[i].text != o.lines[i].text {
			return false
		}
	}
	return true
}

type documentJSON struct {
	Lines  []string `json:"lines"`
	Cursor int      `json:"cursor"`
}

func (d *Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(documentJSON{
		Lines:  d.Lines(),
		Cursor: d.cursor,
	})
}

func (d *Document) UnmarshalJSON(b []byte) error {
	var v documentJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	if len(v.Lines) == 0 {
		v.Lines = []string{""}
	}
	d.lines = make([]*Line, len(v.Lines))
	for i, text := range v.Lines {
		d.lines[i] = NewLine(text)
	}
	d.SelectLine(v.Cursor)
	return nil
}
