package common

import (
	"encoding/json"
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestNewDocument(t *testing.T) {
	d := NewDocument()
	assert.Equal(t, 1, d.Size())
	assert.Equal(t, 0, d.Length())
	assert.Equal(t, "", d.String())
	assert.Equal(t, 0, d.Cursor())
}

func TestFromStringRoundTrip(t *testing.T) {
	for _, text := range []string{
		"",
		"a",
		"a\nb\nc\nd\ne",
		"\n\nx\n",
		"héllo\nwörld",
	} {
		d := DocumentFromString(text)
		expected := text
		if len(expected) > 0 && expected[len(expected)-1] == '\n' {
			expected = expected[:len(expected)-1]
		}
		assert.Equal(t, expected, d.String())

		d.FromString(text)
		assert.Equal(t, expected, d.String())
	}
}

func TestFromStringReusesLines(t *testing.T) {
	d := DocumentFromString("a\nb\nc\nd\ne")
	first := d.SelectLine(0)
	d.SelectLine(4)

	d.FromString("f\ng")
	assert.Equal(t, "f\ng", d.String())
	assert.Equal(t, 2, d.Size())
	// cursor clamped to the new last line
	assert.Equal(t, 1, d.Cursor())
	assert.Equal(t, first, d.SelectLine(0))

	d.FromString("h\ni\nj")
	assert.Equal(t, "h\ni\nj", d.String())
	assert.Equal(t, 3, d.Size())
	assert.Equal(t, 0, d.Cursor())
}

func TestSelectLineClamps(t *testing.T) {
	d := DocumentFromString("a\nb\nc")
	assert.Equal(t, "c", d.SelectLine(10).Text())
	assert.Equal(t, 2, d.Cursor())
	assert.Equal(t, "a", d.SelectLine(-3).Text())
	assert.Equal(t, 0, d.Cursor())
}

func TestInsertLine(t *testing.T) {
	d := NewDocument()
	d.Line().SetText("toto titi")
	assert.Equal(t, 9, d.Length())

	l := d.InsertLine()
	l.SetText("a b c d")
	assert.Equal(t, "toto titi\na b c d", d.String())
	assert.Equal(t, 1, d.Cursor())

	d.SelectLine(0)
	d.InsertLine().SetText("middle")
	assert.Equal(t, "toto titi\nmiddle\na b c d", d.String())
	assert.Equal(t, 3, d.Size())
	assert.Equal(t, 22, d.Length())
}

func TestRemoveLine(t *testing.T) {
	d := DocumentFromString("1 2 3\na b c d")
	d.SelectLine(0)

	d.RemoveLine()
	assert.Equal(t, "a b c d", d.String())
	assert.Equal(t, 0, d.Cursor())

	l := d.RemoveLine()
	assert.Equal(t, 1, d.Size())
	assert.Equal(t, "", l.Text())
	l.SetText("Alpha Beta Gamma")
	assert.Equal(t, "Alpha Beta Gamma", d.String())
}

func TestRemoveLineSelectsPrevious(t *testing.T) {
	d := DocumentFromString("a\nb\nc")
	d.SelectLine(2)

	l := d.RemoveLine()
	assert.Equal(t, "b", l.Text())
	assert.Equal(t, 1, d.Cursor())
	assert.Equal(t, "a\nb", d.String())
}

func TestRemoveLastLineNeverEmpty(t *testing.T) {
	d := DocumentFromString("only")
	d.RemoveLine()
	d.RemoveLine()
	assert.Equal(t, 1, d.Size())
	assert.Equal(t, "", d.String())
}

func TestCloneAndEqual(t *testing.T) {
	d := DocumentFromString("a\nb")
	c := d.Clone()
	assert.Equal(t, true, d.Equal(c))

	c.Line().SetText("z")
	assert.Equal(t, false, d.Equal(c))
	assert.Equal(t, "a\nb", d.String())
}

func TestDocumentJSON(t *testing.T) {
	d := DocumentFromString("x\ny\nz")
	d.SelectLine(1)

	b, err := json.Marshal(d)
	assert.Equal(t, nil, err)
	assert.Equal(t, `{"lines":["x","y","z"],"cursor":1}`, string(b))

	var out Document
	assert.Equal(t, nil, json.Unmarshal(b, &out))
	assert.Equal(t, true, d.Equal(&out))
	assert.Equal(t, 1, out.Cursor())

	var empty Document
	assert.Equal(t, nil, json.Unmarshal([]byte(`{"lines":[],"cursor":4}`), &empty))
	assert.Equal(t, 1, empty.Size())
	assert.Equal(t, 0, empty.Cursor())
}
