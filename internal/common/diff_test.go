package common

import (
	"strings"
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestApplyLines(t *testing.T) {
	s1 := strings.Split("c a e q w h d o q i", " ")
	s2 := strings.Split("s c q o i d", " ")

	ops := DiffLines(s1, s2)

	s3 := append([]string{}, s1...)
	s3 = ApplyLines(s3, ops)

	assert.Equal(t, s2, s3)
}

func TestDiffLinesEqual(t *testing.T) {
	s := []string{"alpha", "beta", "gamma"}
	assert.Equal(t, 0, len(DiffLines(s, s)))
}

func TestDiffLinesReplace(t *testing.T) {
	s1 := []string{"alpha", "beta", "gamma"}
	s2 := []string{"alpha", "delta", "gamma", "epsilon"}

	ops := DiffLines(s1, s2)

	// one delete, two adds
	assert.Equal(t, 3, len(ops))
	assert.Equal(t, s2, ApplyLines(s1, ops))
}

func TestDiffLinesFromEmpty(t *testing.T) {
	s2 := []string{"x", "y"}

	ops := DiffLines(nil, s2)
	assert.Equal(t, []LineOp{{Loc: 0, Add: true, Text: "x"}, {Loc: 0, Add: true, Text: "y"}}, ops)
	assert.Equal(t, s2, ApplyLines(nil, ops))
}
