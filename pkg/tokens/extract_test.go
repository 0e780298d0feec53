package tokens

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "double quotes",
			text: `<div class="a b c"></div>`,
			want: []string{"a", "b", "c"},
		},
		{
			name: "single quotes",
			text: `<div class='a b'></div>`,
			want: []string{"a", "b"},
		},
		{
			name: "whitespace around equals",
			text: `<div class  =  "x"></div>`,
			want: []string{"x"},
		},
		{
			name: "multiple attributes with duplicates",
			text: `<div class="a b"><span class="b c"></span></div>`,
			want: []string{"a", "b", "c"},
		},
		{
			name: "runs of whitespace",
			text: "<div class=\"  a \t\n b  \"></div>",
			want: []string{"a", "b"},
		},
		{
			name: "empty value",
			text: `<div class=""></div>`,
			want: []string{},
		},
		{
			name: "whitespace only value",
			text: `<div class="   "></div>`,
			want: []string{},
		},
		{
			name: "no class attributes",
			text: `<p id="x">hello</p>`,
			want: []string{},
		},
		{
			name: "unterminated attribute",
			text: `<div class="a b`,
			want: []string{},
		},
		{
			name: "opposite quote inside value",
			text: `<div class="it's"></div>`,
			want: []string{"it's"},
		},
		{
			name: "attribute name suffix still matches",
			text: `<div data-class="x"></div>`,
			want: []string{"x"},
		},
		{
			name: "uppercase attribute is ignored",
			text: `<div CLASS="x"></div>`,
			want: []string{},
		},
		{
			name: "empty document",
			text: "",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.text)
			assert.Equal(t, tt.want, got.Sorted())
		})
	}
}

func TestExtract_QuoteStyleIndependence(t *testing.T) {
	// Given: the same value in both quote styles
	double := Extract(`<div class="btn btn-primary"></div>`)
	single := Extract(`<div class='btn btn-primary'></div>`)

	// Then: both produce the same set
	assert.True(t, double.Equal(single))
}

func TestExtract_RepeatedCallsAreIndependent(t *testing.T) {
	// Given: a document scanned once
	text := `<a class="one"></a><b class="two"></b>`
	first := Extract(text)

	// When: scanning again, and scanning another text in between
	_ = Extract(`<i class="other"></i>`)
	second := Extract(text)

	// Then: results are identical
	assert.Equal(t, first.Sorted(), second.Sorted())
	assert.Equal(t, []string{"one", "two"}, second.Sorted())
}

func TestExtract_NeverContainsEmptyToken(t *testing.T) {
	got := Extract(`<div class=" "></div><div class=''></div><div class="a  b"></div>`)
	assert.False(t, got.Has(""))
	assert.Equal(t, 2, got.Len())
}
