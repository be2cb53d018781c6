package collector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ysmood/gson"

	"github.com/yacobolo/tokensmith/internal/tokens"
)

func TestDecodeCandidates(t *testing.T) {
	v := gson.NewFrom(`[
		{"handle":"1","selector":"#cta","tag":"button","role":"","aria":"Sign up","text":"Sign up","href":"",
		 "inAnchor":false,"classes":["btn","btn-primary"],"bbox":{"x":10,"y":20,"w":120,"h":44},"visible":true,
		 "styles":{"background-color":"rgb(26, 115, 232)","border-radius":"6px"}},
		{"handle":"2","selector":"nav > a:nth-of-type(2)","tag":"a","href":"/pricing","inAnchor":false,
		 "bbox":{"x":0,"y":0,"w":80,"h":20},"visible":false,"styles":{}}
	]`)

	got := decodeCandidates(v)
	require.Len(t, got, 2)

	assert.Equal(t, "1", got[0].handle)
	assert.Equal(t, tokens.Candidate{
		SelectorPath: "#cta",
		Tag:          "button",
		AriaLabel:    "Sign up",
		Text:         "Sign up",
		Classes:      []string{"btn", "btn-primary"},
		BBox:         tokens.BBox{X: 10, Y: 20, W: 120, H: 44},
		Visible:      true,
		Styles:       map[string]string{"background-color": "rgb(26, 115, 232)", "border-radius": "6px"},
	}, got[0].candidate)

	link := got[1].candidate
	assert.Equal(t, "/pricing", link.Href)
	assert.True(t, link.Navigational())
	assert.False(t, link.Visible)
	assert.Empty(t, link.Role, "missing keys decode to zero values")
}

func TestDecodeSheets(t *testing.T) {
	v := gson.NewFrom(`[
		{"href":"","text":":root{--brand:#1a73e8}"},
		{"href":"https://cdn.test/app.css","text":null},
		{"href":"https://example.test/site.css","text":".a{}"}
	]`)

	got := decodeSheets(v)
	require.Len(t, got, 3)
	assert.Equal(t, rawSheet{text: ":root{--brand:#1a73e8}", hasText: true}, got[0])
	assert.Equal(t, rawSheet{href: "https://cdn.test/app.css"}, got[1])
	assert.True(t, got[2].hasText)
}

func TestDecodeStates(t *testing.T) {
	v := gson.NewFrom(`["selected","disabled","hover","bogus"]`)
	assert.Equal(t, []tokens.StateName{tokens.StateDisabled, tokens.StateSelected}, decodeStates(v))
}
