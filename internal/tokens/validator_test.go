package tokens

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func button(selector, text string) Candidate {
	return Candidate{
		SelectorPath: selector,
		Tag:          "button",
		Text:         text,
		BBox:         BBox{W: 120, H: 40},
		Visible:      true,
		Styles: map[string]string{
			"display":          "inline-flex",
			"background-color": "rgb(26, 115, 232)",
			"border-radius":    "6px",
			"opacity":          "1",
		},
	}
}

func TestValidator_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Candidate)
		reason string
	}{
		{"not visible", func(c *Candidate) { c.Visible = false }, "not visible"},
		{"display none", func(c *Candidate) { c.Styles["display"] = "none" }, "display: none"},
		{"visibility hidden", func(c *Candidate) { c.Styles["visibility"] = "hidden" }, "visibility: hidden"},
		{"zero opacity", func(c *Candidate) { c.Styles["opacity"] = "0" }, "opacity: 0"},
		{"too narrow", func(c *Candidate) { c.BBox.W = 20 }, "bbox 20x40 below minimum 24x24"},
		{"too short", func(c *Candidate) { c.BBox.H = 23.5 }, "bbox 120x24 below minimum 24x24"},
		{"no name", func(c *Candidate) { c.Text = "   " }, "no role, accessible name, or text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := button("main > button.cta", "Get started")
			tt.mutate(&c)

			v := NewValidator(ValidatorConfig{}, Scope{Page: "home", Breakpoint: "desktop"})
			_, err := v.Validate(c)
			require.Error(t, err)

			var rejected *RejectedSample
			require.True(t, errors.As(err, &rejected))
			assert.Equal(t, tt.reason, rejected.Reason)
			assert.Equal(t, "main > button.cta", rejected.Selector)

			l := LimitFromError(err)
			assert.Equal(t, LimitRejectedSample, l.Kind)
			assert.Equal(t, tt.reason, l.Reason)
		})
	}
}

func TestValidator_AcceptsAndNumbers(t *testing.T) {
	v := NewValidator(ValidatorConfig{}, Scope{Page: "home", Breakpoint: "desktop", Theme: "dark"})

	s1, err := v.Validate(button("#a", "Save"))
	require.NoError(t, err)
	s2, err := v.Validate(button("#b", "Cancel"))
	require.NoError(t, err)

	assert.Equal(t, "home_desktop_dark#001", s1.ID)
	assert.Equal(t, "home_desktop_dark#002", s2.ID)
	assert.Equal(t, "button", s1.ComponentType)
	assert.Equal(t, "dark", s1.Theme)
	assert.Equal(t, "Save", s1.TextSnippet)
}

func TestValidator_RoleWithoutText(t *testing.T) {
	c := button("#icon", "")
	c.AriaLabel = "Close"

	s, err := NewValidator(ValidatorConfig{}, Scope{Page: "p", Breakpoint: "b"}).Validate(c)
	require.NoError(t, err)
	assert.True(t, s.HasRole())
}

func TestValidator_CurationAndBroadCapture(t *testing.T) {
	cands := []Candidate{
		button("#a", "Buy"),
		button("#b", "Buy"),
		button("#c", "Sell"),
		button("#d", "Hold"),
	}

	curated := NewValidator(ValidatorConfig{MaxPerGroup: 2}, Scope{Page: "p", Breakpoint: "b"})
	var accepted, rejected []string
	for _, c := range cands {
		if _, err := curated.Validate(c); err != nil {
			rejected = append(rejected, c.SelectorPath)
			continue
		}
		accepted = append(accepted, c.SelectorPath)
	}
	assert.Equal(t, []string{"#a", "#c"}, accepted)
	assert.Equal(t, []string{"#b", "#d"}, rejected)

	broad := NewValidator(ValidatorConfig{MaxPerGroup: 2, BroadCapture: true}, Scope{Page: "p", Breakpoint: "b"})
	for _, c := range cands {
		_, err := broad.Validate(c)
		require.NoError(t, err)
	}
}

func TestValidator_SelectedList(t *testing.T) {
	v := NewValidator(ValidatorConfig{Selected: []string{"#keep"}}, Scope{Page: "p", Breakpoint: "b"})

	_, err := v.Validate(button("#keep", "Keep"))
	require.NoError(t, err)

	_, err = v.Validate(button("#drop", "Drop"))
	var rejected *RejectedSample
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, "not in curated selection", rejected.Reason)
}

func TestValidator_InvariantHolds(t *testing.T) {
	var cands []Candidate
	for _, w := range []float64{10, 23.9, 24, 80} {
		for _, h := range []float64{10, 24, 48} {
			for _, text := range []string{"", "Go"} {
				for _, visible := range []bool{true, false} {
					c := button("#x", text)
					c.BBox = BBox{W: w, H: h}
					c.Visible = visible
					cands = append(cands, c)
				}
			}
		}
	}

	v := NewValidator(ValidatorConfig{BroadCapture: true}, Scope{Page: "p", Breakpoint: "b"})
	valid := 0
	for _, c := range cands {
		s, err := v.Validate(c)
		if err != nil {
			continue
		}
		valid++
		assert.True(t, s.Visible)
		assert.GreaterOrEqual(t, s.BBox.W, 24.0)
		assert.GreaterOrEqual(t, s.BBox.H, 24.0)
		assert.True(t, s.HasRole() || s.TextSnippet != "")
	}
	assert.Equal(t, 4, valid)
}

func TestInferComponentType(t *testing.T) {
	tests := []struct {
		name string
		c    Candidate
		want string
	}{
		{"button", Candidate{Tag: "button", BBox: BBox{W: 100, H: 40}}, "button"},
		{"pill button", Candidate{Tag: "button", BBox: BBox{W: 60, H: 28}, Styles: map[string]string{"border-radius": "9999px", "display": "inline-flex"}}, "chip"},
		{"link", Candidate{Tag: "a", BBox: BBox{W: 60, H: 30}}, "nav_link"},
		{"input", Candidate{Tag: "input"}, "input"},
		{"combobox role", Candidate{Tag: "div", Role: "combobox"}, "input"},
		{"nav", Candidate{Tag: "nav"}, "navbar"},
		{"section", Candidate{Tag: "section"}, "container"},
		{"article", Candidate{Tag: "article"}, "card"},
		{"heading", Candidate{Tag: "h1"}, "typography"},
		{"card class", Candidate{Tag: "div", Classes: []string{"card", "product-card"}}, "card"},
		{"card element class", Candidate{Tag: "div", Classes: []string{"grid", "card__body"}}, "card"},
		{"card link", Candidate{Tag: "a", Classes: []string{"teaser-card"}}, "card"},
		{"badge", Candidate{Tag: "span", Classes: []string{"badge"}}, "chip"},
		{"tag link", Candidate{Tag: "a", Classes: []string{"post-tag"}}, "chip"},
		{"pill", Candidate{Tag: "div", Classes: []string{"status_pill"}}, "chip"},
		{"chip button", Candidate{Tag: "button", BBox: BBox{W: 80, H: 44}, Classes: []string{"filter-chip"}}, "chip"},
		{"btn class", Candidate{Tag: "div", Classes: []string{"btn", "btn-primary"}}, "button"},
		{"card section", Candidate{Tag: "section", Classes: []string{"pricing-card"}}, "card"},
		{"word inside another word", Candidate{Tag: "p", Classes: []string{"cardinal", "vintage"}}, "typography"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferComponentType(tt.c))
		})
	}
}

func TestValidator_ClassTypedCardIsInteractive(t *testing.T) {
	v := NewValidator(ValidatorConfig{}, Scope{Page: "home", Breakpoint: "desktop", Theme: "light"})
	s, err := v.Validate(Candidate{
		SelectorPath: "main > div.card.product-card",
		Tag:          "div",
		Classes:      []string{"card", "product-card"},
		Text:         "Pro plan",
		BBox:         BBox{W: 320, H: 240},
		Visible:      true,
	})
	require.NoError(t, err)
	assert.Equal(t, "card", s.ComponentType)
	assert.True(t, IsInteractiveType(s.ComponentType))
}
