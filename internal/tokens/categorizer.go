package tokens

import (
	"sort"
	"strings"
)

// Category is a clustering style category
type Category string

// Style categories
const (
	CategoryColor         Category = "color"
	CategoryFontFamily    Category = "font-family"
	CategoryFontSize      Category = "font-size"
	CategoryFontWeight    Category = "font-weight"
	CategoryLineHeight    Category = "line-height"
	CategoryLetterSpacing Category = "letter-spacing"
	CategorySpacing       Category = "spacing"
	CategoryRadius        Category = "radius"
	CategoryBorderWidth   Category = "border-width"
	CategoryShadow        Category = "shadow"
	CategoryOpacity       Category = "opacity"
	CategoryDuration      Category = "duration"
	CategoryEasing        Category = "easing"
	CategoryZIndex        Category = "z-index"
)

// Categories lists every category in emission order
var Categories = []Category{
	CategoryColor,
	CategoryFontFamily, CategoryFontSize, CategoryFontWeight, CategoryLineHeight, CategoryLetterSpacing,
	CategorySpacing, CategoryRadius, CategoryBorderWidth, CategoryShadow, CategoryOpacity,
	CategoryDuration, CategoryEasing, CategoryZIndex,
}

// ValueKind decides how values of a category are parsed and compared
type ValueKind string

const (
	KindColor       ValueKind = "color"
	KindLength      ValueKind = "length"   // px
	KindNumber      ValueKind = "number"   // unitless
	KindDuration    ValueKind = "duration" // ms
	KindCategorical ValueKind = "categorical"
)

// propertyCategories maps computed CSS properties to clustering categories.
// Properties not listed here are captured for rules and diffs but never clustered.
var propertyCategories = map[string]Category{
	// Color
	"color":            CategoryColor,
	"background-color": CategoryColor,
	"border-color":     CategoryColor,
	"outline-color":    CategoryColor,

	// Typography
	"font-family":    CategoryFontFamily,
	"font-size":      CategoryFontSize,
	"font-weight":    CategoryFontWeight,
	"line-height":    CategoryLineHeight,
	"letter-spacing": CategoryLetterSpacing,

	// Spacing
	"padding-top":    CategorySpacing,
	"padding-right":  CategorySpacing,
	"padding-bottom": CategorySpacing,
	"padding-left":   CategorySpacing,
	"margin-top":     CategorySpacing,
	"margin-bottom":  CategorySpacing,
	"gap":            CategorySpacing,
	"row-gap":        CategorySpacing,
	"column-gap":     CategorySpacing,

	// Effects
	"border-radius": CategoryRadius,
	"border-width":  CategoryBorderWidth,
	"outline-width": CategoryBorderWidth,
	"box-shadow":    CategoryShadow,
	"opacity":       CategoryOpacity,

	// Motion
	"transition-duration":        CategoryDuration,
	"animation-duration":         CategoryDuration,
	"transition-timing-function": CategoryEasing,

	"z-index": CategoryZIndex,
}

// categoryKinds maps categories to value kinds
var categoryKinds = map[Category]ValueKind{
	CategoryColor:         KindColor,
	CategoryFontFamily:    KindCategorical,
	CategoryFontSize:      KindLength,
	CategoryFontWeight:    KindNumber,
	CategoryLineHeight:    KindLength,
	CategoryLetterSpacing: KindLength,
	CategorySpacing:       KindLength,
	CategoryRadius:        KindLength,
	CategoryBorderWidth:   KindLength,
	CategoryShadow:        KindCategorical,
	CategoryOpacity:       KindNumber,
	CategoryDuration:      KindDuration,
	CategoryEasing:        KindCategorical,
	CategoryZIndex:        KindNumber,
}

// StyleProperties is the computed-style set the collector reads for every candidate
var StyleProperties = []string{
	// typography
	"font-family", "font-size", "font-weight", "line-height", "letter-spacing",
	"text-transform", "text-decoration-line",
	// color
	"color", "background-color", "border-color", "outline-color",
	// layout
	"display", "position", "width", "height", "max-width",
	"padding-top", "padding-right", "padding-bottom", "padding-left",
	"margin-top", "margin-bottom", "gap", "row-gap", "column-gap",
	"grid-template-columns",
	// effects
	"border-width", "border-style", "border-radius", "box-shadow", "opacity",
	"outline-width", "outline-style", "outline-offset", "transform", "visibility",
	// motion
	"transition-property", "transition-duration", "transition-timing-function", "animation-duration",
	"z-index",
}

// StateDiffProperties are read in every interaction state
var StateDiffProperties = []string{
	"color", "background-color", "border-color", "border-width",
	"outline-color", "outline-width", "outline-offset",
	"box-shadow", "opacity", "transform", "text-decoration-line",
}

// propertyShorthands lists the authored shorthands that can set a longhand
var propertyShorthands = map[string][]string{
	"background-color":           {"background"},
	"border-color":               {"border", "border-top", "border-bottom"},
	"border-width":               {"border", "border-top", "border-bottom"},
	"border-style":               {"border"},
	"outline-color":              {"outline"},
	"outline-width":              {"outline"},
	"padding-top":                {"padding", "padding-block"},
	"padding-bottom":             {"padding", "padding-block"},
	"padding-left":               {"padding", "padding-inline"},
	"padding-right":              {"padding", "padding-inline"},
	"margin-top":                 {"margin", "margin-block"},
	"margin-bottom":              {"margin", "margin-block"},
	"font-size":                  {"font"},
	"font-family":                {"font"},
	"font-weight":                {"font"},
	"line-height":                {"font"},
	"row-gap":                    {"gap"},
	"column-gap":                 {"gap"},
	"transition-duration":        {"transition"},
	"transition-timing-function": {"transition"},
	"transition-property":        {"transition"},
	"animation-duration":         {"animation"},
}

// CategoryOf returns the clustering category for a property
func CategoryOf(property string) (Category, bool) {
	c, ok := propertyCategories[strings.ToLower(property)]
	return c, ok
}

// KindOf returns the value kind of a category
func KindOf(c Category) ValueKind {
	if k, ok := categoryKinds[c]; ok {
		return k
	}
	return KindCategorical
}

// PropertiesFor returns the clustered properties of a category, sorted
func PropertiesFor(c Category) []string {
	var props []string
	for p, cat := range propertyCategories {
		if cat == c {
			props = append(props, p)
		}
	}
	sort.Strings(props)
	return props
}

// interactiveTypes are the component types whose interaction states are captured
var interactiveTypes = map[string]bool{
	"button":   true,
	"nav_link": true,
	"input":    true,
	"chip":     true,
	"card":     true,
}

// IsInteractiveType reports whether states are captured for a component type
func IsInteractiveType(componentType string) bool {
	return interactiveTypes[componentType]
}
