package lecture

import "strings"

// Color is the presentation style of a lecture card.
type Color int

const (
	ColorDefault Color = iota
	ColorBlue
	ColorGreen
	ColorPurple
	ColorOrange
	ColorRed
	ColorPink
)

var colorNames = map[Color]string{
	ColorDefault: "default",
	ColorBlue:    "blue",
	ColorGreen:   "green",
	ColorPurple:  "purple",
	ColorOrange:  "orange",
	ColorRed:     "red",
	ColorPink:    "pink",
}

// colorTags maps the tags the API sends in colorClass, lower-cased.
var colorTags = map[string]Color{
	"lectureblue":   ColorBlue,
	"lecturegreen":  ColorGreen,
	"lecturepurple": ColorPurple,
	"lectureorange": ColorOrange,
	"lecturered":    ColorRed,
	"lecturepink":   ColorPink,
	"blue":          ColorBlue,
	"green":         ColorGreen,
	"purple":        ColorPurple,
	"orange":        ColorOrange,
	"red":           ColorRed,
	"pink":          ColorPink,
}

// ColorFor maps an upstream tag to a Color. Unknown and empty tags get ColorDefault.
func ColorFor(tag string) Color {
	c, ok := colorTags[strings.ToLower(strings.TrimSpace(tag))]
	if !ok {
		return ColorDefault
	}
	return c
}

func (c Color) String() string {
	if name, ok := colorNames[c]; ok {
		return name
	}
	return colorNames[ColorDefault]
}

// Class is the CSS class the templates put on cards and modal headers.
func (c Color) Class() string {
	return "lecture-" + c.String()
}
