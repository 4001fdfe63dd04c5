package pixel

import (
	"errors"
	"fmt"
)

// ErrColorLength is returned when a color code has the wrong number of
// hex digits.
var ErrColorLength = errors.New("pixel: invalid color code, expected 6 or 8 hex digits")

// Color is a linear 8-bit RGBA value.
type Color struct {
	R, G, B, A uint8
}

// ParseColor parses a hex color code with an optional "#" or "0x" prefix.
// Six digits are interpreted as RRGGBB, eight as AARRGGBB. An empty string
// yields the zero value.
//
// Note that a 6-digit code leaves the alpha at zero, which is the "fully
// transparent" convention elsewhere in this module.
func ParseColor(text string) (Color, error) {
	if text == "" {
		return Color{}, nil
	}

	if text[0] == '#' {
		text = text[1:]
	} else if len(text) > 1 && text[0] == '0' && text[1] == 'x' {
		text = text[2:]
	}

	var c Color

	switch len(text) {
	case 8:
		a, err := parseByte(text)
		if err != nil {
			return Color{}, err
		}
		c.A = a
		text = text[2:]
	case 6:
	default:
		return Color{}, ErrColorLength
	}

	for i, field := range []*uint8{&c.R, &c.G, &c.B} {
		v, err := parseByte(text[i*2:])
		if err != nil {
			return Color{}, err
		}
		*field = v
	}
	return c, nil
}

// FromRGBA copies a color out of a raw RGBA8888 pixel.
func FromRGBA(pixel []byte) Color {
	return Color{
		R: pixel[0],
		G: pixel[1],
		B: pixel[2],
		A: pixel[3],
	}
}

func parseByte(text string) (uint8, error) {
	hi, err := parseNibble(text[0])
	if err != nil {
		return 0, err
	}
	lo, err := parseNibble(text[1])
	if err != nil {
		return 0, err
	}
	return hi<<4 | lo, nil
}

func parseNibble(digit byte) (uint8, error) {
	switch {
	case digit >= '0' && digit <= '9':
		return digit - '0', nil
	case digit >= 'a' && digit <= 'f':
		return digit - 'a' + 10, nil
	case digit >= 'A' && digit <= 'F':
		return digit - 'A' + 10, nil
	}
	return 0, fmt.Errorf("pixel: invalid hex digit %q, expected [0-9a-fA-F]", digit)
}
