package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/pixview/pixview"
	"github.com/pixview/pixview/img"
	"github.com/pixview/pixview/pixel"
)

func main() {
	devFlag := flag.String("dev", "fb", "Display device as type[:path], type is \"fb\" or \"drm\"")
	imageFlag := flag.String("image", "", "Image file to display")
	anchorFlag := flag.String("anchor", "0,0", "Image anchor as x,y fractions of the free space")
	offsetFlag := flag.String("offset", "0,0", "Image offset in pixels as x,y")
	blendFlag := flag.Bool("blend", false, "Alpha-blend the image with the current contents")
	clearFlag := flag.String("clear", "", "Clear to this hex color before drawing, e.g. ff000000 (8 digits, AARRGGBB)")
	loopsFlag := flag.Int("loops", 1, "Animation passes, -1 loops forever")
	delayFlag := flag.Duration("delay", 0, "Per-frame delay override")
	viewFlag := flag.String("view", "-1x-1", "Viewport size as WxH, -1 fills the display")
	viewAnchorFlag := flag.String("view-anchor", "0,0", "Viewport anchor as x,y fractions")
	viewOffsetFlag := flag.String("view-offset", "0,0", "Viewport offset in pixels as x,y")
	verboseFlag := flag.Bool("v", false, "Print the display description")
	testFlag := flag.Bool("test", false, "Display a test gradient instead of an image")
	flag.Parse()

	output, err := pixview.Open(*devFlag)
	if err != nil {
		fatal(err)
	}
	defer output.Close()

	screen := pixview.NewScreen(output)
	screen.View.W, screen.View.H = parseSize(*viewFlag)
	screen.View.AnchorX, screen.View.AnchorY = parseFloatPair(*viewAnchorFlag)
	screen.View.OffsetX, screen.View.OffsetY = parseIntPair(*viewOffsetFlag)

	if *verboseFlag {
		fmt.Println(screen.Dump())
	}

	if *clearFlag != "" {
		c, err := pixel.ParseColor(*clearFlag)
		if err != nil {
			fatal(err)
		}
		if err = screen.Clear(c); err != nil {
			fatal(err)
		}
	}

	var m *img.Image
	switch {
	case *testFlag:
		bounds := output.Bounds()
		m = testImage(bounds.Dx(), bounds.Dy())
	case *imageFlag != "":
		if m, err = img.Load(*imageFlag); err != nil {
			fatal(err)
		}
	default:
		return
	}

	m.AnchorX, m.AnchorY = parseFloatPair(*anchorFlag)
	m.OffsetX, m.OffsetY = parseIntPair(*offsetFlag)
	m.Blend = *blendFlag
	m.Loops = *loopsFlag
	if *delayFlag > 0 {
		m.Delay = *delayFlag
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err = screen.Blit(ctx, m); err != nil && !errors.Is(err, context.Canceled) {
		fatal(err)
	}
}

// testImage renders a hue sweep left to right, fading to black at the
// bottom edge.
func testImage(w, h int) *img.Image {
	pix := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		value := 1 - float64(y)/float64(h)
		for x := 0; x < w; x++ {
			c := colorful.Hsv(360*float64(x)/float64(w), 1, value)
			r, g, b := c.RGB255()

			i := (y*w + x) * 4
			pix[i], pix[i+1], pix[i+2], pix[i+3] = r, g, b, 0xff
		}
	}

	m := img.New(pix, w, h)
	m.Delay = time.Second
	return m
}

func parseFloatPair(s string) (x, y float64) {
	sx, sy, ok := strings.Cut(s, ",")
	if !ok {
		fatal(fmt.Errorf("invalid pair %q, expected x,y", s))
	}
	var err error
	if x, err = strconv.ParseFloat(strings.TrimSpace(sx), 64); err != nil {
		fatal(err)
	}
	if y, err = strconv.ParseFloat(strings.TrimSpace(sy), 64); err != nil {
		fatal(err)
	}
	return x, y
}

func parseIntPair(s string) (x, y int) {
	fx, fy := parseFloatPair(s)
	return int(fx), int(fy)
}

func parseSize(s string) (w, h int) {
	sw, sh, ok := strings.Cut(s, "x")
	if !ok {
		fatal(fmt.Errorf("invalid size %q, expected WxH", s))
	}
	var err error
	if w, err = strconv.Atoi(strings.TrimSpace(sw)); err != nil {
		fatal(err)
	}
	if h, err = strconv.Atoi(strings.TrimSpace(sh)); err != nil {
		fatal(err)
	}
	return w, h
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "fatal: "+err.Error())
	os.Exit(1)
}
