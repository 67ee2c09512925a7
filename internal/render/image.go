package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/tkrause/wetterdeck/internal/models"
)

// Minimum pixel dimensions of a rendered image. Smaller requests are
// raised to the minimum, which matches the 128x128 displays the
// layout was designed for.
const (
	minImageWidth  = 128
	minImageHeight = 128
)

// Text grid of the status image: eight lines starting at textTop,
// lineStep pixels apart, all indented by textLeft.
const (
	textLeft = 10
	textTop  = 7
	lineStep = 14
)

const (
	imageNameLimit     = 17
	imageForecastLimit = 10
)

// Image rasterizes weather records into small status images.
type Image struct {
	dark bool
}

// NewImage returns an Image renderer. With dark set it draws white
// text on black instead of black on white.
func NewImage(dark bool) *Image {
	return &Image{dark: dark}
}

// Render draws the record into a width x height image.
func (r *Image) Render(data models.DisplayData, width, height int) *image.RGBA {
	if width < minImageWidth {
		width = minImageWidth
	}
	if height < minImageHeight {
		height = minImageHeight
	}

	back, text := color.Color(color.White), color.Color(color.Black)
	if r.dark {
		back, text = color.Black, color.White
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(back), image.Point{}, draw.Src)

	face := basicfont.Face7x13
	for i, line := range imageLines(data) {
		drawer := &font.Drawer{
			Dst:  img,
			Src:  image.NewUniform(text),
			Face: face,
			Dot:  fixed.P(textLeft, textTop+i*lineStep+face.Ascent),
		}
		drawer.DrawString(line)
	}
	return img
}

// WriteFile renders the record at the minimum size and writes it to
// path as PNG.
func (r *Image) WriteFile(path string, data models.DisplayData) error {
	img := r.Render(data, minImageWidth, minImageHeight)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating image file: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encoding image: %w", err)
	}
	return f.Close()
}

// imageLines lays the record out as the eight fixed lines of the
// status image. The date loses its weekday prefix to fit next to the
// time.
func imageLines(data models.DisplayData) []string {
	date := data.FormattedDate()
	if _, day, found := strings.Cut(date, " "); found {
		date = day
	}
	return []string{
		truncate(data.StationName, imageNameLimit),
		fmt.Sprintf("%s, %s", date, data.FormattedTime()),
		fmt.Sprintf("Fore.: %s", truncate(data.FormattedForecast(), imageForecastLimit)),
		fmt.Sprintf("Tmax: %5.1f °C", data.DailyMax),
		fmt.Sprintf("Tmin: %5.1f °C", data.DailyMin),
		fmt.Sprintf("T:  %5.1f °C", data.Temperature),
		fmt.Sprintf("Td: %5.1f °C", data.DewPoint),
		fmt.Sprintf("Prec.: %4.1f mm", data.Precipitation),
	}
}
