package mapview

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"io"
	"math"

	"github.com/woozymasta/rfegps/internal/geo"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/vector"
)

// supersample is the oversampling factor used before the final downscale.
const supersample = 2

// ErrEmptyRoute is returned when there is nothing to draw.
var ErrEmptyRoute = errors.New("route has no polyline")

var (
	routeColor       = color.RGBA{R: 0, G: 122, B: 255, A: 255}
	originColor      = color.RGBA{R: 52, G: 199, B: 89, A: 255}
	destinationColor = color.RGBA{R: 255, G: 59, B: 48, A: 255}
)

// PreviewOptions controls route preview rendering.
type PreviewOptions struct {
	Size      int     // output edge in pixels
	LineWidth float64 // stroke width in output pixels
	Padding   float64 // fraction of the canvas kept empty on every side
	Quality   float32 // WebP quality
}

// DefaultPreviewOptions match the on-map overlay: a 4px blue line.
var DefaultPreviewOptions = PreviewOptions{
	Size:      512,
	LineWidth: 4,
	Padding:   0.08,
	Quality:   85,
}

func (o PreviewOptions) withDefaults() PreviewOptions {
	if o.Size <= 0 {
		o.Size = DefaultPreviewOptions.Size
	}
	if o.LineWidth <= 0 {
		o.LineWidth = DefaultPreviewOptions.LineWidth
	}
	if o.Padding < 0 || o.Padding >= 0.5 {
		o.Padding = DefaultPreviewOptions.Padding
	}
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = DefaultPreviewOptions.Quality
	}
	return o
}

// RenderPreview draws the polyline on a transparent square canvas, scaled
// so the whole route is visible, with origin and destination markers.
func RenderPreview(r geo.Route, opts PreviewOptions) (image.Image, error) {
	if len(r.Polyline) == 0 {
		return nil, ErrEmptyRoute
	}
	opts = opts.withDefaults()

	size := opts.Size * supersample
	points := fitToCanvas(r.Polyline, float64(size), opts.Padding)

	canvas := image.NewRGBA(image.Rect(0, 0, size, size))
	width := opts.LineWidth * supersample

	line := vector.NewRasterizer(size, size)
	for i := 1; i < len(points); i++ {
		addSegment(line, points[i-1], points[i], width/2)
	}
	for _, p := range points {
		addDisc(line, p, width/2)
	}
	line.Draw(canvas, canvas.Bounds(), image.NewUniform(routeColor), image.Point{})

	marker := 2.5 * width
	drawDisc(canvas, points[0], marker, originColor)
	drawDisc(canvas, points[len(points)-1], marker, destinationColor)

	out := image.NewRGBA(image.Rect(0, 0, opts.Size, opts.Size))
	xdraw.CatmullRom.Scale(out, out.Bounds(), canvas, canvas.Bounds(), draw.Over, nil)

	return out, nil
}

// EncodePreview renders the route and writes it as WebP.
func EncodePreview(w io.Writer, r geo.Route, opts PreviewOptions) error {
	img, err := RenderPreview(r, opts)
	if err != nil {
		return err
	}
	opts = opts.withDefaults()
	return webp.Encode(w, img, &webp.Options{Lossless: false, Quality: opts.Quality})
}

type point struct{ x, y float32 }

// fitToCanvas projects the line to Web Mercator and scales it uniformly
// into a size x size canvas, centered.
func fitToCanvas(line []geo.Coordinate, size, padding float64) []point {
	xs := make([]float64, len(line))
	ys := make([]float64, len(line))
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)

	for i, c := range line {
		xs[i], ys[i] = geo.Project(c)
		minX, maxX = math.Min(minX, xs[i]), math.Max(maxX, xs[i])
		minY, maxY = math.Min(minY, ys[i]), math.Max(maxY, ys[i])
	}

	inner := size * (1 - 2*padding)
	extent := math.Max(maxX-minX, maxY-minY)
	scale := 0.0
	if extent > 0 {
		scale = inner / extent
	}

	offX := (size - (maxX-minX)*scale) / 2
	offY := (size - (maxY-minY)*scale) / 2

	out := make([]point, len(line))
	for i := range line {
		out[i] = point{
			x: float32(offX + (xs[i]-minX)*scale),
			y: float32(offY + (ys[i]-minY)*scale),
		}
	}
	return out
}

// addSegment adds a rectangle of half width hw around a-b. Every rectangle
// has the same winding so overlaps do not cancel out.
func addSegment(z *vector.Rasterizer, a, b point, hw float64) {
	dx, dy := float64(b.x-a.x), float64(b.y-a.y)
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}
	nx := float32(-dy / length * hw)
	ny := float32(dx / length * hw)

	z.MoveTo(a.x+nx, a.y+ny)
	z.LineTo(b.x+nx, b.y+ny)
	z.LineTo(b.x-nx, b.y-ny)
	z.LineTo(a.x-nx, a.y-ny)
	z.ClosePath()
}

// addDisc adds a 16-gon of radius r, wound like addSegment.
func addDisc(z *vector.Rasterizer, c point, r float64) {
	const sides = 16
	for i := 0; i <= sides; i++ {
		a := -float64(i) * 2 * math.Pi / sides
		x := c.x + float32(r*math.Cos(a))
		y := c.y + float32(r*math.Sin(a))
		if i == 0 {
			z.MoveTo(x, y)
		} else {
			z.LineTo(x, y)
		}
	}
	z.ClosePath()
}

func drawDisc(dst draw.Image, c point, r float64, col color.Color) {
	b := dst.Bounds()
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	addDisc(z, c, r)
	z.Draw(dst, b, image.NewUniform(col), image.Point{})
}
