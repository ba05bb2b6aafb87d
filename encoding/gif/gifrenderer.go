package gif

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"io"
	"math"
	"math/bits"
	"strings"

	"github.com/golang/freetype/truetype"
	"github.com/gorgonia/tomograph"
	"github.com/gorgonia/tomograph/basis"
	"github.com/pkg/errors"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/math/fixed"
)

var regular *truetype.Font

const (
	dpi             = 144.0
	fontsize        = 12.0
	lineheight      = 1.2
	barWidth        = 30
	dummyLongString = `Epoch 100000/100000, Loss: -0.000000`
)

func init() {
	var err error
	if regular, err = truetype.Parse(gomono.TTF); err != nil {
		panic(err)
	}
}

var globPalette = color.Palette{
	color.Gray{0},
	color.Gray{253},
}

// Predictor is anything that can read out the full reconstructed state. *tomograph.Tomograph is one.
type Predictor interface {
	Predict() (tomograph.State, error)
}

// Encoder renders one frame per training epoch: the epoch and loss, followed by a
// histogram of amplitude² over the basis.
type Encoder struct {
	H, W int
	font.Drawer
	io.Writer

	src  Predictor
	out  *gif.GIF
	face font.Face
	err  error

	maxH, maxW  int // maxHeight and maxWidth
	padH, padW  int // padding so everything don't start at the topleft
	initialized bool
}

// NewGifEncoder with height and width
func NewGifEncoder(h, w int, src Predictor) *Encoder {
	return &Encoder{
		H:    -1,
		W:    -1,
		maxH: h,
		maxW: w,
		padH: 10,
		padW: 10,

		src: src,
		Drawer: font.Drawer{
			Src: image.Black,
		},
		out: &gif.GIF{LoopCount: -1},
	}
}

// Callback adapts the encoder to tomograph.Fit. The first error stops encoding and
// is reported by Flush.
func (enc *Encoder) Callback() tomograph.Callback {
	return func(l tomograph.EpochLog) {
		if enc.err != nil {
			return
		}
		enc.err = enc.Encode(l)
	}
}

// Encode adds the frame for an epoch.
func (enc *Encoder) Encode(l tomograph.EpochLog) error {
	s, err := enc.src.Predict()
	if err != nil {
		return errors.WithMessage(err, "unable to render epoch")
	}
	repr := histogram(s)

	if !enc.initialized {
		// lazy init of specifications
		enc.face = truetype.NewFace(regular, &truetype.Options{
			Size:    fontsize,
			DPI:     dpi,
			Hinting: font.HintingFull,
		})
		enc.Drawer.Src = image.Black
		enc.Drawer.Face = enc.face

		// first calculate how long the max length will be
		splits := strings.Split(repr, "\n")
		oneline := splits[0]
		maxW := maxInt(font.MeasureString(enc.Face, oneline).Ceil(), font.MeasureString(enc.Face, dummyLongString).Ceil())
		dy := int(math.Ceil(fontsize * lineheight * dpi / 72))
		w := maxW + 2*enc.padW
		h := (len(splits)+2)*dy + 2*enc.padH // + 2 is for the header and the spacer line

		w = minInt(w, enc.maxW)
		h = minInt(h, enc.maxH)

		if w == enc.maxW {
			enc.padW = 0
		}
		if h == enc.maxH {
			enc.padH = 0
		}

		enc.H = h
		enc.W = w
		enc.initialized = true
	}

	y := 0
	bg := image.White
	im := image.NewPaletted(image.Rect(0, 0, enc.W, enc.H), globPalette)
	draw.Draw(im, im.Bounds(), bg, image.Point{}, draw.Src)
	dy := int(math.Ceil(fontsize * lineheight * dpi / 72))
	y += dy
	enc.Dst = im

	enc.Dot = fixed.P(enc.padW, y+enc.padH)
	enc.DrawString(fmt.Sprintf("Epoch %d/%d, Loss: %f", l.Epoch+1, l.Epochs, l.Loss))
	y += 2 * dy

	for _, line := range strings.Split(repr, "\n") {
		enc.Dot = fixed.P(enc.padW, y+enc.padH)
		enc.DrawString(line)
		y += dy
	}

	var delay int
	if l.Epoch == l.Epochs-1 {
		delay = 300
	}
	enc.out.Image = append(enc.out.Image, im)
	enc.out.Delay = append(enc.out.Delay, delay)
	return nil
}

// Flush writes the gif into the writer
func (enc *Encoder) Flush() error {
	if enc.err != nil {
		return enc.err
	}
	return gif.EncodeAll(enc.Writer, enc.out)
}

// histogram renders one line per basis state: its ket, amplitude² and a bar.
func histogram(s tomograph.State) string {
	dim := bits.Len(uint(s.Len() - 1))
	var buf strings.Builder
	for i, p := range s.Probabilities() {
		if i > 0 {
			buf.WriteByte('\n')
		}
		n := int(math.Round(p * barWidth))
		fmt.Fprintf(&buf, "%s %.3f %s", basis.Label(i, dim), p, strings.Repeat("#", n))
	}
	return buf.String()
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
