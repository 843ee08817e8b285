package export

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	_ "image/png" // registers the decoder for chart frames
	"path/filepath"

	"github.com/icza/mjpeg"
	"github.com/wcharczuk/go-chart/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/XY3070/glufire/internal/diffusion"
)

const (
	frameWidth  = 640
	frameHeight = 400
	frameRate   = 10
)

// ProfileVideo renders every snapshot as one frame of
// <dir>/profiles.mp4, the concentration front spreading outward over
// time. The Y range is fixed across frames so the motion is readable.
func ProfileVideo(dir string, res *diffusion.Result) error {
	if len(res.Snapshots) < 2 {
		return fmt.Errorf("profile video: need at least 2 snapshots, have %d", len(res.Snapshots))
	}

	yMax := 0.0
	for _, s := range res.Snapshots {
		for _, v := range s.Profile {
			if v > yMax {
				yMax = v
			}
		}
	}
	if yMax <= 0 {
		yMax = 1
	}

	videoWriter, err := mjpeg.New(filepath.Join(dir, "profiles.mp4"),
		int32(frameWidth), int32(frameHeight), int32(frameRate))
	if err != nil {
		return fmt.Errorf("create video writer: %w", err)
	}
	defer videoWriter.Close()

	var buf bytes.Buffer
	jpegOptions := &jpeg.Options{Quality: 90}

	for _, s := range res.Snapshots {
		img, err := renderProfileFrame(res.Radii, s, yMax)
		if err != nil {
			return err
		}
		if err := jpeg.Encode(&buf, img, jpegOptions); err != nil {
			return fmt.Errorf("encode frame at t=%g h: %w", s.TimeH, err)
		}
		if err := videoWriter.AddFrame(buf.Bytes()); err != nil {
			return fmt.Errorf("add frame at t=%g h: %w", s.TimeH, err)
		}
		buf.Reset()
	}
	return nil
}

func renderProfileFrame(radii []float64, s diffusion.Snapshot, yMax float64) (*image.RGBA, error) {
	graph := chart.Chart{
		Width:  frameWidth,
		Height: frameHeight,
		XAxis: chart.XAxis{
			Name: "r (mm)",
			Style: chart.Style{
				FontSize: 10.0,
			},
			Range: &chart.ContinuousRange{Min: radii[0], Max: radii[len(radii)-1]},
		},
		YAxis: chart.YAxis{
			Name: "C (mM)",
			Style: chart.Style{
				FontSize: 10.0,
			},
			Range: &chart.ContinuousRange{Min: 0, Max: yMax},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				XValues: radii,
				YValues: s.Profile,
				Style: chart.Style{
					StrokeColor: chart.ColorBlue,
					StrokeWidth: 2.0,
				},
			},
		},
	}

	pngBuf := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, pngBuf); err != nil {
		return nil, fmt.Errorf("render frame at t=%g h: %w", s.TimeH, err)
	}
	decoded, _, err := image.Decode(pngBuf)
	if err != nil {
		return nil, fmt.Errorf("decode frame at t=%g h: %w", s.TimeH, err)
	}

	rgba := image.NewRGBA(image.Rect(0, 0, frameWidth, frameHeight))
	draw.Draw(rgba, rgba.Bounds(), decoded, image.Point{}, draw.Src)
	addLabel(rgba, 12, 20, fmt.Sprintf("t = %.2f h", s.TimeH), color.Black)
	return rgba, nil
}

// addLabel draws a text label onto an image at the specified position.
func addLabel(img *image.RGBA, x, y int, label string, col color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(label)
}
