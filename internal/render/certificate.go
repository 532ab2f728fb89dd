// Package render produces the certificate PNG artifacts. It is the only
// package that knows what a certificate looks like; the services layer just
// stores the URL it hands back.
package render

import (
	"context"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/coursehub/coursehub-backend/internal/pkg/logger"
	"github.com/coursehub/coursehub-backend/internal/services"
)

const (
	canvasWidth  = 1600
	canvasHeight = 1131
)

type pngRenderer struct {
	log       *logger.Logger
	outputDir string
	baseURL   string

	titleFace  font.Face
	nameFace   font.Face
	bodyFace   font.Face
	detailFace font.Face
}

// NewPNGRenderer draws certificates onto a local canvas and writes them under
// outputDir. baseURL is the public prefix served for that directory.
func NewPNGRenderer(baseLog *logger.Logger, outputDir, baseURL string) (services.CertificateRenderer, error) {
	rendererLog := baseLog.With("component", "PNGRenderer")

	if strings.TrimSpace(outputDir) == "" {
		return nil, fmt.Errorf("certificate output dir is empty")
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create certificate output dir: %w", err)
	}

	regular, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse regular font: %w", err)
	}
	bold, err := truetype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bold font: %w", err)
	}

	face := func(parsed *truetype.Font, size float64) font.Face {
		return truetype.NewFace(parsed, &truetype.Options{
			Size:    size,
			DPI:     72,
			Hinting: font.HintingNone,
		})
	}

	return &pngRenderer{
		log:        rendererLog,
		outputDir:  outputDir,
		baseURL:    strings.TrimRight(baseURL, "/"),
		titleFace:  face(bold, 72),
		nameFace:   face(bold, 56),
		bodyFace:   face(regular, 32),
		detailFace: face(regular, 22),
	}, nil
}

func (pr *pngRenderer) Render(ctx context.Context, req services.RenderRequest) (*services.RenderResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dc := gg.NewContext(canvasWidth, canvasHeight)

	// Background and border
	dc.SetColor(color.NRGBA{R: 252, G: 251, B: 247, A: 255})
	dc.Clear()
	dc.SetColor(color.NRGBA{R: 30, G: 58, B: 95, A: 255})
	dc.SetLineWidth(10)
	dc.DrawRectangle(40, 40, canvasWidth-80, canvasHeight-80)
	dc.Stroke()
	dc.SetLineWidth(2)
	dc.DrawRectangle(58, 58, canvasWidth-116, canvasHeight-116)
	dc.Stroke()

	cx := float64(canvasWidth) / 2

	dc.SetColor(color.NRGBA{R: 30, G: 58, B: 95, A: 255})
	dc.SetFontFace(pr.titleFace)
	dc.DrawStringAnchored("Certificate of Completion", cx, 220, 0.5, 0.5)

	dc.SetFontFace(pr.bodyFace)
	dc.SetColor(color.NRGBA{R: 70, G: 70, B: 70, A: 255})
	dc.DrawStringAnchored("This certifies that", cx, 360, 0.5, 0.5)

	dc.SetFontFace(pr.nameFace)
	dc.SetColor(color.NRGBA{R: 20, G: 20, B: 20, A: 255})
	dc.DrawStringAnchored(req.UserName, cx, 460, 0.5, 0.5)

	dc.SetFontFace(pr.bodyFace)
	dc.SetColor(color.NRGBA{R: 70, G: 70, B: 70, A: 255})
	dc.DrawStringAnchored("has successfully completed the course", cx, 560, 0.5, 0.5)

	dc.SetFontFace(pr.nameFace)
	dc.SetColor(color.NRGBA{R: 30, G: 58, B: 95, A: 255})
	dc.DrawStringAnchored(req.CourseName, cx, 660, 0.5, 0.5)

	dc.SetFontFace(pr.bodyFace)
	dc.SetColor(color.NRGBA{R: 70, G: 70, B: 70, A: 255})
	dc.DrawStringAnchored(req.CompletionDate.Format("January 2, 2006"), cx, 780, 0.5, 0.5)

	dc.SetFontFace(pr.detailFace)
	dc.SetColor(color.NRGBA{R: 120, G: 120, B: 120, A: 255})
	if req.InstructorName != "" {
		dc.DrawStringAnchored("Instructor: "+req.InstructorName, cx, 900, 0.5, 0.5)
	}
	if req.OrganizationName != "" {
		dc.DrawStringAnchored(req.OrganizationName, cx, 940, 0.5, 0.5)
	}
	dc.DrawStringAnchored(req.CertificateNumber, cx, canvasHeight-100, 0.5, 0.5)

	fileName := fmt.Sprintf("%s.png", req.CertificateNumber)
	filePath := filepath.Join(pr.outputDir, fileName)
	if err := dc.SavePNG(filePath); err != nil {
		return nil, fmt.Errorf("failed to save certificate PNG: %w", err)
	}

	fileURL := fileName
	if pr.baseURL != "" {
		fileURL = pr.baseURL + "/" + fileName
	}
	pr.log.Info("Rendered certificate artifact", "path", filePath)
	return &services.RenderResult{FileURL: fileURL, FilePath: filePath}, nil
}
