package gross

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"strings"
	"time"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/jung-kurt/gofpdf"

	"dockout/infrastructure/sap"
)

// RenderLoadingSlipPDF renders the slip handed to the driver: the VEP token
// as a Code128 barcode, one row per loaded line and the total gross weight.
func RenderLoadingSlipPDF(vepToken string, lines []sap.LoadedLine, printedAt time.Time) ([]byte, error) {
	vepToken = strings.TrimSpace(vepToken)
	if vepToken == "" {
		return nil, fmt.Errorf("vep token is required")
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("no loaded lines to render")
	}
	barcodePNG, err := renderCode128PNG(vepToken, 1200, 240)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Loading Slip "+vepToken, false)
	pdf.SetMargins(12, 12, 12)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 22)
	pdf.CellFormat(0, 12, "LOADING SLIP", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, "Printed: "+printedAt.Format("02/01/2006 15:04"), "", 1, "C", false, 0, "")

	opt := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	pdf.RegisterImageOptionsReader("vep-barcode", opt, bytes.NewReader(barcodePNG))
	pageW, _ := pdf.GetPageSize()
	imgW := 120.0
	imgH := 24.0
	y := pdf.GetY() + 4
	pdf.ImageOptions("vep-barcode", (pageW-imgW)/2, y, imgW, imgH, false, opt, 0, "")
	pdf.SetY(y + imgH + 2)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, vepToken, "", 1, "C", false, 0, "")
	pdf.Ln(4)

	headers := []string{"DO", "Item", "Material", "Batch", "Qty", "Net", "Gross"}
	widths := []float64{30, 18, 40, 30, 22, 22, 24}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, l := range lines {
		row := []string{l.ObdNo, l.Posnr, l.Matnr, l.Charg, l.Lfimg, l.Ntgew, l.Brgew}
		for i, v := range row {
			align := "L"
			if i >= 4 {
				align = "R"
			}
			pdf.CellFormat(widths[i], 6, v, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, fmt.Sprintf("Total Gross Weight: %s KG", TotalGross(lines).StringFixed(2)), "", 1, "R", false, 0, "")

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func renderCode128PNG(value string, width, height int) ([]byte, error) {
	code, err := code128.Encode(value)
	if err != nil {
		return nil, err
	}
	scaled, err := barcode.Scale(code, width, height)
	if err != nil {
		return nil, err
	}
	bounds := scaled.Bounds()
	normalized := image.NewNRGBA(bounds)
	draw.Draw(normalized, bounds, scaled, bounds.Min, draw.Src)
	var buf bytes.Buffer
	if err := png.Encode(&buf, normalized); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
