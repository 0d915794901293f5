package report

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-pdf/fpdf"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/piwi3910/SleevePlan/internal/model"
)

// LabelInfo holds the data encoded into each sleeve tag's QR code.
type LabelInfo struct {
	SleeveID   string  `json:"sleeve"`
	RunID      string  `json:"run"`
	ConduitID  string  `json:"conduit"`
	ObstacleID string  `json:"obstacle"`
	Diameter   float64 `json:"diameter_mm"`
	Length     float64 `json:"length_mm"`
	X          float64 `json:"x_mm"`
	Y          float64 `json:"y_mm"`
	Z          float64 `json:"z_mm"`
	InZone     bool    `json:"in_zone"`
}

// Avery 5160-compatible sheet: 3 columns x 10 rows on US Letter.
const (
	labelMarginTop  = 12.7
	labelMarginLeft = 4.8
	labelWidth      = 66.7
	labelHeight     = 25.4
	labelCols       = 3
	labelRows       = 10
	labelsPerPage   = labelCols * labelRows
	qrSize          = 20.0
	labelPadding    = 2.0
)

// ExportLabels writes a PDF sheet of QR-coded tags, one per placed sleeve,
// for marking sleeves on site.
func ExportLabels(path string, sleeves []model.PlacedSleeve) error {
	labels := CollectLabelInfos(sleeves)
	if len(labels) == 0 {
		return fmt.Errorf("no placed sleeves to generate labels for")
	}

	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetAutoPageBreak(false, 0)

	for i, label := range labels {
		if i%labelsPerPage == 0 {
			pdf.AddPage()
		}

		pos := i % labelsPerPage
		x := labelMarginLeft + float64(pos%labelCols)*labelWidth
		y := labelMarginTop + float64(pos/labelCols)*labelHeight

		if err := renderLabel(pdf, x, y, label); err != nil {
			return fmt.Errorf("failed to render label for sleeve %s: %w", label.SleeveID, err)
		}
	}

	return pdf.OutputFileAndClose(path)
}

func renderLabel(pdf *fpdf.Fpdf, x, y float64, info LabelInfo) error {
	pdf.SetDrawColor(200, 200, 200)
	pdf.SetLineWidth(0.1)
	pdf.Rect(x, y, labelWidth, labelHeight, "D")

	qrData, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal label info: %w", err)
	}
	qrPNG, err := qrcode.Encode(string(qrData), qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("failed to generate QR code: %w", err)
	}

	imgName := "qr_" + info.SleeveID
	pdf.RegisterImageOptionsReader(imgName, fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(qrPNG))
	qrX := x + labelWidth - qrSize - labelPadding
	qrY := y + (labelHeight-qrSize)/2
	pdf.ImageOptions(imgName, qrX, qrY, qrSize, qrSize, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")

	textX := x + labelPadding
	textW := labelWidth - qrSize - 3*labelPadding

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(textX, y+labelPadding)
	pdf.CellFormat(textW, 4.5, truncate(pdf, "Sleeve "+model.ShortID(info.SleeveID), textW), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	pdf.SetXY(textX, y+labelPadding+5)
	pdf.CellFormat(textW, 3.5, truncate(pdf, "Conduit "+info.ConduitID, textW), "", 1, "L", false, 0, "")
	pdf.SetXY(textX, y+labelPadding+8.5)
	pdf.CellFormat(textW, 3.5, fmt.Sprintf("D%.0f x %.0f mm", info.Diameter, info.Length), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 6)
	pdf.SetTextColor(100, 100, 100)
	pdf.SetXY(textX, y+labelPadding+12)
	pdf.CellFormat(textW, 3, fmt.Sprintf("@ (%.0f, %.0f, %.0f)", info.X, info.Y, info.Z), "", 1, "L", false, 0, "")

	if !info.InZone {
		pdf.SetXY(textX, y+labelPadding+15.5)
		pdf.SetFont("Helvetica", "B", 6)
		pdf.SetTextColor(200, 0, 0)
		pdf.CellFormat(textW, 3, "OUTSIDE PERMISSIBLE ZONE", "", 0, "L", false, 0, "")
	}

	pdf.SetTextColor(0, 0, 0)
	return nil
}

// truncate shortens s with an ellipsis until it fits in w.
func truncate(pdf *fpdf.Fpdf, s string, w float64) string {
	if pdf.GetStringWidth(s) <= w {
		return s
	}
	for len(s) > 0 && pdf.GetStringWidth(s+"...") > w {
		s = s[:len(s)-1]
	}
	return s + "..."
}

// CollectLabelInfos extracts the tag data for each placed sleeve in order.
func CollectLabelInfos(sleeves []model.PlacedSleeve) []LabelInfo {
	labels := make([]LabelInfo, 0, len(sleeves))
	for _, s := range sleeves {
		labels = append(labels, LabelInfo{
			SleeveID:   s.ID,
			RunID:      s.RunID,
			ConduitID:  s.ConduitID,
			ObstacleID: s.ObstacleID,
			Diameter:   s.Diameter,
			Length:     s.Length,
			X:          s.Position.X,
			Y:          s.Position.Y,
			Z:          s.Position.Z,
			InZone:     s.InZone,
		})
	}
	return labels
}
