package infra

// pdf.go — PDF exit-ticket generation using go-pdf/fpdf.
// Generates A7-size thermal receipt-style tickets with:
//   - Business name header
//   - Plate, vehicle type, entry/exit timestamps
//   - Stay duration and amount charged
//
// The output file is saved to storagePath/ticket_{estadiaID}.pdf.

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kfonsecah/E-Parking2.0-sub000/internal/model"

	"github.com/go-pdf/fpdf"
)

// GenerarTicketPDF renders the exit receipt for a finished Estadia.
// Timestamps are shown in loc; storage stays UTC.
// Returns the absolute path to the generated file.
func GenerarTicketPDF(e *model.Estadia, storagePath string, loc *time.Location) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}

	fileName := fmt.Sprintf("ticket_%s.pdf", e.ID.String())
	filePath := filepath.Join(storagePath, fileName)

	// A7 ≈ 74mm × 105mm — close to thermal receipt paper (custom size, "A7" is not in fpdf's named list)
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: 74, Ht: 105},
	})
	pdf.SetMargins(4, 4, 4)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 8 // total margins = 8mm

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(contentW, 7, "E-Parking", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(contentW, 5, "Comprobante de Estadía", "", 1, "C", false, 0, "")
	pdf.Ln(2)

	// ── Stay info ─────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(contentW, 5, "Patente: "+e.Patente, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(contentW, 4, "Vehículo: "+e.TipoVehiculo, "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(2)

	col1 := contentW * 0.45
	col2 := contentW * 0.55

	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(col1, 5, "Ingreso:", "", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 5, e.IngresoAt.In(loc).Format("02/01/2006  15:04"), "", 1, "R", false, 0, "")

	if e.EgresoAt != nil {
		pdf.CellFormat(col1, 5, "Egreso:", "", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 5, e.EgresoAt.In(loc).Format("02/01/2006  15:04"), "", 1, "R", false, 0, "")

		dur := e.EgresoAt.Sub(e.IngresoAt).Round(time.Minute)
		pdf.CellFormat(col1, 5, "Permanencia:", "", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 5, fmt.Sprintf("%dh %02dm", int(dur.Hours()), int(dur.Minutes())%60), "", 1, "R", false, 0, "")
	}

	pdf.Ln(2)
	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(2)

	// ── Total ─────────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(col1, 6, "TOTAL:", "", 0, "L", false, 0, "")
	monto := "₡0.00"
	if e.Monto != nil {
		monto = "₡" + e.Monto.StringFixed(2)
	}
	pdf.CellFormat(col2, 6, monto, "", 1, "R", false, 0, "")

	// ── Footer ────────────────────────────────────────────────────────────────
	pdf.Ln(3)
	pdf.SetFont("Helvetica", "I", 7)
	pdf.CellFormat(contentW, 4, "¡Gracias por su visita!", "", 1, "C", false, 0, "")

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}

	return filePath, nil
}
