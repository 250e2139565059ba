// Package pdf renders discharge summaries as printable PDF documents.
package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

// DischargeDocument holds everything that goes into a discharge summary PDF.
type DischargeDocument struct {
	PatientName  string
	PatientAge   int
	Gender       string
	AdmitDate    time.Time
	Diagnosis    string
	Summary      string
	Medications  []string
	FollowUpText string
}

// Renderer builds discharge summary PDFs.
type Renderer struct {
	hospitalLine string
	now          func() time.Time
}

func NewRenderer(hospitalLine string) *Renderer {
	if hospitalLine == "" {
		hospitalLine = "Healthcare Discharge Assistant"
	}
	return &Renderer{hospitalLine: hospitalLine, now: time.Now}
}

// Render produces the PDF bytes for a discharge document.
func (r *Renderer) Render(doc DischargeDocument) ([]byte, error) {
	if strings.TrimSpace(doc.Summary) == "" {
		return nil, fmt.Errorf("pdf: empty discharge summary")
	}

	p := fpdf.New("P", "mm", "A4", "")
	p.SetAutoPageBreak(true, 20)
	p.AliasNbPages("")

	p.SetHeaderFunc(func() {
		p.SetFont("Arial", "B", 16)
		p.CellFormat(0, 10, "DISCHARGE SUMMARY", "", 1, "C", false, 0, "")
		p.SetFont("Arial", "", 10)
		p.CellFormat(0, 5, r.hospitalLine, "", 1, "C", false, 0, "")
		p.Ln(4)
	})
	generated := r.now().Format("2006-01-02 15:04")
	p.SetFooterFunc(func() {
		p.SetY(-15)
		p.SetFont("Arial", "I", 8)
		p.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", p.PageNo()), "", 0, "C", false, 0, "")
		p.CellFormat(0, 10, "Generated: "+generated, "", 0, "R", false, 0, "")
	})

	p.AddPage()
	r.patientInfo(p, doc)
	r.section(p, "DISCHARGE SUMMARY", doc.Summary)
	if len(doc.Medications) > 0 {
		r.medications(p, doc.Medications)
	}
	if strings.TrimSpace(doc.FollowUpText) != "" {
		r.section(p, "FOLLOW-UP INSTRUCTIONS", doc.FollowUpText)
	}
	r.signatures(p)

	var buf bytes.Buffer
	if err := p.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: render failed: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) patientInfo(p *fpdf.Fpdf, doc DischargeDocument) {
	p.SetFont("Arial", "B", 14)
	p.CellFormat(0, 10, "PATIENT INFORMATION", "", 1, "L", false, 0, "")
	p.Ln(2)

	rows := []struct{ label, value string }{
		{"Name:", doc.PatientName},
		{"Age:", fmt.Sprintf("%d", doc.PatientAge)},
		{"Gender:", doc.Gender},
		{"Diagnosis:", doc.Diagnosis},
	}
	if !doc.AdmitDate.IsZero() {
		rows = append(rows, struct{ label, value string }{"Admitted:", doc.AdmitDate.Format("2006-01-02")})
	}
	for _, row := range rows {
		if row.value == "" {
			row.value = "N/A"
		}
		p.SetFont("Arial", "B", 12)
		p.CellFormat(40, 8, row.label, "", 0, "L", false, 0, "")
		p.SetFont("Arial", "", 12)
		p.CellFormat(0, 8, row.value, "", 1, "L", false, 0, "")
	}
	p.Ln(4)
}

func (r *Renderer) section(p *fpdf.Fpdf, title, body string) {
	p.SetFont("Arial", "B", 14)
	p.CellFormat(0, 10, title, "", 1, "L", false, 0, "")
	p.Ln(2)
	p.SetFont("Arial", "", 12)
	for _, paragraph := range strings.Split(body, "\n\n") {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}
		p.MultiCell(0, 6, paragraph, "", "L", false)
		p.Ln(2)
	}
	p.Ln(2)
}

func (r *Renderer) medications(p *fpdf.Fpdf, meds []string) {
	p.SetFont("Arial", "B", 14)
	p.CellFormat(0, 10, "DISCHARGE MEDICATIONS", "", 1, "L", false, 0, "")
	p.Ln(2)
	p.SetFont("Arial", "", 12)
	for i, med := range meds {
		p.CellFormat(10, 6, fmt.Sprintf("%d.", i+1), "", 0, "L", false, 0, "")
		p.CellFormat(0, 6, med, "", 1, "L", false, 0, "")
	}
	p.Ln(4)
}

func (r *Renderer) signatures(p *fpdf.Fpdf) {
	p.SetFont("Arial", "B", 14)
	p.CellFormat(0, 10, "SIGNATURES", "", 1, "L", false, 0, "")
	p.Ln(4)
	for _, label := range []string{"Attending Physician:", "Date:", "Patient/Family Acknowledgment:"} {
		p.SetFont("Arial", "B", 12)
		p.CellFormat(0, 8, label, "", 1, "L", false, 0, "")
		p.Ln(8)
		p.SetFont("Arial", "", 10)
		p.CellFormat(0, 5, "_________________________", "", 1, "L", false, 0, "")
		p.Ln(4)
	}
}

// FileName builds a deterministic attachment name for a rendered summary.
func FileName(patientName string, at time.Time) string {
	name := strings.ReplaceAll(strings.TrimSpace(patientName), " ", "_")
	if name == "" {
		name = "Unknown"
	}
	return fmt.Sprintf("discharge_summary_%s_%s.pdf", name, at.Format("20060102_150405"))
}
