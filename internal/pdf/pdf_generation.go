package pdf

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/jung-kurt/gofpdf"

	"registrar/internal/models"
)

// Generator рендерит PDF-сводку заявки.
type Generator interface {
	RegistrationSummary(reg *models.Registration, generatedAt time.Time) ([]byte, error)
}

// SummaryGenerator: сводка по заявке для заявителя.
// FontPath пустой: встроенный Helvetica с cp1252 (хватает для французского).
type SummaryGenerator struct {
	FontPath string // путь до TTF, например "assets/fonts/DejaVuSans.ttf"
	fontName string
}

func NewSummaryGenerator(fontPath string) *SummaryGenerator {
	name := "Helvetica"
	if fontPath != "" {
		name = "DejaVu"
	}
	return &SummaryGenerator{FontPath: fontPath, fontName: name}
}

func (g *SummaryGenerator) RegistrationSummary(reg *models.Registration, generatedAt time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Dossier d'inscription n°%d", reg.ID), true)
	pdf.SetAuthor("Registrar", false)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)

	tr := func(s string) string { return s }
	if g.FontPath != "" {
		pdf.AddUTF8Font(g.fontName, "", g.FontPath)
		pdf.AddUTF8Font(g.fontName, "B", g.FontPath)
	} else {
		tr = pdf.UnicodeTranslatorFromDescriptor("")
	}
	pdf.AddPage()

	// ===== Заголовок
	pdf.SetFont(g.fontName, "B", 18)
	pdf.CellFormat(0, 10, tr("DOSSIER D'INSCRIPTION"), "", 1, "C", false, 0, "")
	pdf.SetFont(g.fontName, "", 12)
	sub := fmt.Sprintf("N° %06d  -  édité le %s", reg.ID, generatedAt.UTC().Format("02/01/2006 15:04"))
	pdf.CellFormat(0, 7, tr(sub), "", 1, "C", false, 0, "")
	g.hr(pdf)
	pdf.Ln(3)

	g.sectionTitle(pdf, tr("Identité"))
	g.kvLine(pdf, tr, "Prénom", reg.FirstName)
	g.kvLine(pdf, tr, "Nom", reg.LastName)
	g.kvLine(pdf, tr, "E-mail", reg.Email)
	g.kvLine(pdf, tr, "Téléphone", reg.Phone)
	pdf.Ln(2)
	g.hr(pdf)

	g.sectionTitle(pdf, tr("Adresse"))
	g.kvLine(pdf, tr, "Adresse", reg.AddressLine)
	g.kvLine(pdf, tr, "Code postal", reg.PostalCode)
	g.kvLine(pdf, tr, "Ville", reg.City)
	g.kvLine(pdf, tr, "Pays", reg.Country)
	pdf.Ln(2)
	g.hr(pdf)

	g.sectionTitle(pdf, tr("Statut"))
	g.kvLine(pdf, tr, "Statut", statusLabel(reg.Status))
	g.kvLine(pdf, tr, "Téléphone vérifié", yesNo(reg.PhoneVerified))
	g.kvLine(pdf, tr, "E-mail vérifié", yesNo(reg.EmailVerified))

	if fields := formFields(reg.FormData); len(fields) > 0 {
		pdf.Ln(2)
		g.hr(pdf)
		g.sectionTitle(pdf, tr("Informations complémentaires"))
		for _, f := range fields {
			g.kvLine(pdf, tr, f[0], f[1])
		}
	}

	// ===== Нумерация страниц
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(g.fontName, "", 10)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render summary pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// === helpers ===
func (g *SummaryGenerator) sectionTitle(pdf *gofpdf.Fpdf, s string) {
	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 7, s, "", 1, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
}

func (g *SummaryGenerator) kvLine(pdf *gofpdf.Fpdf, tr func(string) string, key, val string) {
	if val == "" {
		val = "-"
	}
	pdf.SetFont(g.fontName, "B", 11)
	pdf.CellFormat(55, 6, tr(key+" :"), "", 0, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
	pdf.MultiCell(0, 6, tr(val), "", "L", false)
}

func (g *SummaryGenerator) hr(pdf *gofpdf.Fpdf) {
	y := pdf.GetY() + 1.5
	pdf.SetLineWidth(0.2)
	pdf.Line(20, y, 190, y)
	pdf.SetY(y + 2)
}

func statusLabel(s models.RegistrationStatus) string {
	switch s {
	case models.RegistrationStatusDraft:
		return "Brouillon"
	case models.RegistrationStatusSubmitted:
		return "Soumis"
	case models.RegistrationStatusValidated:
		return "Validé"
	case models.RegistrationStatusRejected:
		return "Refusé"
	}
	return string(s)
}

func yesNo(b bool) string {
	if b {
		return "Oui"
	}
	return "Non"
}

// formFields: плоские пары ключ/значение из formData, по алфавиту. Вложенные значения как JSON.
func formFields(raw json.RawMessage) [][2]string {
	if len(raw) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([][2]string, 0, len(keys))
	for _, k := range keys {
		var v string
		switch val := m[k].(type) {
		case string:
			v = val
		case nil:
			v = ""
		default:
			b, _ := json.Marshal(val)
			v = string(b)
		}
		out = append(out, [2]string{k, v})
	}
	return out
}
