/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders corpus artefacts for people rather than programs.
package export

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"scriptturns/internal/corpus"
	"scriptturns/internal/version"
)

// DefaultLabels are printed as tick boxes under each speech act.
var DefaultLabels = []string{"Informative", "Persuasive", "Expressive", "Directive", "Other"}

// Color is an RGB colour.
type Color struct{ R, G, B uint8 }

// PDFOptions controls the annotation sheet. Units are points (pt).
// Text is set in the built-in Helvetica, so characters outside cp1252 are
// replaced.
type PDFOptions struct {
	Title      string
	Labels     []string // nil means DefaultLabels
	Margin     float64  // defaults to 36
	FontSize   float64  // defaults to 10
	RuleColor  Color
	ShowLabels bool // print the label already present on the annotation
}

func (o PDFOptions) withDefaults() PDFOptions {
	if o.Labels == nil {
		o.Labels = DefaultLabels
	}
	if o.Margin <= 0 {
		o.Margin = 36
	}
	if o.FontSize <= 0 {
		o.FontSize = 10
	}
	if o.RuleColor == (Color{}) {
		o.RuleColor = Color{R: 180, G: 180, B: 180}
	}
	if o.Title == "" {
		o.Title = "Annotation sheet"
	}
	return o
}

// WriteAnnotationPDF renders anns as a printable A4 annotation sheet.
func WriteAnnotationPDF(w io.Writer, anns []corpus.Annotation, opt PDFOptions) error {
	opt = opt.withDefaults()
	pdf := gofpdf.NewCustom(&gofpdf.InitType{UnitStr: "pt", SizeStr: "A4"})
	pdf.SetTitle(opt.Title, true)
	pdf.SetAuthor(version.App, false)
	pdf.SetCreator(version.App+" "+version.String(), false)
	pdf.SetMargins(opt.Margin, opt.Margin, opt.Margin)
	pdf.SetAutoPageBreak(true, opt.Margin)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-opt.Margin + 8)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("%d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", opt.FontSize+4)
	pdf.CellFormat(0, opt.FontSize*2, tr(opt.Title), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", opt.FontSize-1)
	pdf.CellFormat(0, opt.FontSize*1.5, fmt.Sprintf("%d speech acts", len(anns)), "", 1, "L", false, 0, "")
	pdf.Ln(opt.FontSize / 2)

	pageW, _ := pdf.GetPageSize()
	width := pageW - 2*opt.Margin
	line := opt.FontSize * 1.3
	for _, a := range anns {
		// keep a block together when it would start at the bottom of a page
		_, pageH := pdf.GetPageSize()
		if pdf.GetY()+4*line > pageH-opt.Margin {
			pdf.AddPage()
		}
		pdf.SetFont("Helvetica", "B", opt.FontSize)
		head := fmt.Sprintf("#%d  %s  (%s)", a.ID, a.CharacterID(), a.Document)
		pdf.CellFormat(0, line, tr(head), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", opt.FontSize)
		pdf.MultiCell(width, line, tr(a.Text), "", "L", false)

		pdf.SetFont("Helvetica", "", opt.FontSize-1)
		box := opt.FontSize - 2
		for _, l := range opt.Labels {
			x, y := pdf.GetXY()
			pdf.Rect(x, y+(line-box)/2, box, box, "D")
			if opt.ShowLabels && strings.EqualFold(l, a.Label) {
				pdf.Line(x, y+(line-box)/2, x+box, y+(line+box)/2)
				pdf.Line(x+box, y+(line-box)/2, x, y+(line+box)/2)
			}
			pdf.SetX(x + box + 3)
			pdf.CellFormat(pdf.GetStringWidth(tr(l))+12, line, tr(l), "", 0, "L", false, 0, "")
		}
		pdf.Ln(line * 1.2)
		pdf.SetDrawColor(int(opt.RuleColor.R), int(opt.RuleColor.G), int(opt.RuleColor.B))
		y := pdf.GetY()
		pdf.Line(opt.Margin, y, pageW-opt.Margin, y)
		pdf.SetDrawColor(0, 0, 0)
		pdf.Ln(line / 2)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

// AnnotationPDF writes the sheet to outPath, creating its directory.
func AnnotationPDF(anns []corpus.Annotation, outPath string, opt PDFOptions) error {
	var buf bytes.Buffer
	if err := WriteAnnotationPDF(&buf, anns, opt); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	if err := corpus.WriteAtomic(outPath, buf.Bytes()); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
