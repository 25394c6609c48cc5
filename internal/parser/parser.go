package parser

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/rs/zerolog/log"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
)

var ErrUnsupportedFormat = errors.New("unsupported file format")

// Document is the plain text pulled out of an uploaded file.
type Document struct {
	Name     string
	Format   string
	Text     string
	Warnings []string
}

// Formats lists the extensions ParseFile understands.
var Formats = []string{".pdf", ".docx", ".pptx", ".xlsx", ".ods", ".md", ".txt"}

// ParseFile extracts the text of the file at filePath as a single blob.
func ParseFile(filePath string) (*Document, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	doc := &Document{Name: filepath.Base(filePath), Format: strings.TrimPrefix(ext, ".")}

	var err error
	switch ext {
	case ".pdf":
		err = doc.parsePDF(filePath)
	case ".docx":
		err = doc.parseDOCX(filePath)
	case ".pptx":
		err = doc.parsePPTX(filePath)
	case ".xlsx":
		err = doc.parseXLSX(filePath)
	case ".ods":
		err = doc.parseODS(filePath)
	case ".md", ".markdown":
		err = doc.parseMarkdown(filePath)
	case ".txt":
		err = doc.parseText(filePath)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", doc.Name, err)
	}

	log.Debug().
		Str("file", doc.Name).
		Int("chars", len(doc.Text)).
		Int("warnings", len(doc.Warnings)).
		Msg("Extracted document text")
	return doc, nil
}

func (d *Document) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	log.Warn().Str("file", d.Name).Msg(msg)
	d.Warnings = append(d.Warnings, msg)
}

// parsePDF joins page texts in page order with "\n". A page that cannot be
// read contributes nothing.
func (d *Document) parsePDF(filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return err
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return err
	}

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		text, err := pageText(reader, i)
		if err != nil {
			d.warn("page %d: %v", i, err)
			continue
		}
		pages = append(pages, text)
	}
	d.Text = strings.Join(pages, "\n")
	return nil
}

func pageText(reader *pdf.Reader, i int) (text string, err error) {
	// the pdf package panics on some malformed content streams
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extraction panicked: %v", r)
		}
	}()

	page := reader.Page(i)
	if page.V.IsNull() {
		return "", errors.New("page not found")
	}
	return page.GetPlainText(nil)
}

func (d *Document) parseDOCX(filePath string) error {
	r, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return err
	}
	defer r.Close()

	text, err := xmlText(strings.NewReader(r.Editable().GetContent()))
	if err != nil {
		return err
	}
	d.Text = text
	return nil
}

func (d *Document) parsePPTX(filePath string) error {
	f, err := zip.OpenReader(filePath)
	if err != nil {
		return err
	}
	defer f.Close()

	type slide struct {
		num  int
		file *zip.File
	}
	var slides []slide
	for _, file := range f.File {
		name, ok := strings.CutPrefix(file.Name, "ppt/slides/slide")
		if !ok {
			continue
		}
		num, err := strconv.Atoi(strings.TrimSuffix(name, ".xml"))
		if err != nil {
			continue
		}
		slides = append(slides, slide{num: num, file: file})
	}
	slices.SortFunc(slides, func(a, b slide) int { return a.num - b.num })

	texts := make([]string, 0, len(slides))
	for _, s := range slides {
		text, err := zipEntryText(s.file)
		if err != nil {
			d.warn("slide %d: %v", s.num, err)
			continue
		}
		texts = append(texts, text)
	}
	d.Text = strings.Join(texts, "\n")
	return nil
}

func zipEntryText(file *zip.File) (string, error) {
	rc, err := file.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	return xmlText(rc)
}

func (d *Document) parseXLSX(filePath string) error {
	f, err := xlsx.OpenFile(filePath)
	if err != nil {
		return err
	}

	var text strings.Builder
	for _, sheet := range f.Sheets {
		fmt.Fprintf(&text, "Sheet: %s\n", sheet.Name)
		for _, row := range sheet.Rows {
			if row == nil {
				continue
			}
			cells := make([]string, 0, len(row.Cells))
			for _, cell := range row.Cells {
				cells = append(cells, cell.String())
			}
			writeRow(&text, cells)
		}
	}
	d.Text = text.String()
	return nil
}

func (d *Document) parseODS(filePath string) error {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return err
	}
	defer f.Close()

	var text strings.Builder
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			d.warn("sheet %s: %v", sheetName, err)
			continue
		}
		fmt.Fprintf(&text, "Sheet: %s\n", sheetName)
		for _, row := range rows {
			writeRow(&text, row)
		}
	}
	d.Text = text.String()
	return nil
}

func writeRow(w io.StringWriter, cells []string) {
	_, _ = w.WriteString(strings.Join(cells, "\t"))
	_, _ = w.WriteString("\n")
}

func (d *Document) parseMarkdown(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	d.Text = MarkdownToText(data)
	return nil
}

func (d *Document) parseText(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	d.Text = string(data)
	return nil
}
