package parser

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"

	"github.com/wagadu/finsight/internal/models"
)

// ParsePages extracts ordered page texts from a document file. Page
// boundaries follow the format's natural units: PDF pages, spreadsheet
// sheets, PPTX slides. Formats without pages yield a single page.
func ParsePages(filePath string) ([]models.Page, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".pdf":
		return parsePDF(filePath)
	case ".docx":
		return parseDOCX(filePath)
	case ".pptx":
		return parsePPTX(filePath)
	case ".xlsx":
		return parseXLSX(filePath)
	case ".ods":
		return parseODS(filePath)
	case ".txt", ".md":
		return parseText(filePath)
	default:
		return nil, fmt.Errorf("unsupported file format: %s", ext)
	}
}

// PageTexts flattens pages to the raw text slice the chunker consumes.
func PageTexts(pages []models.Page) []string {
	texts := make([]string, 0, len(pages))
	for _, p := range pages {
		texts = append(texts, p.Text)
	}
	return texts
}

func parsePDF(filePath string) ([]models.Page, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return nil, err
	}

	var pages []models.Page
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %w", i, err)
		}
		pages = append(pages, models.Page{Number: i, Text: pageText})
	}
	return pages, nil
}

func parseDOCX(filePath string) ([]models.Page, error) {
	r, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	content := r.Editable().GetContent()
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}
	return []models.Page{{Number: 1, Text: content}}, nil
}

func parsePPTX(filePath string) ([]models.Page, error) {
	f, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var pages []models.Page
	for _, file := range f.File {
		if !strings.HasPrefix(file.Name, "ppt/slides/slide") {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			continue
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}
		slideText := extractTextFromXML(string(data))
		if strings.TrimSpace(slideText) == "" {
			continue
		}
		pages = append(pages, models.Page{Number: len(pages) + 1, Text: slideText})
	}
	return pages, nil
}

func parseXLSX(filePath string) ([]models.Page, error) {
	f, err := xlsx.OpenFile(filePath)
	if err != nil {
		return nil, err
	}

	var pages []models.Page
	for _, sheet := range f.Sheets {
		var text strings.Builder
		text.WriteString(fmt.Sprintf("Sheet: %s\n", sheet.Name))
		for _, row := range sheet.Rows {
			for _, cell := range row.Cells {
				text.WriteString(cell.String() + "\t")
			}
			text.WriteString("\n")
		}
		pages = append(pages, models.Page{Number: len(pages) + 1, Text: text.String()})
	}
	return pages, nil
}

func parseODS(filePath string) ([]models.Page, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var pages []models.Page
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}
		var text strings.Builder
		text.WriteString(fmt.Sprintf("Sheet: %s\n", sheetName))
		for _, row := range rows {
			for _, cell := range row {
				text.WriteString(cell + "\t")
			}
			text.WriteString("\n")
		}
		pages = append(pages, models.Page{Number: len(pages) + 1, Text: text.String()})
	}
	return pages, nil
}

func parseText(filePath string) ([]models.Page, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, nil
	}
	return []models.Page{{Number: 1, Text: string(data)}}, nil
}

// extractTextFromXML pulls the text runs out of a slide's XML without a
// full OOXML parse.
func extractTextFromXML(xmlContent string) string {
	var text strings.Builder
	parts := strings.Split(xmlContent, "<a:t>")
	for i, part := range parts {
		if i == 0 {
			continue
		}
		endIdx := strings.Index(part, "</a:t>")
		if endIdx >= 0 {
			text.WriteString(part[:endIdx] + " ")
		}
	}
	return text.String()
}
