package loader

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"

	"ragstore/internal/models"
)

// page number used for formats that have no page concept
const defaultPageNumber = 1

var supportedExtensions = map[string]bool{
	".pdf":  true,
	".docx": true,
	".pptx": true,
	".xlsx": true,
	".ods":  true,
	".md":   true,
	".txt":  true,
}

// Supported reports whether the file name carries a loadable extension.
func Supported(fileName string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(fileName))]
}

// Load extracts the text of a single document as ordered page units.
// sourceName is recorded as provenance on every page; it is the original
// file name, which may differ from filePath when the file has been copied
// into a working directory. Pages with empty text are kept so downstream
// page accounting stays consistent.
func Load(filePath, sourceName string) ([]models.PageUnit, error) {
	ext := strings.ToLower(filepath.Ext(sourceName))
	switch ext {
	case ".pdf":
		return loadPDF(filePath, sourceName)
	case ".docx":
		return loadDOCX(filePath, sourceName)
	case ".pptx":
		return loadPPTX(filePath, sourceName)
	case ".xlsx":
		return loadXLSX(filePath, sourceName)
	case ".ods":
		return loadODS(filePath, sourceName)
	case ".md":
		return loadMarkdown(filePath, sourceName)
	case ".txt":
		return loadText(filePath, sourceName)
	default:
		return nil, &models.UnsupportedFormatError{File: sourceName, Ext: ext}
	}
}

func loadPDF(filePath, sourceName string) ([]models.PageUnit, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, &models.ExtractionError{File: sourceName, Err: err}
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, &models.ExtractionError{File: sourceName, Err: err}
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return nil, &models.ExtractionError{File: sourceName, Err: err}
	}

	var pages []models.PageUnit
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		text := ""
		if !page.V.IsNull() {
			// an undecodable page degrades to empty text, not a lost page
			if t, err := page.GetPlainText(nil); err == nil {
				text = t
			}
		}
		pages = append(pages, models.PageUnit{
			Text:       text,
			SourceName: sourceName,
			PageNumber: i,
		})
	}
	return pages, nil
}

func loadDOCX(filePath, sourceName string) ([]models.PageUnit, error) {
	r, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return nil, &models.ExtractionError{File: sourceName, Err: err}
	}
	defer r.Close()

	content := r.Editable().GetContent()
	// DOCX has no page numbers; the whole document counts as page 1
	return []models.PageUnit{{
		Text:       content,
		SourceName: sourceName,
		PageNumber: defaultPageNumber,
	}}, nil
}

func loadPPTX(filePath, sourceName string) ([]models.PageUnit, error) {
	f, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, &models.ExtractionError{File: sourceName, Err: err}
	}
	defer f.Close()

	var slideFiles []*zip.File
	for _, file := range f.File {
		if strings.HasPrefix(file.Name, "ppt/slides/slide") && strings.HasSuffix(file.Name, ".xml") {
			slideFiles = append(slideFiles, file)
		}
	}
	sort.Slice(slideFiles, func(i, j int) bool { return slideFiles[i].Name < slideFiles[j].Name })

	var pages []models.PageUnit
	for slideNum, file := range slideFiles {
		rc, err := file.Open()
		if err != nil {
			continue
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}
		pages = append(pages, models.PageUnit{
			Text:       extractTextFromXML(string(data)),
			SourceName: sourceName,
			PageNumber: slideNum + 1, // 1-based indexing
		})
	}
	return pages, nil
}

func loadXLSX(filePath, sourceName string) ([]models.PageUnit, error) {
	f, err := xlsx.OpenFile(filePath)
	if err != nil {
		return nil, &models.ExtractionError{File: sourceName, Err: err}
	}

	var pages []models.PageUnit
	for sheetNum, sheet := range f.Sheets {
		var text strings.Builder
		text.WriteString(fmt.Sprintf("Sheet: %s\n", sheet.Name))
		for _, row := range sheet.Rows {
			for _, cell := range row.Cells {
				text.WriteString(cell.String() + "\t")
			}
			text.WriteString("\n")
		}
		pages = append(pages, models.PageUnit{
			Text:       text.String(),
			SourceName: sourceName,
			PageNumber: sheetNum + 1, // sheets act as pages
		})
	}
	return pages, nil
}

func loadODS(filePath, sourceName string) ([]models.PageUnit, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, &models.ExtractionError{File: sourceName, Err: err}
	}
	defer f.Close()

	var pages []models.PageUnit
	for sheetNum, sheetName := range f.GetSheetList() {
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
		pages = append(pages, models.PageUnit{
			Text:       text.String(),
			SourceName: sourceName,
			PageNumber: sheetNum + 1,
		})
	}
	return pages, nil
}

func loadMarkdown(filePath, sourceName string) ([]models.PageUnit, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, &models.ExtractionError{File: sourceName, Err: err}
	}
	text, err := markdownToText(data)
	if err != nil {
		return nil, &models.ExtractionError{File: sourceName, Err: err}
	}
	return []models.PageUnit{{
		Text:       text,
		SourceName: sourceName,
		PageNumber: defaultPageNumber,
	}}, nil
}

func loadText(filePath, sourceName string) ([]models.PageUnit, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, &models.ExtractionError{File: sourceName, Err: err}
	}
	return []models.PageUnit{{
		Text:       string(data),
		SourceName: sourceName,
		PageNumber: defaultPageNumber,
	}}, nil
}

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
