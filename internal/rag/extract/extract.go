package extract

import (
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/akolanti/CompassAPI/pkg/logger_i"
	"github.com/dslipak/pdf"
	"github.com/lu4p/cat"
	"github.com/xuri/excelize/v2"
)

var logger = logger_i.NewLogger("Extract")

// Text returns the raw text of a corpus file, or ok=false when the file is
// unsupported or unreadable. Callers treat that as a skippable condition, not
// an error - extraction failure never aborts a sync pass.
func Text(path string) (string, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return pdfText(path)
	case ".docx", ".odt", ".rtf":
		return catText(path)
	case ".csv":
		return csvText(path)
	case ".xlsx":
		return xlsxText(path)
	case ".md", ".txt", ".log":
		return plainText(path)
	default:
		logger.Warn("Unsupported extension", "path", path)
		return "", false
	}
}

func plainText(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("Failed reading file", "path", path, "error", err)
		return "", false
	}
	return string(data), true
}

func catText(path string) (string, bool) {
	text, err := cat.File(path)
	if err != nil {
		logger.Error("Failed extracting document", "path", path, "error", err)
		return "", false
	}
	return text, true
}

func pdfText(path string) (string, bool) {
	f, err := pdf.Open(path)
	if err != nil {
		logger.Error("Failed opening pdf", "path", path, "error", err)
		return "", false
	}

	var pages []string
	numPages := f.NumPage()
	for i := 1; i <= numPages; i++ {
		page := f.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := protectExtract(page)
		if err != nil {
			// keep going with the other pages
			logger.Error("Failed parsing pdf page", "path", path, "page", i, "error", err)
			continue
		}
		pages = append(pages, content)
	}
	if len(pages) == 0 {
		return "", false
	}
	return strings.Join(pages, "\n"), true
}

// csvText re-encodes the records so quoting and line endings come out
// normalized regardless of how the source file was written.
func csvText(path string) (string, bool) {
	f, err := os.Open(path)
	if err != nil {
		logger.Error("Failed opening csv", "path", path, "error", err)
		return "", false
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		logger.Error("Failed parsing csv", "path", path, "error", err)
		return "", false
	}
	return encodeRecords(records)
}

func xlsxText(path string) (string, bool) {
	workbook, err := excelize.OpenFile(path)
	if err != nil {
		logger.Error("Failed opening xlsx", "path", path, "error", err)
		return "", false
	}
	defer workbook.Close()

	var records [][]string
	for _, sheet := range workbook.GetSheetList() {
		rows, err := workbook.GetRows(sheet)
		if err != nil {
			logger.Error("Failed reading sheet", "path", path, "sheet", sheet, "error", err)
			continue
		}
		records = append(records, rows...)
	}
	if len(records) == 0 {
		return "", false
	}
	return encodeRecords(records)
}

func encodeRecords(records [][]string) (string, bool) {
	var builder strings.Builder
	writer := csv.NewWriter(&builder)
	if err := writer.WriteAll(records); err != nil {
		logger.Error("Failed encoding records", "error", err)
		return "", false
	}
	writer.Flush()
	return builder.String(), true
}

// protectExtract guards against the pdf library hanging or panicking on a
// malformed page.
func protectExtract(page pdf.Page) (string, error) {
	type result struct {
		content string
		err     error
	}
	resChan := make(chan result, 1)

	go func() {
		content, err := page.GetPlainText(nil)
		resChan <- result{content, err}
	}()
	select {
	case r := <-resChan:
		return r.content, r.err
	case <-time.After(time.Second * 10):
		return "", errors.New("timeout")
	}
}
