package importer

import (
	"bytes"
	"encoding/csv"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/simcatalog/core"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

var utf8BOM = []byte("\xef\xbb\xbf")

// ParsedFile holds the records of an upload keyed by normalized header.
type ParsedFile struct {
	Name    string
	Format  Format
	Headers []string // normalized, in file order
	Rows    []map[string]string
}

// DetectFormat picks the parser from the file extension, falling back to sniffing a ZIP signature.
func DetectFormat(name string, data []byte) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xls":
		return FormatXLSX
	case ".csv":
		return FormatCSV
	}
	if len(data) >= 2 && data[0] == 'P' && data[1] == 'K' {
		return FormatXLSX
	}
	return FormatCSV
}

// NormalizeHeader lowercases h, strips its accents and drops every non [a-z0-9] character:
// "Código Disciplina" and "codigo_disciplina" both become "codigodisciplina".
func NormalizeHeader(h string) string {
	h = core.StripAccents(strings.ToLower(h))
	var b strings.Builder
	for _, r := range h {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Parse detects the format of fi and reads its records.
func Parse(fi FileInfo) (ParsedFile, error) {
	if len(bytes.TrimSpace(bytes.TrimPrefix(fi.Data, utf8BOM))) == 0 {
		return ParsedFile{}, ErrEmptyFile
	}

	pf := ParsedFile{Name: fi.Name, Format: DetectFormat(fi.Name, fi.Data)}
	var (
		records [][]string
		err     error
	)
	if pf.Format == FormatXLSX {
		records, err = readXLSX(fi.Data)
	} else {
		records, err = readCSV(fi.Data)
	}
	if err != nil {
		return ParsedFile{}, err
	}
	if len(records) == 0 {
		return ParsedFile{}, ErrEmptyFile
	}

	pf.Headers, pf.Rows = keyRecords(records)
	return pf, nil
}

// CSVDelimiter is ';' when one appears in the first KiB of data, ',' otherwise.
func CSVDelimiter(data []byte) rune {
	sample := data
	if len(sample) > 1024 {
		sample = sample[:1024]
	}
	if bytes.ContainsRune(sample, ';') {
		return ';'
	}
	return ','
}

func readCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = CSVDelimiter(data)
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "Erro ao processar CSV")
	}
	return records, nil
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, ErrUnreadableArchive
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheet
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.Wrap(err, "Erro ao processar XLSX")
	}

	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		if !isBlank(row) {
			records = append(records, row)
		}
	}
	if len(records) == 0 {
		return nil, ErrEmptySheet
	}
	return records, nil
}

// keyRecords uses the first record as headers and maps every other record by normalized header.
// Missing trailing cells read as "".
func keyRecords(records [][]string) ([]string, []map[string]string) {
	rawHeaders := records[0]
	keys := make([]string, len(rawHeaders))
	headers := make([]string, 0, len(rawHeaders))
	seen := make(map[string]bool, len(rawHeaders))
	for i, h := range rawHeaders {
		keys[i] = NormalizeHeader(h)
		if keys[i] != "" && !seen[keys[i]] {
			seen[keys[i]] = true
			headers = append(headers, keys[i])
		}
	}

	rows := make([]map[string]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		if isBlank(rec) {
			continue
		}
		row := make(map[string]string, len(headers))
		for i, key := range keys {
			if key == "" {
				continue
			}
			var val string
			if i < len(rec) {
				val = strings.TrimSpace(rec[i])
			}
			row[key] = val
		}
		rows = append(rows, row)
	}
	return headers, rows
}

func isBlank(rec []string) bool {
	for _, cell := range rec {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
