package importer

import (
	"strconv"
	"strings"
)

// RequiredHeaders must all be present (normalized) for a file to be validated row by row.
var RequiredHeaders = []string{"grupo", "area", "subarea", "disciplina", "codigodisciplina", "cargahoraria"}

// RowError locates a problem in an upload. Row 0 is the file itself; the first data row is 2.
type RowError struct {
	Row     int    `json:"row"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// NormalizedRow is one validated line of catalog data.
type NormalizedRow struct {
	Grupo            string `json:"grupo"`
	Area             string `json:"area"`
	Subarea          string `json:"subarea"`
	Disciplina       string `json:"disciplina"`
	CodigoDisciplina string `json:"codigodisciplina"`
	CargaHoraria     int    `json:"cargahoraria"`
	Ementa           string `json:"ementa"`
	Observacoes      string `json:"observacoes,omitempty"`
}

func (r NormalizedRow) areaKey() string    { return r.Grupo + "::" + r.Area }
func (r NormalizedRow) subareaKey() string { return r.Grupo + "::" + r.Area + "::" + r.Subarea }

type Totals struct {
	Rows        int `json:"rows"`
	Grupos      int `json:"grupos"`
	Areas       int `json:"areas"`
	Subareas    int `json:"subareas"`
	Disciplinas int `json:"disciplinas"`
}

type ValidationResult struct {
	OK             bool
	Errors         []RowError
	NormalizedRows []NormalizedRow
	Totals         Totals
}

// Validate checks the headers then every row of pf. Only error-free rows are normalized.
func Validate(pf ParsedFile) ValidationResult {
	res := ValidationResult{Errors: []RowError{}, NormalizedRows: []NormalizedRow{}}

	if len(pf.Rows) == 0 {
		res.Errors = append(res.Errors, RowError{Row: 0, Field: "file", Message: ErrEmptyFile.Error()})
		return res
	}

	if missing := missingHeaders(pf.Headers); len(missing) > 0 {
		res.Errors = append(res.Errors, RowError{
			Row:     0,
			Field:   "headers",
			Message: "Colunas obrigatórias ausentes: " + strings.Join(missing, ", "),
		})
		return res
	}

	for i, row := range pf.Rows {
		rowErrs := validateRow(row, i+2)
		if len(rowErrs) > 0 {
			res.Errors = append(res.Errors, rowErrs...)
			continue
		}
		res.NormalizedRows = append(res.NormalizedRows, normalizeRow(row))
	}

	res.Totals = computeTotals(res.NormalizedRows)
	res.OK = len(res.Errors) == 0
	return res
}

func missingHeaders(headers []string) []string {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[h] = true
	}
	var missing []string
	for _, h := range RequiredHeaders {
		if !present[h] {
			missing = append(missing, h)
		}
	}
	return missing
}

func validateRow(row map[string]string, rowNum int) []RowError {
	var errs []RowError
	addErr := func(field, msg string) {
		errs = append(errs, RowError{Row: rowNum, Field: field, Message: msg})
	}

	if strings.TrimSpace(row["grupo"]) == "" {
		addErr("grupo", "Grupo é obrigatório")
	}
	if strings.TrimSpace(row["area"]) == "" {
		addErr("area", "Área é obrigatória")
	}
	if strings.TrimSpace(row["subarea"]) == "" {
		addErr("subarea", "Subárea é obrigatória")
	}
	if strings.TrimSpace(row["disciplina"]) == "" {
		addErr("disciplina", "Disciplina é obrigatória")
	}

	switch code := strings.TrimSpace(row["codigodisciplina"]); {
	case code == "":
		addErr("codigodisciplina", "Código da Disciplina é obrigatório")
	case len([]rune(code)) < 2:
		addErr("codigodisciplina", "Código da Disciplina deve ter pelo menos 2 caracteres")
	}

	if _, ok := parseHours(row["cargahoraria"]); !ok {
		addErr("cargahoraria", "Carga Horária deve ser um número inteiro maior ou igual a 0")
	}
	return errs
}

// parseHours reads a blank workload as 0.
func parseHours(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func normalizeRow(row map[string]string) NormalizedRow {
	hours, _ := parseHours(row["cargahoraria"])
	return NormalizedRow{
		Grupo:            strings.TrimSpace(row["grupo"]),
		Area:             strings.TrimSpace(row["area"]),
		Subarea:          strings.TrimSpace(row["subarea"]),
		Disciplina:       strings.TrimSpace(row["disciplina"]),
		CodigoDisciplina: strings.TrimSpace(row["codigodisciplina"]),
		CargaHoraria:     hours,
		Ementa:           strings.TrimSpace(row["ementa"]),
		Observacoes:      strings.TrimSpace(row["observacoes"]),
	}
}

// computeTotals counts distinct entities by composite key.
func computeTotals(rows []NormalizedRow) Totals {
	grupos := make(map[string]bool)
	areas := make(map[string]bool)
	subareas := make(map[string]bool)
	disciplinas := make(map[string]bool)
	for _, r := range rows {
		grupos[r.Grupo] = true
		areas[r.areaKey()] = true
		subareas[r.subareaKey()] = true
		disciplinas[r.CodigoDisciplina] = true
	}
	return Totals{
		Rows:        len(rows),
		Grupos:      len(grupos),
		Areas:       len(areas),
		Subareas:    len(subareas),
		Disciplinas: len(disciplinas),
	}
}

// Sample is a preview of a normalized row.
type Sample struct {
	Row  int           `json:"row"`
	Data NormalizedRow `json:"data"`
}

// GenerateSample previews the first n rows; the first is numbered 2 like the data rows of a file.
func GenerateSample(rows []NormalizedRow, n int) []Sample {
	if n > len(rows) {
		n = len(rows)
	}
	if n < 0 {
		n = 0
	}
	samples := make([]Sample, 0, n)
	for i, r := range rows[:n] {
		samples = append(samples, Sample{Row: i + 2, Data: r})
	}
	return samples
}
