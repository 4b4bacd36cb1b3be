package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func parsed(rows ...map[string]string) ParsedFile {
	return ParsedFile{Name: "catalogo.csv", Format: FormatCSV, Headers: RequiredHeaders, Rows: rows}
}

func row(grupo, area, subarea, disciplina, codigo, carga string) map[string]string {
	return map[string]string{
		"grupo":            grupo,
		"area":             area,
		"subarea":          subarea,
		"disciplina":       disciplina,
		"codigodisciplina": codigo,
		"cargahoraria":     carga,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		pf         ParsedFile
		wantOK     bool
		wantErrors []RowError
		wantTotals Totals
	}{
		{
			name:       "no rows",
			pf:         parsed(),
			wantErrors: []RowError{{Row: 0, Field: "file", Message: "Arquivo vazio"}},
		},
		{
			name: "missing headers",
			pf: ParsedFile{
				Headers: []string{"grupo", "area", "disciplina"},
				Rows:    []map[string]string{{"grupo": "Saúde"}},
			},
			wantErrors: []RowError{{
				Row:     0,
				Field:   "headers",
				Message: "Colunas obrigatórias ausentes: subarea, codigodisciplina, cargahoraria",
			}},
		},
		{
			name:       "valid",
			pf:         parsed(row("Saúde", "Medicina", "Cardiologia", "ECG Básico", "MED-001", "40")),
			wantOK:     true,
			wantErrors: []RowError{},
			wantTotals: Totals{Rows: 1, Grupos: 1, Areas: 1, Subareas: 1, Disciplinas: 1},
		},
		{
			name:       "blank workload",
			pf:         parsed(row("Saúde", "Medicina", "Cardiologia", "ECG Básico", "MED-001", "")),
			wantOK:     true,
			wantErrors: []RowError{},
			wantTotals: Totals{Rows: 1, Grupos: 1, Areas: 1, Subareas: 1, Disciplinas: 1},
		},
		{
			name: "row errors",
			pf: parsed(
				row("Saúde", "Medicina", "Cardiologia", "ECG Básico", "M", "40"),
				row("", "Medicina", "", "ECG Avançado", "MED-002", "quarenta"),
				row("Saúde", "Medicina", "Cardiologia", "Holter", "MED-003", "-1"),
			),
			wantErrors: []RowError{
				{Row: 2, Field: "codigodisciplina", Message: "Código da Disciplina deve ter pelo menos 2 caracteres"},
				{Row: 3, Field: "grupo", Message: "Grupo é obrigatório"},
				{Row: 3, Field: "subarea", Message: "Subárea é obrigatória"},
				{Row: 3, Field: "cargahoraria", Message: "Carga Horária deve ser um número inteiro maior ou igual a 0"},
				{Row: 4, Field: "cargahoraria", Message: "Carga Horária deve ser um número inteiro maior ou igual a 0"},
			},
		},
		{
			name: "partially valid",
			pf: parsed(
				row("Saúde", "Medicina", "Cardiologia", "ECG Básico", "MED-001", "40"),
				row("Saúde", "Medicina", "Cardiologia", "ECG Avançado", "", "40"),
			),
			wantErrors: []RowError{{Row: 3, Field: "codigodisciplina", Message: "Código da Disciplina é obrigatório"}},
			wantTotals: Totals{Rows: 1, Grupos: 1, Areas: 1, Subareas: 1, Disciplinas: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Validate(tt.pf)
			assert.Equal(t, tt.wantOK, res.OK)
			assert.Equal(t, tt.wantErrors, res.Errors)
			assert.Equal(t, tt.wantTotals, res.Totals)
		})
	}
}

func TestValidate_totalsUseCompositeKeys(t *testing.T) {
	res := Validate(parsed(
		row("Saúde", "Medicina", "Cardiologia", "ECG Básico", "MED-001", "40"),
		row("Saúde", "Medicina", "Cardiologia", "ECG Avançado", "MED-002", "20"),
		row("Saúde", "Enfermagem", "Cardiologia", "Cuidados", "ENF-001", "20"),
		row("Engenharia", "Medicina", "Cardiologia", "Biomédica", "ENG-001", "20"),
		row("Engenharia", "Medicina", "Cardiologia", "Biomédica 2", "MED-001", "20"),
	))

	assert.True(t, res.OK)
	assert.Equal(t, Totals{Rows: 5, Grupos: 2, Areas: 3, Subareas: 3, Disciplinas: 4}, res.Totals)
	assert.Equal(t, 40, res.NormalizedRows[0].CargaHoraria)
}

func TestGenerateSample(t *testing.T) {
	rows := []NormalizedRow{{CodigoDisciplina: "A1"}, {CodigoDisciplina: "A2"}, {CodigoDisciplina: "A3"}}

	assert.Equal(t, []Sample{{Row: 2, Data: rows[0]}, {Row: 3, Data: rows[1]}}, GenerateSample(rows, 2))
	assert.Len(t, GenerateSample(rows, 10), 3)
	assert.Empty(t, GenerateSample(rows, 0))
	assert.Empty(t, GenerateSample(nil, 5))
}
