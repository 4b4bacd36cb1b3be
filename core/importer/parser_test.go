package importer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func xlsxFile(t *testing.T, rows ...[]interface{}) []byte {
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Grupo", "grupo"},
		{"Área", "area"},
		{"Código Disciplina", "codigodisciplina"},
		{"codigo_disciplina", "codigodisciplina"},
		{"  Carga-Horária ", "cargahoraria"},
		{"Observações", "observacoes"},
		{"###", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeHeader(tt.in))
		})
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want Format
	}{
		{"a.csv", []byte("a,b"), FormatCSV},
		{"A.XLSX", nil, FormatXLSX},
		{"legacy.xls", nil, FormatXLSX},
		{"upload", []byte("PK\x03\x04"), FormatXLSX},
		{"upload", []byte("grupo;area"), FormatCSV},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectFormat(tt.name, tt.data), tt.name)
	}
}

func TestCSVDelimiter(t *testing.T) {
	assert.Equal(t, ';', CSVDelimiter([]byte("grupo;area\nA;B")))
	assert.Equal(t, ',', CSVDelimiter([]byte("grupo,area\nA,B")))
}

func TestParse_csv(t *testing.T) {
	data := "\xef\xbb\xbfGrupo;Área;Subárea;Disciplina;Código Disciplina;Carga Horária\n" +
		" Saúde ;Medicina;Cardiologia;ECG Básico;MED-001;40\n" +
		"\n" +
		"Saúde;Medicina;Cardiologia;ECG Avançado;MED-002;\n"

	pf, err := Parse(FileInfo{Name: "catalogo.csv", Data: []byte(data)})
	require.NoError(t, err)

	assert.Equal(t, FormatCSV, pf.Format)
	assert.Equal(t, []string{"grupo", "area", "subarea", "disciplina", "codigodisciplina", "cargahoraria"}, pf.Headers)
	require.Len(t, pf.Rows, 2)
	assert.Equal(t, "Saúde", pf.Rows[0]["grupo"])
	assert.Equal(t, "MED-001", pf.Rows[0]["codigodisciplina"])
	assert.Equal(t, "", pf.Rows[1]["cargahoraria"])
}

func TestParse_xlsx(t *testing.T) {
	data := xlsxFile(t,
		[]interface{}{"Grupo", "Área", "Subárea", "Disciplina", "CodigoDisciplina", "CargaHoraria"},
		[]interface{}{"Engenharia", "Civil", "Estruturas", "Concreto", "ENG-001", 60},
		[]interface{}{},
		[]interface{}{"Engenharia", "Civil", "Estruturas", "Aço", "ENG-002"},
	)

	pf, err := Parse(FileInfo{Name: "catalogo.xlsx", Data: data})
	require.NoError(t, err)

	assert.Equal(t, FormatXLSX, pf.Format)
	require.Len(t, pf.Rows, 2)
	assert.Equal(t, "60", pf.Rows[0]["cargahoraria"])
	assert.Equal(t, "Aço", pf.Rows[1]["disciplina"])
	assert.Equal(t, "", pf.Rows[1]["cargahoraria"])
}

func TestParse_errors(t *testing.T) {
	tests := []struct {
		name    string
		fi      FileInfo
		wantErr error
	}{
		{"empty", FileInfo{Name: "a.csv"}, ErrEmptyFile},
		{"whitespace", FileInfo{Name: "a.csv", Data: []byte(" \n\t\n")}, ErrEmptyFile},
		{"bom only", FileInfo{Name: "a.csv", Data: utf8BOM}, ErrEmptyFile},
		{"corrupt xlsx", FileInfo{Name: "a.xlsx", Data: []byte("not a zip archive")}, ErrUnreadableArchive},
		{"empty sheet", FileInfo{Name: "a.xlsx", Data: xlsxFile(t)}, ErrEmptySheet},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.fi)
			assert.Equal(t, tt.wantErr, err)
		})
	}
}

func TestParse_malformedCSV(t *testing.T) {
	_, err := Parse(FileInfo{Name: "a.csv", Data: []byte("grupo,area\n\"Saúde,Medicina\n")})
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "Erro ao processar CSV")
	}
}

func TestRead(t *testing.T) {
	fi, err := Read("a.csv", bytes.NewReader([]byte("grupo")), 10)
	require.NoError(t, err)
	assert.Equal(t, FileInfo{Name: "a.csv", Data: []byte("grupo")}, fi)

	_, err = Read("a.csv", bytes.NewReader(make([]byte, 11)), 10)
	var tooLarge *FileTooLargeError
	if assert.ErrorAs(t, err, &tooLarge) {
		assert.EqualValues(t, 10, tooLarge.Max)
	}
}

func TestReadFile_missing(t *testing.T) {
	_, err := ReadFile(nil, 0)
	assert.Equal(t, ErrFileMissing, err)
}
