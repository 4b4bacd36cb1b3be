package importer

import (
	"bytes"
	"encoding/csv"
)

// TemplateFileName is the download name of the import template.
const TemplateFileName = "template-importacao.csv"

var (
	TemplateHeaders = []string{"Grupo", "Área", "Subárea", "Disciplina", "CodigoDisciplina", "CargaHoraria", "Ementa", "Observacoes"}

	templateRows = [][]string{
		{"Ciências da Saúde", "Medicina", "Cardiologia", "Eletrocardiografia Básica", "MED-CARD-001", "40", "Fundamentos de ECG e interpretação de ritmos", "Simulador com casos clínicos"},
		{"Engenharia", "Engenharia Civil", "Estruturas", "Análise Estrutural", "ENG-EST-001", "60", "Cálculo de esforços em vigas e pórticos", ""},
		{"Administração", "Gestão de Projetos", "Metodologias Ágeis", "Scrum Master", "ADM-SCR-001", "32", "Papéis, cerimônias e artefatos do Scrum", ""},
		{"Tecnologia da Informação", "Desenvolvimento Web", "Frontend", "React Avançado", "TI-REA-001", "48", "Hooks, contexto e performance", "Pré-requisito: React Básico"},
	}
)

// Template renders the import template: a BOM-prefixed CSV with the expected headers and example rows,
// every example cell quoted.
func Template() []byte {
	var buf bytes.Buffer
	buf.Write(utf8BOM)

	w := csv.NewWriter(&buf)
	_ = w.Write(TemplateHeaders)
	w.Flush()

	for _, row := range templateRows {
		for i, cell := range row {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(quoteCSV(cell))
		}
		buf.WriteString("\n")
	}
	return buf.Bytes()
}

func quoteCSV(s string) string {
	return `"` + string(bytes.ReplaceAll([]byte(s), []byte(`"`), []byte(`""`))) + `"`
}
