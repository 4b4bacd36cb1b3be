package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/simcatalog/core/catalog"
)

type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"

	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypeCSV  = "text/csv; charset=utf-8"

	dateLayout     = "02/01/2006"
	dateTimeLayout = "02/01/2006 15:04:05"
)

var (
	ErrInvalidFormat = errors.New("format must be xlsx or csv")

	utf8BOM = []byte("\xef\xbb\xbf")
)

// ParseFormat reads the export format; "" means xlsx.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatXLSX:
		return FormatXLSX, nil
	case FormatCSV:
		return FormatCSV, nil
	}
	return "", ErrInvalidFormat
}

type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// sheet is a header row followed by data rows.
type sheet struct {
	name string
	rows [][]interface{}
}

// Export renders the catalog as a multi-sheet workbook, or as the CSV of its simulators.
func (svc *Service) Export(ctx context.Context, format Format, includeUnpublished bool, now time.Time) (File, error) {
	s, err := svc.load(ctx, includeUnpublished)
	if err != nil {
		return File{}, err
	}

	name := fmt.Sprintf("simuladores_%s.%s", now.Format("2006-01-02"), format)
	if format == FormatCSV {
		data, err := writeCSV(s.simulatorsSheet())
		if err != nil {
			return File{}, err
		}
		return File{Name: name, ContentType: ContentTypeCSV, Data: data}, nil
	}

	data, err := writeWorkbook([]sheet{
		s.areasSheet(),
		s.subareasSheet(),
		s.groupsSheet(),
		s.simulatorsSheet(),
		s.roadmapSheet(),
		s.summarySheet(now),
		s.coverageSheet(),
		s.dashboardSheet(),
		riceLegendSheet(),
	})
	if err != nil {
		return File{}, err
	}
	return File{Name: name, ContentType: ContentTypeXLSX, Data: data}, nil
}

func writeWorkbook(sheets []sheet) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for i, sh := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sh.name); err != nil {
				return nil, errors.Wrap(err, "naming sheet")
			}
		} else if _, err := f.NewSheet(sh.name); err != nil {
			return nil, errors.Wrapf(err, "creating sheet %s", sh.name)
		}
		for r, row := range sh.rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				return nil, err
			}
			row := row
			if err = f.SetSheetRow(sh.name, cell, &row); err != nil {
				return nil, errors.Wrapf(err, "writing sheet %s", sh.name)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "writing workbook")
	}
	return buf.Bytes(), nil
}

func writeCSV(sh sheet) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(utf8BOM)
	w := csv.NewWriter(&buf)
	for _, row := range sh.rows {
		rec := make([]string, len(row))
		for i, cell := range row {
			rec[i] = fmt.Sprint(cell)
		}
		if err := w.Write(rec); err != nil {
			return nil, errors.Wrap(err, "writing csv")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, errors.Wrap(err, "writing csv")
	}
	return buf.Bytes(), nil
}

func yesNo(b bool) string {
	if b {
		return "Sim"
	}
	return "Não"
}

func (s snapshot) areasSheet() sheet {
	groupNames := s.groupNames()
	rows := [][]interface{}{{"Nome", "Slug", "Grupo", "Data de Criação"}}
	for _, a := range s.areas {
		rows = append(rows, []interface{}{a.Name, a.Slug, groupNames[a.GroupID], a.CreatedAt.Format(dateLayout)})
	}
	return sheet{name: "Areas", rows: rows}
}

func (s snapshot) subareasSheet() sheet {
	areaNames, groupNames := s.areaNames(), s.groupNames()
	areaGroups := make(map[string]string, len(s.areas))
	for _, a := range s.areas {
		areaGroups[a.ID] = groupNames[a.GroupID]
	}
	// Grupo disambiguates area names shared by several groups on import
	rows := [][]interface{}{{"Nome", "Área", "Grupo", "Data de Criação"}}
	for _, sa := range s.subareas {
		rows = append(rows, []interface{}{sa.Name, areaNames[sa.AreaID], areaGroups[sa.AreaID], sa.CreatedAt.Format(dateLayout)})
	}
	return sheet{name: "Subareas", rows: rows}
}

func (s snapshot) groupsSheet() sheet {
	rows := [][]interface{}{{"Nome", "Contexto", "Código Base", "Data de Criação"}}
	for _, g := range s.groups {
		rows = append(rows, []interface{}{g.Name, g.Context, g.CodeBase, g.CreatedAt.Format(dateLayout)})
	}
	return sheet{name: "Grupos", rows: rows}
}

func (s snapshot) simulatorsSheet() sheet {
	groupNames, areaNames, subareaNames := s.groupNames(), s.areaNames(), s.subareaNames()
	rows := [][]interface{}{{
		"Código", "Disciplina", "Grupo", "Área", "Subárea",
		"Objetivos de Aprendizagem", "Mecânicas do Jogo", "KPIs", "Ementa", "Objetivos de Desenvolvimento",
		"Tipo de Anexo", "URL do Anexo", "Caminho do Arquivo", "HTML do Embed", "Publicado", "Data de Criação",
	}}
	for _, d := range s.disciplines {
		rows = append(rows, simulatorRow(d, groupNames, areaNames, subareaNames))
	}
	return sheet{name: "Simuladores", rows: rows}
}

func simulatorRow(d catalog.Discipline, groupNames, areaNames, subareaNames map[string]string) []interface{} {
	return []interface{}{
		d.Code,
		d.Discipline,
		groupNames[d.GroupID],
		areaNames[d.AreaID],
		subareaNames[d.SubareaID],
		d.LearningObjectives,
		d.GameMechanics,
		d.KPIs,
		d.Syllabus.String,
		d.DevObjectives.String,
		string(d.AttachmentType),
		d.AttachmentURL.String,
		d.AttachmentFilePath.String,
		d.AttachmentEmbedHTML.String,
		yesNo(d.IsPublished),
		d.CreatedAt.Format(dateLayout),
	}
}

func (s snapshot) roadmapSheet() sheet {
	groupNames := s.groupNames()
	rows := [][]interface{}{{"Grupo", "Status", "Reach", "Impact", "Confidence", "Effort", "RICE Score", "Data de Criação"}}
	for _, r := range s.roadmaps {
		rows = append(rows, []interface{}{
			groupNames[r.GroupID], string(r.Status), r.Reach, r.Impact, r.Confidence, r.Effort,
			Round2(r.RiceScore), r.CreatedAt.Format(dateLayout),
		})
	}
	return sheet{name: "Roadmap", rows: rows}
}

func (s snapshot) summarySheet(now time.Time) sheet {
	t := s.totals()
	return sheet{name: "Resumo", rows: [][]interface{}{
		{"Métrica", "Valor"},
		{"Total de Áreas", t.Areas},
		{"Total de Subáreas", t.Subareas},
		{"Total de Grupos", t.Groups},
		{"Total de Simuladores", t.Disciplines},
		{"Simuladores Publicados", t.PublishedDisciplines},
		{"Total de Roadmaps", t.Roadmaps},
		{"Data da Exportação", now.Format(dateTimeLayout)},
	}}
}

func (s snapshot) coverageSheet() sheet {
	rows := [][]interface{}{{"Área", "Grupo", "Total de Subáreas", "Subáreas Cobertas", "Percentual de Cobertura", "Total de Simuladores"}}
	for _, ac := range s.coverage() {
		rows = append(rows, []interface{}{
			ac.AreaName, ac.GroupName, ac.TotalSubareas, ac.CoveredSubareas, ac.CoveragePct, ac.TotalCatalogDisciplines,
		})
	}
	return sheet{name: "Cobertura_Areas", rows: rows}
}

func (s snapshot) dashboardSheet() sheet {
	rows := [][]interface{}{{"Categoria", "Item", "Quantidade"}}
	for _, sc := range s.statusCounts() {
		rows = append(rows, []interface{}{"Status do Roadmap", sc.Label, sc.Count})
	}
	return sheet{name: "Dashboard", rows: rows}
}

func riceLegendSheet() sheet {
	return sheet{name: "Legenda_RICE", rows: [][]interface{}{
		{"Conceito", "Descrição"},
		{"RICE", "Reach, Impact, Confidence, Effort - Métrica de priorização"},
		{"Reach", "Quantas pessoas serão impactadas (0-100)"},
		{"Impact", "Quanto impacto terá em cada pessoa (0-100)"},
		{"Confidence", "Confiança na estimativa (0-100)"},
		{"Effort", "Esforço necessário em pessoa-mês (0-100)"},
		{"RICE Score", "Fórmula: (Reach × Impact × Confidence) ÷ Effort"},
		{"Interpretação", "Maior score = maior prioridade"},
	}}
}
