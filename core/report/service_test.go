package report_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/simcatalog/core/catalog"
	"github.com/trezcool/simcatalog/core/report"
	"github.com/trezcool/simcatalog/core/roadmap"
	"github.com/trezcool/simcatalog/storage/database/inmem"
)

// setup builds two groups: Saúde serves Medicina (Cardiologia covered, Neurologia not) and Engenharia
// has no disciplines. Only the first discipline is published.
func setup(t *testing.T) *report.Service {
	ctx := context.Background()
	db := inmemdb.Open()
	catRepo := inmemdb.NewCatalogRepository(db)
	rmRepo := inmemdb.NewRoadmapRepository(db)
	catSvc := catalog.NewService(catRepo)
	rmSvc := roadmap.NewService(rmRepo, catRepo)

	saude, err := catSvc.CreateGroup(ctx, catalog.NewGroup{Name: "Saúde", Context: "x", CodeBase: "MED"})
	require.NoError(t, err)
	eng, err := catSvc.CreateGroup(ctx, catalog.NewGroup{Name: "Engenharia", Context: "y", CodeBase: "ENG"})
	require.NoError(t, err)
	med, err := catSvc.CreateArea(ctx, catalog.NewArea{GroupID: saude.ID, Name: "Medicina", Slug: "medicina"})
	require.NoError(t, err)
	cardio, err := catSvc.CreateSubarea(ctx, catalog.NewSubarea{AreaID: med.ID, Name: "Cardiologia"})
	require.NoError(t, err)
	_, err = catSvc.CreateSubarea(ctx, catalog.NewSubarea{AreaID: med.ID, Name: "Neurologia"})
	require.NoError(t, err)
	_, err = catSvc.CreateSubarea(ctx, catalog.NewSubarea{AreaID: med.ID, Name: "Pediatria"})
	require.NoError(t, err)

	for i, name := range []string{"ECG Básico", "Holter"} {
		_, err = catSvc.CreateDiscipline(ctx, catalog.NewDiscipline{
			GroupID: saude.ID, AreaID: med.ID, SubareaID: cardio.ID,
			Discipline: name, LearningObjectives: "o", GameMechanics: "m", KPIs: "k",
			AttachmentType: catalog.AttachmentNone, IsPublished: i == 0,
		})
		require.NoError(t, err)
	}

	_, err = rmSvc.Create(ctx, roadmap.NewRoadmap{GroupID: saude.ID, Reach: 10, Impact: 10, Confidence: 10, Effort: 3})
	require.NoError(t, err)
	_, err = rmSvc.Create(ctx, roadmap.NewRoadmap{GroupID: eng.ID, Status: roadmap.StatusPilot, Reach: 50, Impact: 50, Confidence: 50, Effort: 50})
	require.NoError(t, err)

	return report.NewService(catRepo, rmRepo)
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 33.33, report.Percent(1, 3))
	assert.Equal(t, 66.67, report.Percent(2, 3))
	assert.Equal(t, 100.0, report.Percent(4, 4))
	assert.Equal(t, 0.0, report.Percent(0, 0))
	assert.Equal(t, 333.33, report.Round2(333.3333333))
}

func TestService_GroupSummary(t *testing.T) {
	svc := setup(t)
	summary, err := svc.GroupSummary(context.Background())
	require.NoError(t, err)
	require.Len(t, summary, 2)

	assert.Equal(t, "Engenharia", summary[0].GroupName)
	assert.Equal(t, 0, summary[0].DisciplinesCount)
	assert.Equal(t, []string{}, summary[0].AreasServed)

	assert.Equal(t, "MED", summary[1].CodeBase)
	assert.Equal(t, 2, summary[1].DisciplinesCount)
	assert.Equal(t, []string{"Medicina"}, summary[1].AreasServed)
	assert.Equal(t, "Medicina", summary[1].AreasServedString)
}

func TestService_AreaCoverage(t *testing.T) {
	svc := setup(t)
	coverage, err := svc.AreaCoverage(context.Background())
	require.NoError(t, err)
	require.Len(t, coverage, 1)

	ac := coverage[0]
	assert.Equal(t, "Medicina", ac.AreaName)
	assert.Equal(t, "Saúde", ac.GroupName)
	assert.Equal(t, 2, ac.TotalCatalogDisciplines)
	assert.Equal(t, 3, ac.TotalSubareas)
	assert.Equal(t, 1, ac.CoveredSubareas)
	assert.Equal(t, 33.33, ac.CoveragePct)
	require.Len(t, ac.Subareas, 3)
	assert.Equal(t, report.SubareaCoverage{ID: ac.Subareas[0].ID, Name: "Cardiologia", DisciplinesCount: 2, IsCovered: true}, ac.Subareas[0])
	assert.False(t, ac.Subareas[1].IsCovered)
}

func TestService_Ranking(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	ranking, err := svc.Ranking(ctx, 0)
	require.NoError(t, err)
	require.Len(t, ranking, 2)
	assert.Equal(t, 1, ranking[0].Position)
	assert.Equal(t, "Engenharia", ranking[0].Group.Name)
	assert.Equal(t, 2500.0, ranking[0].RiceScore)
	assert.Equal(t, 2, ranking[1].Position)

	ranking, err = svc.Ranking(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, ranking, 1)
}

func TestService_Dashboard(t *testing.T) {
	svc := setup(t)
	dash, err := svc.Dashboard(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []report.StatusCount{
		{Status: roadmap.StatusIdea, Label: "Ideia", Count: 1},
		{Status: roadmap.StatusPrototype, Label: "Protótipo", Count: 0},
		{Status: roadmap.StatusPilot, Label: "Piloto", Count: 1},
		{Status: roadmap.StatusLive, Label: "Produção", Count: 0},
	}, dash.Statuses)
	assert.Equal(t, report.Totals{Groups: 2, Areas: 1, Subareas: 3, Disciplines: 2, PublishedDisciplines: 1, Roadmaps: 2}, dash.Totals)
}

func TestService_Export(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)

	f, err := svc.Export(ctx, report.FormatXLSX, false, now)
	require.NoError(t, err)
	assert.Equal(t, "simuladores_2024-03-09.xlsx", f.Name)
	assert.Equal(t, report.ContentTypeXLSX, f.ContentType)

	wb, err := excelize.OpenReader(bytes.NewReader(f.Data))
	require.NoError(t, err)
	defer wb.Close()
	assert.Equal(t, []string{
		"Areas", "Subareas", "Grupos", "Simuladores", "Roadmap", "Resumo", "Cobertura_Areas", "Dashboard", "Legenda_RICE",
	}, wb.GetSheetList())

	rows, err := wb.GetRows("Subareas")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Nome", "Área", "Grupo", "Data de Criação"}, rows[0])
	assert.Equal(t, []string{"Medicina", "Saúde"}, rows[1][1:3])

	rows, err = wb.GetRows("Simuladores")
	require.NoError(t, err)
	require.Len(t, rows, 2) // header + the published discipline
	assert.Equal(t, "SIM-MED-001", rows[1][0])
	assert.Equal(t, "Sim", rows[1][14])

	rows, err = wb.GetRows("Resumo")
	require.NoError(t, err)
	assert.Equal(t, []string{"Data da Exportação", "09/03/2024 10:00:00"}, rows[7])

	f, err = svc.Export(ctx, report.FormatCSV, true, now)
	require.NoError(t, err)
	assert.Equal(t, "simuladores_2024-03-09.csv", f.Name)
	assert.True(t, bytes.HasPrefix(f.Data, []byte("\xef\xbb\xbfCódigo,Disciplina,Grupo,")))
	assert.Equal(t, 3, bytes.Count(f.Data, []byte("\n")))
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]report.Format{"": report.FormatXLSX, "xlsx": report.FormatXLSX, "csv": report.FormatCSV} {
		got, err := report.ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := report.ParseFormat("pdf")
	assert.Equal(t, report.ErrInvalidFormat, err)
}
