package echoapi

import (
	"bytes"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/simcatalog/core/report"
	"github.com/trezcool/simcatalog/core/roadmap"
	testutil "github.com/trezcool/simcatalog/tests"
)

func Test_reportApi(t *testing.T) {
	f := newCatalogFixture(t)
	app := f.app
	uncovered := testutil.CreateSubarea(t, app.catRepo, f.area.ID, "Arritmias")

	published := f.newDiscipline("ECG Básico")
	published.IsPublished = true
	f.createSimulator(t, published)
	f.createSimulator(t, f.newDiscipline("Holter"))

	req, rec := newAuthRequest(http.MethodPost, "/v1/roadmap", f.editor, []byte(`{"groupId":"`+f.group.ID+`","reach":50,"impact":50,"confidence":50,"effort":50}`))
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var rm roadmap.Roadmap
	unmarshal(t, rec, &rm)

	app.run(t, []httpTest{
		{name: "auth required", path: "/v1/reports/dashboard", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "group summary", path: "/v1/reports/group-summary", token: f.viewer, wantCode: http.StatusOK,
			wantData: marchallList(t, report.GroupSummary{
				GroupID:           f.group.ID,
				GroupName:         f.group.Name,
				CodeBase:          f.group.CodeBase,
				DisciplinesCount:  2,
				AreasServed:       []string{"Medicina"},
				AreasServedString: "Medicina",
			}),
		},
		{
			name: "area coverage", path: "/v1/reports/area-coverage", token: f.viewer, wantCode: http.StatusOK,
			wantData: marchallList(t, report.AreaCoverage{
				AreaID:                  f.area.ID,
				AreaName:                f.area.Name,
				GroupName:               f.group.Name,
				TotalCatalogDisciplines: 2,
				TotalSubareas:           2,
				CoveredSubareas:         1,
				CoveragePct:             50,
				Subareas: []report.SubareaCoverage{
					{ID: uncovered.ID, Name: uncovered.Name},
					{ID: f.subarea.ID, Name: f.subarea.Name, DisciplinesCount: 2, IsCovered: true},
				},
			}),
		},
		{
			name: "ranking", path: "/v1/reports/ranking-rice?top=5", token: f.viewer, wantCode: http.StatusOK,
			wantData: marchallList(t, report.RankingItem{Position: 1, Roadmap: rm}),
		},
		{
			name: "dashboard", path: "/v1/reports/dashboard", token: f.viewer, wantCode: http.StatusOK,
			wantData: marchallObj(t, report.Dashboard{
				Statuses: []report.StatusCount{
					{Status: roadmap.StatusIdea, Label: "Ideia", Count: 1},
					{Status: roadmap.StatusPrototype, Label: "Protótipo"},
					{Status: roadmap.StatusPilot, Label: "Piloto"},
					{Status: roadmap.StatusLive, Label: "Produção"},
				},
				Totals: report.Totals{Groups: 1, Areas: 1, Subareas: 2, Disciplines: 2, PublishedDisciplines: 1, Roadmaps: 1},
			}),
		},
		{
			name: "export: unknown format", path: "/v1/export/excel?format=pdf", token: f.viewer, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"format": report.ErrInvalidFormat.Error()}),
		},
	})

	t.Run("export csv", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/export/excel?format=csv", f.viewer)
		app.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, report.ContentTypeCSV, rec.Header().Get("Content-Type"))
		disposition := rec.Header().Get("Content-Disposition")
		assert.True(t, strings.HasPrefix(disposition, `attachment; filename="simuladores_`), disposition)
		assert.True(t, strings.HasSuffix(disposition, `.csv"`), disposition)

		body := rec.Body.String()
		assert.True(t, strings.HasPrefix(body, "\xef\xbb\xbf"))
		assert.Contains(t, body, "ECG Básico")
		assert.NotContains(t, body, "Holter")
	})

	t.Run("export csv with unpublished", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/export/excel?format=csv&includeUnpublished=true", f.viewer)
		app.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Holter")
	})

	t.Run("export xlsx", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/export/excel", f.viewer)
		app.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, report.ContentTypeXLSX, rec.Header().Get("Content-Type"))

		wb, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
		require.NoError(t, err)
		defer wb.Close()
		assert.Equal(t, []string{
			"Areas", "Subareas", "Grupos", "Simuladores", "Roadmap", "Resumo", "Cobertura_Areas", "Dashboard", "Legenda_RICE",
		}, wb.GetSheetList())
	})
}
