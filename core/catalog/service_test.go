package catalog_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/simcatalog/core"
	"github.com/trezcool/simcatalog/core/catalog"
	"github.com/trezcool/simcatalog/storage/database/inmem"
)

type fixture struct {
	svc      *catalog.Service
	group    catalog.Group
	area     catalog.Area
	subarea  catalog.Subarea
	other    catalog.Subarea
	ctx      context.Context
	otherGrp catalog.Group
}

func setup(t *testing.T) fixture {
	ctx := context.Background()
	svc := catalog.NewService(inmemdb.NewCatalogRepository(inmemdb.Open()))

	g, err := svc.CreateGroup(ctx, catalog.NewGroup{Name: "Saúde", Context: "Cursos da saúde", CodeBase: "MED"})
	require.NoError(t, err)
	og, err := svc.CreateGroup(ctx, catalog.NewGroup{Name: "Engenharia", Context: "Cursos de engenharia", CodeBase: "ENG"})
	require.NoError(t, err)
	a, err := svc.CreateArea(ctx, catalog.NewArea{GroupID: g.ID, Name: "Medicina", Slug: "medicina"})
	require.NoError(t, err)
	s, err := svc.CreateSubarea(ctx, catalog.NewSubarea{AreaID: a.ID, Name: "Cardiologia"})
	require.NoError(t, err)
	oa, err := svc.CreateArea(ctx, catalog.NewArea{GroupID: g.ID, Name: "Enfermagem", Slug: "enfermagem"})
	require.NoError(t, err)
	uti, err := svc.CreateSubarea(ctx, catalog.NewSubarea{AreaID: oa.ID, Name: "UTI"})
	require.NoError(t, err)

	return fixture{svc: svc, group: g, area: a, subarea: s, other: uti, ctx: ctx, otherGrp: og}
}

func (f fixture) newDiscipline(name string) catalog.NewDiscipline {
	return catalog.NewDiscipline{
		GroupID:            f.group.ID,
		AreaID:             f.area.ID,
		SubareaID:          f.subarea.ID,
		Discipline:         name,
		LearningObjectives: "Objetivos",
		GameMechanics:      "Pontuação por acertos",
		KPIs:               "KPIs",
		AttachmentType:     catalog.AttachmentNone,
	}
}

func validationField(t *testing.T, err error) string {
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr), "%v is not a validation error", err)
	if len(verr.Fields) == 0 {
		return ""
	}
	return verr.Fields[0].Field
}

func TestService_CreateDiscipline_codes(t *testing.T) {
	f := setup(t)

	d1, err := f.svc.CreateDiscipline(f.ctx, f.newDiscipline("ECG Básico"))
	require.NoError(t, err)
	d2, err := f.svc.CreateDiscipline(f.ctx, f.newDiscipline("Holter"))
	require.NoError(t, err)

	assert.Equal(t, "SIM-MED-001", d1.Code)
	assert.Equal(t, "SIM-MED-002", d2.Code)
	require.NotNil(t, d1.Group)
	assert.Equal(t, "Saúde", d1.Group.Name)
	require.NotNil(t, d1.Subarea)
	assert.Equal(t, "Cardiologia", d1.Subarea.Name)

	dup, err := f.svc.DuplicateDiscipline(f.ctx, d1.ID)
	require.NoError(t, err)
	assert.Equal(t, "SIM-MED-003", dup.Code)
	assert.Equal(t, "ECG Básico (cópia)", dup.Discipline)
	assert.False(t, dup.IsPublished)
	assert.NotEqual(t, d1.ID, dup.ID)
}

func TestService_CreateDiscipline_placement(t *testing.T) {
	f := setup(t)

	tests := []struct {
		name      string
		mutate    func(nd *catalog.NewDiscipline)
		wantField string
		wantErr   error
	}{
		{name: "subarea of another area", mutate: func(nd *catalog.NewDiscipline) { nd.SubareaID = f.other.ID }, wantField: "subareaId"},
		{name: "area of another group", mutate: func(nd *catalog.NewDiscipline) { nd.GroupID = f.otherGrp.ID }, wantField: "areaId"},
		{name: "unknown subarea", mutate: func(nd *catalog.NewDiscipline) { nd.SubareaID = "nope" }, wantErr: catalog.ErrSubareaNotFound},
		{name: "unknown group", mutate: func(nd *catalog.NewDiscipline) { nd.GroupID = "nope" }, wantErr: catalog.ErrGroupNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nd := f.newDiscipline("ECG")
			tt.mutate(&nd)
			_, err := f.svc.CreateDiscipline(f.ctx, nd)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				assert.True(t, core.IsNotFound(err))
				return
			}
			assert.Equal(t, tt.wantField, validationField(t, err))
		})
	}
}

func TestService_UpdateDiscipline(t *testing.T) {
	f := setup(t)
	d, err := f.svc.CreateDiscipline(f.ctx, f.newDiscipline("ECG Básico"))
	require.NoError(t, err)

	name, published := "ECG Essencial", true
	got, err := f.svc.UpdateDiscipline(f.ctx, d.ID, catalog.UpdateDiscipline{Discipline: &name, IsPublished: &published})
	require.NoError(t, err)
	assert.Equal(t, "ECG Essencial", got.Discipline)
	assert.True(t, got.IsPublished)
	assert.Equal(t, d.Code, got.Code)

	// moving to a subarea of another area alone breaks the placement
	sub := f.other.ID
	_, err = f.svc.UpdateDiscipline(f.ctx, d.ID, catalog.UpdateDiscipline{SubareaID: &sub})
	assert.Equal(t, "subareaId", validationField(t, err))

	_, err = f.svc.UpdateDiscipline(f.ctx, "nope", catalog.UpdateDiscipline{Discipline: &name})
	assert.Equal(t, catalog.ErrDisciplineNotFound, err)
}

func TestService_UpdateSyllabusAndAttachment(t *testing.T) {
	f := setup(t)
	d, err := f.svc.CreateDiscipline(f.ctx, f.newDiscipline("ECG Básico"))
	require.NoError(t, err)

	syllabus := "Ritmos cardíacos"
	got, err := f.svc.UpdateSyllabus(f.ctx, d.ID, catalog.UpdateSyllabus{Syllabus: &syllabus})
	require.NoError(t, err)
	assert.Equal(t, "Ritmos cardíacos", got.Syllabus.String)
	assert.False(t, got.DevObjectives.Valid)

	got, err = f.svc.UpdateAttachment(f.ctx, d.ID, catalog.UpdateAttachment{
		AttachmentType: catalog.AttachmentLink,
		AttachmentURL:  "https://sim.example/ecg",
	})
	require.NoError(t, err)
	assert.Equal(t, catalog.AttachmentLink, got.AttachmentType)
	assert.Equal(t, "https://sim.example/ecg", got.AttachmentURL.String)

	_, err = f.svc.UpdateAttachment(f.ctx, d.ID, catalog.UpdateAttachment{AttachmentType: catalog.AttachmentFile})
	assert.Equal(t, "attachmentFilePath", validationField(t, err))
}

func TestService_deleteGuards(t *testing.T) {
	f := setup(t)
	d, err := f.svc.CreateDiscipline(f.ctx, f.newDiscipline("ECG Básico"))
	require.NoError(t, err)

	for name, del := range map[string]func() error{
		"group":   func() error { return f.svc.DeleteGroup(f.ctx, f.group.ID) },
		"area":    func() error { return f.svc.DeleteArea(f.ctx, f.area.ID) },
		"subarea": func() error { return f.svc.DeleteSubarea(f.ctx, f.subarea.ID) },
	} {
		err := del()
		var verr *core.ValidationError
		assert.True(t, errors.As(err, &verr), name)
	}

	_, err = f.svc.UpdateArea(f.ctx, f.area.ID, catalog.NewArea{GroupID: f.otherGrp.ID, Name: "Medicina", Slug: "medicina"})
	assert.Equal(t, catalog.ErrAreaMoveUsed, errors.Cause(err).(*core.ValidationError).Err)

	require.NoError(t, f.svc.DeleteDiscipline(f.ctx, d.ID))
	require.NoError(t, f.svc.DeleteSubarea(f.ctx, f.subarea.ID))
	require.NoError(t, f.svc.DeleteArea(f.ctx, f.area.ID))
	require.NoError(t, f.svc.DeleteGroup(f.ctx, f.group.ID))

	assert.Equal(t, catalog.ErrGroupNotFound, f.svc.DeleteGroup(f.ctx, f.group.ID))
	_, err = f.svc.GetArea(f.ctx, f.other.AreaID)
	assert.Equal(t, catalog.ErrAreaNotFound, err)
}

func TestService_uniqueness(t *testing.T) {
	f := setup(t)

	_, err := f.svc.CreateGroup(f.ctx, catalog.NewGroup{Name: "Saúde", Context: "x", CodeBase: "SAU"})
	assert.Equal(t, "name", validationField(t, err))
	_, err = f.svc.CreateGroup(f.ctx, catalog.NewGroup{Name: "Direito", Context: "x", CodeBase: "MED"})
	assert.Equal(t, "codeBase", validationField(t, err))

	_, err = f.svc.CreateArea(f.ctx, catalog.NewArea{GroupID: f.group.ID, Name: "Medicina", Slug: "med"})
	assert.Equal(t, "name", validationField(t, err))
	_, err = f.svc.CreateArea(f.ctx, catalog.NewArea{GroupID: f.group.ID, Name: "Medicina II", Slug: "medicina"})
	assert.Equal(t, "slug", validationField(t, err))
	// same area name in another group is fine
	_, err = f.svc.CreateArea(f.ctx, catalog.NewArea{GroupID: f.otherGrp.ID, Name: "Medicina", Slug: "medicina"})
	assert.NoError(t, err)

	_, err = f.svc.CreateSubarea(f.ctx, catalog.NewSubarea{AreaID: f.area.ID, Name: "Cardiologia"})
	assert.Equal(t, "name", validationField(t, err))
	_, err = f.svc.CreateSubarea(f.ctx, catalog.NewSubarea{AreaID: "nope", Name: "Cardiologia"})
	assert.Equal(t, catalog.ErrAreaNotFound, err)
}

func TestService_QueryGroupsAndArea(t *testing.T) {
	f := setup(t)
	_, err := f.svc.CreateDiscipline(f.ctx, f.newDiscipline("ECG Básico"))
	require.NoError(t, err)
	_, err = f.svc.CreateDiscipline(f.ctx, f.newDiscipline("Holter"))
	require.NoError(t, err)

	groups, err := f.svc.QueryGroups(f.ctx)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "Engenharia", groups[0].Name)
	assert.Equal(t, 0, groups[0].DisciplinesCount)
	assert.Equal(t, []string{}, groups[0].AreasServed)
	assert.Equal(t, 2, groups[1].DisciplinesCount)
	assert.Equal(t, []string{"Medicina"}, groups[1].AreasServed)

	ad, err := f.svc.GetArea(f.ctx, f.area.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, ad.DisciplinesCount)
	require.Len(t, ad.Subareas, 1)
	assert.Equal(t, 2, ad.Subareas[0].DisciplinesCount)
	require.NotNil(t, ad.Group)
	assert.Equal(t, "MED", ad.Group.CodeBase)
}

func TestService_FilterDisciplines(t *testing.T) {
	f := setup(t)
	for _, name := range []string{"ECG Básico", "Holter", "Ecocardiograma"} {
		_, err := f.svc.CreateDiscipline(f.ctx, f.newDiscipline(name))
		require.NoError(t, err)
	}

	items, pg, err := f.svc.FilterDisciplines(f.ctx, catalog.DisciplineFilter{Query: "ec"}, core.Page{Number: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "SIM-MED-001", items[0].Code)
	assert.Equal(t, core.Pagination{Page: 1, Limit: 1, Total: 2, TotalPages: 2}, pg)

	published := true
	items, pg, err = f.svc.FilterDisciplines(f.ctx, catalog.DisciplineFilter{Published: &published}, core.Page{})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, core.Pagination{Page: 1, Limit: core.DefaultPageLimit, Total: 0, TotalPages: 0}, pg)
}
