package importer

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/simcatalog/core"
	"github.com/trezcool/simcatalog/core/catalog"
	"github.com/trezcool/simcatalog/core/roadmap"
)

// Workbook sheets, in processing order: each tier is resolved by name against the previous ones.
const (
	SheetGroups     = "Grupos"
	SheetAreas      = "Areas"
	SheetSubareas   = "Subareas"
	SheetSimulators = "Simuladores"
	SheetRoadmap    = "Roadmap"

	msgWorkbookDone = "Importação concluída"
)

var ErrNotWorkbook = errors.New("Arquivo deve ser Excel (.xlsx ou .xls)")

type (
	SheetCounts struct {
		Created int `json:"created"`
		Skipped int `json:"skipped"`
		Errors  int `json:"errors"`
	}

	WorkbookCounts struct {
		Grupos      SheetCounts `json:"grupos"`
		Areas       SheetCounts `json:"areas"`
		Subareas    SheetCounts `json:"subareas"`
		Simuladores SheetCounts `json:"simuladores"`
		Roadmap     SheetCounts `json:"roadmap"`
	}

	SheetError struct {
		Sheet   string `json:"sheet"`
		Row     int    `json:"row"`
		Message string `json:"message"`
	}

	// WorkbookResult reports a workbook import. Rows are applied one by one:
	// a failing row is reported and does not undo the others.
	WorkbookResult struct {
		OK          bool           `json:"ok"`
		Message     string         `json:"message"`
		Results     WorkbookCounts `json:"results"`
		Errors      []SheetError   `json:"errors"`
		TotalErrors int            `json:"totalErrors"`
	}
)

// WorkbookImporter loads a multi-sheet workbook, the layout written by the catalog export,
// creating the groups, areas, subareas, simulators and roadmaps it does not find.
type WorkbookImporter struct {
	catalog    *catalog.Service
	roadmaps   *roadmap.Service
	validate   *validator.Validate
	translator ut.Translator
	logger     core.Logger
}

func NewWorkbookImporter(
	catalogSvc *catalog.Service,
	roadmapSvc *roadmap.Service,
	validate *validator.Validate,
	translator ut.Translator,
	logger core.Logger,
) *WorkbookImporter {
	return &WorkbookImporter{
		catalog:    catalogSvc,
		roadmaps:   roadmapSvc,
		validate:   validate,
		translator: translator,
		logger:     logger,
	}
}

// Import applies every known sheet of fi. Unknown sheets are ignored.
// Only an unreadable file is returned as an error; row failures are reported in the result.
func (wi *WorkbookImporter) Import(ctx context.Context, fi FileInfo) (WorkbookResult, error) {
	switch strings.ToLower(filepath.Ext(fi.Name)) {
	case ".xlsx", ".xls":
	default:
		return WorkbookResult{}, ErrNotWorkbook
	}
	if len(fi.Data) == 0 {
		return WorkbookResult{}, ErrEmptyFile
	}
	f, err := excelize.OpenReader(bytes.NewReader(fi.Data))
	if err != nil {
		return WorkbookResult{}, ErrUnreadableArchive
	}
	defer func() { _ = f.Close() }()

	idx, err := wi.loadIndex(ctx)
	if err != nil {
		return WorkbookResult{}, err
	}

	run := &workbookRun{wi: wi, idx: idx, res: WorkbookResult{Errors: []SheetError{}}}
	steps := []struct {
		sheet  string
		counts *SheetCounts
		apply  func(ctx context.Context, row map[string]string) (bool, error)
	}{
		{SheetGroups, &run.res.Results.Grupos, run.group},
		{SheetAreas, &run.res.Results.Areas, run.area},
		{SheetSubareas, &run.res.Results.Subareas, run.subarea},
		{SheetSimulators, &run.res.Results.Simuladores, run.simulator},
		{SheetRoadmap, &run.res.Results.Roadmap, run.roadmap},
	}
	for _, step := range steps {
		rows, err := readSheet(f, step.sheet)
		if err != nil {
			return WorkbookResult{}, err
		}
		for i, row := range rows {
			created, err := step.apply(ctx, row)
			switch {
			case err != nil:
				step.counts.Errors++
				run.res.Errors = append(run.res.Errors, SheetError{Sheet: step.sheet, Row: i + 2, Message: wi.describe(err)})
				workbookRowsTotal.WithLabelValues(step.sheet, "error").Inc()
			case created:
				step.counts.Created++
				workbookRowsTotal.WithLabelValues(step.sheet, "created").Inc()
			default:
				step.counts.Skipped++
				workbookRowsTotal.WithLabelValues(step.sheet, "skipped").Inc()
			}
		}
	}

	res := run.res
	res.TotalErrors = len(res.Errors)
	res.OK = res.TotalErrors == 0
	res.Message = msgWorkbookDone
	if !res.OK {
		wi.logger.Warn(fmt.Sprintf("workbook import of %q finished with %d errors", fi.Name, res.TotalErrors),
			map[string]interface{}{"file": fi.Name, "errors": res.Errors})
	}
	return res, nil
}

// readSheet keys the rows of sheet by normalized header; a missing sheet has no rows.
func readSheet(f *excelize.File, sheet string) ([]map[string]string, error) {
	if i, err := f.GetSheetIndex(sheet); err != nil || i < 0 {
		return nil, nil
	}
	records, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrapf(err, "Erro ao ler a planilha %s", sheet)
	}
	for len(records) > 0 && isBlank(records[0]) {
		records = records[1:]
	}
	if len(records) == 0 {
		return nil, nil
	}
	_, rows := keyRecords(records)
	return rows, nil
}

// describe renders a row failure for the import report.
func (wi *WorkbookImporter) describe(err error) string {
	switch e := errors.Cause(err).(type) {
	case validator.ValidationErrors:
		msgs := make([]string, len(e))
		for i, fe := range e {
			msg := fe.Error()
			if wi.translator != nil {
				msg = fe.Translate(wi.translator)
			}
			msgs[i] = fe.Field() + ": " + msg
		}
		return strings.Join(msgs, "; ")
	case *core.ValidationError:
		if len(e.Fields) == 0 {
			return e.Error()
		}
		msgs := make([]string, len(e.Fields))
		for i, fld := range e.Fields {
			msgs[i] = fld.Field + ": " + fld.Error
		}
		return strings.Join(msgs, "; ")
	}
	return err.Error()
}

func natKey(parts ...string) string { return strings.Join(parts, "\x00") }

// workbookIndex holds the natural keys of the catalog, updated as rows are created.
type workbookIndex struct {
	groups      map[string]catalog.Group // by name
	codeBases   map[string]bool
	areas       map[string]catalog.Area // by (group, name)
	areasByName map[string][]catalog.Area
	slugs       map[string]bool            // (group, slug)
	subareas    map[string]catalog.Subarea // by (area, name)
	codes       map[string]bool
	disciplines map[string]bool // (group, discipline)
	roadmaps    map[string]bool // by group
}

func (idx *workbookIndex) addGroup(g catalog.Group) {
	idx.groups[g.Name] = g
	idx.codeBases[g.CodeBase] = true
}

func (idx *workbookIndex) addArea(a catalog.Area) {
	idx.areas[natKey(a.GroupID, a.Name)] = a
	idx.areasByName[a.Name] = append(idx.areasByName[a.Name], a)
	idx.slugs[natKey(a.GroupID, a.Slug)] = true
}

func (idx *workbookIndex) addDiscipline(d catalog.Discipline) {
	idx.codes[d.Code] = true
	idx.disciplines[natKey(d.GroupID, d.Discipline)] = true
}

func (wi *WorkbookImporter) loadIndex(ctx context.Context) (*workbookIndex, error) {
	idx := &workbookIndex{
		groups:      make(map[string]catalog.Group),
		codeBases:   make(map[string]bool),
		areas:       make(map[string]catalog.Area),
		areasByName: make(map[string][]catalog.Area),
		slugs:       make(map[string]bool),
		subareas:    make(map[string]catalog.Subarea),
		codes:       make(map[string]bool),
		disciplines: make(map[string]bool),
		roadmaps:    make(map[string]bool),
	}

	groups, err := wi.catalog.QueryGroups(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "loading groups")
	}
	for _, g := range groups {
		idx.addGroup(g.Group)
		areas, err := wi.catalog.QueryAreas(ctx, g.ID)
		if err != nil {
			return nil, errors.Wrap(err, "loading areas")
		}
		for _, a := range areas {
			idx.addArea(a)
			subs, err := wi.catalog.QuerySubareas(ctx, a.ID)
			if err != nil {
				return nil, errors.Wrap(err, "loading subareas")
			}
			for _, s := range subs {
				idx.subareas[natKey(a.ID, s.Name)] = s
			}
		}
	}

	ds, err := wi.catalog.QueryDisciplines(ctx, true)
	if err != nil {
		return nil, errors.Wrap(err, "loading simulators")
	}
	for _, d := range ds {
		idx.addDiscipline(d)
	}

	rs, err := wi.roadmaps.Query(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "loading roadmaps")
	}
	for _, r := range rs {
		idx.roadmaps[r.GroupID] = true
	}
	return idx, nil
}

type workbookRun struct {
	wi  *WorkbookImporter
	idx *workbookIndex
	res WorkbookResult
}

// Each row handler reports whether it created a record; (false, nil) means the row was skipped,
// either because it is incomplete or because its record already exists.

func (run *workbookRun) group(ctx context.Context, row map[string]string) (bool, error) {
	ng := catalog.NewGroup{Name: row["nome"], Context: row["contexto"], CodeBase: row["codigobase"]}
	if ng.Name == "" || ng.Context == "" || ng.CodeBase == "" {
		return false, nil
	}
	if err := ng.Validate(run.wi.validate); err != nil {
		return false, err
	}
	if _, ok := run.idx.groups[ng.Name]; ok || run.idx.codeBases[ng.CodeBase] {
		return false, nil
	}
	g, err := run.wi.catalog.CreateGroup(ctx, ng)
	if err != nil {
		return false, err
	}
	run.idx.addGroup(g)
	return true, nil
}

func (run *workbookRun) findGroup(name string) (catalog.Group, error) {
	if name == "" {
		return catalog.Group{}, errors.New("Grupo é obrigatório")
	}
	g, ok := run.idx.groups[name]
	if !ok {
		return catalog.Group{}, errors.Errorf("Grupo %q não encontrado", name)
	}
	return g, nil
}

func (run *workbookRun) area(ctx context.Context, row map[string]string) (bool, error) {
	name := row["nome"]
	if name == "" {
		return false, nil
	}
	g, err := run.findGroup(row["grupo"])
	if err != nil {
		return false, err
	}
	if _, ok := run.idx.areas[natKey(g.ID, name)]; ok {
		return false, nil
	}

	na := catalog.NewArea{GroupID: g.ID, Name: name, Slug: row["slug"]}
	if err = na.Validate(run.wi.validate); err != nil {
		return false, err
	}
	slug := na.Slug
	for n := 2; run.idx.slugs[natKey(g.ID, na.Slug)]; n++ {
		na.Slug = DerivedKey(slug, n)
	}
	a, err := run.wi.catalog.CreateArea(ctx, na)
	if err != nil {
		return false, err
	}
	run.idx.addArea(a)
	return true, nil
}

// findArea resolves an area by name, within groupName when given.
// Without a group the name must be unique across groups.
func (run *workbookRun) findArea(groupName, name string) (catalog.Area, error) {
	if groupName != "" {
		g, err := run.findGroup(groupName)
		if err != nil {
			return catalog.Area{}, err
		}
		a, ok := run.idx.areas[natKey(g.ID, name)]
		if !ok {
			return catalog.Area{}, errors.Errorf("Área %q não encontrada no grupo %q", name, groupName)
		}
		return a, nil
	}
	switch areas := run.idx.areasByName[name]; len(areas) {
	case 0:
		return catalog.Area{}, errors.Errorf("Área %q não encontrada", name)
	case 1:
		return areas[0], nil
	}
	return catalog.Area{}, errors.Errorf("Área %q existe em mais de um grupo: informe a coluna Grupo", name)
}

func (run *workbookRun) subarea(ctx context.Context, row map[string]string) (bool, error) {
	name, areaName := row["nome"], row["area"]
	if name == "" || areaName == "" {
		return false, nil
	}
	a, err := run.findArea(row["grupo"], areaName)
	if err != nil {
		return false, err
	}
	if _, ok := run.idx.subareas[natKey(a.ID, name)]; ok {
		return false, nil
	}

	ns := catalog.NewSubarea{AreaID: a.ID, Name: name}
	if err = ns.Validate(run.wi.validate); err != nil {
		return false, err
	}
	s, err := run.wi.catalog.CreateSubarea(ctx, ns)
	if err != nil {
		return false, err
	}
	run.idx.subareas[natKey(a.ID, s.Name)] = s
	return true, nil
}

func (run *workbookRun) simulator(ctx context.Context, row map[string]string) (bool, error) {
	nd := catalog.NewDiscipline{
		Discipline:          row["disciplina"],
		LearningObjectives:  row["objetivosdeaprendizagem"],
		GameMechanics:       row["mecanicasdojogo"],
		KPIs:                row["kpis"],
		Syllabus:            row["ementa"],
		DevObjectives:       row["objetivosdedesenvolvimento"],
		AttachmentType:      catalog.AttachmentType(strings.ToUpper(row["tipodeanexo"])),
		AttachmentURL:       row["urldoanexo"],
		AttachmentFilePath:  row["caminhodoarquivo"],
		AttachmentEmbedHTML: row["htmldoembed"],
		IsPublished:         parseYes(row["publicado"]),
	}
	groupName, areaName, subareaName := row["grupo"], row["area"], row["subarea"]
	if nd.Discipline == "" || groupName == "" || areaName == "" || subareaName == "" ||
		nd.LearningObjectives == "" || nd.GameMechanics == "" || nd.KPIs == "" {
		return false, nil
	}
	if code := row["codigo"]; code != "" && run.idx.codes[code] {
		return false, nil
	}

	g, gok := run.idx.groups[groupName]
	a, aok := run.idx.areas[natKey(g.ID, areaName)]
	s, sok := run.idx.subareas[natKey(a.ID, subareaName)]
	if !gok || !aok || !sok {
		return false, errors.New("Grupo, área ou subárea não encontrados")
	}
	if run.idx.disciplines[natKey(g.ID, nd.Discipline)] {
		return false, nil
	}

	nd.GroupID, nd.AreaID, nd.SubareaID = g.ID, a.ID, s.ID
	if err := nd.Validate(run.wi.validate); err != nil {
		return false, err
	}
	d, err := run.wi.catalog.CreateDiscipline(ctx, nd)
	if err != nil {
		return false, err
	}
	run.idx.addDiscipline(d)
	return true, nil
}

func (run *workbookRun) roadmap(ctx context.Context, row map[string]string) (bool, error) {
	groupName := row["grupo"]
	metrics := make([]float64, 0, 4)
	for _, col := range []string{"reach", "impact", "confidence", "effort"} {
		v, ok := parseNumber(row[col])
		if !ok {
			return false, nil
		}
		metrics = append(metrics, v)
	}
	if groupName == "" {
		return false, nil
	}
	g, err := run.findGroup(groupName)
	if err != nil {
		return false, err
	}
	if run.idx.roadmaps[g.ID] {
		return false, nil
	}
	status, err := ParseRoadmapStatus(row["status"])
	if err != nil {
		return false, err
	}

	nr := roadmap.NewRoadmap{
		GroupID:    g.ID,
		Status:     status,
		Reach:      metrics[0],
		Impact:     metrics[1],
		Confidence: metrics[2],
		Effort:     metrics[3],
	}
	if err = nr.Validate(run.wi.validate); err != nil {
		return false, err
	}
	if _, err = run.wi.roadmaps.Create(ctx, nr); err != nil {
		return false, err
	}
	run.idx.roadmaps[g.ID] = true
	return true, nil
}

// ParseRoadmapStatus accepts a status code ("PILOTO") or its label ("Protótipo"); "" is IDEIA.
func ParseRoadmapStatus(s string) (roadmap.Status, error) {
	if s == "" {
		return roadmap.StatusIdea, nil
	}
	norm := NormalizeHeader(s)
	for _, st := range roadmap.Statuses {
		if norm == NormalizeHeader(string(st)) || norm == NormalizeHeader(st.Label()) {
			return st, nil
		}
	}
	return "", errors.Errorf("Status %q inválido", s)
}

// parseNumber reads a metric cell; a decimal comma is accepted.
func parseNumber(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	return v, err == nil
}

func parseYes(s string) bool {
	switch NormalizeHeader(s) {
	case "sim", "true", "1":
		return true
	}
	return false
}
