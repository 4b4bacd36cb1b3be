package report

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/simcatalog/core/catalog"
	"github.com/trezcool/simcatalog/core/roadmap"
)

const (
	DefaultRankingTop = 20
	MaxRankingTop     = 100
)

type (
	// Catalog is the read side of the catalog repository.
	Catalog interface {
		QueryGroups(ctx context.Context) ([]catalog.Group, error)
		QueryAreas(ctx context.Context, groupID string) ([]catalog.Area, error)
		QuerySubareas(ctx context.Context, areaID string) ([]catalog.Subarea, error)
		QueryDisciplines(ctx context.Context, includeUnpublished bool) ([]catalog.Discipline, error)
	}

	Roadmaps interface {
		QueryRoadmaps(ctx context.Context) ([]roadmap.Roadmap, error)
	}
)

type (
	GroupSummary struct {
		GroupID           string   `json:"groupId"`
		GroupName         string   `json:"groupName"`
		CodeBase          string   `json:"codeBase"`
		DisciplinesCount  int      `json:"disciplinesCount"`
		AreasServed       []string `json:"areasServed"`
		AreasServedString string   `json:"areasServedString"`
	}

	AreaCoverage struct {
		AreaID                  string            `json:"areaId"`
		AreaName                string            `json:"areaName"`
		GroupName               string            `json:"groupName"`
		TotalCatalogDisciplines int               `json:"totalCatalogDisciplines"`
		TotalSubareas           int               `json:"totalSubareas"`
		CoveredSubareas         int               `json:"coveredSubareas"`
		CoveragePct             float64           `json:"coveragePct"`
		Subareas                []SubareaCoverage `json:"subareas"`
	}

	SubareaCoverage struct {
		ID               string `json:"id"`
		Name             string `json:"name"`
		DisciplinesCount int    `json:"disciplinesCount"`
		IsCovered        bool   `json:"isCovered"`
	}

	RankingItem struct {
		Position int `json:"position"`
		roadmap.Roadmap
	}

	StatusCount struct {
		Status roadmap.Status `json:"status"`
		Label  string         `json:"label"`
		Count  int            `json:"count"`
	}

	Totals struct {
		Groups               int `json:"groups"`
		Areas                int `json:"areas"`
		Subareas             int `json:"subareas"`
		Disciplines          int `json:"disciplines"`
		PublishedDisciplines int `json:"publishedDisciplines"`
		Roadmaps             int `json:"roadmaps"`
	}

	Dashboard struct {
		Statuses []StatusCount `json:"statuses"`
		Totals   Totals        `json:"totals"`
	}
)

type Service struct {
	catalog  Catalog
	roadmaps Roadmaps
}

func NewService(cat Catalog, roadmaps Roadmaps) *Service {
	return &Service{catalog: cat, roadmaps: roadmaps}
}

// snapshot is every record a report or an export is built from.
type snapshot struct {
	groups      []catalog.Group
	areas       []catalog.Area
	subareas    []catalog.Subarea
	disciplines []catalog.Discipline
	roadmaps    []roadmap.Roadmap
}

func (svc *Service) load(ctx context.Context, includeUnpublished bool) (snapshot, error) {
	var (
		s   snapshot
		err error
	)
	if s.groups, err = svc.catalog.QueryGroups(ctx); err != nil {
		return s, errors.Wrap(err, "querying groups")
	}
	if s.areas, err = svc.catalog.QueryAreas(ctx, ""); err != nil {
		return s, errors.Wrap(err, "querying areas")
	}
	if s.subareas, err = svc.catalog.QuerySubareas(ctx, ""); err != nil {
		return s, errors.Wrap(err, "querying subareas")
	}
	if s.disciplines, err = svc.catalog.QueryDisciplines(ctx, includeUnpublished); err != nil {
		return s, errors.Wrap(err, "querying disciplines")
	}
	if s.roadmaps, err = svc.roadmaps.QueryRoadmaps(ctx); err != nil {
		return s, errors.Wrap(err, "querying roadmaps")
	}
	return s, nil
}

func (s snapshot) groupNames() map[string]string {
	names := make(map[string]string, len(s.groups))
	for _, g := range s.groups {
		names[g.ID] = g.Name
	}
	return names
}

func (s snapshot) areaNames() map[string]string {
	names := make(map[string]string, len(s.areas))
	for _, a := range s.areas {
		names[a.ID] = a.Name
	}
	return names
}

func (s snapshot) subareaNames() map[string]string {
	names := make(map[string]string, len(s.subareas))
	for _, sa := range s.subareas {
		names[sa.ID] = sa.Name
	}
	return names
}

// GroupSummary lists every group with its discipline count and the areas it serves.
func (svc *Service) GroupSummary(ctx context.Context) ([]GroupSummary, error) {
	s, err := svc.load(ctx, true)
	if err != nil {
		return nil, err
	}
	areaNames := s.areaNames()

	summary := make([]GroupSummary, 0, len(s.groups))
	for _, g := range s.groups {
		gs := GroupSummary{GroupID: g.ID, GroupName: g.Name, CodeBase: g.CodeBase, AreasServed: []string{}}
		seen := make(map[string]bool)
		for _, d := range s.disciplines {
			if d.GroupID != g.ID {
				continue
			}
			gs.DisciplinesCount++
			if !seen[d.AreaID] {
				seen[d.AreaID] = true
				gs.AreasServed = append(gs.AreasServed, areaNames[d.AreaID])
			}
		}
		sort.Strings(gs.AreasServed)
		gs.AreasServedString = strings.Join(gs.AreasServed, ", ")
		summary = append(summary, gs)
	}
	return summary, nil
}

// AreaCoverage reports, per area, how many of its subareas have at least one discipline.
func (svc *Service) AreaCoverage(ctx context.Context) ([]AreaCoverage, error) {
	s, err := svc.load(ctx, true)
	if err != nil {
		return nil, err
	}
	return s.coverage(), nil
}

func (s snapshot) coverage() []AreaCoverage {
	groupNames := s.groupNames()
	perArea := make(map[string]int)
	perSubarea := make(map[string]int)
	for _, d := range s.disciplines {
		perArea[d.AreaID]++
		perSubarea[d.SubareaID]++
	}

	coverage := make([]AreaCoverage, 0, len(s.areas))
	for _, a := range s.areas {
		ac := AreaCoverage{
			AreaID:                  a.ID,
			AreaName:                a.Name,
			GroupName:               groupNames[a.GroupID],
			TotalCatalogDisciplines: perArea[a.ID],
			Subareas:                []SubareaCoverage{},
		}
		for _, sa := range s.subareas {
			if sa.AreaID != a.ID {
				continue
			}
			n := perSubarea[sa.ID]
			ac.TotalSubareas++
			if n > 0 {
				ac.CoveredSubareas++
			}
			ac.Subareas = append(ac.Subareas, SubareaCoverage{ID: sa.ID, Name: sa.Name, DisciplinesCount: n, IsCovered: n > 0})
		}
		ac.CoveragePct = Percent(ac.CoveredSubareas, ac.TotalSubareas)
		coverage = append(coverage, ac)
	}
	return coverage
}

// Percent is part/total as a percentage rounded to 2 decimal places; 0 when total is 0.
func Percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	pct, _ := decimal.NewFromInt(int64(part)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(total))).
		Round(2).
		Float64()
	return pct
}

// Round2 rounds f to 2 decimal places.
func Round2(f float64) float64 {
	r, _ := decimal.NewFromFloat(f).Round(2).Float64()
	return r
}

// Ranking lists the top roadmaps by RICE score with their 1-based position.
// top defaults to DefaultRankingTop and is capped at MaxRankingTop.
func (svc *Service) Ranking(ctx context.Context, top int) ([]RankingItem, error) {
	if top <= 0 {
		top = DefaultRankingTop
	}
	if top > MaxRankingTop {
		top = MaxRankingTop
	}

	rs, err := svc.roadmaps.QueryRoadmaps(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying roadmaps")
	}
	groups, err := svc.catalog.QueryGroups(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying groups")
	}
	refs := make(map[string]*catalog.GroupRef, len(groups))
	for _, g := range groups {
		refs[g.ID] = &catalog.GroupRef{ID: g.ID, Name: g.Name, CodeBase: g.CodeBase}
	}

	if len(rs) > top {
		rs = rs[:top]
	}
	ranking := make([]RankingItem, 0, len(rs))
	for i, r := range rs {
		r.Group = refs[r.GroupID]
		ranking = append(ranking, RankingItem{Position: i + 1, Roadmap: r})
	}
	return ranking, nil
}

// Dashboard counts roadmaps per status and catalog records.
func (svc *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	s, err := svc.load(ctx, true)
	if err != nil {
		return Dashboard{}, err
	}
	return Dashboard{Statuses: s.statusCounts(), Totals: s.totals()}, nil
}

func (s snapshot) statusCounts() []StatusCount {
	counts := make(map[roadmap.Status]int, len(roadmap.Statuses))
	for _, r := range s.roadmaps {
		counts[r.Status]++
	}
	statuses := make([]StatusCount, 0, len(roadmap.Statuses))
	for _, st := range roadmap.Statuses {
		statuses = append(statuses, StatusCount{Status: st, Label: st.Label(), Count: counts[st]})
	}
	return statuses
}

func (s snapshot) totals() Totals {
	t := Totals{
		Groups:      len(s.groups),
		Areas:       len(s.areas),
		Subareas:    len(s.subareas),
		Disciplines: len(s.disciplines),
		Roadmaps:    len(s.roadmaps),
	}
	for _, d := range s.disciplines {
		if d.IsPublished {
			t.PublishedDisciplines++
		}
	}
	return t
}
