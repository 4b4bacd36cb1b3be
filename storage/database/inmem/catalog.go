package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/simcatalog/core"
	"github.com/trezcool/simcatalog/core/catalog"
)

type catalogRepository struct {
	db *DB
}

var _ catalog.Repository = (*catalogRepository)(nil)

func NewCatalogRepository(db *DB) catalog.Repository {
	return &catalogRepository{db: db}
}

// Groups

func checkGroup(t tables, g catalog.Group) error {
	for _, other := range t.groups {
		if other.ID == g.ID {
			continue
		}
		if other.Name == g.Name {
			return catalog.ErrGroupNameExists
		}
		if other.CodeBase == g.CodeBase {
			return catalog.ErrCodeBaseExists
		}
	}
	return nil
}

func (repo *catalogRepository) CreateGroup(_ context.Context, g catalog.Group) (catalog.Group, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if err := checkGroup(repo.db.tables, g); err != nil {
		return catalog.Group{}, err
	}
	repo.db.groups[g.ID] = g
	return g, nil
}

func (repo *catalogRepository) GetGroupByID(_ context.Context, id string) (catalog.Group, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if g, ok := repo.db.groups[id]; ok {
		return g, nil
	}
	return catalog.Group{}, catalog.ErrGroupNotFound
}

func (repo *catalogRepository) QueryGroups(_ context.Context) ([]catalog.Group, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	groups := make([]catalog.Group, 0, len(repo.db.groups))
	for _, g := range repo.db.groups {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	return groups, nil
}

func (repo *catalogRepository) UpdateGroup(_ context.Context, g catalog.Group) (catalog.Group, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.groups[g.ID]
	if !ok {
		return catalog.Group{}, catalog.ErrGroupNotFound
	}
	if err := checkGroup(repo.db.tables, g); err != nil {
		return catalog.Group{}, err
	}
	g.CodeSeq = orig.CodeSeq
	repo.db.groups[g.ID] = g
	return g, nil
}

// DeleteGroup also removes the group's areas, their subareas and its roadmap.
func (repo *catalogRepository) DeleteGroup(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.groups[id]; !ok {
		return catalog.ErrGroupNotFound
	}
	for _, a := range repo.db.areas {
		if a.GroupID == id {
			repo.db.deleteArea(a.ID)
		}
	}
	for rid, r := range repo.db.roadmaps {
		if r.GroupID == id {
			delete(repo.db.roadmaps, rid)
		}
	}
	delete(repo.db.groups, id)
	return nil
}

// Areas

func checkArea(t tables, a catalog.Area) error {
	for _, other := range t.areas {
		if other.ID == a.ID || other.GroupID != a.GroupID {
			continue
		}
		if other.Name == a.Name {
			return catalog.ErrAreaNameExists
		}
		if other.Slug == a.Slug {
			return catalog.ErrAreaSlugExists
		}
	}
	return nil
}

func (repo *catalogRepository) CreateArea(_ context.Context, a catalog.Area) (catalog.Area, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.groups[a.GroupID]; !ok {
		return catalog.Area{}, catalog.ErrGroupNotFound
	}
	if err := checkArea(repo.db.tables, a); err != nil {
		return catalog.Area{}, err
	}
	repo.db.areas[a.ID] = a
	return a, nil
}

func (repo *catalogRepository) GetAreaByID(_ context.Context, id string) (catalog.Area, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if a, ok := repo.db.areas[id]; ok {
		return a, nil
	}
	return catalog.Area{}, catalog.ErrAreaNotFound
}

func (repo *catalogRepository) QueryAreas(_ context.Context, groupID string) ([]catalog.Area, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	areas := make([]catalog.Area, 0, len(repo.db.areas))
	for _, a := range repo.db.areas {
		if groupID == "" || a.GroupID == groupID {
			areas = append(areas, a)
		}
	}
	sort.Slice(areas, func(i, j int) bool {
		if areas[i].Name == areas[j].Name {
			return areas[i].ID < areas[j].ID
		}
		return areas[i].Name < areas[j].Name
	})
	return areas, nil
}

func (repo *catalogRepository) UpdateArea(_ context.Context, a catalog.Area) (catalog.Area, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.areas[a.ID]; !ok {
		return catalog.Area{}, catalog.ErrAreaNotFound
	}
	if err := checkArea(repo.db.tables, a); err != nil {
		return catalog.Area{}, err
	}
	repo.db.areas[a.ID] = a
	return a, nil
}

func (repo *catalogRepository) DeleteArea(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.areas[id]; !ok {
		return catalog.ErrAreaNotFound
	}
	repo.db.deleteArea(id)
	return nil
}

func (t tables) deleteArea(id string) {
	for sid, s := range t.subareas {
		if s.AreaID == id {
			delete(t.subareas, sid)
		}
	}
	delete(t.areas, id)
}

// Subareas

func checkSubarea(t tables, s catalog.Subarea) error {
	for _, other := range t.subareas {
		if other.ID != s.ID && other.AreaID == s.AreaID && other.Name == s.Name {
			return catalog.ErrSubareaNameExists
		}
	}
	return nil
}

func (repo *catalogRepository) CreateSubarea(_ context.Context, s catalog.Subarea) (catalog.Subarea, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.areas[s.AreaID]; !ok {
		return catalog.Subarea{}, catalog.ErrAreaNotFound
	}
	if err := checkSubarea(repo.db.tables, s); err != nil {
		return catalog.Subarea{}, err
	}
	repo.db.subareas[s.ID] = s
	return s, nil
}

func (repo *catalogRepository) GetSubareaByID(_ context.Context, id string) (catalog.Subarea, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if s, ok := repo.db.subareas[id]; ok {
		return s, nil
	}
	return catalog.Subarea{}, catalog.ErrSubareaNotFound
}

func (repo *catalogRepository) QuerySubareas(_ context.Context, areaID string) ([]catalog.Subarea, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	subareas := make([]catalog.Subarea, 0, len(repo.db.subareas))
	for _, s := range repo.db.subareas {
		if areaID == "" || s.AreaID == areaID {
			subareas = append(subareas, s)
		}
	}
	sort.Slice(subareas, func(i, j int) bool {
		if subareas[i].Name == subareas[j].Name {
			return subareas[i].ID < subareas[j].ID
		}
		return subareas[i].Name < subareas[j].Name
	})
	return subareas, nil
}

func (repo *catalogRepository) UpdateSubarea(_ context.Context, s catalog.Subarea) (catalog.Subarea, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.subareas[s.ID]; !ok {
		return catalog.Subarea{}, catalog.ErrSubareaNotFound
	}
	if err := checkSubarea(repo.db.tables, s); err != nil {
		return catalog.Subarea{}, err
	}
	repo.db.subareas[s.ID] = s
	return s, nil
}

func (repo *catalogRepository) DeleteSubarea(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.subareas[id]; !ok {
		return catalog.ErrSubareaNotFound
	}
	delete(repo.db.subareas, id)
	return nil
}

// Disciplines

func checkCode(t tables, d catalog.Discipline) error {
	for _, other := range t.disciplines {
		if other.ID != d.ID && other.Code == d.Code {
			return catalog.ErrCodeExists
		}
	}
	return nil
}

// lastCodeSeq is the highest sequence issued for the group's code base, counting codes written by imports.
func (db *DB) lastCodeSeq(g catalog.Group) int {
	last := g.CodeSeq
	for _, d := range db.disciplines {
		if seq, ok := catalog.ParseCodeSeq(g.CodeBase, d.Code); ok && seq > last {
			last = seq
		}
	}
	return last
}

// CreateDiscipline issues the next code of the group under the write lock.
func (repo *catalogRepository) CreateDiscipline(_ context.Context, d catalog.Discipline) (catalog.Discipline, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	g, ok := repo.db.groups[d.GroupID]
	if !ok {
		return catalog.Discipline{}, catalog.ErrGroupNotFound
	}
	if d.Code == "" {
		g.CodeSeq = repo.db.lastCodeSeq(g) + 1
		d.Code = catalog.FormatCode(g.CodeBase, g.CodeSeq)
	}
	if err := checkCode(repo.db.tables, d); err != nil {
		return catalog.Discipline{}, err
	}
	repo.db.groups[g.ID] = g
	d.Group, d.Area, d.Subarea = nil, nil, nil
	repo.db.disciplines[d.ID] = d
	return d, nil
}

func (repo *catalogRepository) GetDisciplineByID(_ context.Context, id string) (catalog.Discipline, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if d, ok := repo.db.disciplines[id]; ok {
		return d, nil
	}
	return catalog.Discipline{}, catalog.ErrDisciplineNotFound
}

func (repo *catalogRepository) matching(match func(d catalog.Discipline) bool) []catalog.Discipline {
	ds := make([]catalog.Discipline, 0)
	for _, d := range repo.db.disciplines {
		if match(d) {
			ds = append(ds, d)
		}
	}
	sort.Slice(ds, func(i, j int) bool { return ds[i].Code < ds[j].Code })
	return ds
}

func (repo *catalogRepository) FilterDisciplines(_ context.Context, filter catalog.DisciplineFilter, page core.Page) ([]catalog.Discipline, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	ds := repo.matching(filter.Match)
	total := len(ds)
	start := page.Offset()
	if start > total {
		start = total
	}
	end := start + page.Limit
	if end > total {
		end = total
	}
	return ds[start:end], total, nil
}

func (repo *catalogRepository) QueryDisciplines(_ context.Context, includeUnpublished bool) ([]catalog.Discipline, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	return repo.matching(func(d catalog.Discipline) bool { return includeUnpublished || d.IsPublished }), nil
}

func (repo *catalogRepository) CountDisciplines(_ context.Context, ref catalog.DisciplineRef) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	n := 0
	for _, d := range repo.db.disciplines {
		if ref.Match(d) {
			n++
		}
	}
	return n, nil
}

func (repo *catalogRepository) UpdateDiscipline(_ context.Context, d catalog.Discipline) (catalog.Discipline, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.disciplines[d.ID]; !ok {
		return catalog.Discipline{}, catalog.ErrDisciplineNotFound
	}
	if err := checkCode(repo.db.tables, d); err != nil {
		return catalog.Discipline{}, err
	}
	d.Group, d.Area, d.Subarea = nil, nil, nil
	repo.db.disciplines[d.ID] = d
	return d, nil
}

func (repo *catalogRepository) DeleteDiscipline(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.disciplines[id]; !ok {
		return catalog.ErrDisciplineNotFound
	}
	delete(repo.db.disciplines, id)
	return nil
}
