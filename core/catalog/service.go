package catalog

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/simcatalog/core"
)

var (
	// errors
	ErrGroupNotFound      = core.NewNotFoundError("group not found")
	ErrAreaNotFound       = core.NewNotFoundError("area not found")
	ErrSubareaNotFound    = core.NewNotFoundError("subarea not found")
	ErrDisciplineNotFound = core.NewNotFoundError("simulator not found")

	ErrGroupNameExists   = errors.New("a group with this name already exists")
	ErrCodeBaseExists    = errors.New("a group with this code base already exists")
	ErrAreaNameExists    = errors.New("an area with this name already exists in the group")
	ErrAreaSlugExists    = errors.New("an area with this slug already exists in the group")
	ErrSubareaNameExists = errors.New("a subarea with this name already exists in the area")
	ErrCodeExists        = errors.New("a simulator with this code already exists")

	ErrGroupInUse   = errors.New("group has simulators and cannot be deleted")
	ErrAreaInUse    = errors.New("area has simulators and cannot be deleted")
	ErrSubareaInUse = errors.New("subarea has simulators and cannot be deleted")
	ErrAreaMoveUsed = errors.New("area has simulators and cannot move to another group")

	ErrSubareaNotInArea = errors.New("subarea does not belong to the specified area")
	ErrAreaNotInGroup   = errors.New("area does not belong to the specified group")

	uniqueFields = map[error]string{
		ErrGroupNameExists:   "name",
		ErrCodeBaseExists:    "codeBase",
		ErrAreaNameExists:    "name",
		ErrAreaSlugExists:    "slug",
		ErrSubareaNameExists: "name",
		ErrCodeExists:        "code",
	}
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// uniqueErr turns the repository's uniqueness sentinels into field errors.
func uniqueErr(err error) error {
	if err == nil {
		return nil
	}
	if field, ok := uniqueFields[errors.Cause(err)]; ok {
		return core.NewFieldError(field, errors.Cause(err))
	}
	return err
}

// Groups

func (svc *Service) CreateGroup(ctx context.Context, ng NewGroup) (Group, error) {
	g, err := svc.repo.CreateGroup(ctx, Group{
		ID:        uuid.NewString(),
		Name:      ng.Name,
		Context:   ng.Context,
		CodeBase:  ng.CodeBase,
		CreatedAt: time.Now().UTC(),
	})
	return g, uniqueErr(err)
}

func (svc *Service) GetGroup(ctx context.Context, id string) (Group, error) {
	return svc.repo.GetGroupByID(ctx, id)
}

func (svc *Service) GetGroupDetail(ctx context.Context, id string) (GroupDetail, error) {
	g, err := svc.repo.GetGroupByID(ctx, id)
	if err != nil {
		return GroupDetail{}, err
	}
	details, err := svc.groupDetails(ctx, []Group{g})
	if err != nil {
		return GroupDetail{}, err
	}
	return details[0], nil
}

// QueryGroups lists groups with their discipline counts and the names of the areas they serve.
func (svc *Service) QueryGroups(ctx context.Context) ([]GroupDetail, error) {
	groups, err := svc.repo.QueryGroups(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying groups")
	}
	return svc.groupDetails(ctx, groups)
}

func (svc *Service) groupDetails(ctx context.Context, groups []Group) ([]GroupDetail, error) {
	disciplines, err := svc.repo.QueryDisciplines(ctx, true)
	if err != nil {
		return nil, errors.Wrap(err, "querying disciplines")
	}
	areas, err := svc.repo.QueryAreas(ctx, "")
	if err != nil {
		return nil, errors.Wrap(err, "querying areas")
	}
	areaNames := make(map[string]string, len(areas))
	for _, a := range areas {
		areaNames[a.ID] = a.Name
	}

	details := make([]GroupDetail, 0, len(groups))
	for _, g := range groups {
		gd := GroupDetail{Group: g, AreasServed: []string{}}
		served := make(map[string]bool)
		for _, d := range disciplines {
			if d.GroupID != g.ID {
				continue
			}
			gd.DisciplinesCount++
			if name := areaNames[d.AreaID]; name != "" && !served[name] {
				served[name] = true
				gd.AreasServed = append(gd.AreasServed, name)
			}
		}
		sort.Strings(gd.AreasServed)
		details = append(details, gd)
	}
	return details, nil
}

func (svc *Service) UpdateGroup(ctx context.Context, id string, ng NewGroup) (Group, error) {
	g, err := svc.repo.GetGroupByID(ctx, id)
	if err != nil {
		return Group{}, err
	}
	g.Name = ng.Name
	g.Context = ng.Context
	g.CodeBase = ng.CodeBase
	g, err = svc.repo.UpdateGroup(ctx, g)
	return g, uniqueErr(err)
}

func (svc *Service) DeleteGroup(ctx context.Context, id string) error {
	if _, err := svc.repo.GetGroupByID(ctx, id); err != nil {
		return err
	}
	if err := svc.guard(ctx, DisciplineRef{GroupID: id}, ErrGroupInUse); err != nil {
		return err
	}
	return svc.repo.DeleteGroup(ctx, id)
}

// guard rejects deletes of records still referenced by disciplines.
func (svc *Service) guard(ctx context.Context, ref DisciplineRef, inUse error) error {
	n, err := svc.repo.CountDisciplines(ctx, ref)
	if err != nil {
		return errors.Wrap(err, "counting disciplines")
	}
	if n > 0 {
		return core.NewValidationError(inUse)
	}
	return nil
}

// Areas

func (svc *Service) CreateArea(ctx context.Context, na NewArea) (Area, error) {
	if _, err := svc.repo.GetGroupByID(ctx, na.GroupID); err != nil {
		return Area{}, err
	}
	a, err := svc.repo.CreateArea(ctx, Area{
		ID:        uuid.NewString(),
		GroupID:   na.GroupID,
		Name:      na.Name,
		Slug:      na.Slug,
		CreatedAt: time.Now().UTC(),
	})
	return a, uniqueErr(err)
}

func (svc *Service) QueryAreas(ctx context.Context, groupID string) ([]Area, error) {
	return svc.repo.QueryAreas(ctx, groupID)
}

// GetArea returns the area with its group, its subareas and their discipline counts.
func (svc *Service) GetArea(ctx context.Context, id string) (AreaDetail, error) {
	a, err := svc.repo.GetAreaByID(ctx, id)
	if err != nil {
		return AreaDetail{}, err
	}
	ad := AreaDetail{Area: a, Subareas: []SubareaDetail{}}
	if g, err := svc.repo.GetGroupByID(ctx, a.GroupID); err == nil {
		ad.Group = &GroupRef{ID: g.ID, Name: g.Name, CodeBase: g.CodeBase}
	} else if !core.IsNotFound(err) {
		return AreaDetail{}, err
	}

	if ad.DisciplinesCount, err = svc.repo.CountDisciplines(ctx, DisciplineRef{AreaID: a.ID}); err != nil {
		return AreaDetail{}, errors.Wrap(err, "counting disciplines")
	}
	subareas, err := svc.repo.QuerySubareas(ctx, a.ID)
	if err != nil {
		return AreaDetail{}, errors.Wrap(err, "querying subareas")
	}
	for _, s := range subareas {
		n, err := svc.repo.CountDisciplines(ctx, DisciplineRef{SubareaID: s.ID})
		if err != nil {
			return AreaDetail{}, errors.Wrap(err, "counting disciplines")
		}
		ad.Subareas = append(ad.Subareas, SubareaDetail{Subarea: s, DisciplinesCount: n})
	}
	return ad, nil
}

func (svc *Service) UpdateArea(ctx context.Context, id string, na NewArea) (Area, error) {
	a, err := svc.repo.GetAreaByID(ctx, id)
	if err != nil {
		return Area{}, err
	}
	if na.GroupID != a.GroupID {
		if _, err = svc.repo.GetGroupByID(ctx, na.GroupID); err != nil {
			return Area{}, err
		}
		if err = svc.guard(ctx, DisciplineRef{AreaID: id}, ErrAreaMoveUsed); err != nil {
			return Area{}, err
		}
	}
	a.GroupID = na.GroupID
	a.Name = na.Name
	a.Slug = na.Slug
	a, err = svc.repo.UpdateArea(ctx, a)
	return a, uniqueErr(err)
}

func (svc *Service) DeleteArea(ctx context.Context, id string) error {
	if _, err := svc.repo.GetAreaByID(ctx, id); err != nil {
		return err
	}
	if err := svc.guard(ctx, DisciplineRef{AreaID: id}, ErrAreaInUse); err != nil {
		return err
	}
	return svc.repo.DeleteArea(ctx, id)
}

// Subareas

func (svc *Service) CreateSubarea(ctx context.Context, ns NewSubarea) (Subarea, error) {
	if _, err := svc.repo.GetAreaByID(ctx, ns.AreaID); err != nil {
		return Subarea{}, err
	}
	s, err := svc.repo.CreateSubarea(ctx, Subarea{
		ID:        uuid.NewString(),
		AreaID:    ns.AreaID,
		Name:      ns.Name,
		CreatedAt: time.Now().UTC(),
	})
	return s, uniqueErr(err)
}

func (svc *Service) GetSubarea(ctx context.Context, id string) (Subarea, error) {
	return svc.repo.GetSubareaByID(ctx, id)
}

func (svc *Service) QuerySubareas(ctx context.Context, areaID string) ([]Subarea, error) {
	if _, err := svc.repo.GetAreaByID(ctx, areaID); err != nil {
		return nil, err
	}
	return svc.repo.QuerySubareas(ctx, areaID)
}

// UpdateSubarea renames a subarea; its area cannot change.
func (svc *Service) UpdateSubarea(ctx context.Context, id string, ns NewSubarea) (Subarea, error) {
	s, err := svc.repo.GetSubareaByID(ctx, id)
	if err != nil {
		return Subarea{}, err
	}
	s.Name = ns.Name
	s, err = svc.repo.UpdateSubarea(ctx, s)
	return s, uniqueErr(err)
}

func (svc *Service) DeleteSubarea(ctx context.Context, id string) error {
	if _, err := svc.repo.GetSubareaByID(ctx, id); err != nil {
		return err
	}
	if err := svc.guard(ctx, DisciplineRef{SubareaID: id}, ErrSubareaInUse); err != nil {
		return err
	}
	return svc.repo.DeleteSubarea(ctx, id)
}

// Disciplines

// checkPlacement enforces that the subarea belongs to the area and the area to the group.
func (svc *Service) checkPlacement(ctx context.Context, groupID, areaID, subareaID string) error {
	sub, err := svc.repo.GetSubareaByID(ctx, subareaID)
	if err != nil {
		return err
	}
	if sub.AreaID != areaID {
		return core.NewFieldError("subareaId", ErrSubareaNotInArea)
	}
	if _, err = svc.repo.GetGroupByID(ctx, groupID); err != nil {
		return err
	}
	area, err := svc.repo.GetAreaByID(ctx, areaID)
	if err != nil {
		return err
	}
	if area.GroupID != groupID {
		return core.NewFieldError("areaId", ErrAreaNotInGroup)
	}
	return nil
}

func (svc *Service) CreateDiscipline(ctx context.Context, nd NewDiscipline) (Discipline, error) {
	if err := svc.checkPlacement(ctx, nd.GroupID, nd.AreaID, nd.SubareaID); err != nil {
		return Discipline{}, err
	}

	now := time.Now().UTC()
	d := Discipline{
		ID:                 uuid.NewString(),
		Discipline:         nd.Discipline,
		GroupID:            nd.GroupID,
		AreaID:             nd.AreaID,
		SubareaID:          nd.SubareaID,
		LearningObjectives: nd.LearningObjectives,
		GameMechanics:      nd.GameMechanics,
		KPIs:               nd.KPIs,
		Syllabus:           nullableString(nd.Syllabus),
		DevObjectives:      nullableString(nd.DevObjectives),
		IsPublished:        nd.IsPublished,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	err := applyAttachment(&d, UpdateAttachment{
		AttachmentType:      nd.AttachmentType,
		AttachmentURL:       nd.AttachmentURL,
		AttachmentFilePath:  nd.AttachmentFilePath,
		AttachmentEmbedHTML: nd.AttachmentEmbedHTML,
	})
	if err != nil {
		return Discipline{}, err
	}

	d, err = svc.repo.CreateDiscipline(ctx, d)
	if err != nil {
		return Discipline{}, uniqueErr(err)
	}
	return svc.expandOne(ctx, d)
}

func (svc *Service) GetDiscipline(ctx context.Context, id string) (Discipline, error) {
	d, err := svc.repo.GetDisciplineByID(ctx, id)
	if err != nil {
		return Discipline{}, err
	}
	return svc.expandOne(ctx, d)
}

// FilterDisciplines returns one page of disciplines ordered by code.
func (svc *Service) FilterDisciplines(ctx context.Context, filter DisciplineFilter, page core.Page) ([]Discipline, core.Pagination, error) {
	filter.Clean()
	page.Clean()
	items, total, err := svc.repo.FilterDisciplines(ctx, filter, page)
	if err != nil {
		return nil, core.Pagination{}, errors.Wrap(err, "filtering disciplines")
	}
	if items, err = svc.expand(ctx, items); err != nil {
		return nil, core.Pagination{}, err
	}
	return items, core.NewPagination(page, total), nil
}

func (svc *Service) UpdateDiscipline(ctx context.Context, id string, ud UpdateDiscipline) (Discipline, error) {
	d, err := svc.repo.GetDisciplineByID(ctx, id)
	if err != nil {
		return Discipline{}, err
	}
	orig := d
	ud.apply(&d)
	if d.GroupID != orig.GroupID || d.AreaID != orig.AreaID || d.SubareaID != orig.SubareaID {
		if err = svc.checkPlacement(ctx, d.GroupID, d.AreaID, d.SubareaID); err != nil {
			return Discipline{}, err
		}
	}
	return svc.save(ctx, d)
}

func (svc *Service) UpdateSyllabus(ctx context.Context, id string, us UpdateSyllabus) (Discipline, error) {
	d, err := svc.repo.GetDisciplineByID(ctx, id)
	if err != nil {
		return Discipline{}, err
	}
	UpdateDiscipline{Syllabus: us.Syllabus, DevObjectives: us.DevObjectives}.apply(&d)
	return svc.save(ctx, d)
}

func (svc *Service) UpdateAttachment(ctx context.Context, id string, ua UpdateAttachment) (Discipline, error) {
	d, err := svc.repo.GetDisciplineByID(ctx, id)
	if err != nil {
		return Discipline{}, err
	}
	if err = applyAttachment(&d, ua); err != nil {
		return Discipline{}, err
	}
	return svc.save(ctx, d)
}

// DuplicateDiscipline copies a discipline under a freshly issued code. The copy is unpublished.
func (svc *Service) DuplicateDiscipline(ctx context.Context, id string) (Discipline, error) {
	d, err := svc.repo.GetDisciplineByID(ctx, id)
	if err != nil {
		return Discipline{}, err
	}
	now := time.Now().UTC()
	d.ID = uuid.NewString()
	d.Code = ""
	d.Discipline += " (cópia)"
	d.IsPublished = false
	d.CreatedAt = now
	d.UpdatedAt = now

	if d, err = svc.repo.CreateDiscipline(ctx, d); err != nil {
		return Discipline{}, uniqueErr(err)
	}
	return svc.expandOne(ctx, d)
}

func (svc *Service) DeleteDiscipline(ctx context.Context, id string) error {
	if _, err := svc.repo.GetDisciplineByID(ctx, id); err != nil {
		return err
	}
	return svc.repo.DeleteDiscipline(ctx, id)
}

// QueryDisciplines lists disciplines ordered by code, with their group, area and subarea.
func (svc *Service) QueryDisciplines(ctx context.Context, includeUnpublished bool) ([]Discipline, error) {
	items, err := svc.repo.QueryDisciplines(ctx, includeUnpublished)
	if err != nil {
		return nil, errors.Wrap(err, "querying disciplines")
	}
	return svc.expand(ctx, items)
}

func (svc *Service) save(ctx context.Context, d Discipline) (Discipline, error) {
	d.UpdatedAt = time.Now().UTC()
	d, err := svc.repo.UpdateDiscipline(ctx, d)
	if err != nil {
		return Discipline{}, uniqueErr(err)
	}
	return svc.expandOne(ctx, d)
}

func (svc *Service) expandOne(ctx context.Context, d Discipline) (Discipline, error) {
	ds, err := svc.expand(ctx, []Discipline{d})
	if err != nil {
		return Discipline{}, err
	}
	return ds[0], nil
}

// expand attaches the group, area and subarea summaries to disciplines.
func (svc *Service) expand(ctx context.Context, ds []Discipline) ([]Discipline, error) {
	if len(ds) == 0 {
		return []Discipline{}, nil
	}
	groups, err := svc.repo.QueryGroups(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying groups")
	}
	areas, err := svc.repo.QueryAreas(ctx, "")
	if err != nil {
		return nil, errors.Wrap(err, "querying areas")
	}
	subareas, err := svc.repo.QuerySubareas(ctx, "")
	if err != nil {
		return nil, errors.Wrap(err, "querying subareas")
	}

	groupRefs := make(map[string]*GroupRef, len(groups))
	for _, g := range groups {
		groupRefs[g.ID] = &GroupRef{ID: g.ID, Name: g.Name, CodeBase: g.CodeBase}
	}
	areaRefs := make(map[string]*AreaRef, len(areas))
	for _, a := range areas {
		areaRefs[a.ID] = &AreaRef{ID: a.ID, Name: a.Name, Slug: a.Slug}
	}
	subareaRefs := make(map[string]*SubareaRef, len(subareas))
	for _, s := range subareas {
		subareaRefs[s.ID] = &SubareaRef{ID: s.ID, Name: s.Name}
	}

	for i := range ds {
		ds[i].Group = groupRefs[ds[i].GroupID]
		ds[i].Area = areaRefs[ds[i].AreaID]
		ds[i].Subarea = subareaRefs[ds[i].SubareaID]
	}
	return ds, nil
}
