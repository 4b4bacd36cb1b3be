package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/simcatalog/core"
	"github.com/trezcool/simcatalog/core/catalog"
)

const (
	groupColumns      = "id, name, context, code_base, code_seq, created_at"
	areaColumns       = "id, group_id, name, slug, created_at"
	subareaColumns    = "id, area_id, name, created_at"
	disciplineColumns = "id, code, discipline, group_id, area_id, subarea_id, learning_objectives, game_mechanics, kpis, " +
		"syllabus, dev_objectives, attachment_type, attachment_url, attachment_file_path, attachment_embed_html, " +
		"is_published, created_at, updated_at"
)

type catalogRepository struct {
	db core.DB
}

var _ catalog.Repository = (*catalogRepository)(nil)

func NewCatalogRepository(db core.DB) catalog.Repository {
	return &catalogRepository{db: db}
}

// Groups

func (repo *catalogRepository) CreateGroup(ctx context.Context, g catalog.Group) (catalog.Group, error) {
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO simulator_groups (`+groupColumns+`)
		VALUES (:id, :name, :context, :code_base, :code_seq, :created_at)`, g)
	if err != nil {
		return catalog.Group{}, dbErr(err, nil, "inserting group")
	}
	return g, nil
}

func (repo *catalogRepository) GetGroupByID(ctx context.Context, id string) (catalog.Group, error) {
	var g catalog.Group
	err := repo.db.GetContext(ctx, &g, "SELECT "+groupColumns+" FROM simulator_groups WHERE id = $1", id)
	return g, dbErr(err, catalog.ErrGroupNotFound, "selecting group")
}

func (repo *catalogRepository) QueryGroups(ctx context.Context) ([]catalog.Group, error) {
	groups := make([]catalog.Group, 0)
	if err := repo.db.SelectContext(ctx, &groups, "SELECT "+groupColumns+" FROM simulator_groups ORDER BY name"); err != nil {
		return nil, errors.Wrap(err, "selecting groups")
	}
	return groups, nil
}

// UpdateGroup leaves the code sequence untouched.
func (repo *catalogRepository) UpdateGroup(ctx context.Context, g catalog.Group) (catalog.Group, error) {
	err := repo.db.GetContext(ctx, &g.CodeSeq, `
		UPDATE simulator_groups SET name = $2, context = $3, code_base = $4
		WHERE id = $1
		RETURNING code_seq`, g.ID, g.Name, g.Context, g.CodeBase)
	if err != nil {
		return catalog.Group{}, dbErr(err, catalog.ErrGroupNotFound, "updating group")
	}
	return g, nil
}

// DeleteGroup cascades to the group's areas, their subareas and its roadmap.
func (repo *catalogRepository) DeleteGroup(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM simulator_groups WHERE id = $1", id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return catalog.ErrGroupInUse
		}
		return errors.Wrap(err, "deleting group")
	}
	return checkAffected(res, catalog.ErrGroupNotFound)
}

// Areas

func (repo *catalogRepository) CreateArea(ctx context.Context, a catalog.Area) (catalog.Area, error) {
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO areas (`+areaColumns+`)
		VALUES (:id, :group_id, :name, :slug, :created_at)`, a)
	if err != nil {
		return catalog.Area{}, dbErr(err, nil, "inserting area")
	}
	return a, nil
}

func (repo *catalogRepository) GetAreaByID(ctx context.Context, id string) (catalog.Area, error) {
	var a catalog.Area
	err := repo.db.GetContext(ctx, &a, "SELECT "+areaColumns+" FROM areas WHERE id = $1", id)
	return a, dbErr(err, catalog.ErrAreaNotFound, "selecting area")
}

func (repo *catalogRepository) QueryAreas(ctx context.Context, groupID string) ([]catalog.Area, error) {
	var w where
	if groupID != "" {
		w.add("group_id = $?", groupID)
	}
	areas := make([]catalog.Area, 0)
	q := "SELECT " + areaColumns + " FROM areas" + w.String() + " ORDER BY name, id"
	if err := repo.db.SelectContext(ctx, &areas, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "selecting areas")
	}
	return areas, nil
}

func (repo *catalogRepository) UpdateArea(ctx context.Context, a catalog.Area) (catalog.Area, error) {
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE areas SET group_id = :group_id, name = :name, slug = :slug
		WHERE id = :id`, a)
	if err != nil {
		return catalog.Area{}, dbErr(err, nil, "updating area")
	}
	if err = checkAffected(res, catalog.ErrAreaNotFound); err != nil {
		return catalog.Area{}, err
	}
	return a, nil
}

// DeleteArea cascades to the area's subareas.
func (repo *catalogRepository) DeleteArea(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM areas WHERE id = $1", id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return catalog.ErrAreaInUse
		}
		return errors.Wrap(err, "deleting area")
	}
	return checkAffected(res, catalog.ErrAreaNotFound)
}

// Subareas

func (repo *catalogRepository) CreateSubarea(ctx context.Context, s catalog.Subarea) (catalog.Subarea, error) {
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO subareas (`+subareaColumns+`)
		VALUES (:id, :area_id, :name, :created_at)`, s)
	if err != nil {
		return catalog.Subarea{}, dbErr(err, nil, "inserting subarea")
	}
	return s, nil
}

func (repo *catalogRepository) GetSubareaByID(ctx context.Context, id string) (catalog.Subarea, error) {
	var s catalog.Subarea
	err := repo.db.GetContext(ctx, &s, "SELECT "+subareaColumns+" FROM subareas WHERE id = $1", id)
	return s, dbErr(err, catalog.ErrSubareaNotFound, "selecting subarea")
}

func (repo *catalogRepository) QuerySubareas(ctx context.Context, areaID string) ([]catalog.Subarea, error) {
	var w where
	if areaID != "" {
		w.add("area_id = $?", areaID)
	}
	subareas := make([]catalog.Subarea, 0)
	q := "SELECT " + subareaColumns + " FROM subareas" + w.String() + " ORDER BY name, id"
	if err := repo.db.SelectContext(ctx, &subareas, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "selecting subareas")
	}
	return subareas, nil
}

func (repo *catalogRepository) UpdateSubarea(ctx context.Context, s catalog.Subarea) (catalog.Subarea, error) {
	res, err := repo.db.ExecContext(ctx, "UPDATE subareas SET name = $2 WHERE id = $1", s.ID, s.Name)
	if err != nil {
		return catalog.Subarea{}, dbErr(err, nil, "updating subarea")
	}
	if err = checkAffected(res, catalog.ErrSubareaNotFound); err != nil {
		return catalog.Subarea{}, err
	}
	return s, nil
}

func (repo *catalogRepository) DeleteSubarea(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM subareas WHERE id = $1", id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return catalog.ErrSubareaInUse
		}
		return errors.Wrap(err, "deleting subarea")
	}
	return checkAffected(res, catalog.ErrSubareaNotFound)
}

// Disciplines

const insertDiscipline = `
	INSERT INTO simulator_disciplines (` + disciplineColumns + `)
	VALUES (:id, :code, :discipline, :group_id, :area_id, :subarea_id, :learning_objectives, :game_mechanics, :kpis,
	        :syllabus, :dev_objectives, :attachment_type, :attachment_url, :attachment_file_path, :attachment_embed_html,
	        :is_published, :created_at, :updated_at)`

// issueCode moves the group's sequence past every code already stored under its code base
// (imports write codes without touching code_seq).
const issueCode = `
	UPDATE simulator_groups g SET code_seq = GREATEST(g.code_seq, COALESCE((
		SELECT max(substr(d.code, length(g.code_base) + 6)::int)
		FROM simulator_disciplines d
		WHERE left(d.code, length(g.code_base) + 5) = 'SIM-' || g.code_base || '-'
		  AND substr(d.code, length(g.code_base) + 6) ~ '^[0-9]+$'
	), 0)) + 1
	WHERE g.id = $1
	RETURNING g.code_base, g.code_seq`

// CreateDiscipline bumps the group's code sequence and inserts the discipline in one transaction,
// so concurrent creations never share a code.
func (repo *catalogRepository) CreateDiscipline(ctx context.Context, d catalog.Discipline) (catalog.Discipline, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return catalog.Discipline{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if d.Code == "" {
		var next struct {
			CodeBase string `db:"code_base"`
			CodeSeq  int    `db:"code_seq"`
		}
		err = tx.GetContext(ctx, &next, issueCode, d.GroupID)
		if err != nil {
			return catalog.Discipline{}, dbErr(err, catalog.ErrGroupNotFound, "issuing code")
		}
		d.Code = catalog.FormatCode(next.CodeBase, next.CodeSeq)
	}

	if _, err = tx.NamedExecContext(ctx, insertDiscipline, d); err != nil {
		return catalog.Discipline{}, dbErr(err, nil, "inserting simulator")
	}
	if err = tx.Commit(); err != nil {
		return catalog.Discipline{}, errors.Wrap(err, "committing simulator")
	}
	d.Group, d.Area, d.Subarea = nil, nil, nil
	return d, nil
}

func (repo *catalogRepository) GetDisciplineByID(ctx context.Context, id string) (catalog.Discipline, error) {
	var d catalog.Discipline
	err := repo.db.GetContext(ctx, &d, "SELECT "+disciplineColumns+" FROM simulator_disciplines WHERE id = $1", id)
	return d, dbErr(err, catalog.ErrDisciplineNotFound, "selecting simulator")
}

func disciplineWhere(filter catalog.DisciplineFilter) *where {
	w := new(where)
	if filter.GroupID != "" {
		w.add("group_id = $?", filter.GroupID)
	}
	if filter.AreaID != "" {
		w.add("area_id = $?", filter.AreaID)
	}
	if filter.SubareaID != "" {
		w.add("subarea_id = $?", filter.SubareaID)
	}
	if filter.Published != nil {
		w.add("is_published = $?", *filter.Published)
	}
	if filter.Query != "" {
		w.add("(discipline ILIKE $? OR learning_objectives ILIKE $? OR game_mechanics ILIKE $? OR kpis ILIKE $? OR code ILIKE $?)",
			"%"+filter.Query+"%")
	}
	return w
}

func (repo *catalogRepository) FilterDisciplines(ctx context.Context, filter catalog.DisciplineFilter, page core.Page) ([]catalog.Discipline, int, error) {
	w := disciplineWhere(filter)

	var total int
	if err := repo.db.GetContext(ctx, &total, "SELECT count(*) FROM simulator_disciplines"+w.String(), w.args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting simulators")
	}

	n := len(w.args)
	q := "SELECT " + disciplineColumns + " FROM simulator_disciplines" + w.String() +
		" ORDER BY code LIMIT $" + itoa(n+1) + " OFFSET $" + itoa(n+2)
	ds := make([]catalog.Discipline, 0)
	if err := repo.db.SelectContext(ctx, &ds, q, append(w.args, page.Limit, page.Offset())...); err != nil {
		return nil, 0, errors.Wrap(err, "selecting simulators")
	}
	return ds, total, nil
}

func (repo *catalogRepository) QueryDisciplines(ctx context.Context, includeUnpublished bool) ([]catalog.Discipline, error) {
	q := "SELECT " + disciplineColumns + " FROM simulator_disciplines"
	if !includeUnpublished {
		q += " WHERE is_published"
	}
	ds := make([]catalog.Discipline, 0)
	if err := repo.db.SelectContext(ctx, &ds, q+" ORDER BY code"); err != nil {
		return nil, errors.Wrap(err, "selecting simulators")
	}
	return ds, nil
}

func (repo *catalogRepository) CountDisciplines(ctx context.Context, ref catalog.DisciplineRef) (int, error) {
	w := disciplineWhere(catalog.DisciplineFilter{GroupID: ref.GroupID, AreaID: ref.AreaID, SubareaID: ref.SubareaID})
	var n int
	if err := repo.db.GetContext(ctx, &n, "SELECT count(*) FROM simulator_disciplines"+w.String(), w.args...); err != nil {
		return 0, errors.Wrap(err, "counting simulators")
	}
	return n, nil
}

func (repo *catalogRepository) UpdateDiscipline(ctx context.Context, d catalog.Discipline) (catalog.Discipline, error) {
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE simulator_disciplines
		SET code = :code, discipline = :discipline, group_id = :group_id, area_id = :area_id, subarea_id = :subarea_id,
		    learning_objectives = :learning_objectives, game_mechanics = :game_mechanics, kpis = :kpis,
		    syllabus = :syllabus, dev_objectives = :dev_objectives, attachment_type = :attachment_type,
		    attachment_url = :attachment_url, attachment_file_path = :attachment_file_path,
		    attachment_embed_html = :attachment_embed_html, is_published = :is_published, updated_at = :updated_at
		WHERE id = :id`, d)
	if err != nil {
		return catalog.Discipline{}, dbErr(err, nil, "updating simulator")
	}
	if err = checkAffected(res, catalog.ErrDisciplineNotFound); err != nil {
		return catalog.Discipline{}, err
	}
	d.Group, d.Area, d.Subarea = nil, nil, nil
	return d, nil
}

func (repo *catalogRepository) DeleteDiscipline(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM simulator_disciplines WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting simulator")
	}
	return checkAffected(res, catalog.ErrDisciplineNotFound)
}
