package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/simcatalog/core"
	"github.com/trezcool/simcatalog/core/catalog"
	"github.com/trezcool/simcatalog/core/importer"
)

type importRepository struct {
	db core.DB
}

var _ importer.Repository = (*importRepository)(nil)

func NewImportRepository(db core.DB) importer.Repository {
	return &importRepository{db: db}
}

func (repo *importRepository) WithinTx(ctx context.Context, fn func(tx importer.Tx) error) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(importTx{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "committing import")
	}
	return nil
}

// upserted is the RETURNING row of an upsert; xmax is 0 only for freshly inserted rows.
type upserted struct {
	ID       string `db:"id"`
	Inserted bool   `db:"inserted"`
}

type importTx struct {
	tx *sqlx.Tx
}

func (t importTx) upsert(ctx context.Context, msg, q string, args ...interface{}) (string, bool, error) {
	var res upserted
	if err := t.tx.GetContext(ctx, &res, q, args...); err != nil {
		return "", false, dbErr(err, nil, msg)
	}
	return res.ID, res.Inserted, nil
}

// The no-op DO UPDATE makes RETURNING yield existing rows too.

// existing looks a natural key up; ok is false when no row matches.
func (t importTx) existing(ctx context.Context, q string, args ...interface{}) (id string, ok bool, err error) {
	err = t.tx.GetContext(ctx, &id, q, args...)
	switch {
	case err == nil:
		return id, true, nil
	case errors.Cause(err) == sql.ErrNoRows:
		return "", false, nil
	}
	return "", false, errors.Wrap(err, "selecting natural key")
}

// freeKey walks the DerivedKey candidates of key until the count query q, which takes the candidate
// as its last argument, reports it unused.
func (t importTx) freeKey(ctx context.Context, q, key string, args ...interface{}) (string, error) {
	for n := 1; ; n++ {
		candidate := importer.DerivedKey(key, n)
		var count int
		if err := t.tx.GetContext(ctx, &count, q, append(args[:len(args):len(args)], candidate)...); err != nil {
			return "", errors.Wrap(err, "checking derived key")
		}
		if count == 0 {
			return candidate, nil
		}
	}
}

func (t importTx) UpsertGroup(ctx context.Context, g catalog.Group) (string, bool, error) {
	id, ok, err := t.existing(ctx, "SELECT id FROM simulator_groups WHERE name = $1", g.Name)
	if err != nil || ok {
		return id, false, err
	}
	if g.CodeBase, err = t.freeKey(ctx, "SELECT count(*) FROM simulator_groups WHERE code_base = $1", g.CodeBase); err != nil {
		return "", false, err
	}
	return t.upsert(ctx, "upserting group", `
		INSERT INTO simulator_groups (id, name, context, code_base, code_seq, created_at)
		VALUES ($1, $2, $3, $4, 0, $5)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, (xmax = 0) AS inserted`,
		g.ID, g.Name, g.Context, g.CodeBase, g.CreatedAt)
}

func (t importTx) UpsertArea(ctx context.Context, a catalog.Area) (string, bool, error) {
	id, ok, err := t.existing(ctx, "SELECT id FROM areas WHERE group_id = $1 AND name = $2", a.GroupID, a.Name)
	if err != nil || ok {
		return id, false, err
	}
	if a.Slug, err = t.freeKey(ctx, "SELECT count(*) FROM areas WHERE group_id = $1 AND slug = $2", a.Slug, a.GroupID); err != nil {
		return "", false, err
	}
	return t.upsert(ctx, "upserting area", `
		INSERT INTO areas (id, group_id, name, slug, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (group_id, name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, (xmax = 0) AS inserted`,
		a.ID, a.GroupID, a.Name, a.Slug, a.CreatedAt)
}

func (t importTx) UpsertSubarea(ctx context.Context, s catalog.Subarea) (string, bool, error) {
	return t.upsert(ctx, "upserting subarea", `
		INSERT INTO subareas (id, area_id, name, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (area_id, name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, (xmax = 0) AS inserted`,
		s.ID, s.AreaID, s.Name, s.CreatedAt)
}

func (t importTx) UpsertDiscipline(ctx context.Context, d catalog.Discipline, ementa string) (string, bool, error) {
	return t.upsert(ctx, "upserting simulator", `
		INSERT INTO simulator_disciplines (`+disciplineColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (code) DO UPDATE SET
			discipline = EXCLUDED.discipline,
			group_id = EXCLUDED.group_id,
			area_id = EXCLUDED.area_id,
			subarea_id = EXCLUDED.subarea_id,
			syllabus = COALESCE(NULLIF($19, ''), simulator_disciplines.syllabus),
			updated_at = EXCLUDED.updated_at
		RETURNING id, (xmax = 0) AS inserted`,
		d.ID, d.Code, d.Discipline, d.GroupID, d.AreaID, d.SubareaID, d.LearningObjectives, d.GameMechanics, d.KPIs,
		d.Syllabus, d.DevObjectives, d.AttachmentType, d.AttachmentURL, d.AttachmentFilePath, d.AttachmentEmbedHTML,
		d.IsPublished, d.CreatedAt, d.UpdatedAt, ementa)
}
