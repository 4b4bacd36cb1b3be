package inmemdb

import (
	"context"

	"github.com/trezcool/simcatalog/core/catalog"
	"github.com/trezcool/simcatalog/core/importer"
)

type importRepository struct {
	db *DB
}

var _ importer.Repository = (*importRepository)(nil)

func NewImportRepository(db *DB) importer.Repository {
	return &importRepository{db: db}
}

// WithinTx holds the write lock for the whole of fn and restores a snapshot of every table when fn fails.
func (repo *importRepository) WithinTx(_ context.Context, fn func(tx importer.Tx) error) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	saved := repo.db.tables.snapshot()
	if err := fn(importTx{t: repo.db.tables}); err != nil {
		repo.db.tables = saved
		return err
	}
	return nil
}

// importTx writes to the tables directly; the caller holds the lock.
type importTx struct {
	t tables
}

func (tx importTx) codeBaseTaken(codeBase string) bool {
	for _, g := range tx.t.groups {
		if g.CodeBase == codeBase {
			return true
		}
	}
	return false
}

func (tx importTx) slugTaken(groupID, slug string) bool {
	for _, a := range tx.t.areas {
		if a.GroupID == groupID && a.Slug == slug {
			return true
		}
	}
	return false
}

func (tx importTx) UpsertGroup(_ context.Context, g catalog.Group) (string, bool, error) {
	for _, existing := range tx.t.groups {
		if existing.Name == g.Name {
			return existing.ID, false, nil
		}
	}
	base := g.CodeBase
	for n := 2; tx.codeBaseTaken(g.CodeBase); n++ {
		g.CodeBase = importer.DerivedKey(base, n)
	}
	if err := checkGroup(tx.t, g); err != nil {
		return "", false, err
	}
	tx.t.groups[g.ID] = g
	return g.ID, true, nil
}

func (tx importTx) UpsertArea(_ context.Context, a catalog.Area) (string, bool, error) {
	for _, existing := range tx.t.areas {
		if existing.GroupID == a.GroupID && existing.Name == a.Name {
			return existing.ID, false, nil
		}
	}
	slug := a.Slug
	for n := 2; tx.slugTaken(a.GroupID, a.Slug); n++ {
		a.Slug = importer.DerivedKey(slug, n)
	}
	if err := checkArea(tx.t, a); err != nil {
		return "", false, err
	}
	tx.t.areas[a.ID] = a
	return a.ID, true, nil
}

func (tx importTx) UpsertSubarea(_ context.Context, s catalog.Subarea) (string, bool, error) {
	for _, existing := range tx.t.subareas {
		if existing.AreaID == s.AreaID && existing.Name == s.Name {
			return existing.ID, false, nil
		}
	}
	tx.t.subareas[s.ID] = s
	return s.ID, true, nil
}

func (tx importTx) UpsertDiscipline(_ context.Context, d catalog.Discipline, ementa string) (string, bool, error) {
	for id, existing := range tx.t.disciplines {
		if existing.Code != d.Code {
			continue
		}
		existing.Discipline = d.Discipline
		existing.GroupID = d.GroupID
		existing.AreaID = d.AreaID
		existing.SubareaID = d.SubareaID
		if ementa != "" {
			existing.Syllabus.SetValid(ementa)
		}
		existing.UpdatedAt = d.UpdatedAt
		tx.t.disciplines[id] = existing
		return existing.ID, false, nil
	}
	tx.t.disciplines[d.ID] = d
	return d.ID, true, nil
}
