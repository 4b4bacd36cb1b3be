package importer

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/simcatalog/core"
	"github.com/trezcool/simcatalog/core/catalog"
)

// Tx upserts catalog records on their natural keys.
// Each call reports the record's ID and whether it was inserted (false means an existing row was updated).
type Tx interface {
	// UpsertGroup keys on the group name. A new group whose code base is taken gets the next free DerivedKey.
	UpsertGroup(ctx context.Context, g catalog.Group) (string, bool, error)
	// UpsertArea keys on (group, name). A new area whose slug is taken in the group gets the next free DerivedKey.
	UpsertArea(ctx context.Context, a catalog.Area) (string, bool, error)
	// UpsertSubarea keys on (area, name).
	UpsertSubarea(ctx context.Context, s catalog.Subarea) (string, bool, error)
	// UpsertDiscipline keys on the discipline code. Authored texts of an existing discipline are kept;
	// its syllabus is only replaced by a non-empty ementa.
	UpsertDiscipline(ctx context.Context, d catalog.Discipline, ementa string) (string, bool, error)
}

type Repository interface {
	// WithinTx runs fn in a single transaction, rolled back when fn fails.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

type Counts struct {
	Grupos      int `json:"grupos"`
	Areas       int `json:"areas"`
	Subareas    int `json:"subareas"`
	Disciplinas int `json:"disciplinas"`
}

type CommitResult struct {
	Inserted Counts     `json:"inserted"`
	Updated  Counts     `json:"updated"`
	Errors   []RowError `json:"errors"`
}

func (r CommitResult) OK() bool { return len(r.Errors) == 0 }

var nonCodeChars = regexp.MustCompile(`[^A-Z0-9]`)

// GroupCodeBase derives the code base of an imported group: "Engenharia Civil" gives "GRP-ENGENHARIACIVIL".
func GroupCodeBase(name string) string {
	return "GRP-" + nonCodeChars.ReplaceAllString(strings.ToUpper(name), "")
}

// DerivedKey is the n-th candidate for a derived unique key (code base, slug): the key itself, then key-2, key-3...
// Stores walk the candidates when distinct names derive the same key.
func DerivedKey(key string, n int) string {
	if n <= 1 {
		return key
	}
	return key + "-" + strconv.Itoa(n)
}

// Committer writes validated rows tier by tier (groups, areas, subareas, disciplines) in one transaction.
type Committer struct {
	repo Repository
	now  func() time.Time
}

func NewCommitter(repo Repository) *Committer {
	return &Committer{repo: repo, now: time.Now}
}

type tally struct {
	inserted, updated *int
}

func (c tally) add(inserted bool) {
	if inserted {
		*c.inserted++
	} else {
		*c.updated++
	}
}

// Commit upserts rows. Any failure rolls the whole commit back and is reported as a single row 0 error
// with zeroed counts.
func (c *Committer) Commit(ctx context.Context, rows []NormalizedRow) CommitResult {
	var res CommitResult
	err := c.repo.WithinTx(ctx, func(tx Tx) error {
		res = CommitResult{}
		return c.commit(ctx, tx, rows, &res)
	})
	if err != nil {
		return CommitResult{Errors: []RowError{{Row: 0, Message: err.Error()}}}
	}
	res.Errors = []RowError{}
	return res
}

func (c *Committer) commit(ctx context.Context, tx Tx, rows []NormalizedRow, res *CommitResult) error {
	now := c.now().UTC()

	groupIDs := make(map[string]string)
	groups := tally{&res.Inserted.Grupos, &res.Updated.Grupos}
	for _, r := range rows {
		if _, ok := groupIDs[r.Grupo]; ok {
			continue
		}
		id, inserted, err := tx.UpsertGroup(ctx, catalog.Group{
			ID:        uuid.NewString(),
			Name:      r.Grupo,
			Context:   "Grupo importado: " + r.Grupo,
			CodeBase:  GroupCodeBase(r.Grupo),
			CreatedAt: now,
		})
		if err != nil {
			return errors.Wrap(err, "Erro ao inserir grupos")
		}
		groupIDs[r.Grupo] = id
		groups.add(inserted)
	}

	areaIDs := make(map[string]string)
	areas := tally{&res.Inserted.Areas, &res.Updated.Areas}
	for _, r := range rows {
		if _, ok := areaIDs[r.areaKey()]; ok {
			continue
		}
		id, inserted, err := tx.UpsertArea(ctx, catalog.Area{
			ID:        uuid.NewString(),
			GroupID:   groupIDs[r.Grupo],
			Name:      r.Area,
			Slug:      core.Slugify(r.Area),
			CreatedAt: now,
		})
		if err != nil {
			return errors.Wrap(err, "Erro ao inserir áreas")
		}
		areaIDs[r.areaKey()] = id
		areas.add(inserted)
	}

	subareaIDs := make(map[string]string)
	subareas := tally{&res.Inserted.Subareas, &res.Updated.Subareas}
	for _, r := range rows {
		if _, ok := subareaIDs[r.subareaKey()]; ok {
			continue
		}
		id, inserted, err := tx.UpsertSubarea(ctx, catalog.Subarea{
			ID:        uuid.NewString(),
			AreaID:    areaIDs[r.areaKey()],
			Name:      r.Subarea,
			CreatedAt: now,
		})
		if err != nil {
			return errors.Wrap(err, "Erro ao inserir subáreas")
		}
		subareaIDs[r.subareaKey()] = id
		subareas.add(inserted)
	}

	disciplines := tally{&res.Inserted.Disciplinas, &res.Updated.Disciplinas}
	for _, r := range dedupeByCode(rows) {
		_, inserted, err := tx.UpsertDiscipline(ctx, draftDiscipline(r, groupIDs, areaIDs, subareaIDs, now), r.Ementa)
		if err != nil {
			return errors.Wrap(err, "Erro ao inserir disciplinas")
		}
		disciplines.add(inserted)
	}
	return nil
}

// dedupeByCode keeps the last row of each discipline code, in order of first appearance.
func dedupeByCode(rows []NormalizedRow) []NormalizedRow {
	idx := make(map[string]int, len(rows))
	out := make([]NormalizedRow, 0, len(rows))
	for _, r := range rows {
		if i, ok := idx[r.CodigoDisciplina]; ok {
			out[i] = r
			continue
		}
		idx[r.CodigoDisciplina] = len(out)
		out = append(out, r)
	}
	return out
}

// draftDiscipline builds an unpublished discipline with placeholder pedagogical texts.
func draftDiscipline(r NormalizedRow, groupIDs, areaIDs, subareaIDs map[string]string, now time.Time) catalog.Discipline {
	syllabus := r.Ementa
	if syllabus == "" {
		syllabus = "Ementa para " + r.Disciplina
	}
	d := catalog.Discipline{
		ID:                 uuid.NewString(),
		Code:               r.CodigoDisciplina,
		Discipline:         r.Disciplina,
		GroupID:            groupIDs[r.Grupo],
		AreaID:             areaIDs[r.areaKey()],
		SubareaID:          subareaIDs[r.subareaKey()],
		LearningObjectives: "Objetivos de aprendizagem para " + r.Disciplina,
		GameMechanics:      "Mecânicas de jogo para " + r.Disciplina,
		KPIs:               "KPIs para " + r.Disciplina,
		AttachmentType:     catalog.AttachmentNone,
		IsPublished:        false,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	d.Syllabus.SetValid(syllabus)
	d.DevObjectives.SetValid("Objetivos de desenvolvimento para " + r.Disciplina)
	return d
}
