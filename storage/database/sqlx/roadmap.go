package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/simcatalog/core"
	"github.com/trezcool/simcatalog/core/roadmap"
)

const roadmapColumns = "id, group_id, status, reach, impact, confidence, effort, rice_score, created_at, updated_at"

type roadmapRepository struct {
	db core.DB
}

var _ roadmap.Repository = (*roadmapRepository)(nil)

func NewRoadmapRepository(db core.DB) roadmap.Repository {
	return &roadmapRepository{db: db}
}

func (repo *roadmapRepository) CreateRoadmap(ctx context.Context, r roadmap.Roadmap) (roadmap.Roadmap, error) {
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO roadmaps (`+roadmapColumns+`)
		VALUES (:id, :group_id, :status, :reach, :impact, :confidence, :effort, :rice_score, :created_at, :updated_at)`, r)
	if err != nil {
		return roadmap.Roadmap{}, dbErr(err, nil, "inserting roadmap")
	}
	r.Group = nil
	return r, nil
}

func (repo *roadmapRepository) GetRoadmapByID(ctx context.Context, id string) (roadmap.Roadmap, error) {
	var r roadmap.Roadmap
	err := repo.db.GetContext(ctx, &r, "SELECT "+roadmapColumns+" FROM roadmaps WHERE id = $1", id)
	return r, dbErr(err, roadmap.ErrNotFound, "selecting roadmap")
}

func (repo *roadmapRepository) GetRoadmapByGroupID(ctx context.Context, groupID string) (roadmap.Roadmap, error) {
	var r roadmap.Roadmap
	err := repo.db.GetContext(ctx, &r, "SELECT "+roadmapColumns+" FROM roadmaps WHERE group_id = $1", groupID)
	return r, dbErr(err, roadmap.ErrNotFound, "selecting roadmap")
}

func (repo *roadmapRepository) QueryRoadmaps(ctx context.Context) ([]roadmap.Roadmap, error) {
	rs := make([]roadmap.Roadmap, 0)
	q := "SELECT " + roadmapColumns + " FROM roadmaps ORDER BY rice_score DESC, created_at ASC"
	if err := repo.db.SelectContext(ctx, &rs, q); err != nil {
		return nil, errors.Wrap(err, "selecting roadmaps")
	}
	return rs, nil
}

func (repo *roadmapRepository) UpdateRoadmap(ctx context.Context, r roadmap.Roadmap) (roadmap.Roadmap, error) {
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE roadmaps
		SET status = :status, reach = :reach, impact = :impact, confidence = :confidence, effort = :effort,
		    rice_score = :rice_score, updated_at = :updated_at
		WHERE id = :id`, r)
	if err != nil {
		return roadmap.Roadmap{}, errors.Wrap(err, "updating roadmap")
	}
	if err = checkAffected(res, roadmap.ErrNotFound); err != nil {
		return roadmap.Roadmap{}, err
	}
	r.Group = nil
	return r, nil
}
