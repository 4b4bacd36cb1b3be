package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/simcatalog/core/roadmap"
)

type roadmapRepository struct {
	db *DB
}

var _ roadmap.Repository = (*roadmapRepository)(nil)

func NewRoadmapRepository(db *DB) roadmap.Repository {
	return &roadmapRepository{db: db}
}

func (repo *roadmapRepository) CreateRoadmap(_ context.Context, r roadmap.Roadmap) (roadmap.Roadmap, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, other := range repo.db.roadmaps {
		if other.GroupID == r.GroupID {
			return roadmap.Roadmap{}, roadmap.ErrRoadmapExists
		}
	}
	r.Group = nil
	repo.db.roadmaps[r.ID] = r
	return r, nil
}

func (repo *roadmapRepository) GetRoadmapByID(_ context.Context, id string) (roadmap.Roadmap, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if r, ok := repo.db.roadmaps[id]; ok {
		return r, nil
	}
	return roadmap.Roadmap{}, roadmap.ErrNotFound
}

func (repo *roadmapRepository) GetRoadmapByGroupID(_ context.Context, groupID string) (roadmap.Roadmap, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, r := range repo.db.roadmaps {
		if r.GroupID == groupID {
			return r, nil
		}
	}
	return roadmap.Roadmap{}, roadmap.ErrNotFound
}

func (repo *roadmapRepository) QueryRoadmaps(_ context.Context) ([]roadmap.Roadmap, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	rs := make([]roadmap.Roadmap, 0, len(repo.db.roadmaps))
	for _, r := range repo.db.roadmaps {
		rs = append(rs, r)
	}
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].RiceScore == rs[j].RiceScore {
			return rs[i].CreatedAt.Before(rs[j].CreatedAt)
		}
		return rs[i].RiceScore > rs[j].RiceScore
	})
	return rs, nil
}

func (repo *roadmapRepository) UpdateRoadmap(_ context.Context, r roadmap.Roadmap) (roadmap.Roadmap, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.roadmaps[r.ID]; !ok {
		return roadmap.Roadmap{}, roadmap.ErrNotFound
	}
	r.Group = nil
	repo.db.roadmaps[r.ID] = r
	return r, nil
}
