package roadmap

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/simcatalog/core"
	"github.com/trezcool/simcatalog/core/catalog"
)

var (
	// errors
	ErrNotFound      = core.NewNotFoundError("roadmap not found")
	ErrRoadmapExists = errors.New("a roadmap already exists for this group")
)

// Groups is the part of the catalog a roadmap depends on.
type Groups interface {
	GetGroupByID(ctx context.Context, id string) (catalog.Group, error)
	QueryGroups(ctx context.Context) ([]catalog.Group, error)
}

type Service struct {
	repo   Repository
	groups Groups
}

func NewService(repo Repository, groups Groups) *Service {
	return &Service{repo: repo, groups: groups}
}

// Create opens the roadmap of a group; a group has at most one roadmap.
func (svc *Service) Create(ctx context.Context, nr NewRoadmap) (Roadmap, error) {
	g, err := svc.groups.GetGroupByID(ctx, nr.GroupID)
	if err != nil {
		return Roadmap{}, err
	}
	if _, err = svc.repo.GetRoadmapByGroupID(ctx, g.ID); err == nil {
		return Roadmap{}, core.NewFieldError("groupId", ErrRoadmapExists)
	} else if !core.IsNotFound(err) {
		return Roadmap{}, errors.Wrap(err, "finding roadmap by group")
	}

	now := time.Now().UTC()
	r := Roadmap{
		ID:         uuid.NewString(),
		GroupID:    g.ID,
		Status:     nr.Status,
		Reach:      nr.Reach,
		Impact:     nr.Impact,
		Confidence: nr.Confidence,
		Effort:     nr.Effort,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if r.Status == "" {
		r.Status = StatusIdea
	}
	r.computeScore()

	if r, err = svc.repo.CreateRoadmap(ctx, r); err != nil {
		if errors.Cause(err) == ErrRoadmapExists {
			return Roadmap{}, core.NewFieldError("groupId", ErrRoadmapExists)
		}
		return Roadmap{}, err
	}
	r.Group = &catalog.GroupRef{ID: g.ID, Name: g.Name, CodeBase: g.CodeBase}
	return r, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Roadmap, error) {
	r, err := svc.repo.GetRoadmapByID(ctx, id)
	if err != nil {
		return Roadmap{}, err
	}
	rs, err := svc.withGroups(ctx, []Roadmap{r})
	if err != nil {
		return Roadmap{}, err
	}
	return rs[0], nil
}

// Query lists roadmaps by descending RICE score, with their group.
func (svc *Service) Query(ctx context.Context) ([]Roadmap, error) {
	rs, err := svc.repo.QueryRoadmaps(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying roadmaps")
	}
	return svc.withGroups(ctx, rs)
}

// Update merges the provided metrics and recomputes the RICE score.
func (svc *Service) Update(ctx context.Context, id string, ur UpdateRoadmap) (Roadmap, error) {
	r, err := svc.repo.GetRoadmapByID(ctx, id)
	if err != nil {
		return Roadmap{}, err
	}
	ur.apply(&r)
	r.computeScore()
	return svc.save(ctx, r)
}

// UpdateStatus moves the roadmap through the status machine.
func (svc *Service) UpdateStatus(ctx context.Context, id string, to Status) (Roadmap, error) {
	r, err := svc.repo.GetRoadmapByID(ctx, id)
	if err != nil {
		return Roadmap{}, err
	}
	if r.Status, err = Transition(r.Status, to); err != nil {
		return Roadmap{}, core.NewFieldError("status", err)
	}
	return svc.save(ctx, r)
}

func (svc *Service) save(ctx context.Context, r Roadmap) (Roadmap, error) {
	r.UpdatedAt = time.Now().UTC()
	r, err := svc.repo.UpdateRoadmap(ctx, r)
	if err != nil {
		return Roadmap{}, err
	}
	rs, err := svc.withGroups(ctx, []Roadmap{r})
	if err != nil {
		return Roadmap{}, err
	}
	return rs[0], nil
}

func (svc *Service) withGroups(ctx context.Context, rs []Roadmap) ([]Roadmap, error) {
	if len(rs) == 0 {
		return []Roadmap{}, nil
	}
	groups, err := svc.groups.QueryGroups(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying groups")
	}
	refs := make(map[string]*catalog.GroupRef, len(groups))
	for _, g := range groups {
		refs[g.ID] = &catalog.GroupRef{ID: g.ID, Name: g.Name, CodeBase: g.CodeBase}
	}
	for i := range rs {
		rs[i].Group = refs[rs[i].GroupID]
	}
	return rs, nil
}
