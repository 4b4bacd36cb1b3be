package roadmap

import (
	"context"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/simcatalog/core"
	"github.com/trezcool/simcatalog/core/catalog"
)

type Roadmap struct {
	ID         string    `json:"id" db:"id"`
	GroupID    string    `json:"groupId" db:"group_id"`
	Status     Status    `json:"status" db:"status"`
	Reach      float64   `json:"reach" db:"reach"`
	Impact     float64   `json:"impact" db:"impact"`
	Confidence float64   `json:"confidence" db:"confidence"`
	Effort     float64   `json:"effort" db:"effort"`
	RiceScore  float64   `json:"riceScore" db:"rice_score"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" db:"updated_at"`

	Group *catalog.GroupRef `json:"group,omitempty" db:"-"`
}

func (r *Roadmap) computeScore() {
	r.RiceScore = RiceScore(r.Reach, r.Impact, r.Confidence, r.Effort)
}

type NewRoadmap struct {
	GroupID    string  `json:"groupId" validate:"required"`
	Status     Status  `json:"status" validate:"omitempty,roadmapstatus"`
	Reach      float64 `json:"reach" validate:"min=0,max=100"`
	Impact     float64 `json:"impact" validate:"min=0,max=100"`
	Confidence float64 `json:"confidence" validate:"min=0,max=100"`
	Effort     float64 `json:"effort" validate:"min=0,max=100"`
}

func (nr *NewRoadmap) Validate(validate *validator.Validate) error {
	nr.GroupID = core.CleanString(nr.GroupID)
	if nr.Status == "" {
		nr.Status = StatusIdea
	}
	return validate.Struct(nr)
}

// UpdateRoadmap is a partial metrics update.
type UpdateRoadmap struct {
	Reach      *float64 `json:"reach" validate:"omitempty,min=0,max=100"`
	Impact     *float64 `json:"impact" validate:"omitempty,min=0,max=100"`
	Confidence *float64 `json:"confidence" validate:"omitempty,min=0,max=100"`
	Effort     *float64 `json:"effort" validate:"omitempty,min=0,max=100"`
}

func (ur *UpdateRoadmap) Validate(validate *validator.Validate) error {
	return validate.Struct(ur)
}

func (ur UpdateRoadmap) apply(r *Roadmap) {
	if ur.Reach != nil {
		r.Reach = *ur.Reach
	}
	if ur.Impact != nil {
		r.Impact = *ur.Impact
	}
	if ur.Confidence != nil {
		r.Confidence = *ur.Confidence
	}
	if ur.Effort != nil {
		r.Effort = *ur.Effort
	}
}

type UpdateStatus struct {
	Status Status `json:"status" validate:"required,roadmapstatus"`
}

func (us *UpdateStatus) Validate(validate *validator.Validate) error {
	return validate.Struct(us)
}

type Repository interface {
	CreateRoadmap(ctx context.Context, r Roadmap) (Roadmap, error)
	GetRoadmapByID(ctx context.Context, id string) (Roadmap, error)
	GetRoadmapByGroupID(ctx context.Context, groupID string) (Roadmap, error)
	// QueryRoadmaps lists roadmaps by descending RICE score.
	QueryRoadmaps(ctx context.Context) ([]Roadmap, error)
	UpdateRoadmap(ctx context.Context, r Roadmap) (Roadmap, error)
}

var (
	roadmapStatusTag  = "roadmapstatus"
	roadmapStatusText = "{0} must be one of IDEIA, PROTOTIPO, PILOTO or PRODUCAO"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(roadmapStatusTag, func(fl validator.FieldLevel) bool {
		switch v := fl.Field().Interface().(type) {
		case Status:
			return v.IsValid()
		case string:
			return Status(v).IsValid()
		}
		return false
	})
	core.RegisterCustomTranslation(validate, translator, roadmapStatusTag, roadmapStatusText)
}
