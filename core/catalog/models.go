package catalog

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/simcatalog/core"
)

// AttachmentType is how a simulator is delivered to learners.
type AttachmentType string

const (
	AttachmentLink  AttachmentType = "LINK"
	AttachmentEmbed AttachmentType = "EMBED"
	AttachmentFile  AttachmentType = "FILE"
	AttachmentNone  AttachmentType = "NONE"
)

func (t AttachmentType) IsValid() bool {
	switch t {
	case AttachmentLink, AttachmentEmbed, AttachmentFile, AttachmentNone:
		return true
	}
	return false
}

// FormatCode builds a simulator code: FormatCode("MED", 7) == "SIM-MED-007".
func FormatCode(codeBase string, seq int) string {
	return fmt.Sprintf("SIM-%s-%03d", codeBase, seq)
}

// ParseCodeSeq is the inverse of FormatCode for the given code base.
// Codes of another base, or with a non numeric suffix, report false.
func ParseCodeSeq(codeBase, code string) (int, bool) {
	rest := strings.TrimPrefix(code, "SIM-"+codeBase+"-")
	if rest == code || rest == "" {
		return 0, false
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	seq, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return seq, true
}

type (
	Group struct {
		ID        string    `json:"id" db:"id"`
		Name      string    `json:"name" db:"name"`
		Context   string    `json:"context" db:"context"`
		CodeBase  string    `json:"codeBase" db:"code_base"`
		CodeSeq   int       `json:"-" db:"code_seq"`
		CreatedAt time.Time `json:"createdAt" db:"created_at"`
	}

	Area struct {
		ID        string    `json:"id" db:"id"`
		GroupID   string    `json:"groupId" db:"group_id"`
		Name      string    `json:"name" db:"name"`
		Slug      string    `json:"slug" db:"slug"`
		CreatedAt time.Time `json:"createdAt" db:"created_at"`
	}

	Subarea struct {
		ID        string    `json:"id" db:"id"`
		AreaID    string    `json:"areaId" db:"area_id"`
		Name      string    `json:"name" db:"name"`
		CreatedAt time.Time `json:"createdAt" db:"created_at"`
	}

	Discipline struct {
		ID                  string         `json:"id" db:"id"`
		Code                string         `json:"code" db:"code"`
		Discipline          string         `json:"discipline" db:"discipline"`
		GroupID             string         `json:"groupId" db:"group_id"`
		AreaID              string         `json:"areaId" db:"area_id"`
		SubareaID           string         `json:"subareaId" db:"subarea_id"`
		LearningObjectives  string         `json:"learningObjectives" db:"learning_objectives"`
		GameMechanics       string         `json:"gameMechanics" db:"game_mechanics"`
		KPIs                string         `json:"kpis" db:"kpis"`
		Syllabus            null.String    `json:"syllabus" db:"syllabus"`
		DevObjectives       null.String    `json:"devObjectives" db:"dev_objectives"`
		AttachmentType      AttachmentType `json:"attachmentType" db:"attachment_type"`
		AttachmentURL       null.String    `json:"attachmentUrl" db:"attachment_url"`
		AttachmentFilePath  null.String    `json:"attachmentFilePath" db:"attachment_file_path"`
		AttachmentEmbedHTML null.String    `json:"attachmentEmbedHtml" db:"attachment_embed_html"`
		IsPublished         bool           `json:"isPublished" db:"is_published"`
		CreatedAt           time.Time      `json:"createdAt" db:"created_at"`
		UpdatedAt           time.Time      `json:"updatedAt" db:"updated_at"`

		Group   *GroupRef   `json:"group,omitempty" db:"-"`
		Area    *AreaRef    `json:"area,omitempty" db:"-"`
		Subarea *SubareaRef `json:"subarea,omitempty" db:"-"`
	}

	GroupRef struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		CodeBase string `json:"codeBase"`
	}

	AreaRef struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Slug string `json:"slug"`
	}

	SubareaRef struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
)

// Views

type (
	GroupDetail struct {
		Group
		DisciplinesCount int      `json:"disciplinesCount"`
		AreasServed      []string `json:"areasServed"`
	}

	SubareaDetail struct {
		Subarea
		DisciplinesCount int `json:"disciplinesCount"`
	}

	AreaDetail struct {
		Area
		Group            *GroupRef       `json:"group,omitempty"`
		DisciplinesCount int             `json:"disciplinesCount"`
		Subareas         []SubareaDetail `json:"subareas"`
	}
)

// Inputs

type NewGroup struct {
	Name     string `json:"name" validate:"required,max=100"`
	Context  string `json:"context" validate:"required,max=500"`
	CodeBase string `json:"codeBase" validate:"required,max=20"`
}

func (ng *NewGroup) Validate(validate *validator.Validate) error {
	ng.Name = core.CleanString(ng.Name)
	ng.Context = core.CleanString(ng.Context)
	ng.CodeBase = strings.ToUpper(core.CleanString(ng.CodeBase))
	return validate.Struct(ng)
}

type NewArea struct {
	GroupID string `json:"groupId" validate:"required"`
	Name    string `json:"name" validate:"required,max=100"`
	Slug    string `json:"slug" validate:"required,max=100"`
}

func (na *NewArea) Validate(validate *validator.Validate) error {
	na.Name = core.CleanString(na.Name)
	na.Slug = core.CleanString(na.Slug, true /* lower */)
	if na.Slug == "" {
		na.Slug = core.Slugify(na.Name)
	}
	return validate.Struct(na)
}

type NewSubarea struct {
	AreaID string `json:"areaId" validate:"required"`
	Name   string `json:"name" validate:"required,max=100"`
}

func (ns *NewSubarea) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	return validate.Struct(ns)
}

type NewDiscipline struct {
	GroupID             string         `json:"groupId" validate:"required"`
	Discipline          string         `json:"discipline" validate:"required,max=200"`
	AreaID              string         `json:"areaId" validate:"required"`
	SubareaID           string         `json:"subareaId" validate:"required"`
	LearningObjectives  string         `json:"learningObjectives" validate:"required"`
	GameMechanics       string         `json:"gameMechanics" validate:"required"`
	KPIs                string         `json:"kpis" validate:"required"`
	Syllabus            string         `json:"syllabus"`
	DevObjectives       string         `json:"devObjectives"`
	AttachmentType      AttachmentType `json:"attachmentType" validate:"omitempty,attachmenttype"`
	AttachmentURL       string         `json:"attachmentUrl" validate:"omitempty,url"`
	AttachmentFilePath  string         `json:"attachmentFilePath"`
	AttachmentEmbedHTML string         `json:"attachmentEmbedHtml"`
	IsPublished         bool           `json:"isPublished"`
}

func (nd *NewDiscipline) Validate(validate *validator.Validate) error {
	nd.Discipline = core.CleanString(nd.Discipline)
	nd.LearningObjectives = core.CleanString(nd.LearningObjectives)
	nd.GameMechanics = core.CleanString(nd.GameMechanics)
	nd.KPIs = core.CleanString(nd.KPIs)
	nd.AttachmentURL = core.CleanString(nd.AttachmentURL)
	if nd.AttachmentType == "" {
		nd.AttachmentType = AttachmentNone
	}
	return validate.Struct(nd)
}

// UpdateDiscipline is a partial update: nil fields are left untouched.
type UpdateDiscipline struct {
	GroupID            *string `json:"groupId"`
	Discipline         *string `json:"discipline" validate:"omitempty,max=200"`
	AreaID             *string `json:"areaId"`
	SubareaID          *string `json:"subareaId"`
	LearningObjectives *string `json:"learningObjectives"`
	GameMechanics      *string `json:"gameMechanics"`
	KPIs               *string `json:"kpis"`
	Syllabus           *string `json:"syllabus"`
	DevObjectives      *string `json:"devObjectives"`
	IsPublished        *bool   `json:"isPublished"`
}

func (ud *UpdateDiscipline) Validate(validate *validator.Validate) error {
	// provided fields cannot be blanked
	required := []struct {
		field string
		val   *string
	}{
		{"groupId", ud.GroupID},
		{"discipline", ud.Discipline},
		{"areaId", ud.AreaID},
		{"subareaId", ud.SubareaID},
		{"learningObjectives", ud.LearningObjectives},
		{"gameMechanics", ud.GameMechanics},
		{"kpis", ud.KPIs},
	}
	var fldErrs []core.FieldError
	for _, r := range required {
		if r.val == nil {
			continue
		}
		*r.val = core.CleanString(*r.val)
		if *r.val == "" {
			fldErrs = append(fldErrs, core.FieldError{Field: r.field, Error: "this field is required"})
		}
	}
	if len(fldErrs) > 0 {
		return core.NewValidationError(nil, fldErrs...)
	}
	return validate.Struct(ud)
}

func (ud UpdateDiscipline) apply(d *Discipline) {
	if ud.GroupID != nil {
		d.GroupID = *ud.GroupID
	}
	if ud.Discipline != nil {
		d.Discipline = *ud.Discipline
	}
	if ud.AreaID != nil {
		d.AreaID = *ud.AreaID
	}
	if ud.SubareaID != nil {
		d.SubareaID = *ud.SubareaID
	}
	if ud.LearningObjectives != nil {
		d.LearningObjectives = *ud.LearningObjectives
	}
	if ud.GameMechanics != nil {
		d.GameMechanics = *ud.GameMechanics
	}
	if ud.KPIs != nil {
		d.KPIs = *ud.KPIs
	}
	if ud.Syllabus != nil {
		d.Syllabus = nullableString(*ud.Syllabus)
	}
	if ud.DevObjectives != nil {
		d.DevObjectives = nullableString(*ud.DevObjectives)
	}
	if ud.IsPublished != nil {
		d.IsPublished = *ud.IsPublished
	}
}

type UpdateSyllabus struct {
	Syllabus      *string `json:"syllabus"`
	DevObjectives *string `json:"devObjectives"`
}

type UpdateAttachment struct {
	AttachmentType      AttachmentType `json:"attachmentType" validate:"required,attachmenttype"`
	AttachmentURL       string         `json:"attachmentUrl" validate:"omitempty,url"`
	AttachmentFilePath  string         `json:"attachmentFilePath"`
	AttachmentEmbedHTML string         `json:"attachmentEmbedHtml"`
}

func (ua *UpdateAttachment) Validate(validate *validator.Validate) error {
	ua.AttachmentURL = core.CleanString(ua.AttachmentURL)
	ua.AttachmentFilePath = core.CleanString(ua.AttachmentFilePath)
	ua.AttachmentEmbedHTML = core.CleanString(ua.AttachmentEmbedHTML)
	return validate.Struct(ua)
}

// DisciplineFilter is ANDed; Query does a case-insensitive match on one of
// discipline, learningObjectives, gameMechanics, kpis or code.
type DisciplineFilter struct {
	GroupID   string `query:"groupId"`
	AreaID    string `query:"areaId"`
	SubareaID string `query:"subareaId"`
	Query     string `query:"q"`
	Published *bool  `query:"published"`
}

func (f *DisciplineFilter) Clean() {
	f.GroupID = core.CleanString(f.GroupID)
	f.AreaID = core.CleanString(f.AreaID)
	f.SubareaID = core.CleanString(f.SubareaID)
	f.Query = core.CleanString(f.Query)
}

// Match applies the filter in memory.
func (f DisciplineFilter) Match(d Discipline) bool {
	if f.GroupID != "" && d.GroupID != f.GroupID {
		return false
	}
	if f.AreaID != "" && d.AreaID != f.AreaID {
		return false
	}
	if f.SubareaID != "" && d.SubareaID != f.SubareaID {
		return false
	}
	if f.Published != nil && d.IsPublished != *f.Published {
		return false
	}
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		for _, s := range []string{d.Discipline, d.LearningObjectives, d.GameMechanics, d.KPIs, d.Code} {
			if strings.Contains(strings.ToLower(s), q) {
				return true
			}
		}
		return false
	}
	return true
}

// DisciplineRef selects disciplines referencing a group, area or subarea (delete guards).
type DisciplineRef struct {
	GroupID   string
	AreaID    string
	SubareaID string
}

func (r DisciplineRef) Match(d Discipline) bool {
	return (r.GroupID == "" || d.GroupID == r.GroupID) &&
		(r.AreaID == "" || d.AreaID == r.AreaID) &&
		(r.SubareaID == "" || d.SubareaID == r.SubareaID)
}

func nullableString(s string) null.String {
	s = strings.TrimSpace(s)
	return null.NewString(s, s != "")
}

type Repository interface {
	CreateGroup(ctx context.Context, g Group) (Group, error)
	GetGroupByID(ctx context.Context, id string) (Group, error)
	QueryGroups(ctx context.Context) ([]Group, error) // ordered by name
	UpdateGroup(ctx context.Context, g Group) (Group, error)
	DeleteGroup(ctx context.Context, id string) error

	CreateArea(ctx context.Context, a Area) (Area, error)
	GetAreaByID(ctx context.Context, id string) (Area, error)
	QueryAreas(ctx context.Context, groupID string) ([]Area, error) // ordered by name; all groups when groupID == ""
	UpdateArea(ctx context.Context, a Area) (Area, error)
	DeleteArea(ctx context.Context, id string) error

	CreateSubarea(ctx context.Context, s Subarea) (Subarea, error)
	GetSubareaByID(ctx context.Context, id string) (Subarea, error)
	QuerySubareas(ctx context.Context, areaID string) ([]Subarea, error) // ordered by name; all areas when areaID == ""
	UpdateSubarea(ctx context.Context, s Subarea) (Subarea, error)
	DeleteSubarea(ctx context.Context, id string) error

	// CreateDiscipline issues the next code of the discipline's group within the same transaction.
	CreateDiscipline(ctx context.Context, d Discipline) (Discipline, error)
	GetDisciplineByID(ctx context.Context, id string) (Discipline, error)
	// FilterDisciplines returns one page of matching disciplines ordered by code, and the total match count.
	FilterDisciplines(ctx context.Context, filter DisciplineFilter, page core.Page) ([]Discipline, int, error)
	QueryDisciplines(ctx context.Context, includeUnpublished bool) ([]Discipline, error) // ordered by code
	CountDisciplines(ctx context.Context, ref DisciplineRef) (int, error)
	UpdateDiscipline(ctx context.Context, d Discipline) (Discipline, error)
	DeleteDiscipline(ctx context.Context, id string) error
}
