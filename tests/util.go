package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/trezcool/simcatalog/core"
	"github.com/trezcool/simcatalog/core/catalog"
	"github.com/trezcool/simcatalog/core/roadmap"
	"github.com/trezcool/simcatalog/core/user"
)

// NewValidator returns a validator with every custom rule and its English translations registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")

	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	catalog.InitValidators(validate, translator)
	roadmap.InitValidators(validate, translator)
	return validate, translator
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd string,
	role user.Role,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		Role:      role,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateGroup(t *testing.T, repo catalog.Repository, name, codeBase string) catalog.Group {
	g, err := repo.CreateGroup(context.Background(), catalog.Group{
		ID:        "g-" + codeBase,
		Name:      name,
		Context:   name + " context",
		CodeBase:  codeBase,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateGroup() failed: %v", err)
	}
	return g
}

func CreateArea(t *testing.T, repo catalog.Repository, groupID, name string) catalog.Area {
	a, err := repo.CreateArea(context.Background(), catalog.Area{
		ID:        groupID + "-" + core.Slugify(name),
		GroupID:   groupID,
		Name:      name,
		Slug:      core.Slugify(name),
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateArea() failed: %v", err)
	}
	return a
}

func CreateSubarea(t *testing.T, repo catalog.Repository, areaID, name string) catalog.Subarea {
	s, err := repo.CreateSubarea(context.Background(), catalog.Subarea{
		ID:        areaID + "-" + core.Slugify(name),
		AreaID:    areaID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateSubarea() failed: %v", err)
	}
	return s
}
