package sqlxrepos

import (
	"database/sql"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/simcatalog/core/catalog"
	"github.com/trezcool/simcatalog/core/roadmap"
	"github.com/trezcool/simcatalog/core/user"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// constraintErrors maps constraint names of the schema to domain errors.
var constraintErrors = map[string]error{
	"users_email_key":                       user.ErrEmailExists,
	"simulator_groups_name_key":             catalog.ErrGroupNameExists,
	"simulator_groups_code_base_key":        catalog.ErrCodeBaseExists,
	"areas_group_name_key":                  catalog.ErrAreaNameExists,
	"areas_group_slug_key":                  catalog.ErrAreaSlugExists,
	"subareas_area_name_key":                catalog.ErrSubareaNameExists,
	"simulator_disciplines_code_key":        catalog.ErrCodeExists,
	"roadmaps_group_id_key":                 roadmap.ErrRoadmapExists,
	"areas_group_id_fkey":                   catalog.ErrGroupNotFound,
	"subareas_area_id_fkey":                 catalog.ErrAreaNotFound,
	"simulator_disciplines_group_id_fkey":   catalog.ErrGroupNotFound,
	"simulator_disciplines_area_id_fkey":    catalog.ErrAreaNotFound,
	"simulator_disciplines_subarea_id_fkey": catalog.ErrSubareaNotFound,
	"roadmaps_group_id_fkey":                catalog.ErrGroupNotFound,
}

// dbErr maps constraint violations to domain errors and sql.ErrNoRows to notFound.
func dbErr(err error, notFound error, msg string) error {
	if err == nil {
		return nil
	}
	if err == sql.ErrNoRows && notFound != nil {
		return notFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && (pqErr.Code == uniqueViolation || pqErr.Code == foreignKeyViolation) {
		if domainErr, ok := constraintErrors[pqErr.Constraint]; ok {
			return domainErr
		}
	}
	return errors.Wrap(err, msg)
}

// isForeignKeyViolation reports rows still referenced on delete.
func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation
}

func checkAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "reading affected rows")
	}
	if n == 0 {
		return notFound
	}
	return nil
}
