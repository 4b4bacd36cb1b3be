package sqlxrepos

import (
	"strconv"
	"strings"

	"github.com/trezcool/simcatalog/core"
)

func itoa(i int) string { return strconv.Itoa(i) }

// orderBy renders the orderings on allowed columns, or def when none is usable.
func orderBy(orderings []core.DBOrdering, allowed map[string]bool, def string) string {
	parts := make([]string, 0, len(orderings))
	for _, ord := range orderings {
		if allowed[ord.Field] {
			parts = append(parts, ord.String())
		}
	}
	if len(parts) == 0 {
		return def
	}
	return strings.Join(parts, ", ")
}

// where accumulates positional conditions.
type where struct {
	conds []string
	args  []interface{}
}

// add appends cond with its "$?" placeholder replaced by the next position.
func (w *where) add(cond string, arg interface{}) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, strings.ReplaceAll(cond, "$?", "$"+itoa(len(w.args))))
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}
