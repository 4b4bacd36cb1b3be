package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/simcatalog/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// queryInt reads an integer query param; missing or malformed values give def.
func queryInt(ctx echo.Context, name string, def int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(ctx.QueryParam(name))); err == nil {
		return n
	}
	return def
}

// queryBool reads a boolean query param; nil when missing or malformed.
func queryBool(ctx echo.Context, name string) *bool {
	if b, err := strconv.ParseBool(strings.TrimSpace(ctx.QueryParam(name))); err == nil {
		return &b
	}
	return nil
}

func bindPage(ctx echo.Context) core.Page {
	p := core.Page{Number: queryInt(ctx, "page", 1), Limit: queryInt(ctx, "limit", core.DefaultPageLimit)}
	p.Clean()
	return p
}
