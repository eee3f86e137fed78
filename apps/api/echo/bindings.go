package echoapi

import (
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/campuserp/erp/core"
)

// queryParams reads typed query params, collecting the invalid ones.
type queryParams struct {
	ctx  echo.Context
	errs []core.FieldError
}

func newQueryParams(ctx echo.Context) *queryParams {
	return &queryParams{ctx: ctx}
}

func (qp *queryParams) String(name string) string {
	return strings.TrimSpace(qp.ctx.QueryParam(name))
}

func (qp *queryParams) Strings(name string) []string {
	var vals []string
	for _, v := range qp.ctx.QueryParams()[name] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				vals = append(vals, part)
			}
		}
	}
	return vals
}

func (qp *queryParams) Int(name string) int {
	val := qp.String(name)
	if val == "" {
		return 0
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		qp.errs = append(qp.errs, core.FieldError{Field: name, Error: "must be a number"})
	}
	return i
}

func (qp *queryParams) Bool(name string) *bool {
	val := qp.String(name)
	if val == "" {
		return nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		qp.errs = append(qp.errs, core.FieldError{Field: name, Error: "must be true or false"})
		return nil
	}
	return &b
}

func (qp *queryParams) Date(name string) core.Date {
	val := qp.String(name)
	if val == "" {
		return core.Date{}
	}
	d, err := core.ParseDate(val)
	if err != nil {
		qp.errs = append(qp.errs, core.FieldError{Field: name, Error: err.Error()})
	}
	return d
}

func (qp *queryParams) Time(name string) time.Time {
	val := qp.String(name)
	if val == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		qp.errs = append(qp.errs, core.FieldError{Field: name, Error: "must be an RFC 3339 timestamp"})
	}
	return t
}

func (qp *queryParams) Ordering() []core.DBOrdering {
	return core.ParseOrdering(qp.String(core.OrderingParam))
}

func (qp *queryParams) Err() error {
	if len(qp.errs) == 0 {
		return nil
	}
	return core.NewValidationError(nil, qp.errs...)
}
