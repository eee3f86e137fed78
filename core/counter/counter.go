// Package counter generates the app's human-readable sequence numbers (receipt numbers, enrollment numbers).
package counter

import (
	"context"
	"fmt"
	"regexp"

	"github.com/campuserp/erp/core"
)

// Well known counters
const (
	Receipt    = "receipt"
	Enrollment = "enrollment"
)

var (
	ErrNotFound = core.NewNotFoundError("counter")

	nameRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
)

type Counter struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

type (
	Repository interface {
		// Next atomically increments the counter and returns the new value; a missing counter starts at 0.
		Next(ctx context.Context, name string) (int64, error)
		// Ensure creates the counter with start as value unless it exists. created reports whether it did.
		Ensure(ctx context.Context, name string, start int64) (c Counter, created bool, err error)
		GetCounter(ctx context.Context, name string) (Counter, error)
		QueryCounters(ctx context.Context) ([]Counter, error)
	}

	Service interface {
		Next(ctx context.Context, name string) (int64, error)
		// NextCode formats the next value of the counter as prefix + value padded to width (ex: RCPT-000042).
		NextCode(ctx context.Context, name, prefix string, width int) (string, error)
		Ensure(ctx context.Context, name string, start int64) (Counter, bool, error)
		Get(ctx context.Context, name string) (Counter, error)
		Query(ctx context.Context) ([]Counter, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func checkName(name string) error {
	if !nameRegex.MatchString(name) {
		return core.NewValidationError(nil, core.FieldError{Field: "name", Error: fmt.Sprintf("invalid counter name %q", name)})
	}
	return nil
}

func (svc *service) Next(ctx context.Context, name string) (int64, error) {
	if err := checkName(name); err != nil {
		return 0, err
	}
	return svc.repo.Next(ctx, name)
}

func (svc *service) NextCode(ctx context.Context, name, prefix string, width int) (string, error) {
	val, err := svc.Next(ctx, name)
	if err != nil {
		return "", err
	}
	return FormatCode(prefix, val, width), nil
}

func (svc *service) Ensure(ctx context.Context, name string, start int64) (Counter, bool, error) {
	if err := checkName(name); err != nil {
		return Counter{}, false, err
	}
	if start < 0 {
		return Counter{}, false, core.NewValidationError(nil, core.FieldError{Field: "value", Error: "must be 0 or greater"})
	}
	return svc.repo.Ensure(ctx, name, start)
}

func (svc *service) Get(ctx context.Context, name string) (Counter, error) {
	return svc.repo.GetCounter(ctx, name)
}

func (svc *service) Query(ctx context.Context) ([]Counter, error) {
	return svc.repo.QueryCounters(ctx)
}

// FormatCode zero-pads val to width digits after prefix. Wider values are never truncated.
func FormatCode(prefix string, val int64, width int) string {
	return fmt.Sprintf("%s%0*d", prefix, width, val)
}
