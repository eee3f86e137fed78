package core

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
)

const OrderingParam = "ordering"

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// ParseOrdering parses `field,-field` into orderings; a leading "-" means descending.
func ParseOrdering(val string) []DBOrdering {
	var orderings []DBOrdering
	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		orderings = append(orderings, DBOrdering{Field: field, Ascending: !descending})
	}
	return orderings
}

// Comparator returns a negative number when a < b, zero when equal and a positive number otherwise.
type Comparator[T any] func(a, b T) int

// SortSlice stable-sorts items by each ordering in turn, looking up comparators by field name.
func SortSlice[T any](items []T, orderings []DBOrdering, comparators map[string]Comparator[T]) error {
	if len(orderings) == 0 {
		return nil
	}
	cmps := make([]Comparator[T], 0, len(orderings))
	for _, ord := range orderings {
		cmp, ok := comparators[ord.Field]
		if !ok {
			return NewValidationError(nil, FieldError{Field: OrderingParam, Error: "unknown column \"" + ord.Field + "\""})
		}
		if !ord.Ascending {
			asc := cmp
			cmp = func(a, b T) int { return asc(b, a) }
		}
		cmps = append(cmps, cmp)
	}
	sort.SliceStable(items, func(i, j int) bool {
		for _, cmp := range cmps {
			if c := cmp(items[i], items[j]); c != 0 {
				return c < 0
			}
		}
		return false
	})
	return nil
}

// CheckOrdering rejects orderings on columns outside of allowed.
func CheckOrdering(orderings []DBOrdering, allowed ...string) error {
	for _, ord := range orderings {
		var ok bool
		for _, a := range allowed {
			if ord.Field == a {
				ok = true
				break
			}
		}
		if !ok {
			return errors.WithStack(NewValidationError(nil, FieldError{Field: OrderingParam, Error: "unknown column \"" + ord.Field + "\""}))
		}
	}
	return nil
}
