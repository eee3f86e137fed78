package session

import (
	"fmt"
	"regexp"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/campuserp/erp/core"
)

var (
	sessionIDTag   = "sessionid"
	sessionIDText  = "session id must look like YYYY-YY (ex: 2024-25)"
	sessionIDRegex = regexp.MustCompile(`^\d{4}-\d{2}$`)

	dateRequiredTag  = "daterequired"
	dateRequiredText = "this field is required"

	endAfterStartTag  = "endafterstart"
	endAfterStartText = "end date must be after start date"

	batchUniqueTag  = "batchunique"
	batchUniqueText = "batch names must be unique"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(sessionIDTag, sessionIDValidation)
	core.RegisterCustomTranslation(validate, translator, sessionIDTag, sessionIDText)

	validate.RegisterStructValidation(sessionStructValidation, NewSession{})
	core.RegisterCustomTranslation(validate, translator, dateRequiredTag, dateRequiredText)
	core.RegisterCustomTranslation(validate, translator, endAfterStartTag, endAfterStartText)
	core.RegisterCustomTranslation(validate, translator, batchUniqueTag, batchUniqueText)
}

func sessionIDValidation(fl validator.FieldLevel) bool {
	return sessionIDRegex.MatchString(fl.Field().String())
}

func sessionStructValidation(sl validator.StructLevel) {
	ns, ok := sl.Current().Interface().(NewSession)
	if !ok {
		return
	}

	if ns.StartDate.IsZero() {
		sl.ReportError(ns.StartDate, "start_date", "StartDate", dateRequiredTag, "")
	}
	if ns.EndDate.IsZero() {
		sl.ReportError(ns.EndDate, "end_date", "EndDate", dateRequiredTag, "")
	}
	if !(ns.StartDate.IsZero() || ns.EndDate.IsZero()) && !ns.EndDate.After(ns.StartDate) {
		sl.ReportError(ns.EndDate, "end_date", "EndDate", endAfterStartTag, "")
	}

	seen := make(map[string]bool, len(ns.Batches))
	for i, b := range ns.Batches {
		if seen[b.Name] {
			sl.ReportError(b.Name, fmt.Sprintf("batches[%d].name", i), "Name", batchUniqueTag, "")
		}
		seen[b.Name] = true
	}
}
