package attendance

import (
	"fmt"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/campuserp/erp/core"
)

var (
	statusTag  = "attstatus"
	statusText = "status must be one of present, absent, late, excused"

	dateRequiredTag = "daterequired"
	dateFutureTag   = "datefuture"
	dateFutureText  = "attendance cannot be marked for a future date"

	studentUniqueTag  = "studentunique"
	studentUniqueText = "a student may only be marked once"

	nowFunc = time.Now // mockable
)

// InitValidators registers the attendance validators & their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(statusTag, statusValidation)
	core.RegisterCustomTranslation(validate, translator, statusTag, statusText)

	validate.RegisterStructValidation(markStructValidation, MarkAttendance{})
	core.RegisterCustomTranslation(validate, translator, dateRequiredTag, "date is required")
	core.RegisterCustomTranslation(validate, translator, dateFutureTag, dateFutureText)
	core.RegisterCustomTranslation(validate, translator, studentUniqueTag, studentUniqueText)
}

func statusValidation(fl validator.FieldLevel) bool {
	status := fl.Field().String()
	for _, s := range Statuses {
		if s == status {
			return true
		}
	}
	return false
}

func markStructValidation(sl validator.StructLevel) {
	ma := sl.Current().Interface().(MarkAttendance)
	switch {
	case ma.Date.IsZero():
		sl.ReportError(ma.Date, "date", "Date", dateRequiredTag, "")
	case ma.Date.After(core.DateOf(nowFunc())):
		sl.ReportError(ma.Date, "date", "Date", dateFutureTag, "")
	}

	seen := make(map[string]bool, len(ma.Entries))
	for i, e := range ma.Entries {
		if e.StudentID == "" {
			continue
		}
		if seen[e.StudentID] {
			sl.ReportError(e.StudentID, fmt.Sprintf("entries[%d].student_id", i), "StudentID", studentUniqueTag, "")
		}
		seen[e.StudentID] = true
	}
}
