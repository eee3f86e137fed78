package course

import (
	"fmt"
	"regexp"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/campuserp/erp/core"
)

var (
	courseCodeTag   = "coursecode"
	courseCodeText  = "only letters, digits, '-' and '.' are allowed"
	courseCodeRegex = regexp.MustCompile(`^[A-Za-z0-9.\-]+$`)

	semUniqueTag  = "semunique"
	semUniqueText = "semester numbers must be unique"

	semRangeTag = "semrange"

	subjectUniqueTag  = "subjunique"
	subjectUniqueText = "subject codes must be unique within a semester"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(courseCodeTag, courseCodeValidation)
	core.RegisterCustomTranslation(validate, translator, courseCodeTag, courseCodeText)

	validate.RegisterStructValidation(courseStructValidation, NewCourse{})
	core.RegisterCustomTranslation(validate, translator, semUniqueTag, semUniqueText)
	core.RegisterCustomTranslation(validate, translator, subjectUniqueTag, subjectUniqueText)
	_ = validate.RegisterTranslation(
		semRangeTag, translator,
		func(t ut.Translator) error {
			return t.Add(semRangeTag, "semester number must be between 1 and {0}", false)
		},
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(semRangeTag, fe.Param())
			return s
		},
	)
}

func courseCodeValidation(fl validator.FieldLevel) bool {
	return courseCodeRegex.MatchString(fl.Field().String())
}

// courseStructValidation checks the semesters of a NewCourse against each other.
func courseStructValidation(sl validator.StructLevel) {
	nc, ok := sl.Current().Interface().(NewCourse)
	if !ok {
		return
	}

	maxSem := nc.DurationYears * 2
	seen := make(map[int]bool, len(nc.Semesters))
	for i, sem := range nc.Semesters {
		fld := fmt.Sprintf("semesters[%d].number", i)
		if seen[sem.Number] {
			sl.ReportError(sem.Number, fld, "Number", semUniqueTag, "")
			continue
		}
		seen[sem.Number] = true
		if maxSem > 0 && sem.Number > maxSem {
			sl.ReportError(sem.Number, fld, "Number", semRangeTag, fmt.Sprint(maxSem))
		}

		codes := make(map[string]bool, len(sem.Subjects))
		for j, sub := range sem.Subjects {
			if codes[sub.Code] {
				sl.ReportError(sub.Code, fmt.Sprintf("semesters[%d].subjects[%d].code", i, j), "Code", subjectUniqueTag, "")
			}
			codes[sub.Code] = true
		}
	}
}
