// Package shared wires the ERP services for the apps.
package shared

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/campuserp/erp/core"
	"github.com/campuserp/erp/core/attendance"
	"github.com/campuserp/erp/core/course"
	"github.com/campuserp/erp/core/fee"
	"github.com/campuserp/erp/core/notice"
	"github.com/campuserp/erp/core/session"
	"github.com/campuserp/erp/core/user"
)

// InitValidators registers the validations & translations of every package.
// core first: it sets up the json tag names & the default translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	course.InitValidators(validate, translator)
	session.InitValidators(validate, translator)
	fee.InitValidators(validate, translator)
	notice.InitValidators(validate, translator)
	attendance.InitValidators(validate, translator)
}
