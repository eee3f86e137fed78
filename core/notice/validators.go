package notice

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/campuserp/erp/core"
	"github.com/campuserp/erp/core/user"
)

var (
	audienceTag  = "audience"
	audienceText = "audience must be role prefixes (ex: student:, staff:)"

	expiresTag  = "expiresafter"
	expiresText = "expires_at must be after published_at"
)

// InitValidators registers the notice validators & their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(audienceTag, audienceValidation)
	core.RegisterCustomTranslation(validate, translator, audienceTag, audienceText)

	validate.RegisterStructValidation(noticeStructValidation, NewNotice{})
	core.RegisterCustomTranslation(validate, translator, expiresTag, expiresText)
}

// audienceValidation accepts any prefix of a known role that ends on the role group (ex: "staff:").
func audienceValidation(fl validator.FieldLevel) bool {
	aud := fl.Field().String()
	if !strings.Contains(aud, ":") {
		return false
	}
	for _, role := range user.AllRoles {
		if strings.HasPrefix(role, aud) {
			return true
		}
	}
	return false
}

func noticeStructValidation(sl validator.StructLevel) {
	nn := sl.Current().Interface().(NewNotice)
	if nn.PublishedAt.IsZero() || nn.ExpiresAt.IsZero() {
		return
	}
	if !nn.ExpiresAt.After(nn.PublishedAt) {
		sl.ReportError(nn.ExpiresAt, "expires_at", "ExpiresAt", expiresTag, "")
	}
}
