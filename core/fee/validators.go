package fee

import (
	"fmt"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/campuserp/erp/core"
)

var (
	feeModeTag  = "feemode"
	feeModeText = "mode must be one of " + strings.Join(Modes, ", ")

	headUniqueTag  = "headunique"
	headUniqueText = "head names must be unique"

	referenceTag  = "feeref"
	referenceText = "a reference (instrument number) is required for this mode"

	// modes paid with an instrument that has a number
	referencedModes = map[string]bool{ModeCheque: true, ModeDD: true}
)

// InitValidators registers the fee validators & their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(feeModeTag, feeModeValidation)
	core.RegisterCustomTranslation(validate, translator, feeModeTag, feeModeText)

	validate.RegisterStructValidation(structureStructValidation, NewStructure{})
	core.RegisterCustomTranslation(validate, translator, headUniqueTag, headUniqueText)

	validate.RegisterStructValidation(receiptStructValidation, NewReceipt{})
	core.RegisterCustomTranslation(validate, translator, referenceTag, referenceText)
}

func feeModeValidation(fl validator.FieldLevel) bool {
	mode := fl.Field().String()
	for _, m := range Modes {
		if m == mode {
			return true
		}
	}
	return false
}

func structureStructValidation(sl validator.StructLevel) {
	ns := sl.Current().Interface().(NewStructure)
	seen := make(map[string]bool, len(ns.Heads))
	for i, h := range ns.Heads {
		name := strings.ToLower(h.Name)
		if name == "" {
			continue // reported by required
		}
		if seen[name] {
			sl.ReportError(h.Name, fmt.Sprintf("heads[%d].name", i), "Name", headUniqueTag, "")
		}
		seen[name] = true
	}
}

func receiptStructValidation(sl validator.StructLevel) {
	nr := sl.Current().Interface().(NewReceipt)
	if referencedModes[nr.Mode] && nr.Reference == "" {
		sl.ReportError(nr.Reference, "reference", "Reference", referenceTag, "")
	}
}
