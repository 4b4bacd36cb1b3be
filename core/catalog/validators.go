package catalog

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/simcatalog/core"
)

var (
	attachmentTypeTag  = "attachmenttype"
	attachmentTypeText = "{0} must be one of LINK, EMBED, FILE or NONE"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(attachmentTypeTag, attachmentTypeValidation)
	core.RegisterCustomTranslation(validate, translator, attachmentTypeTag, attachmentTypeText)
}

func attachmentTypeValidation(fl validator.FieldLevel) bool {
	switch v := fl.Field().Interface().(type) {
	case AttachmentType:
		return v.IsValid()
	case string:
		return AttachmentType(v).IsValid()
	}
	return false
}
