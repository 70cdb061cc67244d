package handlers

import (
	"sync"

	"github.com/SscSPs/library_circulation_app/internal/core/domain"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerValidatorsOnce sync.Once

// registerValidators adds the custom binding tags used by the request DTOs.
func registerValidators() {
	registerValidatorsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("returncondition", func(fl validator.FieldLevel) bool {
			return domain.ReturnCondition(fl.Field().String()).IsValid()
		})
	})
}
