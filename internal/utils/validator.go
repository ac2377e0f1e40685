package utils

import (
	"log"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var Validate *validator.Validate

var (
	slugRegex     = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
	usernameRegex = regexp.MustCompile(`^[\w.@+-]+$`)
)

func InitValidator() {
	Validate = validator.New()

	if err := Validate.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugRegex.MatchString(fl.Field().String())
	}); err != nil {
		log.Fatalf("error registering slug validation: %v", err)
	}

	if err := Validate.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernameRegex.MatchString(fl.Field().String())
	}); err != nil {
		log.Fatalf("error registering username validation: %v", err)
	}
}
