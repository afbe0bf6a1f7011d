package api

import (
	"errors"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"flatfinder/server/config"
)

// RegisterValidators adds the catalog_location and catalog_unit tags to gin's
// validator. Both accept any spelling that normalizes to a catalog entry.
func RegisterValidators(catalog *config.Catalog) error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin binding engine is not a go-playground validator")
	}

	if err := v.RegisterValidation("catalog_location", func(fl validator.FieldLevel) bool {
		_, ok := catalog.Town(fl.Field().String())
		return ok
	}); err != nil {
		return err
	}

	return v.RegisterValidation("catalog_unit", func(fl validator.FieldLevel) bool {
		_, ok := catalog.UnitByLabel(fl.Field().String())
		return ok
	})
}
