// pkg/validator/validator.go
package validator

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"reportes-viales/internal/models"
)

// Init регистрирует кастомные валидации в движке gin binding.
// Вызывается один раз при старте сервера.
func Init() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}

	v.RegisterValidation("report_category", validateReportCategory)
	v.RegisterStructValidation(validateLocation, models.Location{})
}

func validateReportCategory(fl validator.FieldLevel) bool {
	return models.IsValidCategory(fl.Field().String())
}

// validateLocation проверяет GeoJSON-точку: тип "Point" и координаты
// [longitude, latitude] в допустимых диапазонах
func validateLocation(sl validator.StructLevel) {
	location := sl.Current().Interface().(models.Location)

	if location.Type != "Point" {
		sl.ReportError(location.Type, "Type", "type", "geojson_point", "")
		return
	}

	if len(location.Coordinates) != 2 {
		sl.ReportError(location.Coordinates, "Coordinates", "coordinates", "geojson_point", "")
		return
	}

	lng, lat := location.Coordinates[0], location.Coordinates[1]
	if lng < -180 || lng > 180 || lat < -90 || lat > 90 {
		sl.ReportError(location.Coordinates, "Coordinates", "coordinates", "geojson_point", "")
	}
}
