package validate

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type CustomValidator struct {
	validator *validator.Validate
}

func NewCustomValidator() *CustomValidator {
	v := validator.New()
	_ = v.RegisterValidation("cedula", func(fl validator.FieldLevel) bool {
		return ValidCedula(fl.Field().String())
	})
	return &CustomValidator{validator: v}
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

var cedulaCoef = [9]int{2, 1, 2, 1, 2, 1, 2, 1, 2}

// ValidCedula checks a 10-digit Ecuadorian national ID: a province prefix in
// 01..24, a third digit below 6 and a weighted mod-10 check digit.
func ValidCedula(cedula string) bool {
	if len(cedula) != 10 {
		return false
	}
	for _, r := range cedula {
		if r < '0' || r > '9' {
			return false
		}
	}

	province := int(cedula[0]-'0')*10 + int(cedula[1]-'0')
	if province < 1 || province > 24 {
		return false
	}
	if cedula[2]-'0' >= 6 {
		return false
	}

	total := 0
	for i := 0; i < 9; i++ {
		v := int(cedula[i]-'0') * cedulaCoef[i]
		if v >= 10 {
			v -= 9
		}
		total += v
	}

	decade := (total + 9) / 10 * 10
	return int(cedula[9]-'0') == (decade-total)%10
}
