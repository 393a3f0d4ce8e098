package httpx

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// DecodeAndValidate decodes the body into target and runs struct tag
// validation. On failure a problem response has already been written.
func DecodeAndValidate(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := DecodeJSON(r, target); err != nil {
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	if err := validate.Struct(target); err != nil {
		fields := make(map[string]string)
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fieldErr := range verrs {
				fields[fieldErr.Field()] = fieldErr.Tag()
			}
		}
		writeProblem(w, ProblemDetail{Title: "Validation Failed", Status: http.StatusBadRequest, Detail: err.Error(), Fields: fields})
		return false
	}
	return true
}
