package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"collection-backend/internal/apperr"
	"collection-backend/internal/auth"
	"collection-backend/pkg/utils"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Report fields by their JSON name
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

var validationMessages = map[string]func(field, param string) string{
	"required":  func(field, _ string) string { return fmt.Sprintf("%s is required", field) },
	"email":     func(field, _ string) string { return fmt.Sprintf("%s must be a valid email", field) },
	"min":       func(field, param string) string { return fmt.Sprintf("%s must be at least %s characters", field, param) },
	"max":       func(field, param string) string { return fmt.Sprintf("%s must be at most %s characters", field, param) },
	"oneof":     func(field, param string) string { return fmt.Sprintf("%s must be one of [%s]", field, param) },
	"latitude":  func(field, _ string) string { return fmt.Sprintf("%s must be a valid latitude", field) },
	"longitude": func(field, _ string) string { return fmt.Sprintf("%s must be a valid longitude", field) },
}

// validateStruct returns the first failed rule as a validation error.
func validateStruct(payload any) error {
	err := getValidator().Struct(payload)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return apperr.Validation(apperr.CodeInvalidInput, "", "invalid request body")
	}

	fe := fieldErrors[0]
	msg := fmt.Sprintf("%s is invalid", fe.Field())
	if format, ok := validationMessages[fe.Tag()]; ok {
		msg = format(fe.Field(), fe.Param())
	}
	return apperr.Validation(apperr.CodeInvalidInput, fe.Field(), msg)
}

// decode reads a JSON body into dst. Validation is left to the caller so
// defaults can be applied first.
func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Validation(apperr.CodeInvalidInput, "", "Invalid request body")
	}
	return nil
}

func decodeAndValidate(r *http.Request, dst any) error {
	if err := decode(r, dst); err != nil {
		return err
	}
	return validateStruct(dst)
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation(apperr.CodeInvalidInput, name, "Invalid "+name)
	}
	return id, nil
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperr.Validation(apperr.CodeInvalidInput, name, name+" must be a non-negative integer")
	}
	return n, nil
}

func queryInt64(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, apperr.Validation(apperr.CodeInvalidInput, name, name+" must be a non-negative integer")
	}
	return n, nil
}

// identity returns the caller placed in the context by the auth middleware.
// A missing identity writes 401 and reports false.
func identity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		utils.ErrorJSON(w, http.StatusUnauthorized, "missing_token", "Authorization required")
		return auth.Identity{}, false
	}
	return id, true
}
