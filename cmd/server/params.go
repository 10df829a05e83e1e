package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/Simplici0/sims/internal/colormatch"
	"github.com/Simplici0/sims/internal/costing"
	"github.com/Simplici0/sims/internal/httpx"
	"github.com/Simplici0/sims/internal/inventory"
	"github.com/Simplici0/sims/internal/store"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	mustRegister(v, "material", func(fl validator.FieldLevel) bool {
		return slices.Contains(inventory.Materials, inventory.Material(fl.Field().String()))
	})
	mustRegister(v, "business", func(fl validator.FieldLevel) bool {
		return slices.Contains(inventory.Businesses, inventory.Business(fl.Field().String()))
	})
	mustRegister(v, "rgbhex", func(fl validator.FieldLevel) bool {
		_, err := colormatch.ParseHex(fl.Field().String())
		return err == nil
	})
	mustRegister(v, "queue_status", func(fl validator.FieldLevel) bool {
		switch inventory.QueueStatus(fl.Field().String()) {
		case inventory.QueuePending, inventory.QueueInProgress, inventory.QueueCompleted:
			return true
		}
		return false
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

// decodeValid decodes the JSON body into target and validates its struct tags.
func decodeValid(r *http.Request, target any) error {
	if err := httpx.DecodeJSON(r, target); err != nil {
		return err
	}
	return validate.Struct(target)
}

func parseID(r *http.Request, param string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s", httpx.ErrBadRequest, param)
	}
	return id, nil
}

func parseNonNegativeFloat(raw, field string) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number", httpx.ErrBadRequest, field)
	}
	if value < 0 {
		return 0, fmt.Errorf("%w: %s must be greater than or equal to 0", httpx.ErrBadRequest, field)
	}
	return value, nil
}

func parsePercent(raw, field string) (float64, error) {
	value, err := parseNonNegativeFloat(raw, field)
	if err != nil {
		return 0, err
	}
	if value > 100 {
		return 0, fmt.Errorf("%w: %s must be between 0 and 100", httpx.ErrBadRequest, field)
	}
	return value, nil
}

func queryFlag(r *http.Request, name string) bool {
	switch strings.ToLower(r.URL.Query().Get(name)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// nullable distinguishes an absent JSON field from an explicit null.
type nullable[T any] struct {
	Set   bool
	Null  bool
	Value T
}

func (n *nullable[T]) UnmarshalJSON(b []byte) error {
	n.Set = true
	if string(b) == "null" {
		n.Null = true
		return nil
	}
	return json.Unmarshal(b, &n.Value)
}

// problemFor maps an error to its status code and problem title.
func problemFor(err error) (int, string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "Not Found"
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict, "Conflict"
	case errors.Is(err, store.ErrValidation),
		errors.Is(err, costing.ErrInvalidSettings),
		errors.Is(err, httpx.ErrBadRequest):
		return http.StatusBadRequest, "Validation Failed"
	default:
		return http.StatusInternalServerError, "Internal Error"
	}
}

// respondError writes the problem response for err. Internal errors are logged
// and their detail is withheld from the client.
func (s *server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		httpx.ValidationProblem(w, verrs)
		return
	}

	status, title := problemFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
		httpx.Problem(w, status, title, "")
		return
	}
	httpx.Problem(w, status, title, err.Error())
}
