package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"sync"

	"github.com/almanac/almanacbackend/apperrors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var registerTagNames sync.Once

// useJSONFieldNames makes validation errors report json names instead of Go
// field names.
func useJSONFieldNames() {
	registerTagNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
}

// bindJSON decodes the body into obj. An empty body decodes to the zero
// value and still goes through validation. On failure the error is pushed to
// the context and false is returned.
func bindJSON(c *gin.Context, obj any) bool {
	err := c.ShouldBindJSON(obj)
	if errors.Is(err, io.EOF) {
		err = binding.Validator.ValidateStruct(obj)
	}
	if err != nil {
		_ = c.Error(bindError(err))
		return false
	}
	return true
}

func bindError(err error) *apperrors.AppError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]any, len(verrs))
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msg := fieldMessage(fe)
			fields[fe.Field()] = msg
			msgs = append(msgs, msg)
		}
		return apperrors.Validation(strings.Join(msgs, "; ")).
			WithDetails(map[string]any{"fields": fields})
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return apperrors.Validation(fmt.Sprintf("%s has the wrong type", typeErr.Field))
	}
	return apperrors.Validation("Invalid request body")
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fe.Field() + " is invalid"
	}
}

// paramID parses an ObjectID path parameter.
func paramID(c *gin.Context, name string) (bson.ObjectID, bool) {
	id, err := bson.ObjectIDFromHex(c.Param(name))
	if err != nil {
		_ = c.Error(apperrors.Validation("Invalid " + name))
		return bson.ObjectID{}, false
	}
	return id, true
}
