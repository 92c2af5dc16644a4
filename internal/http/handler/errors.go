package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/youwow/affiliate/internal/app/repository"
	"github.com/youwow/affiliate/internal/app/service"
	httpUtil "github.com/youwow/affiliate/internal/http/util"
	"go.uber.org/zap"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// bindJSON parses and validates the request body into dst, writing a 400 on failure.
func bindJSON(c *fiber.Ctx, dst any) (bool, error) {
	if err := c.BodyParser(dst); err != nil {
		return false, httpUtil.Fail(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(dst); err != nil {
		return false, httpUtil.Fail(c, fiber.StatusBadRequest, validationMessage(err))
	}
	return true, nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fe.Field() + " is invalid"
	}
}

// writeError maps service and repository errors onto the HTTP taxonomy.
func writeError(c *fiber.Ctx, logger *zap.Logger, err error, msg string) error {
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrInvalidStatus):
		return httpUtil.Fail(c, fiber.StatusBadRequest, userMessage(err))
	case errors.Is(err, repository.ErrPartnerNotFound):
		return httpUtil.Fail(c, fiber.StatusNotFound, "Partner not found")
	case errors.Is(err, service.ErrPartnerInactive):
		return httpUtil.Fail(c, fiber.StatusForbidden, "Partner is not active")
	case errors.Is(err, repository.ErrPartnerExists):
		return httpUtil.Fail(c, fiber.StatusConflict, "Partner already exists")
	case errors.Is(err, repository.ErrNothingToPayOut):
		return httpUtil.Fail(c, fiber.StatusUnprocessableEntity, "No unpaid conversions in period")
	default:
		logger.Error(msg, zap.Error(err))
		return httpUtil.Fail(c, fiber.StatusInternalServerError, "Internal Server Error")
	}
}

// userMessage strips wrapping prefixes added on the way up, keeping the
// innermost description.
func userMessage(err error) string {
	msg := err.Error()
	if i := strings.LastIndex(msg, ": "); i >= 0 {
		return msg[i+2:]
	}
	return msg
}
