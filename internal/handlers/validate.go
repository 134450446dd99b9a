// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"bcm/internal/models"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// fieldLabels names the form fields in validation messages.
var fieldLabels = map[string]string{
	"TermID":      "Term ID",
	"Taxonomy":    "Taxonomy",
	"Name":        "Name",
	"Slug":        "Slug",
	"Description": "Description",
	"Parent":      "Parent",
}

// validateForm checks a term form and returns the first problem as a
// message for the user, or "" when the form is valid.
func validateForm(form models.TermForm) string {
	err := validate.Struct(form)
	if err == nil {
		return ""
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return "Invalid term data."
	}
	return fieldMessage(fieldErrs[0])
}

func fieldMessage(e validator.FieldError) string {
	label, ok := fieldLabels[e.Field()]
	if !ok {
		label = strings.ToLower(e.Field())
	}
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required.", label)
	case "max":
		return fmt.Sprintf("%s is too long (max %s characters).", label, e.Param())
	default:
		return fmt.Sprintf("%s is invalid.", label)
	}
}
