package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

func FormatValidationError(err error) string {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var messages []string
		for _, fieldError := range validationErrors {
			message := getFieldErrorMessage(fieldError)
			messages = append(messages, message)
		}
		return strings.Join(messages, "; ")
	}
	return err.Error()
}

func getFieldErrorMessage(fe validator.FieldError) string {
	field := getFieldName(fe.Field())

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s è obbligatorio", field)
	case "uuid":
		return fmt.Sprintf("%s deve essere un UUID valido", field)
	case "oneof":
		return fmt.Sprintf("%s deve essere uno tra: %s", field, fe.Param())
	case "min":
		if fe.Type().String() == "string" {
			return fmt.Sprintf("%s deve avere almeno %s caratteri", field, fe.Param())
		}
		return fmt.Sprintf("%s deve essere almeno %s", field, fe.Param())
	case "max":
		if fe.Type().String() == "string" {
			return fmt.Sprintf("%s può avere al massimo %s caratteri", field, fe.Param())
		}
		return fmt.Sprintf("%s può essere al massimo %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s non è valido", field)
	}
}

func getFieldName(field string) string {
	fieldNames := map[string]string{
		"UserID":      "Utente",
		"Source":      "Fonte",
		"Action":      "Azione",
		"Amount":      "Quantità",
		"Description": "Descrizione",
		"Title":       "Titolo",
		"Theme":       "Tema",
		"AvatarID":    "Avatar",
		"Frame":       "Cornice",
		"Limit":       "Limite",
		"Window":      "Finestra",
	}

	if name, ok := fieldNames[field]; ok {
		return name
	}
	return field
}
