package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is a singleton validator instance
var validate = validator.New()

// ValidateEdge checks the structural rules of a single edge
func ValidateEdge(edge Edge) error {
	if err := validate.Struct(edge); err != nil {
		return formatValidationError("edge", err)
	}
	return nil
}

// ValidateGroup checks the structural rules of a single group
func ValidateGroup(group Group) error {
	if err := validate.Struct(group); err != nil {
		return formatValidationError("group", err)
	}
	return nil
}

// ValidateNode checks the structural rules of a single node
func ValidateNode(node Node) error {
	if err := validate.Struct(node); err != nil {
		return formatValidationError("node", err)
	}
	return nil
}

func formatValidationError(entity string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %s: %v", ErrInvalidEntity, entity, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Tag() == "nefield" && fe.Param() == "From" {
			return fmt.Errorf("%w: %s", ErrSelfLoop, entity)
		}
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "unique":
			msgs = append(msgs, fmt.Sprintf("%s must not contain duplicates", fe.Field()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s: %s", ErrInvalidEntity, entity, strings.Join(msgs, "; "))
}
