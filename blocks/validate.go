package blocks

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError describes one schema violation in a Document.
type ValidationError struct {
	Index   int    // block position, -1 for document-level problems
	Type    string // block type
	Field   string // JSON field name, empty for block-level problems
	Message string
}

func (e *ValidationError) Error() string {
	switch {
	case e.Index < 0:
		return fmt.Sprintf("validation error: %s", e.Message)
	case e.Field != "":
		return fmt.Sprintf("validation error: block %d (%s): %s: %s", e.Index, e.Type, e.Field, e.Message)
	default:
		return fmt.Sprintf("validation error: block %d (%s): %s", e.Index, e.Type, e.Message)
	}
}

// ValidationErrors collects every violation found in a Document.
type ValidationErrors []*ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks every block of doc against its type's schema. Opaque blocks of an
// unknown type pass; opaque blocks of a known type fail, since their data did not decode.
// It returns nil or a ValidationErrors value.
func Validate(doc *Document) error {
	if doc == nil {
		return ValidationErrors{{Index: -1, Message: "document is nil"}}
	}
	var errs ValidationErrors
	for i, block := range doc.Blocks {
		errs = append(errs, validateBlock(i, block)...)
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// ValidateBlock checks a single block against its type's schema.
func ValidateBlock(block Block) error {
	if errs := validateBlock(0, block); len(errs) > 0 {
		return errs
	}
	return nil
}

func validateBlock(index int, block Block) ValidationErrors {
	if block == nil {
		return ValidationErrors{{Index: index, Message: "block is nil"}}
	}
	blockType := block.BlockType()

	switch b := block.(type) {
	case *Opaque, Opaque:
		if KnownType(blockType) {
			return ValidationErrors{{Index: index, Type: blockType, Message: "data does not match the block schema"}}
		}
		return nil
	case *Paragraph, Paragraph:
		return nil
	default:
		err := validate.Struct(b)
		if err == nil {
			return nil
		}
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return ValidationErrors{{Index: index, Type: blockType, Message: err.Error()}}
		}
		out := make(ValidationErrors, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			out = append(out, &ValidationError{
				Index:   index,
				Type:    blockType,
				Field:   fieldPath(fe),
				Message: describe(fe),
			})
		}
		return out
	}
}

// fieldPath strips the struct name prefix: "Header.level" becomes "level".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be >= %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "url":
		return "must be an absolute URL"
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}
