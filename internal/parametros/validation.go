package parametros

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// schema describes the attributes a kind accepts.
type schema struct {
	required []string
	names    map[string]struct{}
	patterns []*regexp.Regexp
}

var bracketPattern = regexp.MustCompile(`^bracket_[1-9][0-9]*_(limit|rate|deduction)$`)

var schemas = map[Kind]schema{
	KindIRRF: {
		required: []string{"rate"},
		names:    nameSet("rate", "deduction", "dependent_deduction", "exemption_limit", "simplified_discount"),
		patterns: []*regexp.Regexp{bracketPattern},
	},
	KindFGTS: {
		required: []string{"rate"},
		names:    nameSet("rate", "penalty_rate", "apprentice_rate", "domestic_rate"),
	},
}

func nameSet(names ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(names))
	for _, n := range names {
		out[n] = struct{}{}
	}
	return out
}

func (s schema) allows(name string) bool {
	if _, ok := s.names[name]; ok {
		return true
	}
	for _, p := range s.patterns {
		if p.MatchString(name) {
			return true
		}
	}
	return false
}

// RequiredFields lists the attributes every record of kind must carry.
func RequiredFields(kind Kind) []string {
	return append([]string(nil), schemas[kind].required...)
}

// validateFields checks attribute names and values against the kind schema.
func validateFields(kind Kind, fields Fields, verr *ValidationError) {
	s, ok := schemas[kind]
	if !ok {
		verr.Add("kind", fmt.Sprintf("unsupported kind %q", kind))
		return
	}
	for _, field := range fields {
		key := "fields." + field.Name
		switch {
		case !s.allows(field.Name):
			verr.Add(key, fmt.Sprintf("unknown attribute for %s", kind))
		case math.IsNaN(field.Value) || math.IsInf(field.Value, 0):
			verr.Add(key, "must be a finite number")
		case strings.HasSuffix(field.Name, "rate") && (field.Value < 0 || field.Value > 1):
			verr.Add(key, "rate must be between 0 and 1")
		case field.Value < 0:
			verr.Add(key, "must not be negative")
		}
	}
	for _, name := range s.required {
		if _, present := fields.Get(name); !present {
			verr.Add("fields."+name, "is required")
		}
	}
}

func validatePeriod(p *Period, verr *ValidationError) {
	if p == nil {
		return
	}
	if p.Start.IsZero() {
		verr.Add("effective_period.start", "is required")
		return
	}
	if p.End != nil && p.End.Before(p.Start) {
		verr.Add("effective_period.end", "must not be before start")
	}
}

// newValidator builds a validator that reports JSON field names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// structErrors converts validator output into a ValidationError.
func structErrors(v *validator.Validate, payload any, verr *ValidationError) error {
	err := v.Struct(payload)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	for _, fe := range fieldErrs {
		verr.Add(fe.Field(), tagMessage(fe))
	}
	return nil
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s entries", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	default:
		return "failed " + fe.Tag() + " check"
	}
}
