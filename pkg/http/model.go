package http

// DetailResponse is the body shape used by the auth endpoints.
type DetailResponse struct {
	Detail string `json:"detail" example:"Verification e-mail sent."`
	Code   string `json:"code,omitempty" example:"token_not_valid"`
}

// FieldErrors maps a request field to its validation messages.
// Errors that are not tied to a single field use NonFieldErrorsKey.
type FieldErrors map[string][]string

// NonFieldErrorsKey collects errors spanning several fields.
const NonFieldErrorsKey = "non_field_errors"

// Add appends a message for field.
func (fe FieldErrors) Add(field, message string) {
	fe[field] = append(fe[field], message)
}

// Merge copies every message from other into fe.
func (fe FieldErrors) Merge(other FieldErrors) {
	for field, msgs := range other {
		fe[field] = append(fe[field], msgs...)
	}
}

// Empty reports whether no field has a message.
func (fe FieldErrors) Empty() bool {
	return len(fe) == 0
}

func (fe FieldErrors) Error() string {
	for field, msgs := range fe {
		if len(msgs) > 0 {
			return field + ": " + msgs[0]
		}
	}
	return "validation failed"
}

// ValidationError represents a single validator failure before it is folded into FieldErrors.
type ValidationError struct {
	Code    string                 `json:"code,omitempty" example:"ERR_REQUIRED"`
	Field   string                 `json:"field,omitempty" example:"username"`
	Message string                 `json:"message,omitempty" example:"This field is required."`
	Params  map[string]interface{} `json:"params,omitempty"`
}
