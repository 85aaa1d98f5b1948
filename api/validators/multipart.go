package validators

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/backoffice-api/pkg/errors"
)

const maxFieldLen = 2048

// ParseMultipartForm reads a multipart body, keeping up to maxMemory bytes
// of file parts in memory. Anything else is a validation failure.
func ParseMultipartForm(r *http.Request, maxMemory int64) (*multipart.Form, error) {
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "multipart/form-data body required")
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "request body too large")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form")
	}
	return r.MultipartForm, nil
}

// FormString returns the trimmed first value of key, or nil when the field
// was not sent at all. An empty value is still a present value.
func FormString(form *multipart.Form, key string) *string {
	if form == nil {
		return nil
	}
	values, ok := form.Value[key]
	if !ok || len(values) == 0 {
		return nil
	}
	value := strings.TrimSpace(values[0])
	if len(value) > maxFieldLen {
		value = value[:maxFieldLen]
	}
	return &value
}

// FormInt parses key as an integer. Missing and blank fields yield nil.
func FormInt(form *multipart.Form, key string) (*int, error) {
	raw := FormString(form, key)
	if raw == nil || *raw == "" {
		return nil, nil
	}
	value, err := strconv.Atoi(*raw)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, key+" must be a whole number").
			WithDetails(map[string]any{"field": key})
	}
	return &value, nil
}

// FormFloat parses key as a decimal number. Missing and blank fields yield nil.
func FormFloat(form *multipart.Form, key string) (*float64, error) {
	raw := FormString(form, key)
	if raw == nil || *raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseFloat(*raw, 64)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, key+" must be a number").
			WithDetails(map[string]any{"field": key})
	}
	return &value, nil
}

// FormFiles returns the file parts uploaded under key.
func FormFiles(form *multipart.Form, key string) []*multipart.FileHeader {
	if form == nil || form.File == nil {
		return nil
	}
	return form.File[strings.TrimSpace(key)]
}
