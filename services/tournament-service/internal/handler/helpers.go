package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	apperrors "github.com/bracket-esports/bracket/common/errors"
	"github.com/bracket-esports/bracket/common/logger"
	"github.com/bracket-esports/bracket/services/tournament-service/internal/service"
	"github.com/bracket-esports/bracket/services/tournament-service/internal/storage"
)

const maxBodyBytes = 1 << 20

type envelope struct {
	Success    bool        `json:"success"`
	Data       any         `json:"data,omitempty"`
	Error      *errorBody  `json:"error,omitempty"`
	Pagination *pagination `json:"pagination,omitempty"`
}

type errorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

type pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON name.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func ok(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func okPage[T any](w http.ResponseWriter, page service.Page[T]) {
	items := page.Items
	if items == nil {
		items = []T{}
	}
	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Data:    items,
		Pagination: &pagination{
			Page:       page.Page,
			Limit:      page.Limit,
			Total:      page.Total,
			TotalPages: page.TotalPages,
		},
	})
}

// writeError maps err onto a status via its AppError code. Causes of 500
// responses are logged and never shown to the client.
func writeError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	code := apperrors.CodeOf(err)
	status := apperrors.HTTPStatus(code)

	body := &errorBody{Code: code, Message: err.Error()}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		body.Message = appErr.Message
		body.Details = appErr.Details
	}

	if status == http.StatusInternalServerError {
		log.Error("Request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
		body = &errorBody{Code: apperrors.CodeInternalServer, Message: "the server encountered a problem and could not process your request"}
	}

	writeJSON(w, status, envelope{Error: body})
}

// readJSON decodes a single JSON object into dst and runs struct validation.
func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var syntaxError *json.SyntaxError
		var typeError *json.UnmarshalTypeError
		var maxBytesError *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxError):
			return invalidInput(fmt.Sprintf("body contains badly-formed JSON (at character %d)", syntaxError.Offset))
		case errors.Is(err, io.ErrUnexpectedEOF):
			return invalidInput("body contains badly-formed JSON")
		case errors.As(err, &typeError):
			if typeError.Field != "" {
				return invalidInput(fmt.Sprintf("body contains incorrect JSON type for field %q", typeError.Field))
			}
			return invalidInput("body contains incorrect JSON type")
		case errors.Is(err, io.EOF):
			return invalidInput("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			return invalidInput("body contains unknown key " + strings.TrimPrefix(err.Error(), "json: unknown field "))
		case errors.As(err, &maxBytesError):
			return invalidInput(fmt.Sprintf("body must not be larger than %d bytes", maxBodyBytes))
		default:
			return invalidInput(err.Error())
		}
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return invalidInput("body must only contain a single JSON value")
	}

	return validateStruct(dst)
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return invalidInput(err.Error())
	}

	details := make(map[string]string, len(fieldErrors))
	for _, fe := range fieldErrors {
		details[fe.Field()] = describe(fe)
	}
	return apperrors.Validation(details)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "gt":
		return "must be greater than " + fe.Param()
	default:
		return "is invalid"
	}
}

// readUpload returns the image posted in the multipart field and a func that
// closes it.
func readUpload(w http.ResponseWriter, r *http.Request, field string) (service.Upload, func(), error) {
	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxImageBytes+maxBodyBytes)
	if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
		return service.Upload{}, nil, invalidInput("expected a multipart form no larger than 5 MB")
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		return service.Upload{}, nil, invalidInput(fmt.Sprintf("missing %s file", field))
	}

	upload := service.Upload{
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}
	return upload, func() { _ = file.Close() }, nil
}

func invalidInput(message string) error {
	return apperrors.New(apperrors.CodeInvalidInput, message)
}

func pageRequest(r *http.Request) (service.PageRequest, error) {
	page, err := queryInt(r, "page")
	if err != nil {
		return service.PageRequest{}, err
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		return service.PageRequest{}, err
	}
	return service.PageRequest{Page: page, Limit: limit}, nil
}

// queryInt returns 0 when the parameter is absent.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, invalidInput(fmt.Sprintf("invalid %s query parameter", name))
	}
	return n, nil
}

func urlParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}
