package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/hr-service/internal/api/dto"
	"github.com/spec-kit/hr-service/internal/service"
	"github.com/spec-kit/hr-service/internal/storage"
	apperrors "github.com/spec-kit/hr-service/pkg/util/errorutil"
)

const avatarField = "avatar"

// readPayload turns a JSON, multipart or urlencoded body into a flattened update.
// The returned release func must be called once the payload is consumed.
func readPayload(c *fiber.Ctx) (service.Payload, func(), error) {
	payload := service.Payload{Fields: map[string]service.Value{}}
	release := func() {}

	switch {
	case strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm):
		form, err := c.MultipartForm()
		if err != nil {
			return payload, release, apperrors.NewValidationError("Malformed multipart body.", nil)
		}
		for key, values := range form.Value {
			if len(values) > 0 {
				payload.Fields[key] = service.Str(values[len(values)-1])
			}
		}
		upload, closer, err := avatarUpload(form)
		if err != nil {
			return payload, release, err
		}
		if upload != nil {
			payload.Avatar = upload
			release = closer
		}
	case strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEApplicationForm):
		c.Request().PostArgs().VisitAll(func(key, value []byte) {
			payload.Fields[string(key)] = service.Str(string(value))
		})
	default:
		fields, err := decodeJSONFields(c.Body())
		if err != nil {
			return payload, release, err
		}
		payload.Fields = fields
	}
	return payload, release, nil
}

func avatarUpload(form *multipart.Form) (*storage.AvatarUpload, func(), error) {
	headers := form.File[avatarField]
	if len(headers) == 0 {
		return nil, nil, nil
	}
	file, err := headers[0].Open()
	if err != nil {
		return nil, nil, apperrors.NewFieldValidation(apperrors.FieldErrors{avatarField: "The submitted file is empty or unreadable."})
	}
	return &storage.AvatarUpload{Filename: headers[0].Filename, Content: file}, func() { _ = file.Close() }, nil
}

// decodeJSONFields keeps explicit nulls apart from absent keys. Scalars keep their
// literal text; nested objects and arrays are rejected per key.
func decodeJSONFields(body []byte) (map[string]service.Value, error) {
	fields := map[string]service.Value{}
	if len(bytes.TrimSpace(body)) == 0 {
		return fields, nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, apperrors.NewValidationError("JSON object expected.", nil)
	}

	errs := apperrors.FieldErrors{}
	for key, msg := range raw {
		trimmed := bytes.TrimSpace(msg)
		switch {
		case bytes.Equal(trimmed, []byte("null")):
			fields[key] = service.Null
		case len(trimmed) > 0 && trimmed[0] == '"':
			var s string
			if err := json.Unmarshal(trimmed, &s); err != nil {
				errs[key] = "Not a valid string."
				continue
			}
			fields[key] = service.Str(s)
		case len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '['):
			errs[key] = "Expected a single value."
		default:
			fields[key] = service.Str(string(trimmed))
		}
	}
	if len(errs) > 0 {
		return nil, apperrors.NewFieldValidation(errs)
	}
	return fields, nil
}

// formAvatar returns the optional avatar upload of a multipart request.
func formAvatar(c *fiber.Ctx) (*storage.AvatarUpload, func(), error) {
	if !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		return nil, func() {}, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, func() {}, apperrors.NewValidationError("Malformed multipart body.", nil)
	}
	upload, closer, err := avatarUpload(form)
	if err != nil || upload == nil {
		return nil, func() {}, err
	}
	return upload, closer, nil
}

// pathID parses the :id route parameter. Ids that cannot exist are reported as missing.
func pathID(c *fiber.Ctx, resource string) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewNotFound(resource, nil)
	}
	return id, nil
}

// parseBody decodes a JSON or form body into out.
func parseBody(c *fiber.Ctx, out any) error {
	if len(bytes.TrimSpace(c.Body())) == 0 && !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		return nil
	}
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return nil
}

func mediaFor(c *fiber.Ctx, prefix string) dto.MediaURLs {
	return dto.MediaURLs{BaseURL: c.BaseURL(), Prefix: prefix}
}

func presentView(view *service.AccountView, media dto.MediaURLs) dto.AccountResponse {
	return dto.PresentAccount(view.Account, view.Profile, view.Department, media)
}
