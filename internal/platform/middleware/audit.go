package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/awv/awv/internal/platform/auth"
	"github.com/awv/awv/internal/platform/docstore"
)

// AccessCollection holds persisted access entries.
const AccessCollection = "access_log"

// AccessEntry records who touched which patient-related resource.
type AccessEntry struct {
	RequestID  string    `json:"requestId"`
	UserID     string    `json:"userId"`
	UserRoles  []string  `json:"userRoles"`
	Resource   string    `json:"resource"`
	ResourceID string    `json:"resourceId,omitempty"`
	PatientID  string    `json:"patientId,omitempty"`
	Action     string    `json:"action"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	IPAddress  string    `json:"ipAddress"`
	StatusCode int       `json:"statusCode"`
	Timestamp  time.Time `json:"timestamp"`
}

// AccessRecorder persists access entries.
type AccessRecorder interface {
	RecordAccess(ctx context.Context, entry AccessEntry) error
}

type storeRecorder struct {
	store docstore.Store
}

// NewStoreRecorder writes access entries to the document gateway.
func NewStoreRecorder(store docstore.Store) AccessRecorder {
	return &storeRecorder{store: store}
}

func (r *storeRecorder) RecordAccess(ctx context.Context, entry AccessEntry) error {
	doc, err := docstore.Encode(entry)
	if err != nil {
		return err
	}
	_, err = r.store.Create(ctx, AccessCollection, doc)
	return err
}

// Audit logs every request under /api/v1/ and, when a recorder is given,
// persists an AccessEntry for it. Recorder failures are logged and never
// fail the request.
func Audit(logger zerolog.Logger, recorder AccessRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !strings.HasPrefix(req.URL.Path, "/api/v1/") {
				return next(c)
			}

			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			resource, id, sub := splitResourcePath(req.URL.Path)
			ctx := req.Context()
			entry := AccessEntry{
				UserID:     auth.UserIDFromContext(ctx),
				UserRoles:  auth.RolesFromContext(ctx),
				Resource:   resource,
				ResourceID: id,
				PatientID:  patientID(c, resource, id, sub),
				Action:     methodAction(req.Method),
				Method:     req.Method,
				Path:       req.URL.Path,
				IPAddress:  c.RealIP(),
				StatusCode: status,
				Timestamp:  time.Now().UTC(),
			}
			entry.RequestID, _ = c.Get(requestIDKey).(string)

			if recorder != nil {
				if recErr := recorder.RecordAccess(context.WithoutCancel(ctx), entry); recErr != nil {
					logger.Error().Err(recErr).Str("request_id", entry.RequestID).Msg("failed to record access")
				}
			}

			logger.Info().
				Str("type", "access").
				Str("request_id", entry.RequestID).
				Str("user_id", entry.UserID).
				Str("resource", entry.Resource).
				Str("resource_id", entry.ResourceID).
				Str("patient_id", entry.PatientID).
				Str("action", entry.Action).
				Int("status", entry.StatusCode).
				Msg("phi_access")

			return err
		}
	}
}

func methodAction(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}

// splitResourcePath breaks /api/v1/<resource>/<id>/<sub>... into parts.
func splitResourcePath(path string) (resource, id, sub string) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(path, "/api/v1/"), "/"), "/")
	resource = parts[0]
	if len(parts) > 1 {
		id = parts[1]
	}
	if len(parts) > 2 {
		sub = parts[2]
	}
	return resource, id, sub
}

func patientID(c echo.Context, resource, id, sub string) string {
	if resource == "patients" && id != "" {
		return id
	}
	if resource == "visits" && sub == "" {
		return c.QueryParam("patientId")
	}
	return ""
}
