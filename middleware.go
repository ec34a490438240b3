package gatekit

import (
	"net/http"
	"strconv"
)

// User-visible bodies. They never carry internal detail.
const (
	MessageNotPermitted  = "not permitted"
	MessageTryAgainLater = "try again later"
)

// Middleware gates net/http handlers on permissions.
type Middleware struct {
	service      *Service
	getUserID    UserIDExtractor
	errorHandler func(http.ResponseWriter, *http.Request, error)
}

// UserIDExtractor extracts the external user id from a request.
type UserIDExtractor func(*http.Request) (int64, bool)

// MiddlewareOption configures the Middleware.
type MiddlewareOption func(*Middleware)

// NewMiddleware creates a new Middleware instance.
//
// Example:
//
//	mw := gatekit.NewMiddleware(service,
//	    gatekit.WithUserIDExtractor(gatekit.UserIDFromHeader("X-User-ID")),
//	)
//	mux.Handle("POST /notes", mw.RequirePermission("notes.edit")(notesHandler))
func NewMiddleware(service *Service, opts ...MiddlewareOption) *Middleware {
	m := &Middleware{
		service:      service,
		getUserID:    defaultGetUserID,
		errorHandler: defaultErrorHandler,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// WithUserIDExtractor sets a custom function to extract the user id from a request.
func WithUserIDExtractor(fn UserIDExtractor) MiddlewareOption {
	return func(m *Middleware) {
		m.getUserID = fn
	}
}

// WithErrorHandler sets a custom error handler for middleware.
// The error is ErrNoUserID, ErrStorageUnavailable or ErrNotPermitted.
func WithErrorHandler(fn func(http.ResponseWriter, *http.Request, error)) MiddlewareOption {
	return func(m *Middleware) {
		m.errorHandler = fn
	}
}

// UserIDFromHeader reads a decimal user id from a request header.
func UserIDFromHeader(header string) UserIDExtractor {
	return func(r *http.Request) (int64, bool) {
		id, err := strconv.ParseInt(r.Header.Get(header), 10, 64)
		if err != nil {
			return 0, false
		}
		return id, true
	}
}

func defaultGetUserID(r *http.Request) (int64, bool) {
	return GetUserID(r.Context())
}

// defaultErrorHandler renders 503 when the decision could not be determined
// and 403 for everything else.
func defaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	if IsStorageUnavailable(err) {
		http.Error(w, MessageTryAgainLater, http.StatusServiceUnavailable)
		return
	}
	http.Error(w, MessageNotPermitted, http.StatusForbidden)
}

// RequirePermission creates middleware that requires a specific permission.
//
// Example:
//
//	mux.Handle("GET /downloads/{id}", mw.RequirePermission("downloads.get")(downloadHandler))
func (m *Middleware) RequirePermission(permission string) func(http.Handler) http.Handler {
	return m.gate(func(c *Checker, r *http.Request) (bool, error) {
		return c.Can(r.Context(), permission)
	})
}

// RequireAnyPermission creates middleware that requires any of the specified permissions.
func (m *Middleware) RequireAnyPermission(permissions ...string) func(http.Handler) http.Handler {
	return m.gate(func(c *Checker, r *http.Request) (bool, error) {
		return m.service.HasAnyPermission(r.Context(), c.UserID(), permissions...)
	})
}

// RequireAllPermissions creates middleware that requires every specified permission.
func (m *Middleware) RequireAllPermissions(permissions ...string) func(http.Handler) http.Handler {
	return m.gate(func(c *Checker, r *http.Request) (bool, error) {
		return m.service.HasAllPermissions(r.Context(), c.UserID(), permissions...)
	})
}

func (m *Middleware) gate(allowed func(*Checker, *http.Request) (bool, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := m.getUserID(r)
			if !ok {
				m.errorHandler(w, r, ErrNoUserID)
				return
			}

			checker := m.service.Checker(userID)
			ok, err := allowed(checker, r)
			if err != nil {
				m.errorHandler(w, r, err)
				return
			}
			if !ok {
				m.errorHandler(w, r, NewError(ErrNotPermitted, "missing required permission").WithUser(userID))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithChecker(r.Context(), checker)))
		})
	}
}

// LoadChecker creates middleware that loads the user's Checker into context.
// Use this when you want to do permission checks in the handler rather than middleware.
//
// Example:
//
//	func dashboardHandler(w http.ResponseWriter, r *http.Request) {
//	    checker := gatekit.FromContext(r.Context())
//	    if checker != nil && checker.HasPermission(r.Context(), "admin.panel") {
//	        // Show admin features
//	    }
//	}
func (m *Middleware) LoadChecker() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := m.getUserID(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			ctx := WithChecker(r.Context(), m.service.Checker(userID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// InjectAuditContext creates middleware that puts the request id and the
// acting user into the context for mutations performed by the handler.
// The request id comes from X-Request-ID or is generated.
func (m *Middleware) InjectAuditContext() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if requestID := r.Header.Get("X-Request-ID"); requestID != "" {
				ctx = WithRequestID(ctx, requestID)
			}
			ctx = EnsureRequestID(ctx)

			if userID, ok := m.getUserID(r); ok {
				ctx = WithActorID(ctx, userID)
				ctx = WithUserID(ctx, userID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
