package web

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"

	"github.com/omarluq/storefront/internal/store"
)

// errorSlot receives an error reported by a handler so the nearest error
// page can render it. Slots nest; an error page that declines an error
// hands it to its parent.
type errorSlot struct {
	err    error
	parent *errorSlot
	stack  []byte
}

type slotKey struct{}

func pushSlot(r *http.Request) (*http.Request, *errorSlot) {
	parent, _ := r.Context().Value(slotKey{}).(*errorSlot)
	s := &errorSlot{parent: parent}
	return r.WithContext(context.WithValue(r.Context(), slotKey{}, s)), s
}

// forward hands the error to the parent page; it reports false when there
// is none.
func (s *errorSlot) forward() bool {
	if s.parent == nil || s.parent.err != nil {
		return false
	}
	s.parent.err, s.parent.stack = s.err, s.stack
	return true
}

// PanicError is a recovered panic.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string { return fmt.Sprintf("panic: %v", e.Value) }

// StatusFor maps domain errors to HTTP statuses.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled):
		return 499
	default:
		return http.StatusInternalServerError
	}
}

// Error reports a handler failure. Client errors are written directly;
// server errors go to the nearest error page, or become a plain 500 when no
// page is installed.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status < http.StatusInternalServerError {
		WriteError(w, status, http.StatusText(status))
		return
	}
	if s, ok := r.Context().Value(slotKey{}).(*errorSlot); ok && s.err == nil {
		s.err, s.stack = err, debug.Stack()
		return
	}
	zerolog.Ctx(r.Context()).Error().Err(err).Msg("unhandled error")
	WriteError(w, http.StatusInternalServerError, "An error occurred while processing your request.")
}

// serveGuarded runs next with a fresh slot and turns a panic into a slot
// error.
func serveGuarded(next http.Handler, w *responseWriter, r *http.Request) (slot *errorSlot) {
	r, slot = pushSlot(r)
	defer func() {
		if v := recover(); v != nil {
			if v == http.ErrAbortHandler {
				panic(v)
			}
			slot.err, slot.stack = &PanicError{Value: v}, debug.Stack()
		}
	}()
	next.ServeHTTP(w, r)
	return slot
}

var developerPage = template.Must(template.New("dev").Parse(`<!DOCTYPE html>
<html><head><title>Internal Server Error</title></head>
<body>
<h1>An unhandled exception occurred while processing the request.</h1>
<h2>{{.Type}}: {{.Message}}</h2>
<p>{{.Method}} {{.Path}}</p>
<pre>{{.Stack}}</pre>
</body></html>
`))

// DeveloperExceptionPage renders unhandled errors and panics with their
// stack trace.
func DeveloperExceptionPage() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := asResponseWriter(w)
			slot := serveGuarded(next, rw, r)
			if slot.err == nil {
				return
			}
			zerolog.Ctx(r.Context()).Error().Err(slot.err).Msg("unhandled error")
			if rw.wroteHeader {
				return
			}
			rw.Header().Set("Content-Type", "text/html; charset=utf-8")
			rw.WriteHeader(http.StatusInternalServerError)
			_ = developerPage.Execute(rw, map[string]any{
				"Type":    fmt.Sprintf("%T", slot.err),
				"Message": slot.err.Error(),
				"Method":  r.Method,
				"Path":    r.URL.Path,
				"Stack":   string(slot.stack),
			})
		})
	}
}

var databasePage = template.Must(template.New("db").Parse(`<!DOCTYPE html>
<html><head><title>Database Error</title></head>
<body>
<h1>A database operation failed while processing the request.</h1>
<p>Database: <strong>{{.Database}}</strong> ({{.Op}})</p>
<pre>{{.Message}}</pre>
<p>Migrations are applied at start-up. Check the connection string for this database and that the server is reachable, then restart the storefront.</p>
</body></html>
`))

// DatabaseErrorPage renders store failures with the database involved.
// Other errors pass to the enclosing error page.
func DatabaseErrorPage() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := asResponseWriter(w)
			rr, slot := pushSlot(r)
			next.ServeHTTP(rw, rr)
			if slot.err == nil {
				return
			}
			var dbErr *store.DatabaseError
			if !errors.As(slot.err, &dbErr) {
				if !slot.forward() && !rw.wroteHeader {
					WriteError(rw, http.StatusInternalServerError, "An error occurred while processing your request.")
				}
				return
			}
			zerolog.Ctx(r.Context()).Error().Err(slot.err).Str("database", dbErr.Database).Msg("database error")
			if rw.wroteHeader {
				return
			}
			rw.Header().Set("Content-Type", "text/html; charset=utf-8")
			rw.WriteHeader(http.StatusInternalServerError)
			_ = databasePage.Execute(rw, map[string]string{
				"Database": dbErr.Database,
				"Op":       dbErr.Op,
				"Message":  dbErr.Err.Error(),
			})
		})
	}
}

// ExceptionHandler logs unhandled errors and panics and re-executes path as
// a GET through the rest of the pipeline with status 500.
func ExceptionHandler(path string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := asResponseWriter(w)
			slot := serveGuarded(next, rw, r)
			if slot.err == nil {
				return
			}
			zerolog.Ctx(r.Context()).Error().Err(slot.err).Str("path", r.URL.Path).Msg("unhandled error")
			if rw.wroteHeader {
				return
			}

			re := r.Clone(r.Context())
			re.Method = http.MethodGet
			re.URL.Path, re.URL.RawPath, re.URL.RawQuery = path, "", ""
			re.Body, re.ContentLength = http.NoBody, 0

			forced := &statusWriter{ResponseWriter: rw, status: http.StatusInternalServerError}
			if again := serveGuarded(next, asResponseWriter(forced), re); again.err != nil && !rw.wroteHeader {
				WriteError(rw, http.StatusInternalServerError, "An error occurred while processing your request.")
			}
		})
	}
}

func asResponseWriter(w http.ResponseWriter) *responseWriter {
	if rw, ok := w.(*responseWriter); ok {
		return rw
	}
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

// statusWriter replaces whatever status the handler sets.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (s *statusWriter) WriteHeader(int) { s.ResponseWriter.WriteHeader(s.status) }

func (s *statusWriter) Write(b []byte) (int, error) {
	s.ResponseWriter.WriteHeader(s.status)
	return s.ResponseWriter.Write(b)
}
