package shared

import (
	"context"
	"log/slog"
	"net/http"
)

// commitWriter persists the session right before the response headers go
// out, so cookie changes made by handlers still reach the client.
type commitWriter struct {
	http.ResponseWriter
	sess          *Session
	manager       *SessionManager
	ctx           context.Context
	req           *http.Request
	logger        *slog.Logger
	headerWritten bool
}

func (w *commitWriter) WriteHeader(statusCode int) {
	if !w.headerWritten {
		w.headerWritten = true
		if err := w.manager.Commit(w.ctx, w.ResponseWriter, w.req, w.sess); err != nil {
			w.logger.Error("commit session", slog.Any("error", err))
		}
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *commitWriter) Write(data []byte) (int, error) {
	if !w.headerWritten {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(data)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *commitWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Middleware loads the session for every request, stores it in the
// context and commits it when the handler starts its response.
func (sm *SessionManager) Middleware(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			sess, err := sm.Load(ctx, r)
			if err != nil {
				logger.Error("failed to load session", slog.Any("error", err))
				http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
				return
			}
			ctx = ContextWithSession(ctx, sess)
			r = r.WithContext(ctx)
			next.ServeHTTP(&commitWriter{
				ResponseWriter: w,
				sess:           sess,
				manager:        sm,
				ctx:            ctx,
				req:            r,
				logger:         logger,
			}, r)
		})
	}
}
