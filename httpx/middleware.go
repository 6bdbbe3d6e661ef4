package httpx

import (
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/mbolis/quick-forms/log"
)

// ClientIP returns the address of the caller without its port. Run behind
// middleware.RealIP to honour X-Forwarded-For and X-Real-IP.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RequestLogger logs one line per request, at a level that follows the
// status class of the response.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			level := log.InfoLevel
			switch {
			case status >= 500:
				level = log.ErrorLevel
			case status >= 400:
				level = log.WarnLevel
			}
			if !log.IsLevelEnabled(level) {
				return
			}

			fields := log.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   status,
				"bytes":    ww.BytesWritten(),
				"remote":   ClientIP(r),
				"duration": time.Since(start).String(),
			}
			if id := middleware.GetReqID(r.Context()); id != "" {
				fields["request_id"] = id
			}
			log.WithFields(fields).Log(level.Logrus(), "http.request")
		}()

		next.ServeHTTP(ww, r)
	})
}
