package server

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/patrickmn/go-cache"
)

type cachedResponse struct {
	contentType string
	body        []byte
}

// recordingWriter copies the response body for the cache.
type recordingWriter struct {
	http.ResponseWriter
	statusCode int
	buf        bytes.Buffer
}

func (rw *recordingWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *recordingWriter) Write(b []byte) (int, error) {
	rw.buf.Write(b)
	return rw.ResponseWriter.Write(b)
}

// cacheMiddleware serves repeated GETs of filter views from memory. Keys
// carry the dashboard load time, so a reload never serves stale entries.
// Runs after requireDashboard.
func (s *Server) cacheMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := dashboardFrom(r)
		if r.Method != http.MethodGet || d == nil {
			next.ServeHTTP(w, r)
			return
		}

		key := strconv.FormatInt(d.LoadedAt.UnixNano(), 10) + " " + r.URL.RequestURI()
		if v, ok := s.cache.Get(key); ok {
			resp := v.(cachedResponse)
			w.Header().Set("Content-Type", resp.contentType)
			w.Header().Set("X-Cache", "HIT")
			w.Write(resp.body)
			return
		}

		w.Header().Set("X-Cache", "MISS")
		rec := &recordingWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rec, r)
		if rec.statusCode == http.StatusOK {
			s.cache.Set(key, cachedResponse{
				contentType: w.Header().Get("Content-Type"),
				body:        rec.buf.Bytes(),
			}, cache.DefaultExpiration)
		}
	})
}
