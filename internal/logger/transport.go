package logger

import (
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"
)

// Transport оборачивает RoundTripper логированием исходящих запросов.
func Transport(log *slog.Logger, next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return roundTripFunc(func(r *http.Request) (*http.Response, error) {
		// Тело и query могут содержать пароль и session id, поэтому только путь
		log := log.With("reqID", rand.Uint64(), "method", r.Method, "host", r.URL.Host, "path", r.URL.Path)
		log.Debug("request sent")

		start := time.Now()
		resp, err := next.RoundTrip(r)
		elapsed := time.Since(start)

		if err != nil {
			log.Debug("request failed", "error", err, "elapsed", elapsed)
			return nil, err
		}

		if resp.StatusCode >= 400 {
			log.Warn("response status", "status", resp.StatusCode, "elapsed", elapsed)
		} else {
			log.Debug("response status", "status", resp.StatusCode, "elapsed", elapsed)
		}
		return resp, nil
	})
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}
