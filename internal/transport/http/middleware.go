package http

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"exam-sync-service/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

// TeacherAuth validates bearer tokens on teacher-facing routes. The token is
// issued by the surrounding platform; this service only verifies it.
type TeacherAuth struct {
	signingKey []byte
	issuer     string
}

func NewTeacherAuth(signingKey, issuer string) *TeacherAuth {
	return &TeacherAuth{signingKey: []byte(signingKey), issuer: issuer}
}

type teacherClaims struct {
	jwt.RegisteredClaims
}

// Authorize checks the Authorization header of a request.
func (a *TeacherAuth) Authorize(r *http.Request) error {
	header := r.Header.Get("Authorization")
	if header == "" {
		return errors.New("authorization header required")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return errors.New("authorization header format must be Bearer {token}")
	}

	token, err := jwt.ParseWithClaims(parts[1], &teacherClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.signingKey, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrSignatureInvalid):
			return errors.New("invalid token signature")
		case errors.Is(err, jwt.ErrTokenExpired):
			return errors.New("token expired")
		default:
			return errors.New("invalid token")
		}
	}

	claims, ok := token.Claims.(*teacherClaims)
	if !ok || !token.Valid {
		return errors.New("invalid token claims")
	}
	if a.issuer != "" && claims.Issuer != a.issuer {
		return errors.New("invalid token issuer")
	}
	return nil
}

// MetricsMiddleware records per-route request counts and latency.
func MetricsMiddleware(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)

			path := chi.RouteContext(r.Context()).RoutePattern()
			if path == "" {
				path = r.URL.Path
			}
			m.RequestCounter.WithLabelValues(r.Method, path, strconv.Itoa(recorder.status)).Inc()
			m.RequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}

// RequestLogger emits one structured line per request.
func RequestLogger(log *logrus.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)
			log.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   recorder.status,
				"duration": time.Since(start).String(),
			}).Debug("http request")
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack keeps websocket upgrades working behind the middleware.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}
