package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/runesbridge/runes-bridge/internal/metrics"
	"github.com/runesbridge/runes-bridge/internal/state"
	log "github.com/sirupsen/logrus"
)

const (
	requestIDKey    = "request_id"
	requestIDHeader = "X-Request-ID"
	adminSubjectKey = "admin_subject"
)

// requestLogger tags every request with an id and logs its outcome
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(requestIDKey, requestID)
		c.Header(requestIDHeader, requestID)

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
		log.WithFields(log.Fields{
			"request_id": requestID,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency":    time.Since(start).String(),
		}).Debug("HTTP request served")
	}
}

// rateLimit rejects the request when the shared indexer budget is spent
func rateLimit(limiter *state.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.CanCall() {
			metrics.HTTPRateLimited.Inc()
			abortWith(c, http.StatusTooManyRequests, "Too many requests")
			return
		}
		c.Next()
	}
}

// adminAuth accepts only bearer tokens signed with the configured RSA key
func adminAuth(verifier *adminVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || raw == "" {
			abortWith(c, http.StatusUnauthorized, "missing bearer token")
			return
		}
		subject, err := verifier.Verify(raw)
		if err != nil {
			log.WithField(requestIDKey, c.GetString(requestIDKey)).Warnf("Admin JWT rejected: %v", err)
			abortWith(c, http.StatusUnauthorized, "invalid token")
			return
		}
		c.Set(adminSubjectKey, subject)
		c.Next()
	}
}

type adminVerifier struct {
	parser *jwt.Parser
	key    interface{}
}

func newAdminVerifier(pemKey string) (*adminVerifier, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pemKey))
	if err != nil {
		return nil, err
	}
	return &adminVerifier{
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
		key: key,
	}, nil
}

// Verify checks signature and expiry and returns the token subject
func (v *adminVerifier) Verify(raw string) (string, error) {
	token, err := v.parser.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		return v.key, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", jwt.ErrTokenInvalidClaims
	}
	return token.Claims.GetSubject()
}
