package http

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"tasktrack/internal/domain"
	"tasktrack/internal/metrics"
	"tasktrack/internal/service"
)

const currentUserKey = "tasktrack.user"
const sessionTokenKey = "tasktrack.token"

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// requireAuth resolves the bearer token and injects the authenticated
// user into the request context. Missing or unknown tokens get a
// uniform 401 body.
func requireAuth(auth service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		user, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		c.Set(currentUserKey, user)
		c.Set(sessionTokenKey, token)
		c.Next()
	}
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func currentUser(c *gin.Context) *domain.User {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*domain.User)
	return user
}

// clientLimiter throttles a single remote address.
type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// authRateLimiter caps login/registration attempts per client IP.
// Entries idle longer than an hour are pruned on access.
type authRateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	limit   rate.Limit
	burst   int
}

func newAuthRateLimiter(perMinute int) *authRateLimiter {
	return &authRateLimiter{
		clients: make(map[string]*clientLimiter),
		limit:   rate.Limit(float64(perMinute) / 60.0),
		burst:   perMinute,
	}
}

func (l *authRateLimiter) allow(addr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for key, client := range l.clients {
		if now.Sub(client.lastAccess) > time.Hour {
			delete(l.clients, key)
		}
	}

	client, ok := l.clients[addr]
	if !ok {
		client = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[addr] = client
	}
	client.lastAccess = now
	return client.limiter.Allow()
}

func (l *authRateLimiter) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}
		c.Next()
	}
}

// observe records request metrics and an access log line per request.
func observe(collector *metrics.Collector, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		collector.RecordRequest(c.Request.Method, route, status, elapsed)
		logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"route":   route,
			"status":  status,
			"elapsed": elapsed.String(),
		}).Debug("request")
	}
}
