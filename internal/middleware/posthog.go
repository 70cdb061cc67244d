package middleware

import (
	"net/http"
	"strings"

	"github.com/SscSPs/library_circulation_app/internal/utils"
	"github.com/gin-gonic/gin"
)

const analyticsKey = "analytics"

// routes that never produce analytics events
var pathsToSkip = map[string]bool{
	"/health":    true,
	"/api/v1/ws": true,
}

// PosthogMiddleware records one event per successful API call and exposes the client
// to TrackEvent for the handlers that report circulation outcomes.
func PosthogMiddleware(posthogClient *utils.PosthogClientWrapper) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !posthogClient.IsInitialized() || pathsToSkip[c.FullPath()] {
			c.Next()
			return
		}
		c.Set(analyticsKey, posthogClient)

		c.Next()

		if len(c.Errors) > 0 || c.Writer.Status() >= http.StatusBadRequest {
			return
		}
		staffID, exists := GetUserIDFromContext(c)
		if !exists {
			return
		}

		// "/api/v1/loans/:loanID/return" -> "loans_return"
		eventName := routeEventName(c.FullPath())
		if eventName == "" {
			return
		}

		props := map[string]any{
			"method":      c.Request.Method,
			"route":       c.FullPath(),
			"status_code": c.Writer.Status(),
			"request_id":  GetRequestID(c.Request.Context()),
		}
		if len(c.Params) > 0 {
			params := make(map[string]string, len(c.Params))
			for _, param := range c.Params {
				params[param.Key] = param.Value
			}
			props["params"] = params
		}

		posthogClient.Enqueue(staffID, eventName, props)
	}
}

func routeEventName(fullPath string) string {
	var parts []string
	for _, seg := range strings.Split(strings.TrimPrefix(fullPath, "/api/v1"), "/") {
		if seg == "" || strings.HasPrefix(seg, ":") || strings.HasPrefix(seg, "*") {
			continue
		}
		parts = append(parts, seg)
	}
	return strings.Join(parts, "_")
}

// TrackEvent sends a domain event on behalf of the authenticated staff member. It is a
// no-op unless PosthogMiddleware ran with a configured client.
func TrackEvent(c *gin.Context, eventName string, properties map[string]any) {
	v, ok := c.Get(analyticsKey)
	if !ok {
		return
	}
	posthogClient, ok := v.(*utils.PosthogClientWrapper)
	if !ok {
		return
	}
	staffID, exists := GetUserIDFromContext(c)
	if !exists {
		return
	}

	if properties == nil {
		properties = make(map[string]any)
	}
	properties["route"] = c.FullPath()
	properties["request_id"] = GetRequestID(c.Request.Context())

	posthogClient.Enqueue(staffID, eventName, properties)
}
