package middleware

import (
	"net/http" // HTTP status codes
	"strings"  // URL assembly

	"github.com/gin-gonic/gin"           // Gin web framework
	"github.com/sirupsen/logrus"         // Logging library
	"github.com/twilio/twilio-go/client" // Webhook signature validation
)

// TwilioSignatureMiddleware rejects webhook calls whose X-Twilio-Signature does
// not match the auth token. publicURL is the externally visible scheme and host
// the provider posts to; when empty it is derived from the request.
func TwilioSignatureMiddleware(authToken, publicURL string) gin.HandlerFunc {
	validator := client.NewRequestValidator(authToken)
	publicURL = strings.TrimSuffix(publicURL, "/")
	return func(c *gin.Context) {
		if err := c.Request.ParseForm(); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid form"})
			return
		}
		params := make(map[string]string, len(c.Request.PostForm))
		for k, v := range c.Request.PostForm {
			if len(v) > 0 {
				params[k] = v[0]
			}
		}
		base := publicURL
		if base == "" {
			base = requestBase(c.Request)
		}
		url := base + c.Request.URL.RequestURI()
		if !validator.Validate(url, params, c.GetHeader("X-Twilio-Signature")) {
			logrus.WithFields(logrus.Fields{"url": url, "from": params["From"]}).Warn("Webhook signature rejected")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Invalid signature"})
			return
		}
		c.Next() // Signed by the provider
	}
}

// requestBase rebuilds scheme://host, honouring a TLS-terminating proxy
func requestBase(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}
