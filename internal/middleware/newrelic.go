package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
)

// TripAttributes tags the New Relic transaction started by nrgin with the
// trip or driver the request is about. It must run after nrgin.Middleware.
func TripAttributes(param, attribute string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if txn := nrgin.Transaction(c); txn != nil {
			if id := c.Param(param); id != "" {
				txn.AddAttribute(attribute, id)
			}
		}

		c.Next()

		// Record error responses on the transaction.
		if txn := nrgin.Transaction(c); txn != nil && len(c.Errors) > 0 {
			for _, err := range c.Errors {
				txn.NoticeError(err.Err)
			}
		}
	}
}
