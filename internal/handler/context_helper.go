package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/noah-isme/husma-donation-api/internal/middleware"
	"github.com/noah-isme/husma-donation-api/internal/models"
	appErrors "github.com/noah-isme/husma-donation-api/pkg/errors"
)

// CartSessionHeader carries the anonymous cart key between requests.
const CartSessionHeader = "X-Cart-Session"

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.Claims(c)
}

// donorFromContext returns the signed-in donor ID, or "" for anonymous and staff callers.
func donorFromContext(c *gin.Context) string {
	claims := claimsFromContext(c)
	if claims == nil || claims.Role != models.RoleDonor {
		return ""
	}
	return claims.UserID
}

// cartKey resolves the cart for this caller: the donor ID when signed in,
// otherwise the X-Cart-Session header. A fresh session key is minted and
// echoed back when the header is missing.
func cartKey(c *gin.Context) (key, donorID string) {
	if donorID = donorFromContext(c); donorID != "" {
		return donorID, donorID
	}
	key = strings.TrimSpace(c.GetHeader(CartSessionHeader))
	if key == "" || len(key) > 64 {
		key = uuid.NewString()
	}
	c.Header(CartSessionHeader, key)
	return "session:" + key, ""
}

func parseIDParam(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "invalid "+name)
	}
	return id, nil
}

func parseDateParam(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date, expected YYYY-MM-DD")
	}
	return &parsed, nil
}

func parseQueryInt(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return val
}
