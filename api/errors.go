package api

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/webedmilson/bancoCred/internal/apierror"
)

// respondError writes err as {"error": {code, message}} with the status
// mapped from its code. Errors outside the taxonomy are reported as internal.
func respondError(c *gin.Context, err error) {
	var apiErr apierror.APIError
	if !errors.As(err, &apiErr) {
		apiErr = apierror.APIError{Code: apierror.ErrInternalServer, Message: "internal server error"}
	}
	c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": gin.H{
		"code":    apiErr.Code,
		"message": apiErr.Message,
	}})
}

func badRequest(c *gin.Context, err error) {
	respondError(c, apierror.NewAPIError(apierror.ErrInvalidInput, err.Error(), nil))
}

// intQuery reads a non-negative integer query parameter, falling back to def
// when it is absent.
func intQuery(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, errors.New(name + " must be a non-negative integer")
	}
	return v, nil
}

