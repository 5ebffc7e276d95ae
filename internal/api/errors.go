package api

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/apperr"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/logger"
)

// WriteError renders err as {"error": {...}} and aborts the chain.
// Anything that is not an *apperr.Error becomes INTERNAL_ERROR.
func WriteError(c *gin.Context, err error) {
	typed := apperr.As(err)
	if typed == nil {
		typed = apperr.Wrap(apperr.CodeInternal, err, "unexpected error")
	}

	meta := apperr.MetadataFor(typed.Code())
	body := ErrorBody{Code: typed.Code(), Message: typed.Message()}
	if meta.DetailsAllowed {
		body.Details = typed.Details()
	}
	if typed.Code() == apperr.CodeInternal {
		body.Message = meta.PublicMessage
		logger.Error("request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err,
		)
	} else {
		logger.Debug("request rejected",
			"path", c.FullPath(),
			"code", typed.Code(),
			"error", err,
		)
	}

	c.AbortWithStatusJSON(meta.HTTPStatus, ErrorResponse{Error: body})
}

// ParamID reads a positive integer path parameter.
func ParamID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.New(apperr.CodeValidation, "invalid "+name)
	}
	return id, nil
}

// Pagination reads limit and offset query parameters. Zero values are left
// for the repository to default.
func Pagination(c *gin.Context) (limit, offset int, err error) {
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return 0, 0, apperr.New(apperr.CodeValidation, "limit must be a non-negative integer")
		}
	}
	if raw := c.Query("offset"); raw != "" {
		offset, err = strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return 0, 0, apperr.New(apperr.CodeValidation, "offset must be a non-negative integer")
		}
	}
	return limit, offset, nil
}

// QueryTime reads an optional RFC 3339 timestamp or YYYY-MM-DD date.
func QueryTime(c *gin.Context, name string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, apperr.New(apperr.CodeValidation, name+" must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
}

// QueryID reads an optional positive integer query parameter.
func QueryID(c *gin.Context, name string) (*int64, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, apperr.New(apperr.CodeValidation, "invalid "+name)
	}
	return &id, nil
}
