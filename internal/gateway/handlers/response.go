package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"floorsync-system/internal/domain"
	"floorsync-system/internal/gateway/middleware"
)

type APIError struct {
	Kind domain.Kind `json:"kind"`
	Code string      `json:"code,omitempty"`
}

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

func success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

func created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{Success: true, Data: data})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, APIResponse{
		Success: false,
		Message: message,
		Error:   &APIError{Kind: domain.KindValidation},
	})
}

var statusByKind = map[domain.Kind]int{
	domain.KindNotFound:          http.StatusNotFound,
	domain.KindConflict:          http.StatusConflict,
	domain.KindValidation:        http.StatusBadRequest,
	domain.KindAuthentication:    http.StatusUnauthorized,
	domain.KindInvalidTransition: http.StatusUnprocessableEntity,
}

// fail writes the envelope for a coordinator error. Internal errors are
// logged by the coordinator and reported without detail.
func fail(c *gin.Context, err error) {
	var de *domain.Error
	if !errors.As(err, &de) || de.Kind == domain.KindInternal {
		c.JSON(http.StatusInternalServerError, APIResponse{
			Success: false,
			Message: "internal server error",
			Error:   &APIError{Kind: domain.KindInternal},
		})
		return
	}
	status, ok := statusByKind[de.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	c.JSON(status, APIResponse{
		Success: false,
		Message: de.Message,
		Error:   &APIError{Kind: de.Kind, Code: de.Code},
	})
}

// restaurantID is the restaurant in the caller's token. TenantScope has
// already rejected a restaurantId query naming any other.
func restaurantID(c *gin.Context) string {
	if claims := middleware.Claims(c); claims != nil {
		return claims.RestaurantID
	}
	return ""
}

// ownRestaurant resolves a restaurantId given in a request body. An empty
// id means the caller's restaurant; any other restaurant is refused.
func ownRestaurant(c *gin.Context, id string) (string, bool) {
	tenant := restaurantID(c)
	if id != "" && id != tenant {
		middleware.Forbidden(c, "token is not valid for restaurant "+id)
		return "", false
	}
	return tenant, true
}

// owned fails the request unless a lookup succeeded and the row belongs
// to the caller's restaurant. Other tenants' rows read as not found.
func owned(c *gin.Context, err error, owner string, entity, id string) bool {
	if err == nil && owner != restaurantID(c) {
		err = domain.NotFound(entity, id)
	}
	if err != nil {
		fail(c, err)
		return false
	}
	return true
}

func parseIntQuery(c *gin.Context, param string) (int, error) {
	str := c.Query(param)
	if str == "" {
		return 0, nil
	}
	return strconv.Atoi(str)
}

func parseTimeQuery(c *gin.Context, param string) (*time.Time, error) {
	str := c.Query(param)
	if str == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, str); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", str)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
