// Package handler exposes the portal workflows over HTTP.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/staffhub/portal/internal/access"
	"github.com/staffhub/portal/internal/models"
	"github.com/staffhub/portal/internal/notify"
	"github.com/staffhub/portal/internal/portal"
	"github.com/staffhub/portal/internal/portal/service"
	"github.com/staffhub/portal/internal/storage"
	"github.com/staffhub/portal/pkg/logger"
	"github.com/staffhub/portal/pkg/middleware"
)

// Users is the user administration the API exposes to admins.
type Users interface {
	ActiveStaff(ctx context.Context) ([]*models.User, error)
	Deactivate(ctx context.Context, id string) error
}

// Inbox lists a user's notifications.
type Inbox interface {
	ForUser(ctx context.Context, userID string, limit int64) ([]*notify.Notification, error)
}

type Handler struct {
	svc   *service.Service
	users Users
	inbox Inbox
	files storage.FileStore
	authz access.Authorizer

	// MaxUploadBytes caps POST /api/files bodies.
	MaxUploadBytes int64
}

func New(svc *service.Service, users Users, inbox Inbox, files storage.FileStore) *Handler {
	return &Handler{
		svc:            svc,
		users:          users,
		inbox:          inbox,
		files:          files,
		authz:          access.DefaultAuthorizer(),
		MaxUploadBytes: 20 << 20,
	}
}

// Register mounts the API on api, which is expected to be the "/api" group
// with authentication and principal resolution already applied.
func (h *Handler) Register(api *gin.RouterGroup) {
	h.registerFiles(api.Group("/files"))

	v1 := api.Group("/v1")
	v1.GET("/me", h.me)
	v1.GET("/me/notifications", h.myNotifications)

	h.registerDocuments(v1)
	h.registerReview(v1)
	h.registerHR(v1)
	h.registerTraining(v1)
	h.registerUsers(v1)
}

// StatusFor maps an error kind onto its HTTP status.
func StatusFor(k portal.Kind) int {
	switch k {
	case portal.KindUnauthorized:
		return http.StatusUnauthorized
	case portal.KindForbidden:
		return http.StatusForbidden
	case portal.KindNotFound:
		return http.StatusNotFound
	case portal.KindInvalidState, portal.KindAlreadyApproved:
		return http.StatusConflict
	case portal.KindValidation:
		return http.StatusBadRequest
	case portal.KindVideoNotWatched:
		return http.StatusPreconditionFailed
	}
	return http.StatusInternalServerError
}

func respond(c *gin.Context, status int, msg string, data interface{}) {
	body := gin.H{"success": true}
	if msg != "" {
		body["message"] = msg
	}
	if data != nil {
		body["data"] = data
	}
	c.JSON(status, body)
}

func fail(c *gin.Context, err error) {
	r := portal.Failed(err)
	if r.Code == portal.KindInternal {
		logger.With("method", c.Request.Method, "path", c.FullPath(), "error", err).Error("request failed")
	}
	c.AbortWithStatusJSON(StatusFor(r.Code), gin.H{"success": false, "code": r.Code, "error": r.Message})
}

func badRequest(c *gin.Context, msg string) {
	fail(c, portal.Errorf(portal.KindValidation, "%s", msg))
}

// bind decodes a JSON body; an empty body leaves v untouched.
func bind(c *gin.Context, v interface{}) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(v); err != nil {
		logger.Debugf("bad request body on %s: %v", c.FullPath(), err)
		badRequest(c, "invalid request body")
		return false
	}
	return true
}

func principal(c *gin.Context) *access.Principal { return middleware.Principal(c) }

// allow checks a capability for endpoints that have no service operation behind them.
func (h *Handler) allow(c *gin.Context, capability access.Capability) bool {
	switch err := h.authz.Require(principal(c), capability); {
	case err == nil:
		return true
	case errors.Is(err, access.ErrUnauthorized):
		fail(c, portal.ErrUnauthorized)
	default:
		fail(c, portal.ErrForbidden)
	}
	return false
}

func (h *Handler) me(c *gin.Context) {
	p := principal(c)
	if p == nil {
		fail(c, portal.ErrUnauthorized)
		return
	}
	respond(c, http.StatusOK, "", gin.H{"id": p.ID, "role": p.Role, "name": p.Name})
}

func (h *Handler) myNotifications(c *gin.Context) {
	p := principal(c)
	if p == nil {
		fail(c, portal.ErrUnauthorized)
		return
	}
	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)
	if err != nil || limit <= 0 || limit > 200 {
		badRequest(c, "limit must be between 1 and 200")
		return
	}
	list, err := h.inbox.ForUser(c.Request.Context(), p.ID, limit)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "", list)
}

func (h *Handler) registerUsers(v1 *gin.RouterGroup) {
	v1.GET("/users", func(c *gin.Context) {
		if !h.allow(c, access.ManageUsers) {
			return
		}
		list, err := h.users.ActiveStaff(c.Request.Context())
		if err != nil {
			fail(c, err)
			return
		}
		respond(c, http.StatusOK, "", list)
	})
	v1.POST("/users/:id/deactivate", func(c *gin.Context) {
		if !h.allow(c, access.ManageUsers) {
			return
		}
		if c.Param("id") == principal(c).ID {
			badRequest(c, "you cannot deactivate your own account")
			return
		}
		if err := h.users.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
			fail(c, err)
			return
		}
		respond(c, http.StatusOK, "User deactivated", nil)
	})
}
