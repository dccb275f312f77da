package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/staffhub/portal/internal/access"
	"github.com/staffhub/portal/internal/portal/service"
)

func (h *Handler) registerTraining(v1 *gin.RouterGroup) {
	t := v1.Group("/training")
	t.GET("/modules", h.listModules)
	t.POST("/modules", h.createModule)
	t.GET("/modules/:id", h.getModule)
	t.PUT("/modules/:id", h.updateModule)
	t.DELETE("/modules/:id", h.deleteModule)
	t.POST("/modules/:id/start", h.startModule)
	t.POST("/modules/:id/video-progress", h.videoProgress)
	t.POST("/modules/:id/complete", h.completeModule)
	t.POST("/assignments", h.assignTraining)
	t.POST("/sweep-expired", h.sweepExpired)

	v1.GET("/me/training", func(c *gin.Context) {
		list, err := h.svc.MyTraining(c.Request.Context(), principal(c))
		if err != nil {
			fail(c, err)
			return
		}
		respond(c, http.StatusOK, "", list)
	})
	v1.GET("/users/:id/training", func(c *gin.Context) {
		list, err := h.svc.TrainingForUser(c.Request.Context(), principal(c), c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		respond(c, http.StatusOK, "", list)
	})
}

func (h *Handler) listModules(c *gin.Context) {
	list, err := h.svc.Modules(c.Request.Context(), principal(c))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "", list)
}

func (h *Handler) createModule(c *gin.Context) {
	var in service.ModuleInput
	if !bind(c, &in) {
		return
	}
	m, err := h.svc.CreateModule(c.Request.Context(), principal(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, "Training module created", m)
}

func (h *Handler) getModule(c *gin.Context) {
	m, err := h.svc.Module(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "", m)
}

func (h *Handler) updateModule(c *gin.Context) {
	var in service.ModuleInput
	if !bind(c, &in) {
		return
	}
	m, err := h.svc.UpdateModule(c.Request.Context(), principal(c), c.Param("id"), in)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Training module updated", m)
}

func (h *Handler) deleteModule(c *gin.Context) {
	if err := h.svc.DeleteModule(c.Request.Context(), principal(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Training module deleted", nil)
}

func (h *Handler) startModule(c *gin.Context) {
	p, err := h.svc.Start(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "", p)
}

func (h *Handler) videoProgress(c *gin.Context) {
	var req struct {
		CurrentTime float64 `json:"currentTime"`
		Duration    float64 `json:"duration"`
	}
	if !bind(c, &req) {
		return
	}
	vp, persisted, err := h.svc.RecordVideoProgress(c.Request.Context(), principal(c), c.Param("id"), req.CurrentTime, req.Duration)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "", gin.H{"progress": vp, "persisted": persisted})
}

func (h *Handler) completeModule(c *gin.Context) {
	var req struct {
		Score *int `json:"score"`
	}
	if !bind(c, &req) {
		return
	}
	p, err := h.svc.Complete(c.Request.Context(), principal(c), c.Param("id"), req.Score)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Training completed", p)
}

func (h *Handler) assignTraining(c *gin.Context) {
	var in service.TrainingAssignmentInput
	if !bind(c, &in) {
		return
	}
	created, err := h.svc.AssignTraining(c.Request.Context(), principal(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	if !created {
		respond(c, http.StatusOK, "This training is already assigned", gin.H{"assigned": false})
		return
	}
	respond(c, http.StatusCreated, "Training assigned", gin.H{"assigned": true})
}

func (h *Handler) sweepExpired(c *gin.Context) {
	if !h.allow(c, access.ManageTraining) {
		return
	}
	n, err := h.svc.SweepExpired(c.Request.Context(), time.Now())
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "", gin.H{"expired": n})
}
