package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/staffhub/portal/internal/portal"
	"github.com/staffhub/portal/internal/portal/service"
)

func (h *Handler) registerDocuments(v1 *gin.RouterGroup) {
	v1.GET("/documents", h.listDocuments)
	v1.POST("/documents", h.createDocument)
	v1.GET("/documents/:id", h.getDocument)
	v1.PUT("/documents/:id", h.updateDocument)
	v1.DELETE("/documents/:id", h.deleteDocument)
	v1.POST("/documents/:id/assignments", h.assignDocument)
	v1.POST("/documents/:id/assignments/all", h.assignDocumentToAll)

	v1.GET("/me/documents", h.myDocuments)
	v1.PUT("/documents/:id/draft", h.saveDraft)
	v1.POST("/documents/:id/submit", h.submit)
}

func (h *Handler) listDocuments(c *gin.Context) {
	list, err := h.svc.ListDocuments(c.Request.Context(), principal(c), portal.DocumentKind(c.Query("kind")))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "", list)
}

func (h *Handler) createDocument(c *gin.Context) {
	var in service.DocumentInput
	if !bind(c, &in) {
		return
	}
	d, err := h.svc.CreateDocument(c.Request.Context(), principal(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, "Document created", d)
}

func (h *Handler) getDocument(c *gin.Context) {
	d, err := h.svc.GetDocument(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "", d)
}

func (h *Handler) updateDocument(c *gin.Context) {
	var in service.DocumentInput
	if !bind(c, &in) {
		return
	}
	d, err := h.svc.UpdateDocument(c.Request.Context(), principal(c), c.Param("id"), in)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Document updated", d)
}

func (h *Handler) deleteDocument(c *gin.Context) {
	if err := h.svc.DeleteDocument(c.Request.Context(), principal(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Document deleted", nil)
}

func (h *Handler) assignDocument(c *gin.Context) {
	var req struct {
		UserID string `json:"userId"`
	}
	if !bind(c, &req) {
		return
	}
	if req.UserID == "" {
		badRequest(c, "userId is required")
		return
	}
	created, err := h.svc.AssignToUser(c.Request.Context(), principal(c), c.Param("id"), req.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	if !created {
		respond(c, http.StatusOK, "This document is already assigned to that user", gin.H{"assigned": false})
		return
	}
	respond(c, http.StatusCreated, "Document assigned", gin.H{"assigned": true})
}

func (h *Handler) assignDocumentToAll(c *gin.Context) {
	n, err := h.svc.AssignToAllActiveStaff(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	msg := "Everyone already has this document"
	if n > 0 {
		msg = "Document assigned to all active staff"
	}
	respond(c, http.StatusOK, msg, gin.H{"assigned": n})
}

func (h *Handler) myDocuments(c *gin.Context) {
	list, err := h.svc.MyDocuments(c.Request.Context(), principal(c))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "", list)
}

func (h *Handler) saveDraft(c *gin.Context) {
	var in service.DraftInput
	if !bind(c, &in) {
		return
	}
	sub, err := h.svc.SaveDraft(c.Request.Context(), principal(c), c.Param("id"), in)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Draft saved", sub)
}

func (h *Handler) submit(c *gin.Context) {
	var in service.SubmitInput
	if !bind(c, &in) {
		return
	}
	sub, err := h.svc.Submit(c.Request.Context(), principal(c), c.Param("id"), in)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Document submitted for review", sub)
}

func (h *Handler) registerReview(v1 *gin.RouterGroup) {
	v1.GET("/submissions/pending", func(c *gin.Context) {
		list, err := h.svc.PendingReviews(c.Request.Context(), principal(c))
		if err != nil {
			fail(c, err)
			return
		}
		respond(c, http.StatusOK, "", list)
	})
	v1.GET("/submissions/feed", func(c *gin.Context) {
		list, err := h.svc.Feed(c.Request.Context(), principal(c))
		if err != nil {
			fail(c, err)
			return
		}
		respond(c, http.StatusOK, "", list)
	})
	v1.POST("/submissions/:id/review", h.review)
	v1.GET("/audit", func(c *gin.Context) {
		list, err := h.svc.AuditTrail(c.Request.Context(), principal(c), c.Query("subjectType"), c.Query("subjectId"))
		if err != nil {
			fail(c, err)
			return
		}
		respond(c, http.StatusOK, "", list)
	})
}

func (h *Handler) review(c *gin.Context) {
	var req struct {
		Approved      *bool  `json:"approved"`
		AdminComments string `json:"adminComments"`
	}
	if !bind(c, &req) {
		return
	}
	if req.Approved == nil {
		badRequest(c, "approved is required")
		return
	}
	sub, err := h.svc.Review(c.Request.Context(), principal(c), c.Param("id"), *req.Approved, req.AdminComments)
	if err != nil {
		fail(c, err)
		return
	}
	msg := "Document rejected and returned to the staff member"
	if *req.Approved {
		msg = "Document approved"
	}
	respond(c, http.StatusOK, msg, sub)
}
