package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/staffhub/portal/internal/portal/service"
)

func (h *Handler) registerHR(v1 *gin.RouterGroup) {
	v1.POST("/hr-records", func(c *gin.Context) {
		var in service.HRRecordInput
		if !bind(c, &in) {
			return
		}
		rec, err := h.svc.CreateHRRecord(c.Request.Context(), principal(c), in)
		if err != nil {
			fail(c, err)
			return
		}
		respond(c, http.StatusCreated, "HR record created", rec)
	})
	v1.GET("/me/hr-records", func(c *gin.Context) {
		list, err := h.svc.MyHRRecords(c.Request.Context(), principal(c))
		if err != nil {
			fail(c, err)
			return
		}
		respond(c, http.StatusOK, "", list)
	})
	v1.GET("/users/:id/hr-records", func(c *gin.Context) {
		list, err := h.svc.HRRecordsOf(c.Request.Context(), principal(c), c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		respond(c, http.StatusOK, "", list)
	})
	v1.POST("/hr-records/:id/acknowledge", func(c *gin.Context) {
		var in service.AcknowledgeInput
		if !bind(c, &in) {
			return
		}
		rec, err := h.svc.Acknowledge(c.Request.Context(), principal(c), c.Param("id"), in)
		if err != nil {
			fail(c, err)
			return
		}
		respond(c, http.StatusOK, "Thank you, your acknowledgment has been recorded", rec)
	})
}
