package handler

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/staffhub/portal/internal/portal"
	"github.com/staffhub/portal/internal/storage"
)

var allowedTypes = map[string]bool{
	".pdf":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".doc":  true,
	".docx": true,
}

func (h *Handler) registerFiles(g *gin.RouterGroup) {
	g.POST("", h.upload)
	g.GET("/url", h.fileURL)
}

// upload accepts a multipart "file" field plus a "folder" naming the workflow
// it belongs to and returns the file reference to submit with it.
func (h *Handler) upload(c *gin.Context) {
	if principal(c) == nil {
		fail(c, portal.ErrUnauthorized)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)
	folder := c.PostForm("folder")
	if !storage.Folders[folder] {
		badRequest(c, "unknown upload folder")
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "please choose a file to upload")
		return
	}
	if fh.Size > h.MaxUploadBytes {
		badRequest(c, "file is too large")
		return
	}
	if !allowedTypes[strings.ToLower(filepath.Ext(fh.Filename))] {
		badRequest(c, "only PDF, Word and image files can be uploaded")
		return
	}
	f, err := fh.Open()
	if err != nil {
		fail(c, err)
		return
	}
	defer f.Close()

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	ref, err := h.files.Upload(c.Request.Context(), folder, fh.Filename, f, fh.Size, contentType)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, "File uploaded", gin.H{"fileRef": ref, "originalFilename": fh.Filename})
}

func (h *Handler) fileURL(c *gin.Context) {
	if principal(c) == nil {
		fail(c, portal.ErrUnauthorized)
		return
	}
	ref := c.Query("ref")
	if ref == "" {
		badRequest(c, "ref is required")
		return
	}
	u, err := h.files.PresignedURL(c.Request.Context(), ref)
	if errors.Is(err, storage.ErrNotFound) {
		fail(c, portal.Errorf(portal.KindNotFound, "file not found"))
		return
	}
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "", gin.H{"url": u})
}
