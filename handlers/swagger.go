package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger serves the OpenAPI document and a Swagger UI page.
// - GET /swagger/index.html
// - GET /swagger/doc.json
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>staffportal API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "staffportal", "version": "v1.0.0" },
  "components": {
    "securitySchemes": { "bearer": { "type": "http", "scheme": "bearer", "bearerFormat": "JWT" } },
    "schemas": {
      "Envelope": { "type": "object", "properties": { "success": {"type":"boolean"}, "message": {"type":"string"}, "data": {} } },
      "Failure": { "type": "object", "properties": { "success": {"type":"boolean"}, "code": {"type":"string", "enum": ["unauthorized","forbidden","not_found","validation","invalid_state","already_approved","video_not_watched","internal"]}, "error": {"type":"string"} } }
    }
  },
  "security": [ { "bearer": [] } ],
  "paths": {
    "/auth/session": {
      "post": {
        "summary": "Start a session from an ID token, authorization code or password grant",
        "security": [],
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"mode":{"type":"string","enum":["id_token","auth_code","password"]},"id_token":{"type":"string"},"code":{"type":"string"},"redirect_uri":{"type":"string"},"username":{"type":"string"},"password":{"type":"string"}}}}}},
        "responses": { "200": { "description": "access and refresh tokens" }, "401": { "description": "authentication failed" }, "403": { "description": "account deactivated" } }
      }
    },
    "/auth/refresh": {
      "post": { "summary": "Refresh access token", "security": [], "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refresh_token":{"type":"string"}}}}}}, "responses": { "200": { "description": "new access token" }, "401": { "description": "invalid refresh" } } }
    },
    "/auth/logout": {
      "post": { "summary": "Revoke the refresh token and blacklist the access token", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refresh_token":{"type":"string"}}}}}}, "responses": { "200": { "description": "logged out" } } }
    },
    "/api/v1/me": { "get": { "summary": "Calling user", "responses": { "200": { "description": "user" } } } },
    "/api/v1/me/notifications": { "get": { "summary": "Recent notifications", "parameters": [{"name":"limit","in":"query","schema":{"type":"integer","minimum":1,"maximum":200}}], "responses": { "200": { "description": "notifications, newest first" } } } },
    "/api/v1/users": { "get": { "summary": "Active staff (admin)", "responses": { "200": { "description": "users" } } } },
    "/api/v1/users/{id}/deactivate": { "post": { "summary": "Deactivate a user (admin)", "responses": { "200": { "description": "deactivated" } } } },
    "/api/v1/documents": {
      "get": { "summary": "List documents (admin)", "parameters": [{"name":"kind","in":"query","schema":{"type":"string","enum":["onboarding","policy"]}}], "responses": { "200": { "description": "documents" } } },
      "post": { "summary": "Create document (admin)", "responses": { "201": { "description": "created" }, "400": { "description": "validation" } } }
    },
    "/api/v1/documents/{id}": {
      "get": { "summary": "Get document", "responses": { "200": { "description": "document" }, "404": { "description": "not found" } } },
      "put": { "summary": "Update document (admin)", "responses": { "200": { "description": "updated" } } },
      "delete": { "summary": "Delete document (admin)", "responses": { "200": { "description": "deleted" }, "409": { "description": "progress exists" } } }
    },
    "/api/v1/documents/{id}/assignments": { "post": { "summary": "Assign to one user (admin)", "responses": { "201": { "description": "assigned" }, "200": { "description": "already assigned" } } } },
    "/api/v1/documents/{id}/assignments/all": { "post": { "summary": "Assign to every active staff member (admin)", "responses": { "200": { "description": "assignment count" } } } },
    "/api/v1/me/documents": { "get": { "summary": "Assigned documents with submission status", "responses": { "200": { "description": "documents" } } } },
    "/api/v1/documents/{id}/draft": { "put": { "summary": "Save draft", "responses": { "200": { "description": "saved" }, "409": { "description": "invalid state" } } } },
    "/api/v1/documents/{id}/submit": { "post": { "summary": "Submit for review", "responses": { "200": { "description": "submitted" }, "409": { "description": "invalid state or already approved" } } } },
    "/api/v1/submissions/pending": { "get": { "summary": "Submissions awaiting review (admin)", "responses": { "200": { "description": "submissions" } } } },
    "/api/v1/submissions/feed": { "get": { "summary": "Recent activity feed (admin)", "responses": { "200": { "description": "feed entries" } } } },
    "/api/v1/submissions/{id}/review": { "post": { "summary": "Approve or reject (admin)", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"approved":{"type":"boolean"},"adminComments":{"type":"string"}}}}}}, "responses": { "200": { "description": "reviewed" } } } },
    "/api/v1/audit": { "get": { "summary": "Audit trail of a subject (admin)", "parameters": [{"name":"subjectType","in":"query","required":true,"schema":{"type":"string"}},{"name":"subjectId","in":"query","required":true,"schema":{"type":"string"}}], "responses": { "200": { "description": "audit entries, oldest first" }, "400": { "description": "missing subject" }, "403": { "description": "forbidden" } } } },
    "/api/v1/hr-records": { "post": { "summary": "Create HR record (admin)", "responses": { "201": { "description": "created" } } } },
    "/api/v1/me/hr-records": { "get": { "summary": "Own HR records", "responses": { "200": { "description": "records" } } } },
    "/api/v1/users/{id}/hr-records": { "get": { "summary": "HR records of a user (admin)", "responses": { "200": { "description": "records" } } } },
    "/api/v1/hr-records/{id}/acknowledge": { "post": { "summary": "Acknowledge own HR record", "responses": { "200": { "description": "acknowledged" }, "409": { "description": "already acknowledged" } } } },
    "/api/v1/training/modules": {
      "get": { "summary": "List training modules", "responses": { "200": { "description": "modules" } } },
      "post": { "summary": "Create training module (admin)", "responses": { "201": { "description": "created" } } }
    },
    "/api/v1/training/modules/{id}": {
      "get": { "summary": "Get training module", "responses": { "200": { "description": "module" } } },
      "put": { "summary": "Update training module (admin)", "responses": { "200": { "description": "updated" } } },
      "delete": { "summary": "Delete training module (admin)", "responses": { "200": { "description": "deleted" } } }
    },
    "/api/v1/training/modules/{id}/start": { "post": { "summary": "Start or restart a module", "responses": { "200": { "description": "in progress" } } } },
    "/api/v1/training/modules/{id}/video-progress": { "post": { "summary": "Report video position", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"currentTime":{"type":"number"},"duration":{"type":"number"}}}}}}, "responses": { "200": { "description": "progress and whether it was persisted" } } } },
    "/api/v1/training/modules/{id}/complete": { "post": { "summary": "Complete a module", "responses": { "200": { "description": "completed" }, "412": { "description": "video not watched" } } } },
    "/api/v1/training/assignments": { "post": { "summary": "Assign training (admin)", "responses": { "201": { "description": "assigned" } } } },
    "/api/v1/training/sweep-expired": { "post": { "summary": "Expire lapsed completions (admin)", "responses": { "200": { "description": "expired count" } } } },
    "/api/v1/me/training": { "get": { "summary": "Own training progress", "responses": { "200": { "description": "progress" } } } },
    "/api/v1/users/{id}/training": { "get": { "summary": "Training progress of a user (admin)", "responses": { "200": { "description": "progress" } } } },
    "/api/files": { "post": { "summary": "Upload a file (multipart: file, folder)", "responses": { "201": { "description": "file reference" }, "413": { "description": "too large" } } } },
    "/api/files/url": { "get": { "summary": "Presigned download URL", "parameters": [{"name":"ref","in":"query","required":true,"schema":{"type":"string"}}], "responses": { "200": { "description": "url" }, "404": { "description": "not found" } } } },
    "/health": { "get": { "summary": "Liveness check", "security": [], "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "security": [], "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "security": [], "responses": { "200": { "description": "text exposition" } } } }
  }
}`
