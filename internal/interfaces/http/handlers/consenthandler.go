package handlers

import (
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orris-inc/gatekeeper/internal/infrastructure/document"
)

var consentPage = template.Must(template.New("consent").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Consent document v{{.Version}}</title>
<style>body{max-width:46rem;margin:2rem auto;padding:0 1rem;font-family:system-ui,sans-serif;line-height:1.5}</style>
</head>
<body>
<p><small>Version {{.Version}}</small></p>
{{.Body}}
</body>
</html>
`))

// ConsentHandler serves the consent document members agree to.
type ConsentHandler struct {
	doc *document.Document
}

func NewConsentHandler(doc *document.Document) *ConsentHandler {
	return &ConsentHandler{doc: doc}
}

// Document handles GET /consent/document.
func (h *ConsentHandler) Document(c *gin.Context) {
	if h.doc == nil {
		c.String(http.StatusNotFound, "consent document not configured")
		return
	}
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	_ = consentPage.Execute(c.Writer, struct {
		Version string
		Body    template.HTML
	}{
		Version: h.doc.Version,
		// already sanitized by the document renderer
		Body: template.HTML(h.doc.HTML),
	})
}
