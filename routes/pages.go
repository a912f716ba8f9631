package routes

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var legacyRedirects = map[string]string{
	"/index.html":   "/",
	"/contact.html": "/contact",
}

var pages = map[string]string{
	"/":                 "index.html",
	"/cancel":           "cancel.html",
	"/contact":          "contact.html",
	"/privacy-policy":   "privacy-policy.html",
	"/terms-of-service": "terms-of-service.html",
	"/refund-policy":    "refund-policy.html",
	"/admin":            "admin.html",
}

// RegisterPages serves the static storefront from dir. An empty dir skips
// page routes entirely.
func RegisterPages(r *gin.Engine, dir string, logger *zap.Logger) {
	if dir == "" {
		return
	}
	pageDir := filepath.Join(dir, "pages")

	r.Static("/assets", filepath.Join(dir, "assets"))

	for path, file := range pages {
		r.GET(path, servePage(filepath.Join(pageDir, file)))
	}

	successPage := filepath.Join(pageDir, "success.html")
	r.GET("/success", func(c *gin.Context) {
		logger.Info("payment successful", zap.String("session_id", c.Query("session_id")))
		c.File(successPage)
	})

	for from, to := range legacyRedirects {
		target := to
		r.GET(from, func(c *gin.Context) {
			c.Redirect(http.StatusMovedPermanently, target)
		})
	}
}

func servePage(file string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.File(file)
	}
}
