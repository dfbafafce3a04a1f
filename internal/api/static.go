package api

import (
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/liliang-cn/billchat/internal/service"
)

// SetupStaticRoutes serves bill PDFs from pdfDir under /pdfs
func SetupStaticRoutes(r *gin.Engine, pdfDir string) {
	fs := http.Dir(pdfDir)

	r.GET("/pdfs/*filepath", func(c *gin.Context) {
		name := path.Clean("/" + c.Param("filepath"))
		if name == "/" || service.DetectFileType(name) != service.FileTypePDF {
			c.String(http.StatusNotFound, "File not found")
			return
		}
		if strings.Contains(name[1:], "/") {
			c.String(http.StatusNotFound, "File not found")
			return
		}

		f, err := fs.Open(name)
		if err != nil {
			c.String(http.StatusNotFound, "File not found")
			return
		}
		f.Close()

		c.Header("Content-Type", "application/pdf")
		c.FileFromFS(name, fs)
	})
}
