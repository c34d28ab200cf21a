package ws

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"
)

const qrSize = 256

// RequestLogger logs every request except the socket.io polling noise.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/socket.io") {
			return
		}
		log.Info().Str("path", path).Int("status", c.Writer.Status()).Dur("dur", time.Since(start)).Msg("http")
	}
}

// Routes registers the plain HTTP endpoints next to the socket.
func (srv *Server) Routes(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC()})
	})

	r.GET("/api/state", func(c *gin.Context) {
		var st frame
		if err := srv.onLoop(func() error {
			st = srv.snapshot()
			return nil
		}); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"room": st.room, "game": st.game})
	})

	r.GET("/api/invite.png", func(c *gin.Context) {
		var (
			link string
			ok   bool
		)
		if err := srv.onLoop(func() error {
			link, ok = srv.ctl.InviteURL()
			return nil
		}); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		if !ok {
			c.Status(http.StatusNotFound)
			return
		}
		png, err := qrcode.Encode(link, qrcode.Medium, qrSize)
		if err != nil {
			log.Error().Err(err).Str("link", link).Msg("failed to encode invite")
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Header("Cache-Control", "no-store")
		c.Header("Content-Length", strconv.Itoa(len(png)))
		c.Data(http.StatusOK, "image/png", png)
	})
}
