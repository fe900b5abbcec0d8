package main

import (
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// newSiteRouter builds the origin site: the app shell, the resume document,
// the portfolio content under /api/ and the contact form.
func newSiteRouter(cfg SiteConfig, contact *contactService, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(log.Named("site")))
	r.LoadHTMLGlob(cfg.Templates)

	r.Static("/static", cfg.Static)
	r.StaticFile("/manifest.json", filepath.Join(cfg.Static, "manifest.json"))
	r.StaticFile("/logo.svg", filepath.Join(cfg.Static, "logo.svg"))
	r.StaticFile("/resume.pdf", filepath.Join(cfg.Static, "resume.pdf"))

	index := func(c *gin.Context) {
		c.HTML(http.StatusOK, "index.html", gin.H{
			"profile":        profile,
			"experiences":    experiences,
			"projects":       projects,
			"skills":         skillCategories,
			"certifications": certifications,
			"year":           time.Now().Year(),
		})
	}
	r.GET("/", index)
	r.GET("/index.html", index)

	api := r.Group("/api")
	api.GET("/profile", func(c *gin.Context) {
		c.JSON(http.StatusOK, profile)
	})
	api.GET("/experience", func(c *gin.Context) {
		c.JSON(http.StatusOK, experiences)
	})
	api.GET("/projects", func(c *gin.Context) {
		category := c.Query("category")
		if category == "" {
			c.JSON(http.StatusOK, projects)
			return
		}
		filtered := []Project{}
		for _, p := range projects {
			if p.Category == category {
				filtered = append(filtered, p)
			}
		}
		c.JSON(http.StatusOK, filtered)
	})
	api.GET("/skills", func(c *gin.Context) {
		c.JSON(http.StatusOK, skillCategories)
	})
	api.GET("/certifications", func(c *gin.Context) {
		c.JSON(http.StatusOK, certifications)
	})
	api.POST("/contact", contact.handleContact)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// SPA routes fall back to the shell document.
	r.NoRoute(func(c *gin.Context) {
		if c.Request.Method == http.MethodGet && c.GetHeader("Sec-Fetch-Mode") == "navigate" {
			index(c)
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return r
}
