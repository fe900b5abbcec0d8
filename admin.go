package main

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kkpolisetty/portfolio/offline"
)

const adminCookie = "admin_token"

// cacheAdmin is the part of the edge the admin API operates on.
type cacheAdmin interface {
	Stores(ctx context.Context) ([]StoreInfo, error)
	Upgrade(ctx context.Context, shell, runtime string) error
	DeleteStore(ctx context.Context, name string) error
	Controller() *offline.Controller
}

type adminLogin struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

type cacheUpgrade struct {
	Shell   string `json:"shell" binding:"required,nefield=Runtime"`
	Runtime string `json:"runtime" binding:"required"`
}

// adminHandler serves the cache administration API on the edge. Client
// addresses are only ever logged hashed.
type adminHandler struct {
	cfg    AdminConfig
	token  string
	salt   string
	caches cacheAdmin
	log    *zap.Logger
}

func newAdminHandler(cfg AdminConfig, caches cacheAdmin, log *zap.Logger) (*adminHandler, error) {
	token, err := generateAdminToken()
	if err != nil {
		return nil, err
	}
	salt, err := generateAdminToken()
	if err != nil {
		return nil, err
	}
	h := &adminHandler{cfg: cfg, token: token, salt: salt, caches: caches, log: log.Named("admin")}
	if cfg.Password == "" {
		h.log.Warn("ADMIN_PASSWORD not set, admin login disabled")
	}
	return h, nil
}

func generateAdminToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// hashIP is stable for the lifetime of the process.
func (h *adminHandler) hashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip + h.salt))
	return hex.EncodeToString(sum[:])[:16]
}

func (h *adminHandler) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(adminCookie)
		if err != nil || subtle.ConstantTimeCompare([]byte(token), []byte(h.token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func (h *adminHandler) register(r gin.IRouter) {
	r.POST("/admin/login", h.login)
	r.POST("/admin/logout", h.logout)

	g := r.Group("/admin/api")
	g.Use(h.authMiddleware())
	g.GET("/caches", h.listCaches)
	g.POST("/caches/upgrade", h.upgrade)
	g.DELETE("/caches/:name", h.deleteCache)
}

func (h *adminHandler) login(c *gin.Context) {
	var req adminLogin
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(h.cfg.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.cfg.Password)) == 1
	if h.cfg.Password == "" || !userOK || !passOK {
		h.log.Warn("Failed admin login attempt", zap.String("client", h.hashIP(c.ClientIP())))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(adminCookie, h.token, 3600*24, "/admin", "", false, true)
	h.log.Info("Admin login successful", zap.String("client", h.hashIP(c.ClientIP())))
	c.JSON(http.StatusOK, gin.H{"message": "logged in"})
}

func (h *adminHandler) logout(c *gin.Context) {
	c.SetCookie(adminCookie, "", -1, "/admin", "", false, true)
	h.log.Info("Admin logout", zap.String("client", h.hashIP(c.ClientIP())))
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (h *adminHandler) listCaches(c *gin.Context) {
	stores, err := h.caches.Stores(c.Request.Context())
	if err != nil {
		h.log.Error("Error listing cache stores", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list cache stores"})
		return
	}

	resp := gin.H{"state": "none", "stores": stores}
	if ctrl := h.caches.Controller(); ctrl != nil {
		cfg := ctrl.Config()
		resp["state"] = ctrl.State().String()
		resp["shell"] = cfg.ShellVersion
		resp["runtime"] = cfg.RuntimeVersion
	}
	c.JSON(http.StatusOK, resp)
}

func (h *adminHandler) upgrade(c *gin.Context) {
	var req cacheUpgrade
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "shell and runtime must be set and differ"})
		return
	}
	if err := h.caches.Upgrade(c.Request.Context(), req.Shell, req.Runtime); err != nil {
		h.log.Error("Cache upgrade failed", zap.String("shell", req.Shell), zap.String("runtime", req.Runtime), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cache upgrade failed"})
		return
	}
	h.log.Info("Cache upgraded by admin",
		zap.String("shell", req.Shell),
		zap.String("runtime", req.Runtime),
		zap.String("client", h.hashIP(c.ClientIP())))
	c.JSON(http.StatusOK, gin.H{"shell": req.Shell, "runtime": req.Runtime})
}

func (h *adminHandler) deleteCache(c *gin.Context) {
	name := c.Param("name")
	err := h.caches.DeleteStore(c.Request.Context(), name)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"message": "Cache store deleted"})
	case errors.Is(err, errStoreInUse):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, offline.ErrStoreNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Cache store not found"})
	default:
		h.log.Error("Error deleting cache store", zap.String("store", name), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete cache store"})
	}
}
