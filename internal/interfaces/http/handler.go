package http

import (
	"errors"
	"net/http"
	"strconv"

	"autoforward/internal/entities"
	"autoforward/internal/infrastructure"
	"autoforward/internal/repository"
	"autoforward/internal/usecases"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
)

// Handler exposes the forwarding pipeline's operations over HTTP. This is
// the command layer: it only calls into the registry and repositories, never
// into the dispatcher's hot path.
type Handler struct {
	registry  *usecases.Registry
	stats     *infrastructure.ForwardStats
	statsRepo *repository.StatsRepository
	botName   string // bot username for the t.me deep link QR
}

func NewHandler(registry *usecases.Registry, stats *infrastructure.ForwardStats, statsRepo *repository.StatsRepository, botName string) *Handler {
	return &Handler{
		registry:  registry,
		stats:     stats,
		statsRepo: statsRepo,
		botName:   botName,
	}
}

func SetupRoutes(r *gin.Engine, h *Handler, auth *usecases.AuthUsecase, middleware *Middleware) {
	// Apply Security Middleware
	r.Use(SecurityHeaders())
	r.Use(RequestSizeLimiter(1 << 20)) // 1MB max request size
	r.Use(middleware.CORSMiddleware())

	// Public Auth Routes
	authGroup := r.Group("/api/auth")
	{
		authGroup.POST("/login", func(c *gin.Context) {
			var loginReq struct {
				Username string `json:"username"`
				Password string `json:"password"`
			}
			if err := c.ShouldBindJSON(&loginReq); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
				return
			}
			token, err := auth.Login(loginReq.Username, loginReq.Password)
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"token": token})
		})
	}

	// Bot deep-link QR, public so it can be embedded anywhere
	r.GET("/api/qr", h.GetBotQR)

	// Protected Routes
	api := r.Group("/api")
	api.Use(middleware.AuthRequired())
	api.Use(middleware.RateLimitPerUser(5, 10))
	{
		api.GET("/users", h.ListUsers)
		api.POST("/users", h.RegisterUser)
		api.GET("/users/:id", h.GetUser)
		api.DELETE("/users/:id", h.DeleteUser)

		api.PUT("/users/:id/enabled", h.SetEnabled)
		api.PUT("/users/:id/settings", h.UpdateSettings)

		api.POST("/users/:id/sources", h.AddSource)
		api.DELETE("/users/:id/sources/:chat", h.RemoveSource)
		api.POST("/users/:id/targets", h.AddTarget)
		api.DELETE("/users/:id/targets/:chat", h.RemoveTarget)

		api.POST("/users/:id/blacklist", h.AddBlacklist)
		api.DELETE("/users/:id/blacklist/:keyword", h.RemoveBlacklist)
		api.POST("/users/:id/whitelist", h.AddWhitelist)
		api.DELETE("/users/:id/whitelist/:keyword", h.RemoveWhitelist)

		api.POST("/users/:id/replacements/usernames", h.AddUsernameReplacement)
		api.DELETE("/users/:id/replacements/usernames/:original", h.RemoveUsernameReplacement)
		api.POST("/users/:id/replacements/links", h.AddLinkReplacement)
		api.DELETE("/users/:id/replacements/links/:original", h.RemoveLinkReplacement)

		api.GET("/users/:id/stats", h.GetUserStats)
		api.POST("/users/:id/preview", h.PreviewTransform)
	}
}

func userIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return 0, false
	}
	return id, true
}

// respondMutation maps registry errors onto HTTP statuses
func respondMutation(c *gin.Context, err error) {
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	case errors.Is(err, usecases.ErrConfigNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
	case errors.Is(err, usecases.ErrPersistence):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Storage failure, change not applied"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (h *Handler) ListUsers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"users": h.registry.All()})
}

func (h *Handler) RegisterUser(c *gin.Context) {
	var req struct {
		UserID    int64  `json:"user_id" binding:"required"`
		FirstName string `json:"first_name"`
		Username  string `json:"username"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	req.FirstName = SanitizeString(TruncateString(req.FirstName, MaxNameLength))
	req.Username = SanitizeString(TruncateString(req.Username, MaxNameLength))
	respondMutation(c, h.registry.EnsureUser(req.UserID, req.FirstName, req.Username))
}

func (h *Handler) GetUser(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}
	cfg, found := h.registry.Get(id)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (h *Handler) DeleteUser(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}
	if err := h.registry.DeleteUser(id); err != nil {
		respondMutation(c, err)
		return
	}
	h.stats.Forget(id)
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *Handler) SetEnabled(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	respondMutation(c, h.registry.SetEnabled(id, req.Enabled))
}

func (h *Handler) UpdateSettings(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}
	var s entities.Settings
	if err := c.ShouldBindJSON(&s); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	respondMutation(c, h.registry.UpdateSettings(id, s))
}

func (h *Handler) bindChannel(c *gin.Context) (int64, entities.ChatRef, bool) {
	id, ok := userIDParam(c)
	if !ok {
		return 0, entities.ChatRef{}, false
	}
	var req struct {
		ChatID int64  `json:"chat_id" binding:"required"`
		Name   string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return 0, entities.ChatRef{}, false
	}
	name := SanitizeString(TruncateString(req.Name, MaxNameLength))
	return id, entities.ChatRef{ChatID: req.ChatID, Name: name}, true
}

func (h *Handler) AddSource(c *gin.Context) {
	id, ref, ok := h.bindChannel(c)
	if !ok {
		return
	}
	respondMutation(c, h.registry.UpsertSource(id, ref))
}

func chatParam(c *gin.Context) (int64, bool) {
	chatID, err := strconv.ParseInt(c.Param("chat"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid chat id"})
		return 0, false
	}
	return chatID, true
}

func (h *Handler) RemoveSource(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}
	chatID, ok := chatParam(c)
	if !ok {
		return
	}
	respondMutation(c, h.registry.RemoveSource(id, chatID))
}

func (h *Handler) AddTarget(c *gin.Context) {
	id, ref, ok := h.bindChannel(c)
	if !ok {
		return
	}
	respondMutation(c, h.registry.UpsertTarget(id, ref))
}

func (h *Handler) RemoveTarget(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}
	chatID, ok := chatParam(c)
	if !ok {
		return
	}
	respondMutation(c, h.registry.RemoveTarget(id, chatID))
}

func (h *Handler) bindKeyword(c *gin.Context) (int64, string, bool) {
	id, ok := userIDParam(c)
	if !ok {
		return 0, "", false
	}
	var req struct {
		Keyword string `json:"keyword" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return 0, "", false
	}
	keyword := SanitizeString(req.Keyword)
	if !ValidKeyword(keyword) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid keyword"})
		return 0, "", false
	}
	return id, keyword, true
}

func (h *Handler) AddBlacklist(c *gin.Context) {
	id, keyword, ok := h.bindKeyword(c)
	if !ok {
		return
	}
	respondMutation(c, h.registry.AddBlacklist(id, keyword))
}

func (h *Handler) RemoveBlacklist(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}
	respondMutation(c, h.registry.RemoveBlacklist(id, c.Param("keyword")))
}

func (h *Handler) AddWhitelist(c *gin.Context) {
	id, keyword, ok := h.bindKeyword(c)
	if !ok {
		return
	}
	respondMutation(c, h.registry.AddWhitelist(id, keyword))
}

func (h *Handler) RemoveWhitelist(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}
	respondMutation(c, h.registry.RemoveWhitelist(id, c.Param("keyword")))
}

func (h *Handler) bindReplacement(c *gin.Context) (int64, entities.Replacement, bool) {
	id, ok := userIDParam(c)
	if !ok {
		return 0, entities.Replacement{}, false
	}
	var req struct {
		Original    string `json:"original" binding:"required"`
		Replacement string `json:"replacement"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return 0, entities.Replacement{}, false
	}
	rep := entities.Replacement{
		Original:    SanitizeString(TruncateString(req.Original, MaxReplacementLength)),
		Replacement: SanitizeString(TruncateString(req.Replacement, MaxReplacementLength)),
	}
	if rep.Original == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Original must not be empty"})
		return 0, entities.Replacement{}, false
	}
	return id, rep, true
}

func (h *Handler) AddUsernameReplacement(c *gin.Context) {
	id, rep, ok := h.bindReplacement(c)
	if !ok {
		return
	}
	respondMutation(c, h.registry.AddUsernameReplacement(id, rep))
}

func (h *Handler) RemoveUsernameReplacement(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}
	respondMutation(c, h.registry.RemoveUsernameReplacement(id, c.Param("original")))
}

func (h *Handler) AddLinkReplacement(c *gin.Context) {
	id, rep, ok := h.bindReplacement(c)
	if !ok {
		return
	}
	respondMutation(c, h.registry.AddLinkReplacement(id, rep))
}

func (h *Handler) RemoveLinkReplacement(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}
	respondMutation(c, h.registry.RemoveLinkReplacement(id, c.Param("original")))
}

// GetUserStats returns live counters plus the last 30 days of history
func (h *Handler) GetUserStats(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}
	if _, found := h.registry.Get(id); !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	live := h.stats.Snapshot(id)
	history, err := h.statsRepo.GetHistory(id, 30)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"live": &live, "history": history})
}

// PreviewTransform runs a text through the user's transform chain and filter
// without sending anything, so rules can be checked from the dashboard.
func (h *Handler) PreviewTransform(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	transformed, err := h.registry.Transform(id, TruncateString(req.Text, MaxPreviewLength))
	if err != nil {
		respondMutation(c, err)
		return
	}
	passes, _ := h.registry.PassesFor(id, transformed)
	c.JSON(http.StatusOK, gin.H{"text": transformed, "passes": passes})
}

// GetBotQR returns a QR code PNG pointing at the bot's t.me link
func (h *Handler) GetBotQR(c *gin.Context) {
	if h.botName == "" {
		c.String(http.StatusServiceUnavailable, "Bot not connected")
		return
	}
	png, err := qrcode.Encode("https://t.me/"+h.botName, qrcode.Medium, 256)
	if err != nil {
		c.String(http.StatusInternalServerError, "Failed to generate QR code")
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
