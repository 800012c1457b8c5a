package http

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/codeshare-server/internal/identity"
	"github.com/vovakirdan/codeshare-server/internal/keygen"
)

const (
	sessUserCode = "user_code"
	sessUserName = "user_name"
	sessTheme    = "theme"
	sessColor    = "color"
	sessKey      = "key"
)

// NavHandlers implement the editor/settings routing for browsers. The cookie
// session plays the part of the browser's local settings.
type NavHandlers struct {
	log *zerolog.Logger
}

// NewNavHandlers creates the navigation handlers.
func NewNavHandlers(logger *zerolog.Logger) *NavHandlers {
	return &NavHandlers{log: logger}
}

// EditorResponse is what an editor page is rendered from.
type EditorResponse struct {
	Key      string                 `json:"key"`
	Identity identity.LocalIdentity `json:"identity"`
}

// SettingsResponse is what a settings page is rendered from.
type SettingsResponse struct {
	Key      string                 `json:"key,omitempty"`
	Identity identity.LocalIdentity `json:"identity"`
	Themes   []string               `json:"themes"`
	Colors   []string               `json:"colors"`
}

// SettingsRequest is the settings form.
type SettingsRequest struct {
	UserName string `form:"user_name" json:"user_name" binding:"required,max=64"`
	Theme    string `form:"theme" json:"theme"`
	Color    string `form:"color" json:"color"`
}

func loadIdentity(s sessions.Session) identity.LocalIdentity {
	str := func(k string) string {
		v, _ := s.Get(k).(string)
		return v
	}
	return identity.LocalIdentity{
		UserCode: str(sessUserCode),
		UserName: str(sessUserName),
		Theme:    str(sessTheme),
		Color:    str(sessColor),
		Key:      str(sessKey),
	}
}

func storeIdentity(s sessions.Session, l identity.LocalIdentity) error {
	s.Set(sessUserCode, l.UserCode)
	s.Set(sessUserName, l.UserName)
	s.Set(sessTheme, l.Theme)
	s.Set(sessColor, l.Color)
	s.Set(sessKey, l.Key)
	return s.Save()
}

// routeKey reads the optional :key and reports false after answering 400.
func routeKey(c *gin.Context) (string, bool) {
	key := c.Param("key")
	if key != "" && !keygen.Valid(key) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid room key"})
		return "", false
	}
	return key, true
}

// Editor opens a room, redirecting to settings or to a fresh key first when
// needed.
// GET /editor[/:key]
func (h *NavHandlers) Editor(c *gin.Context) {
	key, ok := routeKey(c)
	if !ok {
		return
	}
	sess := sessions.Default(c)
	local := loadIdentity(sess)

	target := identity.Route{Page: identity.PageEditor, Key: key}
	if to := identity.Resolve(target, local); to != target {
		h.log.Debug().Str("from", target.Path()).Str("to", to.Path()).Msg("editor redirect")
		c.Redirect(http.StatusSeeOther, to.Path())
		return
	}

	if local.Key != key {
		local.Key = key
		if err := storeIdentity(sess, local); err != nil {
			h.log.Warn().Err(err).Msg("failed to save session")
		}
	}
	c.JSON(http.StatusOK, EditorResponse{Key: key, Identity: local})
}

// Settings shows the identity form.
// GET /settings[/:key]
func (h *NavHandlers) Settings(c *gin.Context) {
	key, ok := routeKey(c)
	if !ok {
		return
	}
	local := loadIdentity(sessions.Default(c))
	c.JSON(http.StatusOK, SettingsResponse{
		Key:      key,
		Identity: local,
		Themes:   identity.Themes,
		Colors:   identity.Colors,
	})
}

// SaveSettings stores the identity and returns to the editor. The user code
// is generated on the first save and kept afterwards.
// POST /settings[/:key]
func (h *NavHandlers) SaveSettings(c *gin.Context) {
	key, ok := routeKey(c)
	if !ok {
		return
	}
	var req SettingsRequest
	if err := c.ShouldBind(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid settings request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "user_name is required"})
		return
	}

	sess := sessions.Default(c)
	local := loadIdentity(sess)
	local.UserName = req.UserName
	local.Theme = req.Theme
	local.Color = req.Color
	local.Fill()

	to := identity.AfterSave(key)
	local.Key = to.Key
	if err := storeIdentity(sess, local); err != nil {
		h.log.Error().Err(err).Msg("failed to save session")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("user", local.UserCode).Str("room", to.Key).Msg("settings saved")
	c.Redirect(http.StatusSeeOther, to.Path())
}
