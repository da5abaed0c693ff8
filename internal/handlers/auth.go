package handlers

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"net/url"
	"sync"
	"time"

	"github.com/dimitrije/agency-api/internal/config"
	"github.com/dimitrije/agency-api/internal/logging"
	"github.com/dimitrije/agency-api/internal/middleware"
	"github.com/dimitrije/agency-api/internal/oauth"
	"github.com/dimitrije/agency-api/internal/services"
	"github.com/dimitrije/agency-api/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

const (
	stateTTL    = 10 * time.Minute
	authCodeTTL = 30 * time.Second
)

type AuthHandler struct {
	cfg          *config.Config
	providers    map[string]oauth.Provider
	userService  UserServiceInterface
	tokenService TokenServiceInterface
	jwtService   JWTServiceInterface
	states       sync.Map
	authCodes    sync.Map
}

type stateData struct {
	expiresAt time.Time
}

type authCodeData struct {
	userID    uuid.UUID
	expiresAt time.Time
}

func NewAuthHandler(
	cfg *config.Config,
	userService UserServiceInterface,
	tokenService TokenServiceInterface,
	jwtService JWTServiceInterface,
) *AuthHandler {
	return &AuthHandler{
		cfg:          cfg,
		providers:    oauth.NewProviders(cfg),
		userService:  userService,
		tokenService: tokenService,
		jwtService:   jwtService,
	}
}

// RunCleanup drops expired OAuth states and exchange codes until ctx is done.
func (h *AuthHandler) RunCleanup(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			h.sweep(now)
		}
	}
}

func (h *AuthHandler) sweep(now time.Time) {
	h.states.Range(func(key, value any) bool {
		if sd, ok := value.(stateData); ok && now.After(sd.expiresAt) {
			h.states.Delete(key)
		}
		return true
	})
	h.authCodes.Range(func(key, value any) bool {
		if acd, ok := value.(authCodeData); ok && now.After(acd.expiresAt) {
			h.authCodes.Delete(key)
		}
		return true
	})
}

func (h *AuthHandler) GetConsentURL(c *drift.Context) {
	provider := c.Param("provider")

	p, ok := h.providers[provider]
	if !ok {
		c.BadRequest("unsupported provider: " + provider)
		return
	}

	state, err := oauth.GenerateState()
	if err != nil {
		c.InternalServerError("failed to generate state")
		return
	}

	h.states.Store(state, stateData{expiresAt: time.Now().Add(stateTTL)})

	_ = c.JSON(200, dto.ConsentURLResponse{
		URL: p.GetConsentURL(state),
	})
}

func (h *AuthHandler) Callback(c *drift.Context) {
	provider := c.Param("provider")

	p, ok := h.providers[provider]
	if !ok {
		h.redirectWithError(c, "unsupported provider")
		return
	}

	state := c.QueryParam("state")
	if state == "" {
		h.redirectWithError(c, "missing state parameter")
		return
	}

	sd, ok := h.states.LoadAndDelete(state)
	if !ok {
		h.redirectWithError(c, "invalid or expired state")
		return
	}
	if sdTyped, ok := sd.(stateData); !ok || time.Now().After(sdTyped.expiresAt) {
		h.redirectWithError(c, "state expired")
		return
	}

	code := c.QueryParam("code")
	if code == "" {
		h.redirectWithError(c, "missing authorization code")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	userInfo, err := p.ExchangeCode(ctx, code)
	if err != nil {
		logging.FromContext(ctx).Warn("oauth exchange failed", "provider", provider, "error", err)
		h.redirectWithError(c, "failed to exchange code")
		return
	}

	user, err := h.userService.FindOrCreateFromOAuth(ctx, userInfo)
	if err != nil {
		logging.FromContext(ctx).Error("oauth user upsert failed", "provider", provider, "error", err)
		h.redirectWithError(c, "failed to create user")
		return
	}

	authCode, err := oauth.GenerateState()
	if err != nil {
		h.redirectWithError(c, "failed to generate auth code")
		return
	}

	h.authCodes.Store(authCode, authCodeData{
		userID:    user.ID,
		expiresAt: time.Now().Add(authCodeTTL),
	})

	h.renderCallbackPage(c, h.callbackURL("code", authCode), authCode, "")
}

// issueTokens signs a fresh pair and persists the refresh token hash.
func (h *AuthHandler) issueTokens(ctx context.Context, userID uuid.UUID, email string) (*services.TokenPair, error) {
	pair, err := h.jwtService.GenerateTokenPair(userID, email)
	if err != nil {
		return nil, err
	}
	expiresAt := time.Now().Add(h.jwtService.RefreshExpiry())
	if err := h.tokenService.StoreRefreshToken(ctx, userID, services.HashToken(pair.RefreshToken), expiresAt); err != nil {
		return nil, err
	}
	return pair, nil
}

func tokenResponse(pair *services.TokenPair) dto.TokenResponse {
	return dto.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
		TokenType:    "Bearer",
	}
}

func (h *AuthHandler) ExchangeCode(c *drift.Context) {
	var req dto.ExchangeCodeRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if req.Code == "" {
		c.BadRequest("code is required")
		return
	}

	acd, ok := h.authCodes.LoadAndDelete(req.Code)
	if !ok {
		c.Unauthorized("invalid or expired code")
		return
	}

	codeData, ok := acd.(authCodeData)
	if !ok || time.Now().After(codeData.expiresAt) {
		c.Unauthorized("code expired")
		return
	}

	ctx := c.Request.Context()

	user, err := h.userService.GetByID(ctx, codeData.userID)
	if err != nil {
		c.Unauthorized("user not found")
		return
	}

	pair, err := h.issueTokens(ctx, user.ID, user.Email)
	if err != nil {
		logging.FromContext(ctx).Error("issue tokens", "error", err)
		c.InternalServerError("failed to issue tokens")
		return
	}

	_ = c.JSON(200, tokenResponse(pair))
}

// RefreshToken rotates the refresh token. The presented token is consumed,
// so replaying it fails.
func (h *AuthHandler) RefreshToken(c *drift.Context) {
	var req dto.RefreshTokenRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if req.RefreshToken == "" {
		c.BadRequest("refresh_token is required")
		return
	}

	userID, err := h.jwtService.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		c.Unauthorized("invalid refresh token")
		return
	}

	ctx := c.Request.Context()

	user, err := h.userService.GetByID(ctx, userID)
	if err != nil {
		c.Unauthorized("user not found")
		return
	}

	pair, err := h.jwtService.GenerateTokenPair(user.ID, user.Email)
	if err != nil {
		c.InternalServerError("failed to generate tokens")
		return
	}

	expiresAt := time.Now().Add(h.jwtService.RefreshExpiry())
	owner, err := h.tokenService.RotateRefreshToken(ctx,
		services.HashToken(req.RefreshToken),
		services.HashToken(pair.RefreshToken),
		expiresAt,
	)
	if errors.Is(err, services.ErrRefreshTokenInvalid) {
		c.Unauthorized("refresh token not found or expired")
		return
	}
	if err != nil {
		logging.FromContext(ctx).Error("rotate refresh token", "error", err)
		c.InternalServerError("failed to rotate refresh token")
		return
	}
	if owner != userID {
		_ = h.tokenService.RevokeAllUserTokens(ctx, owner)
		c.Unauthorized("refresh token not found or expired")
		return
	}

	_ = c.JSON(200, tokenResponse(pair))
}

func (h *AuthHandler) Logout(c *drift.Context) {
	var req dto.RefreshTokenRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if req.RefreshToken != "" {
		_ = h.tokenService.RevokeRefreshToken(c.Request.Context(), services.HashToken(req.RefreshToken))
	}

	_ = c.JSON(200, dto.MessageResponse{Message: "logged out"})
}

func (h *AuthHandler) LogoutAll(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	if err := h.tokenService.RevokeAllUserTokens(c.Request.Context(), userID); err != nil {
		c.InternalServerError("failed to revoke tokens")
		return
	}

	_ = c.JSON(200, dto.MessageResponse{Message: "all sessions logged out"})
}

func (h *AuthHandler) callbackURL(key, value string) string {
	return h.cfg.FrontendCallbackURL + "?" + url.Values{key: {value}}.Encode()
}

func (h *AuthHandler) redirectWithError(c *drift.Context, errMsg string) {
	h.renderCallbackPage(c, h.callbackURL("error", errMsg), errMsg, "error")
}

var callbackPage = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <style>
        body { font-family: system-ui, -apple-system, sans-serif; background: #f8fafc; color: #334155; margin: 0; padding: 40px 20px; }
        .card { max-width: 420px; margin: 0 auto; background: #fff; border: 1px solid #e2e8f0; border-radius: 8px; padding: 36px 28px; text-align: center; }
        h1 { font-size: 20px; font-weight: 600; margin: 0 0 8px 0; }
        h1.ok { color: #0f172a; }
        h1.error { color: #b91c1c; }
        .subtitle { color: #64748b; font-size: 14px; margin: 0 0 4px 0; }
        .hint { color: #94a3b8; font-size: 13px; }
        code { display: block; background: #f1f5f9; border-radius: 6px; padding: 10px; font-size: 13px; word-break: break-all; margin-top: 12px; }
    </style>
</head>
<body>
    <div class="card">
        <h1 class="{{if .Failed}}error{{else}}ok{{end}}">{{.Heading}}</h1>
        <p class="subtitle">{{.Subtitle}}</p>
        <p class="hint">You can close this window.</p>
        {{if not .Failed}}<p class="hint">Not redirected? Paste this code into the app:</p>
        <code>{{.Code}}</code>{{end}}
    </div>
    <script>window.location.href = {{.RedirectURL}};</script>
</body>
</html>`))

type callbackView struct {
	Title       string
	Heading     string
	Subtitle    string
	Code        string
	RedirectURL string
	Failed      bool
}

func (h *AuthHandler) renderCallbackPage(c *drift.Context, redirectURL, code, status string) {
	view := callbackView{
		Title:       "Sign-in Successful",
		Heading:     "You're signed in!",
		Subtitle:    "Redirecting you to the agency workspace...",
		Code:        code,
		RedirectURL: redirectURL,
	}
	statusCode := 200
	if status == "error" {
		view = callbackView{
			Title:       "Sign-in Failed",
			Heading:     "Sign-in failed",
			Subtitle:    code,
			RedirectURL: redirectURL,
			Failed:      true,
		}
		statusCode = 400
	}

	var buf bytes.Buffer
	if err := callbackPage.Execute(&buf, view); err != nil {
		c.InternalServerError("failed to render page")
		return
	}
	_ = c.HTML(statusCode, buf.String())
}
