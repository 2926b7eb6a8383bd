package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"gorm.io/gorm"

	"github.com/nestboard/nestboard/config"
	"github.com/nestboard/nestboard/domain"
	"github.com/nestboard/nestboard/middleware"
	"github.com/nestboard/nestboard/models"
	"github.com/nestboard/nestboard/utils"
)

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_]{3,32}$`)

// AuthController handles account registration, sessions and OAuth
// sign-in.
type AuthController struct {
	db *gorm.DB
}

// NewAuthController creates a new AuthController instance.
func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{db: db}
}

func (a *AuthController) tokenTTL() time.Duration {
	return time.Duration(config.Get().TokenTTLHours) * time.Hour
}

// resolveRole prefers the stored role but promotes usernames listed in
// config as admins, so a fresh deployment can bootstrap moderation.
func resolveRole(user *models.User) string {
	role := domain.ParseRole(user.Role)
	if role.IsAdmin() {
		return role.String()
	}
	for _, admin := range config.Get().AdminUsernames {
		if strings.EqualFold(admin, user.Username) {
			return domain.RoleAdmin.String()
		}
	}
	return domain.RoleUser.String()
}

// Register creates a local account with a bcrypt-hashed password.
func (a *AuthController) Register(ctx *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Email    string `json:"email"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	username := utils.SanitizePlain(req.Username)
	if !usernameRe.MatchString(username) {
		utils.Error(ctx, http.StatusBadRequest, 40010, "username must be 3-32 letters, digits or underscores")
		return
	}
	if len(req.Password) < 8 {
		utils.Error(ctx, http.StatusBadRequest, 40011, "password must be at least 8 characters")
		return
	}

	var existing models.User
	if err := a.db.Where("username = ?", username).First(&existing).Error; err == nil {
		utils.Error(ctx, http.StatusConflict, 40910, "username already taken")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.Error(ctx, http.StatusInternalServerError, 50001, "registration failed")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50002, "registration failed")
		return
	}

	user := models.User{
		Username:     username,
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: hash,
		Role:         domain.RoleUser.String(),
	}
	if err := a.db.Create(&user).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50003, "registration failed")
		return
	}

	utils.Success(ctx, publicUser(&user))
}

// Login verifies credentials and issues a JWT carrying the role claim.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	var user models.User
	if err := a.db.Where("username = ?", req.Username).First(&user).Error; err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
		return
	}
	if user.PasswordHash == "" || !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
		return
	}

	a.issueSession(ctx, &user)
}

func (a *AuthController) issueSession(ctx *gin.Context, user *models.User) {
	role := resolveRole(user)
	token, err := utils.GenerateToken(user.ID, user.Username, role, a.tokenTTL())
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}
	utils.Success(ctx, gin.H{
		"token": token,
		"user":  publicUser(user),
		"role":  role,
	})
}

// Logout revokes the presented token until its natural expiry.
func (a *AuthController) Logout(ctx *gin.Context) {
	authHeader := ctx.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		utils.Error(ctx, http.StatusUnauthorized, 40107, "invalid authorization header")
		return
	}

	token := strings.TrimSpace(parts[1])
	claims, err := utils.ParseToken(token)
	if err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
		return
	}

	ttl := a.tokenTTL()
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if err := utils.BlacklistToken(ctx.Request.Context(), token, ttl); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50005, "logout failed")
		return
	}
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the authenticated user's own profile.
func (a *AuthController) Me(ctx *gin.Context) {
	actor := middleware.CurrentActor(ctx)
	var user models.User
	if err := a.db.First(&user, actor.ID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40400, "not found")
		return
	}
	utils.Success(ctx, gin.H{"user": publicUser(&user), "role": resolveRole(&user)})
}

// OAuthRedirect generates the GitHub authorization URL with a one-shot
// state token.
func (a *AuthController) OAuthRedirect(ctx *gin.Context) {
	cfg, err := a.oauthConfig()
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, err.Error())
		return
	}

	state, err := utils.NewOAuthState(ctx.Request.Context(), 10*time.Minute)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50006, "failed to create oauth state")
		return
	}

	url := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline)
	utils.Success(ctx, gin.H{"authorization_url": url, "state": state})
}

// OAuthCallback exchanges the authorization code for a GitHub identity
// and issues a session.
func (a *AuthController) OAuthCallback(ctx *gin.Context) {
	code := ctx.Query("code")
	state := ctx.Query("state")
	if code == "" || state == "" {
		utils.Error(ctx, http.StatusBadRequest, 40005, "missing code or state")
		return
	}
	if !utils.ConsumeOAuthState(ctx.Request.Context(), state) {
		utils.Error(ctx, http.StatusBadRequest, 40006, "invalid or expired state")
		return
	}

	cfg, err := a.oauthConfig()
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, err.Error())
		return
	}

	token, err := cfg.Exchange(ctx.Request.Context(), code)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40007, "failed to exchange code")
		return
	}

	info, err := fetchGitHubUser(ctx, token)
	if err != nil {
		utils.Error(ctx, http.StatusBadGateway, 50210, "github profile lookup failed")
		return
	}

	user, err := a.findOrCreateOAuthUser(info)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50007, "failed to persist user")
		return
	}

	a.issueSession(ctx, user)
}

func (a *AuthController) oauthConfig() (*oauth2.Config, error) {
	cfg := config.Get()
	if cfg.GitHubClientID == "" || cfg.GitHubClientSecret == "" {
		return nil, fmt.Errorf("github oauth not configured")
	}
	return &oauth2.Config{
		ClientID:     cfg.GitHubClientID,
		ClientSecret: cfg.GitHubClientSecret,
		RedirectURL:  fmt.Sprintf("%s/api/v1/auth/oauth/github/callback", cfg.OAuthRedirectBase),
		Scopes:       []string{"read:user", "user:email"},
		Endpoint:     github.Endpoint,
	}, nil
}

type githubUser struct {
	ID        string
	Login     string
	Email     string
	AvatarURL string
}

func fetchGitHubUser(ctx *gin.Context, token *oauth2.Token) (*githubUser, error) {
	req, err := http.NewRequestWithContext(ctx.Request.Context(), http.MethodGet, "https://api.github.com/user", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github user info request failed: %s", resp.Status)
	}

	var payload struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	return &githubUser{
		ID:        fmt.Sprintf("%d", payload.ID),
		Login:     payload.Login,
		Email:     payload.Email,
		AvatarURL: payload.AvatarURL,
	}, nil
}

func (a *AuthController) findOrCreateOAuthUser(data *githubUser) (*models.User, error) {
	var user models.User
	err := a.db.Where("provider = ? AND provider_id = ?", "github", data.ID).First(&user).Error
	if err == nil {
		_ = a.db.Model(&user).Updates(map[string]interface{}{
			"avatar_url": data.AvatarURL,
		}).Error
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user = models.User{
		Username:   a.ensureUniqueUsername(data.Login, data.ID),
		Email:      strings.TrimSpace(data.Email),
		Role:       domain.RoleUser.String(),
		Provider:   "github",
		ProviderID: data.ID,
		AvatarURL:  data.AvatarURL,
	}
	if err := a.db.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (a *AuthController) ensureUniqueUsername(base, providerID string) string {
	candidate := utils.SanitizePlain(base)
	if !usernameRe.MatchString(candidate) {
		candidate = "gh_" + providerID
	}
	var count int64
	a.db.Model(&models.User{}).Where("username = ?", candidate).Count(&count)
	if count == 0 {
		return candidate
	}
	return fmt.Sprintf("%s_%s", candidate, providerID)
}

func publicUser(user *models.User) gin.H {
	return gin.H{
		"id":         user.ID,
		"username":   user.Username,
		"email":      user.Email,
		"avatar_url": user.AvatarURL,
		"created_at": user.CreatedAt,
	}
}
