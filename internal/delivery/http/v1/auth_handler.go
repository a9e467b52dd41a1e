package v1

import (
	"net/http"

	"recruitment-backend/internal/delivery/http/middleware"
	"recruitment-backend/internal/delivery/http/response"
	"recruitment-backend/internal/domain"
	"recruitment-backend/pkg/apperror"

	"github.com/gin-gonic/gin"
)

// CookieOptions controls the session cookie written on login.
type CookieOptions struct {
	MaxAge int
	Secure bool
}

type AuthHandler struct {
	authUC domain.AuthUsecase
	cookie CookieOptions
}

func NewAuthHandler(public *gin.RouterGroup, protected *gin.RouterGroup, authUC domain.AuthUsecase, cookie CookieOptions, loginLimit gin.HandlerFunc) {
	handler := &AuthHandler{
		authUC: authUC,
		cookie: cookie,
	}

	// Public Routes
	publicAuth := public.Group("/auth")
	{
		publicAuth.POST("/login", loginLimit, handler.Login)
		publicAuth.POST("/logout", handler.Logout)
		publicAuth.POST("/register", handler.Register)
		publicAuth.POST("/upgrade", handler.Upgrade)
	}

	// Protected Routes
	protectedAuth := protected.Group("/auth")
	{
		protectedAuth.GET("/me", handler.Me)
	}
}

type LoginRequest struct {
	Username string `json:"username" example:"applicant1"`
	Password string `json:"password" example:"secret123"`
}

type RegisterResponse struct {
	PersonID int64  `json:"person_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Login godoc
// @Summary      Login
// @Description  Verify username and password and set the session cookie
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        login  body      LoginRequest  true  "Credentials"
// @Success      200    {object}  response.Response{data=domain.LoginResult}
// @Failure      400    {object}  response.Response
// @Failure      401    {object}  response.Response
// @Failure      429    {object}  response.Response
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.BadRequest("Username and password are required"))
		return
	}

	result, err := h.authUC.Login(c.Request.Context(), req.Username, req.Password, c.ClientIP())
	if err != nil {
		c.Error(err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AuthCookieName, result.Token, h.cookie.MaxAge, "/", "", h.cookie.Secure, true)

	response.Success(c, http.StatusOK, "Login successful", result)
}

// Logout godoc
// @Summary      Logout
// @Description  Clear the session cookie
// @Tags         auth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AuthCookieName, "", -1, "/", "", h.cookie.Secure, true)
	response.Success(c, http.StatusOK, "Logged out", nil)
}

// Register godoc
// @Summary      Register applicant
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        register  body      domain.RegisterInput  true  "Registration details"
// @Success      201       {object}  response.Response{data=RegisterResponse}
// @Failure      400       {object}  response.Response
// @Failure      409       {object}  response.Response
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req domain.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(bindError(err))
		return
	}

	person, err := h.authUC.Register(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusCreated, "Registration successful", RegisterResponse{
		PersonID: person.ID,
		Username: person.Username,
		Email:    person.Email,
	})
}

// Upgrade godoc
// @Summary      Upgrade legacy account
// @Description  Set username and password on an imported account using its one-time upgrade code
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        upgrade  body      domain.UpgradeInput  true  "Upgrade details"
// @Success      200      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /auth/upgrade [post]
func (h *AuthHandler) Upgrade(c *gin.Context) {
	var req domain.UpgradeInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(bindError(err))
		return
	}

	if err := h.authUC.Upgrade(c.Request.Context(), req); err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusOK, "Account upgraded", nil)
}

// Me godoc
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Success      200  {object}  response.Response{data=domain.Person}
// @Failure      401  {object}  response.Response
// @Router       /auth/me [get]
// @Security     BearerAuth
func (h *AuthHandler) Me(c *gin.Context) {
	personID, _ := middleware.CurrentPersonID(c)

	person, err := h.authUC.GetCurrentUser(c.Request.Context(), personID)
	if err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusOK, "User retrieved", person)
}
