package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/zfogg/plaza/internal/auth"
	apperrors "github.com/zfogg/plaza/internal/errors"
	"github.com/zfogg/plaza/internal/util"
)

const oauthStateCookie = "plaza_oauth_state"

// RequestOTP handles POST /auth/otp
func (h *Handlers) RequestOTP(c *gin.Context) {
	var req auth.SignupRequest
	if !bindJSON(c, &req) {
		return
	}
	msg, err := h.auth.RequestSignupOTP(c.Request.Context(), req)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	util.RespondMessage(c, http.StatusOK, msg)
}

// Register handles POST /auth/register
func (h *Handlers) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.auth.Register(c.Request.Context(), req)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Login handles POST /auth/login
func (h *Handlers) Login(c *gin.Context) {
	var req auth.LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

type googleLoginRequest struct {
	Credential string `json:"credential"`
}

// GoogleLogin handles POST /auth/google with an ID token from the client
func (h *Handlers) GoogleLogin(c *gin.Context) {
	var req googleLoginRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.auth.GoogleLogin(c.Request.Context(), req.Credential)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GoogleAuthURL starts the redirect flow and pins its state in a cookie
func (h *Handlers) GoogleAuthURL(c *gin.Context) {
	state := uuid.New().String()
	url, err := h.auth.GoogleAuthURL(state)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, state, 600, "/", "", c.Request.TLS != nil, true)
	c.JSON(http.StatusOK, gin.H{"url": url, "state": state})
}

// GoogleCallback completes the redirect flow
func (h *Handlers) GoogleCallback(c *gin.Context) {
	if pinned, err := c.Cookie(oauthStateCookie); err == nil && pinned != c.Query("state") {
		util.RespondWithAPIError(c, apperrors.InvalidArgument("Invalid OAuth state"))
		return
	}
	resp, err := h.auth.GoogleCallback(c.Request.Context(), c.Query("code"))
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.SetCookie(oauthStateCookie, "", -1, "/", "", c.Request.TLS != nil, true)
	c.JSON(http.StatusOK, resp)
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Logout handles POST /auth/logout
func (h *Handlers) Logout(c *gin.Context) {
	var req logoutRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.auth.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		util.RespondWithError(c, err)
		return
	}
	util.RespondMessage(c, http.StatusOK, "Logged out")
}

// Me returns the authenticated user
func (h *Handlers) Me(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
