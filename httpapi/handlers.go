package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/gin-gonic/gin"
)

type handleRequest struct {
	Handle string `json:"handle"`
}

type loginRequest struct {
	Handle   string `json:"handle"`
	Password string `json:"password"`
}

type recoverRequest struct {
	Handle      string `json:"handle"`
	Code        string `json:"code"`
	NewPassword string `json:"newPassword"`
}

type changePasswordRequest struct {
	Handle      string `json:"handle"`
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type changeNameRequest struct {
	Handle string `json:"handle"`
	Name   string `json:"name"`
}

type changeAvatarRequest struct {
	Handle string `json:"handle"`
	Avatar string `json:"avatar"`
}

type createRequest struct {
	Handle   string `json:"handle"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Avatar   string `json:"avatar"`
	Admin    bool   `json:"admin"`
}

type deleteRequest struct {
	Handle string `json:"handle"`
	Purge  bool   `json:"purge"`
}

// bind decodes the JSON body into dst. An empty body leaves dst unchanged.
func (s *Server) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Malformed request body"})
		return false
	}
	return true
}

/*
====================================
LOGIN + RECOVERY
====================================
*/

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if !s.bind(c, &req) {
		return
	}

	res, err := s.engine.Login(c.Request.Context(), req.Handle, req.Password)
	if err != nil {
		s.writeLoginError(c, err)
		return
	}
	if s.sessions == nil {
		s.writeError(c, errors.New("session manager not configured"))
		return
	}

	token, expires, err := s.sessions.Issue(res.Handle)
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.setSessionCookie(c, token, expires)
	c.JSON(http.StatusOK, gin.H{"handle": res.Handle})
}

func (s *Server) recoverStep1(c *gin.Context) {
	var req handleRequest
	if !s.bind(c, &req) {
		return
	}
	if err := s.engine.RequestRecovery(c.Request.Context(), req.Handle); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) recoverStep2(c *gin.Context) {
	var req recoverRequest
	if !s.bind(c, &req) {
		return
	}
	if err := s.engine.ConfirmRecovery(c.Request.Context(), req.Handle, req.Code, req.NewPassword); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) logout(c *gin.Context) {
	s.clearSessionCookie(c)
	c.Status(http.StatusNoContent)
}

/*
====================================
ACCOUNTS
====================================
*/

func (s *Server) listPublic(c *gin.Context) {
	if s.opts.Discreet {
		c.Status(http.StatusNoContent)
		return
	}
	views, err := s.engine.ListPublic(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}

	out := make([]publicView, 0, len(views))
	for _, v := range views {
		out = append(out, publicView{Handle: v.Handle, Name: v.Name, Avatar: v.Avatar, Password: v.HasPassword})
	}
	c.JSON(http.StatusOK, out)
}

// publicView is the login-screen projection of an account.
type publicView struct {
	Handle   string `json:"handle"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar"`
	Password bool   `json:"password"`
}

func (s *Server) me(c *gin.Context) {
	view, err := s.engine.CurrentAccount(c.Request.Context())
	if err != nil {
		if errors.Is(err, goAccount.ErrUnauthorized) || errors.Is(err, goAccount.ErrAccountNotFound) {
			s.clearSessionCookie(c)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not logged in"})
			return
		}
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) createAccount(c *gin.Context) {
	var req createRequest
	if !s.bind(c, &req) {
		return
	}

	res, err := s.engine.CreateAccount(c.Request.Context(), goAccount.CreateAccountRequest{
		Handle:   req.Handle,
		Name:     req.Name,
		Password: req.Password,
		Avatar:   req.Avatar,
		Admin:    req.Admin,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"handle": res.Handle})
}

func (s *Server) changePassword(c *gin.Context) {
	var req changePasswordRequest
	if !s.bind(c, &req) {
		return
	}
	err := s.engine.ChangePassword(c.Request.Context(), goAccount.ChangePasswordRequest{
		Handle:      req.Handle,
		OldPassword: req.OldPassword,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) changeName(c *gin.Context) {
	var req changeNameRequest
	if !s.bind(c, &req) {
		return
	}
	if err := s.engine.ChangeName(c.Request.Context(), req.Handle, req.Name); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) changeAvatar(c *gin.Context) {
	var req changeAvatarRequest
	if !s.bind(c, &req) {
		return
	}
	if err := s.engine.ChangeAvatar(c.Request.Context(), req.Handle, req.Avatar); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

/*
====================================
ADMIN
====================================
*/

func (s *Server) listAccounts(c *gin.Context) {
	var q goAccount.ListQuery
	if !s.bind(c, &q) {
		return
	}
	page, err := s.engine.ListAccounts(c.Request.Context(), q)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// adminAction adapts enable, disable, promote and demote.
func (s *Server) adminAction(action func(context.Context, string) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req handleRequest
		if !s.bind(c, &req) {
			return
		}
		if err := action(c.Request.Context(), req.Handle); err != nil {
			s.writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func (s *Server) deleteAccount(c *gin.Context) {
	var req deleteRequest
	if !s.bind(c, &req) {
		return
	}
	if err := s.engine.DeleteAccount(c.Request.Context(), req.Handle, req.Purge); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
