package main

import (
	"errors"
	"net/http"
	"strconv"

	goBlog "github.com/MrEthical07/goBlog"
	"github.com/MrEthical07/goBlog/api"
	"github.com/MrEthical07/goBlog/internal/logging"
	"github.com/MrEthical07/goBlog/metrics/export/prometheus"
	"github.com/MrEthical07/goBlog/middleware"
	"github.com/MrEthical07/goBlog/resource"
	"github.com/MrEthical07/goBlog/session"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

type server struct {
	engine *goBlog.Engine
	logger logging.Logger
}

type authStateResponse struct {
	IsLoggedIn             bool            `json:"isLoggedIn"`
	NeedsProfileCompletion bool            `json:"needsProfileCompletion"`
	Role                   goBlog.Role     `json:"role,omitempty"`
	UserProfile            *goBlog.Profile `json:"userProfile,omitempty"`
	Error                  string          `json:"error,omitempty"`
}

type refetchResponse struct {
	Role         goBlog.Role     `json:"role,omitempty"`
	RoleError    string          `json:"roleError,omitempty"`
	Profile      *goBlog.Profile `json:"profile,omitempty"`
	ProfileError string          `json:"profileError,omitempty"`
}

func newRouter(engine *goBlog.Engine, logger logging.Logger) *echo.Echo {
	s := &server{engine: engine, logger: logger}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())

	e.GET("/healthz", s.health)
	e.GET("/metrics", echo.WrapHandler(prometheus.NewPrometheusExporter(engine).Handler()))
	e.GET("/auth/error", echo.WrapHandler(middleware.ErrorPage(engine)))

	e.GET("/api/auth/state", s.authState)
	e.POST("/api/auth/refetch", s.refetch)
	e.POST("/api/auth/logout", s.logout)
	e.GET("/api/posts", s.listPosts)

	authed := e.Group("/api/me", echo.WrapMiddleware(middleware.RequireAuth(engine)))
	authed.GET("/likes", s.myLikes)
	authed.PUT("/likes/:id", s.setLike(true))
	authed.DELETE("/likes/:id", s.setLike(false))

	admin := e.Group("/api/admin", echo.WrapMiddleware(middleware.RequireAdmin(engine)))
	admin.GET("/pending", s.pendingUsers)
	admin.POST("/users/:id/approve", s.decide(true))
	admin.POST("/users/:id/reject", s.decide(false))

	return e
}

func (s *server) health(c echo.Context) error {
	if err := s.engine.Ping(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) storage(c echo.Context) *session.CookieStorage {
	return session.NewCookieStorage(c.Response(), c.Request(), s.engine.CookiePolicy())
}

func (s *server) authState(c echo.Context) error {
	ctx, sess, err := s.engine.AuthorizedContext(middleware.RequestContext(c.Request()), s.storage(c))
	switch {
	case errors.Is(err, goBlog.ErrNoSession), errors.Is(err, goBlog.ErrTokenExpired), errors.Is(err, goBlog.ErrTokenRefreshFailed):
		return c.JSON(http.StatusOK, authStateResponse{})
	case err != nil:
		return s.fail(c, err)
	}

	state := s.engine.AuthState(ctx, sess)
	resp := authStateResponse{
		IsLoggedIn:             state.IsLoggedIn,
		NeedsProfileCompletion: state.NeedsProfileCompletion,
		Role:                   state.Role,
		UserProfile:            state.UserProfile,
	}
	if state.Error != nil {
		resp.Error = api.FailureOf(state.Error).String()
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *server) refetch(c echo.Context) error {
	ctx, sess, err := s.engine.AuthorizedContext(middleware.RequestContext(c.Request()), s.storage(c))
	if err != nil {
		return s.fail(c, err)
	}

	res := s.engine.RefetchAuthStatus(ctx, sess)
	var resp refetchResponse
	if res.Role.OK() {
		resp.Role = res.Role.Value
	} else {
		resp.RoleError = res.Role.Err.Error()
	}
	if res.Profile.OK() {
		p := res.Profile.Value
		resp.Profile = &p
	} else {
		resp.ProfileError = res.Profile.Err.Error()
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *server) logout(c echo.Context) error {
	ctx := middleware.RequestContext(c.Request())
	storage := s.storage(c)
	sess, err := s.engine.SessionFromStorage(ctx, storage)
	if err != nil {
		s.logger.Warn(ctx, "goblog-web: logout session lookup failed", "error", err)
	}
	s.engine.Logout(ctx, sess, storage)
	return c.NoContent(http.StatusNoContent)
}

func (s *server) listPosts(c echo.Context) error {
	ctx := middleware.RequestContext(c.Request())
	sess, err := s.engine.SessionFromStorage(ctx, s.storage(c))
	if err != nil {
		return s.fail(c, err)
	}
	if sess != nil {
		ctx = api.WithToken(ctx, sess.Token)
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))
	posts, err := s.engine.Scope(sess).PostList(ctx, api.PostFilter{
		Category: c.QueryParam("category"),
		Keyword:  c.QueryParam("keyword"),
		Sort:     c.QueryParam("sort"),
		Page:     page,
		Size:     size,
	})
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, posts)
}

func (s *server) myLikes(c echo.Context) error {
	ctx := c.Request().Context()
	sess, _ := middleware.SessionFromContext(ctx)
	page, _ := strconv.Atoi(c.QueryParam("page"))

	posts, err := s.engine.Scope(sess).MyLikes(ctx, page)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, posts)
}

func (s *server) setLike(like bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid post id"})
		}
		ctx := c.Request().Context()
		sess, _ := middleware.SessionFromContext(ctx)

		status, err := s.engine.Scope(sess).ToggleLike(ctx, resource.LikeInput{PostID: id, Like: like})
		if err != nil {
			return s.fail(c, err)
		}
		return c.JSON(http.StatusOK, status)
	}
}

func (s *server) pendingUsers(c echo.Context) error {
	ctx := c.Request().Context()
	sess, _ := middleware.SessionFromContext(ctx)

	users, err := s.engine.Scope(sess).PendingUsers(ctx)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, users)
}

func (s *server) decide(approve bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid user id"})
		}
		ctx := c.Request().Context()
		sess, _ := middleware.SessionFromContext(ctx)
		scope := s.engine.Scope(sess)

		if approve {
			err = scope.ApproveUser(ctx, id)
		} else {
			err = scope.RejectUser(ctx, id)
		}
		if err != nil {
			return s.fail(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

// fail maps engine and backend errors onto a JSON error response.
func (s *server) fail(c echo.Context, err error) error {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, goBlog.ErrNoSession), errors.Is(err, goBlog.ErrTokenExpired), errors.Is(err, goBlog.ErrTokenRefreshFailed):
		status = http.StatusUnauthorized
	case errors.Is(err, goBlog.ErrRevocationUnavailable):
		status = http.StatusServiceUnavailable
	default:
		switch api.FailureOf(err) {
		case api.FailureUnauthorized:
			status = http.StatusUnauthorized
		case api.FailureForbidden:
			status = http.StatusForbidden
		case api.FailureNotFound:
			status = http.StatusNotFound
		case api.FailureConflict:
			status = http.StatusConflict
		case api.FailureValidation:
			status = http.StatusBadRequest
		}
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error(c.Request().Context(), "goblog-web: request failed", "path", c.Path(), "error", err)
	}
	return c.JSON(status, map[string]string{"error": http.StatusText(status)})
}
