package http

import (
	nethttp "net/http"
	"strconv"
	"strings"

	"github.com/Miraines/MoonyAndStarry/account-service/internal/adapters/transport/http/dto"
	"github.com/Miraines/MoonyAndStarry/account-service/internal/adapters/transport/http/middleware"
	"github.com/Miraines/MoonyAndStarry/account-service/internal/app/auth/permission"
	"github.com/Miraines/MoonyAndStarry/account-service/internal/app/auth/service"
	customErrors "github.com/Miraines/MoonyAndStarry/account-service/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/account-service/internal/domain/auth/model"
	"github.com/Miraines/MoonyAndStarry/account-service/internal/domain/auth/repo"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const TotalCountHeader = "X-Total-Count"

// sortable lists the user fields a client may order by.
var sortable = map[string]struct{}{
	"id": {}, "uuid": {}, "email": {}, "phone": {}, "is_admin": {}, "created_at": {},
}

type Handler struct {
	factory *service.Factory
	checker *permission.Checker
	log     *zap.Logger
}

func NewHandler(factory *service.Factory, checker *permission.Checker, log *zap.Logger) *Handler {
	return &Handler{factory: factory, checker: checker, log: log}
}

func abortValidation(c *gin.Context, err error) {
	middleware.Abort(c, customErrors.NewUnprocessable(dto.Describe(err)).WithCode("validation_error"))
}

// currentUser loads the authenticated caller.
func (h *Handler) currentUser(c *gin.Context) (*model.User, bool) {
	cu := middleware.CurrentUser(c)
	u, err := h.factory.UserService(middleware.Session(c)).GetByID(c.Request.Context(), cu.ID)
	if err != nil {
		middleware.Abort(c, err)
		return nil, false
	}
	return u, true
}

func (h *Handler) SignUp(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortValidation(c, err)
		return
	}

	user, err := h.factory.AuthService(middleware.Session(c)).Register(c.Request.Context(), service.Credentials{
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	c.JSON(nethttp.StatusCreated, dto.NewUserResponse(user))
}

func (h *Handler) SignIn(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortValidation(c, err)
		return
	}

	cred := service.Credentials{Email: req.Email, Phone: req.Phone, Password: req.Password}
	h.log.Info("/signin", zap.String("login", cred.Digest()))

	tok, err := h.factory.AuthService(middleware.Session(c)).Login(c.Request.Context(), cred)
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	c.JSON(nethttp.StatusOK, dto.TokenResponse{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken})
}

func (h *Handler) Refresh(c *gin.Context) {
	var req dto.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortValidation(c, err)
		return
	}

	tok, err := h.factory.AuthService(middleware.Session(c)).Refresh(c.Request.Context(), req.AccessToken, req.RefreshToken)
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	c.JSON(nethttp.StatusOK, dto.TokenResponse{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken})
}

func (h *Handler) Me(c *gin.Context) {
	u, ok := h.currentUser(c)
	if !ok {
		return
	}
	c.JSON(nethttp.StatusOK, dto.NewUserResponse(u))
}

// ListUsers returns a page of users. Every listed user must be readable by
// the caller, so non-admins only succeed when the page holds nobody else.
func (h *Handler) ListUsers(c *gin.Context) {
	var q dto.ListUsersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		abortValidation(c, err)
		return
	}
	page := repo.Page{Skip: q.Skip, Limit: dto.DefaultLimit}
	if q.Limit != nil {
		page.Limit = *q.Limit
	}
	order, err := parseOrder(q.OrderBy)
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	page.OrderBy = order

	me, ok := h.currentUser(c)
	if !ok {
		return
	}

	res, err := h.factory.UserService(middleware.Session(c)).GetAll(c.Request.Context(), page)
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	if err := h.checker.Assert(me, model.PermissionRead, res.Items); err != nil {
		middleware.Abort(c, err)
		return
	}

	c.Header(TotalCountHeader, strconv.FormatInt(res.Count, 10))
	c.JSON(nethttp.StatusOK, dto.NewUserList(res.Items))
}

func parseOrder(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var out []string
	for _, f := range strings.Split(raw, ",") {
		f = strings.TrimSpace(f)
		if _, ok := sortable[strings.TrimPrefix(f, "-")]; !ok {
			return nil, customErrors.NewInvalidFilter("cannot order by " + strconv.Quote(f))
		}
		out = append(out, f)
	}
	return out, nil
}
