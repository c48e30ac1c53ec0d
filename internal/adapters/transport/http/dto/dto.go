package dto

import (
	"time"

	"github.com/Miraines/MoonyAndStarry/account-service/internal/domain/auth/model"
	"github.com/google/uuid"
)

type RegisterRequest struct {
	Email    *string `json:"email"    binding:"omitempty,email"`
	Phone    *string `json:"phone"    binding:"omitempty,phone"`
	Password string  `json:"password" binding:"required,password"`
}

func (r RegisterRequest) identifiers() (*string, *string) { return r.Email, r.Phone }

type LoginRequest struct {
	Email    *string `json:"email"    binding:"omitempty,email"`
	Phone    *string `json:"phone"`
	Password string  `json:"password" binding:"required"`
}

func (r LoginRequest) identifiers() (*string, *string) { return r.Email, r.Phone }

type RefreshRequest struct {
	AccessToken  string `json:"access_token"  binding:"required"`
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type ListUsersQuery struct {
	Skip    int    `form:"skip"     binding:"omitempty,min=0"`
	Limit   *int   `form:"limit"    binding:"omitempty,min=1,max=100"`
	OrderBy string `form:"order_by"`
}

const DefaultLimit = 100

type UserResponse struct {
	ID        int64     `json:"id"`
	UUID      uuid.UUID `json:"uuid"`
	Email     *string   `json:"email"`
	Phone     *string   `json:"phone"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

func NewUserResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		UUID:      u.UUID,
		Email:     u.Email,
		Phone:     u.Phone,
		IsAdmin:   u.IsAdmin,
		CreatedAt: u.CreatedAt,
	}
}

func NewUserList(users []model.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, NewUserResponse(&users[i]))
	}
	return out
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
