package model

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID      uuid.UUID `gorm:"type:uuid;uniqueIndex" json:"uuid"`
	Email     *string   `gorm:"uniqueIndex" json:"email"`
	Phone     *string   `gorm:"uniqueIndex" json:"phone"`
	Password  string    `gorm:"not null" json:"-"`
	IsAdmin   bool      `gorm:"not null;default:false" json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.UUID == uuid.Nil {
		u.UUID = uuid.New()
	}
	return nil
}

// ACL grants the owner read/edit/delete, admins everything and any
// authenticated caller the right to create accounts.
func (u User) ACL() []Entry {
	return []Entry{
		Allow(AuthenticatedPrincipal, PermissionCreate),
		Allow(UserPrincipal(u.ID), PermissionRead, PermissionEdit, PermissionDelete),
		Allow(RolePrincipal("admin"), AllPermissions...),
	}
}

// Token is minted per login/refresh and never persisted.
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// CurrentUser is the identity attached to a request by the authentication
// middleware. ID is zero for anonymous requests.
type CurrentUser struct {
	ID int64 `json:"id"`
}

func (c CurrentUser) Authenticated() bool {
	return c.ID != 0
}

func (c CurrentUser) String() string {
	if !c.Authenticated() {
		return "anonymous"
	}
	return strconv.FormatInt(c.ID, 10)
}
