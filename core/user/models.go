package user

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/rotaract/reportdesk/core"
)

// Roles
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

var AllRoles = []string{RoleAdmin, RoleMember}

type User struct {
	ID               string    `json:"id" bson:"_id"`
	FullName         string    `json:"fullName" bson:"fullName"`
	Username         string    `json:"username" bson:"username"`
	Email            string    `json:"email" bson:"email"`
	Roles            []string  `json:"roles" bson:"roles"`
	IsActive         bool      `json:"isActive" bson:"isActive"`
	PasswordHash     []byte    `json:"-" bson:"passwordHash"`
	RefreshTokenHash string    `json:"-" bson:"refreshTokenHash,omitempty"`
	CreatedAt        time.Time `json:"createdAt" bson:"createdAt"` // UTC
	UpdatedAt        time.Time `json:"updatedAt" bson:"updatedAt"` // UTC
	LastLogin        time.Time `json:"lastLogin" bson:"lastLogin"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

func (u *User) IsAdmin() bool {
	return u.HasRole(RoleAdmin)
}

// CanManage reports whether u may modify a record submitted by ownerID.
func (u *User) CanManage(ownerID string) bool {
	return u.ID != "" && (u.ID == ownerID || u.IsAdmin())
}

// NewUser contains information needed to register a new User.
type NewUser struct {
	FullName string `json:"fullName" validate:"required,notblank"`
	Username string `json:"username" validate:"required,min=3,alphanum_"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (nu *NewUser) Clean() {
	nu.FullName = core.CleanString(nu.FullName)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
}

// GetFilter selects a single User. ID takes precedence over UsernameOrEmail.
type GetFilter struct {
	ID              string
	UsernameOrEmail string
}
