package notice

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/campuserp/erp/core"
)

// Notice is a notice or circular published to the users holding one of its Audience roles.
type Notice struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Category    string    `json:"category"`
	Audience    []string  `json:"audience"` // role prefixes; empty means everyone
	PublishedAt time.Time `json:"published_at"`
	ExpiresAt   time.Time `json:"expires_at"` // zero never expires
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (n Notice) Expired(now time.Time) bool {
	return !n.ExpiresAt.IsZero() && !now.Before(n.ExpiresAt)
}

// VisibleTo reports whether a user with roles may see n.
func (n Notice) VisibleTo(roles []string) bool {
	if len(n.Audience) == 0 {
		return true
	}
	for _, aud := range n.Audience {
		for _, role := range roles {
			if strings.HasPrefix(role, aud) {
				return true
			}
		}
	}
	return false
}

type NewNotice struct {
	Title       string    `json:"title" validate:"required,max=200"`
	Body        string    `json:"body" validate:"required"`
	Category    string    `json:"category" validate:"required,max=50"`
	Audience    []string  `json:"audience" validate:"omitempty,dive,audience"`
	PublishedAt time.Time `json:"published_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	Notify      bool      `json:"notify"` // email the audience
}

func (nn *NewNotice) Clean() {
	nn.Title = core.CleanString(nn.Title)
	nn.Body = core.CleanString(nn.Body)
	nn.Category = core.CleanString(nn.Category, true /* lower */)
	for i := range nn.Audience {
		nn.Audience[i] = core.CleanString(nn.Audience[i], true /* lower */)
	}
}

func (nn *NewNotice) Validate(validate *validator.Validate) error {
	nn.Clean()
	return validate.Struct(nn)
}
