// Package emailsvc implements core.EmailService backends.
package emailsvc

import (
	"github.com/campuserp/erp/core"
)

// NewService returns the backend configured in conf.Email.Backend; anything unknown falls back to the console.
func NewService(conf *core.Config, logger core.Logger) core.EmailService {
	switch conf.Email.Backend {
	case "sendgrid":
		return NewSendgridService(conf, logger)
	case "smtp":
		return NewSMTPService(conf, logger)
	default:
		return NewConsoleService(conf, logger)
	}
}
