package notice

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/campuserp/erp/core"
	"github.com/campuserp/erp/core/user"
)

var ErrNotFound = core.NewNotFoundError("notice")

type (
	Repository interface {
		CreateNotice(ctx context.Context, n Notice) (Notice, error)
		// QueryNotices returns every notice; filtering happens in the service.
		QueryNotices(ctx context.Context) ([]Notice, error)
		GetNotice(ctx context.Context, id string) (Notice, error)
		UpdateNotice(ctx context.Context, n Notice) (Notice, error)
		DeleteNotice(ctx context.Context, id string) error
	}

	Service interface {
		// Create publishes a notice; with Notify, its audience is emailed.
		Create(ctx context.Context, nn NewNotice, author user.User) (Notice, error)
		Query(ctx context.Context, filter QueryFilter) ([]Notice, error)
		GetByID(ctx context.Context, id string) (Notice, error)
		Update(ctx context.Context, n Notice, nn NewNotice) (Notice, error)
		Delete(ctx context.Context, id string) error
	}

	service struct {
		repo    Repository
		userSvc user.Service
		mailSvc core.EmailService
		events  core.EventPublisher
		logger  core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, userSvc user.Service, mailSvc core.EmailService, events core.EventPublisher, logger core.Logger) Service {
	return &service{repo: repo, userSvc: userSvc, mailSvc: mailSvc, events: events, logger: logger}
}

func (svc *service) Create(ctx context.Context, nn NewNotice, author user.User) (Notice, error) {
	now := time.Now().UTC()
	n := Notice{
		Title:       nn.Title,
		Body:        nn.Body,
		Category:    nn.Category,
		Audience:    nn.Audience,
		PublishedAt: nn.PublishedAt.UTC(),
		ExpiresAt:   nn.ExpiresAt.UTC(),
		CreatedBy:   author.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if nn.PublishedAt.IsZero() {
		n.PublishedAt = now
	}
	if nn.ExpiresAt.IsZero() {
		n.ExpiresAt = time.Time{}
	}
	if n.Audience == nil {
		n.Audience = []string{}
	}

	n, err := svc.repo.CreateNotice(ctx, n)
	if err != nil {
		return Notice{}, pkgerrors.Wrap(err, "creating notice")
	}

	if nn.Notify {
		if err := svc.notify(ctx, n); err != nil {
			svc.logger.Error(fmt.Sprintf("notifying notice %s: %v", n.ID, err), err)
		}
	}
	if svc.events != nil {
		ev := core.NewEvent(core.EventNoticePublished, n.ID, map[string]interface{}{
			"title":    n.Title,
			"category": n.Category,
			"audience": n.Audience,
		})
		if err := svc.events.Publish(ctx, ev); err != nil {
			svc.logger.Warn(fmt.Sprintf("publishing %s: %v", ev.Name, err), err)
		}
	}
	return n, nil
}

// notify emails every active user n is visible to.
func (svc *service) notify(ctx context.Context, n Notice) error {
	active := true
	users, err := svc.userSvc.Query(ctx, &user.QueryFilter{IsActive: &active}, nil)
	if err != nil {
		return pkgerrors.Wrap(err, "querying users")
	}

	var messages []*core.EmailMessage
	for _, usr := range users {
		if usr.Email == "" || !n.VisibleTo(usr.Roles) {
			continue
		}
		messages = append(messages, &core.EmailMessage{
			To:           []mail.Address{usr.EmailAddress()},
			Subject:      n.Title,
			TemplateName: "notice",
			TemplateData: map[string]interface{}{
				"Category":    n.Category,
				"Title":       n.Title,
				"Body":        n.Body,
				"PublishedAt": n.PublishedAt,
			},
		})
	}
	if len(messages) > 0 {
		svc.mailSvc.SendMessages(messages...)
	}
	return nil
}

func (svc *service) Query(ctx context.Context, filter QueryFilter) ([]Notice, error) {
	notices, err := svc.repo.QueryNotices(ctx)
	if err != nil {
		return nil, err
	}
	return Filter(notices, filter), nil
}

func (svc *service) GetByID(ctx context.Context, id string) (Notice, error) {
	return svc.repo.GetNotice(ctx, id)
}

func (svc *service) Update(ctx context.Context, n Notice, nn NewNotice) (Notice, error) {
	n.Title = nn.Title
	n.Body = nn.Body
	n.Category = nn.Category
	if nn.Audience != nil {
		n.Audience = nn.Audience
	}
	if !nn.PublishedAt.IsZero() {
		n.PublishedAt = nn.PublishedAt.UTC()
	}
	n.ExpiresAt = nn.ExpiresAt.UTC()
	if nn.ExpiresAt.IsZero() {
		n.ExpiresAt = time.Time{}
	}
	n.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateNotice(ctx, n)
}

func (svc *service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteNotice(ctx, id)
}
