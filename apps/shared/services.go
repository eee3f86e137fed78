package shared

import (
	"github.com/campuserp/erp/core"
	"github.com/campuserp/erp/core/attendance"
	"github.com/campuserp/erp/core/counter"
	"github.com/campuserp/erp/core/course"
	"github.com/campuserp/erp/core/fee"
	"github.com/campuserp/erp/core/notice"
	"github.com/campuserp/erp/core/session"
	"github.com/campuserp/erp/core/student"
	"github.com/campuserp/erp/core/user"
)

type (
	Deps struct {
		Conf     *core.Config
		Logger   core.Logger
		Repos    Repositories
		Mail     core.EmailService
		Events   core.EventPublisher
		Gateway  fee.PaymentGateway // nil disables online payments
		Renderer fee.ReceiptRenderer
	}

	Services struct {
		User       user.Service
		Counter    counter.Service
		Course     course.Service
		Session    session.Service
		Student    student.Service
		Fee        fee.Service
		Notice     notice.Service
		Attendance attendance.Service
	}
)

func NewServices(deps Deps) Services {
	var svcs Services
	svcs.User = user.NewService(deps.Repos.User, deps.Mail, deps.Events, deps.Logger, deps.Conf)
	svcs.Counter = counter.NewService(deps.Repos.Counter)
	svcs.Course = course.NewService(deps.Repos.Course)
	svcs.Session = session.NewService(deps.Repos.Session, deps.Events, deps.Logger)
	svcs.Student = student.NewService(
		deps.Repos.Student,
		svcs.User,
		svcs.Counter,
		svcs.Course,
		svcs.Session,
		deps.Events,
		deps.Logger,
	)
	svcs.Fee = fee.NewService(fee.ServiceDeps{
		Repo:       deps.Repos.Fee,
		StudentSvc: svcs.Student,
		CourseSvc:  svcs.Course,
		CounterSvc: svcs.Counter,
		Gateway:    deps.Gateway,
		Renderer:   deps.Renderer,
		MailSvc:    deps.Mail,
		Events:     deps.Events,
		Logger:     deps.Logger,
		Conf:       deps.Conf,
	})
	svcs.Notice = notice.NewService(deps.Repos.Notice, svcs.User, deps.Mail, deps.Events, deps.Logger)
	svcs.Attendance = attendance.NewService(deps.Repos.Attendance, svcs.Course, svcs.Student, deps.Events, deps.Logger)
	return svcs
}
