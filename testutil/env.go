// Package testutil wires the ERP services on in-memory storage for tests, and creates fixtures.
package testutil

import (
	"io"
	"log"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/campuserp/erp/apps/shared"
	"github.com/campuserp/erp/core"
	"github.com/campuserp/erp/core/attendance"
	"github.com/campuserp/erp/core/counter"
	"github.com/campuserp/erp/core/course"
	"github.com/campuserp/erp/core/fee"
	"github.com/campuserp/erp/core/notice"
	"github.com/campuserp/erp/core/session"
	"github.com/campuserp/erp/core/student"
	"github.com/campuserp/erp/core/user"
	docsvc "github.com/campuserp/erp/services/documents"
	emailsvc "github.com/campuserp/erp/services/email"
	eventsvc "github.com/campuserp/erp/services/events"
	logsvc "github.com/campuserp/erp/services/logger"
	paymentsvc "github.com/campuserp/erp/services/payment"
	inmemdb "github.com/campuserp/erp/storage/database/inmem"
)

// GatewaySecret signs the payments of the fake gateway.
const GatewaySecret = "gateway-secret"

// Env holds a fully wired set of services over a fresh in-memory database.
type Env struct {
	Conf       *core.Config
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator

	DB      *inmemdb.DB
	Mail    *emailsvc.ConsoleServiceMock
	Events  *eventsvc.Recorder
	Gateway *paymentsvc.FakeGateway

	UserRepo user.Repository

	UserSvc       user.Service
	CounterSvc    counter.Service
	CourseSvc     course.Service
	SessionSvc    session.Service
	StudentSvc    student.Service
	FeeSvc        fee.Service
	NoticeSvc     notice.Service
	AttendanceSvc attendance.Service
}

func NewEnv() *Env {
	conf := core.NewTestConfig()
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)

	if err := core.ParseEmailTemplates(logger); err != nil {
		log.Fatalf("core.ParseEmailTemplates(): %v", err)
	}

	env := &Env{
		Conf:       conf,
		Logger:     logger,
		Validate:   validator.New(),
		Translator: core.NewTranslator(),
		DB:         inmemdb.Open(),
		Mail:       emailsvc.NewConsoleServiceMock(conf),
		Events:     eventsvc.NewRecorder(),
		Gateway:    paymentsvc.NewFakeGateway(GatewaySecret),
	}
	shared.InitValidators(env.Validate, env.Translator)

	repos := shared.MemoryRepositories(env.DB)
	env.UserRepo = repos.User
	svcs := shared.NewServices(shared.Deps{
		Conf:     conf,
		Logger:   logger,
		Repos:    repos,
		Mail:     env.Mail,
		Events:   env.Events,
		Gateway:  env.Gateway,
		Renderer: docsvc.NewReceiptRenderer(),
	})
	env.UserSvc = svcs.User
	env.CounterSvc = svcs.Counter
	env.CourseSvc = svcs.Course
	env.SessionSvc = svcs.Session
	env.StudentSvc = svcs.Student
	env.FeeSvc = svcs.Fee
	env.NoticeSvc = svcs.Notice
	env.AttendanceSvc = svcs.Attendance
	return env
}
