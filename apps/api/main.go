package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof"

	"github.com/go-playground/validator/v10"

	echoapi "github.com/campuserp/erp/apps/api/echo"
	"github.com/campuserp/erp/apps/shared"
	"github.com/campuserp/erp/core"
	docsvc "github.com/campuserp/erp/services/documents"
	emailsvc "github.com/campuserp/erp/services/email"
	eventsvc "github.com/campuserp/erp/services/events"
	logsvc "github.com/campuserp/erp/services/logger"
	paymentsvc "github.com/campuserp/erp/services/payment"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(logsvc.NewStdLogger("API : ", conf), conf)
	defer logger.Close()
	dbLogger := logsvc.NewRollbarLogger(logsvc.NewStdLogger("DB : ", conf), conf)

	store, err := shared.OpenStorage(conf, true /* create */, true /* migrate */)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up storage: %v", err), err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			dbLogger.Error("Failed to close", err)
		}
	}()

	events := eventsvc.NewPublisher(conf, logger)
	defer func() {
		if err := events.Close(); err != nil {
			logger.Error(fmt.Sprintf("closing event publisher: %v", err), err)
		}
	}()

	gateway := paymentsvc.NewGateway(conf)
	svcs := shared.NewServices(shared.Deps{
		Conf:     conf,
		Logger:   logger,
		Repos:    store.Repos,
		Mail:     emailsvc.NewService(conf, logger),
		Events:   events,
		Gateway:  gateway,
		Renderer: docsvc.NewReceiptRenderer(),
	})

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q, storage %s", conf.Build, store.Engine))
	defer logger.Info("Application stopped")
	if gateway == nil {
		logger.Warn("razorpay is not configured: online payments are disabled")
	}

	validate := validator.New()
	translator := core.NewTranslator()
	shared.InitValidators(validate, translator)

	if err := core.ParseEmailTemplates(logger); err != nil {
		logger.Fatal(fmt.Sprintf("parsing email templates: %v", err), err)
	}

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("storage").Set(store.Engine)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugAddress, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:          conf,
		Logger:        logger,
		Validate:      validate,
		Translator:    translator,
		UserSvc:       svcs.User,
		CourseSvc:     svcs.Course,
		SessionSvc:    svcs.Session,
		StudentSvc:    svcs.Student,
		FeeSvc:        svcs.Fee,
		NoticeSvc:     svcs.Notice,
		AttendanceSvc: svcs.Attendance,
	})

	go server.Start()

	// =========================================================================
	// Shutdown

	select {
	case err := <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shut down and shed load
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err := server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}
