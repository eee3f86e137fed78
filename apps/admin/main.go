package main

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/campuserp/erp/apps/shared"
	"github.com/campuserp/erp/core"
	docsvc "github.com/campuserp/erp/services/documents"
	emailsvc "github.com/campuserp/erp/services/email"
	eventsvc "github.com/campuserp/erp/services/events"
	logsvc "github.com/campuserp/erp/services/logger"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(logsvc.NewStdLogger("ADMIN : ", conf), conf)

	store, err := shared.OpenStorage(conf, true /* create */, false /* migrate */)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up storage: %v", err), err)
	}
	events := eventsvc.NewPublisher(conf, logger)

	validate := validator.New()
	translator := core.NewTranslator()
	shared.InitValidators(validate, translator)

	cli := &commandLine{
		out:        os.Stdout,
		conf:       conf,
		logger:     logger,
		validate:   validate,
		translator: translator,
		store:      store,
		svcs:       shared.NewServices(shared.Deps{
			Conf:     conf,
			Logger:   logger,
			Repos:    store.Repos,
			Mail:     emailsvc.NewService(conf, logger),
			Events:   events,
			Renderer: docsvc.NewReceiptRenderer(),
		}),
	}

	err = newRootCmd(cli).Execute()

	_ = events.Close()
	_ = store.Close()
	logger.Close()
	if err != nil {
		os.Exit(1)
	}
}
