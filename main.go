package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"funnelbot/analytics"
	"funnelbot/bot"
	"funnelbot/config"
	controller "funnelbot/controllers"
	"funnelbot/funnel"
	"funnelbot/middleware"
	"funnelbot/models"
	"funnelbot/routes"
	"funnelbot/store"
	"funnelbot/utils"
	"funnelbot/worker"
)

func main() {
	logger := log.New(os.Stdout, "FUNNEL: ", log.Ldate|log.Ltime|log.Lshortfile)

	if err := config.LoadConfig(); err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	if config.AppConfig.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         config.AppConfig.SentryDSN,
			Environment: config.AppConfig.Environment,
		}); err != nil {
			logger.Fatalf("Failed to initialize Sentry: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	db, err := config.ConnectDB()
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := models.Migrate(db); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	api, err := gotgbot.NewBot(config.AppConfig.TelegramBotToken, nil)
	if err != nil {
		logger.Fatalf("Failed to create bot: %v", err)
	}

	// Core services
	st := store.New(db)
	clock := funnel.SystemClock{}
	sink := bot.NewTelegramSink(api)
	tagger := utils.NewLinkTagger(config.AppConfig.TrackingSourceParam, config.AppConfig.TrackingIDParam)
	dispatcher := funnel.NewDispatcher(st, sink, tagger, clock, log.New(os.Stdout, "DISPATCH: ", log.LstdFlags))
	enrollment := funnel.NewEnrollment(st, dispatcher, clock, log.New(os.Stdout, "ENROLL: ", log.LstdFlags))
	interactions := funnel.NewInteractions(st, dispatcher, enrollment, clock, config.AppConfig.AdvanceInterSendPause(), log.New(os.Stdout, "INTERACT: ", log.LstdFlags))

	// Background workers
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dispatchWorker := worker.NewDispatchWorker(
		st, dispatcher, clock,
		log.New(os.Stdout, "DISPATCH: ", log.LstdFlags),
		config.AppConfig.TickInterval(),
		config.AppConfig.InterSendPause(),
		config.AppConfig.DispatchBatchLimit,
	)
	go dispatchWorker.Start(ctx)

	dailyWorker := worker.NewDailyWorker(
		enrollment, st, clock,
		log.New(os.Stdout, "DAILY: ", log.LstdFlags),
		config.AppConfig.LogRetentionDays,
	)
	if err := dailyWorker.Start(); err != nil {
		logger.Fatalf("Failed to start daily worker: %v", err)
	}
	defer dailyWorker.Stop()

	// Telegram bot
	wizard := bot.NewBroadcastWizard(st)
	wizard.StartSweeper(ctx.Done())
	tgBot := bot.New(api, st, enrollment, interactions, wizard, config.AppConfig.AdminChatID, log.New(os.Stdout, "BOT: ", log.LstdFlags))
	go func() {
		if err := tgBot.Start(); err != nil {
			logger.Fatalf("Failed to start bot: %v", err)
		}
	}()
	defer tgBot.Stop()

	// Admin API
	controller.InitStripe()
	httpLog := logrus.New()
	reader := analytics.NewReader(db, config.AppConfig.ReactionWindow())
	fc := controller.NewFunnelController(st, reader, httpLog)
	pc := controller.NewPaymentController(enrollment, httpLog)

	app := fiber.New()
	app.Use(middleware.CORS())
	routes.SetupRoutes(app, fc, pc)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "running",
			"version": "1.0.0",
		})
	})

	logger.Printf("🚀 Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
