package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	database "github.com/mzielinski/BudgetSync/db"
	"github.com/mzielinski/BudgetSync/internal/auth"
	"github.com/mzielinski/BudgetSync/internal/bank"
	"github.com/mzielinski/BudgetSync/internal/budget/application"
	"github.com/mzielinski/BudgetSync/internal/budget/infrastructure"
	"github.com/mzielinski/BudgetSync/internal/budget/interfaces"
)

type Response struct {
	Message string `json:"message"`
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("Started %s %s", r.Method, r.URL.Path)

		next.ServeHTTP(w, r)

		log.Printf("Completed %s in %v", r.URL.Path, time.Since(start))
	})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string, errs ...[]string) {
	payload := map[string]interface{}{
		"status":  "error",
		"message": message,
		"code":    status,
	}
	if len(errs) > 0 {
		payload["errors"] = errs[0]
	}
	respondJSON(w, status, payload)
}

type Server struct {
	router              *http.ServeMux
	jwtManager          auth.JWTManagerInterface
	itemHandler         *interfaces.ItemHandler
	accountHandler      *interfaces.AccountHandler
	ledgerHandler       *interfaces.LedgerHandler
	budgetHandler       *interfaces.BudgetHandler
	ruleHandler         *interfaces.RuleHandler
	subscriptionHandler *interfaces.SubscriptionHandler
	webhookHandler      *interfaces.WebhookHandler
}

func NewServer(
	jwtManager auth.JWTManagerInterface,
	itemHandler *interfaces.ItemHandler,
	accountHandler *interfaces.AccountHandler,
	ledgerHandler *interfaces.LedgerHandler,
	budgetHandler *interfaces.BudgetHandler,
	ruleHandler *interfaces.RuleHandler,
	subscriptionHandler *interfaces.SubscriptionHandler,
	webhookHandler *interfaces.WebhookHandler,
) *Server {
	return &Server{
		router:              http.NewServeMux(),
		jwtManager:          jwtManager,
		itemHandler:         itemHandler,
		accountHandler:      accountHandler,
		ledgerHandler:       ledgerHandler,
		budgetHandler:       budgetHandler,
		ruleHandler:         ruleHandler,
		subscriptionHandler: subscriptionHandler,
		webhookHandler:      webhookHandler,
	}
}

func notFoundHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	json.NewEncoder(w).Encode(Response{Message: "Path not found"})
}

func checkConfiguration() error {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file, continuing with system environment variables")
	}

	for _, key := range []string{"JWT_SECRET", "DB_CONNECTION_STRING", "PLAID_CLIENT_ID", "PLAID_SECRET", "WEBHOOK_SHARED_SECRET"} {
		if os.Getenv(key) == "" {
			return errors.New("no " + key + " provided")
		}
	}
	return nil
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ready",
	})
}

func (s *Server) RegisterRoutes() {
	protect := auth.JWTAccessTokenMiddleware(s.jwtManager)

	// Public routes
	publicRoutes := http.NewServeMux()
	publicRoutes.Handle("POST /api/webhooks/plaid", http.HandlerFunc(s.webhookHandler.HandleWebhook))
	publicRoutes.Handle("GET /api/ready", http.HandlerFunc(s.handleReady))

	// Protected routes (using JWT Access Token Middleware)
	protectedRoutes := http.NewServeMux()

	// ITEMS API (bank connections)
	protectedRoutes.Handle("POST /api/protected/items/link-token", protect(http.HandlerFunc(s.itemHandler.CreateLinkToken)))
	protectedRoutes.Handle("POST /api/protected/items/exchange", protect(http.HandlerFunc(s.itemHandler.ExchangePublicToken)))
	protectedRoutes.Handle("GET /api/protected/items", protect(http.HandlerFunc(s.itemHandler.GetItems)))
	protectedRoutes.Handle("POST /api/protected/items/sync", protect(http.HandlerFunc(s.itemHandler.SyncNow)))
	protectedRoutes.Handle("POST /api/protected/items/refresh-balances", protect(http.HandlerFunc(s.itemHandler.RefreshBalances)))

	// ACCOUNTS API
	protectedRoutes.Handle("GET /api/protected/accounts", protect(http.HandlerFunc(s.accountHandler.GetAccounts)))
	protectedRoutes.Handle("PATCH /api/protected/accounts/{accountID}/hidden", protect(http.HandlerFunc(s.accountHandler.SetHidden)))

	// LEDGER API
	protectedRoutes.Handle("POST /api/protected/entries", protect(http.HandlerFunc(s.ledgerHandler.CreateEntry)))
	protectedRoutes.Handle("GET /api/protected/entries", protect(http.HandlerFunc(s.ledgerHandler.GetEntries)))
	protectedRoutes.Handle("GET /api/protected/entries/suggest-category", protect(http.HandlerFunc(s.ledgerHandler.SuggestCategory)))
	protectedRoutes.Handle("PUT /api/protected/entries/{entryID}", protect(http.HandlerFunc(s.ledgerHandler.UpdateEntry)))
	protectedRoutes.Handle("DELETE /api/protected/entries/{entryID}", protect(http.HandlerFunc(s.ledgerHandler.DeleteEntry)))
	protectedRoutes.Handle("PATCH /api/protected/entries/{entryID}/category", protect(http.HandlerFunc(s.ledgerHandler.SetCategory)))
	protectedRoutes.Handle("PATCH /api/protected/entries/{entryID}/excluded", protect(http.HandlerFunc(s.ledgerHandler.SetExcluded)))
	protectedRoutes.Handle("POST /api/protected/entries/{entryID}/split", protect(http.HandlerFunc(s.ledgerHandler.SplitEntry)))
	protectedRoutes.Handle("GET /api/protected/entries/{entryID}/split", protect(http.HandlerFunc(s.ledgerHandler.GetSplitChildren)))

	// BUDGETS API
	protectedRoutes.Handle("POST /api/protected/budgets", protect(http.HandlerFunc(s.budgetHandler.CreateBudget)))
	protectedRoutes.Handle("GET /api/protected/budgets", protect(http.HandlerFunc(s.budgetHandler.GetBudget)))
	protectedRoutes.Handle("GET /api/protected/budgets/summary", protect(http.HandlerFunc(s.budgetHandler.GetSummary)))
	protectedRoutes.Handle("PATCH /api/protected/budgets/{budgetID}/planned-income", protect(http.HandlerFunc(s.budgetHandler.SetPlannedIncome)))
	protectedRoutes.Handle("POST /api/protected/budgets/{budgetID}/groups", protect(http.HandlerFunc(s.budgetHandler.AddGroup)))
	protectedRoutes.Handle("POST /api/protected/groups/{groupID}/line-items", protect(http.HandlerFunc(s.budgetHandler.AddLineItem)))
	protectedRoutes.Handle("PUT /api/protected/line-items/{lineItemID}", protect(http.HandlerFunc(s.budgetHandler.UpdateLineItem)))
	protectedRoutes.Handle("DELETE /api/protected/line-items/{lineItemID}", protect(http.HandlerFunc(s.budgetHandler.DeleteLineItem)))

	// RULES API
	protectedRoutes.Handle("POST /api/protected/rules", protect(http.HandlerFunc(s.ruleHandler.CreateRule)))
	protectedRoutes.Handle("GET /api/protected/rules", protect(http.HandlerFunc(s.ruleHandler.ListRules)))
	protectedRoutes.Handle("PUT /api/protected/rules/{ruleID}", protect(http.HandlerFunc(s.ruleHandler.UpdateRule)))
	protectedRoutes.Handle("DELETE /api/protected/rules/{ruleID}", protect(http.HandlerFunc(s.ruleHandler.DeleteRule)))

	// SUBSCRIPTIONS API
	protectedRoutes.Handle("GET /api/protected/subscriptions", protect(http.HandlerFunc(s.subscriptionHandler.ListSubscriptions)))
	protectedRoutes.Handle("POST /api/protected/subscriptions/detect", protect(http.HandlerFunc(s.subscriptionHandler.DetectNow)))
	protectedRoutes.Handle("POST /api/protected/subscriptions/{subscriptionID}/confirm", protect(http.HandlerFunc(s.subscriptionHandler.ConfirmSubscription)))
	protectedRoutes.Handle("POST /api/protected/subscriptions/{subscriptionID}/dismiss", protect(http.HandlerFunc(s.subscriptionHandler.DismissSubscription)))

	// Main router
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/api/", publicRoutes)
	mainRouter.Handle("/api/protected/", protectedRoutes)
	mainRouter.Handle("/", http.HandlerFunc(notFoundHandler))

	s.router = mainRouter
}

func main() {
	if err := checkConfiguration(); err != nil {
		log.Fatalf("Missing configuration, update to start server: %v", err)
	}

	dbService, err := database.NewDBService()
	if err != nil {
		log.Fatalf("Could not initialize database: %v", err)
	}
	defer dbService.Close()

	if err := database.RunMigrations(dbService.DB); err != nil {
		log.Fatalf("Could not run migrations: %v", err)
	}

	jwtManager := auth.NewJWTManager()

	gateway := bank.NewPlaidClient(
		os.Getenv("PLAID_CLIENT_ID"),
		os.Getenv("PLAID_SECRET"),
		os.Getenv("PLAID_BASE_URL"),
	)
	credentialStore := bank.NewPostgresCredentialStore(dbService.DB)

	itemRepo := infrastructure.NewLinkedItemRepository(dbService.DB)
	accountRepo := infrastructure.NewAccountRepository(dbService.DB)
	ledgerRepo := infrastructure.NewLedgerRepository(dbService.DB)
	ruleRepo := infrastructure.NewRuleRepository(dbService.DB)
	budgetRepo := infrastructure.NewBudgetRepository(dbService.DB)
	subscriptionRepo := infrastructure.NewSubscriptionRepository(dbService.DB)
	userRepo := infrastructure.NewUserRepository(dbService.DB)

	syncService := application.NewSyncService(gateway, credentialStore, itemRepo, accountRepo, ledgerRepo, ruleRepo)
	ledgerService := application.NewLedgerService(ledgerRepo, budgetRepo, ruleRepo)
	budgetService := application.NewBudgetService(budgetRepo, ledgerRepo)
	ruleService := application.NewRuleService(ruleRepo, budgetRepo)
	subscriptionService := application.NewSubscriptionService(subscriptionRepo, ledgerRepo, userRepo)

	itemHandler := interfaces.NewItemHandler(syncService, respondJSON, respondError)
	accountHandler := interfaces.NewAccountHandler(accountRepo, respondJSON, respondError)
	ledgerHandler := interfaces.NewLedgerHandler(ledgerService, respondJSON, respondError)
	budgetHandler := interfaces.NewBudgetHandler(budgetService, respondJSON, respondError)
	ruleHandler := interfaces.NewRuleHandler(ruleService, respondJSON, respondError)
	subscriptionHandler := interfaces.NewSubscriptionHandler(subscriptionService, respondJSON, respondError)
	webhookHandler := interfaces.NewWebhookHandler(syncService, os.Getenv("WEBHOOK_SHARED_SECRET"), respondJSON, respondError)

	server := NewServer(jwtManager, itemHandler, accountHandler, ledgerHandler, budgetHandler, ruleHandler, subscriptionHandler, webhookHandler)
	server.RegisterRoutes()

	if err := StartSyncScheduler(syncService); err != nil {
		log.Fatalf("Sync scheduler didn't start, stopping the app ...")
	}
	if err := StartDetectionScheduler(subscriptionService); err != nil {
		log.Fatalf("Detection scheduler didn't start, stopping the app ...")
	}

	handler := loggingMiddleware(http.HandlerFunc(server.router.ServeHTTP))
	log.Println("Server starting on port 8080...")
	if err := http.ListenAndServe(":8080", handler); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}

// StartSyncScheduler runs the incremental sync sweep across every active item.
// Webhooks keep data fresh between passes; the sweep catches items whose
// webhooks were missed.
func StartSyncScheduler(syncService *application.SyncService) error {
	c := cron.New()
	_, err := c.AddFunc("@every 6h", func() {
		log.Println("Starting scheduled sync sweep...")
		syncService.SyncAllActive()
		log.Println("Scheduled sync sweep finished.")
	})
	if err != nil {
		return err
	}
	c.Start()
	return nil
}

// StartDetectionScheduler runs the nightly subscription detector.
func StartDetectionScheduler(subscriptionService *application.SubscriptionService) error {
	c := cron.New()
	_, err := c.AddFunc("0 3 * * *", func() {
		created, err := subscriptionService.DetectAllUsers()
		if err != nil {
			log.Printf("Error running subscription detection: %v", err)
		} else {
			log.Printf("Subscription detection finished, %d new candidates.", created)
		}
	})
	if err != nil {
		return err
	}
	c.Start()
	return nil
}
