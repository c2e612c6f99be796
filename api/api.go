package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/webedmilson/bancoCred/api/middleware"
	"github.com/webedmilson/bancoCred/config"
	"github.com/webedmilson/bancoCred/model"
)

// Service is the ledger surface the HTTP layer drives. *bancocred.BancoCred
// implements it.
type Service interface {
	RegisterUser(ctx context.Context, input model.NewUser) (*model.UserWithAccounts, error)
	GetUser(ctx context.Context, userID string) (*model.UserWithAccounts, error)
	OpenAccount(ctx context.Context, userID string, accountType model.AccountType) (*model.Account, error)
	GetAccount(ctx context.Context, actingUserID, accountID string) (*model.Account, error)
	ListAccounts(ctx context.Context, userID string) ([]model.Account, error)
	ReplayOwnAccount(ctx context.Context, actingUserID, accountID string) (*model.Replay, error)
	Execute(ctx context.Context, op model.Operation, actingUserID string) (*model.Transaction, error)
	GetTransaction(ctx context.Context, actingUserID, id string) (*model.Transaction, error)
	ListTransactions(ctx context.Context, userID string, limit, offset int) ([]model.Transaction, error)
	Buy(ctx context.Context, actingUserID string, amountLocal decimal.Decimal, currency model.Currency) (*model.ExchangeResult, error)
	Sell(ctx context.Context, actingUserID string, amountForeign decimal.Decimal, currency model.Currency) (*model.ExchangeResult, error)
	GetRates(ctx context.Context) (map[model.Currency]model.Quote, error)
}

type Api struct {
	service Service
	router  *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router

	router.POST("/users", a.RegisterUser)

	authed := router.Group("/", middleware.ActorMiddleware())
	authed.GET("/users/me", a.GetCurrentUser)

	authed.POST("/accounts", a.OpenAccount)
	authed.GET("/accounts", a.ListAccounts)
	authed.GET("/accounts/:id", a.GetAccount)
	authed.GET("/accounts/:id/replay", a.ReplayAccount)

	authed.POST("/transactions", a.CreateTransaction)
	authed.GET("/transactions", a.ListTransactions)
	authed.GET("/transactions/:id", a.GetTransaction)

	authed.POST("/exchange/buy", a.Buy)
	authed.POST("/exchange/sell", a.Sell)
	authed.GET("/exchange/rates", a.GetRates)

	return a.router
}

func NewAPI(service Service) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger())
	if conf.EnableTelemetry {
		r.Use(otelgin.Middleware(conf.ProjectName))
	}
	r.Use(middleware.RateLimitMiddleware(conf))

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, "server running...")
	})
	if conf.EnableMetrics {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	if conf.Server.Secure {
		r.Use(middleware.SecretKeyAuthMiddleware())
	}

	return &Api{service: service, router: r}
}
