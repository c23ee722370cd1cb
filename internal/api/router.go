package api

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"

	apiContext "callflow/internal/api/context"
	"callflow/internal/api/handlers"
	"callflow/internal/api/middleware"
)

type Dependencies struct {
	WebhookHandler      *handlers.WebhookHandler
	SubscriptionHandler *handlers.SubscriptionHandler
	NotificationHandler *handlers.NotificationHandler
	HealthHandler       *handlers.HealthHandler
	MetricsHandler      *handlers.MetricsHandler
	AuthMiddleware      *middleware.AuthMiddleware
	RateLimiter         *middleware.RateLimiter
}

func NewRouter(deps *Dependencies) *httprouter.Router {
	router := httprouter.New()

	authMid := deps.AuthMiddleware
	limiter := deps.RateLimiter

	register := chainFuncs(deps.SubscriptionHandler.Register,
		authMid.Handle, limiter.Limit("api_write"))
	receive := chainFuncs(deps.WebhookHandler.Receive,
		limiter.Limit("ingest"))

	// httprouter rejects a static /webhooks/register next to
	// /webhooks/:provider, so the reserved segment is split off here.
	router.POST("/webhooks/:provider", wrap(func(w http.ResponseWriter, r *http.Request) {
		params := r.Context().Value(apiContext.Params).(httprouter.Params)
		if params.ByName("provider") == "register" {
			register(w, r)
			return
		}
		receive(w, r)
	}))

	router.DELETE("/subscriptions/:customer_id/:workspace_id",
		chain(deps.SubscriptionHandler.Deactivate, authMid.Handle, limiter.Limit("api_write")))

	router.GET("/notifications",
		chain(deps.NotificationHandler.List, authMid.Handle, limiter.Limit("api_read")))

	router.GET("/health", wrap(deps.HealthHandler.Check))
	router.GET("/metrics", wrap(deps.MetricsHandler.Export))

	return router
}

func chain(handler http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) httprouter.Handle {
	return wrap(chainFuncs(handler, middlewares...))
}

func chainFuncs(handler http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return handler
}

// Convert http.HandlerFunc to httprouter.Handle, injecting params into the
// request context.
func wrap(handler http.HandlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx := context.WithValue(r.Context(), apiContext.Params, ps)
		handler(w, r.WithContext(ctx))
	}
}
