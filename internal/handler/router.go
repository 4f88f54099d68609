package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"roofmart/internal/mw"
)

type Orders interface {
	OrderReader
	OrderAdmin
}

type Deps struct {
	Sessions       Sessions
	AllowedOrigins []string
	Limiter        *mw.RateLimiter

	Auth          Authenticator
	Profiles      Profiles
	Payments      Payments
	Confirmations Confirmations
	Orders        Orders
	Revenue       RevenueReporter
	Catalog       Catalog
	Inquiries     Inquiries
	Carts         Carts // nil disables the cart routes
	Inventory     Inventory
	Admins        mw.AdminChecker // nil trusts the admin role in the token
	Health        map[string]HealthCheck
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	limited := func(h http.Handler) http.Handler { return h }
	if d.Limiter != nil {
		limited = d.Limiter.Middleware
	}

	r.Get("/healthz", HealthHandler(d.Health))

	// Public routes
	r.With(limited).Post("/api/user/register", RegisterHandler(d.Auth, d.Sessions))
	r.With(limited).Post("/api/user/login", LoginHandler(d.Auth, d.Sessions))
	mountCatalog(r, d.Catalog)
	r.With(limited).Post("/api/inquiries", CreateInquiryHandler(d.Inquiries))

	r.With(limited).Post("/api/payments/razorpay/verify", RazorpayVerifyHandler(d.Payments))
	r.Get("/api/payments/stripe/verify", StripeVerifyHandler(d.Payments))
	r.With(limited).Post("/api/payments/stripe/verify", StripeVerifyHandler(d.Payments))

	// Guests and signed-in buyers
	r.Group(func(r chi.Router) {
		r.Use(mw.OptionalAuth(d.Sessions.Secret))

		r.With(limited).Post("/api/checkout", CheckoutHandler(d.Payments))
		r.Post("/api/orders/{id}/submit-payment", SubmitPaymentHandler(d.Payments))

		if d.Carts != nil {
			r.Post("/api/cart", NewCartHandler())
			r.Get("/api/cart/{cartID}", ViewCartHandler(d.Carts))
			r.Delete("/api/cart/{cartID}", ClearCartHandler(d.Carts))
			r.Post("/api/cart/{cartID}/items", AddCartItemHandler(d.Carts))
			r.Put("/api/cart/{cartID}/items/{productID}", SetCartItemHandler(d.Carts))
			r.Delete("/api/cart/{cartID}/items/{productID}", RemoveCartItemHandler(d.Carts))
			r.With(limited).Post("/api/cart/{cartID}/checkout", CartCheckoutHandler(d.Carts))
		}
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(mw.AuthMiddleware(d.Sessions.Secret))

		r.Get("/api/user/orders", ListOrdersHandler(d.Orders))
		r.Get("/api/user/orders/{id}", GetOrderHandler(d.Orders))
		r.Get("/api/user/profile", MeHandler(d.Profiles))
		r.Put("/api/user/profile", UpdateMeHandler(d.Profiles))
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(mw.RequireAdmin(d.Sessions.Secret, d.Admins))

		r.Get("/orders", AdminListOrdersHandler(d.Orders))
		r.Get("/orders/{id}", AdminGetOrderHandler(d.Orders))
		r.Post("/orders/{id}/confirm", ConfirmPaymentHandler(d.Confirmations))
		r.Post("/orders/{id}/reject", RejectPaymentHandler(d.Confirmations))
		r.Put("/orders/{id}/status", UpdateOrderStatusHandler(d.Orders))
		r.Delete("/orders/{id}", DeleteOrderHandler(d.Orders))

		r.Get("/revenue", RevenueHandler(d.Revenue))

		mountCatalogAdmin(r, d.Catalog)
		mountInquiryAdmin(r, d.Inquiries)
		mountProfileAdmin(r, d.Profiles)
		mountInventoryAdmin(r, d.Inventory)
	})

	return r
}
