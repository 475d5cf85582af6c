package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ashimneupane/bazarly-backend/api/controllers"
	"github.com/ashimneupane/bazarly-backend/api/middleware"
	"github.com/ashimneupane/bazarly-backend/internal/auth"
	"github.com/ashimneupane/bazarly-backend/internal/banners"
	"github.com/ashimneupane/bazarly-backend/internal/cart"
	"github.com/ashimneupane/bazarly-backend/internal/categories"
	"github.com/ashimneupane/bazarly-backend/internal/dashboard"
	"github.com/ashimneupane/bazarly-backend/internal/deals"
	"github.com/ashimneupane/bazarly-backend/internal/media"
	"github.com/ashimneupane/bazarly-backend/internal/notifications"
	"github.com/ashimneupane/bazarly-backend/internal/orders"
	"github.com/ashimneupane/bazarly-backend/internal/products"
	"github.com/ashimneupane/bazarly-backend/internal/reviews"
	"github.com/ashimneupane/bazarly-backend/internal/wishlist"
	"github.com/ashimneupane/bazarly-backend/pkg/config"
	"github.com/ashimneupane/bazarly-backend/pkg/enums"
	"github.com/ashimneupane/bazarly-backend/pkg/logger"
	redispkg "github.com/ashimneupane/bazarly-backend/pkg/redis"
)

// Deps groups everything the HTTP surface needs. Pingers and the Redis
// client may be nil in tests; rate limiting then fails open and readiness
// reports only the wired dependencies.
type Deps struct {
	Config *config.Config
	Logger *logger.Logger

	DB      controllers.Pinger
	Redis   *redispkg.Client
	Storage controllers.Pinger

	Auth          auth.Service
	Categories    categories.Service
	Products      products.Service
	Cart          cart.Service
	Wishlist      wishlist.Service
	Orders        orders.Service
	Reviews       reviews.Service
	Deals         deals.Service
	Banners       banners.Service
	Notifications notifications.Service
	Dashboard     dashboard.Service
	Media         media.Service
}

// NewRouter wires every route group onto a chi mux.
func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	// Assign through a local so a nil client never becomes a non-nil interface.
	var idem redispkg.IdempotencyStore
	if deps.Redis != nil {
		idem = deps.Redis
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	readiness := map[string]controllers.Pinger{}
	if deps.DB != nil {
		readiness["postgres"] = deps.DB
	}
	if deps.Redis != nil {
		readiness["redis"] = deps.Redis
	}
	if deps.Storage != nil {
		readiness["storage"] = deps.Storage
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive())
		r.Get("/ready", controllers.HealthReady(logg, readiness))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		login := middleware.RateLimit(deps.Redis, "login", int64(cfg.AuthRateLimit.LoginIPLimit), cfg.AuthRateLimit.LoginWindow, logg)
		register := middleware.RateLimit(deps.Redis, "register", int64(cfg.AuthRateLimit.RegisterIPLimit), cfg.AuthRateLimit.RegisterWindow, logg)

		r.With(register).Post("/register", controllers.RegisterUser(deps.Auth, logg))
		r.With(login).Post("/login", controllers.Login(deps.Auth, logg, enums.PrincipalUser))
		r.With(register).Post("/vendor/register", controllers.RegisterVendor(deps.Auth, logg))
		r.With(login).Post("/vendor/login", controllers.Login(deps.Auth, logg, enums.PrincipalVendor))
		r.Post("/refresh", controllers.Refresh(deps.Auth, logg))
		r.Post("/logout", controllers.Logout(deps.Auth, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireUser(cfg.JWT, logg))
			r.Get("/me", controllers.MeUser(deps.Auth, logg))
			r.Post("/logout-all", controllers.LogoutAll(deps.Auth, logg, enums.PrincipalUser))
		})
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireVendor(cfg.JWT, logg))
			r.Get("/vendor/me", controllers.MeVendor(deps.Auth, logg))
			r.Post("/vendor/logout-all", controllers.LogoutAll(deps.Auth, logg, enums.PrincipalVendor))
		})
	})

	// Public catalog and storefront.
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/homepage", controllers.Homepage(deps.Banners, logg))
		r.Get("/categories", controllers.ListCategories(deps.Categories, logg))
		r.Get("/categories/{categoryID}", controllers.GetCategory(deps.Categories, logg))
		r.Get("/products", controllers.ListProducts(deps.Products, logg))
		r.Get("/products/{productID}", controllers.GetProduct(deps.Products, logg))
		r.Get("/products/{productID}/reviews", controllers.ListProductReviews(deps.Reviews, logg))
		r.Get("/products/{productID}/reviews/summary", controllers.ReviewSummary(deps.Reviews, logg))
		r.Get("/deals", controllers.ListDeals(deps.Deals, logg, true))
		r.Get("/deals/{dealID}", controllers.GetDeal(deps.Deals, logg))

		// Payment gateways redirect the shopper here after checkout.
		r.Get("/payments/esewa/{orderID}/confirm", controllers.ConfirmEsewaPayment(deps.Orders, logg))
		r.Get("/payments/esewa/{orderID}/cancel", controllers.CancelPayment(deps.Orders, logg))
		r.Get("/payments/khalti/{orderID}/confirm", controllers.ConfirmKhaltiPayment(deps.Orders, logg))
		r.Get("/payments/khalti/{orderID}/cancel", controllers.CancelPayment(deps.Orders, logg))
	})

	// Customer surface.
	r.Route("/api/v1/my", func(r chi.Router) {
		r.Use(middleware.RequireUser(cfg.JWT, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.ViewCart(deps.Cart, logg))
			r.Post("/items", controllers.AddCartItem(deps.Cart, logg))
			r.Put("/items/{itemID}", controllers.UpdateCartItem(deps.Cart, logg))
			r.Delete("/items/{itemID}", controllers.RemoveCartItem(deps.Cart, logg))
			r.Delete("/", controllers.ClearCart(deps.Cart, logg))
		})

		r.Route("/wishlist", func(r chi.Router) {
			r.Get("/", controllers.ListWishlist(deps.Wishlist, logg))
			r.Post("/", controllers.AddWishlistItem(deps.Wishlist, logg))
			r.Delete("/{productID}", controllers.RemoveWishlistItem(deps.Wishlist, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.CreateOrder(deps.Orders, idem, logg))
			r.Get("/", controllers.ListOrders(deps.Orders, logg))
			r.Get("/{orderID}", controllers.GetOrder(deps.Orders, logg))
			r.Post("/{orderID}/cancel", controllers.CancelOrder(deps.Orders, logg))
		})

		r.Route("/reviews", func(r chi.Router) {
			r.Post("/", controllers.CreateReview(deps.Reviews, logg))
			r.Put("/{reviewID}", controllers.UpdateReview(deps.Reviews, logg))
			r.Delete("/{reviewID}", controllers.DeleteReview(deps.Reviews, logg, false))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(deps.Notifications, logg, enums.PrincipalUser))
			r.Post("/{notificationID}/read", controllers.MarkNotificationRead(deps.Notifications, logg, enums.PrincipalUser))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg, enums.PrincipalUser))
		})
	})

	// Vendor surface.
	r.Route("/api/v1/vendor", func(r chi.Router) {
		r.Use(middleware.RequireVendor(cfg.JWT, logg))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ListVendorProducts(deps.Products, logg))
			r.Post("/", controllers.CreateProduct(deps.Products, logg))
			r.Put("/{productID}", controllers.UpdateProduct(deps.Products, logg, false))
			r.Delete("/{productID}", controllers.DeleteProduct(deps.Products, logg, false))
			r.Post("/{productID}/variants", controllers.AddVariant(deps.Products, logg, false))
			r.Put("/{productID}/variants/{variantID}", controllers.UpdateVariant(deps.Products, logg, false))
			r.Delete("/{productID}/variants/{variantID}", controllers.DeleteVariant(deps.Products, logg, false))
		})

		r.Get("/orders", controllers.ListVendorOrderItems(deps.Orders, logg))
		r.Get("/dashboard", controllers.VendorDashboard(deps.Dashboard, logg))
		r.Delete("/reviews/{reviewID}", controllers.DeleteVendorReview(deps.Reviews, logg))

		r.Route("/media", func(r chi.Router) {
			r.Post("/images", controllers.UploadImages(deps.Media, logg))
			r.Delete("/images", controllers.DeleteImage(deps.Media, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(deps.Notifications, logg, enums.PrincipalVendor))
			r.Post("/{notificationID}/read", controllers.MarkNotificationRead(deps.Notifications, logg, enums.PrincipalVendor))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg, enums.PrincipalVendor))
		})
	})

	// Admin surface. Staff may operate fulfilment and moderation; category,
	// deal, banner, and media management is admin-only.
	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(middleware.RequireUser(cfg.JWT, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.RoleAdmin, enums.RoleStaff))

			r.Get("/dashboard", controllers.AdminDashboard(deps.Dashboard, logg))
			r.Get("/orders", controllers.ListAllOrders(deps.Orders, logg))
			r.Put("/orders/{orderID}/status", controllers.UpdateOrderStatus(deps.Orders, logg))
			r.Delete("/reviews/{reviewID}", controllers.DeleteReview(deps.Reviews, logg, true))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.RoleAdmin))

			r.Route("/categories", func(r chi.Router) {
				r.Post("/", controllers.CreateCategory(deps.Categories, logg))
				r.Put("/{categoryID}", controllers.UpdateCategory(deps.Categories, logg))
				r.Delete("/{categoryID}", controllers.DeleteCategory(deps.Categories, logg))
				r.Post("/{categoryID}/subcategories", controllers.CreateSubcategory(deps.Categories, logg))
			})
			r.Delete("/subcategories/{subcategoryID}", controllers.DeleteSubcategory(deps.Categories, logg))

			r.Route("/deals", func(r chi.Router) {
				r.Get("/", controllers.ListDeals(deps.Deals, logg, false))
				r.Post("/", controllers.CreateDeal(deps.Deals, logg))
				r.Put("/{dealID}", controllers.UpdateDeal(deps.Deals, logg))
				r.Delete("/{dealID}", controllers.DeleteDeal(deps.Deals, logg))
				r.Post("/{dealID}/products", controllers.AttachDealProducts(deps.Deals, logg))
				r.Delete("/{dealID}/products", controllers.DetachDealProducts(deps.Deals, logg))
				r.Put("/{dealID}/status", controllers.SetDealStatus(deps.Deals, logg))
			})

			r.Route("/banners", func(r chi.Router) {
				r.Get("/", controllers.ListBanners(deps.Banners, logg))
				r.Get("/{bannerID}", controllers.GetBanner(deps.Banners, logg))
				r.Post("/", controllers.CreateBanner(deps.Banners, logg))
				r.Put("/{bannerID}", controllers.UpdateBanner(deps.Banners, logg))
				r.Delete("/{bannerID}", controllers.DeleteBanner(deps.Banners, logg))
				r.Post("/{bannerID}/products", controllers.AttachBannerProducts(deps.Banners, logg))
				r.Delete("/{bannerID}/products", controllers.DetachBannerProducts(deps.Banners, logg))
			})

			r.Put("/products/{productID}/featured", controllers.SetFeatured(deps.Products, logg))

			// Moderation: product writes without the vendor ownership scope.
			r.Put("/products/{productID}", controllers.UpdateProduct(deps.Products, logg, true))
			r.Delete("/products/{productID}", controllers.DeleteProduct(deps.Products, logg, true))
			r.Post("/products/{productID}/variants", controllers.AddVariant(deps.Products, logg, true))
			r.Put("/products/{productID}/variants/{variantID}", controllers.UpdateVariant(deps.Products, logg, true))
			r.Delete("/products/{productID}/variants/{variantID}", controllers.DeleteVariant(deps.Products, logg, true))

			r.Route("/media", func(r chi.Router) {
				r.Post("/images", controllers.UploadImages(deps.Media, logg))
				r.Delete("/images", controllers.DeleteImage(deps.Media, logg))
			})
		})
	})

	return r
}
