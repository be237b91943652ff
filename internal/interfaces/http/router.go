package http

import (
	"github.com/gofiber/fiber/v2"

	pkgjwt "github.com/jhoicas/facturador-sunat/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Documents       DocumentService
	Lifecycle       LifecycleService
	Issuers         *IssuerHandler
	Auth            *AuthHandler
	JWTSecret       string
	PollConcurrency int
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Rutas públicas
	if deps.Auth != nil {
		api.Post("/auth/login", deps.Auth.Login)
	}

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))
	readers := RequireRole(pkgjwt.RoleAdmin, pkgjwt.RoleEmisor, pkgjwt.RoleConsulta)
	writers := RequireRole(pkgjwt.RoleAdmin, pkgjwt.RoleEmisor)
	admins := RequireRole(pkgjwt.RoleAdmin)

	if deps.Auth != nil {
		protected.Post("/auth/register", admins, deps.Auth.Register)
	}

	// Emisores
	if deps.Issuers != nil {
		issuers := protected.Group("/issuers")
		issuers.Post("/", admins, deps.Issuers.Create)
		issuers.Get("/:id", readers, deps.Issuers.GetByID)
	}

	// Comprobantes
	docHandler := NewDocumentHandler(deps.Documents, deps.Lifecycle, deps.PollConcurrency)
	documents := protected.Group("/documents")
	documents.Post("/", writers, docHandler.Create)
	documents.Get("/:id", readers, docHandler.GetByID)
	documents.Delete("/:id", writers, docHandler.Delete)
	documents.Get("/:id/receipt", readers, docHandler.Receipt)
	documents.Post("/:id/sign", writers, docHandler.Sign)
	documents.Post("/:id/submit", writers, docHandler.Submit)
	documents.Post("/:id/void-summary", writers, docHandler.SubmitVoidance)
	documents.Post("/:id/poll", writers, docHandler.Poll)

	protected.Get("/series/:series/next", readers, docHandler.NextNumber)
	protected.Post("/tickets/poll", admins, docHandler.PollPending)
}
