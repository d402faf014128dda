package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/crew-ticket-service/internal/api/http/handlers"
	"github.com/spec-kit/crew-ticket-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health            *handlers.HealthHandler
	Tickets           *handlers.TicketsHandler
	Crews             *handlers.CrewsHandler
	Members           *handlers.MembersHandler
	Events            *handlers.EventsHandler
	AuthMiddleware    *auth.AuthMiddleware
	Admins            auth.AdminChecker
	WebhookSecretHash string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	events := app.Group("/events", auth.VerifyWebhookSecret(cfg.WebhookSecretHash))
	events.Post("/member-departed", cfg.Events.MemberDeparted)
	events.Post("/thread-updated", cfg.Events.ThreadUpdated)
	events.Post("/thread-created", cfg.Events.ThreadCreated)

	api := app.Group("", cfg.AuthMiddleware.Handle, auth.RequirePrincipal())
	organizationAdmin := auth.RequireAdmin(cfg.Admins, nil)
	teamAdmin := auth.RequireAdmin(cfg.Admins, cfg.Crews.TeamOrganization)
	newCrewAdmin := auth.RequireAdmin(cfg.Admins, cfg.Crews.NewCrewOrganization)
	crewAdmin := auth.RequireAdmin(cfg.Admins, cfg.Crews.CrewOrganization)
	memberAdmin := auth.RequireAdmin(cfg.Admins, cfg.Members.CrewOrganization)

	api.Post("/teams", organizationAdmin, cfg.Crews.RegisterTeam)
	api.Put("/teams/:team/tags", teamAdmin, cfg.Crews.SetTeamTags)

	api.Get("/organizations/:org/crews", cfg.Crews.ListCrews)
	api.Get("/organizations/:org/status", cfg.Tickets.OrganizationStatus)

	api.Post("/crews", newCrewAdmin, cfg.Crews.RegisterCrew)
	api.Get("/crews/:crew", cfg.Crews.GetCrew)
	api.Patch("/crews/:crew", crewAdmin, cfg.Crews.UpdateCrew)
	api.Delete("/crews/:crew", crewAdmin, cfg.Crews.DeleteCrew)
	api.Get("/crews/:crew/status", cfg.Tickets.CrewStatus)
	api.Post("/crews/:crew/tickets", cfg.Tickets.CreateTicket)

	api.Get("/crews/:crew/members", cfg.Members.ListMembers)
	api.Post("/crews/:crew/members", cfg.Members.Register)
	api.Patch("/crews/:crew/members/:identity", memberAdmin, cfg.Members.Update)
	api.Delete("/crews/:crew/members/:identity", cfg.Members.Remove)

	api.Get("/tickets/:thread", cfg.Tickets.GetTicket)
	api.Get("/tickets/:thread/chain", cfg.Tickets.Chain)
	api.Get("/tickets/:thread/history", cfg.Tickets.History)
	api.Post("/tickets/:thread/actions/:action", cfg.Tickets.Action)
	api.Post("/tickets/:thread/move", cfg.Tickets.Move)
	api.Post("/tickets/:thread/close", cfg.Tickets.Close)
}
