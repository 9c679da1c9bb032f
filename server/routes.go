package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) initRoutes() {
	// AUTH
	s.RegisterRouteFunc("POST "+RouteSignup, ChainMiddleware(s.SignupHandler(), s.SessionMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteLogin, ChainMiddleware(s.LoginHandler(), s.SessionMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteForgotPassword, ChainMiddleware(s.ForgotPasswordHandler(), s.SessionMiddleware()...))
	s.RegisterRouteFunc("POST "+RoutePassword, ChainMiddleware(s.SetPasswordHandler(), s.SessionMiddleware(s.RequireIdentity)...))
	s.RegisterRouteFunc("POST "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.SessionMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteMe, ChainMiddleware(s.MeHandler(), s.SessionMiddleware(s.RequireIdentity)...))

	// API
	s.RegisterRouteFunc("POST "+RouteAPIValidatePassword, ChainMiddleware(s.ValidatePasswordHandler(), s.APIMiddleware()...))

	// COMPANIES
	s.RegisterRouteFunc("POST "+RouteCompanies, ChainMiddleware(s.CreateCompanyHandler(), s.SessionMiddleware(s.RequireIdentity)...))
	s.RegisterRouteFunc("PUT "+RouteCompanyCurrent, ChainMiddleware(s.RenameCompanyHandler(), s.SessionMiddleware(s.RequireIdentity, s.RequireTenant)...))
	s.RegisterRouteFunc("DELETE "+RouteCompanyCurrent, ChainMiddleware(s.DeleteCompanyHandler(), s.SessionMiddleware(s.RequireIdentity, s.RequireTenant)...))
	s.RegisterRouteFunc("POST "+RouteCompanyRestore, ChainMiddleware(s.RestoreCompanyHandler(), s.SessionMiddleware(s.RequireIdentity)...))
	s.RegisterRouteFunc("GET "+RouteCompanyChoices, ChainMiddleware(s.CompanyChoicesHandler(), s.SessionMiddleware(s.RequireIdentity)...))
	s.RegisterRouteFunc("POST "+RouteCompanySelect, ChainMiddleware(s.SelectCompanyHandler(), s.SessionMiddleware(s.RequireIdentity)...))
	s.RegisterRouteFunc("DELETE "+RouteCompanySelection, ChainMiddleware(s.ClearSelectionHandler(), s.SessionMiddleware(s.RequireIdentity)...))
	s.RegisterRouteFunc("GET "+RouteCompanyMembers, ChainMiddleware(s.ListMembersHandler(), s.SessionMiddleware(s.RequireIdentity, s.RequireTenant)...))
	s.RegisterRouteFunc("POST "+RouteCompanyMembers, ChainMiddleware(s.AddMemberHandler(), s.SessionMiddleware(s.RequireIdentity, s.RequireTenant, s.RequireTenantAdmin)...))
	s.RegisterRouteFunc("DELETE "+RouteCompanyMember, ChainMiddleware(s.RemoveMemberHandler(), s.SessionMiddleware(s.RequireIdentity, s.RequireTenant, s.RequireTenantAdmin)...))
	s.RegisterRouteFunc("PUT "+RouteCompanyMemberRole, ChainMiddleware(s.SetMemberAdminHandler(), s.SessionMiddleware(s.RequireIdentity, s.RequireTenant, s.RequireTenantAdmin)...))

	// CLIENTS
	s.RegisterRouteFunc("GET "+RouteClients, ChainMiddleware(s.ListClientsHandler(), s.SessionMiddleware(s.RequireIdentity, s.RequireTenant)...))
	s.RegisterRouteFunc("POST "+RouteClients, ChainMiddleware(s.CreateClientHandler(), s.SessionMiddleware(s.RequireIdentity, s.RequireTenant)...))
	s.RegisterRouteFunc("GET "+RouteClient, ChainMiddleware(s.GetClientHandler(), s.SessionMiddleware(s.RequireIdentity, s.RequireTenant)...))
	s.RegisterRouteFunc("PUT "+RouteClient, ChainMiddleware(s.UpdateClientHandler(), s.SessionMiddleware(s.RequireIdentity, s.RequireTenant)...))
	s.RegisterRouteFunc("DELETE "+RouteClient, ChainMiddleware(s.DeleteClientHandler(), s.SessionMiddleware(s.RequireIdentity, s.RequireTenant)...))

	// SYSTEM
	s.RegisterRouteHandler("GET "+RouteMetrics, promhttp.Handler())
	s.RegisterRouteFunc("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.RecoverMiddleware))

	// CORS preflight for every route
	s.RegisterRouteFunc("OPTIONS /", ChainMiddleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}, s.APIMiddleware()...))
}
