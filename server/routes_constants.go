package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Auth Routes
	RouteSignup         = "/auth/signup"
	RouteLogin          = "/auth/login"
	RouteLogout         = "/auth/logout"
	RouteForgotPassword = "/auth/forgot-password"
	RoutePassword       = "/auth/password"
	RouteMe             = "/me"

	// API Routes
	RouteAPIValidatePassword = "/api/password/validate"

	// Company Routes
	RouteCompanies         = "/companies"
	RouteCompanyCurrent    = "/companies/current"
	RouteCompanyRestore    = "/companies/{id}/restore"
	RouteCompanyChoices    = "/companies/choices"
	RouteCompanySelect     = "/companies/select"
	RouteCompanySelection  = "/companies/selection"
	RouteCompanyMembers    = "/companies/members"
	RouteCompanyMember     = "/companies/members/{userId}"
	RouteCompanyMemberRole = "/companies/members/{userId}/admin"

	// Client Routes
	RouteClients = "/clients"
	RouteClient  = "/clients/{id}"

	// System Routes
	RouteMetrics = "/metrics"
	RouteHealth  = "/healthz"
)
