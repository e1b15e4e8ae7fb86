package fakeapi

// Route path constants
// Patterns use gin's :param syntax and keep the API's trailing slashes
const (
	// Accounts
	RouteToken          = "/api/token/"
	RouteRegister       = "/api/accounts/register/"
	RouteProfile        = "/api/accounts/profile/"
	RouteProfileDetails = "/api/accounts/profile-details/"
	RouteLogout         = "/api/accounts/logout/"

	// Expenses
	RouteExpenses     = "/api/expenses/"
	RouteExpense      = "/api/expenses/:id/"
	RouteExpenseStats = "/api/expenses/stats/"

	// Categories
	RouteCategories         = "/api/categories/"
	RouteCategory           = "/api/categories/:id/"
	RouteCategoryGroups     = "/api/categories/groups/"
	RouteCategoryStats      = "/api/categories/stats/"
	RouteCategoryBulkUpdate = "/api/categories/bulk-update/"

	// Templates
	RouteTemplates          = "/api/templates/"
	RouteTemplate           = "/api/templates/:id/"
	RouteTemplateCategories = "/api/templates/:id/categories/"
	RouteTemplateReviews    = "/api/templates/:id/reviews/"
	RouteTemplateSearch     = "/api/templates/search/"

	// Chatbot
	RouteChatSessions    = "/api/chatbot/sessions/"
	RouteChatSession     = "/api/chatbot/sessions/:id/"
	RouteChatMessages    = "/api/chatbot/sessions/:id/messages/"
	RouteChatMessage     = "/api/chatbot/messages/:id/"
	RouteKnowledge       = "/api/chatbot/knowledge/"
	RouteKnowledgeSearch = "/api/chatbot/knowledge/search/"

	// Operational
	RouteMetrics = "/metrics"
)
