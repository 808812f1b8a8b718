package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/hogarlabs/hogar-api/handlers"
	"github.com/hogarlabs/hogar-api/services"
	"github.com/hogarlabs/hogar-api/store"
)

// SetupAuthRoutes sets up public authentication routes.
func SetupAuthRoutes(rg *gin.RouterGroup, gw store.Gateway) {
	authHandler := &handlers.AuthHandler{GW: gw}

	rg.POST("/auth/signup", authHandler.Signup)
	rg.POST("/auth/login", authHandler.Login)
	rg.POST("/auth/refresh", authHandler.Refresh)
	rg.POST("/auth/logout", authHandler.Logout)
}

// SetupUserRoutes sets up protected user routes.
func SetupUserRoutes(rg *gin.RouterGroup, gw store.Gateway) {
	userHandler := &handlers.UserHandler{GW: gw}

	rg.GET("/user/profile", userHandler.GetProfile)
	rg.PUT("/user/profile", userHandler.UpdateProfile)
	rg.POST("/user/password", userHandler.ChangePassword)
	rg.POST("/user/2fa/setup", userHandler.Setup2FA)
	rg.POST("/user/2fa/verify", userHandler.Verify2FA)
	rg.POST("/user/2fa/disable", userHandler.Disable2FA)
}

// SetupProjectRoutes sets up protected project, member, invite,
// expense and service routes.
func SetupProjectRoutes(rg *gin.RouterGroup, gw store.Gateway) {
	memberSvc := services.NewMemberService(gw)
	projectSvc := services.NewProjectService(gw, memberSvc)
	inviteSvc := services.NewInviteService(gw, memberSvc)
	expenseSvc := services.NewExpenseService(gw)
	billSvc := services.NewBillService(gw)

	projectHandler := &handlers.ProjectHandler{GW: gw, Projects: projectSvc, Members: memberSvc}
	memberHandler := &handlers.MemberHandler{GW: gw, Projects: projectSvc, Members: memberSvc}
	inviteHandler := &handlers.InviteHandler{GW: gw, Invites: inviteSvc, Members: memberSvc}
	expenseHandler := &handlers.ExpenseHandler{Projects: projectSvc, Members: memberSvc, Expenses: expenseSvc}
	serviceHandler := &handlers.ServiceHandler{GW: gw, Projects: projectSvc, Bills: billSvc}

	rg.GET("/projects", projectHandler.List)
	rg.POST("/projects", projectHandler.Create)
	rg.GET("/projects/:id", projectHandler.Get)
	rg.PUT("/projects/:id", projectHandler.Update)
	rg.DELETE("/projects/:id", projectHandler.Delete)

	rg.GET("/projects/:id/members", memberHandler.List)
	rg.DELETE("/projects/:id/members/:uid", memberHandler.Remove)
	rg.POST("/projects/:id/members/repair", memberHandler.Repair)

	rg.POST("/projects/:id/invites", inviteHandler.Generate)
	rg.GET("/projects/:id/invites", inviteHandler.List)
	rg.DELETE("/invites/:code", inviteHandler.Revoke)
	rg.POST("/invites/accept", inviteHandler.Accept)

	rg.GET("/projects/:id/expenses", expenseHandler.List)
	rg.GET("/projects/:id/expenses/summary", expenseHandler.Summary)
	rg.POST("/projects/:id/expenses", expenseHandler.Create)
	rg.PUT("/projects/:id/expenses/:expenseId", expenseHandler.Update)
	rg.DELETE("/projects/:id/expenses/:expenseId", expenseHandler.Delete)

	rg.GET("/projects/:id/services", serviceHandler.List)
	rg.POST("/projects/:id/services", serviceHandler.Create)
	rg.PUT("/projects/:id/services/:serviceId", serviceHandler.Update)
	rg.DELETE("/projects/:id/services/:serviceId", serviceHandler.Delete)
	rg.POST("/projects/:id/services/:serviceId/pay", serviceHandler.MarkPaid)
}
