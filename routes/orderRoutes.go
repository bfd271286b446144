package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/Nkemdi/ezichop-api/controllers"
	"github.com/Nkemdi/ezichop-api/middlewares"
)

func OrderRoutes(server *gin.Engine) {
	server.POST("/order", controllers.SubmitOrder)
	server.POST("/order/confirm-payment", controllers.ConfirmOrder)
	server.GET("/user/:userId/orders", controllers.GetOrdersByCustomerId)

	admin := server.Group("/", middlewares.RequireAuth(), middlewares.RequireAdmin())
	admin.GET("/order", controllers.GetOrders)
	admin.GET("/order/:orderId", controllers.GetOrderById)
	admin.PATCH("/order/:orderId/status", controllers.UpdateOrderStatus)
	admin.GET("/stats/undelivered-orders", controllers.GetUndeliveredOrders)
}
