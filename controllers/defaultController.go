package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func GetHome(ctx *gin.Context) {
	message := `Welcome to Ezichop API ❤️. Enjoy seamless interaction with this API.

The following are the endpoints for this API:

ORDER
- POST "/order" - Submit a new order (pay on delivery)
- POST "/order/confirm-payment" - Submit an order after a successful payment
- GET "/order" - Retrieve all orders (admin)
- GET "/order/:orderId" - Get order by ID (admin)
- GET "/user/:userId/orders" - Get orders for a specific customer
- PATCH "/order/:orderId/status" - Update order status (admin)
- GET "/stats/undelivered-orders" - Count undelivered orders (admin)`

	ctx.JSON(http.StatusOK, gin.H{
		"message": message,
	})
}
