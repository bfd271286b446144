package controllers

import (
	"errors"
	"log"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Nkemdi/ezichop-api/initializers"
	"github.com/Nkemdi/ezichop-api/models"
	"github.com/Nkemdi/ezichop-api/services"
)

const (
	msgOrderCreated          = "Order created successfully."
	msgOrderAlreadyConfirmed = "Order already confirmed for this payment."
	msgDatastoreUnavailable  = "We could not save your order right now. Please try again."
	msgInternalServerError   = "Internal server error"
)

// Wiring set once at startup (and by tests). Read-only at request time.
var (
	pricingConfig   services.PricingConfig
	paymentsClient  services.PaymentReconciler
	notifier        *services.Notifier
	defaultCurrency string
	paymentGateway  string
)

func ConfigureOrders(cfg services.PricingConfig, reconciler services.PaymentReconciler, n *services.Notifier, currency, gateway string) {
	pricingConfig = cfg
	paymentsClient = reconciler
	notifier = n
	defaultCurrency = currency
	paymentGateway = gateway
}

// SubmitOrder handles pay-on-delivery submissions: validate, price
// server-side, persist as PENDING with no payment row, fan out notifications.
func SubmitOrder(ctx *gin.Context) {
	var req models.CreateOrderRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		log.Println("Bind error:", err)
		sendErrorResponse(ctx, http.StatusBadRequest, err.Error())
		return
	}

	order, ok := finalizeOrder(ctx, req, nil, nil)
	if !ok {
		return
	}

	notifier.Dispatch(order)

	sendJSONResponse(ctx, http.StatusCreated, gin.H{
		"success": true,
		"message": msgOrderCreated,
		"data": gin.H{
			"orderId":     order.ID,
			"orderNumber": order.OrderNumber,
			"total":       order.Total,
			"status":      order.Status,
		},
	})
}

// ConfirmOrder handles post-payment submissions: reconcile the payment
// reference with the payment authority (best effort), persist the order
// together with its payment ledger row, fan out notifications. Replaying the
// same payment reference returns the existing order instead of a duplicate.
func ConfirmOrder(ctx *gin.Context) {
	var req models.ConfirmOrderRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		log.Println("Bind error:", err)
		sendErrorResponse(ctx, http.StatusBadRequest, err.Error())
		return
	}

	existing, err := services.FindOrderByPaymentReference(initializers.DB, req.PaymentIntentID)
	if err != nil {
		log.Println("Idempotency lookup error:", err)
		sendErrorResponse(ctx, http.StatusInternalServerError, msgInternalServerError)
		return
	}
	if existing != nil {
		sendJSONResponse(ctx, http.StatusOK, gin.H{
			"success": true,
			"message": msgOrderAlreadyConfirmed,
			"data":    confirmedOrderData(existing),
		})
		return
	}

	facts := paymentsClient.Reconcile(req.PaymentIntentID)

	order, ok := finalizeOrder(ctx, req.OrderData.CreateOrderRequest, req.OrderData.CustomerID, &facts)
	if !ok {
		return
	}

	notifier.Dispatch(order)

	sendJSONResponse(ctx, http.StatusCreated, gin.H{
		"success": true,
		"message": msgOrderCreated,
		"data":    confirmedOrderData(order),
	})
}

// finalizeOrder runs the shared tail of both flows: delivery method
// normalization, server-side pricing, persistence. It writes the error
// response itself and reports success through the bool.
func finalizeOrder(ctx *gin.Context, req models.CreateOrderRequest, customerID *int, facts *services.PaymentFacts) (*models.Order, bool) {
	deliveryMethod, err := services.NormalizeDeliveryMethod(req.DeliveryMethod)
	if err != nil {
		sendErrorResponse(ctx, http.StatusBadRequest, err.Error())
		return nil, false
	}

	pricing, err := services.ResolvePricing(req.Items, deliveryMethod, pricingConfig)
	if err != nil {
		sendErrorResponse(ctx, http.StatusBadRequest, err.Error())
		return nil, false
	}

	// Server-computed totals win over client-supplied ones; a mismatch is
	// worth a log line but not a rejection.
	if math.Abs(pricing.Subtotal-req.Subtotal) > 0.01 || math.Abs(services.Round2(pricing.Total)-req.Total) > 0.01 {
		log.Printf("Client totals diverge from server pricing: client subtotal=%.2f total=%.2f, server subtotal=%.2f total=%.2f",
			req.Subtotal, req.Total, pricing.Subtotal, pricing.Total)
	}

	params := services.CreateOrderParams{
		CustomerID:          customerID,
		CustomerName:        req.CustomerName,
		Email:               req.Email,
		Phone:               req.Phone,
		DeliveryAddress:     req.DeliveryAddress,
		DeliveryCity:        req.DeliveryCity,
		SpecialInstructions: req.SpecialInstructions,
		DeliveryMethod:      deliveryMethod,
		PaymentMethod:       req.PaymentMethod,
		Items:               req.Items,
		Pricing:             pricing,
	}

	if facts != nil {
		amount := services.Round2(pricing.Total)
		if facts.Amount != nil {
			amount = *facts.Amount
			if math.Abs(amount-services.Round2(pricing.Total)) > 0.01 {
				log.Printf("Reconciled payment amount %.2f diverges from computed total %.2f for reference %s",
					amount, pricing.Total, facts.Reference)
			}
		}
		currency := facts.Currency
		if currency == "" {
			currency = defaultCurrency
		}
		params.Payment = &services.PaymentRecord{
			Reference:       facts.Reference,
			Amount:          amount,
			Currency:        currency,
			Method:          req.PaymentMethod,
			Gateway:         paymentGateway,
			GatewayResponse: facts.Raw,
		}
	}

	order, err := services.CreateOrder(initializers.DB, params)
	if err != nil {
		var validationErr *services.ValidationError
		switch {
		case errors.As(err, &validationErr):
			sendErrorResponse(ctx, http.StatusBadRequest, validationErr.Message)
		case errors.Is(err, services.ErrDatastoreUnavailable):
			log.Println("Datastore unavailable:", err)
			sendErrorResponse(ctx, http.StatusServiceUnavailable, msgDatastoreUnavailable)
		default:
			log.Println("Order persistence error:", err)
			sendErrorResponse(ctx, http.StatusInternalServerError, msgInternalServerError)
		}
		return nil, false
	}

	return order, true
}

func confirmedOrderData(order *models.Order) gin.H {
	return gin.H{
		"orderId":       order.ID,
		"orderNumber":   order.OrderNumber,
		"total":         order.Total,
		"status":        order.Status,
		"paymentStatus": order.PaymentStatus,
	}
}

func GetOrders(ctx *gin.Context) {
	var orders []models.Order

	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "15"))
	offset := (page - 1) * limit

	sortOrder := ctx.DefaultQuery("sort", "desc")
	if sortOrder != "asc" && sortOrder != "desc" {
		sortOrder = "desc"
	}

	query := initializers.DB.Preload("OrderItems.Extras").Preload("Payments")

	if search := ctx.Query("search"); search != "" {
		query = query.Where("order_number LIKE ?", "%"+search+"%")
	}

	query = query.Order("created_at " + sortOrder)

	result := query.Limit(limit).Offset(offset).Find(&orders)
	if result.Error != nil {
		log.Println(result.Error)
		sendErrorResponse(ctx, http.StatusInternalServerError, "Unable to fetch orders")
		return
	}

	var count int64
	countQuery := initializers.DB.Model(&models.Order{})
	if search := ctx.Query("search"); search != "" {
		countQuery = countQuery.Where("order_number LIKE ?", "%"+search+"%")
	}
	countQuery.Count(&count)

	previousPage := page - 1
	nextPage := page + 1
	totalPages := math.Ceil(float64(count) / float64(limit))

	sendJSONResponse(ctx, http.StatusOK, gin.H{
		"orders": orders,
		"metadata": gin.H{
			"total":        count,
			"currentPage":  page,
			"limit":        limit,
			"hasPrevPage":  previousPage > 0,
			"hasNextPage":  int(totalPages) > page,
			"previousPage": previousPage,
			"nextPage":     nextPage,
		},
	})
}

func GetOrdersByCustomerId(ctx *gin.Context) {
	customerId, err := strconv.Atoi(ctx.Param("userId"))
	if err != nil {
		log.Println(err)
		sendErrorResponse(ctx, http.StatusBadRequest, "Failed to parse userId")
		return
	}

	sortOrder := ctx.DefaultQuery("sort", "desc")
	if sortOrder != "asc" && sortOrder != "desc" {
		sortOrder = "desc"
	}

	var orders []models.Order
	query := initializers.DB.Preload("OrderItems.Extras").Where("customer_id = ?", customerId)
	if result := query.Order("created_at " + sortOrder).Find(&orders); result.Error != nil {
		log.Println(result.Error)
		sendErrorResponse(ctx, http.StatusInternalServerError, "Failed to fetch orders.")
		return
	}

	sendJSONResponse(ctx, http.StatusOK, gin.H{
		"orders": orders,
	})
}

func GetOrderById(ctx *gin.Context) {
	orderId, err := strconv.Atoi(ctx.Param("orderId"))
	if err != nil {
		log.Println(err)
		sendErrorResponse(ctx, http.StatusBadRequest, "Failed to parse orderId")
		return
	}

	var order models.Order
	result := initializers.DB.Preload("OrderItems.Extras").Preload("Payments").First(&order, orderId)
	if result.Error != nil {
		log.Println(result.Error)
		sendErrorResponse(ctx, http.StatusNotFound, "Order not found.")
		return
	}

	sendJSONResponse(ctx, http.StatusOK, gin.H{
		"order": order,
	})
}

// statusTransitions is the order lifecycle graph. CANCELLED is reachable from
// PENDING or CONFIRMED only; DELIVERED and CANCELLED are terminal.
var statusTransitions = map[string][]string{
	models.OrderStatusPending:        {models.OrderStatusConfirmed, models.OrderStatusCancelled},
	models.OrderStatusConfirmed:      {models.OrderStatusPreparing, models.OrderStatusCancelled},
	models.OrderStatusPreparing:      {models.OrderStatusReady},
	models.OrderStatusReady:          {models.OrderStatusOutForDelivery},
	models.OrderStatusOutForDelivery: {models.OrderStatusDelivered},
}

func canTransition(from, to string) bool {
	for _, allowed := range statusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func UpdateOrderStatus(ctx *gin.Context) {
	var orderStatusData struct {
		Status string `json:"status" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&orderStatusData); err != nil {
		log.Println(err)
		sendErrorResponse(ctx, http.StatusBadRequest, "Failed to parse request body")
		return
	}

	orderId, err := strconv.Atoi(ctx.Param("orderId"))
	if err != nil {
		log.Println(err)
		sendErrorResponse(ctx, http.StatusBadRequest, "Failed to parse orderId")
		return
	}

	var order models.Order
	if result := initializers.DB.First(&order, orderId); result.Error != nil {
		log.Println(result.Error)
		sendErrorResponse(ctx, http.StatusNotFound, "Order not found.")
		return
	}

	if !canTransition(order.Status, orderStatusData.Status) {
		sendErrorResponse(ctx, http.StatusConflict,
			"Cannot move order from "+order.Status+" to "+orderStatusData.Status)
		return
	}

	if result := initializers.DB.Model(&order).Update("status", orderStatusData.Status); result.Error != nil {
		log.Println(result.Error)
		sendErrorResponse(ctx, http.StatusInternalServerError, "Failed to update order status")
		return
	}

	sendJSONResponse(ctx, http.StatusOK, gin.H{
		"message": "Order status updated successfully.",
	})
}

func GetUndeliveredOrders(ctx *gin.Context) {
	var count int64

	result := initializers.DB.
		Model(&models.Order{}).
		Where("status NOT IN ?", []string{models.OrderStatusDelivered, models.OrderStatusCancelled}).
		Count(&count)

	if result.Error != nil {
		sendErrorResponse(ctx, http.StatusInternalServerError, "Failed to count undelivered orders")
		return
	}

	sendJSONResponse(ctx, http.StatusOK, gin.H{"undeliveredOrderCount": count})
}

func sendJSONResponse(ctx *gin.Context, status int, data gin.H) {
	ctx.JSON(status, data)
}

func sendErrorResponse(ctx *gin.Context, status int, message string) {
	sendJSONResponse(ctx, status, gin.H{"success": false, "message": message})
}
