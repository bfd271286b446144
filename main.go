package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Nkemdi/ezichop-api/controllers"
	"github.com/Nkemdi/ezichop-api/initializers"
	"github.com/Nkemdi/ezichop-api/routes"
	"github.com/Nkemdi/ezichop-api/services"
	"github.com/Nkemdi/ezichop-api/utils"
)

func init() {
	initializers.LoadEnv()
	initializers.ConnectToDB()
	initializers.SyncDatabase()
}

func main() {
	pricing := services.PricingConfig{
		StandardDeliveryFee: envFloat("DELIVERY_FEE_STANDARD", 2.99),
		ExpressDeliveryFee:  envFloat("DELIVERY_FEE_EXPRESS", 5.99),
		VatRate:             envFloat("VAT_RATE", 7.5),
		VatEnabled:          os.Getenv("VAT_ENABLED") != "false",
	}

	currency := os.Getenv("PAYMENT_CURRENCY")
	if currency == "" {
		currency = "ngn"
	}

	var archive services.InvoiceArchive
	if s3Archive := utils.NewS3InvoiceArchive(); s3Archive != nil {
		archive = s3Archive
	}

	notifier := services.NewNotifier(
		utils.NewMailer(),
		utils.NewSMSClient(),
		utils.NewInvoicePDF("Ezichop Catering", currency),
		archive,
	)

	paymentClient := services.NewPaymentClient()
	controllers.ConfigureOrders(pricing, paymentClient, notifier, currency, paymentClient.Gateway)

	server := gin.Default()
	server.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:4200", "https://www.ezichop.com"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	routes.DefaultRoutes(server)
	routes.OrderRoutes(server)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{Addr: ":" + port, Handler: server}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed: ", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Println("Server shutdown error:", err)
	}

	// Let in-flight notification tasks finish before the process exits.
	notifier.Wait()
}

func envFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
