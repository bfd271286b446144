package initializers

import (
	"log"

	"github.com/Nkemdi/ezichop-api/models"
)

func SyncDatabase() {
	DB.AutoMigrate(&models.Order{}, &models.OrderItem{}, &models.OrderItemExtra{}, &models.Payment{})
	log.Println("Database synced successfully.")
}
