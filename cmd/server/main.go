package main

import (
	"context"
	"log"
	"net/http"
	"os"

	webAdapter "sales-backend/internal/adapters/web"
	"sales-backend/internal/app"
	"sales-backend/internal/core"
	"sales-backend/internal/db"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()

	catalog := core.NewCatalogService(pool)
	parties := core.NewPartyService(pool)
	sales := core.NewSaleService(pool)
	purchases := core.NewPurchaseService(pool)

	svc := app.NewAppService(catalog, parties, sales, purchases)

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	handler := webAdapter.NewHandler(svc, allowedOrigins)

	log.Printf("server starting on :%s", port)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatalf("server: %v", err)
	}
}
