package main

import (
	"github.com/fisker/cloudlease-backend/internal/app"
)

// @title           CloudLease API
// @version         1.0
// @description     租期制云资源控制面 API 文档

// @host      localhost:8080
// @BasePath  /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Initialize application
	application, err := app.Initialize("")
	if err != nil {
		panic(err)
	}

	// Start server
	app.StartServer(application)
}
