package internal

import (
	"handsoff/internal/controllers"
	"handsoff/internal/providers"
	"net/http"
)

func InitRoutes(apiController *controllers.ApiController) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()

	routers.Post("/detections", http.HandlerFunc(apiController.ReceiveDetection))
	routers.Get("/alert", http.HandlerFunc(apiController.GetAlert))
	routers.Get("/records", http.HandlerFunc(apiController.GetRecords))
	routers.Get("/records/hourly", http.HandlerFunc(apiController.GetHourly))
	routers.Get("/sync", http.HandlerFunc(apiController.GetSync))
	routers.Post("/sync/network", http.HandlerFunc(apiController.SetNetwork))
	return routers
}
