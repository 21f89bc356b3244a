package api

import (
	"fmt"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Controller struct {
	Handler *Handler
	router  *gin.Engine
}

func NewController(handler *Handler) *Controller {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	// The map frontend is served from another origin.
	router.Use(cors.Default())

	apiGroup := router.Group("/api")
	{
		location := apiGroup.Group("/location")
		{
			location.GET("/latest", handler.GetLatestLocation)
			location.GET("/all", handler.GetLocations)
		}
		apiGroup.GET("/health", handler.GetHealth)
	}

	return &Controller{Handler: handler, router: router}
}

func (c *Controller) Run(port int32) error {
	return c.router.Run(fmt.Sprintf(":%d", port))
}
