package server

import (
	"strings"
	"time"

	"watchfeed/db"
	"watchfeed/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cache"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

const pageSize = 10

type ServerConfig struct {

	// The store to read articles from
	DB *db.DB
}

// Returns a fiber.App instance to be used as the HTTP server for the
// aggregator's JSON API and image proxy.
func Server(config *ServerConfig) *fiber.App {

	app := fiber.New()

	// Middleware to track the latency of each request
	app.Use(func(c *fiber.Ctx) error {
		// start timer
		start := time.Now()

		// next routes
		err := c.Next()

		// stop timer
		stop := time.Now()

		// Diff
		log.WithFields(log.Fields{
			"method":  c.Method(),
			"route":   c.Route().Path,
			"latency": stop.Sub(start),
		}).Info("Request")
		return err
	})

	app.Use(requestid.New(requestid.ConfigDefault))
	app.Use(compress.New())

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET",
		AllowHeaders: "Content-Type, Cache-Control",
	}))

	// Cache API reads for a short while; ingestion cadence is coarse so
	// staleness here is harmless. The proxy and metrics stay uncached.
	app.Use(cache.New(cache.Config{
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			if c.Method() != "GET" {
				return true
			}
			return !strings.HasPrefix(c.Path(), "/api/")
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			// Include the query parameters in the cache key
			return c.Request().URI().String()
		},
	}))

	app.Get("/api/articles", func(c *fiber.Ctx) error {
		page := c.QueryInt("page", 1)
		if page < 1 {
			page = 1
		}

		filters := models.ArticleFilters{
			Search: c.Query("search"),
			Source: c.Query("source"),
			Tag:    c.Query("tag"),
			Page:   page,
			Limit:  pageSize,
		}

		articles, total, err := config.DB.Query(c.Context(), filters)
		if err != nil {
			log.WithFields(log.Fields{
				"filters": filters,
				"error":   err,
			}).Error("Error querying articles")
			return c.Status(fiber.StatusInternalServerError).SendString("Error getting articles")
		}

		return c.JSON(models.ArticlesResponse{
			Articles: articles,
			Page:     page,
			HasMore:  len(articles) == pageSize && page*pageSize < total,
		})
	})

	app.Get("/api/sources", func(c *fiber.Ctx) error {
		sources, err := config.DB.DistinctSources(c.Context())
		if err != nil {
			log.WithFields(log.Fields{"error": err}).Error("Error getting sources")
			return c.Status(fiber.StatusInternalServerError).SendString("Error getting sources")
		}
		if sources == nil {
			sources = []string{}
		}
		return c.JSON(fiber.Map{"sources": sources})
	})

	app.Get("/api/tags", func(c *fiber.Ctx) error {
		tags, err := config.DB.DistinctTags(c.Context())
		if err != nil {
			log.WithFields(log.Fields{"error": err}).Error("Error getting tags")
			return c.Status(fiber.StatusInternalServerError).SendString("Error getting tags")
		}
		if tags == nil {
			tags = []string{}
		}
		return c.JSON(fiber.Map{"tags": tags})
	})

	app.Get("/proxy/image", proxyImage())

	metricsHandler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	app.Get("/metrics", func(c *fiber.Ctx) error {
		metricsHandler(c.Context())
		return nil
	})

	return app
}
