package main

import (
	"flag"
	"log"
	"math/rand"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/influo/influo/config"
	"github.com/influo/influo/server"
)

func main() {
	rand.Seed(time.Now().UnixNano())
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	configPath := flag.String("config", "config/config.json", "config file location")
	flag.Parse()

	cfg, err := config.New(*configPath)
	if err != nil {
		log.Fatalln("Failed to load config", err)
	}

	if cfg.Sandbox {
		gin.SetMode(gin.TestMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), ginLogger())

	r.GET("/ping", func(c *gin.Context) {
		c.String(200, "pong")
	})

	srv, err := server.New(cfg, r)
	if err != nil {
		log.Fatalln("Failed to init server", err)
	}
	defer srv.Close()

	log.Println("Listening on port", cfg.Port)
	if err := srv.Run(); err != nil {
		log.Fatalln("Server run error", err)
	}
}

func ginLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Printf("%s %s %d %v", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
