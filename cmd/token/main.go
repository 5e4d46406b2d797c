package main

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/pflag"

	"PCHAT/relay/internal/auth"
	"PCHAT/relay/internal/config"
)

func main() {
	configPath := pflag.String("config", "config/config.yaml", "path to the YAML config file")
	envPath := pflag.String("env", "config/.env", "path to the dotenv file")
	subject := pflag.String("subject", "", "name the token is issued to")
	pflag.Parse()

	if *subject == "" {
		log.Fatal("--subject is required")
	}

	cfg, err := config.LoadConfig(*configPath, *envPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	token, err := auth.NewServiceImpl(cfg.JWT).Issue(*subject)
	if err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}

	fmt.Println(token.Token)
	log.Printf("expires at %s", time.Unix(token.ExpiresAt, 0).Format(time.RFC3339))
}
