package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"listingmaker/agents"
	"listingmaker/api"
	"listingmaker/eventbus"
	"listingmaker/llm"
	"listingmaker/recommend"
	"listingmaker/storage"
)

type ServerConfig struct {
	LLM    llm.Config `json:"llm"`
	Redis  string     `json:"redis_addr"`
	NATS   string     `json:"nats_url"`
	Server struct {
		Port int    `json:"port"`
		Host string `json:"host"`
	} `json:"server"`
}

func main() {
	// Load .env if present so env vars are in place before flag parsing.
	if err := loadEnvFile(); err != nil {
		log.Printf("Note: Could not load .env file: %v (continuing without it)", err)
	}

	var (
		configPath = flag.String("config", "config.json", "Path to configuration file")
		port       = flag.Int("port", 8080, "Port to run the server on")
	)
	flag.Parse()

	config, err := loadConfig(*configPath)
	if err != nil {
		log.Printf("Warning: Could not load config: %v, using defaults", err)
		config = &ServerConfig{LLM: llm.ConfigFromEnv()}
		config.Server.Port = *port
	}
	applyEnvOverrides(config)
	if *port != 8080 {
		config.Server.Port = *port
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}

	var model agents.ModelService
	var prober api.ModelProber
	if config.LLM.Provider == "mock" {
		log.Printf("🧪 [MAIN] Using mock model service")
		model = llm.NewMockModel()
	} else {
		client := llm.NewClient(config.LLM)
		model = client
		prober = client
	}

	pipeline, err := agents.DefaultPipeline(model)
	if err != nil {
		log.Fatalf("❌ [MAIN] Invalid pipeline configuration: %v", err)
	}

	redisAddr := config.Redis
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	redisClient := redis.NewClient(&redis.Options{Addr: normalizeRedisAddr(redisAddr)})
	store := storage.NewStore(redisClient)

	applier := recommend.NewApplier(store, recommend.NewRegistry())

	var bus *eventbus.NATSBus
	if strings.TrimSpace(os.Getenv("EVENTBUS_DISABLED")) != "1" {
		bus, err = eventbus.NewNATSBus(eventbus.NATSConfig{URL: config.NATS})
		if err != nil {
			log.Printf("⚠️ [MAIN] Event bus unavailable: %v (continuing without it)", err)
			bus = nil
		}
	}

	server := api.NewAPIServer(pipeline, store, applier, bus, prober)
	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	if err := server.Start(addr); err != nil {
		log.Fatalf("❌ [MAIN] Server failed: %v", err)
	}
}

func loadConfig(path string) (*ServerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var config ServerConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("invalid config file: %v", err)
	}
	return &config, nil
}

// applyEnvOverrides lets environment variables win over the config file.
func applyEnvOverrides(cfg *ServerConfig) {
	env := llm.ConfigFromEnv()
	if v := strings.TrimSpace(os.Getenv("LLM_PROVIDER")); v != "" {
		cfg.LLM.Provider = env.Provider
		cfg.LLM.Model = env.Model
		cfg.LLM.BaseURL = env.BaseURL
		cfg.LLM.APIKey = env.APIKey
		cfg.LLM.TimeoutSec = env.TimeoutSec
		cfg.LLM.MaxConcurrent = env.MaxConcurrent
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM = env
	}
	if v := getenvTrim("REDIS_ADDR"); v != "" {
		cfg.Redis = v
	}
	if v := getenvTrim("REDIS_URL"); v != "" {
		cfg.Redis = v
	}
	if v := getenvTrim("NATS_URL"); v != "" {
		cfg.NATS = v
	}
}

func getenvTrim(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// loadEnvFile loads .env from the working directory or the executable's
// directory, whichever exists first.
func loadEnvFile() error {
	if _, err := os.Stat(".env"); err == nil {
		return godotenv.Load(".env")
	}
	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), ".env")
		if _, err := os.Stat(candidate); err == nil {
			return godotenv.Load(candidate)
		}
	}
	return fmt.Errorf(".env not found")
}

// normalizeRedisAddr accepts host:port or redis:// URLs.
func normalizeRedisAddr(addr string) string {
	addr = strings.TrimPrefix(addr, "redis://")
	if i := strings.Index(addr, "/"); i > 0 {
		addr = addr[:i]
	}
	return addr
}
