package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Kafka    KafkaConfig
	Observ   ObservabilityConfig
	Business BusinessConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	AppName        string
	Version        string
	RequestTimeout time.Duration
}

// KafkaConfig enables ORDER_CREATED publishing when Brokers is non-empty
type KafkaConfig struct {
	Brokers    []string
	TopicOrder string
}

type ObservabilityConfig struct {
	TraceExporter  string
	JaegerEndpoint string
	OTLPEndpoint   string
}

type BusinessConfig struct {
	OrderDelayMin time.Duration
	OrderDelayMax time.Duration
	SlowDelayMin  time.Duration
	SlowDelayMax  time.Duration
}

func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            getEnv("ENV", "development"),
			AppName:        getEnv("APP_NAME", "sample-app"),
			Version:        getEnv("APP_VERSION", "1.0.0"),
			RequestTimeout: getSeconds("REQUEST_TIMEOUT_SECONDS", 30),
		},
		Kafka: KafkaConfig{
			Brokers:    splitList(getEnv("KAFKA_BROKERS", "")),
			TopicOrder: getEnv("KAFKA_TOPIC_ORDER_EVENTS", "order-events"),
		},
		Observ: ObservabilityConfig{
			TraceExporter:  getEnv("TRACE_EXPORTER", "jaeger"),
			JaegerEndpoint: getEnv("JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),
			OTLPEndpoint:   getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
		Business: BusinessConfig{
			OrderDelayMin: getMillis("ORDER_DELAY_MIN_MS", 50),
			OrderDelayMax: getMillis("ORDER_DELAY_MAX_MS", 150),
			SlowDelayMin:  getMillis("SLOW_DELAY_MIN_MS", 2000),
			SlowDelayMax:  getMillis("SLOW_DELAY_MAX_MS", 5000),
		},
	}

	log.Printf("Config loaded: env=%s, port=%s", cfg.Server.Env, cfg.Server.Port)
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil || n < 0 {
		return defaultVal
	}
	return n
}

func getMillis(key string, defaultVal int) time.Duration {
	return time.Duration(getInt(key, defaultVal)) * time.Millisecond
}

func getSeconds(key string, defaultVal int) time.Duration {
	return time.Duration(getInt(key, defaultVal)) * time.Second
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
