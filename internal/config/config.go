package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	commoncfg "wisefido-sos/common/config"
)

// Config wisefido-sos 服务配置
type Config struct {
	HTTP struct {
		Addr string
	}

	// Store 文档存储后端："postgres" 或 "memory"
	Store struct {
		Backend string
	}

	Database commoncfg.DatabaseConfig
	Redis    commoncfg.RedisConfig
	MQTT     struct {
		commoncfg.MQTTConfig
		Enabled bool
	}

	// Location 定位配置（偏向可用性：低精度、长超时、容忍 5 分钟旧位置）
	Location struct {
		Provider     string        // mqtt / http / none
		Wait         time.Duration // SOS 调度等待定位的上限
		Timeout      time.Duration // 传给定位提供方的超时提示
		MaximumAge   time.Duration // 可接受的旧位置时长
		Accuracy     string        // low / balanced / high
		CacheEnabled bool          // 使用 Redis 缓存最近一次定位
		CachePrefix  string
		HTTPBaseURL  string
	}

	SOS struct {
		TopicPrefix  string // 设备主题前缀，如 "wisefido/sos"
		TriggerTopic string // SOS 触发订阅主题
	}

	// Display 全局显示设置，核心逻辑只读
	Display struct {
		TextScale    float64
		HighContrast bool
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 从环境变量加载配置（带默认值）
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")
	cfg.Store.Backend = strings.ToLower(getEnv("STORE_BACKEND", "postgres"))

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "owlrd")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "20"), 20)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "5"), 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)

	cfg.MQTT.Enabled = getEnv("MQTT_ENABLED", "true") == "true"
	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "wisefido-sos")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = 1

	cfg.Location.Provider = strings.ToLower(getEnv("LOCATION_PROVIDER", "mqtt"))
	cfg.Location.Wait = parseDuration(getEnv("LOCATION_WAIT", "10s"), 10*time.Second)
	cfg.Location.Timeout = parseDuration(getEnv("LOCATION_TIMEOUT", "15s"), 15*time.Second)
	cfg.Location.MaximumAge = parseDuration(getEnv("LOCATION_MAX_AGE", "5m"), 5*time.Minute)
	cfg.Location.Accuracy = strings.ToLower(getEnv("LOCATION_ACCURACY", "low"))
	cfg.Location.CacheEnabled = getEnv("LOCATION_CACHE_ENABLED", "true") == "true"
	cfg.Location.CachePrefix = getEnv("LOCATION_CACHE_PREFIX", "sos:location:")
	cfg.Location.HTTPBaseURL = getEnv("LOCATION_HTTP_BASE_URL", "http://localhost:9090")

	cfg.SOS.TopicPrefix = strings.TrimSuffix(getEnv("SOS_TOPIC_PREFIX", "wisefido/sos"), "/")
	cfg.SOS.TriggerTopic = getEnv("SOS_TRIGGER_TOPIC", cfg.SOS.TopicPrefix+"/+/trigger")

	cfg.Display.TextScale = parseFloat(getEnv("DISPLAY_TEXT_SCALE", "1.0"), 1.0)
	cfg.Display.HighContrast = getEnv("DISPLAY_HIGH_CONTRAST", "false") == "true"

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseFloat(s string, def float64) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return f
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
