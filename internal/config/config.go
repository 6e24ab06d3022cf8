package config

import (
	"log"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/solvra/batch-clearing/internal/auction"
)

type Config struct {
	HTTPAddr        string
	PostgresURL     string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	CacheTTL        time.Duration
	PriceResolution int
	SolveResolution int
	LimitBias       decimal.Decimal
	PoolFee         decimal.Decimal
	Production      bool
}

func Load() *Config {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	viper.SetDefault("HTTP_ADDR", ":8080")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("CACHE_TTL", "5m")
	viper.SetDefault("PRICE_RESOLUTION", 50)
	viper.SetDefault("SOLVE_RESOLUTION", 1000)
	viper.SetDefault("LIMIT_BIAS", "1.1")
	viper.SetDefault("POOL_FEE", auction.DefaultFee.String())

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("No config file found: %v", err)
	}

	return &Config{
		HTTPAddr:        viper.GetString("HTTP_ADDR"),
		PostgresURL:     viper.GetString("POSTGRES_URL"),
		RedisAddr:       viper.GetString("REDIS_ADDR"),
		RedisPassword:   viper.GetString("REDIS_PASSWORD"),
		RedisDB:         viper.GetInt("REDIS_DB"),
		CacheTTL:        viper.GetDuration("CACHE_TTL"),
		PriceResolution: viper.GetInt("PRICE_RESOLUTION"),
		SolveResolution: viper.GetInt("SOLVE_RESOLUTION"),
		LimitBias:       mustDecimal(viper.GetString("LIMIT_BIAS")),
		PoolFee:         mustDecimal(viper.GetString("POOL_FEE")),
		Production:      viper.GetBool("PRODUCTION"),
	}
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		log.Fatalf("invalid decimal %q: %v", s, err)
	}
	return d
}
