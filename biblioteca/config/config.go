package config

import (
	"log"
	"sync"
	"time"

	"github.com/bibliotek/biblioteca-service/pkg/kafka"
	"github.com/bibliotek/biblioteca-service/pkg/logger"
	"github.com/bibliotek/biblioteca-service/pkg/postgres"
	"github.com/kelseyhightower/envconfig"
)

type HTTPServer struct {
	Host         string        `yaml:"host" envconfig:"BIBLIOTECA_HTTP_HOST" default:"0.0.0.0"`
	Port         string        `yaml:"port" envconfig:"BIBLIOTECA_HTTP_PORT" default:"8080"`
	ReadTimeout  time.Duration `yaml:"readTimeout" envconfig:"HTTP_READ" default:"30s"`
	WriteTimeout time.Duration
}

type OpenLibrary struct {
	BaseURL string        `yaml:"baseURL" envconfig:"OPENLIBRARY_BASE_URL" default:"https://openlibrary.org"`
	Timeout time.Duration `yaml:"timeout" envconfig:"OPENLIBRARY_TIMEOUT" default:"10s"`
}

// Policy holds the circulation constants. Defaults mirror the fine schedule
// the library has always charged.
type Policy struct {
	LoanPeriodDays int     `yaml:"loanPeriodDays" envconfig:"LOAN_PERIOD_DAYS" default:"15"`
	LateDailyRate  float64 `yaml:"lateDailyRate" envconfig:"LATE_DAILY_RATE" default:"5"`
	DamageFee      float64 `yaml:"damageFee" envconfig:"DAMAGE_FEE" default:"10"`
	LossFee        float64 `yaml:"lossFee" envconfig:"LOSS_FEE" default:"20"`
	NonReturnFee   float64 `yaml:"nonReturnFee" envconfig:"NON_RETURN_FEE" default:"50"`
}

type Config struct {
	Server      HTTPServer   `yaml:"server"`
	Database    postgres.DB  `yaml:"db"`
	Kafka       kafka.Config `yaml:"kafka"`
	OpenLibrary OpenLibrary  `yaml:"openlibrary"`
	Policy      Policy       `yaml:"policy"`
	Log         logger.Log   `yaml:"log"`
}

var (
	once sync.Once
	cfg  *Config
)

// NewConfig reads config from environment.
func NewConfig(ops ...Option) *Config {
	once.Do(func() {
		var config Config
		for _, op := range ops {
			op(&config)
		}
		err := envconfig.Process("", &config)
		if err != nil {
			log.Fatal("NewConfig ", err)
		}
		cfg = &config
	})

	return cfg
}
