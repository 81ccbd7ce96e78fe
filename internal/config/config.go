package config

import (
	"errors"

	"github.com/caarlos0/env/v11"
)

// Optimizer 是遗传算法的默认参数，API 创建任务时未指定的参数使用这里的值
type Optimizer struct {
	LabelCount           int     `env:"LABEL_COUNT" envDefault:"2"`
	HalfMax              int     `env:"HALF_MAX" envDefault:"15"`
	QuarterMax           int     `env:"QUARTER_MAX" envDefault:"9"`
	PairwiseMultiplier   float64 `env:"PAIRWISE_MULTIPLIER" envDefault:"0.5"`
	IndividualMultiplier float64 `env:"INDIVIDUAL_MULTIPLIER" envDefault:"0.25"`
	PopulationSize       int     `env:"POPULATION_SIZE" envDefault:"100"`
	MutationRate         float64 `env:"MUTATION_RATE" envDefault:"0.001"`
	Islands              int     `env:"ISLANDS" envDefault:"4"`
	Eras                 int     `env:"ERAS" envDefault:"50"`
	GenerationsPerEra    int     `env:"GENERATIONS_PER_ERA" envDefault:"100"`
	WallClockSeconds     int     `env:"WALL_CLOCK_SECONDS" envDefault:"0"` // 0 表示不限制
	Seed                 int64   `env:"SEED" envDefault:"0"`
	ProgressInterval     int     `env:"PROGRESS_INTERVAL" envDefault:"10"` // 每隔多少代输出一次进度
	ReportDir            string  `env:"REPORT_DIR" envDefault:"reports"`
	MetricsPort          string  `env:"METRICS_PORT" envDefault:"9100"`
}

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Server      struct {
		Port            string `env:"PORT" envDefault:"3000"`
		ReadTimeout     int    `env:"READ_TIMEOUT" envDefault:"10"`
		WriteTimeout    int    `env:"WRITE_TIMEOUT" envDefault:"15"`
		IdleTimeout     int    `env:"IDLE_TIMEOUT" envDefault:"60"`
		ShutdownTimeout int    `env:"SHUTDOWN_TIMEOUT" envDefault:"10"`
		MaxUploadSize   int64  `env:"MAX_UPLOAD_SIZE" envDefault:"10485760"` // 10 MiB
	} `envPrefix:"SERVER_"`
	Database struct {
		DSN                string `env:"DSN,required"`
		ConnectTimeout     int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		QueryTimeout       int    `env:"QUERY_TIMEOUT" envDefault:"10"`
		TransactionTimeout int    `env:"TRANSACTION_TIMEOUT" envDefault:"20"`
		MaxOpenConns       int    `env:"MAX_OPEN_CONNS" envDefault:"10"`
		MaxIdleConns       int    `env:"MAX_IDLE_CONNS" envDefault:"10"`
		MaxIdleTime        int    `env:"MAX_IDLE_TIME" envDefault:"60"`
	} `envPrefix:"DATABASE_"`
	InitialAdmin struct {
		Username string `env:"USERNAME" envDefault:"admin"`
		Password string `env:"PASSWORD,required"`
		FullName string `env:"FULL_NAME" envDefault:"管理员"`
		Email    string `env:"EMAIL,required"`
	} `envPrefix:"INITIAL_ADMIN_"`
	JWT struct {
		Expiration int    `env:"EXPIRATION" envDefault:"1209600"` // 14 天
		Secret     string `env:"SECRET,required"`
	} `envPrefix:"JWT_"`
	Seed struct {
		User struct {
			Password string `env:"PASSWORD,required"`
		} `envPrefix:"USER_"`
	} `envPrefix:"SEED_"`
	Email struct {
		UserDomain string `env:"USER_DOMAIN,required"`
		SMTP       struct {
			Username    string `env:"USERNAME,required"`
			Password    string `env:"PASSWORD,required"`
			Host        string `env:"HOST,required"`
			Port        int    `env:"PORT" envDefault:"465"`
			DialTimeout int    `env:"DIAL_TIMEOUT" envDefault:"10"`
		} `envPrefix:"SMTP_"`
	} `envPrefix:"EMAIL_"`
	RabbitMQ struct {
		DSN            string `env:"DSN,required"`
		PublishTimeout int    `env:"PUBLISH_TIMEOUT" envDefault:"10"`
	} `envPrefix:"RABBITMQ_"`
	Redis struct {
		Host               string `env:"HOST" envDefault:"localhost"`
		Port               int    `env:"PORT" envDefault:"6379"`
		Password           string `env:"PASSWORD,required"`
		ConnectTimeout     int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		ProgressExpiration int    `env:"PROGRESS_EXPIRATION" envDefault:"86400"` // 1 天
	} `envPrefix:"REDIS_"`
	Optimizer Optimizer `envPrefix:"OPTIMIZER_"`
	NewUser   struct {
		PasswordLength int `env:"PASSWORD_LENGTH" envDefault:"12"`
	} `envPrefix:"NEW_USER_"`
}

// firstError 只返回第一个错误使得日志更清晰
func firstError(err error) error {
	aggErr := env.AggregateError{}
	if ok := errors.As(err, &aggErr); ok && len(aggErr.Errors) > 0 {
		return aggErr.Errors[0]
	}
	return err
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, firstError(err)
	}

	return cfg, nil
}

// LoadOptimizerConfig 只解析 OPTIMIZER_ 开头的环境变量，供本地命令行工具使用
func LoadOptimizerConfig() (*Optimizer, error) {
	cfg := &Optimizer{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: "OPTIMIZER_"}); err != nil {
		return nil, firstError(err)
	}

	return cfg, nil
}
