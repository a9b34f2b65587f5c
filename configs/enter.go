package configs

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

var Conf *Config

type Config struct {
	App        AppConfig        `yaml:"app"`
	Log        LogConfig        `yaml:"log"`
	Mysql      MysqlConfig      `yaml:"mysql"`
	Redis      RedisConfig      `yaml:"redis"`
	JWT        JWTConfig        `yaml:"jwt"`
	Codeforces CodeforcesConfig `yaml:"codeforces"`
	Battle     BattleConfig     `yaml:"battle"`
}

type AppConfig struct {
	Name string `yaml:"name"`
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	Env  string `yaml:"env"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path"`
}

type MysqlConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

func (m MysqlConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		m.User, m.Password, m.Host, m.Port, m.Database)
}

type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret    string `yaml:"secret"`
	ExpireDay int    `yaml:"expire_day"`
}

type CodeforcesConfig struct {
	RequestIntervalMs int `yaml:"request_interval_ms"`
	RequestTimeoutSec int `yaml:"request_timeout_sec"`
	CacheTTLSec       int `yaml:"cache_ttl_sec"`
	CacheSweepSec     int `yaml:"cache_sweep_sec"`
	QueueCap          int `yaml:"queue_cap"`
	MaxSubmissions    int `yaml:"max_submissions"`
}

func (c CodeforcesConfig) RequestInterval() time.Duration {
	if c.RequestIntervalMs <= 0 {
		return time.Second
	}
	return time.Duration(c.RequestIntervalMs) * time.Millisecond
}

func (c CodeforcesConfig) RequestTimeout() time.Duration {
	if c.RequestTimeoutSec <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

func (c CodeforcesConfig) CacheTTL() time.Duration {
	if c.CacheTTLSec <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.CacheTTLSec) * time.Second
}

func (c CodeforcesConfig) CacheSweepInterval() time.Duration {
	if c.CacheSweepSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.CacheSweepSec) * time.Second
}

type BattleConfig struct {
	PollIntervalSec    int `yaml:"poll_interval_sec"`
	MirrorRetentionMin int `yaml:"mirror_retention_min"`
	ResultRetentionMin int `yaml:"result_retention_min"`
	MaxDurationMin     int `yaml:"max_duration_min"`
	MaxProblems        int `yaml:"max_problems"`
}

func (b BattleConfig) PollInterval() time.Duration {
	if b.PollIntervalSec <= 0 {
		return 10 * time.Second
	}
	return time.Duration(b.PollIntervalSec) * time.Second
}

func (b BattleConfig) MirrorRetention() time.Duration {
	if b.MirrorRetentionMin <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(b.MirrorRetentionMin) * time.Minute
}

func (b BattleConfig) ResultRetention() time.Duration {
	if b.ResultRetentionMin <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(b.ResultRetentionMin) * time.Minute
}

// Load 加载yaml配置文件
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败:%w", err)
	}
	var conf Config
	if err := yaml.Unmarshal(data, &conf); err != nil {
		return nil, fmt.Errorf("解析配置文件失败:%w", err)
	}
	Conf = &conf
	return &conf, nil
}
