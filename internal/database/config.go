package database

import "github.com/caarlos0/env/v6"

type envConfig struct {
	Driver   string `env:"DB_DRIVER" envDefault:"sqlite"`
	Path     string `env:"DB_PATH" envDefault:"sensor_data.db"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER,unset" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD,unset"`
	DBName   string `env:"DB_DATABASE" envDefault:"sensors"`
}

func NewConfig() (*envConfig, error) {
	dbConfig := &envConfig{}
	opts := env.Options{}
	if err := env.Parse(dbConfig, opts); err != nil {
		return nil, err
	}
	return dbConfig, nil
}
