package pg

import (
	"database/sql"
	"fmt"
	"time"
)

type Config struct {
	User            string `env:"USER"`
	Host            string `env:"HOST"`
	Port            string `env:"PORT"`
	Password        string `env:"PASSWORD"`
	Database        string `env:"DBNAME"`
	SSLMode         string `env:"SSLMODE"`
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func (c Config) DSN() string {
	ssl := c.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s", c.Host, c.User, c.Password, c.Database, c.Port, ssl)
}

func newSqlConnection(config Config) (*sql.DB, error) {
	return sql.Open("postgres", config.DSN())
}
