package pgorders

import (
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// ConnParams describes both connections the storage needs: the administrative one
// (maintenance database, used for CREATE/DROP DATABASE) and the target one.
type ConnParams struct {
	Host     string
	Port     int
	User     string
	Password string
	SSLMode  string

	AdminDB  string
	TargetDB string

	ConnectTimeout time.Duration
}

func (p ConnParams) Validate() error {
	if p.Host == "" {
		return errors.New("database host is required")
	}
	if p.Port <= 0 || p.Port > 65535 {
		return errors.Errorf("invalid database port: %d", p.Port)
	}
	if p.User == "" {
		return errors.New("database user is required")
	}
	if p.AdminDB == "" {
		return errors.New("admin database name is required")
	}
	if p.TargetDB == "" {
		return errors.New("target database name is required")
	}
	// Нельзя удалить БД, к которой сами же подключены.
	if p.AdminDB == p.TargetDB {
		return errors.New("admin and target database must differ")
	}
	return nil
}

func (p ConnParams) AdminConnString() string {
	return p.connString(p.AdminDB)
}

func (p ConnParams) TargetConnString() string {
	return p.connString(p.TargetDB)
}

func (p ConnParams) connString(dbName string) string {
	q := url.Values{}
	sslMode := p.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	q.Set("sslmode", sslMode)
	if p.ConnectTimeout > 0 {
		q.Set("connect_timeout", strconv.Itoa(int(p.ConnectTimeout.Seconds())))
	}

	u := url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(p.Host, strconv.Itoa(p.Port)),
		Path:     "/" + dbName,
		RawQuery: q.Encode(),
	}
	if p.Password != "" {
		u.User = url.UserPassword(p.User, p.Password)
	} else {
		u.User = url.User(p.User)
	}
	return u.String()
}
