package conn

import (
	"net"
	"net/url"
	"strconv"
)

const (
	defaultPostgresHost    = "localhost"
	defaultPostgresPort    = 5432
	defaultPostgresSSLMode = "disable"
)

// dsn returns ConnString as is, or a postgres URL assembled from the
// discrete fields.
func (opt Option) dsn() (string, error) {
	if opt.ConnString != "" {
		return opt.ConnString, nil
	}

	host, port, sslMode := opt.Host, opt.Port, opt.SSLMode
	if host == "" {
		host = defaultPostgresHost
	}
	if port == 0 {
		port = defaultPostgresPort
	}
	if sslMode == "" {
		sslMode = defaultPostgresSSLMode
	}

	u := url.URL{Scheme: DriverPostgres, Host: net.JoinHostPort(host, strconv.Itoa(port))}
	switch {
	case opt.User != "" && opt.Password != "":
		u.User = url.UserPassword(opt.User, opt.Password)
	case opt.User != "":
		u.User = url.User(opt.User)
	}
	if opt.Database != "" {
		u.Path = "/" + opt.Database
	}

	query := make(url.Values, len(opt.Params)+1)
	for key, value := range opt.Params {
		if key != "" && value != "" {
			query.Set(key, value)
		}
	}
	query.Set("sslmode", sslMode)
	u.RawQuery = query.Encode()

	return u.String(), nil
}
