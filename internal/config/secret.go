package config

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"
)

const (
	defaultDBPort = 5432
	defaultDBName = "nba_cap_optimizer"
)

type SecretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// DBCredentials is the JSON secret holding the relational store login.
type DBCredentials struct {
	Host     string
	Port     int
	Username string
	Password string
	Database string
}

// ConnString renders a postgres URL suitable for pgxpool.ParseConfig.
func (c DBCredentials) ConnString() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.Username, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   "/" + c.Database,
	}
	q := u.Query()
	q.Set("connect_timeout", "10")
	u.RawQuery = q.Encode()
	return u.String()
}

// LoadDBCredentials fetches and decodes the secret. Missing port and dbname fall back to defaults.
func LoadDBCredentials(ctx context.Context, sm SecretsAPI, secretID string) (DBCredentials, error) {
	out, err := sm.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		return DBCredentials{}, errors.Wrap(err, "get db secret")
	}
	if out.SecretString == nil {
		return DBCredentials{}, errors.Newf("secret %s has no string value", secretID)
	}
	return ParseDBCredentials(*out.SecretString)
}

func ParseDBCredentials(raw string) (DBCredentials, error) {
	var m map[string]any
	if err := sonic.ConfigStd.UnmarshalFromString(raw, &m); err != nil {
		return DBCredentials{}, errors.Wrap(err, "decode db secret")
	}
	creds := DBCredentials{
		Host:     str(m["host"]),
		Port:     defaultDBPort,
		Username: str(m["username"]),
		Password: str(m["password"]),
		Database: str(m["dbname"]),
	}
	switch p := m["port"].(type) {
	case float64:
		creds.Port = int(p)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return DBCredentials{}, errors.Wrapf(err, "db secret port %q", p)
		}
		creds.Port = n
	}
	if creds.Database == "" {
		creds.Database = defaultDBName
	}
	if creds.Host == "" || creds.Username == "" {
		return DBCredentials{}, errors.New("db secret missing host or username")
	}
	return creds, nil
}

func str(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}
