package config

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATA_BUCKET", "dev-nba-data")
	t.Setenv("ENVIRONMENT", "dev")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "2025-26", cfg.DefaultSeason)
	assert.Equal(t, 3, cfg.HTTPMaxAttempts)
	assert.False(t, cfg.CatalogEnabled())
	assert.NoError(t, cfg.Validate(StageTransform))
	assert.EqualError(t, cfg.Validate(StageLoad), "DB_SECRET_ARN environment variable is required")
}

func TestValidateMissingBucket(t *testing.T) {
	cfg := &Config{Environment: "dev", HTTPMaxAttempts: 1}
	assert.EqualError(t, cfg.Validate(StageFetch), "DATA_BUCKET environment variable is required")
}

func TestParseDBCredentials(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want DBCredentials
	}{
		{
			name: "defaults",
			raw:  `{"host":"db.local","username":"etl","password":"pw"}`,
			want: DBCredentials{Host: "db.local", Port: 5432, Username: "etl", Password: "pw", Database: "nba_cap_optimizer"},
		},
		{
			name: "string port",
			raw:  `{"host":"db.local","port":"6543","username":"etl","password":"pw","dbname":"nba"}`,
			want: DBCredentials{Host: "db.local", Port: 6543, Username: "etl", Password: "pw", Database: "nba"},
		},
		{
			name: "numeric port",
			raw:  `{"host":"db.local","port":5433,"username":"etl","password":"pw"}`,
			want: DBCredentials{Host: "db.local", Port: 5433, Username: "etl", Password: "pw", Database: "nba_cap_optimizer"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDBCredentials(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseDBCredentials(`{"password":"pw"}`)
	assert.Error(t, err)
}

type fakeSecrets struct {
	value string
	asked string
}

func (f *fakeSecrets) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.asked = aws.ToString(in.SecretId)
	return &secretsmanager.GetSecretValueOutput{SecretString: aws.String(f.value)}, nil
}

func TestLoadDBCredentials(t *testing.T) {
	sm := &fakeSecrets{value: `{"host":"h","username":"u","password":"p w"}`}
	creds, err := LoadDBCredentials(context.Background(), sm, "arn:secret")
	require.NoError(t, err)
	assert.Equal(t, "arn:secret", sm.asked)
	assert.Equal(t, "postgres://u:p%20w@h:5432/nba_cap_optimizer?connect_timeout=10", creds.ConnString())
}
