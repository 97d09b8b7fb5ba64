package awsclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timesheet/internal/platform/config"
)

func TestLoadWithEndpoint(t *testing.T) {
	cfg := config.Config{AWSRegion: "eu-west-1", AWSEndpoint: "http://localhost:4566"}

	awsCfg, err := Load(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", awsCfg.Region)
	require.NotNil(t, awsCfg.BaseEndpoint)
	assert.Equal(t, "http://localhost:4566", *awsCfg.BaseEndpoint)

	creds, err := awsCfg.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "test", creds.AccessKeyID)
}

func TestLoadWithoutEndpoint(t *testing.T) {
	awsCfg, err := Load(context.Background(), config.Config{AWSRegion: "us-east-1"})
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", awsCfg.Region)
	assert.Nil(t, awsCfg.BaseEndpoint)
}
