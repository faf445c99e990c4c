package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArn(t *testing.T) {
	arn, err := parseArn("arn:minio:sqs::primary:webhook")
	require.NoError(t, err)
	assert.Equal(t, "arn:minio:sqs::primary:webhook", arn.String())
}

func TestParseArn_Invalid(t *testing.T) {
	for _, s := range []string{"", "webhook", "arn:minio:sqs", "nrn:minio:sqs::primary:webhook"} {
		_, err := parseArn(s)
		assert.Error(t, err, s)
	}
}
