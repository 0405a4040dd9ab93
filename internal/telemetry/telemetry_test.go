package telemetry

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestSetupDisabledWithoutEndpoint(t *testing.T) {
	shutdown := Setup(context.Background(), "permissiondesk", "", false, zerolog.Nop())
	assert.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}
