package microsim

import (
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestSetLogLevel(t *testing.T) {
	defer log.SetLevel(log.GetLevel())
	assert.NoError(t, SetLogLevel("debug"))
	assert.Equal(t, log.DebugLevel, log.GetLevel())
	assert.Error(t, SetLogLevel("loud"))

	assert.NoError(t, SetLogFormat("json"))
	assert.NoError(t, SetLogFormat("text"))
	assert.Error(t, SetLogFormat("xml"))
}
