package utils_test

import (
	"strings"
	"testing"

	"github.com/NethermindEth/cheatnet/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var levelStrings = map[*utils.LogLevel]string{
	utils.NewLogLevel(utils.DEBUG): "debug",
	utils.NewLogLevel(utils.INFO):  "info",
	utils.NewLogLevel(utils.WARN):  "warn",
	utils.NewLogLevel(utils.ERROR): "error",
}

func TestLogLevelString(t *testing.T) {
	for level, str := range levelStrings {
		t.Run("level "+str, func(t *testing.T) {
			assert.Equal(t, str, level.String())
		})
	}
}

func TestLogLevelSet(t *testing.T) {
	for level, str := range levelStrings {
		t.Run("level "+str, func(t *testing.T) {
			l := utils.NewLogLevel(utils.ERROR)
			require.NoError(t, l.Set(str))
			assert.Equal(t, *level, *l)
		})
		uppercase := strings.ToUpper(str)
		t.Run("level "+uppercase, func(t *testing.T) {
			l := utils.NewLogLevel(utils.ERROR)
			require.NoError(t, l.UnmarshalText([]byte(uppercase)))
			assert.Equal(t, *level, *l)
		})
	}

	t.Run("unknown log level", func(t *testing.T) {
		l := new(utils.LogLevel)
		require.ErrorIs(t, l.Set("blah"), utils.ErrUnknownLogLevel)
	})
}

func TestNewZapLogger(t *testing.T) {
	for _, level := range []utils.LogLevel{utils.DEBUG, utils.INFO, utils.WARN, utils.ERROR} {
		t.Run(level.String(), func(t *testing.T) {
			log, err := utils.NewZapLogger(level, false)
			require.NoError(t, err)
			log.Debugw("message", "key", "value")
		})
	}
}
