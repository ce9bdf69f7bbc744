package inventory

import (
	"io"

	"github.com/smartcanteen/canteen-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}
