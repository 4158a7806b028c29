package publishers

import "github.com/Adda-Baaj/dcu-client/pkg/dcuniverse"

// Logger is the same object-logging surface the API client uses, so one
// logger can be handed to both.
type Logger = dcuniverse.Logger

type noopLogger struct{}

func (noopLogger) InfoObj(string, string, interface{})  {}
func (noopLogger) DebugObj(string, string, interface{}) {}
func (noopLogger) WarnObj(string, string, interface{})  {}
func (noopLogger) ErrorObj(string, string, interface{}) {}

func ensureLogger(log Logger) Logger {
	if log == nil {
		return noopLogger{}
	}
	return log
}
