package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	userIDLocal    = "userID"
	requestIDLocal = "requestID"
)

var globalLogger = newLogrus(os.Stdout, logrus.InfoLevel)

func newLogrus(output io.Writer, level logrus.Level) *logrus.Logger {
	if output == nil {
		output = os.Stdout
	}
	l := logrus.New()
	l.SetOutput(output)
	l.SetLevel(level)
	l.SetFormatter(&logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime: "timestamp",
			logrus.FieldKeyMsg:  "action",
		},
	})
	return l
}

// Init configures the process-wide logger. Unknown levels fall back to info.
func Init(level string) {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	globalLogger = newLogrus(os.Stdout, parsed)
}

// SetOutput redirects log output, mostly for tests.
func SetOutput(output io.Writer) {
	globalLogger.SetOutput(output)
}

func entry(userID *string, details map[string]interface{}, err error) *logrus.Entry {
	fields := logrus.Fields{}
	if len(details) > 0 {
		fields["details"] = details
	}
	if userID != nil {
		fields["user_id"] = *userID
	}
	if caller := callerLocation(); caller != "" {
		fields["caller"] = caller
	}
	e := globalLogger.WithFields(fields)
	if err != nil {
		e = e.WithError(err)
	}
	return e
}

func Debug(action string, details map[string]interface{}) {
	entry(nil, details, nil).Debug(action)
}

func Info(action string, details map[string]interface{}) {
	entry(nil, details, nil).Info(action)
}

func InfoWithUser(userID string, action string, details map[string]interface{}) {
	entry(&userID, details, nil).Info(action)
}

func Warn(action string, details map[string]interface{}) {
	entry(nil, details, nil).Warn(action)
}

func WarnWithUser(userID string, action string, details map[string]interface{}) {
	entry(&userID, details, nil).Warn(action)
}

func Error(action string, err error, details map[string]interface{}) {
	entry(nil, details, err).Error(action)
}

func ErrorWithUser(userID string, action string, err error, details map[string]interface{}) {
	entry(&userID, details, err).Error(action)
}

func GetUserIDFromContext(c *fiber.Ctx) *string {
	if userID := c.Locals(userIDLocal); userID != nil {
		if id, ok := userID.(string); ok {
			return &id
		}
	}
	return nil
}

func GetRequestID(c *fiber.Ctx) string {
	if value, ok := c.Locals(requestIDLocal).(string); ok {
		return value
	}
	return ""
}

func callerLocation() string {
	if _, file, line, ok := runtime.Caller(3); ok {
		return fmt.Sprintf("%s:%d", file, line)
	}
	return ""
}

var sensitiveFields = []string{"password", "confirmPassword", "secret", "token", "accessKey", "secretKey"}

func redactSensitiveFields(jsonMap map[string]interface{}) {
	for _, field := range sensitiveFields {
		if _, exists := jsonMap[field]; exists {
			jsonMap[field] = "[REDACTED]"
		}
	}
}

func GetRequestBodySummary(c *fiber.Ctx) string {
	body := c.Body()
	if len(body) == 0 {
		return "empty"
	}

	if len(body) > 1024 {
		return fmt.Sprintf("large (%d bytes)", len(body))
	}

	var jsonMap map[string]interface{}
	if err := json.Unmarshal(body, &jsonMap); err == nil {
		redactSensitiveFields(jsonMap)
		if jsonBytes, err := json.Marshal(jsonMap); err == nil {
			if len(jsonBytes) > 200 {
				return string(jsonBytes[:200]) + "..."
			}
			return string(jsonBytes)
		}
	}

	return fmt.Sprintf("binary (%d bytes)", len(body))
}

func GetResponseSizeSummary(c *fiber.Ctx) string {
	body := c.Response().Body()
	if len(body) == 0 {
		return "empty"
	}
	if len(body) > 1024 {
		return fmt.Sprintf("large (%d bytes)", len(body))
	}
	return fmt.Sprintf("small (%d bytes)", len(body))
}

func GenerateRequestID() string {
	return uuid.New().String()
}
