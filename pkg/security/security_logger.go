package security

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EventType represents the type of security event
type EventType string

const (
	EventLoginFailed        EventType = "login_failed"
	EventLoginBlocked       EventType = "login_blocked"
	EventLoginSuccess       EventType = "login_success"
	EventRateLimitTriggered EventType = "rate_limit_triggered"
	EventUnauthorizedAccess EventType = "unauthorized_access"
	EventForbiddenAccess    EventType = "forbidden_access"
	EventBlockCreated       EventType = "block_created"
	EventUserCreated        EventType = "user_created"
	EventAccountUpgraded    EventType = "account_upgraded"
	EventUpgradeRejected    EventType = "account_upgrade_rejected"
	EventStatusChanged      EventType = "application_status_changed"
	EventStatusConflict     EventType = "application_status_conflict"
	EventDataExport         EventType = "data_export"
)

// eventLevels maps each event to its log level; unknown events log at warn.
var eventLevels = map[EventType]zapcore.Level{
	EventLoginSuccess:       zapcore.InfoLevel,
	EventUserCreated:        zapcore.InfoLevel,
	EventAccountUpgraded:    zapcore.InfoLevel,
	EventStatusChanged:      zapcore.InfoLevel,
	EventDataExport:         zapcore.InfoLevel,
	EventLoginFailed:        zapcore.WarnLevel,
	EventRateLimitTriggered: zapcore.WarnLevel,
	EventUpgradeRejected:    zapcore.WarnLevel,
	EventStatusConflict:     zapcore.WarnLevel,
	EventForbiddenAccess:    zapcore.WarnLevel,
	EventLoginBlocked:       zapcore.ErrorLevel,
	EventBlockCreated:       zapcore.ErrorLevel,
	EventUnauthorizedAccess: zapcore.ErrorLevel,
}

// SecurityEvent represents a security-related event to be logged
type SecurityEvent struct {
	Timestamp    time.Time
	Event        EventType
	SubjectType  string // "username", "email", "ip", "person_id"
	SubjectValue string // masked or hashed for PII
	IP           string
	UserAgent    string
	RequestID    string
	Details      map[string]interface{}
}

// SecurityLogger writes audit events through zap, separate from the
// application log.
type SecurityLogger struct {
	zapLogger   *zap.Logger
	serviceName string
	environment string
}

// NewSecurityLogger builds a production zap logger writing JSON to stdout.
func NewSecurityLogger(serviceName string) *SecurityLogger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.LevelKey = "level"
	config.EncoderConfig.MessageKey = "message"
	config.OutputPaths = []string{"stdout"}
	config.ErrorOutputPaths = []string{"stderr"}

	logger, err := config.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return NewSecurityLoggerWith(logger, serviceName, getEnvironment())
}

// NewSecurityLoggerWith wraps an existing zap logger.
func NewSecurityLoggerWith(logger *zap.Logger, serviceName, environment string) *SecurityLogger {
	return &SecurityLogger{
		zapLogger:   logger,
		serviceName: serviceName,
		environment: environment,
	}
}

// NopSecurityLogger discards every event.
func NopSecurityLogger() *SecurityLogger {
	return NewSecurityLoggerWith(zap.NewNop(), "", "")
}

// Log logs a security event
func (sl *SecurityLogger) Log(ctx context.Context, event SecurityEvent) {
	if sl == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	level, ok := eventLevels[event.Event]
	if !ok {
		level = zapcore.WarnLevel
	}

	fields := []zap.Field{
		zap.String("service", sl.serviceName),
		zap.String("env", sl.environment),
		zap.String("event", string(event.Event)),
		zap.Time("event_time", event.Timestamp),
	}
	if event.SubjectType != "" {
		fields = append(fields, zap.String("subject_type", event.SubjectType))
	}
	if event.SubjectValue != "" {
		fields = append(fields, zap.String("subject_value", event.SubjectValue))
	}
	if event.IP != "" {
		fields = append(fields, zap.String("ip", event.IP))
	}
	if event.UserAgent != "" {
		fields = append(fields, zap.String("user_agent", event.UserAgent))
	}
	if event.RequestID != "" {
		fields = append(fields, zap.String("request_id", event.RequestID))
	}
	if len(event.Details) > 0 {
		fields = append(fields, zap.Any("details", event.Details))
	}

	sl.zapLogger.Log(level, string(event.Event), fields...)
}

// LogLoginFailed logs a failed login attempt
func (sl *SecurityLogger) LogLoginFailed(ctx context.Context, username, ip, reason string) {
	sl.Log(ctx, SecurityEvent{
		Event:        EventLoginFailed,
		SubjectType:  "username",
		SubjectValue: HashValue(username),
		IP:           ip,
		Details:      map[string]interface{}{"reason": reason},
	})
}

// LogLoginBlocked logs a login refused because of earlier failures
func (sl *SecurityLogger) LogLoginBlocked(ctx context.Context, username, ip string) {
	sl.Log(ctx, SecurityEvent{
		Event:        EventLoginBlocked,
		SubjectType:  "username",
		SubjectValue: HashValue(username),
		IP:           ip,
		Details:      map[string]interface{}{"reason": "too_many_failed_attempts"},
	})
}

func (sl *SecurityLogger) LogLoginSuccess(ctx context.Context, personID int64, ip string) {
	sl.Log(ctx, SecurityEvent{
		Event:        EventLoginSuccess,
		SubjectType:  "person_id",
		SubjectValue: formatID(personID),
		IP:           ip,
	})
}

// LogRateLimitTriggered logs when rate limiting is triggered
func (sl *SecurityLogger) LogRateLimitTriggered(ctx context.Context, ip, userAgent, requestID, endpoint string) {
	sl.Log(ctx, SecurityEvent{
		Event:        EventRateLimitTriggered,
		SubjectType:  "ip",
		SubjectValue: ip,
		IP:           ip,
		UserAgent:    userAgent,
		RequestID:    requestID,
		Details:      map[string]interface{}{"endpoint": endpoint},
	})
}

// LogBlockCreated logs when a block is created
func (sl *SecurityLogger) LogBlockCreated(ctx context.Context, username, ip string, durationMinutes int) {
	sl.Log(ctx, SecurityEvent{
		Event:        EventBlockCreated,
		SubjectType:  "username",
		SubjectValue: HashValue(username),
		IP:           ip,
		Details:      map[string]interface{}{"duration_minutes": durationMinutes},
	})
}

// LogStatusDecision records a recruiter decision or a lost race.
func (sl *SecurityLogger) LogStatusDecision(ctx context.Context, personID int64, target, current string, updated bool) {
	event := EventStatusChanged
	if !updated {
		event = EventStatusConflict
	}
	sl.Log(ctx, SecurityEvent{
		Event:        event,
		SubjectType:  "person_id",
		SubjectValue: formatID(personID),
		Details:      map[string]interface{}{"target": target, "current": current},
	})
}

// LogPersonEvent logs an account or access event about one person.
func (sl *SecurityLogger) LogPersonEvent(ctx context.Context, event EventType, personID int64, details map[string]interface{}) {
	sl.Log(ctx, SecurityEvent{
		Event:        event,
		SubjectType:  "person_id",
		SubjectValue: formatID(personID),
		Details:      details,
	})
}

// Sync flushes any buffered log entries
func (sl *SecurityLogger) Sync() error {
	return sl.zapLogger.Sync()
}

// MaskEmail masks an email for logging (e.g., "j***@example.com")
func MaskEmail(email string) string {
	at := strings.IndexByte(email, '@')
	if len(email) < 3 || at < 0 {
		return "***"
	}
	if at <= 1 {
		return "***" + email[at:]
	}
	return string(email[0]) + "***" + email[at:]
}

// HashValue creates a SHA256 hash of a value (for logging without PII)
func HashValue(value string) string {
	hash := sha256.Sum256([]byte(value))
	return hex.EncodeToString(hash[:8])
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// getEnvironment determines the current environment
func getEnvironment() string {
	if os.Getenv("GIN_MODE") == "release" {
		return "production"
	}
	return "development"
}
