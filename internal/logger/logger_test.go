package logger

import (
	"os"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestWithComponent(t *testing.T) {
	entry := WithComponent("test-component")
	if entry == nil {
		t.Fatal("expected non-nil entry")
	}

	// Check that the component field is set
	if val, ok := entry.Data["component"]; !ok {
		t.Error("expected component field to be set")
	} else if val != "test-component" {
		t.Errorf("expected component 'test-component', got '%v'", val)
	}
}

func TestLoggerInit(t *testing.T) {
	// Test that Logger is initialized
	if Logger == nil {
		t.Fatal("expected Logger to be initialized")
	}

	// Test that Logger has the expected output
	if Logger.Out != os.Stdout {
		t.Error("expected Logger output to be os.Stdout")
	}
}

func TestSetLevel(t *testing.T) {
	origLevel := Logger.GetLevel()
	defer Logger.SetLevel(origLevel)

	tests := []struct {
		name          string
		level         string
		expectedLevel logrus.Level
	}{
		{"debug level", "debug", logrus.DebugLevel},
		{"info level", "info", logrus.InfoLevel},
		{"warn level", "warn", logrus.WarnLevel},
		{"error level", "error", logrus.ErrorLevel},
		{"DEBUG uppercase", "DEBUG", logrus.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Logger.SetLevel(logrus.InfoLevel)

			SetLevel(tt.level)

			if Logger.GetLevel() != tt.expectedLevel {
				t.Errorf("expected level %v, got %v", tt.expectedLevel, Logger.GetLevel())
			}
		})
	}
}

func TestSetLevel_UnknownLevelIsIgnored(t *testing.T) {
	origLevel := Logger.GetLevel()
	defer Logger.SetLevel(origLevel)

	Logger.SetLevel(logrus.WarnLevel)
	SetLevel("chatty")

	if Logger.GetLevel() != logrus.WarnLevel {
		t.Errorf("expected level to stay warn, got %v", Logger.GetLevel())
	}
}

func TestSetLevel_EmptyIsNoop(t *testing.T) {
	origLevel := Logger.GetLevel()
	defer Logger.SetLevel(origLevel)

	Logger.SetLevel(logrus.ErrorLevel)
	SetLevel("")

	if Logger.GetLevel() != logrus.ErrorLevel {
		t.Errorf("expected level to stay error, got %v", Logger.GetLevel())
	}
}

func TestWithComponentMultiple(t *testing.T) {
	entry1 := WithComponent("component-a")
	entry2 := WithComponent("component-b")

	if entry1.Data["component"] == entry2.Data["component"] {
		t.Error("expected different component values for different entries")
	}
}
