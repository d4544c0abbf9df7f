package tui

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"
	"github.com/sirupsen/logrus"
)

// LogHook forwards every logrus entry to the log panel.
type LogHook struct {
	write func(line string)
}

// NewLogHook returns a hook that passes formatted lines to write.
func NewLogHook(write func(line string)) *LogHook {
	return &LogHook{write: write}
}

// Levels implements logrus.Hook.
func (h *LogHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire implements logrus.Hook.
func (h *LogHook) Fire(entry *logrus.Entry) error {
	file, _ := entry.Data["file"].(string)
	h.write(formatLogLine(entry.Level, file, entry.Message))
	return nil
}

func formatLogLine(level logrus.Level, file, message string) string {
	var color string
	switch level {
	case logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel:
		color = "red"
	case logrus.WarnLevel:
		color = "yellow"
	case logrus.DebugLevel, logrus.TraceLevel:
		color = "gray"
	default:
		color = "white"
	}

	line := fmt.Sprintf("[%s]%s:[white] %s", color, strings.ToUpper(level.String()), tview.Escape(message))
	if file != "" {
		line += fmt.Sprintf(" [gray](%s)[white]", tview.Escape(file))
	}
	return line
}
