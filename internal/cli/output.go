package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Color codes using ANSI escape sequences
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

// colorsEnabled determines if color output is enabled
var colorsEnabled = true

func init() {
	// Disable colors if NO_COLOR environment variable is set
	if os.Getenv("NO_COLOR") != "" {
		colorsEnabled = false
	}
}

// colorize applies color to text if colors are enabled
func colorize(text, color string) string {
	if !colorsEnabled {
		return text
	}
	return color + text + colorReset
}

// Success prints a success message with a green checkmark
func Success(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	icon := colorize("✓", colorGreen)
	fmt.Printf("%s %s\n", icon, msg)
}

// Error prints an error message with a red X to stderr
func Error(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	icon := colorize("✗", colorRed)
	fmt.Fprintf(os.Stderr, "%s Error: %s\n", icon, msg)
}

// Warning prints a warning message with a yellow warning sign
func Warning(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	icon := colorize("⚠", colorYellow)
	fmt.Printf("%s Warning: %s\n", icon, msg)
}

// Info prints an informational message
func Info(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(msg)
}

// Header prints a section header with underline
func Header(text string) {
	fmt.Println(colorize(text, colorBold))
	fmt.Println(strings.Repeat("=", len(text)))
	fmt.Println()
}

// Subheader prints a subsection header
func Subheader(text string) {
	fmt.Println(colorize(text, colorBold))
	fmt.Println(strings.Repeat("-", len(text)))
}

// Field prints a labeled field (key-value pair)
func Field(label, value string) {
	labelFormatted := fmt.Sprintf("%-16s", label+":")
	fmt.Printf("%s %s\n", colorize(labelFormatted, colorGray), value)
}

// JSON marshals and prints data as indented JSON
func JSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// StatusIcon returns a colored status icon based on status string
func StatusIcon(status string) string {
	switch strings.ToLower(status) {
	case "pass", "ok", "valid", "success":
		return colorize("✓", colorGreen)
	case "warn", "warning":
		return colorize("⚠", colorYellow)
	case "fail", "error", "invalid":
		return colorize("✗", colorRed)
	default:
		return "•"
	}
}

// EmptyLine prints an empty line
func EmptyLine() {
	fmt.Println()
}
