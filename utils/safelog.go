// Masked logging for production: personal data and full document ids
// are shortened or hidden when the server runs in release mode.
package utils

import (
	"log"
	"os"
	"regexp"
)

var (
	IsProduction = os.Getenv("GIN_MODE") == "release" ||
		os.Getenv("ENVIRONMENT") == "production" ||
		os.Getenv("ENV") == "production"

	emailRegex = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
)

// MaskID keeps the first 8 characters of an identifier in production.
func MaskID(id string) string {
	if !IsProduction {
		return id
	}
	if len(id) <= 8 {
		return "***"
	}
	return id[:8] + "..."
}

// MaskEmail hides the address entirely in production.
func MaskEmail(email string) string {
	if !IsProduction {
		return email
	}
	return "***@***.***"
}

// LogProjectAction logs a project mutation without leaking identities.
func LogProjectAction(action, projectID, userID string) {
	log.Printf("[Project] %s - Project: %s User: %s", action, MaskID(projectID), MaskID(userID))
}

// LogInviteAction logs invite lifecycle events. The code itself is a
// credential, so it is always masked.
func LogInviteAction(action, code, userID string) {
	masked := code
	if len(masked) > 2 {
		masked = masked[:2] + "****"
	}
	log.Printf("[Invite] %s - Code: %s User: %s", action, masked, MaskID(userID))
}

// LogAuthAction logs an authentication attempt.
func LogAuthAction(action, email string, success bool) {
	status := "SUCCESS"
	if !success {
		status = "FAILED"
	}
	log.Printf("[Auth] %s - Email: %s Status: %s", action, MaskEmail(email), status)
}

// LogWS logs a WebSocket feed event.
func LogWS(action, projectID, userID string) {
	log.Printf("[WS] %s - Project: %s User: %s", action, MaskID(projectID), MaskID(userID))
}
