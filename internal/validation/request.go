// request.go validates request fields before they reach the repositories:
// email and subdomain formats, password strength, and enum membership for
// roles, priorities, and task statuses.
package validation

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"

	"github.com/taskhive/taskhive/internal/db/models"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// Subdomains are DNS labels: lowercase alphanumeric with interior hyphens,
// 3-63 characters.
var subdomainRe = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{1,61}[a-z0-9])$`)

// ValidateEmail validates an email address format.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return fmt.Errorf("invalid email address")
	}
	// Reject the "Name <addr>" form; only the bare address is stored.
	if addr.Address != email {
		return fmt.Errorf("invalid email address")
	}
	return nil
}

// ValidateSubdomain validates a tenant subdomain.
func ValidateSubdomain(subdomain string) error {
	if subdomain == "" {
		return fmt.Errorf("subdomain is required")
	}
	if !subdomainRe.MatchString(subdomain) {
		return fmt.Errorf("subdomain must be 3-63 lowercase letters, digits, or hyphens, and start and end with a letter or digit")
	}
	return nil
}

// ValidatePassword enforces the minimum password length. Composition rules
// are deliberately not enforced.
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("password is required")
	}
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

// ValidateRequired validates that a field is present and not just whitespace.
func ValidateRequired(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", field)
	}
	return nil
}

// ValidateRole validates a user role against the known set. super_admin is
// excluded: that role is only ever assigned by the seed command, never
// through the API.
func ValidateRole(role string) error {
	if role == models.RoleSuperAdmin || !models.ValidRole(role) {
		return fmt.Errorf("role must be one of: %s, %s", models.RoleTenantAdmin, models.RoleUser)
	}
	return nil
}

// ValidatePriority validates a task priority.
func ValidatePriority(priority string) error {
	if !models.ValidPriority(priority) {
		return fmt.Errorf("priority must be one of: %s, %s, %s", models.PriorityLow, models.PriorityMedium, models.PriorityHigh)
	}
	return nil
}

// ValidateTaskStatus validates a task status.
func ValidateTaskStatus(status string) error {
	if !models.ValidTaskStatus(status) {
		return fmt.Errorf("status must be one of: %s, %s, %s", models.TaskStatusTodo, models.TaskStatusInProgress, models.TaskStatusCompleted)
	}
	return nil
}
