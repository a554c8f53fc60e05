package validator

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/ewhitmore/postpilot/internal/models"
)

// Validator wraps the validator library with the custom rules the queue
// payloads need.
type Validator struct {
	validate *validator.Validate
}

// New creates a new Validator instance with the platform rule registered.
func New() *Validator {
	v := validator.New()
	// Registration only fails for an empty tag name.
	_ = v.RegisterValidation("platform", validPlatform)
	return &Validator{validate: v}
}

// ValidateStruct validates a struct based on its tags.
func (v *Validator) ValidateStruct(s interface{}) error {
	if err := v.validate.Struct(s); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

func validPlatform(fl validator.FieldLevel) bool {
	switch models.Platform(fl.Field().String()) {
	case models.PlatformX, models.PlatformLinkedIn, models.PlatformDiscord,
		models.PlatformInstagram, models.PlatformFacebook, models.PlatformYouTube:
		return true
	}
	return false
}
