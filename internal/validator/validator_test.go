package validator

import (
	"testing"

	"github.com/ewhitmore/postpilot/internal/models"
)

func TestValidateStruct_ValidPost(t *testing.T) {
	v := New()
	post := models.Post{
		ID:       "post-1",
		Content:  "Launch day!",
		Platform: models.PlatformX,
	}
	if err := v.ValidateStruct(post); err != nil {
		t.Errorf("ValidateStruct() returned error for valid post: %v", err)
	}
}

func TestValidateStruct_MissingFields(t *testing.T) {
	v := New()
	post := models.Post{Platform: models.PlatformX}
	if err := v.ValidateStruct(post); err == nil {
		t.Error("ValidateStruct() should fail for post without ID and content")
	}
}

func TestValidateStruct_UnknownPlatform(t *testing.T) {
	v := New()
	post := models.Post{
		ID:       "post-1",
		Content:  "hello",
		Platform: models.Platform("myspace"),
	}
	if err := v.ValidateStruct(post); err == nil {
		t.Error("ValidateStruct() should fail for unknown platform")
	}
}
