package validator

import (
	"testing"

	platformvalidator "crm_backend/platform/validator"
)

type sample struct {
	Password string `validate:"required,passwordmix"`
	Role     string `validate:"omitempty,role"`
}

func TestRegisteredRules(t *testing.T) {
	val := platformvalidator.New()
	if err := Register(val); err != nil {
		t.Fatalf("register: %v", err)
	}

	tests := []struct {
		name  string
		in    sample
		valid bool
	}{
		{"mixed password", sample{Password: "Secret1"}, true},
		{"no digit", sample{Password: "SecretOnly"}, false},
		{"no upper", sample{Password: "secret1"}, false},
		{"known role", sample{Password: "Secret1", Role: "Sales Executive"}, true},
		{"unknown role", sample{Password: "Secret1", Role: "Owner"}, false},
	}

	for _, tt := range tests {
		err := val.Struct(tt.in)
		if tt.valid && err != nil {
			t.Fatalf("%s: expected valid, got %v", tt.name, err)
		}
		if !tt.valid && err == nil {
			t.Fatalf("%s: expected validation error", tt.name)
		}
	}
}
