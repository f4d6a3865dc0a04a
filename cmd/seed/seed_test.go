package main

import (
	"strings"
	"testing"
)

func TestParseSeed(t *testing.T) {
	data := []byte(`
users:
  - name: Ada Admin
    email: " Ada@Example.com "
    password: s3cret!
    role: Admin
  - name: Sam Seller
    email: sam@example.com
    password: hunter22
`)

	users, err := parseSeed(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
	if users[0].Email != "ada@example.com" || users[0].Role != "Admin" {
		t.Fatalf("unexpected first user: %+v", users[0])
	}
	if users[1].Role != "Sales Executive" {
		t.Fatalf("expected default role, got %q", users[1].Role)
	}
}

func TestParseSeedRejects(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"missing name", "users:\n  - email: a@example.com\n    password: x\n", "name is required"},
		{"bad email", "users:\n  - name: A\n    email: nope\n    password: x\n", "invalid email"},
		{"missing password", "users:\n  - name: A\n    email: a@example.com\n", "password is required"},
		{"unknown role", "users:\n  - name: A\n    email: a@example.com\n    password: x\n    role: Owner\n", "unknown role"},
		{"duplicate", "users:\n  - name: A\n    email: a@example.com\n    password: x\n  - name: B\n    email: A@example.com\n    password: y\n", "duplicate email"},
		{"not yaml", "users: [", "decode seed file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseSeed([]byte(tt.data))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestDefaultSeed(t *testing.T) {
	users := defaultSeed("admin123")
	if len(users) != 1 || users[0].Email != "admin@crm.com" || users[0].Name != "Admin User" || users[0].Role != "Admin" {
		t.Fatalf("unexpected default seed: %+v", users)
	}
}
