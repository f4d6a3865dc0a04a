package main

import (
	"fmt"
	"net/mail"
	"strings"

	"crm_backend/internal/access"

	"gopkg.in/yaml.v3"
)

const (
	defaultAdminName  = "Admin User"
	defaultAdminEmail = "admin@crm.com"
)

type seedUser struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

type seedFile struct {
	Users []seedUser `yaml:"users"`
}

// parseSeed decodes and validates a seed file. Roles default to Sales Executive.
func parseSeed(data []byte) ([]seedUser, error) {
	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}

	seen := make(map[string]bool, len(file.Users))
	users := make([]seedUser, 0, len(file.Users))
	for i, u := range file.Users {
		u.Name = strings.TrimSpace(u.Name)
		u.Email = strings.ToLower(strings.TrimSpace(u.Email))
		if u.Role == "" {
			u.Role = string(access.RoleSalesExecutive)
		}

		if u.Name == "" {
			return nil, fmt.Errorf("user %d: name is required", i+1)
		}
		if _, err := mail.ParseAddress(u.Email); err != nil {
			return nil, fmt.Errorf("user %d: invalid email %q", i+1, u.Email)
		}
		if u.Password == "" {
			return nil, fmt.Errorf("user %d: password is required", i+1)
		}
		if _, ok := access.ParseRole(u.Role); !ok {
			return nil, fmt.Errorf("user %d: unknown role %q", i+1, u.Role)
		}
		if seen[u.Email] {
			return nil, fmt.Errorf("user %d: duplicate email %q", i+1, u.Email)
		}
		seen[u.Email] = true
		users = append(users, u)
	}
	return users, nil
}

func defaultSeed(password string) []seedUser {
	return []seedUser{{
		Name:     defaultAdminName,
		Email:    defaultAdminEmail,
		Password: password,
		Role:     string(access.RoleAdmin),
	}}
}
