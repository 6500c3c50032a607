package middleware

import (
	"testing"

	"goblog/models"
)

func TestIsAdmin(t *testing.T) {
	tests := []struct {
		name string
		user *models.User
		want bool
	}{
		{"nil user", nil, false},
		{"first account", &models.User{ID: 1}, true},
		{"second account", &models.User{ID: 2}, false},
		{"high id", &models.User{ID: 100}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsAdmin(tt.user); got != tt.want {
				t.Fatalf("IsAdmin = %v, want %v", got, tt.want)
			}
		})
	}
}
