package validation

import "testing"

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
		valid bool
	}{
		{
			name:  "plain address",
			email: "cliente@example.com",
			valid: true,
		},
		{
			name:  "subdomain",
			email: "user@mail.example.pe",
			valid: true,
		},
		{
			name:  "missing at",
			email: "cliente.example.com",
			valid: false,
		},
		{
			name:  "display name not allowed",
			email: "Cliente <cliente@example.com>",
			valid: false,
		},
		{
			name:  "empty string",
			email: "",
			valid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsValidEmail(tt.email)
			if got != tt.valid {
				t.Fatalf("IsValidEmail(%q) = %v, want %v", tt.email, got, tt.valid)
			}
		})
	}
}

func TestIsValidDNI(t *testing.T) {
	tests := []struct {
		name  string
		dni   string
		valid bool
	}{
		{
			name:  "eight digits",
			dni:   "45678912",
			valid: true,
		},
		{
			name:  "too short",
			dni:   "4567891",
			valid: false,
		},
		{
			name:  "too long",
			dni:   "456789123",
			valid: false,
		},
		{
			name:  "contains letters",
			dni:   "4567891a",
			valid: false,
		},
		{
			name:  "empty string",
			dni:   "",
			valid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsValidDNI(tt.dni)
			if got != tt.valid {
				t.Fatalf("IsValidDNI(%q) = %v, want %v", tt.dni, got, tt.valid)
			}
		})
	}
}

func TestIsValidPhone(t *testing.T) {
	tests := []struct {
		name  string
		phone string
		valid bool
	}{
		{
			name:  "local number",
			phone: "987654321",
			valid: true,
		},
		{
			name:  "with country code",
			phone: "+51987654321",
			valid: true,
		},
		{
			name:  "too short",
			phone: "12345",
			valid: false,
		},
		{
			name:  "plus in the middle",
			phone: "98765+4321",
			valid: false,
		},
		{
			name:  "empty string",
			phone: "",
			valid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsValidPhone(tt.phone)
			if got != tt.valid {
				t.Fatalf("IsValidPhone(%q) = %v, want %v", tt.phone, got, tt.valid)
			}
		})
	}
}
