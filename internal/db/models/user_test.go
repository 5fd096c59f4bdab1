package models

import "testing"

func TestUserFullName(t *testing.T) {
	tests := []struct {
		name  string
		first string
		last  string
		want  string
	}{
		{"both", "Thandi", "Nkosi", "Thandi Nkosi"},
		{"first only", "Thandi", "", "Thandi"},
		{"last only", "", "Nkosi", "Nkosi"},
		{"neither", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &User{FirstName: tt.first, LastName: tt.last}
			if got := u.FullName(); got != tt.want {
				t.Errorf("FullName() = %q, want %q", got, tt.want)
			}
		})
	}
}
