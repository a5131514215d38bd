package validation

import "testing"

type request struct {
	UserID string `validate:"required,notblank"`
}

func TestNotBlank(t *testing.T) {
	tests := []struct {
		userID string
		valid  bool
	}{
		{"u1", true},
		{" u1 ", true},
		{"", false},
		{"   ", false},
		{"\t\n", false},
	}
	for _, tt := range tests {
		err := Get().Struct(request{UserID: tt.userID})
		if (err == nil) != tt.valid {
			t.Fatalf("userID %q: valid=%v, err=%v", tt.userID, tt.valid, err)
		}
	}
}

func TestGetIsShared(t *testing.T) {
	if Get() != Get() {
		t.Fatalf("expected a single validator instance")
	}
}
