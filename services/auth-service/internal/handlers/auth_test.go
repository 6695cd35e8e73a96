package handlers

import "testing"

func TestPasswordHashing(t *testing.T) {
	password := "pass123"
	hash, err := hashPassword(password)
	if err != nil {
		t.Fatalf("hashPassword failed: %v", err)
	}
	if hash == "" {
		t.Fatal("expected non-empty hash")
	}
	if err := verifyPassword(hash, password); err != nil {
		t.Fatalf("verifyPassword should succeed: %v", err)
	}
	if err := verifyPassword(hash, "wrong-pass"); err == nil {
		t.Fatal("verifyPassword should fail for wrong password")
	}
}

func TestValidateRegister(t *testing.T) {
	base := registerRequest{
		Email:    "owner@example.com",
		Password: "secret",
		Role:     RoleOwner,
	}
	if msg := validateRegister(base); msg != "" {
		t.Fatalf("owner registration should be valid, got %q", msg)
	}

	team := base
	team.Role = RoleTeam
	if msg := validateRegister(team); msg == "" {
		t.Fatal("team registration without business_id should be rejected")
	}
	team.BusinessID = "8e4a9f0c-9a49-4a1d-9f34-cb6ce13c7c1a"
	if msg := validateRegister(team); msg != "" {
		t.Fatalf("team registration with business_id should be valid, got %q", msg)
	}
	team.BusinessID = "not-a-uuid"
	if msg := validateRegister(team); msg == "" {
		t.Fatal("malformed business_id should be rejected")
	}

	unknown := base
	unknown.Role = "manager"
	if msg := validateRegister(unknown); msg == "" {
		t.Fatal("unknown role should be rejected")
	}

	empty := registerRequest{Role: RoleCustomer}
	if msg := validateRegister(empty); msg == "" {
		t.Fatal("missing email/password should be rejected")
	}
}
