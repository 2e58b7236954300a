package authpw

import (
	"errors"
	"testing"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := Hash("correct horse battery")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if hash == "correct horse battery" {
		t.Fatal("password stored in the clear")
	}
	if err := Verify(hash, "correct horse battery"); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if err := Verify(hash, "wrong"); !errors.Is(err, ErrWrongPassword) {
		t.Fatalf("Verify(wrong) = %v, want ErrWrongPassword", err)
	}
}

func TestHashRejectsShortPasswords(t *testing.T) {
	if _, err := Hash("short"); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("Hash(short) = %v, want ErrPasswordTooShort", err)
	}
}
