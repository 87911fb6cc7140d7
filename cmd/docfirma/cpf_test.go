package main

import "testing"

func TestValidateCPF(t *testing.T) {
	valid := []string{
		"52998224725",
		"11144477735",
	}
	for _, c := range valid {
		if err := validateCPF(c); err != nil {
			t.Fatalf("valid cpf %s rejected: %v", c, err)
		}
	}

	invalid := []string{
		"52998224724", // wrong second verifier digit
		"52998224715", // wrong first verifier digit
		"00000000000", // repeated digits pass the arithmetic, still invalid
		"11111111111",
		"123",
	}
	for _, c := range invalid {
		if err := validateCPF(c); err == nil {
			t.Fatalf("invalid cpf %s accepted", c)
		}
	}
}
