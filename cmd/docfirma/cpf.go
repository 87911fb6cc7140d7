package main

import "fmt"

// validateCPF checks the two CPF verifier digits. Input must already be
// normalized to 11 digits. This lives in the CLI on purpose: the core
// binds whatever tax id it is handed; rejecting typos is the caller's job.
func validateCPF(digits string) error {
	if len(digits) != 11 {
		return fmt.Errorf("cpf must have 11 digits")
	}
	allSame := true
	for i := 1; i < len(digits); i++ {
		if digits[i] != digits[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return fmt.Errorf("cpf %q is not valid", digits)
	}

	if d := cpfVerifierDigit(digits, 9); d != int(digits[9]-'0') {
		return fmt.Errorf("cpf %q has an invalid first verifier digit", digits)
	}
	if d := cpfVerifierDigit(digits, 10); d != int(digits[10]-'0') {
		return fmt.Errorf("cpf %q has an invalid second verifier digit", digits)
	}
	return nil
}

// cpfVerifierDigit computes the verifier digit over the first n digits
// with weights n+1 down to 2.
func cpfVerifierDigit(digits string, n int) int {
	sum := 0
	for i := 0; i < n; i++ {
		sum += int(digits[i]-'0') * (n + 1 - i)
	}
	rest := sum * 10 % 11
	if rest == 10 {
		return 0
	}
	return rest
}
